package ledger

import "encoding/json"

// Event is the item-agnostic envelope persisted by the ledger. Key and
// Action are opaque byte payloads to the ledger itself; the itemstore
// package that owns a given Kind decodes them into a concrete key and
// action type. Kind lets multiple item collections share one ledger
// root without cross-decoding each other's events.
type Event struct {
	Kind   string          `json:"kind"`
	Key    string          `json:"key"`
	Action json.RawMessage `json:"action"`
}
