// Package hash provides the stable content hashing used to address
// ledger events and stored items.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Hash is an opaque, fixed-width, deterministic digest of some serialized
// value. Two values that marshal to the same bytes hash identically.
type Hash string

// String returns the hash's canonical textual form.
func (h Hash) String() string {
	return string(h)
}

// IsZero reports whether h is the empty hash (no value hashed yet).
func (h Hash) IsZero() bool {
	return h == ""
}

// OfBytes hashes raw bytes directly.
func OfBytes(b []byte) Hash {
	sum := sha256.Sum256(b)
	return Hash(hex.EncodeToString(sum[:]))
}

// OfValue canonically marshals v to JSON and hashes the result. Callers
// needing a stable hash across Go struct field reordering should give v a
// custom MarshalJSON with a fixed key order.
func OfValue(v any) (Hash, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("hash: marshal value: %w", err)
	}
	return OfBytes(b), nil
}
