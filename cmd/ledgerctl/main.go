// Command ledgerctl is a small operator CLI over a ledgerstore root:
// initialize one, append/commit notes into the bundled noteitem demo
// collection, scan and repair on-disk damage, and query the reference
// and property index.
package main

import (
	"fmt"
	"os"

	"github.com/speki-go/ledgerstore/telemetry"
)

func main() {
	telemetry.InstallLocalMeterProvider()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ledgerctl:", err)
		os.Exit(1)
	}
}
