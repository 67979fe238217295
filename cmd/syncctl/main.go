// Command syncctl is the operator CLI for storesync. It runs sync and
// maintenance operations inline against the configured database, issues API
// tokens and manages schema migrations.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
