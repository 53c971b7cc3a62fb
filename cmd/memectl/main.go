// Command memectl is the operator CLI for the ledger service.
package main

import (
	"os"

	"meme-ledger/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
