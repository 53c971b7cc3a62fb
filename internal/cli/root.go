// Package cli implements the memectl commands.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// Set via -ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
)

const defaultServer = "http://localhost:8080"

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	server string
}

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:          "memectl",
		Short:        "Operate and inspect a meme-ledger service",
		Long:         "memectl prices bonding curve trades offline, queries the token catalog and follows the live event feed.",
		SilenceUsage: true,
	}

	server := os.Getenv("MEMECTL_SERVER")
	if server == "" {
		server = defaultServer
	}
	root.PersistentFlags().StringVar(&opts.server, "server", server, "Service base URL (env MEMECTL_SERVER)")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newQuoteCmd())
	root.AddCommand(newTokensCmd(opts))
	root.AddCommand(newWatchCmd(opts))
	root.AddCommand(newManifestCmd())
	return root
}

// Execute runs memectl with the process arguments.
func Execute() error {
	return NewRootCmd().Execute()
}
