package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"meme-ledger/internal/deploy"
)

func newManifestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Create and check deployment manifests",
	}
	cmd.AddCommand(newManifestInitCmd())
	cmd.AddCommand(newManifestCheckCmd())
	return cmd
}

func newManifestInitCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the dev manifest as a starting point",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := deploy.Dev()
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				return m.Encode(cmd.OutOrStdout())
			}

			f, err := os.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			if err := m.Encode(f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "File to create (default stdout)")
	return cmd
}

func newManifestCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <path>",
		Short: "Validate a manifest file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := deploy.Load(args[0])
			if err != nil {
				return err
			}
			fee, err := m.PlatformFee()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: owner %s, admin %s, fee %s sub-units, %d genesis entries\n",
				m.Roles.Owner, m.Roles.Admin, fee, len(m.Genesis))
			return nil
		},
	}
}
