package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/pushkit/pkg/vapid"
)

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a VAPID key pair",
		Long:  "Print a fresh VAPID key pair as .env lines. Rotating keys invalidates every existing subscription.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := vapid.GenerateKeys()
			if err != nil {
				return fmt.Errorf("generating keys: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "VAPID_PUBLIC_KEY=%s\n", keys.PublicKeyString())
			fmt.Fprintf(out, "VAPID_PRIVATE_KEY=%s\n", keys.PrivateKeyString())
			return nil
		},
	}
}
