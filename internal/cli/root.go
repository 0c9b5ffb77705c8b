package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/pushkit/pkg/config"
)

var (
	version = "dev"
	commit  = "none"
)

func newRootCmd() *cobra.Command {
	var envFiles []string

	cmd := &cobra.Command{
		Use:           "pushkit",
		Short:         "Send encrypted Web Push notifications",
		Long:          "pushkit signs VAPID tokens, encrypts payloads with aes128gcm and delivers them to the push services of stored subscriptions.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if len(envFiles) == 0 {
				return nil
			}
			if err := config.LoadEnv(envFiles...); err != nil {
				return err
			}
			config.ResetCache()
			return nil
		},
	}
	cmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "read additional .env files (repeatable)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newKeygenCmd())
	cmd.AddCommand(newSendCmd())
	cmd.AddCommand(newBroadcastCmd())
	cmd.AddCommand(newMigrateCmd())
	return cmd
}

// Execute runs the CLI until completion or SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		return err
	}
	return nil
}
