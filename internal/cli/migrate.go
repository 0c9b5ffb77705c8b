package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/pushkit/pkg/config"
	"github.com/dmitrymomot/pushkit/pkg/pushstore"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the Postgres subscription schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var appCfg appConfig
			if err := config.Load(&appCfg); err != nil {
				return err
			}
			log, err := newLogger(appCfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			var cfg pushstore.PostgresConfig
			if err := config.Load(&cfg); err != nil {
				return err
			}
			pool, err := pushstore.ConnectPostgres(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := pushstore.Migrate(ctx, pool, cfg, log); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
