package main

import (
	"context"

	"github.com/georgemunganga/tillcore/internal/config"
	"github.com/georgemunganga/tillcore/internal/database"
	"github.com/georgemunganga/tillcore/internal/logging"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// rootOptions are shared by every subcommand.
type rootOptions struct {
	databaseURL string
	cfg         config.Config
	log         *zap.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "tillctl",
		Short:         "Till database administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.cfg = config.Load()
			if opts.databaseURL != "" {
				opts.cfg.DatabaseURL = opts.databaseURL
			}
			log, err := logging.New(opts.cfg.Development())
			if err != nil {
				return err
			}
			opts.log = log
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&opts.databaseURL, "database", "", "database URL (default $DATABASE_URL)")

	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newGenerateSecretKeyCommand())
	cmd.AddCommand(newSetSecretCommand(opts))
	cmd.AddCommand(newPasswdCommand(opts))
	cmd.AddCommand(newMonitorCommand(opts))
	return cmd
}

func (o *rootOptions) connect(ctx context.Context) (*sqlx.DB, error) {
	return database.Connect(ctx, o.cfg.DatabaseURL)
}
