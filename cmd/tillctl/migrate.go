package main

import (
	"fmt"

	"github.com/georgemunganga/tillcore/internal/migrations"
	"github.com/spf13/cobra"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	var printOnly bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if printOnly {
				fmt.Fprint(cmd.OutOrStdout(), migrations.Schema())
				return nil
			}
			db, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			if err := migrations.Run(cmd.Context(), db); err != nil {
				return err
			}
			opts.log.Info("schema is up to date")
			return nil
		},
	}
	cmd.Flags().BoolVar(&printOnly, "print", false, "print the schema instead of applying it")
	return cmd
}
