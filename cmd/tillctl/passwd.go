package main

import (
	"fmt"
	"strconv"

	"github.com/georgemunganga/tillcore/internal/clock"
	"github.com/georgemunganga/tillcore/internal/modules/user"
	"github.com/spf13/cobra"
)

func newPasswdCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "passwd <user-id>",
		Short: "Set a user's API password, read from stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			password, err := readLine(cmd.InOrStdin())
			if err != nil {
				return err
			}
			db, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			users := user.NewService(user.NewPostgresRepository(db), clock.System{}, opts.log)
			if err := users.SetPassword(cmd.Context(), id, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "password set for user %d\n", id)
			return nil
		},
	}
}
