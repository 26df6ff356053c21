package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/georgemunganga/tillcore/internal/secrets"
	"github.com/spf13/cobra"
)

func newGenerateSecretKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "generate-secret-key",
		Short: "Print a new key for TILL_SECRET_KEY",
		Args:  cobra.NoArgs,
		// No database or config needed.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := secrets.GenerateKey()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
}

// newSetSecretCommand stores a value read from stdin, for example the
// card terminal API key under "card" / "api_key".
func newSetSecretCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-secret <key-name> <secret-name>",
		Short: "Encrypt and store a secret read from stdin",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.cfg.SecretKey == "" {
				return errors.New("TILL_SECRET_KEY is not set")
			}
			value, err := readLine(cmd.InOrStdin())
			if err != nil {
				return err
			}
			db, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			store, err := secrets.NewStore(secrets.NewPostgresRepository(db), args[0], opts.cfg.SecretKey)
			if err != nil {
				return err
			}
			return store.Put(cmd.Context(), args[1], value)
		},
	}
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("no value given on stdin")
	}
	return line, nil
}
