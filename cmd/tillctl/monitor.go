package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/georgemunganga/tillcore/internal/notify"
	"github.com/spf13/cobra"
)

func newMonitorCommand(opts *rootOptions) *cobra.Command {
	var channels []string
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Print database notifications as they arrive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			d := notify.NewListener(opts.cfg.DatabaseURL, opts.log)
			return monitor(ctx, d, channels, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringSliceVar(&channels, "channel", notify.AllChannels, "channels to listen on")
	return cmd
}

// monitor writes one line per notification until ctx ends.
func monitor(ctx context.Context, d *notify.Dispatcher, channels []string, out io.Writer) error {
	merged := make(chan notify.Notification)
	for _, c := range channels {
		ch, err := d.Subscribe(c)
		if err != nil {
			return err
		}
		go func(ch <-chan notify.Notification) {
			for n := range ch {
				select {
				case merged <- n:
				case <-ctx.Done():
					return
				}
			}
		}(ch)
	}
	go d.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-merged:
			if n.Payload == "" {
				fmt.Fprintf(out, "%s (reconnected)\n", n.Channel)
				continue
			}
			fmt.Fprintf(out, "%s %s\n", n.Channel, n.Payload)
		}
	}
}
