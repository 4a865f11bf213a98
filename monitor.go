package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"i4.energy/across/uat/uat"
)

func newMonitorCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Print unsolicited result codes as they arrive",
		Long: `Monitor registers every --urc prefix with priority and prints each
matching line with a timestamp until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			engine, closeEngine, err := openEngine(ctx, a.config, a.logger)
			if err != nil {
				return err
			}
			defer closeEngine()

			fmt.Fprintf(cmd.OutOrStdout(), "Monitoring %v, press Ctrl+C to exit\n\n", a.config.URCs)
			return runMonitor(ctx, engine, a.config.URCs, cmd.OutOrStdout())
		},
	}
}

func runMonitor(ctx context.Context, engine *uat.Engine, prefixes []string, w io.Writer) error {
	// Handlers run one at a time on the consumer loop.
	for _, prefix := range prefixes {
		err := engine.RegisterPriority(prefix, uat.HandlerFunc(func(args string) {
			fmt.Fprintf(w, "%s %s %s\n", time.Now().Format("15:04:05.000"), prefix, args)
		}))
		if err != nil {
			return fmt.Errorf("register %q: %w", prefix, err)
		}
	}

	if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
