package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"i4.energy/across/uat/uat"
)

func newSendCmd(a *app) *cobra.Command {
	var (
		expect   string
		timeout  time.Duration
		capacity int
		noWait   bool
	)
	cmd := &cobra.Command{
		Use:   "send COMMAND...",
		Short: "Send one command and print the response lines",
		Example: `  uatd send AT+CSQ
  uatd send --expect +CREG: AT+CREG?
  uatd send --no-wait AT+CFUN=1,1`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, closeEngine, err := openEngine(cmd.Context(), a.config, a.logger)
			if err != nil {
				return err
			}
			defer closeEngine()

			req := CommandRequest{
				Command:   strings.Join(args, " "),
				Expect:    expect,
				TimeoutMS: int(timeout / time.Millisecond),
				Capacity:  capacity,
			}
			return runSend(cmd.Context(), engine, req, noWait, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&expect, "expect", "OK", "Prefix of the line that ends the exchange")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Exchange timeout")
	cmd.Flags().IntVar(&capacity, "capacity", defaultCapacity, "Response capture buffer size")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Only transmit, do not wait for a response")
	return cmd
}

// runSend drives engine's consumer loop for the duration of one command.
func runSend(ctx context.Context, engine *uat.Engine, req CommandRequest, noWait bool, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	loopDone := make(chan error, 1)
	go func() { loopDone <- engine.Run(ctx) }()
	defer func() {
		cancel()
		<-loopDone
	}()

	if noWait {
		return engine.Send(ctx, req.Command)
	}

	resp, err := exchange(ctx, engine, req)
	for _, line := range resp.Lines {
		fmt.Fprintln(w, line)
	}
	if resp.Truncated {
		fmt.Fprintln(w, "(response truncated)")
	}
	if err != nil {
		return err
	}
	if resp.Failed {
		return errors.New("modem reported an error")
	}
	return nil
}
