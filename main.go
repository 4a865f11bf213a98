package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// app is filled in before any subcommand runs.
type app struct {
	config *Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "uatd",
		Short: "AT command engine for UART modems",
		Long: `uatd drives an AT-command modem over a UART: it assembles received lines,
dispatches unsolicited result codes to handlers and runs synchronous
command/response exchanges.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the UAT_PASSWORD
environment variable, or prompted interactively if not set.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config, err := LoadConfig(WithDefaults(), WithEnv(), WithFlags(cmd.Flags()))
			if err != nil {
				return err
			}
			a.config = config
			a.logger = newLogger(config.LogLevel)
			slog.SetDefault(a.logger)
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	// Serial connection flags
	flags.StringP("port", "p", "/dev/ttyUSB0", "Serial port device")
	flags.IntP("baud", "b", 115200, "Baud rate (serial only)")
	// WebSocket connection flags
	flags.StringP("url", "u", "", "WebSocket URL (ws:// or wss://)")
	flags.String("username", "", "Username for HTTP Basic auth")
	flags.Bool("no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")
	// Engine flags
	flags.String("mode", "dma", "Reception mode (dma, interrupt)")
	flags.Int("rx-buffer", 512, "Receive queue and line buffer size")
	flags.Int("tx-buffer", 512, "Transmit buffer size")
	flags.Int("max-handlers", 10, "Command table capacity")
	flags.Duration("tx-timeout", time.Second, "Transmit completion timeout")
	flags.Duration("lock-timeout", 500*time.Millisecond, "Transmit lock timeout")
	flags.Duration("line-timeout", time.Second, "Line assembly timeout")
	flags.Duration("exchange-timeout", 5*time.Second, "Default exchange timeout")
	flags.StringSlice("urc", nil, "Unsolicited result code prefixes (default +CMTI:,+CDSI:,RING,+CREG:)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newServeCmd(a), newSendCmd(a), newMonitorCmd(a))
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
