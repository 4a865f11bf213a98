package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the engine with an HTTP API and an optional MQTT bridge",
		Long: `Serve keeps the consumer loop running and exposes the engine:

  POST /command   {"command": "AT+CMGF=1"}
  POST /exchange  {"command": "AT+CSQ", "expect": "OK", "timeout_ms": 2000}
  GET  /stats

With --mqtt-broker set, unsolicited result codes matching --urc are
published to <topic>/urc and commands are accepted on <topic>/command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, a)
		},
	}
	cmd.Flags().String("bind-address", "0.0.0.0:8080", "Bind address for the HTTP server")
	cmd.Flags().String("mqtt-broker", "", "MQTT broker URL, e.g. tcp://localhost:1883 (disabled if empty)")
	cmd.Flags().String("mqtt-client-id", "uatd", "MQTT client ID")
	cmd.Flags().String("mqtt-topic", "uat", "MQTT topic prefix")
	cmd.Flags().String("mqtt-username", "", "MQTT username (password from MQTT_PASSWORD)")
	return cmd
}

func runServe(ctx context.Context, a *app) error {
	logger := a.logger
	engine, closeEngine, err := openEngine(ctx, a.config, logger)
	if err != nil {
		logger.Error("Failed to open engine", "error", err)
		return err
	}
	defer closeEngine()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	httpServer := &http.Server{
		Addr: a.config.BindAddress,
		Handler: &Server{
			Logger: logger.With("component", "server"),
			Engine: engine,
		},
	}
	g.Go(func() error {
		logger.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Closing HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if a.config.MQTTBroker != "" {
		bridge := NewBridge(engine, a.config.MQTTTopic, a.config.URCs, logger)
		client := mqtt.NewClient(bridge.ClientOptions(a.config))
		g.Go(func() error {
			return bridge.Run(ctx, client)
		})
	}

	err = g.Wait()
	logger.Info("Shut down", "error", err)
	return err
}
