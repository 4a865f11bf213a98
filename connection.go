package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"i4.energy/across/uat/hal"
	"i4.energy/across/uat/uat"
)

// Dialer picks the WebSocket bridge when a URL is configured and the serial
// port otherwise. The returned string describes the connection for logs.
func (c *Config) Dialer() (hal.Dialer, string, error) {
	if c.URL != "" {
		password := c.Password
		if c.Username != "" && password == "" {
			var err error
			password, err = getPassword()
			if err != nil {
				return nil, "", err
			}
		}
		return hal.WebSocketDialer{
			URL:           c.URL,
			Username:      c.Username,
			Password:      password,
			SkipTLSVerify: c.NoSSLVerify,
		}, fmt.Sprintf("WebSocket: %s", c.URL), nil
	}

	if c.SerialPort != "" {
		return hal.SerialDialer{
			PortName: c.SerialPort,
			BaudRate: c.BaudRate,
		}, fmt.Sprintf("Serial: %s @ %d baud", c.SerialPort, c.BaudRate), nil
	}

	return nil, "", errors.New("either --port or --url must be specified")
}

// getPassword prompts for the bridge password without echo.
func getPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		// Not a terminal, read a plain line instead.
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// openEngine connects to the modem and starts an engine on it. The returned
// function closes the engine and then the connection.
func openEngine(ctx context.Context, config *Config, logger *slog.Logger) (*uat.Engine, func(), error) {
	dialer, info, err := config.Dialer()
	if err != nil {
		return nil, nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	port, err := dialer.Dial(dialCtx)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Connected to modem", "connection", info)

	engineConfig, err := config.EngineConfig(logger)
	if err != nil {
		port.Close()
		return nil, nil, err
	}

	stream := hal.NewStream(port, logger)
	engine, err := uat.New(stream, engineConfig)
	if err != nil {
		stream.Close()
		return nil, nil, err
	}

	closeAll := func() {
		if err := engine.Close(); err != nil {
			logger.Error("Failed to close engine", "error", err)
		}
		if err := stream.Close(); err != nil {
			logger.Error("Failed to close connection", "error", err)
		}
	}
	return engine, closeAll, nil
}
