package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"i4.energy/across/uat/at"
	"i4.energy/across/uat/uat"
)

// Config holds the application configuration
type Config struct {
	// BindAddress is the address the HTTP server listens on (e.g. "0.0.0.0:8080")
	BindAddress string
	// SerialPort is the path to the modem's serial port (e.g. "/dev/ttyUSB0")
	SerialPort string
	// BaudRate is the baud rate for serial communication with the modem (e.g. 115200)
	BaudRate int
	// URL of a WebSocket UART bridge; takes precedence over SerialPort
	URL string
	// Username and Password for HTTP Basic auth on the WebSocket bridge
	Username string
	Password string
	// NoSSLVerify skips TLS certificate verification for wss:// URLs
	NoSSLVerify bool
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string

	// Mode is the reception mode of the engine ("dma" or "interrupt")
	Mode            string
	RxBufferSize    int
	TxBufferSize    int
	MaxHandlers     int
	TxTimeout       time.Duration
	LockTimeout     time.Duration
	LineTimeout     time.Duration
	ExchangeTimeout time.Duration

	// URCs are the unsolicited result code prefixes relayed by serve and monitor
	URCs []string

	// MQTTBroker enables the MQTT bridge when set (e.g. "tcp://localhost:1883")
	MQTTBroker   string
	MQTTClientID string
	MQTTTopic    string
	MQTTUsername string
	MQTTPassword string
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.BindAddress = "0.0.0.0:8080"
		c.SerialPort = "/dev/ttyUSB0"
		c.BaudRate = 115200
		c.LogLevel = "info"
		c.Mode = "dma"
		c.URCs = append([]string(nil), at.DefaultURCs...)
		c.MQTTClientID = "uatd"
		c.MQTTTopic = "uat"
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
			c.BindAddress = addr
		}

		if serial := os.Getenv("SERIAL_PORT"); serial != "" {
			c.SerialPort = serial
		}

		if baud := os.Getenv("BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.BaudRate = b
			}
		}

		if level := os.Getenv("LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}

		if url := os.Getenv("UAT_URL"); url != "" {
			c.URL = url
		}

		if user := os.Getenv("UAT_USERNAME"); user != "" {
			c.Username = user
		}

		if pw := os.Getenv("UAT_PASSWORD"); pw != "" {
			c.Password = pw
		}

		if mode := os.Getenv("UAT_MODE"); mode != "" {
			c.Mode = mode
		}

		if urcs := os.Getenv("URC_PREFIXES"); urcs != "" {
			c.URCs = splitList(urcs)
		}

		if broker := os.Getenv("MQTT_BROKER"); broker != "" {
			c.MQTTBroker = broker
		}

		if id := os.Getenv("MQTT_CLIENT_ID"); id != "" {
			c.MQTTClientID = id
		}

		if topic := os.Getenv("MQTT_TOPIC"); topic != "" {
			c.MQTTTopic = topic
		}

		if user := os.Getenv("MQTT_USERNAME"); user != "" {
			c.MQTTUsername = user
		}

		if pw := os.Getenv("MQTT_PASSWORD"); pw != "" {
			c.MQTTPassword = pw
		}

		return nil
	}
}

// WithFlags loads configuration from command-line flags that were set
func WithFlags(fSet *pflag.FlagSet) ConfigOption {
	return func(c *Config) error {
		var err error
		fSet.Visit(func(f *pflag.Flag) {
			if err != nil {
				return
			}
			value := f.Value.String()
			switch f.Name {
			case "bind-address":
				c.BindAddress = value
			case "port":
				c.SerialPort = value
			case "baud":
				c.BaudRate, err = strconv.Atoi(value)
			case "url":
				c.URL = value
			case "username":
				c.Username = value
			case "no-ssl-verify":
				c.NoSSLVerify, err = strconv.ParseBool(value)
			case "log-level":
				c.LogLevel = value
			case "mode":
				c.Mode = value
			case "rx-buffer":
				c.RxBufferSize, err = strconv.Atoi(value)
			case "tx-buffer":
				c.TxBufferSize, err = strconv.Atoi(value)
			case "max-handlers":
				c.MaxHandlers, err = strconv.Atoi(value)
			case "tx-timeout":
				c.TxTimeout, err = time.ParseDuration(value)
			case "lock-timeout":
				c.LockTimeout, err = time.ParseDuration(value)
			case "line-timeout":
				c.LineTimeout, err = time.ParseDuration(value)
			case "exchange-timeout":
				c.ExchangeTimeout, err = time.ParseDuration(value)
			case "urc":
				c.URCs, err = fSet.GetStringSlice("urc")
			case "mqtt-broker":
				c.MQTTBroker = value
			case "mqtt-client-id":
				c.MQTTClientID = value
			case "mqtt-topic":
				c.MQTTTopic = value
			case "mqtt-username":
				c.MQTTUsername = value
			}
			if err != nil {
				err = fmt.Errorf("invalid --%s: %w", f.Name, err)
			}
		})
		return err
	}
}

// EngineConfig converts the application settings into an engine config.
func (c *Config) EngineConfig(logger *slog.Logger) (uat.Config, error) {
	mode, err := uat.ParseMode(c.Mode)
	if err != nil {
		return uat.Config{}, err
	}
	return uat.NewConfigBuilder().
		WithMode(mode).
		WithRxBufferSize(c.RxBufferSize).
		WithTxBufferSize(c.TxBufferSize).
		WithMaxHandlers(c.MaxHandlers).
		WithTxTimeout(c.TxTimeout).
		WithLockTimeout(c.LockTimeout).
		WithLineTimeout(c.LineTimeout).
		WithExchangeTimeout(c.ExchangeTimeout).
		WithLogger(logger).
		Build()
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func newLogger(level string) *slog.Logger {
	logLevel := slog.LevelInfo
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
