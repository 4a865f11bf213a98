package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"i4.energy/across/uat/uat"
)

// URC is an unsolicited result code as published on <topic>/urc.
type URC struct {
	Prefix string    `json:"prefix"`
	Args   string    `json:"args"`
	Time   time.Time `json:"time"`
}

// Registrar is the part of *uat.Engine the bridge registers handlers with.
type Registrar interface {
	RegisterPriority(prefix string, h uat.Handler) error
	Unregister(prefix string) error
}

// Bridge relays unsolicited result codes to MQTT and executes commands
// received on <topic>/command, answering on <topic>/response.
type Bridge struct {
	logger   *slog.Logger
	engine   Engine
	registry Registrar
	topic    string
	prefixes []string
	urcs     chan URC
}

// NewBridge creates a bridge for the given URC prefixes.
func NewBridge(engine *uat.Engine, topic string, prefixes []string, logger *slog.Logger) *Bridge {
	return &Bridge{
		logger:   logger.With("component", "mqtt"),
		engine:   engine,
		registry: engine,
		topic:    strings.TrimSuffix(topic, "/"),
		prefixes: prefixes,
		urcs:     make(chan URC, 64),
	}
}

// ClientOptions returns MQTT options that subscribe to the command topic on
// every (re)connect.
func (b *Bridge) ClientOptions(config *Config) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.MQTTBroker)
	opts.SetClientID(config.MQTTClientID)
	if config.MQTTUsername != "" {
		opts.SetUsername(config.MQTTUsername)
		opts.SetPassword(config.MQTTPassword)
	}
	opts.SetOrderMatters(false)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		b.logger.Warn("MQTT connection lost", "error", err)
	})
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		topic := b.topic + "/command"
		b.logger.Info("MQTT connected", "subscribe", topic)
		if token := c.Subscribe(topic, 1, func(c mqtt.Client, m mqtt.Message) {
			b.handleCommand(c, m.Payload())
		}); token.Wait() && token.Error() != nil {
			b.logger.Error("MQTT subscribe failed", "topic", topic, "error", token.Error())
		}
	})
	return opts
}

// Run registers the URC handlers, connects client and publishes URCs until
// ctx is done.
func (b *Bridge) Run(ctx context.Context, client mqtt.Client) error {
	for _, prefix := range b.prefixes {
		if err := b.registry.RegisterPriority(prefix, b.relay(prefix)); err != nil {
			return fmt.Errorf("register %q: %w", prefix, err)
		}
		defer b.registry.Unregister(prefix)
	}

	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}
	defer client.Disconnect(500)

	for {
		select {
		case <-ctx.Done():
			return nil
		case urc := <-b.urcs:
			b.publish(client, b.topic+"/urc", urc)
		}
	}
}

// relay returns the handler for prefix. It runs on the consumer loop and
// never blocks; URCs are dropped while the publisher is behind.
func (b *Bridge) relay(prefix string) uat.Handler {
	return uat.HandlerFunc(func(args string) {
		select {
		case b.urcs <- URC{Prefix: prefix, Args: args, Time: time.Now().UTC()}:
		default:
			b.logger.Warn("URC dropped, publisher is behind", "prefix", prefix)
		}
	})
}

// handleCommand accepts either a JSON CommandRequest or a bare command
// line. Requests with an expected prefix are answered on <topic>/response.
func (b *Bridge) handleCommand(client mqtt.Client, payload []byte) {
	var req CommandRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		req = CommandRequest{Command: strings.TrimSpace(string(payload))}
	}
	if req.Command == "" {
		b.logger.Warn("MQTT command without 'command'")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if req.Expect == "" {
		if err := b.engine.Send(ctx, req.Command); err != nil {
			b.logger.Error("Failed to send command", "error", err, "command", req.Command)
		}
		return
	}

	type Response struct {
		ExchangeResponse
		Command string `json:"command"`
		Error   string `json:"error,omitempty"`
	}
	resp, err := exchange(ctx, b.engine, req)
	out := Response{ExchangeResponse: resp, Command: req.Command}
	if err != nil {
		out.Error = err.Error()
		b.logger.Warn("Exchange failed", "error", err, "command", req.Command)
	}
	b.publish(client, b.topic+"/response", out)
}

func (b *Bridge) publish(client mqtt.Client, topic string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		b.logger.Error("Failed to encode MQTT payload", "error", err)
		return
	}
	token := client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(5*time.Second) || token.Error() != nil {
		b.logger.Error("MQTT publish failed", "topic", topic, "error", token.Error())
	}
}
