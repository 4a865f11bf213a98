package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"i4.energy/across/uat/hal"
	"i4.energy/across/uat/uat"
)

type fakeToken struct {
	err error
}

func (t fakeToken) Wait() bool                     { return true }
func (t fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t fakeToken) Error() error                   { return t.err }

func (t fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type message struct {
	topic   string
	payload []byte
}

// fakeClient records publications. Methods not overridden panic.
type fakeClient struct {
	mqtt.Client
	connectErr   error
	connected    chan struct{}
	published    chan message
	disconnected bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		connected: make(chan struct{}),
		published: make(chan message, 16),
	}
}

func (c *fakeClient) Connect() mqtt.Token {
	close(c.connected)
	return fakeToken{err: c.connectErr}
}

func (c *fakeClient) Disconnect(quiesce uint) {
	c.disconnected = true
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.published <- message{topic: topic, payload: payload.([]byte)}
	return fakeToken{}
}

func nextMessage(t *testing.T, c *fakeClient) message {
	t.Helper()
	select {
	case m := <-c.published:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for publication")
		return message{}
	}
}

func TestBridgeRelaysURCs(t *testing.T) {
	sim := hal.NewSim()
	engine := newTestEngine(t, sim)
	bridge := NewBridge(engine, "modem/", []string{"RING", "+CMTI:"}, discard)
	client := newFakeClient()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bridge.Run(ctx, client) }()
	<-client.connected

	sim.InjectString("+CMTI: \"SM\",3\r\n")
	m := nextMessage(t, client)
	assert.Equal(t, "modem/urc", m.topic)

	var urc URC
	require.NoError(t, json.Unmarshal(m.payload, &urc))
	assert.Equal(t, "+CMTI:", urc.Prefix)
	assert.Equal(t, `"SM",3`, urc.Args)
	assert.False(t, urc.Time.IsZero())

	cancel()
	require.NoError(t, <-done)
	assert.True(t, client.disconnected)

	// Handlers are removed once the bridge stops.
	require.ErrorIs(t, engine.Unregister("RING"), uat.ErrNotFound)
}

func TestBridgeConnectFailure(t *testing.T) {
	sim := hal.NewSim()
	engine := newTestEngine(t, sim)
	bridge := NewBridge(engine, "modem", []string{"RING"}, discard)
	client := newFakeClient()
	client.connectErr = errors.New("connection refused")

	err := bridge.Run(context.Background(), client)
	require.ErrorContains(t, err, "connection refused")
	require.ErrorIs(t, engine.Unregister("RING"), uat.ErrNotFound)
}

func TestBridgeRegisterFailure(t *testing.T) {
	sim := hal.NewSim()
	engine := newIdleEngine(t, sim, 1)
	bridge := NewBridge(engine, "modem", []string{"RING", "+CREG:"}, discard)
	client := newFakeClient()

	err := bridge.Run(context.Background(), client)
	require.ErrorIs(t, err, uat.ErrResource)
	require.ErrorIs(t, engine.Unregister("RING"), uat.ErrNotFound)
	select {
	case <-client.connected:
		t.Error("bridge must not connect when registration fails")
	default:
	}
}

func TestBridgeCommand(t *testing.T) {
	t.Run("Exchange is answered", func(t *testing.T) {
		sim := hal.NewSim()
		sim.Responder = respondTo("AT+CREG?", "+CREG: 0,1\r\nOK\r\n")
		bridge := NewBridge(newTestEngine(t, sim), "modem", nil, discard)
		client := newFakeClient()

		bridge.handleCommand(client, []byte(`{"command":"AT+CREG?","expect":"OK","timeout_ms":2000}`))

		m := nextMessage(t, client)
		assert.Equal(t, "modem/response", m.topic)
		var resp struct {
			Lines   []string `json:"lines"`
			Command string   `json:"command"`
			Error   string   `json:"error"`
		}
		require.NoError(t, json.Unmarshal(m.payload, &resp))
		assert.Equal(t, []string{"+CREG: 0,1", "OK"}, resp.Lines)
		assert.Equal(t, "AT+CREG?", resp.Command)
		assert.Empty(t, resp.Error)
	})

	t.Run("Exchange error is reported", func(t *testing.T) {
		sim := hal.NewSim()
		bridge := NewBridge(newTestEngine(t, sim), "modem", nil, discard)
		client := newFakeClient()

		bridge.handleCommand(client, []byte(`{"command":"AT","expect":"OK","timeout_ms":50}`))

		m := nextMessage(t, client)
		var resp struct {
			Error string `json:"error"`
		}
		require.NoError(t, json.Unmarshal(m.payload, &resp))
		assert.NotEmpty(t, resp.Error)
	})

	t.Run("Bare command is sent", func(t *testing.T) {
		sim := hal.NewSim()
		bridge := NewBridge(newTestEngine(t, sim), "modem", nil, discard)
		client := newFakeClient()

		bridge.handleCommand(client, []byte(" AT+CFUN=1\n"))

		assert.Equal(t, "AT+CFUN=1\r\n", sim.Sent())
		assert.Empty(t, client.published)
	})

	t.Run("Empty command is ignored", func(t *testing.T) {
		sim := hal.NewSim()
		bridge := NewBridge(newTestEngine(t, sim), "modem", nil, discard)
		client := newFakeClient()

		bridge.handleCommand(client, []byte(`{"expect":"OK"}`))

		assert.Empty(t, sim.Sent())
		assert.Empty(t, client.published)
	})
}
