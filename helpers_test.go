package main

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"i4.energy/across/uat/hal"
	"i4.energy/across/uat/uat"
)

var discard = slog.New(slog.DiscardHandler)

// newIdleEngine creates an engine on sim without a consumer loop.
func newIdleEngine(t *testing.T, sim *hal.Sim, maxHandlers int) *uat.Engine {
	t.Helper()
	config, err := uat.NewConfigBuilder().
		WithMaxHandlers(maxHandlers).
		WithLineTimeout(50 * time.Millisecond).
		WithLogger(discard).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	engine, err := uat.New(sim, config)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(sim.Wait)
	return engine
}

// newTestEngine creates an engine on sim and runs its consumer until the
// test ends.
func newTestEngine(t *testing.T, sim *hal.Sim) *uat.Engine {
	t.Helper()
	engine := newIdleEngine(t, sim, 10)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		engine.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})
	return engine
}

func respondTo(cmd, reply string) func(string) string {
	return func(sent string) string {
		if sent == cmd+"\r\n" {
			return reply
		}
		return ""
	}
}

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
