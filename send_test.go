package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"i4.energy/across/uat/hal"
)

func TestRunSend(t *testing.T) {
	t.Run("Prints response lines", func(t *testing.T) {
		sim := hal.NewSim()
		sim.Responder = respondTo("AT+CSQ", "+CSQ: 20,99\r\n\r\nOK\r\n")
		engine := newIdleEngine(t, sim, 10)

		var out bytes.Buffer
		req := CommandRequest{Command: "AT+CSQ", Expect: "OK", TimeoutMS: 2000}
		if err := runSend(context.Background(), engine, req, false, &out); err != nil {
			t.Fatalf("runSend: %v", err)
		}
		if got := out.String(); got != "+CSQ: 20,99\nOK\n" {
			t.Errorf("unexpected output %q", got)
		}
	})

	t.Run("Modem error", func(t *testing.T) {
		sim := hal.NewSim()
		sim.Responder = respondTo("AT+CMGS=5", "+CMS ERROR: 500\r\n")
		engine := newIdleEngine(t, sim, 10)

		var out bytes.Buffer
		req := CommandRequest{Command: "AT+CMGS=5", Expect: "+CMS ERROR:", TimeoutMS: 2000}
		err := runSend(context.Background(), engine, req, false, &out)
		if err == nil || !strings.Contains(err.Error(), "modem reported an error") {
			t.Errorf("expected modem error, got %v", err)
		}
		if !strings.Contains(out.String(), "+CMS ERROR: 500") {
			t.Errorf("expected error line in output, got %q", out.String())
		}
	})

	t.Run("Truncated response", func(t *testing.T) {
		sim := hal.NewSim()
		sim.Responder = respondTo("ATI", "Manufacturer: Example\r\nOK\r\n")
		engine := newIdleEngine(t, sim, 10)

		var out bytes.Buffer
		req := CommandRequest{Command: "ATI", Expect: "OK", TimeoutMS: 2000, Capacity: 8}
		if err := runSend(context.Background(), engine, req, false, &out); err != nil {
			t.Fatalf("runSend: %v", err)
		}
		if got := out.String(); got != "Manufact\n(response truncated)\n" {
			t.Errorf("unexpected output %q", got)
		}
	})

	t.Run("No wait", func(t *testing.T) {
		sim := hal.NewSim()
		engine := newIdleEngine(t, sim, 10)

		var out bytes.Buffer
		req := CommandRequest{Command: "AT+CFUN=1,1"}
		if err := runSend(context.Background(), engine, req, true, &out); err != nil {
			t.Fatalf("runSend: %v", err)
		}
		if sim.Sent() != "AT+CFUN=1,1\r\n" {
			t.Errorf("unexpected transmission %q", sim.Sent())
		}
		if out.Len() != 0 {
			t.Errorf("expected no output, got %q", out.String())
		}
	})
}

func TestRunMonitor(t *testing.T) {
	sim := hal.NewSim()
	engine := newIdleEngine(t, sim, 10)

	var out syncBuffer
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runMonitor(ctx, engine, []string{"RING", "+CREG:"}, &out) }()

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(out.String(), "+CREG: 1") {
		if time.Now().After(deadline) {
			t.Fatalf("URC not printed, got %q", out.String())
		}
		// Registration races with the first injection; resend until seen.
		sim.InjectString("+CREG: 1\r\n")
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("runMonitor: %v", err)
	}
}
