package uat

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLineAssembler(t *testing.T) {
	t.Run("Splits on terminator", func(t *testing.T) {
		q := newByteQueue(64)
		a := newLineAssembler(q, "\r\n", 64)
		q.put([]byte("AT\r\nOK\r\n"))

		for _, want := range []string{"AT\r\n", "OK\r\n"} {
			line, err := a.receiveLine(context.Background(), time.Second)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(line) != want {
				t.Errorf("expected %q, got %q", want, line)
			}
		}
	})

	t.Run("Terminator split across arrivals", func(t *testing.T) {
		q := newByteQueue(64)
		a := newLineAssembler(q, "\r\n", 64)
		q.put([]byte("+CSQ: 20,99\r"))
		go func() {
			time.Sleep(20 * time.Millisecond)
			q.put([]byte("\n"))
		}()

		line, err := a.receiveLine(context.Background(), time.Second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(line) != "+CSQ: 20,99\r\n" {
			t.Errorf("unexpected line %q", line)
		}
	})

	t.Run("Custom terminator", func(t *testing.T) {
		q := newByteQueue(64)
		a := newLineAssembler(q, "\n", 64)
		q.put([]byte("OK\n"))
		line, err := a.receiveLine(context.Background(), time.Second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(line) != "OK\n" {
			t.Errorf("unexpected line %q", line)
		}
	})

	t.Run("Timeout drops the rest of a partial line", func(t *testing.T) {
		q := newByteQueue(64)
		a := newLineAssembler(q, "\r\n", 64)
		q.put([]byte("+CMGR: \"REC UNREAD\",BO"))

		if _, err := a.receiveLine(context.Background(), 30*time.Millisecond); !errors.Is(err, ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}

		q.put([]byte("OK\r\n+CMTI: \"SM\",1\r\n"))
		line, err := a.receiveLine(context.Background(), time.Second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(line) != "+CMTI: \"SM\",1\r\n" {
			t.Errorf("expected the tail of the timed-out line to be skipped, got %q", line)
		}
	})

	t.Run("Terminator straddling a timeout", func(t *testing.T) {
		q := newByteQueue(64)
		a := newLineAssembler(q, "\r\n", 64)
		q.put([]byte("PARTIAL\r"))

		if _, err := a.receiveLine(context.Background(), 30*time.Millisecond); !errors.Is(err, ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}

		q.put([]byte("\nOK\r\n"))
		line, err := a.receiveLine(context.Background(), time.Second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(line) != "OK\r\n" {
			t.Errorf("unexpected line %q", line)
		}
	})

	t.Run("Idle timeout keeps line boundary", func(t *testing.T) {
		q := newByteQueue(64)
		a := newLineAssembler(q, "\r\n", 64)

		if _, err := a.receiveLine(context.Background(), 20*time.Millisecond); !errors.Is(err, ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}

		q.put([]byte("OK\r\n"))
		line, err := a.receiveLine(context.Background(), time.Second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(line) != "OK\r\n" {
			t.Errorf("unexpected line %q", line)
		}
	})

	t.Run("Timeout covers the whole line", func(t *testing.T) {
		q := newByteQueue(64)
		a := newLineAssembler(q, "\r\n", 64)
		stop := make(chan struct{})
		defer close(stop)
		go func() {
			ticker := time.NewTicker(10 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-stop:
					return
				case <-ticker.C:
					q.put([]byte("x"))
				}
			}
		}()

		start := time.Now()
		_, err := a.receiveLine(context.Background(), 100*time.Millisecond)
		if !errors.Is(err, ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
		if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
			t.Errorf("a trickle of bytes extended the timeout to %v", elapsed)
		}
	})

	t.Run("Parent context cancellation", func(t *testing.T) {
		q := newByteQueue(64)
		a := newLineAssembler(q, "\r\n", 64)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := a.receiveLine(ctx, time.Second); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("Line filling the buffer exactly", func(t *testing.T) {
		q := newByteQueue(64)
		a := newLineAssembler(q, "\r\n", 8)
		q.put([]byte("012345\r\n"))
		line, err := a.receiveLine(context.Background(), time.Second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(line) != "012345\r\n" {
			t.Errorf("unexpected line %q", line)
		}
	})

	t.Run("Overlong line resyncs on next terminator", func(t *testing.T) {
		q := newByteQueue(64)
		a := newLineAssembler(q, "\r\n", 8)
		q.put([]byte("0123456789ABCDEF\r\nOK\r\n"))

		if _, err := a.receiveLine(context.Background(), time.Second); !errors.Is(err, ErrLineTooLong) {
			t.Fatalf("expected ErrLineTooLong, got %v", err)
		}
		line, err := a.receiveLine(context.Background(), time.Second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(line) != "OK\r\n" {
			t.Errorf("expected OK after resync, got %q", line)
		}
	})

	t.Run("Terminator straddling the cut", func(t *testing.T) {
		q := newByteQueue(64)
		a := newLineAssembler(q, "\r\n", 8)
		q.put([]byte("0123456\r\nOK\r\n"))

		if _, err := a.receiveLine(context.Background(), time.Second); !errors.Is(err, ErrLineTooLong) {
			t.Fatalf("expected ErrLineTooLong, got %v", err)
		}
		line, err := a.receiveLine(context.Background(), time.Second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(line) != "OK\r\n" {
			t.Errorf("expected OK after resync, got %q", line)
		}
	})

	t.Run("Discarding survives a timeout", func(t *testing.T) {
		q := newByteQueue(64)
		a := newLineAssembler(q, "\r\n", 8)
		q.put([]byte("0123456789"))

		if _, err := a.receiveLine(context.Background(), 30*time.Millisecond); !errors.Is(err, ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
		q.put([]byte("tail\r\nOK\r\n"))
		if _, err := a.receiveLine(context.Background(), time.Second); !errors.Is(err, ErrLineTooLong) {
			t.Fatalf("expected the rest of the overlong line to be discarded, got %v", err)
		}
		line, err := a.receiveLine(context.Background(), time.Second)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(line) != "OK\r\n" {
			t.Errorf("unexpected line %q", line)
		}
	})
}
