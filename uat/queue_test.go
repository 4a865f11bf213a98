package uat

import (
	"context"
	"errors"
	"testing"
	"time"
)

func drainQueue(q *byteQueue) []byte {
	var out []byte
	for {
		b, ok := q.tryGet()
		if !ok {
			return out
		}
		out = append(out, b)
	}
}

func TestByteQueue(t *testing.T) {
	t.Run("Preserves order across wrap", func(t *testing.T) {
		q := newByteQueue(4)
		if n := q.put([]byte("abc")); n != 3 {
			t.Fatalf("expected 3 bytes stored, got %d", n)
		}
		if got := drainQueue(q); string(got) != "abc" {
			t.Fatalf("expected abc, got %q", got)
		}
		q.put([]byte("de"))
		q.put([]byte("fg"))
		if got := drainQueue(q); string(got) != "defg" {
			t.Errorf("expected defg, got %q", got)
		}
	})

	t.Run("Partial put when full", func(t *testing.T) {
		q := newByteQueue(4)
		if n := q.put([]byte("abcdef")); n != 4 {
			t.Errorf("expected 4 bytes stored, got %d", n)
		}
		if n := q.put([]byte("x")); n != 0 {
			t.Errorf("expected full queue to refuse, stored %d", n)
		}
		if got := drainQueue(q); string(got) != "abcd" {
			t.Errorf("expected abcd, got %q", got)
		}
	})

	t.Run("Get blocks until data", func(t *testing.T) {
		q := newByteQueue(4)
		go func() {
			time.Sleep(20 * time.Millisecond)
			q.put([]byte("z"))
		}()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		b, err := q.get(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if b != 'z' {
			t.Errorf("expected z, got %q", b)
		}
	})

	t.Run("Get honours context", func(t *testing.T) {
		q := newByteQueue(4)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		if _, err := q.get(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected DeadlineExceeded, got %v", err)
		}
	})

	t.Run("Wait does not consume", func(t *testing.T) {
		q := newByteQueue(4)
		go func() {
			time.Sleep(20 * time.Millisecond)
			q.put([]byte("ok"))
		}()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := q.wait(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := q.wait(ctx); err != nil {
			t.Fatalf("wait on a non-empty queue: %v", err)
		}
		if got := drainQueue(q); string(got) != "ok" {
			t.Errorf("expected ok, got %q", got)
		}

		short, cancelShort := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancelShort()
		if err := q.wait(short); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected DeadlineExceeded, got %v", err)
		}
	})

	t.Run("Reset empties", func(t *testing.T) {
		q := newByteQueue(4)
		q.put([]byte("ab"))
		q.reset()
		if q.len() != 0 {
			t.Errorf("expected empty queue, got %d", q.len())
		}
		q.put([]byte("c"))
		if got := drainQueue(q); string(got) != "c" {
			t.Errorf("expected c, got %q", got)
		}
	})
}
