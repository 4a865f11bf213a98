package uat

import (
	"context"
	"sync"
)

// byteQueue is a bounded byte ring with non-blocking producers and a single
// blocking consumer. Producers run in interrupt context and never wait; a
// put that does not fit stores what it can and reports the count.
type byteQueue struct {
	mu         sync.Mutex
	buf        []byte
	head, size int
	// notify is a coalesced readiness signal; a token means "re-check".
	notify chan struct{}
}

func newByteQueue(capacity int) *byteQueue {
	return &byteQueue{
		buf:    make([]byte, capacity),
		notify: make(chan struct{}, 1),
	}
}

// put appends as much of p as fits and returns the number of bytes stored.
func (q *byteQueue) put(p []byte) int {
	q.mu.Lock()
	n := min(len(p), len(q.buf)-q.size)
	tail := (q.head + q.size) % len(q.buf)
	for i := 0; i < n; i++ {
		q.buf[tail] = p[i]
		tail++
		if tail == len(q.buf) {
			tail = 0
		}
	}
	q.size += n
	q.mu.Unlock()

	if n > 0 {
		select {
		case q.notify <- struct{}{}:
		default:
		}
	}
	return n
}

func (q *byteQueue) tryGet() (byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.size == 0 {
		return 0, false
	}
	b := q.buf[q.head]
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return b, true
}

// get blocks until a byte is available or ctx is done.
func (q *byteQueue) get(ctx context.Context) (byte, error) {
	for {
		if b, ok := q.tryGet(); ok {
			return b, nil
		}
		select {
		case <-q.notify:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// wait blocks until the queue holds at least one byte or ctx is done. It
// does not consume anything.
func (q *byteQueue) wait(ctx context.Context) error {
	for q.len() == 0 {
		select {
		case <-q.notify:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (q *byteQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

func (q *byteQueue) reset() {
	q.mu.Lock()
	q.head, q.size = 0, 0
	q.mu.Unlock()
	select {
	case <-q.notify:
	default:
	}
}
