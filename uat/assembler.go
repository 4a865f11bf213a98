package uat

import (
	"bytes"
	"context"
	"time"
)

// lineAssembler turns the byte queue back into lines. It is owned by the
// consumer loop and is not safe for concurrent use.
type lineAssembler struct {
	queue *byteQueue
	term  []byte
	buf   []byte
	// discarding is set while skipping bytes up to the next terminator,
	// either the rest of an overlong line or the tail of a line whose
	// assembly timed out. It survives a timeout so the next call still
	// resyncs on a terminator.
	discarding bool
	// overlong reports the skipped line as ErrLineTooLong once resynced.
	overlong bool
}

func newLineAssembler(q *byteQueue, term string, capacity int) *lineAssembler {
	return &lineAssembler{
		queue: q,
		term:  []byte(term),
		buf:   make([]byte, 0, capacity),
	}
}

// receiveLine pulls bytes until the buffer ends with the terminator and
// returns the line, terminator included. The returned slice is only valid
// until the next call.
//
// The whole call is bounded by timeout; every single-byte wait uses what is
// left of it. On timeout the partial line is dropped and ErrTimeout is
// returned; the bytes of that line still to come are skipped through its
// terminator, so a line is never delivered without its head. A line that
// outgrows the buffer is discarded through its terminator and reported as
// ErrLineTooLong.
func (a *lineAssembler) receiveLine(ctx context.Context, timeout time.Duration) ([]byte, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if !a.discarding {
		a.buf = a.buf[:0]
	}
	for {
		b, err := a.queue.get(waitCtx)
		if err != nil {
			if len(a.buf) > 0 {
				a.discarding = true
				a.keepTail()
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, ErrTimeout
		}

		a.buf = append(a.buf, b)
		if bytes.HasSuffix(a.buf, a.term) {
			if !a.discarding {
				return a.buf, nil
			}
			a.discarding = false
			a.buf = a.buf[:0]
			if a.overlong {
				a.overlong = false
				return nil, ErrLineTooLong
			}
			continue
		}

		if len(a.buf) == cap(a.buf) {
			a.discarding = true
			a.overlong = true
			a.keepTail()
		}
	}
}

// keepTail keeps just enough of the buffer to spot a terminator that
// straddles the cut.
func (a *lineAssembler) keepTail() {
	keep := min(len(a.term)-1, len(a.buf))
	copy(a.buf, a.buf[len(a.buf)-keep:])
	a.buf = a.buf[:keep]
}
