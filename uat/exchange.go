package uat

import (
	"context"
	"errors"
	"fmt"
)

// Capture describes what an exchange wrote into the caller's buffer.
type Capture struct {
	// N is the number of bytes written to the output buffer.
	N int
	// Truncated reports that at least one line did not fit.
	Truncated bool
}

// exchangeState is the single pending exchange. All fields are guarded by
// the registry lock.
type exchangeState struct {
	armed     bool
	expected  string
	out       []byte
	pos       int
	truncated bool
	// shadowed is the application handler that the one-shot replaced, if
	// expected was already registered.
	shadowed Handler
	// signal is this exchange's one-shot. A handler taken by the consumer
	// before cleanup can only fire its own signal, which nobody waits on
	// any more.
	signal *exchangeSignal
}

func (x *exchangeState) capture(line []byte) {
	if !x.armed {
		return
	}
	n := copy(x.out[x.pos:], line)
	x.pos += n
	if n < len(line) {
		x.truncated = true
	}
}

// exchangeSignal is the one-shot handler of an exchange. It only signals
// the waiting caller; the line itself is captured before dispatch.
type exchangeSignal struct {
	done chan struct{}
}

func (s *exchangeSignal) OnLine(string) {
	select {
	case s.done <- struct{}{}:
	default:
	}
}

// SendReceive sends cmd and waits until a line starting with expected is
// dispatched. Every line received while waiting, including the matching
// one, is appended verbatim (terminator included) to out; lines that do not
// fit are truncated, never overflowed.
//
// The wait is bounded by ctx, or by ExchangeTimeout when ctx has no
// deadline. Only one exchange can be pending: a concurrent call returns
// ErrBusy without touching either buffer. The temporary handler is removed
// on every return path, and the bytes captured before a timeout stay in out.
func (e *Engine) SendReceive(ctx context.Context, cmd, expected string, out []byte) (Capture, error) {
	if e.closed.Load() {
		return Capture{}, ErrClosed
	}
	if cmd == "" || expected == "" || len(out) == 0 {
		return Capture{}, fmt.Errorf("%w: command, expected prefix and output buffer are required", ErrInvalidArg)
	}
	if len(expected) >= e.config.RxBufferSize {
		return Capture{}, fmt.Errorf("%w: expected prefix too long", ErrInvalidArg)
	}

	if _, ok := ctx.Deadline(); !ok && e.config.ExchangeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.ExchangeTimeout)
		defer cancel()
	}

	signal, err := e.arm(ctx, expected, out)
	if err != nil {
		return Capture{}, err
	}
	e.stats.exchanges.Inc()

	if err := e.Send(ctx, cmd); err != nil {
		capture := e.disarm()
		return capture, fmt.Errorf("%w: %w", ErrSendFail, err)
	}

	select {
	case <-signal.done:
		capture := e.disarm()
		e.logger.Debug("exchange completed", "command", cmd, "expected", expected, "bytes", capture.N)
		return capture, nil
	case <-ctx.Done():
		capture := e.disarm()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			e.stats.exchangeMisses.Inc()
			e.logger.Debug("exchange timed out", "command", cmd, "expected", expected, "bytes", capture.N)
			return capture, fmt.Errorf("%w: waiting for %q", ErrTimeout, expected)
		}
		return capture, ctx.Err()
	}
}

func (e *Engine) arm(ctx context.Context, expected string, out []byte) (*exchangeSignal, error) {
	if err := e.registry.lockContext(ctx); err != nil {
		return nil, err
	}
	defer e.registry.unlock()

	if e.exchange.armed {
		return nil, fmt.Errorf("%w: exchange in progress", ErrBusy)
	}

	signal := &exchangeSignal{done: make(chan struct{}, 1)}
	shadowed := e.registry.handlerLocked(expected)
	if err := e.registry.setLocked(expected, signal); err != nil {
		return nil, fmt.Errorf("%w: arm exchange: %w", ErrInternal, err)
	}
	clear(out)
	e.exchange = exchangeState{
		armed:    true,
		expected: expected,
		out:      out,
		shadowed: shadowed,
		signal:   signal,
	}
	return signal, nil
}

// disarm removes the one-shot (restoring a shadowed handler) and returns
// the exchange to idle. It waits for the registry lock without a bound so
// that cleanup always runs, and is a no-op when nothing is armed.
func (e *Engine) disarm() Capture {
	e.registry.lock()
	defer e.registry.unlock()

	x := &e.exchange
	if x.armed && e.registry.handlerLocked(x.expected) == Handler(x.signal) {
		if x.shadowed != nil {
			e.registry.setLocked(x.expected, x.shadowed)
		} else {
			e.registry.removeLocked(x.expected)
		}
	}
	c := Capture{N: x.pos, Truncated: x.truncated}
	*x = exchangeState{}
	return c
}
