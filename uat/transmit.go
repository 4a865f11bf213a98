package uat

import (
	"context"
	"fmt"
	"time"
)

// Send transmits cmd followed by the terminator and waits for the driver to
// report completion.
//
// Returns ErrInvalidArg for an empty or oversized command, ErrBusy if the
// transmit lock is not free within LockTimeout, ErrSendFail if the driver
// refuses to start or reports a failed transmission, and ErrTimeout if
// completion is not signalled within TxTimeout. The transmit lock is
// released on every path.
func (e *Engine) Send(ctx context.Context, cmd string) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if cmd == "" {
		return fmt.Errorf("%w: empty command", ErrInvalidArg)
	}
	if len(cmd)+len(e.term) >= e.config.TxBufferSize {
		return fmt.Errorf("%w: command of %d bytes exceeds tx buffer", ErrInvalidArg, len(cmd))
	}

	lockCtx, cancel := context.WithTimeout(ctx, e.config.LockTimeout)
	defer cancel()
	if err := e.txLock.Acquire(lockCtx, 1); err != nil {
		return fmt.Errorf("%w: transmit lock: %w", ErrBusy, err)
	}
	defer e.txLock.Release(1)

	n := copy(e.txBuf, cmd)
	n += copy(e.txBuf[n:], e.term)

	// Drop a completion left over from a transfer that timed out.
	select {
	case <-e.txDone:
	default:
	}
	e.txErr.Store(nil)

	if err := e.driver.StartTransmit(e.txBuf[:n]); err != nil {
		e.stats.sendFailures.Inc()
		return fmt.Errorf("%w: %w", ErrSendFail, err)
	}

	timer := time.NewTimer(e.config.TxTimeout)
	defer timer.Stop()
	select {
	case <-e.txDone:
		if err := e.txErr.Load(); err != nil {
			e.stats.sendFailures.Inc()
			return fmt.Errorf("%w: %w", ErrSendFail, err)
		}
		e.stats.sent.Inc()
		e.logger.Debug("sent", "command", cmd)
		return nil
	case <-timer.C:
		e.stats.sendFailures.Inc()
		// The buffer is reused by the next Send.
		if err := e.driver.AbortTransmit(); err != nil {
			e.logger.Warn("abort transmit failed", "error", err)
		}
		return fmt.Errorf("%w: transmit of %q not completed in %v", ErrTimeout, cmd, e.config.TxTimeout)
	}
}
