package uat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.uber.org/atomic"
	"golang.org/x/sync/semaphore"
)

// Engine is a line-oriented AT command engine bound to one UART.
//
// Three kinds of goroutines touch an Engine: the driver's callback goroutine
// (through the IRQ methods), the single consumer running Run, and any number
// of callers of Send, SendReceive and the registration methods.
type Engine struct {
	driver Driver
	config Config
	logger *slog.Logger
	term   []byte

	queue     *byteQueue
	relay     *dmaRelay
	assembler *lineAssembler
	registry  *Registry
	stats     counters

	// transmit path
	txLock *semaphore.Weighted
	txBuf  []byte
	txDone chan struct{}
	txErr  atomic.Error

	// exchange is guarded by the registry lock.
	exchange exchangeState

	// generation changes on Reset so the consumer can drop a line that
	// straddles it.
	generation  atomic.Uint64
	loopRunning atomic.Bool
	closed      atomic.Bool
	done        chan struct{}
}

// New creates an Engine for driver and starts reception.
//
// Returns ErrNoDriver without a driver, ErrInvalidArg for an invalid config
// and ErrInitFail if the driver cannot start receiving.
func New(driver Driver, config Config) (*Engine, error) {
	if driver == nil {
		return nil, ErrNoDriver
	}
	config.setDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		driver: driver,
		config: config,
		logger: config.Logger.With("component", "uat"),
		term:   []byte(config.Terminator),
		txLock: semaphore.NewWeighted(1),
		txBuf:  make([]byte, config.TxBufferSize),
		txDone: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	e.queue = newByteQueue(config.RxBufferSize)
	e.relay = newDMARelay(config.DMASize, e.queue, &e.stats)
	e.assembler = newLineAssembler(e.queue, config.Terminator, config.RxBufferSize)
	e.registry = NewRegistry(config.MaxHandlers, config.RxBufferSize)

	driver.Attach(e)
	if err := e.startReceive(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInitFail, err)
	}
	e.logger.Debug("engine started", "mode", config.Mode, "rx", config.RxBufferSize, "dma", config.DMASize)
	return e, nil
}

func (e *Engine) startReceive() error {
	if e.config.Mode == ModeInterrupt {
		return e.driver.StartReceiveIT()
	}
	return e.driver.StartReceiveDMA(e.relay.region)
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Registry returns the command table used for dispatch.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Register is shorthand for e.Registry().Register.
func (e *Engine) Register(prefix string, h Handler) error {
	return e.registry.Register(prefix, h)
}

// RegisterPriority is shorthand for e.Registry().RegisterPriority.
func (e *Engine) RegisterPriority(prefix string, h Handler) error {
	return e.registry.RegisterPriority(prefix, h)
}

// Unregister is shorthand for e.Registry().Unregister.
func (e *Engine) Unregister(prefix string) error {
	return e.registry.Unregister(prefix)
}

// Stats returns a snapshot of the diagnostic counters.
func (e *Engine) Stats() Stats {
	return e.stats.snapshot()
}

// IdleLine implements IRQ. It drains the DMA region up to the driver's
// current write offset.
func (e *Engine) IdleLine() bool {
	if e.closed.Load() || e.config.Mode != ModeDMA {
		return false
	}
	return e.relay.drain(len(e.relay.region) - e.driver.DMARemaining())
}

// RxByte implements IRQ. It queues b and re-arms single-byte reception.
func (e *Engine) RxByte(b byte) {
	one := [1]byte{b}
	if e.queue.put(one[:]) == 1 {
		e.stats.bytesRelayed.Inc()
	} else {
		e.stats.bytesDropped.Inc()
	}
	if e.closed.Load() {
		return
	}
	// A failed re-arm stops reception until Reset.
	_ = e.driver.StartReceiveIT()
}

// TxComplete implements IRQ.
func (e *Engine) TxComplete() {
	select {
	case e.txDone <- struct{}{}:
	default:
	}
}

// TxError implements IRQ. The waiting Send fails with ErrSendFail.
func (e *Engine) TxError(err error) {
	e.txErr.Store(err)
	e.TxComplete()
}

// Run is the consumer loop: it assembles lines from the byte queue and
// dispatches each to at most one handler, capturing it first for an armed
// exchange. Exactly one Run may be active; it returns when ctx is done or
// the engine is closed.
func (e *Engine) Run(ctx context.Context) error {
	if !e.loopRunning.CompareAndSwap(false, true) {
		return ErrLoopRunning
	}
	defer e.loopRunning.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-e.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	e.logger.Info("consumer loop started")
	for {
		// The line budget starts with the first byte of a line, not while
		// the line is idle.
		if err := e.queue.wait(ctx); err != nil {
			return e.stopLoop(err)
		}
		gen := e.generation.Load()
		line, err := e.assembler.receiveLine(ctx, e.config.LineTimeout)
		switch {
		case err == nil:
		case errors.Is(err, ErrTimeout):
			e.logger.Debug("line timed out, skipping to next terminator")
			continue
		case errors.Is(err, ErrLineTooLong):
			e.stats.linesTooLong.Inc()
			e.logger.Warn("discarded overlong line", "limit", e.config.RxBufferSize)
			continue
		default:
			return e.stopLoop(err)
		}

		if gen != e.generation.Load() {
			e.logger.Debug("dropped line spanning reset")
			continue
		}
		e.processLine(line)
	}
}

func (e *Engine) stopLoop(err error) error {
	if e.closed.Load() {
		return ErrClosed
	}
	e.logger.Info("consumer loop stopped", "error", err)
	return err
}

// processLine captures raw for an armed exchange and dispatches it without
// its terminator.
func (e *Engine) processLine(raw []byte) bool {
	e.stats.lines.Inc()
	line := bytes.TrimSuffix(raw, e.term)
	matched := e.registry.dispatch(line, func() {
		e.exchange.capture(raw)
	})
	if !matched {
		e.stats.unmatched.Inc()
		e.logger.Debug("unmatched line", "line", string(line))
	}
	return matched
}

// Reset aborts transfers in flight, empties the byte queue and restarts
// reception. Registered handlers are kept.
func (e *Engine) Reset() error {
	if e.closed.Load() {
		return ErrClosed
	}
	if err := e.driver.AbortReceive(); err != nil {
		e.logger.Warn("abort receive failed", "error", err)
	}
	if err := e.driver.AbortTransmit(); err != nil {
		e.logger.Warn("abort transmit failed", "error", err)
	}
	e.generation.Inc()
	e.queue.reset()
	e.relay.rewind()

	if err := e.startReceive(); err != nil {
		return fmt.Errorf("%w: restart reception: %w", ErrInitFail, err)
	}
	e.logger.Info("engine reset")
	return nil
}

// Close stops reception and transmission and makes Run return. The driver
// itself is left to the caller.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return ErrAlreadyClosed
	}
	close(e.done)
	return errors.Join(e.driver.AbortReceive(), e.driver.AbortTransmit())
}
