package hal

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"i4.energy/across/uat/uat"
)

// ErrTxBusy is returned by StartTransmit while a transmission is in flight.
var ErrTxBusy = errors.New("transmitter busy")

// ErrPortClosed is returned once the underlying port has been closed.
var ErrPortClosed = errors.New("port closed")

const readChunk = 256

// Stream emulates a UART on top of a host byte stream (a serial port, a
// WebSocket bridge, a pipe). A reader goroutine plays the interrupt
// context: each completed Read is treated as a burst followed by an idle
// line. Writes run on their own goroutine and report completion the way a
// DMA transmit would.
type Stream struct {
	port   Port
	logger *slog.Logger

	irqMu sync.Mutex

	mu        sync.Mutex
	irq       uat.IRQ
	region    []byte
	pos       int
	dmaActive bool
	itArmed   bool
	txBusy    bool
	txGen     uint64
	dropped   int
	closed    bool
	done      chan struct{}
}

// NewStream starts reading port. Nothing is delivered until the engine
// starts reception.
func NewStream(port Port, logger *slog.Logger) *Stream {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Stream{
		port:   port,
		logger: logger.With("component", "hal"),
		done:   make(chan struct{}),
	}
	go s.readLoop()
	return s
}

var _ uat.Driver = (*Stream)(nil)

func (s *Stream) Attach(irq uat.IRQ) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.irq = irq
}

func (s *Stream) StartReceiveDMA(region []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrPortClosed
	}
	s.region, s.pos, s.dmaActive = region, 0, true
	return nil
}

func (s *Stream) DMARemaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.region) - s.pos
}

func (s *Stream) StartReceiveIT() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrPortClosed
	}
	s.itArmed = true
	return nil
}

func (s *Stream) StartTransmit(p []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrPortClosed
	}
	if s.txBusy {
		s.mu.Unlock()
		return ErrTxBusy
	}
	s.txBusy = true
	gen := s.txGen
	buf := append([]byte(nil), p...)
	s.mu.Unlock()

	go func() {
		_, err := s.port.Write(buf)

		s.mu.Lock()
		s.txBusy = false
		aborted := gen != s.txGen
		irq := s.irq
		s.mu.Unlock()

		if err != nil {
			s.logger.Error("Serial port write error", "error", err)
		}
		if aborted {
			return
		}
		s.irqMu.Lock()
		if err != nil {
			irq.TxError(err)
		} else {
			irq.TxComplete()
		}
		s.irqMu.Unlock()
	}()
	return nil
}

func (s *Stream) AbortReceive() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dmaActive, s.itArmed = false, false
	return nil
}

// AbortTransmit suppresses the completion of the write in flight. The host
// write itself cannot be interrupted.
func (s *Stream) AbortTransmit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txGen++
	return nil
}

// Dropped returns the number of received bytes discarded because reception
// was stopped or no per-byte receiver was armed.
func (s *Stream) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close closes the port and stops the reader.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrPortClosed
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()
	return s.port.Close()
}

func (s *Stream) readLoop() {
	buf := make([]byte, readChunk)
	s.logger.Debug("Starting serial read goroutine")
	for {
		n, err := s.port.Read(buf)
		if n > 0 {
			s.deliver(buf[:n])
		}
		if err == nil {
			continue
		}
		select {
		case <-s.done:
			return
		default:
		}
		if errors.Is(err, io.EOF) || errors.Is(err, ErrConnectionClosed) {
			s.logger.Info("Port closed by peer", "error", err)
			return
		}
		s.logger.Error("Serial port read error", "error", err)
		time.Sleep(500 * time.Millisecond)
	}
}

// deliver hands one read burst to the engine.
func (s *Stream) deliver(data []byte) {
	s.irqMu.Lock()
	defer s.irqMu.Unlock()

	for len(data) > 0 {
		s.mu.Lock()
		switch {
		case s.dmaActive && len(s.region) > 1:
			n := min(len(data), len(s.region)-1)
			for _, b := range data[:n] {
				s.region[s.pos] = b
				s.pos++
				if s.pos == len(s.region) {
					s.pos = 0
				}
			}
			data = data[n:]
			irq := s.irq
			s.mu.Unlock()
			if !irq.IdleLine() {
				s.logger.Warn("Receive queue overflow")
			}
		case s.itArmed:
			s.itArmed = false
			b, irq := data[0], s.irq
			data = data[1:]
			s.mu.Unlock()
			irq.RxByte(b)
		default:
			s.dropped += len(data)
			s.mu.Unlock()
			return
		}
	}
}
