package hal

import (
	"bytes"
	"sync"

	"i4.energy/across/uat/uat"
)

// TxBehavior selects how Sim completes transmissions.
type TxBehavior int

const (
	// TxImmediate signals completion right after the transmission starts.
	TxImmediate TxBehavior = iota
	// TxNever never signals completion.
	TxNever
)

// Sim is a simulated UART for tests. Received bytes are injected with Inject
// from the calling goroutine, which plays the interrupt context; DMA and
// per-byte reception behave like the hardware, including overruns.
type Sim struct {
	// TxBehavior controls completion of transmissions.
	TxBehavior TxBehavior
	// TxStartErr, when set, is returned by StartTransmit.
	TxStartErr error
	// TxErr, when set, fails every started transmission through
	// IRQ.TxError instead of completing it.
	TxErr error
	// RxStartErr, when set, is returned by StartReceiveDMA and StartReceiveIT.
	RxStartErr error
	// Responder, when set, is called with every completed transmission and
	// its reply, if not empty, is injected as received data.
	Responder func(sent string) string

	// irqMu serializes interrupt-context calls into the engine.
	irqMu sync.Mutex

	mu        sync.Mutex
	irq       uat.IRQ
	region    []byte
	pos       int
	dmaActive bool
	itArmed   bool
	overruns  int
	sent      bytes.Buffer
	txCount   int
	wg        sync.WaitGroup
}

// NewSim returns a Sim that completes transmissions immediately.
func NewSim() *Sim {
	return &Sim{}
}

var _ uat.Driver = (*Sim)(nil)

func (s *Sim) Attach(irq uat.IRQ) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.irq = irq
}

func (s *Sim) StartReceiveDMA(region []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RxStartErr != nil {
		return s.RxStartErr
	}
	s.region = region
	s.pos = 0
	s.dmaActive = true
	return nil
}

func (s *Sim) DMARemaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.region) - s.pos
}

func (s *Sim) StartReceiveIT() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RxStartErr != nil {
		return s.RxStartErr
	}
	s.itArmed = true
	return nil
}

func (s *Sim) StartTransmit(p []byte) error {
	s.mu.Lock()
	if s.TxStartErr != nil {
		s.mu.Unlock()
		return s.TxStartErr
	}
	s.sent.Write(p)
	s.txCount++
	sent := string(p)
	behavior, responder, irq, txErr := s.TxBehavior, s.Responder, s.irq, s.TxErr
	s.mu.Unlock()

	if behavior == TxNever {
		return nil
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.irqMu.Lock()
		if txErr != nil {
			irq.TxError(txErr)
			s.irqMu.Unlock()
			return
		}
		irq.TxComplete()
		s.irqMu.Unlock()
		if responder != nil {
			if reply := responder(sent); reply != "" {
				s.Inject([]byte(reply))
			}
		}
	}()
	return nil
}

func (s *Sim) AbortReceive() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dmaActive = false
	s.itArmed = false
	return nil
}

func (s *Sim) AbortTransmit() error {
	return nil
}

// Inject delivers data as if it arrived on the wire.
//
// In DMA mode the bytes are written into the circular region, wrapping at
// its end, and an idle-line event follows every chunk shorter than the
// region, since a full lap leaves the write offset unchanged. In per-byte mode each byte needs an armed receiver; bytes arriving
// while none is armed are counted as overruns and lost. It reports whether
// every idle-line drain succeeded.
func (s *Sim) Inject(data []byte) bool {
	s.irqMu.Lock()
	defer s.irqMu.Unlock()

	ok := true
	for len(data) > 0 {
		s.mu.Lock()
		switch {
		case s.dmaActive:
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
				ok = false
			}
		case s.itArmed:
			s.itArmed = false
			b, irq := data[0], s.irq
			data = data[1:]
			s.mu.Unlock()
			irq.RxByte(b)
		default:
			s.overruns += len(data)
			s.mu.Unlock()
			return false
		}
	}
	return ok
}

// InjectString is Inject for text.
func (s *Sim) InjectString(data string) bool {
	return s.Inject([]byte(data))
}

// Sent returns everything transmitted so far.
func (s *Sim) Sent() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent.String()
}

// Transmissions returns the number of started transmissions.
func (s *Sim) Transmissions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txCount
}

// Overruns returns the number of bytes lost in per-byte mode.
func (s *Sim) Overruns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.overruns
}

// Wait blocks until all completion goroutines have finished.
func (s *Sim) Wait() {
	s.wg.Wait()
}
