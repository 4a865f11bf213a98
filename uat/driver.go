package uat

//go:generate go tool mockgen -destination=mock_driver.go -package=uat . Driver

// Driver is the hardware side of a UART as seen by the engine.
//
// Implementations deliver events by calling the IRQ installed with Attach.
// The goroutine making those calls plays the role of interrupt context: it
// is the only producer of received bytes and must never be a caller task.
type Driver interface {
	// Attach installs the interrupt entry points. It is called once by New
	// before any reception is started.
	Attach(irq IRQ)

	// StartReceiveDMA starts circular reception into region. The hardware
	// keeps writing at the position reported by DMARemaining, wrapping at
	// the end of region, and signals IRQ.IdleLine when the line goes quiet.
	StartReceiveDMA(region []byte) error

	// DMARemaining returns the circular transfer down-counter. The current
	// write offset into the region is len(region) - DMARemaining().
	DMARemaining() int

	// StartReceiveIT arms reception of exactly one byte, reported through
	// IRQ.RxByte.
	StartReceiveIT() error

	// StartTransmit begins an asynchronous transmission of p. Completion is
	// reported through IRQ.TxComplete. p must not be modified until then.
	StartTransmit(p []byte) error

	AbortReceive() error
	AbortTransmit() error
}

// IRQ holds the interrupt entry points of an Engine. None of them block.
type IRQ interface {
	// IdleLine drains newly received DMA bytes into the byte queue. It
	// returns false when some of them could not be queued.
	IdleLine() bool
	// RxByte queues a single received byte and re-arms reception.
	RxByte(b byte)
	// TxComplete signals the end of the current transmission.
	TxComplete()
	// TxError signals that the current transmission failed after it was
	// started.
	TxError(err error)
}
