package uat

import "go.uber.org/atomic"

// Stats is a snapshot of the engine's diagnostic counters.
type Stats struct {
	BytesRelayed   uint64 `json:"bytes_relayed"`
	BytesDropped   uint64 `json:"bytes_dropped"`
	Lines          uint64 `json:"lines"`
	Unmatched      uint64 `json:"unmatched"`
	LinesTooLong   uint64 `json:"lines_too_long"`
	Sent           uint64 `json:"sent"`
	SendFailures   uint64 `json:"send_failures"`
	Exchanges      uint64 `json:"exchanges"`
	ExchangeMisses uint64 `json:"exchange_timeouts"`
}

// counters are written from interrupt context as well as tasks.
type counters struct {
	bytesRelayed   atomic.Uint64
	bytesDropped   atomic.Uint64
	lines          atomic.Uint64
	unmatched      atomic.Uint64
	linesTooLong   atomic.Uint64
	sent           atomic.Uint64
	sendFailures   atomic.Uint64
	exchanges      atomic.Uint64
	exchangeMisses atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		BytesRelayed:   c.bytesRelayed.Load(),
		BytesDropped:   c.bytesDropped.Load(),
		Lines:          c.lines.Load(),
		Unmatched:      c.unmatched.Load(),
		LinesTooLong:   c.linesTooLong.Load(),
		Sent:           c.sent.Load(),
		SendFailures:   c.sendFailures.Load(),
		Exchanges:      c.exchanges.Load(),
		ExchangeMisses: c.exchangeMisses.Load(),
	}
}
