package uat

import (
	"fmt"
	"log/slog"
	"time"
)

// Mode selects how received bytes reach the byte queue.
type Mode int

const (
	// ModeDMA drains a circular DMA region on every idle-line event.
	ModeDMA Mode = iota
	// ModeInterrupt receives one byte per interrupt and re-arms.
	ModeInterrupt
)

func (m Mode) String() string {
	switch m {
	case ModeDMA:
		return "dma"
	case ModeInterrupt:
		return "interrupt"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts "dma" or "interrupt" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "dma", "":
		return ModeDMA, nil
	case "interrupt", "it":
		return ModeInterrupt, nil
	}
	return ModeDMA, fmt.Errorf("%w: unknown reception mode %q", ErrInvalidArg, s)
}

// Config holds the sizes, timeouts and collaborators of an Engine.
// Zero values are replaced by defaults.
type Config struct {
	// RxBufferSize bounds both the byte queue and a single assembled line.
	RxBufferSize int
	// TxBufferSize bounds a formatted command including its terminator.
	TxBufferSize int
	// MaxHandlers is the capacity of the command table.
	MaxHandlers int
	// Terminator ends every received line and is appended to every command.
	Terminator string
	// TxTimeout bounds the wait for transmit completion.
	TxTimeout time.Duration
	// LockTimeout bounds the wait for the transmit lock.
	LockTimeout time.Duration
	// LineTimeout is the budget of one line assembly in the consumer loop.
	LineTimeout time.Duration
	// ExchangeTimeout applies to SendReceive calls whose context has no
	// deadline.
	ExchangeTimeout time.Duration
	// DMASize is the length of the circular DMA region.
	DMASize int
	// Mode selects DMA or per-byte interrupt reception.
	Mode Mode
	// Logger receives task-side diagnostics. Interrupt-side code never logs.
	Logger *slog.Logger
}

func (c *Config) setDefaults() {
	if c.RxBufferSize == 0 {
		c.RxBufferSize = 512
	}
	if c.TxBufferSize == 0 {
		c.TxBufferSize = 512
	}
	if c.MaxHandlers == 0 {
		c.MaxHandlers = 10
	}
	if c.Terminator == "" {
		c.Terminator = "\r\n"
	}
	if c.TxTimeout == 0 {
		c.TxTimeout = time.Second
	}
	if c.LockTimeout == 0 {
		c.LockTimeout = 500 * time.Millisecond
	}
	if c.LineTimeout == 0 {
		c.LineTimeout = time.Second
	}
	if c.ExchangeTimeout == 0 {
		c.ExchangeTimeout = 5 * time.Second
	}
	if c.DMASize == 0 {
		c.DMASize = 512
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

func (c *Config) validate() error {
	switch {
	case c.RxBufferSize < 2:
		return fmt.Errorf("%w: rx buffer size %d", ErrInvalidArg, c.RxBufferSize)
	case c.TxBufferSize <= len(c.Terminator):
		return fmt.Errorf("%w: tx buffer size %d", ErrInvalidArg, c.TxBufferSize)
	case c.MaxHandlers < 1:
		return fmt.Errorf("%w: max handlers %d", ErrInvalidArg, c.MaxHandlers)
	case len(c.Terminator) >= c.RxBufferSize:
		return fmt.Errorf("%w: terminator longer than rx buffer", ErrInvalidArg)
	case c.DMASize < 2:
		return fmt.Errorf("%w: dma size %d", ErrInvalidArg, c.DMASize)
	case c.Mode != ModeDMA && c.Mode != ModeInterrupt:
		return fmt.Errorf("%w: %v", ErrInvalidArg, c.Mode)
	case c.TxTimeout < 0, c.LockTimeout < 0, c.LineTimeout < 0, c.ExchangeTimeout < 0:
		return fmt.Errorf("%w: negative timeout", ErrInvalidArg)
	}
	return nil
}

// ConfigBuilder assembles a Config fluently.
type ConfigBuilder struct {
	config Config
}

// NewConfigBuilder returns a builder whose Build yields the defaults.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

func (b *ConfigBuilder) WithRxBufferSize(n int) *ConfigBuilder {
	b.config.RxBufferSize = n
	return b
}

func (b *ConfigBuilder) WithTxBufferSize(n int) *ConfigBuilder {
	b.config.TxBufferSize = n
	return b
}

func (b *ConfigBuilder) WithMaxHandlers(n int) *ConfigBuilder {
	b.config.MaxHandlers = n
	return b
}

func (b *ConfigBuilder) WithTerminator(term string) *ConfigBuilder {
	b.config.Terminator = term
	return b
}

func (b *ConfigBuilder) WithTxTimeout(d time.Duration) *ConfigBuilder {
	b.config.TxTimeout = d
	return b
}

func (b *ConfigBuilder) WithLockTimeout(d time.Duration) *ConfigBuilder {
	b.config.LockTimeout = d
	return b
}

func (b *ConfigBuilder) WithLineTimeout(d time.Duration) *ConfigBuilder {
	b.config.LineTimeout = d
	return b
}

func (b *ConfigBuilder) WithExchangeTimeout(d time.Duration) *ConfigBuilder {
	b.config.ExchangeTimeout = d
	return b
}

func (b *ConfigBuilder) WithDMASize(n int) *ConfigBuilder {
	b.config.DMASize = n
	return b
}

func (b *ConfigBuilder) WithMode(m Mode) *ConfigBuilder {
	b.config.Mode = m
	return b
}

func (b *ConfigBuilder) WithLogger(l *slog.Logger) *ConfigBuilder {
	b.config.Logger = l
	return b
}

// Build applies defaults and validates the result.
func (b *ConfigBuilder) Build() (Config, error) {
	c := b.config
	c.setDefaults()
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
