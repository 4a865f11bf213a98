package hal

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.bug.st/serial"
)

//go:generate go tool mockgen -destination=mock_port.go -package=hal . Port

// Port is an established, bidirectional byte stream to a modem.
//
// Typical implementations are serial ports, WebSocket bridges to a remote
// UART, or in-memory pipes used for testing.
type Port interface {
	io.ReadWriteCloser
}

// Dialer opens a Port.
type Dialer interface {
	// Dial creates and returns a connected Port. It may block and should
	// respect cancellation of ctx.
	Dial(ctx context.Context) (Port, error)
}

var (
	// ErrNoPortName is returned by SerialDialer without a port name.
	ErrNoPortName = errors.New("uat: serial port name is required")
	// ErrNilContext is returned by dialers called with a nil context.
	ErrNilContext = errors.New("uat: context is nil")
)

// SerialDialer opens a local serial port with go.bug.st/serial.
type SerialDialer struct {
	PortName string
	BaudRate int
	// Mode overrides BaudRate and the 8N1 defaults when set.
	Mode *serial.Mode
}

// Dial opens the serial port.
func (d SerialDialer) Dial(ctx context.Context) (Port, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if d.PortName == "" {
		return nil, ErrNoPortName
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := d.Mode
	if mode == nil {
		baud := d.BaudRate
		if baud == 0 {
			baud = 115200
		}
		mode = &serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		}
	}

	port, err := serial.Open(d.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", d.PortName, err)
	}
	return port, nil
}
