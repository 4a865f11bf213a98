package hal

import (
	"bytes"
	"io"
	"sync"
)

// TestPort is an in-memory Port for tests. Reads block until data is queued
// with SendData, like a real serial port, and end with io.EOF after Close.
type TestPort struct {
	// Responder, when set, is called with every write and its reply, if not
	// empty, is queued for reading.
	Responder func(written string) string
	// WriteErr, when set, fails every write.
	WriteErr error

	mu       sync.Mutex
	readChan chan []byte
	pending  []byte
	written  bytes.Buffer
	closed   bool
}

// NewTestPort creates an open TestPort.
func NewTestPort() *TestPort {
	return &TestPort{
		readChan: make(chan []byte, 16),
	}
}

func (t *TestPort) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0, ErrPortClosed
	}
	if t.WriteErr != nil {
		t.mu.Unlock()
		return 0, t.WriteErr
	}
	t.written.Write(p)
	responder := t.Responder
	t.mu.Unlock()

	if responder != nil {
		if reply := responder(string(p)); reply != "" {
			t.SendData(reply)
		}
	}
	return len(p), nil
}

// Read is called from a single reader goroutine.
func (t *TestPort) Read(p []byte) (n int, err error) {
	if len(t.pending) == 0 {
		data, ok := <-t.readChan
		if !ok {
			return 0, io.EOF
		}
		t.pending = data
	}
	n = copy(p, t.pending)
	t.pending = t.pending[n:]
	return n, nil
}

func (t *TestPort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.readChan)
	return nil
}

// SendData queues data to be read from the port, as if the modem sent it.
func (t *TestPort) SendData(data string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.readChan <- []byte(data)
	}
}

// Written returns everything written to the port so far.
func (t *TestPort) Written() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.written.String()
}
