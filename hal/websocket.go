package hal

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrConnectionClosed is returned when reading from a closed WebSocket
// bridge.
var ErrConnectionClosed = errors.New("websocket connection closed")

// WebSocketDialer connects to a UART exposed over a WebSocket, one binary
// message per chunk in each direction.
type WebSocketDialer struct {
	URL           string
	Username      string
	Password      string
	SkipTLSVerify bool
}

// Dial opens the WebSocket connection with optional HTTP Basic auth.
func (d WebSocketDialer) Dial(ctx context.Context) (Port, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	u, err := url.Parse(d.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: d.SkipTLSVerify}
	}

	headers := http.Header{}
	if d.Username != "" && d.Password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(d.Username + ":" + d.Password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	conn, resp, err := dialer.DialContext(ctx, d.URL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}
	return &wsPort{conn: conn}, nil
}

// wsPort adapts a message-oriented WebSocket to a byte stream.
type wsPort struct {
	conn *websocket.Conn

	// Reads happen on the reader goroutine only.
	buf       []byte
	bufOffset int
	closed    bool

	writeMu sync.Mutex
}

func (w *wsPort) Read(p []byte) (int, error) {
	if w.closed {
		return 0, ErrConnectionClosed
	}
	if w.bufOffset < len(w.buf) {
		n := copy(p, w.buf[w.bufOffset:])
		w.bufOffset += n
		return n, nil
	}

	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.closed = true
			return 0, fmt.Errorf("%w: %w", ErrConnectionClosed, err)
		}
		// Text frames are control chatter of the bridge, not UART data.
		if messageType != websocket.BinaryMessage {
			continue
		}
		w.buf = data
		n := copy(p, w.buf)
		w.bufOffset = n
		return n, nil
	}
}

func (w *wsPort) Write(p []byte) (int, error) {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *wsPort) Close() error {
	return w.conn.Close()
}
