package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c360/botkit/errors"
	"github.com/c360/botkit/event"
)

const (
	defaultHandshakeTimeout = 45 * time.Second
	writeTimeout            = 10 * time.Second
	// lastEventHeader carries the resume cursor on reconnect so the
	// platform replays missed frames.
	lastEventHeader = "X-Last-Event-Id"
)

// HandshakeError reports a websocket upgrade rejected by the platform.
// It is returned as a value, not panicked, so callers can decide whether
// a bad token (4xx) is terminal while transport hiccups are retried.
type HandshakeError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *HandshakeError) Error() string {
	return fmt.Sprintf("gateway handshake rejected: status %d: %s", e.StatusCode, e.Body)
}

// DialConfig carries everything needed to establish one connection.
type DialConfig struct {
	URL              string
	Token            string
	HandshakeTimeout time.Duration
	// LastEventID resumes the stream from a previous cursor when set.
	LastEventID string
}

// Conn wraps a websocket connection with a serialized write path.
// gorilla/websocket allows one concurrent writer; the mutex lets the
// heartbeat and the session share the socket safely.
type Conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	closed  sync.Once
}

// Connect dials the gateway and performs the upgrade handshake. An
// upgrade rejected by the server comes back as *HandshakeError; any
// other failure is a transient transport error.
func Connect(ctx context.Context, cfg DialConfig) (*Conn, error) {
	if cfg.URL == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "gateway", "Connect", "empty gateway URL")
	}

	timeout := cfg.HandshakeTimeout
	if timeout <= 0 {
		timeout = defaultHandshakeTimeout
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: timeout,
		Proxy:            http.ProxyFromEnvironment,
	}

	header := http.Header{}
	if cfg.Token != "" {
		header.Set("Authorization", "Bearer "+cfg.Token)
	}
	if cfg.LastEventID != "" {
		header.Set(lastEventHeader, cfg.LastEventID)
	}

	ws, resp, err := dialer.DialContext(ctx, cfg.URL, header)
	if err != nil {
		if err == websocket.ErrBadHandshake && resp != nil {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			_ = resp.Body.Close()
			return nil, &HandshakeError{StatusCode: resp.StatusCode, Body: string(body)}
		}
		return nil, errors.WrapTransient(err, "gateway", "Connect", "dial "+cfg.URL)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	return &Conn{ws: ws}, nil
}

// SetPongHandler installs the callback invoked with the pong payload.
// The handler runs inside ReadEnvelope, so a stalled read pump also
// stalls pong delivery, which is exactly what the watchdog measures.
func (c *Conn) SetPongHandler(fn func(payload string)) {
	c.ws.SetPongHandler(func(appData string) error {
		fn(appData)
		return nil
	})
}

// Ping sends a control ping carrying a nonce the pong echoes back.
func (c *Conn) Ping(nonce string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	err := c.ws.WriteControl(websocket.PingMessage, []byte(nonce), time.Now().Add(writeTimeout))
	if err != nil {
		return errors.WrapTransient(err, "gateway", "Ping", "write control frame")
	}
	return nil
}

// SendJSON writes one JSON frame under the write mutex.
func (c *Conn) SendJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return errors.WrapTransient(err, "gateway", "SendJSON", "set write deadline")
	}
	if err := c.ws.WriteJSON(v); err != nil {
		return errors.WrapTransient(err, "gateway", "SendJSON", "write frame")
	}
	return nil
}

// ReadEnvelope blocks for the next data frame and parses it. Control
// frames (ping/pong/close) are handled inside the read and do not
// surface here.
func (c *Conn) ReadEnvelope() (event.Envelope, error) {
	_, raw, err := c.ws.ReadMessage()
	if err != nil {
		return event.Envelope{}, errors.WrapTransient(err, "gateway", "ReadEnvelope", "read frame")
	}
	return event.Parse(raw)
}

// Close sends a close frame and tears down the socket. Safe to call
// more than once.
func (c *Conn) Close() error {
	var err error
	c.closed.Do(func() {
		deadline := time.Now().Add(writeTimeout)
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}
