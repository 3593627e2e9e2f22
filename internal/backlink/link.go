// Package backlink maintains the WebSocket link to the orchestration core
// and forwards translated payloads over it.
package backlink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/obgate-labs/obgate/internal/domain"
	"github.com/obgate-labs/obgate/internal/ports"
)

// MaxPayloadBytes is the hard ceiling for one outbound payload. The core's
// WebSocket server caps frames at 100 MiB; 95 MiB leaves headroom.
const MaxPayloadBytes = 95 << 20

// largeWarnBytes triggers a diagnostic for payloads that are legal but big
// enough to cause noticeable transfer latency.
const largeWarnBytes = 1 << 20

// ErrNotConnected is returned by Send while the link has no live connection.
var ErrNotConnected = errors.New("obgate: core link not connected")

// MessageFunc consumes frames the core pushes down the link.
type MessageFunc func(ctx context.Context, payload []byte)

// Link is the client side of the back protocol. Run dials and re-dials the
// core with exponential backoff; Send forwards payloads below the size
// ceiling over the current connection.
type Link struct {
	url       string
	onMessage MessageFunc
	logger    ports.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected atomic.Bool

	// writeMu serializes writers; the connection accepts one logical
	// write at a time.
	writeMu sync.Mutex
}

// NewLink creates a link to the core at url (ws://host:port/path).
// onMessage may be nil; pushed frames are then dropped with a diagnostic.
func NewLink(url string, onMessage MessageFunc, logger ports.Logger) *Link {
	return &Link{url: url, onMessage: onMessage, logger: logger}
}

// Connected implements ports.BackLink.
func (l *Link) Connected() bool {
	return l.connected.Load()
}

// Send implements ports.BackLink. Oversized payloads are rejected before
// any bytes are written, never fragmented or partially sent.
func (l *Link) Send(ctx context.Context, payload []byte) error {
	if len(payload) > MaxPayloadBytes {
		l.logger.Error("outbound payload exceeds size ceiling, dropped",
			ports.Int("size", len(payload)),
			ports.Int("limit", MaxPayloadBytes))
		return domain.ErrOversizeMessage
	}
	if len(payload) > largeWarnBytes {
		l.logger.Warn("large outbound payload",
			ports.Int("size", len(payload)))
	}

	l.mu.Lock()
	conn := l.conn
	l.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("core link write: %w", err)
	}
	return nil
}

// Run maintains the connection until the context is canceled, re-dialing
// with backoff after failures.
func (l *Link) Run(ctx context.Context) error {
	back := newBackoff(defaultBackoffInitial, defaultBackoffMax)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, resp, err := websocket.DefaultDialer.DialContext(ctx, l.url, http.Header{})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.logger.Warn("core link dial failed",
				ports.String("url", l.url),
				ports.Err(err))
			if werr := back.Wait(ctx); werr != nil {
				return werr
			}
			continue
		}
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}

		back.Reset()
		l.setConn(conn)
		l.logger.Info("core link established", ports.String("url", l.url))

		l.readLoop(ctx, conn)
		l.clearConn(conn)

		if err := ctx.Err(); err != nil {
			return err
		}
		l.logger.Warn("core link lost, reconnecting")
		if werr := back.Wait(ctx); werr != nil {
			return werr
		}
	}
}

// Close tears down the current connection. Run observes the closed
// connection and either reconnects or exits with its context.
func (l *Link) Close() error {
	l.mu.Lock()
	conn := l.conn
	l.conn = nil
	l.mu.Unlock()
	l.connected.Store(false)

	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (l *Link) setConn(conn *websocket.Conn) {
	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()
	l.connected.Store(true)
}

func (l *Link) clearConn(conn *websocket.Conn) {
	l.mu.Lock()
	if l.conn == conn {
		l.conn = nil
		l.connected.Store(false)
	}
	l.mu.Unlock()
	_ = conn.Close()
}

// readLoop drains frames the core pushes until the connection drops.
func (l *Link) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			l.logger.Debug("core link read ended", ports.Err(err))
			return
		}
		if l.onMessage == nil {
			l.logger.Debug("core frame dropped: no handler registered")
			continue
		}
		l.onMessage(ctx, raw)
	}
}
