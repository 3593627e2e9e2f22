package ingress

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/obgate-labs/obgate/internal/app"
	"github.com/obgate-labs/obgate/internal/domain"
	"github.com/obgate-labs/obgate/internal/ports"
)

// MaxFrameBytes is the read limit per inbound frame, large enough for rich
// media payloads carried as base64.
const MaxFrameBytes = 1 << 26 // 64 MiB

// Listener is the front-protocol WebSocket server. It accepts one
// connection at a time, authenticates the handshake, publishes the
// connection handle to the registry, and feeds every frame to the sink.
type Listener struct {
	cfg      domain.IngressConfig
	registry *Registry
	sink     FrameSink
	drain    *app.DrainState
	logger   ports.Logger

	upgrader websocket.Upgrader
	srv      *http.Server
	ln       net.Listener

	mu      sync.Mutex
	current *websocket.Conn
	stopped bool
}

// NewListener creates a listener for the given ingress configuration.
func NewListener(cfg domain.IngressConfig, registry *Registry, sink FrameSink, drain *app.DrainState, logger ports.Logger) *Listener {
	return &Listener{
		cfg:      cfg,
		registry: registry,
		sink:     sink,
		drain:    drain,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Start binds the listener address and begins serving handshakes.
// Returns ErrBind when the address cannot be acquired.
func (l *Listener) Start() error {
	ln, err := net.Listen("tcp", l.cfg.Addr())
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrBind, l.cfg.Addr(), err)
	}
	l.ln = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/", l.handleUpgrade)
	l.srv = &http.Server{Handler: mux}

	go func() {
		if err := l.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			l.logger.Debug("ingress server exited", ports.Err(err))
		}
	}()

	l.logger.Info("ingress listening", ports.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address. Valid after a successful Start.
func (l *Listener) Addr() net.Addr {
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Stop closes the listener and the current connection. Idempotent; a
// second call is a no-op.
func (l *Listener) Stop() error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return nil
	}
	l.stopped = true
	conn := l.current
	l.current = nil
	srv := l.srv
	l.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if srv != nil {
		// Close rather than Shutdown: hijacked WebSocket connections are
		// invisible to Shutdown and the live one is already closed above.
		if err := srv.Close(); err != nil {
			return fmt.Errorf("close ingress server: %w", err)
		}
	}
	l.logger.Info("ingress listener stopped", ports.String("addr", l.cfg.Addr()))
	return nil
}

// handleUpgrade authenticates the handshake and promotes the connection to
// the authoritative front connection.
func (l *Listener) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if !l.authorize(r) {
		l.logger.Warn("front connection rejected: bad credential",
			ports.String("remote", r.RemoteAddr))
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.logger.Warn("websocket upgrade failed", ports.Err(err))
		return
	}
	conn.SetReadLimit(MaxFrameBytes)

	// Publish the handle before reading any frame so producers never
	// observe a connection they had no chance to re-resolve.
	handle := l.registry.Publish(conn)

	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		l.registry.Invalidate(handle)
		_ = conn.Close()
		return
	}
	old := l.current
	l.current = conn
	l.mu.Unlock()

	if old != nil {
		// One authoritative connection at a time.
		l.logger.Warn("superseding previous front connection",
			ports.Uint64("generation", handle.Generation()))
		_ = old.Close()
	}

	l.logger.Info("front connection established",
		ports.String("remote", r.RemoteAddr),
		ports.Uint64("generation", handle.Generation()))

	l.readLoop(conn, handle)
}

// authorize checks the bearer credential when one is configured.
func (l *Listener) authorize(r *http.Request) bool {
	token := strings.TrimSpace(l.cfg.Token)
	if token == "" {
		return true
	}
	return r.Header.Get("Authorization") == "Bearer "+token
}

// readLoop feeds frames to the sink until the connection drops or drain
// mode is observed. Frames already read when the drain flag flips may
// still be classified and enqueued; the cutoff is best-effort.
func (l *Listener) readLoop(conn *websocket.Conn, handle *Handle) {
	defer func() {
		l.registry.Invalidate(handle)
		l.mu.Lock()
		if l.current == conn {
			l.current = nil
		}
		l.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		if l.drain.ShutdownRequested() {
			l.logger.Info("drain mode: stopping front connection reads")
			return
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				l.logger.Warn("front connection read failed", ports.Err(err))
			} else {
				l.logger.Debug("front connection closed", ports.Err(err))
			}
			return
		}

		l.sink.Route(raw)
	}
}
