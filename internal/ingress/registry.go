package ingress

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/obgate-labs/obgate/internal/domain"
)

// Registry holds the single authoritative connection to the front protocol.
// Each published connection gets a new generation; producers resolve the
// current handle before each send instead of caching one, and a handle
// whose generation has been superseded fails sends with ErrStaleConnection.
type Registry struct {
	mu      sync.RWMutex
	current *Handle
	gen     uint64
}

// Handle is one generation of the front connection. Writes through a handle
// are serialized by a per-handle mutex so concurrent producers never
// interleave partial frames.
type Handle struct {
	conn    *websocket.Conn
	gen     uint64
	reg     *Registry
	writeMu sync.Mutex
}

// NewRegistry creates an empty registry; Current fails until a connection
// is published.
func NewRegistry() *Registry {
	return &Registry{}
}

// Publish installs conn as the authoritative connection under a fresh
// generation and returns its handle. Any previously published handle
// becomes stale immediately.
func (r *Registry) Publish(conn *websocket.Conn) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.current = &Handle{conn: conn, gen: r.gen, reg: r}
	return r.current
}

// Current returns the live handle, or ErrStaleConnection when no
// connection is published.
func (r *Registry) Current() (*Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return nil, domain.ErrStaleConnection
	}
	return r.current, nil
}

// Invalidate clears the handle if it is still current. Called when its
// connection is closed or superseded.
func (r *Registry) Invalidate(h *Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == h {
		r.current = nil
	}
}

// Generation returns the generation of the most recently published handle.
func (r *Registry) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gen
}

// Generation returns this handle's generation marker.
func (h *Handle) Generation() uint64 { return h.gen }

func (h *Handle) stale() bool {
	h.reg.mu.RLock()
	defer h.reg.mu.RUnlock()
	return h.reg.current != h
}

// WriteJSON marshals v and writes it as one text frame. Fails with
// ErrStaleConnection when the handle has been superseded or torn down,
// never hangs on a dead connection.
func (h *Handle) WriteJSON(v any) error {
	if h.stale() {
		return domain.ErrStaleConnection
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	if h.stale() {
		return domain.ErrStaleConnection
	}
	if err := h.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}
