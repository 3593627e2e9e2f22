// Package action issues correlated OneBot action requests over the current
// front connection handle.
package action

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/obgate-labs/obgate/internal/ingress"
	"github.com/obgate-labs/obgate/internal/ports"
	"github.com/obgate-labs/obgate/internal/response"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// newToken returns a time-sortable ULID encoded as a 26-character string,
// used as the correlation token echoed by the front protocol.
func newToken() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// request is the wire form of an action call.
type request struct {
	Action string `json:"action"`
	Params any    `json:"params"`
	Echo   string `json:"echo"`
}

// Client sends action requests and awaits their correlated responses.
// The handle is re-resolved from the registry on every call so a listener
// restart never leaves the client holding a dead connection.
type Client struct {
	registry *ingress.Registry
	pool     *response.Pool
	logger   ports.Logger
}

// NewClient creates an action client over the given registry and pool.
func NewClient(registry *ingress.Registry, pool *response.Pool, logger ports.Logger) *Client {
	return &Client{registry: registry, pool: pool, logger: logger}
}

// Call implements ports.ActionCaller.
func (c *Client) Call(ctx context.Context, actionName string, params any) (json.RawMessage, error) {
	handle, err := c.registry.Current()
	if err != nil {
		return nil, err
	}

	token := newToken()
	pending, err := c.pool.Register(token)
	if err != nil {
		return nil, err
	}

	req := request{Action: actionName, Params: params, Echo: token}
	if err := handle.WriteJSON(req); err != nil {
		c.pool.Cancel(token)
		return nil, err
	}

	c.logger.Debug("action request sent",
		ports.String("action", actionName),
		ports.String("token", token))

	return c.pool.Await(ctx, pending)
}
