// Package response tracks outstanding action requests awaiting their
// correlated response frames from the front protocol.
package response

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/obgate-labs/obgate/internal/domain"
	"github.com/obgate-labs/obgate/internal/ports"
)

// Defaults for the correlation pool. The sweep interval is much shorter
// than the timeout window so timeout detection lags a deadline by at most
// one sweep.
const (
	DefaultTimeout       = 30 * time.Second
	DefaultSweepInterval = 1 * time.Second
)

// Outcome is the single resolution of a pending request: a payload or an
// error, never both.
type Outcome struct {
	Payload json.RawMessage
	Err     error
}

// Pending is one outstanding request. The issuing task awaits it; the pool
// resolves it at most once, from a matching response frame or the sweeper.
type Pending struct {
	token    string
	created  time.Time
	deadline time.Time
	done     chan Outcome
}

// Token returns the correlation token of the pending request.
func (p *Pending) Token() string { return p.token }

// Pool correlates response frames with their originating requests by token.
// A background sweeper force-resolves requests past their deadline.
type Pool struct {
	mu      sync.Mutex
	pending map[string]*Pending

	timeout       time.Duration
	sweepInterval time.Duration
	logger        ports.Logger
}

// NewPool creates a pool with the given response timeout window.
// Zero values fall back to the defaults.
func NewPool(timeout time.Duration, logger ports.Logger) *Pool {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Pool{
		pending:       make(map[string]*Pending),
		timeout:       timeout,
		sweepInterval: DefaultSweepInterval,
		logger:        logger,
	}
}

// Register creates a PendingRequest for the token with deadline
// now + timeout window. Fails with ErrDuplicateToken while a request with
// the same token is still pending; tokens are never reused while pending.
func (p *Pool) Register(token string) (*Pending, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.pending[token]; exists {
		return nil, domain.ErrDuplicateToken
	}

	now := time.Now()
	req := &Pending{
		token:    token,
		created:  now,
		deadline: now.Add(p.timeout),
		done:     make(chan Outcome, 1),
	}
	p.pending[token] = req
	return req, nil
}

// Resolve completes the matching pending request exactly once with the
// response payload. An unknown or already-resolved token is a no-op
// reported as a diagnostic; it usually belongs to a request that already
// timed out.
func (p *Pool) Resolve(token string, payload json.RawMessage) {
	p.mu.Lock()
	req, ok := p.pending[token]
	if ok {
		delete(p.pending, token)
	}
	p.mu.Unlock()

	if !ok {
		p.logger.Debug("response for unknown correlation token dropped",
			ports.String("token", token))
		return
	}
	req.done <- Outcome{Payload: payload}
}

// Cancel discards a pending request without resolving it, releasing its
// token. Used when the request could not be sent after registration.
func (p *Pool) Cancel(token string) {
	p.mu.Lock()
	delete(p.pending, token)
	p.mu.Unlock()
}

// Await blocks the issuing task only, never the pipeline, until the
// request resolves or its deadline is enforced by the sweeper. The context
// bounds the wait further for callers that give up early.
func (p *Pool) Await(ctx context.Context, req *Pending) (json.RawMessage, error) {
	select {
	case out := <-req.done:
		return out.Payload, out.Err
	case <-ctx.Done():
		p.Cancel(req.token)
		return nil, ctx.Err()
	}
}

// Len returns the number of outstanding requests.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// RunSweeper scans pending requests on a fixed short interval and
// force-resolves any past its deadline with a Timeout outcome. Returns
// when the context is canceled.
func (p *Pool) RunSweeper(ctx context.Context) error {
	ticker := time.NewTicker(p.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			p.sweep(now)
		}
	}
}

func (p *Pool) sweep(now time.Time) {
	var expired []*Pending

	p.mu.Lock()
	for token, req := range p.pending {
		if now.After(req.deadline) {
			delete(p.pending, token)
			expired = append(expired, req)
		}
	}
	p.mu.Unlock()

	for _, req := range expired {
		p.logger.Warn("pending request timed out",
			ports.String("token", req.token),
			ports.Duration("age", now.Sub(req.created)))
		req.done <- Outcome{Err: domain.ErrTimeout}
	}
}
