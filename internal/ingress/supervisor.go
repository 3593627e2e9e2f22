package ingress

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/obgate-labs/obgate/internal/app"
	"github.com/obgate-labs/obgate/internal/domain"
	"github.com/obgate-labs/obgate/internal/ports"
)

// bindRetries bounds how often a restart retries a failing bind before the
// supervisor gives up and surfaces a fatal diagnostic.
const (
	bindRetries    = 5
	bindRetryDelay = 1 * time.Second
)

// Supervisor owns the listener across reconfigurations. A configuration
// change closes the old listener completely, then binds a new one with the
// latest snapshot. The work queue and its contents are untouched across a
// restart; only the connection identity changes.
type Supervisor struct {
	registry *Registry
	sink     FrameSink
	drain    *app.DrainState
	logger   ports.Logger

	mu       sync.Mutex
	listener *Listener
	latest   domain.ConfigSnapshot

	// ctrl carries restart signals; rapid successive changes coalesce to
	// the latest snapshot.
	ctrl chan struct{}
}

// NewSupervisor creates a supervisor that starts from the initial snapshot.
func NewSupervisor(initial domain.ConfigSnapshot, registry *Registry, sink FrameSink, drain *app.DrainState, logger ports.Logger) *Supervisor {
	return &Supervisor{
		registry: registry,
		sink:     sink,
		drain:    drain,
		logger:   logger,
		latest:   initial,
		ctrl:     make(chan struct{}, 1),
	}
}

// Apply records a new configuration snapshot and signals a restart.
// Snapshots older than the latest seen are ignored.
func (s *Supervisor) Apply(snap domain.ConfigSnapshot) {
	s.mu.Lock()
	if snap.Version <= s.latest.Version {
		s.mu.Unlock()
		return
	}
	s.latest = snap
	s.mu.Unlock()

	select {
	case s.ctrl <- struct{}{}:
	default:
	}
}

// Start binds the initial listener synchronously so a startup bind failure
// reaches the caller as a fatal error instead of a background log line.
func (s *Supervisor) Start(ctx context.Context) error {
	return s.restart(ctx)
}

// Run serves restart signals until the context is canceled. A bind failure
// that persists through the bounded retries of a restart terminates Run
// with the error.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return ctx.Err()
		case <-s.ctrl:
			s.mu.Lock()
			snap := s.latest
			s.mu.Unlock()

			s.logger.Warn("ingress configuration changed, restarting listener",
				ports.String("addr", snap.Ingress.Addr()),
				ports.Uint64("version", snap.Version))

			if err := s.restart(ctx); err != nil {
				s.logger.Error("listener restart failed permanently, giving up",
					ports.Err(err))
				return err
			}
		}
	}
}

// restart closes the current listener, waits for the close to complete,
// then starts a fresh listener with the latest snapshot. Bind errors are
// retried a bounded number of times.
func (s *Supervisor) restart(ctx context.Context) error {
	s.Stop()

	var lastErr error
	for attempt := 0; attempt < bindRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(bindRetryDelay):
			}
		}

		s.mu.Lock()
		snap := s.latest
		s.mu.Unlock()

		l := NewListener(snap.Ingress, s.registry, s.sink, s.drain, s.logger)
		err := l.Start()
		if err == nil {
			s.mu.Lock()
			s.listener = l
			s.mu.Unlock()
			return nil
		}
		lastErr = err

		if !errors.Is(err, domain.ErrBind) {
			break
		}
		s.logger.Warn("ingress bind failed, retrying",
			ports.Int("attempt", attempt+1),
			ports.Err(err))
	}
	return lastErr
}

// Stop closes the current listener, if any, and waits for the close.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	l := s.listener
	s.listener = nil
	s.mu.Unlock()

	if l != nil {
		if err := l.Stop(); err != nil {
			s.logger.Warn("listener stop failed", ports.Err(err))
		}
	}
}

// Addr returns the bound address of the current listener, or nil.
func (s *Supervisor) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}
