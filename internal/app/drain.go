package app

import (
	"context"
	"time"

	"github.com/obgate-labs/obgate/internal/domain"
	"github.com/obgate-labs/obgate/internal/ports"
)

// DrainController orchestrates the Running -> Draining -> Stopped sequence:
// stop intake, wait for queued and in-flight work to finish within a
// bounded window, then let the caller tear components down in order.
type DrainController struct {
	state        *DrainState
	logger       ports.Logger
	maxWait      time.Duration
	pollInterval time.Duration
}

// NewDrainController creates a controller with the default 30s bound.
func NewDrainController(state *DrainState, logger ports.Logger) *DrainController {
	return &DrainController{
		state:        state,
		logger:       logger,
		maxWait:      ShutdownTimeout,
		pollInterval: 100 * time.Millisecond,
	}
}

// Drain enters drain mode and blocks until all pending and processing work
// has finished or the bounded wait elapses. On timeout the drain still
// completes, flagged as a forced stop, and ErrShutdownTimeout is returned.
// Drain is idempotent; repeated calls observe the same shutdown flag.
func (c *DrainController) Drain(ctx context.Context) error {
	if c.state.RequestShutdown() {
		c.logger.Info("drain mode: intake stopped, finishing remaining work")
	}

	deadline := time.Now().Add(c.maxWait)
	lastReport := time.Now()

	for {
		if c.state.Idle() {
			c.logger.Debug("all queued work completed")
			return nil
		}

		if time.Now().After(deadline) {
			c.logger.Warn("drain wait expired, forcing stop",
				ports.Int64("pending", c.state.Pending()),
				ports.Int64("processing", c.state.Processing()),
				ports.Duration("max_wait", c.maxWait))
			return domain.ErrShutdownTimeout
		}

		if time.Since(lastReport) >= 5*time.Second {
			c.logger.Info("draining",
				ports.Int64("pending", c.state.Pending()),
				ports.Int64("processing", c.state.Processing()))
			lastReport = time.Now()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

// SetMaxWait overrides the bounded wait. Used by tests and embedders.
func (c *DrainController) SetMaxWait(d time.Duration) {
	c.maxWait = d
}
