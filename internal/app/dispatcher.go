package app

import (
	"context"
	"sync"
	"time"

	"github.com/obgate-labs/obgate/internal/domain"
	"github.com/obgate-labs/obgate/internal/ports"
)

// DefaultIdleCheck is how long the dispatch loop waits on an empty queue
// before re-checking the drain state.
const DefaultIdleCheck = 100 * time.Millisecond

// Dispatcher owns the bounded work queue and its single consumption loop.
// Enqueue never blocks the caller; items are dispatched strictly in enqueue
// order across all categories. Handler invocation is synchronous, so one
// slow handler throttles the whole pipeline by design.
type Dispatcher struct {
	mu    sync.Mutex
	items []domain.QueueItem

	// wake nudges the loop when an item arrives while it is parked.
	wake chan struct{}

	state     *DrainState
	handlers  map[domain.Category]ports.FrameHandler
	idleCheck time.Duration
	logger    ports.Logger
}

// NewDispatcher creates a dispatcher bound to the shared drain state.
// Handlers are registered with Register before Run is started.
func NewDispatcher(state *DrainState, logger ports.Logger) *Dispatcher {
	return &Dispatcher{
		wake:      make(chan struct{}, 1),
		state:     state,
		handlers:  make(map[domain.Category]ports.FrameHandler),
		idleCheck: DefaultIdleCheck,
		logger:    logger,
	}
}

// Register installs the handler for one frame category.
func (d *Dispatcher) Register(cat domain.Category, h ports.FrameHandler) {
	d.handlers[cat] = h
}

// Enqueue appends a frame to the back of the queue and increments the
// pending counter. Returns false when drain mode has been entered; the
// frame is then dropped with a diagnostic instead of being queued.
//
// The counter is raised before the drain check: once the flag is observed
// clear the increment is already visible, so the drain poll can never see
// zero pending while an accepted frame sits in the queue.
func (d *Dispatcher) Enqueue(frame domain.InboundFrame) bool {
	d.state.AddPending(1)
	if d.state.ShutdownRequested() {
		d.state.AddPending(-1)
		d.logger.Debug("drain mode: frame refused",
			ports.String("category", frame.Category.String()))
		return false
	}

	d.mu.Lock()
	d.items = append(d.items, domain.QueueItem{Frame: frame, EnqueuedAt: time.Now()})
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
	return true
}

// Len returns the number of queued items.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.items)
}

func (d *Dispatcher) pop() (domain.QueueItem, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.items) == 0 {
		return domain.QueueItem{}, false
	}
	item := d.items[0]
	d.items = d.items[1:]
	return item, true
}

// Run executes the dispatch loop until the context is canceled or drain
// mode completes (shutdown requested and both counters at zero).
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		if d.state.ShutdownRequested() && d.state.Idle() {
			d.logger.Info("dispatch loop drained")
			return nil
		}

		item, ok := d.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-d.wake:
			case <-time.After(d.idleCheck):
			}
			continue
		}

		// Claim the processing slot before releasing the pending count
		// so the item is visible in one counter or the other at every
		// instant an outside observer can look.
		d.state.AddProcessing(1)
		d.state.AddPending(-1)
		d.dispatch(ctx, item)
	}
}

// dispatch hands one item to its category handler and releases the
// processing slot claimed by Run. Unknown categories are logged and
// discarded.
func (d *Dispatcher) dispatch(ctx context.Context, item domain.QueueItem) {
	defer d.state.AddProcessing(-1)

	handler, ok := d.handlers[item.Frame.Category]
	if !ok {
		d.logger.Warn("no handler for category",
			ports.String("category", item.Frame.Category.String()))
		return
	}

	if err := handler.Handle(ctx, item.Frame); err != nil {
		d.logger.Error("frame handler failed",
			ports.String("category", item.Frame.Category.String()),
			ports.Duration("queued", time.Since(item.EnqueuedAt)),
			ports.Err(err))
	}
}
