package app

import "sync/atomic"

// DrainState is the process-wide drain accounting shared by the ingress
// listener (increments pending on enqueue) and the dispatcher (moves items
// from pending to processing and back out). All mutation is atomic; the
// shutdown flag is set once and never cleared.
type DrainState struct {
	shutdown   atomic.Bool
	pending    atomic.Int64
	processing atomic.Int64
}

// NewDrainState creates a zeroed DrainState.
func NewDrainState() *DrainState {
	return &DrainState{}
}

// RequestShutdown sets the shutdown flag. Returns true on the first call,
// false if shutdown was already requested.
func (s *DrainState) RequestShutdown() bool {
	return s.shutdown.CompareAndSwap(false, true)
}

// ShutdownRequested reports whether drain mode has been entered.
func (s *DrainState) ShutdownRequested() bool {
	return s.shutdown.Load()
}

// AddPending adjusts the queued-but-not-started counter.
func (s *DrainState) AddPending(delta int64) {
	s.pending.Add(delta)
}

// AddProcessing adjusts the started-but-not-finished counter.
func (s *DrainState) AddProcessing(delta int64) {
	s.processing.Add(delta)
}

// Pending returns the number of queued-but-not-started items.
func (s *DrainState) Pending() int64 {
	return s.pending.Load()
}

// Processing returns the number of started-but-not-finished items.
func (s *DrainState) Processing() int64 {
	return s.processing.Load()
}

// Idle reports whether no work is queued or in flight.
func (s *DrainState) Idle() bool {
	return s.pending.Load() == 0 && s.processing.Load() == 0
}
