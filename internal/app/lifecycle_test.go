package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/obgate-labs/obgate/internal/domain"
	"github.com/obgate-labs/obgate/internal/ports"
)

// mockLogger implements ports.Logger for testing.
type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...ports.Field) {}
func (mockLogger) Info(msg string, fields ...ports.Field)  {}
func (mockLogger) Warn(msg string, fields ...ports.Field)  {}
func (mockLogger) Error(msg string, fields ...ports.Field) {}

// mockEmitter tracks state change events for testing.
type mockEmitter struct {
	mu     sync.Mutex
	events []stateChangeEvent
}

type stateChangeEvent struct {
	previous State
	current  State
	reason   string
}

func (m *mockEmitter) OnStateChange(previous, current State, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, stateChangeEvent{previous, current, reason})
}

func (m *mockEmitter) Events() []stateChangeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]stateChangeEvent{}, m.events...)
}

func TestNewLifecycle(t *testing.T) {
	l := NewLifecycle(&mockLogger{}, nil)

	if l == nil {
		t.Fatal("NewLifecycle returned nil")
	}
	if l.State() != StateStopped {
		t.Errorf("initial state = %v, want StateStopped", l.State())
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateStopped, "Stopped"},
		{StateStarting, "Starting"},
		{StateRunning, "Running"},
		{StateDraining, "Draining"},
		{StateCrashed, "Crashed"},
		{State(99), "Unknown"},
	}

	for _, tt := range tests {
		got := tt.state.String()
		if got != tt.want {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.want)
		}
	}
}

func TestLifecycle_TransitionTo_ValidTransitions(t *testing.T) {
	tests := []struct {
		name string
		from State
		to   State
	}{
		{"stopped to starting", StateStopped, StateStarting},
		{"starting to running", StateStarting, StateRunning},
		{"starting to crashed", StateStarting, StateCrashed},
		{"running to draining", StateRunning, StateDraining},
		{"running to crashed", StateRunning, StateCrashed},
		{"draining to stopped", StateDraining, StateStopped},
		{"draining to crashed", StateDraining, StateCrashed},
		{"crashed to starting", StateCrashed, StateStarting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLifecycle(&mockLogger{}, nil)
			l.state = tt.from

			if err := l.TransitionTo(tt.to, "test"); err != nil {
				t.Errorf("TransitionTo(%v) from %v: %v", tt.to, tt.from, err)
			}
			if l.State() != tt.to {
				t.Errorf("state = %v, want %v", l.State(), tt.to)
			}
		})
	}
}

func TestLifecycle_TransitionTo_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name string
		from State
		to   State
	}{
		{"stopped to running", StateStopped, StateRunning},
		{"stopped to draining", StateStopped, StateDraining},
		{"starting to stopped", StateStarting, StateStopped},
		{"running to starting", StateRunning, StateStarting},
		{"draining to running", StateDraining, StateRunning},
		{"crashed to running", StateCrashed, StateRunning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLifecycle(&mockLogger{}, nil)
			l.state = tt.from

			if err := l.TransitionTo(tt.to, "test"); err == nil {
				t.Errorf("TransitionTo(%v) from %v succeeded, want error", tt.to, tt.from)
			}
			if l.State() != tt.from {
				t.Errorf("state changed to %v after invalid transition", l.State())
			}
		})
	}
}

func TestLifecycle_EmitsEvents(t *testing.T) {
	emitter := &mockEmitter{}
	l := NewLifecycle(&mockLogger{}, emitter)

	if err := l.TransitionTo(StateStarting, "boot"); err != nil {
		t.Fatalf("TransitionTo: %v", err)
	}

	events := emitter.Events()
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].previous != StateStopped || events[0].current != StateStarting {
		t.Errorf("event = %v -> %v, want Stopped -> Starting",
			events[0].previous, events[0].current)
	}
	if events[0].reason != "boot" {
		t.Errorf("reason = %q, want %q", events[0].reason, "boot")
	}
}

func TestLifecycle_CanStartCanStop(t *testing.T) {
	tests := []struct {
		state    State
		canStart bool
		canStop  bool
	}{
		{StateStopped, true, false},
		{StateStarting, false, true},
		{StateRunning, false, true},
		{StateDraining, false, false},
		{StateCrashed, true, false},
	}

	for _, tt := range tests {
		l := NewLifecycle(&mockLogger{}, nil)
		l.state = tt.state

		if got := l.CanStart(); got != tt.canStart {
			t.Errorf("CanStart() in %v = %v, want %v", tt.state, got, tt.canStart)
		}
		if got := l.CanStop(); got != tt.canStop {
			t.Errorf("CanStop() in %v = %v, want %v", tt.state, got, tt.canStop)
		}
	}
}

func TestLifecycle_Cancel(t *testing.T) {
	l := NewLifecycle(&mockLogger{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	l.SetCancel(cancel)
	l.Cancel()

	select {
	case <-ctx.Done():
	default:
		t.Error("context not canceled after Cancel()")
	}
}

func TestLifecycle_WaitWithTimeout(t *testing.T) {
	l := NewLifecycle(&mockLogger{}, nil)

	l.AddWorker()
	go func() {
		time.Sleep(10 * time.Millisecond)
		l.WorkerDone()
	}()

	if err := l.WaitWithTimeout(time.Second); err != nil {
		t.Errorf("WaitWithTimeout: %v", err)
	}
}

func TestLifecycle_WaitWithTimeout_Expires(t *testing.T) {
	l := NewLifecycle(&mockLogger{}, nil)

	l.AddWorker()
	defer l.WorkerDone()

	err := l.WaitWithTimeout(20 * time.Millisecond)
	if err != domain.ErrShutdownTimeout {
		t.Errorf("WaitWithTimeout = %v, want ErrShutdownTimeout", err)
	}
}
