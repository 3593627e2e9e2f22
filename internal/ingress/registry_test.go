package ingress

import (
	"errors"
	"testing"

	"github.com/obgate-labs/obgate/internal/domain"
	"github.com/obgate-labs/obgate/internal/ports"
)

type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...ports.Field) {}
func (mockLogger) Info(msg string, fields ...ports.Field)  {}
func (mockLogger) Warn(msg string, fields ...ports.Field)  {}
func (mockLogger) Error(msg string, fields ...ports.Field) {}

func TestRegistry_CurrentBeforePublish(t *testing.T) {
	r := NewRegistry()

	if _, err := r.Current(); !errors.Is(err, domain.ErrStaleConnection) {
		t.Errorf("Current() = %v, want ErrStaleConnection", err)
	}
}

func TestRegistry_GenerationIncrements(t *testing.T) {
	r := NewRegistry()

	h1 := r.Publish(nil)
	h2 := r.Publish(nil)

	if h1.Generation() != 1 || h2.Generation() != 2 {
		t.Errorf("generations = %d, %d, want 1, 2", h1.Generation(), h2.Generation())
	}
	if r.Generation() != 2 {
		t.Errorf("Generation() = %d, want 2", r.Generation())
	}

	current, err := r.Current()
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if current != h2 {
		t.Error("Current() is not the latest published handle")
	}
}

func TestRegistry_SupersededHandleIsStale(t *testing.T) {
	r := NewRegistry()

	h1 := r.Publish(nil)
	r.Publish(nil)

	if err := h1.WriteJSON(map[string]string{"k": "v"}); !errors.Is(err, domain.ErrStaleConnection) {
		t.Errorf("WriteJSON on superseded handle = %v, want ErrStaleConnection", err)
	}
}

func TestRegistry_InvalidateCurrent(t *testing.T) {
	r := NewRegistry()

	h := r.Publish(nil)
	r.Invalidate(h)

	if _, err := r.Current(); !errors.Is(err, domain.ErrStaleConnection) {
		t.Errorf("Current() after invalidate = %v, want ErrStaleConnection", err)
	}
	if err := h.WriteJSON(struct{}{}); !errors.Is(err, domain.ErrStaleConnection) {
		t.Errorf("WriteJSON after invalidate = %v, want ErrStaleConnection", err)
	}
}

func TestRegistry_InvalidateStaleIsNoop(t *testing.T) {
	r := NewRegistry()

	h1 := r.Publish(nil)
	h2 := r.Publish(nil)

	// Invalidating a superseded handle must not clear the live one.
	r.Invalidate(h1)

	current, err := r.Current()
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if current != h2 {
		t.Error("Current() changed after invalidating a stale handle")
	}
}
