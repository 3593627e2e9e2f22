package backlink

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/obgate-labs/obgate/internal/domain"
	"github.com/obgate-labs/obgate/internal/ports"
)

type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...ports.Field) {}
func (mockLogger) Info(msg string, fields ...ports.Field)  {}
func (mockLogger) Warn(msg string, fields ...ports.Field)  {}
func (mockLogger) Error(msg string, fields ...ports.Field) {}

// coreStub is a WebSocket server standing in for the orchestration core.
type coreStub struct {
	srv *httptest.Server

	mu       sync.Mutex
	received [][]byte
	conns    []*websocket.Conn
}

func newCoreStub(t *testing.T) *coreStub {
	t.Helper()
	s := &coreStub{}
	upgrader := websocket.Upgrader{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.received = append(s.received, raw)
			s.mu.Unlock()
		}
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *coreStub) URL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *coreStub) Received() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte{}, s.received...)
}

func (s *coreStub) Push(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.conns) == 0 {
		return errors.New("no connection")
	}
	return s.conns[len(s.conns)-1].WriteMessage(websocket.TextMessage, payload)
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestLink_ConnectAndSend(t *testing.T) {
	stub := newCoreStub(t)
	l := NewLink(stub.URL(), nil, &mockLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	waitUntil(t, 2*time.Second, l.Connected)

	if err := l.Send(ctx, []byte(`{"hello":"core"}`)); err != nil {
		t.Fatalf("Send: %v", err)
	}

	waitUntil(t, 2*time.Second, func() bool { return len(stub.Received()) == 1 })
	if got := string(stub.Received()[0]); got != `{"hello":"core"}` {
		t.Errorf("core received %s", got)
	}
}

func TestLink_SendWhileDisconnected(t *testing.T) {
	l := NewLink("ws://127.0.0.1:1/ws", nil, &mockLogger{})

	err := l.Send(context.Background(), []byte(`{}`))
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send = %v, want ErrNotConnected", err)
	}
}

func TestLink_OversizePayloadRejected(t *testing.T) {
	stub := newCoreStub(t)
	l := NewLink(stub.URL(), nil, &mockLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)
	waitUntil(t, 2*time.Second, l.Connected)

	payload := make([]byte, MaxPayloadBytes+1)
	err := l.Send(ctx, payload)
	if !errors.Is(err, domain.ErrOversizeMessage) {
		t.Fatalf("Send = %v, want ErrOversizeMessage", err)
	}

	// Nothing reached the core.
	time.Sleep(50 * time.Millisecond)
	if len(stub.Received()) != 0 {
		t.Errorf("core received %d payloads, want 0", len(stub.Received()))
	}
}

func TestLink_DeliversPushedFrames(t *testing.T) {
	stub := newCoreStub(t)

	var mu sync.Mutex
	var got [][]byte
	onMessage := func(_ context.Context, payload []byte) {
		mu.Lock()
		got = append(got, payload)
		mu.Unlock()
	}

	l := NewLink(stub.URL(), onMessage, &mockLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)
	waitUntil(t, 2*time.Second, l.Connected)

	if err := stub.Push([]byte(`{"action":"send_group_msg"}`)); err != nil {
		t.Fatalf("push: %v", err)
	}

	waitUntil(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	})
}

func TestLink_CloseDisconnects(t *testing.T) {
	stub := newCoreStub(t)
	l := NewLink(stub.URL(), nil, &mockLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	waitUntil(t, 2*time.Second, l.Connected)

	cancel()
	if err := l.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if l.Connected() {
		t.Error("Connected() = true after Close")
	}
}

func TestBackoff_GrowsAndResets(t *testing.T) {
	b := newBackoff(10*time.Millisecond, 40*time.Millisecond)

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		if err := b.Wait(ctx); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	if b.current != 40*time.Millisecond {
		t.Errorf("current = %v, want capped at 40ms", b.current)
	}

	b.Reset()
	if b.current != 10*time.Millisecond {
		t.Errorf("current after Reset = %v, want 10ms", b.current)
	}
}

func TestBackoff_ContextCancel(t *testing.T) {
	b := newBackoff(time.Minute, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	if err := b.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait = %v, want context.Canceled", err)
	}
}
