package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/obgate-labs/obgate/internal/domain"
)

// freePort reserves an ephemeral port and releases it for the bridge to
// bind. A small race window exists but is harmless in practice.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

// coreStub is a WebSocket server standing in for the orchestration core.
type coreStub struct {
	srv *httptest.Server

	mu       sync.Mutex
	received [][]byte
}

func newCoreStub(t *testing.T) *coreStub {
	t.Helper()
	s := &coreStub{}
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.received = append(s.received, raw)
			s.mu.Unlock()
		}
	})
	s.srv = httptest.NewServer(mux)
	t.Cleanup(s.srv.Close)
	return s
}

func (s *coreStub) HostPort(t *testing.T) (string, int) {
	t.Helper()
	addr := s.srv.Listener.Addr().(*net.TCPAddr)
	return "127.0.0.1", addr.Port
}

func (s *coreStub) Received() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte{}, s.received...)
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{Port: -1})
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("New = %v, want ErrInvalidConfig", err)
	}
}

func TestBridge_StopBeforeStart(t *testing.T) {
	b, err := New(Config{Port: freePort(t)})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := b.Stop(); !errors.Is(err, domain.ErrNotRunning) {
		t.Errorf("Stop before Start = %v, want ErrNotRunning", err)
	}
	if b.Status() != StateStopped {
		t.Errorf("Status() = %v, want StateStopped", b.Status())
	}
}

func TestBridge_StartBindFailure(t *testing.T) {
	held, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer held.Close()

	b, err := New(Config{
		Host: "127.0.0.1",
		Port: held.Addr().(*net.TCPAddr).Port,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := b.Start(context.Background()); !errors.Is(err, domain.ErrBind) {
		t.Errorf("Start on held port = %v, want ErrBind", err)
	}
	if b.Status() != StateCrashed {
		t.Errorf("Status() = %v, want StateCrashed", b.Status())
	}
}

func TestBridge_EndToEnd(t *testing.T) {
	stub := newCoreStub(t)
	coreHost, corePort := stub.HostPort(t)

	b, err := New(Config{
		Host:          "127.0.0.1",
		Port:          freePort(t),
		Token:         "gw-token",
		CoreHost:      coreHost,
		CorePort:      corePort,
		GroupListType: "blacklist",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer b.Stop()

	if b.Status() != StateRunning {
		t.Fatalf("Status() = %v, want StateRunning", b.Status())
	}

	// Connect as the gateway with the bearer credential.
	url := "ws://" + b.Addr().String() + "/"
	header := http.Header{"Authorization": []string{"Bearer gw-token"}}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial gateway side: %v", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// The core link dials in the background; resend until a frame makes it
	// through so the test does not race the first connect.
	raw := `{"post_type":"message","message_type":"private","user_id":1,"raw_message":"hi"}`
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && len(stub.Received()) == 0 {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
			t.Fatalf("write: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
	}
	if len(stub.Received()) == 0 {
		t.Fatal("core never received the forwarded frame")
	}

	if err := b.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}
	if b.Status() != StateStopped {
		t.Errorf("Status() after Stop = %v, want StateStopped", b.Status())
	}
	if err := b.Stop(); !errors.Is(err, domain.ErrNotRunning) {
		t.Errorf("second Stop = %v, want ErrNotRunning", err)
	}
}

func ExampleNew() {
	b, err := New(Config{
		Host:     "localhost",
		Port:     8095,
		CoreHost: "localhost",
		CorePort: 8000,
	})
	if err != nil {
		fmt.Println("config error:", err)
		return
	}
	_ = b.Status()
	// Start with a context, serve, then Stop to drain:
	//   b.Start(ctx)
	//   defer b.Stop()
}
