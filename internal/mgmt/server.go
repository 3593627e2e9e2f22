// Package mgmt exposes the management HTTP endpoint for editing the
// in-memory group allow/deny list. It runs off the hot path on its own
// goroutine and touches nothing but the list store.
package mgmt

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/obgate-labs/obgate/internal/cliconfig"
	"github.com/obgate-labs/obgate/internal/ports"
)

// Server is the management HTTP endpoint.
type Server struct {
	addr   string
	groups *cliconfig.GroupList
	logger ports.Logger

	mu      sync.Mutex
	srv     *http.Server
	ln      net.Listener
	stopped bool
}

// NewServer creates a management server bound to addr.
func NewServer(addr string, groups *cliconfig.GroupList, logger ports.Logger) *Server {
	return &Server{addr: addr, groups: groups, logger: logger}
}

type apiResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Error   string         `json:"error,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Handler builds the route tree. Exposed for tests.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(cors)
	r.Get("/api", s.handleAPI)
	return r
}

// Start binds the address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("management endpoint bind %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.ln = ln
	s.srv = &http.Server{Handler: s.Handler()}
	srv := s.srv
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Warn("management server exited", ports.Err(err))
		}
	}()

	s.logger.Info("management endpoint listening",
		ports.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address. Valid after a successful Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Stop shuts the server down within the context's bound. Idempotent.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped || s.srv == nil {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	srv := s.srv
	s.mu.Unlock()

	return srv.Shutdown(ctx)
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("do") {
	case "get_group_list":
		s.writeJSON(w, http.StatusOK, apiResponse{
			Success: true,
			Data:    map[string]any{"group_list": s.groups.IDs()},
		})
	case "update_group_list":
		s.handleUpdate(w, r)
	default:
		s.writeJSON(w, http.StatusBadRequest, apiResponse{
			Success: false,
			Error:   fmt.Sprintf("Unknown action: %s", r.URL.Query().Get("do")),
		})
	}
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	idStr := r.URL.Query().Get("id")
	if idStr == "" {
		s.writeJSON(w, http.StatusBadRequest, apiResponse{
			Success: false,
			Error:   "Missing required parameter: id",
		})
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, apiResponse{
			Success: false,
			Error:   fmt.Sprintf("Invalid group id: %s", idStr),
		})
		return
	}

	var msg string
	switch r.URL.Query().Get("action") {
	case "add":
		if s.groups.Add(id) {
			msg = fmt.Sprintf("Group %d added", id)
			s.logger.Info("management: group added", ports.Int64("group_id", id))
		} else {
			msg = fmt.Sprintf("Group %d already exists in list", id)
		}
	case "rm":
		if s.groups.Remove(id) {
			msg = fmt.Sprintf("Group %d removed", id)
			s.logger.Info("management: group removed", ports.Int64("group_id", id))
		} else {
			msg = fmt.Sprintf("Group %d not found in list", id)
		}
	default:
		s.writeJSON(w, http.StatusBadRequest, apiResponse{
			Success: false,
			Error:   "Missing or invalid parameter: action (must be 'add' or 'rm')",
		})
		return
	}

	s.writeJSON(w, http.StatusOK, apiResponse{
		Success: true,
		Message: msg,
		Data:    map[string]any{"group_list": s.groups.IDs()},
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, resp apiResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("management response write failed", ports.Err(err))
	}
}
