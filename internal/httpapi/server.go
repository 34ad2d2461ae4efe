// Package httpapi exposes reader control over HTTP and streams read events
// to websocket clients.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"rfid_llrp_go/internal/manager"
)

// Controller is the supervised reader behind the API.
type Controller interface {
	Start(ctx context.Context) error
	Stop()
	Status() manager.Status
	StatusText() string
}

type Route struct {
	Name        string
	Method      string
	Pattern     string
	HandlerFunc http.HandlerFunc
}

type Server struct {
	addr    string
	reader  Controller
	feed    *Feed
	http    *http.Server
	baseCtx context.Context
}

func New(addr string, reader Controller, feed *Feed) *Server {
	s := &Server{
		addr:    addr,
		reader:  reader,
		feed:    feed,
		baseCtx: context.Background(),
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Router builds the route table. Every handler is wrapped with panic
// recovery and request logging.
func (s *Server) Router() *mux.Router {
	routes := []Route{
		{"Health", http.MethodGet, "/health", s.handleHealth},
		{"Status", http.MethodGet, "/status", s.handleStatus},
		{"StatusText", http.MethodGet, "/status/text", s.handleStatusText},
		{"Start", http.MethodPost, "/start", s.handleStart},
		{"Stop", http.MethodPost, "/stop", s.handleStop},
	}
	if s.feed != nil {
		routes = append(routes, Route{"Events", http.MethodGet, "/events", s.feed.ServeHTTP})
	}

	router := mux.NewRouter().StrictSlash(true)
	for _, route := range routes {
		var handler http.Handler = route.HandlerFunc
		handler = recoverer(handler)
		handler = logger(route.Name, handler)
		router.
			Methods(route.Method).
			Path(route.Pattern).
			Name(route.Name).
			Handler(handler)
	}
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"ok": false, "error": "method not allowed"})
	})
	return router
}

// Run serves until ctx is cancelled, then shuts down gracefully. Reader
// starts requested over HTTP live as long as ctx.
func (s *Server) Run(ctx context.Context) error {
	s.baseCtx = ctx
	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{"Method": "Run", "Addr": s.addr}).Info("http listening")
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- errors.Wrap(err, "http listen")
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if s.feed != nil {
			s.feed.CloseAll()
		}
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{
		"ok":      true,
		"service": "llrp-reader",
	}
	if s.feed != nil {
		body["clients"] = s.feed.ClientCount()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusBody(s.reader.Status()))
}

func (s *Server) handleStatusText(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(s.reader.StatusText() + "\n"))
}

func (s *Server) handleStart(w http.ResponseWriter, _ *http.Request) {
	if err := s.reader.Start(s.baseCtx); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"ok": true, "status": statusBody(s.reader.Status())})
}

func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request) {
	s.reader.Stop()
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "status": statusBody(s.reader.Status())})
}

type statusResponse struct {
	Running      bool    `json:"running"`
	State        string  `json:"state"`
	Endpoint     string  `json:"endpoint"`
	SessionID    string  `json:"session_id,omitempty"`
	LastError    string  `json:"last_error,omitempty"`
	Reads        uint64  `json:"reads"`
	Dropped      uint64  `json:"dropped"`
	DecodeErrors uint64  `json:"decode_errors"`
	LastTagEPC   string  `json:"last_tag_epc,omitempty"`
	LastTagAt    *string `json:"last_tag_at,omitempty"`
	RestartCount uint64  `json:"restart_count"`
}

func statusBody(st manager.Status) statusResponse {
	out := statusResponse{
		Running:      st.Running,
		State:        st.State.String(),
		Endpoint:     st.Endpoint,
		SessionID:    st.SessionID,
		LastError:    st.LastError,
		Reads:        st.Reads,
		Dropped:      st.Dropped,
		DecodeErrors: st.DecodeErrors,
		LastTagEPC:   st.LastTagEPC,
		RestartCount: st.RestartCount,
	}
	if !st.LastTagAt.IsZero() {
		at := st.LastTagAt.Format(time.RFC3339Nano)
		out.LastTagAt = &at
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
