// Package server provides the HTTP API of the recordsync daemon.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grovetools/recordsync/errors"
	"github.com/grovetools/recordsync/internal/daemon/engine"
	"github.com/grovetools/recordsync/pkg/mirror"
	"github.com/grovetools/recordsync/pkg/records"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// RunningConfig is the configuration the daemon was started with.
// It is exposed via /api/config so clients can verify what is active.
type RunningConfig struct {
	RecordsDir         string        `json:"records_dir"`
	Debounce           time.Duration `json:"debounce"`
	IncludeSavedEvents bool          `json:"include_saved_events"`
	Socket             string        `json:"socket"`
	PID                int           `json:"pid"`
	StartedAt          time.Time     `json:"started_at"`
	Subscribers        int           `json:"subscribers"`
	Version            string        `json:"version"`
}

// Server manages the daemon's HTTP server over a Unix socket.
type Server struct {
	logger        *logrus.Entry
	server        *http.Server
	engine        *engine.Engine
	runningConfig *RunningConfig
	upgrader      websocket.Upgrader
}

// New creates a new Server instance.
func New(logger *logrus.Entry) *Server {
	s := &Server{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	// Created up front so Shutdown before ListenAndServe still stops it.
	s.server = &http.Server{
		Handler: h2c.NewHandler(s.Handler(), &http2.Server{}),
	}
	return s
}

// SetEngine sets the engine whose store the server reads from.
func (s *Server) SetEngine(eng *engine.Engine) {
	s.engine = eng
}

// SetRunningConfig sets the running configuration for the server.
func (s *Server) SetRunningConfig(cfg *RunningConfig) {
	s.runningConfig = cfg
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /api/records/{kind}", s.handleListRecords)
	mux.HandleFunc("GET /api/records/{kind}/{id}", s.handleGetRecord)
	mux.HandleFunc("GET /api/stream", s.handleStream)
	mux.HandleFunc("GET /api/ws", s.handleWebSocket)
	mux.HandleFunc("GET /api/config", s.handleGetConfig)

	return mux
}

// ListenAndServe starts the daemon on the given unix socket path.
// It blocks until the server stops or fails.
func (s *Server) ListenAndServe(socketPath string) error {
	if _, err := os.Stat(socketPath); err == nil {
		if err := os.Remove(socketPath); err != nil {
			return fmt.Errorf("failed to remove stale socket: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(socketPath), 0o755); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}

	if err := os.Chmod(socketPath, 0o600); err != nil {
		_ = listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.WithField("socket", socketPath).Info("Daemon listening")
	return s.server.Serve(listener)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	return s.server.Shutdown(ctx)
}

// handleListRecords returns {loading, items} for one kind, optionally filtered by ?state=.
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	view, ok := s.view(w, r)
	if !ok {
		return
	}

	snap := view.Snapshot()
	if state := r.URL.Query().Get("state"); state != "" {
		snap.Items = view.Filter(state)
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleGetRecord returns a single mirrored record.
func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	view, ok := s.view(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	rec, found := view.Get(id)
	if !found {
		writeError(w, errors.RecordNotFound(string(view.Kind()), id))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleStream provides Server-Sent Events for record changes.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		http.Error(w, "engine not initialized", http.StatusServiceUnavailable)
		return
	}
	kind, ok := streamKind(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	st := s.engine.Store()
	ch := st.Subscribe(kind)
	defer st.Unsubscribe(ch)

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()
	s.logger.Debug("SSE client connected")

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				s.logger.WithError(err).Error("Failed to marshal event")
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// handleWebSocket streams the same messages as handleStream over a websocket.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		http.Error(w, "engine not initialized", http.StatusServiceUnavailable)
		return
	}
	kind, ok := streamKind(w, r)
	if !ok {
		return
	}

	// Subscribe before the handshake completes so no event after it is missed.
	st := s.engine.Store()
	ch := st.Subscribe(kind)
	defer st.Unsubscribe(ch)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()
	s.logger.Debug("Websocket client connected")

	// The client never sends data; reading surfaces its close frame.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			s.logger.Debug("Websocket client disconnected")
			return
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "stream ended"))
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				s.logger.WithError(err).Debug("Websocket write failed")
				return
			}
		}
	}
}

// handleGetConfig returns the running configuration as JSON.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if s.runningConfig == nil {
		http.Error(w, "config not initialized", http.StatusServiceUnavailable)
		return
	}

	cfg := *s.runningConfig
	if s.engine != nil {
		cfg.Subscribers = s.engine.Store().SubscriberCount()
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) view(w http.ResponseWriter, r *http.Request) (mirror.View, bool) {
	if s.engine == nil {
		http.Error(w, "engine not initialized", http.StatusServiceUnavailable)
		return nil, false
	}
	kind, err := records.ParseKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	view, err := s.engine.Store().Provider().Kind(kind)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return view, true
}

func streamKind(w http.ResponseWriter, r *http.Request) (records.Type, bool) {
	raw := r.URL.Query().Get("kind")
	if raw == "" {
		return "", true
	}
	kind, err := records.ParseKind(raw)
	if err != nil {
		writeError(w, err)
		return "", false
	}
	return kind, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.ErrCodeUnknownKind, errors.ErrCodeInvalidInput:
		status = http.StatusBadRequest
	case errors.ErrCodeRecordNotFound:
		status = http.StatusNotFound
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if se, ok := err.(*errors.SyncError); ok {
		w.Write([]byte(se.ToJSON()))
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"code": string(errors.ErrCodeInternal), "message": err.Error()})
}
