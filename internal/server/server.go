// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server implements the docconvert HTTP surface: document
// conversion, PDF locking, health and metrics.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/pdiddy/docconvert/internal/convert"
	"github.com/pdiddy/docconvert/internal/history"
	"github.com/pdiddy/docconvert/pkg/types"
)

const defaultReadHeaderTimeout = 5 * time.Second

// Converter performs one conversion inside dir. *convert.Dispatcher
// satisfies it.
type Converter interface {
	Convert(ctx context.Context, kind types.Conversion, dir, input string) (convert.Result, error)
}

// Config holds server settings.
type Config struct {
	types.ServerConfig

	// WorkRoot is the parent of per-request scratch directories.
	WorkRoot string

	// Version is reported by the health endpoint.
	Version string
}

// Deps are the collaborators a Server uses. Nil History and Logger fall back
// to no-op implementations; a nil Metrics gets a private registry.
type Deps struct {
	Converter Converter
	History   history.Recorder
	Logger    *slog.Logger
	Metrics   *Metrics
}

// Server serves the HTTP API. It is constructed once per process and holds
// no per-request state.
type Server struct {
	cfg        Config
	conv       Converter
	history    history.Recorder
	log        *slog.Logger
	metrics    *Metrics
	inflight   *semaphore.Weighted
	handler    http.Handler
	httpServer *http.Server
}

// New wires routes and middleware.
func New(cfg Config, deps Deps) *Server {
	s := &Server{
		cfg:     cfg,
		conv:    deps.Converter,
		history: deps.History,
		log:     deps.Logger,
		metrics: deps.Metrics,
	}
	if s.history == nil {
		s.history = history.Nop{}
	}
	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}
	if cfg.MaxConcurrent > 0 {
		s.inflight = semaphore.NewWeighted(cfg.MaxConcurrent)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/convert", s.handleConvert)
	mux.HandleFunc("/lock", s.handleLock)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", s.metrics.Handler())

	// requestID -> logging -> apiKey -> mux
	var h http.Handler = mux
	h = s.apiKeyMiddleware(h)
	h = s.loggingMiddleware(h)
	h = requestIDMiddleware(h)
	s.handler = h

	readHeaderTimeout := cfg.ReadHeaderTimeout
	if readHeaderTimeout <= 0 {
		readHeaderTimeout = defaultReadHeaderTimeout
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln. It returns nil after a clean Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.log.Info("listening", "addr", ln.Addr().String(), "version", s.cfg.Version)
	if err := s.httpServer.Serve(ln); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		plainError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"version": s.cfg.Version,
	})
}
