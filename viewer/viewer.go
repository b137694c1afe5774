// Package viewer provides the read-only HTTP API over stored simulation
// records. GET endpoints only; records are never modified.
package viewer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/commonpool/artifact"
	"github.com/hupe1980/commonpool/core"
	"github.com/hupe1980/commonpool/logging"
)

// Options configures a Server.
type Options struct {
	Logger logging.Logger
	// Registry receives the viewer's request counter and backs /metrics.
	// A private registry is created when nil.
	Registry *prometheus.Registry
	// ShutdownTimeout bounds graceful shutdown in ListenAndServe.
	ShutdownTimeout time.Duration
}

// Server serves the record listing and individual documents.
type Server struct {
	reader   core.RecordReader
	logger   logging.Logger
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	opts     Options
	mux      *http.ServeMux
}

// New builds a server over reader.
func New(reader core.RecordReader, optFns ...func(o *Options)) (*Server, error) {
	opts := Options{ShutdownTimeout: 5 * time.Second}
	for _, fn := range optFns {
		fn(&opts)
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "commonpool",
		Subsystem: "viewer",
		Name:      "requests_total",
		Help:      "HTTP requests served by the log viewer.",
	}, []string{"route", "code"})
	if err := reg.Register(requests); err != nil {
		return nil, err
	}

	s := &Server{
		reader:   reader,
		logger:   logging.OrNoOp(opts.Logger),
		registry: reg,
		requests: requests,
		opts:     opts,
		mux:      http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /api/simulations", s.instrument("list", s.handleList))
	s.mux.HandleFunc("GET /api/simulations/{filename}", s.instrument("get", s.handleGet))
	s.mux.HandleFunc("GET /healthz", s.instrument("healthz", s.handleHealth))
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("viewer.start", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		s.logger.Info("viewer.stop", "addr", addr)
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) int {
	list, err := s.reader.List(r.Context())
	if err != nil {
		s.logger.Error("viewer.list", "error", err.Error())
		return writeError(w, http.StatusInternalServerError, "failed to list simulations")
	}
	return writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) int {
	name := r.PathValue("filename")
	doc, err := s.reader.Get(r.Context(), name)
	switch {
	case err == nil:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(doc)
		return http.StatusOK
	case errors.Is(err, artifact.ErrInvalidFilename):
		return writeError(w, http.StatusBadRequest, "invalid filename")
	case errors.Is(err, core.ErrNotFound):
		return writeError(w, http.StatusNotFound, "simulation not found")
	default:
		s.logger.Error("viewer.get", "file", name, "error", err.Error())
		return writeError(w, http.StatusInternalServerError, "failed to read simulation")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) int {
	return writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// instrument counts every response by route and status code.
func (s *Server) instrument(route string, h func(http.ResponseWriter, *http.Request) int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		code := h(w, r)
		s.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
		s.logger.Debug("viewer.request", "route", route, "code", code, "duration", time.Since(start))
	}
}

func writeJSON(w http.ResponseWriter, code int, data any) int {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
	return code
}

func writeError(w http.ResponseWriter, code int, msg string) int {
	return writeJSON(w, code, map[string]string{"error": msg})
}
