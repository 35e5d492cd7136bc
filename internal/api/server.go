package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobsift/internal/app"
	"github.com/JakeFAU/jobsift/internal/metrics"
	"github.com/JakeFAU/jobsift/internal/report"
)

const requestTimeout = 30 * time.Second

// Runner executes runs on behalf of the API. app.App implements it.
type Runner interface {
	NewRunID() (uuid.UUID, error)
	RunWithID(ctx context.Context, runID uuid.UUID) (app.Outcome, error)
}

// Server wires HTTP handlers to a Runner. At most one run is active.
type Server struct {
	router  chi.Router
	runner  Runner
	logger  *zap.Logger
	// runs outlive the request that started them; cancelling baseCtx stops
	// them.
	baseCtx context.Context

	mu      sync.Mutex
	active  uuid.UUID
	latest  *app.Outcome
	lastErr error
	wg      sync.WaitGroup
}

// NewServer constructs a Server with middleware and routes.
func NewServer(baseCtx context.Context, runner Runner, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		runner:  runner,
		logger:  logger,
		baseCtx: baseCtx,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1/runs", func(r chi.Router) {
		r.Use(timeoutMiddleware(requestTimeout))
		r.Post("/", s.startRun)
		r.Get("/latest", s.latestRun)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Wait blocks until the active run finishes or ctx ends.
func (s *Server) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for active run: %w", ctx.Err())
	}
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if s.baseCtx.Err() != nil {
		writeError(w, http.StatusServiceUnavailable, "shutting down")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) startRun(w http.ResponseWriter, _ *http.Request) {
	if s.baseCtx.Err() != nil {
		writeError(w, http.StatusServiceUnavailable, "shutting down")
		return
	}
	s.mu.Lock()
	if s.active != uuid.Nil {
		active := s.active
		s.mu.Unlock()
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":  "a run is already in progress",
			"run_id": active.String(),
		})
		return
	}
	runID, err := s.runner.NewRunID()
	if err != nil {
		s.mu.Unlock()
		s.logger.Error("run id generation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to issue run id")
		return
	}
	s.active = runID
	s.wg.Add(1)
	s.mu.Unlock()

	go s.execute(runID)
	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID.String()})
}

func (s *Server) execute(runID uuid.UUID) {
	defer s.wg.Done()
	logger := s.logger.With(zap.String("run_id", runID.String()))

	var (
		out app.Outcome
		err error
	)
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("run panicked: %v", rec)
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.active = uuid.Nil
		s.lastErr = err
		if out.Report.RunID != uuid.Nil {
			s.latest = &out
		}
		if err != nil {
			logger.Error("run failed", zap.Error(err))
			return
		}
		logger.Info("run complete",
			zap.Int("records", out.Report.Total()),
			zap.Int("failed_sources", out.Failed()),
			zap.String("uri", out.URI),
		)
	}()
	out, err = s.runner.RunWithID(s.baseCtx, runID)
}

func (s *Server) latestRun(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	latest := s.latest
	lastErr := s.lastErr
	s.mu.Unlock()

	if latest == nil {
		writeError(w, http.StatusNotFound, "no completed run")
		return
	}
	if latest.URI != "" {
		w.Header().Set("X-Report-URI", latest.URI)
	}
	if lastErr != nil {
		w.Header().Set("X-Report-Error", lastErr.Error())
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := report.Render(w, latest.Report, report.FormatJSON, report.DefaultPriorityBonus); err != nil {
		s.logger.Error("render latest report failed", zap.Error(err))
	}
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestID returns the ID assigned by the request ID middleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Debug("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", RequestID(r.Context())),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rec),
						zap.String("request_id", RequestID(r.Context())),
					)
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

type requestIDKey struct{}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
