// Package web serves the LunaCare JSON API used by the browser front end.
package web

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hbiui/LunaCare/internal/advisor"
	"github.com/hbiui/LunaCare/internal/cache"
	"github.com/hbiui/LunaCare/internal/logging"
	"github.com/hbiui/LunaCare/internal/metrics"
)

// Options holds the dependencies of the HTTP server.
type Options struct {
	DB       *sql.DB
	Advisor  *advisor.Advisor
	Cache    *cache.Cache        // cleared by POST /api/clear; may be nil
	Gatherer prometheus.Gatherer // served on /metrics when set
	Logger   *zap.Logger
}

// NewServer creates and configures the HTTP server.
func NewServer(opts Options, bind string, port int) *http.Server {
	logger := logging.OrNop(opts.Logger)
	h := &Handlers{
		db:      opts.DB,
		advisor: opts.Advisor,
		cache:   opts.Cache,
		logger:  logger,
	}

	mux := http.NewServeMux()

	// Routes using Go 1.22+ pattern syntax
	mux.HandleFunc("GET /api/logs", h.HandleListLogs)
	mux.HandleFunc("POST /api/logs", h.HandleAddLog)
	mux.HandleFunc("PUT /api/logs/{id}", h.HandleUpdateLog)
	mux.HandleFunc("DELETE /api/logs/{id}", h.HandleDeleteLog)
	mux.HandleFunc("POST /api/clear", h.HandleClear)
	mux.HandleFunc("GET /api/status", h.HandleStatus)
	mux.HandleFunc("GET /api/predict", h.HandlePredict)
	mux.HandleFunc("GET /api/stats", h.HandleStats)
	mux.HandleFunc("POST /api/advice", h.HandleAdvice)
	mux.HandleFunc("POST /api/advice/stream", h.HandleAdviceStream)
	mux.HandleFunc("GET /api/tip", h.HandleTip)
	mux.HandleFunc("GET /api/topics", h.HandleTopics)
	mux.HandleFunc("GET /api/symptoms", h.HandleListSymptoms)
	mux.HandleFunc("POST /api/symptoms", h.HandleAddSymptom)
	mux.HandleFunc("DELETE /api/symptoms/{name}", h.HandleDeleteSymptom)

	if opts.Gatherer != nil {
		mux.Handle("GET /metrics", metrics.Handler(opts.Gatherer))
	}

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           securityHeaders(accessLog(logger, mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for access logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE responses working through the recorder.
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// accessLog logs one debug line per request.
func accessLog(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server, logger *zap.Logger) error {
	logger = logging.OrNop(logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("LunaCare API listening", zap.String("addr", "http://"+srv.Addr))

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		logger.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
