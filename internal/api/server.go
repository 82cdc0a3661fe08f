package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/LoreGonzalez883/ISS-Tracker-App/internal/health"
	"github.com/LoreGonzalez883/ISS-Tracker-App/internal/httputil"
	"github.com/LoreGonzalez883/ISS-Tracker-App/internal/metrics"
	"github.com/LoreGonzalez883/ISS-Tracker-App/internal/oem"
	"github.com/LoreGonzalez883/ISS-Tracker-App/internal/query"
	"github.com/LoreGonzalez883/ISS-Tracker-App/internal/stream"
)

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// Config holds server-level settings.
type Config struct {
	Addr       string
	TrustProxy bool
}

// NewServer creates a configured HTTP server over the query service.
// streamHandler may be nil to disable the SSE endpoint.
func NewServer(cfg Config, logger *slog.Logger, svc *query.Service, store *oem.Store, streamHandler *stream.Handler) *Server {
	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(store))
	mux.Handle("GET /metrics", metrics.Handler())

	h := &handlers{svc: svc, logger: logger}
	mux.HandleFunc("GET /comment", h.comments)
	mux.HandleFunc("GET /header", h.header)
	mux.HandleFunc("GET /metadata", h.metadata)
	mux.HandleFunc("GET /epochs", h.epochs)
	mux.HandleFunc("GET /epochs/{epoch}", h.epoch)
	mux.HandleFunc("GET /epochs/{epoch}/speed", h.speed)
	mux.HandleFunc("GET /epochs/{epoch}/location", h.location)
	mux.HandleFunc("GET /now", h.now)

	if streamHandler != nil {
		mux.HandleFunc("GET /stream/now", streamHandler.HandleNow)
	}

	// Build middleware chain: metrics -> logging -> mux.
	var handler http.Handler = mux
	handler = loggingMiddleware(logger, cfg.TrustProxy)(handler)
	handler = metrics.Middleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

// Flush forwards to the wrapped writer so SSE handlers behind this
// middleware can still stream.
func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func loggingMiddleware(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", httputil.ClientIP(r, trustProxy),
			)
		})
	}
}
