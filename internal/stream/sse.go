// Package stream implements Server-Sent Events (SSE) streaming of the
// station's current state. Clients connect via GET /stream/now and receive
// a periodic stream of nearest-past track points.
//
// SSE message format:
//
//	data: {"type":"track","epoch":"2024-066T12:00:00.000Z","position_km":[...],...}\n\n
//
// First message is always metadata:
//
//	data: {"type":"metadata","dataset_fetched":"...","dataset_age_seconds":1800,"epochs":5760}\n\n
//
// Keep-alive comments (:\n\n) are sent every KeepaliveInterval to prevent timeout.
// Reconnecting clients receive a fresh metadata message on each connection.
package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/LoreGonzalez883/ISS-Tracker-App/internal/httputil"
	"github.com/LoreGonzalez883/ISS-Tracker-App/internal/metrics"
	"github.com/LoreGonzalez883/ISS-Tracker-App/internal/oem"
	"github.com/LoreGonzalez883/ISS-Tracker-App/internal/query"
)

// Config holds streaming configuration.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per IP (default: 10).
	Interval           time.Duration // Default emit interval (default: 5s).
	KeepaliveInterval  time.Duration // Keep-alive ping interval (default: 30s).
	TrustProxy         bool          // Trust X-Forwarded-For for client IP.
}

// Handler manages SSE streaming connections.
type Handler struct {
	svc     *query.Service
	store   *oem.Store
	config  Config
	limiter *connLimiter
	logger  *slog.Logger
}

// NewHandler creates a new streaming handler.
func NewHandler(svc *query.Service, store *oem.Store, config Config, logger *slog.Logger) *Handler {
	if config.MaxConcurrentPerIP <= 0 {
		config.MaxConcurrentPerIP = 10
	}
	if config.Interval <= 0 {
		config.Interval = 5 * time.Second
	}
	if config.KeepaliveInterval <= 0 {
		config.KeepaliveInterval = 30 * time.Second
	}
	return &Handler{
		svc:     svc,
		store:   store,
		config:  config,
		limiter: newConnLimiter(config.MaxConcurrentPerIP, 0),
		logger:  logger,
	}
}

// HandleNow serves the SSE current-state stream.
// GET /stream/now?interval=5
func (h *Handler) HandleNow(w http.ResponseWriter, r *http.Request) {
	interval := h.config.Interval
	if v := r.URL.Query().Get("interval"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 60 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid interval parameter, must be 1-60"})
			return
		}
		interval = time.Duration(n) * time.Second
	}

	// Rate limiting: enforce concurrent stream limit per IP.
	ip := httputil.ClientIP(r, h.config.TrustProxy)
	if !h.limiter.acquire(ip) {
		metrics.IncStreamErrors("rate_limit")
		h.logger.Warn("stream rate limit exceeded",
			"remote_ip", ip,
			"current_count", h.limiter.count(ip),
		)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "too many concurrent streams"})
		return
	}

	metrics.IncStreamConnections("connect")
	metrics.IncStreamsActive()

	startTime := time.Now()
	h.logger.Info("stream connected",
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
		"interval", interval.String(),
	)

	// Cleanup on disconnect: release rate limit slot and update metrics.
	defer func() {
		h.limiter.release(ip)
		metrics.IncStreamConnections("disconnect")
		metrics.DecStreamsActive()
		h.logger.Info("stream disconnected",
			"remote_ip", ip,
			"duration_seconds", int(time.Since(startTime).Seconds()),
		)
	}()

	// Verify flusher support (required for SSE).
	flusher, ok := w.(http.Flusher)
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "streaming not supported"})
		return
	}

	// Set SSE response headers.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Use ResponseController to manage write deadlines for long-lived SSE.
	// Clear the server's default WriteTimeout for this connection.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}

	c := &client{
		w:       w,
		flusher: flusher,
		rc:      rc,
		ip:      ip,
		logger:  h.logger,
	}

	// Send jittered retry interval (3-7s) to prevent thundering-herd
	// reconnection storms when the server restarts.
	retryMs := 3000 + rand.Intn(4000)
	fmt.Fprintf(w, "retry: %d\n\n", retryMs)
	flusher.Flush()

	// Send metadata message (first message on every connection).
	if ds := h.store.Get(); ds != nil {
		meta := metadataMessage{
			Type:           "metadata",
			DatasetFetched: ds.FetchedAt.UTC().Format(time.RFC3339),
			DatasetAge:     int(time.Since(ds.FetchedAt).Seconds()),
			Epochs:         len(ds.StateVectors),
		}
		if err := c.sendJSON(meta); err != nil {
			metrics.IncStreamErrors("send_error")
			h.logger.Warn("stream send error (metadata)", "remote_ip", ip, "error", err)
			return
		}
	}

	// Send the first track point immediately, then tick.
	if err := h.sendTrack(c, time.Now()); err != nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	keepaliveTicker := time.NewTicker(h.config.KeepaliveInterval)
	defer keepaliveTicker.Stop()

	ctx := r.Context()

	for {
		select {
		case <-ctx.Done():
			return

		case t := <-ticker.C:
			if err := h.sendTrack(c, t); err != nil {
				return
			}
			// Reset keepalive since we just sent data.
			keepaliveTicker.Reset(h.config.KeepaliveInterval)

		case <-keepaliveTicker.C:
			if err := c.sendKeepalive(); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("stream keepalive error", "remote_ip", ip, "error", err)
				return
			}
		}
	}
}

// sendTrack derives and sends the track point for the given instant.
// A non-nil return means the connection is dead and the loop must exit;
// derivation failures (no dataset loaded yet) are logged and skipped so
// the stream survives a pending first load.
func (h *Handler) sendTrack(c *client, at time.Time) error {
	tp, err := h.svc.Track(at)
	if err != nil {
		metrics.IncStreamErrors("derive_error")
		h.logger.Debug("stream track derivation failed", "remote_ip", c.ip, "error", err)
		return nil
	}
	msg := trackMessage{
		Type:       "track",
		TrackPoint: tp,
	}
	if err := c.sendJSON(msg); err != nil {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("stream send error", "remote_ip", c.ip, "error", err)
		return err
	}
	return nil
}

// SSE message payload types.

type metadataMessage struct {
	Type           string `json:"type"`
	DatasetFetched string `json:"dataset_fetched"`
	DatasetAge     int    `json:"dataset_age_seconds"`
	Epochs         int    `json:"epochs"`
}

type trackMessage struct {
	Type string `json:"type"`
	query.TrackPoint
}
