package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isstrack_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "isstrack_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	datasetEpochs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "isstrack_dataset_epochs",
			Help: "Number of state vectors in the current OEM dataset.",
		},
	)

	datasetAgeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "isstrack_dataset_age_seconds",
			Help: "Age of the current OEM dataset in seconds.",
		},
	)

	geocodeLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isstrack_geocode_lookups_total",
			Help: "Reverse geocode lookups by outcome (resolved, fallback).",
		},
		[]string{"outcome"},
	)

	streamConnectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isstrack_stream_connections_total",
			Help: "SSE stream connection events (connect, disconnect).",
		},
		[]string{"event"},
	)

	streamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "isstrack_streams_active",
			Help: "Currently connected SSE streams.",
		},
	)

	streamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isstrack_stream_errors_total",
			Help: "SSE stream errors by reason.",
		},
		[]string{"reason"},
	)

	streamMessagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "isstrack_stream_messages_total",
			Help: "Total SSE data messages sent.",
		},
	)

	streamBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "isstrack_stream_bytes_total",
			Help: "Total bytes written to SSE streams.",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
	prometheus.MustRegister(datasetEpochs)
	prometheus.MustRegister(datasetAgeSeconds)
	prometheus.MustRegister(geocodeLookupsTotal)
	prometheus.MustRegister(streamConnectionsTotal)
	prometheus.MustRegister(streamsActive)
	prometheus.MustRegister(streamErrorsTotal)
	prometheus.MustRegister(streamMessagesTotal)
	prometheus.MustRegister(streamBytesTotal)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetDatasetEpochs records the state vector count of the current dataset.
func SetDatasetEpochs(n int) {
	datasetEpochs.Set(float64(n))
}

// SetDatasetAge records the age of the current dataset in seconds.
func SetDatasetAge(seconds float64) {
	datasetAgeSeconds.Set(seconds)
}

// IncGeocodeLookup records a reverse geocode outcome ("resolved" or "fallback").
func IncGeocodeLookup(outcome string) {
	geocodeLookupsTotal.WithLabelValues(outcome).Inc()
}

// IncStreamConnections records a stream connect/disconnect event.
func IncStreamConnections(event string) {
	streamConnectionsTotal.WithLabelValues(event).Inc()
}

// IncStreamsActive increments the active stream gauge.
func IncStreamsActive() {
	streamsActive.Inc()
}

// DecStreamsActive decrements the active stream gauge.
func DecStreamsActive() {
	streamsActive.Dec()
}

// IncStreamErrors records a stream error by reason.
func IncStreamErrors(reason string) {
	streamErrorsTotal.WithLabelValues(reason).Inc()
}

// IncStreamMessages counts one SSE data message.
func IncStreamMessages() {
	streamMessagesTotal.Inc()
}

// AddStreamBytes adds to the SSE bytes-written counter.
func AddStreamBytes(n int64) {
	streamBytesTotal.Add(float64(n))
}

// normalizeRoute collapses request paths to a bounded label set so arbitrary
// epoch strings (and bot probes) cannot blow up metric cardinality.
func normalizeRoute(path string) string {
	switch path {
	case "/", "/comment", "/header", "/metadata", "/epochs", "/now",
		"/healthz", "/readyz", "/metrics", "/stream/now":
		return path
	}

	if rest, ok := strings.CutPrefix(path, "/epochs/"); ok {
		switch {
		case strings.HasSuffix(rest, "/speed") && strings.Count(rest, "/") == 1:
			return "/epochs/{epoch}/speed"
		case strings.HasSuffix(rest, "/location") && strings.Count(rest, "/") == 1:
			return "/epochs/{epoch}/location"
		case !strings.Contains(rest, "/"):
			return "/epochs/{epoch}"
		}
	}

	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush forwards to the wrapped writer so SSE handlers behind this
// middleware can still stream.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
