package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/LoreGonzalez883/ISS-Tracker-App/internal/metrics"
)

// writeDeadline bounds each individual SSE write; the connection itself has
// no overall deadline.
const writeDeadline = 30 * time.Second

// client wraps one SSE connection's write side.
type client struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
	ip      string
	logger  *slog.Logger
}

// sendJSON emits v as an SSE data message: "data: {json}\n\n".
func (c *client) sendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	n, err := c.write("data: " + string(data) + "\n\n")
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}
	metrics.IncStreamMessages()
	metrics.AddStreamBytes(int64(n))
	return nil
}

// sendKeepalive emits an SSE comment line (":\n\n").
func (c *client) sendKeepalive() error {
	n, err := c.write(":\n\n")
	if err != nil {
		return fmt.Errorf("keepalive write: %w", err)
	}
	metrics.AddStreamBytes(int64(n))
	return nil
}

// write pushes one frame and flushes it, extending the per-write deadline
// first so long-lived connections do not trip the server write timeout.
func (c *client) write(frame string) (int, error) {
	if err := c.rc.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		c.logger.Debug("could not set write deadline", "error", err)
	}
	n, err := fmt.Fprint(c.w, frame)
	if err != nil {
		return n, err
	}
	c.flusher.Flush()
	return n, nil
}
