package geocode

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

func TestNominatimLookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("zoom"); got != "20" {
			t.Errorf("zoom = %q, want 20", got)
		}
		if got := r.URL.Query().Get("accept-language"); got != "en" {
			t.Errorf("accept-language = %q, want en", got)
		}
		if got := r.Header.Get("User-Agent"); got == "" {
			t.Error("missing User-Agent header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"display_name":"Quito, Pichincha, Ecuador"}`))
	}))
	defer server.Close()

	client := NewNominatimClient(server.URL)
	place, err := client.Lookup(context.Background(), -0.22, -78.51)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if place != "Quito, Pichincha, Ecuador" {
		t.Errorf("place = %q", place)
	}
}

// TestNominatimNoResult covers the "Unable to geocode" response the API
// returns over open water: no place, no error.
func TestNominatimNoResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error":"Unable to geocode"}`))
	}))
	defer server.Close()

	client := NewNominatimClient(server.URL)
	place, err := client.Lookup(context.Background(), -44.0, -130.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if place != "" {
		t.Errorf("place = %q, want empty", place)
	}
}

func TestNominatimHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewNominatimClient(server.URL)
	if _, err := client.Lookup(context.Background(), 0, 0); err == nil {
		t.Fatal("expected error for 429 response, got nil")
	}
}

// stubGeocoder lets resolver tests script the capability's behavior.
type stubGeocoder struct {
	place string
	err   error
	delay time.Duration
}

func (s *stubGeocoder) Lookup(ctx context.Context, lat, lon float64) (string, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.place, s.err
}

func TestResolverFallback(t *testing.T) {
	tests := []struct {
		name string
		stub *stubGeocoder
		want string
	}{
		{"named place", &stubGeocoder{place: "Sahara, Algeria"}, "Sahara, Algeria"},
		{"no result over water", &stubGeocoder{place: ""}, OverOcean},
		{"capability error", &stubGeocoder{err: errors.New("boom")}, OverOcean},
		{"slow lookup times out", &stubGeocoder{place: "too late", delay: time.Second}, OverOcean},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.stub, 50*time.Millisecond, testLogger)
			got := r.Resolve(context.Background(), 10, 20)
			if got != tt.want {
				t.Errorf("Resolve = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestResolverBoundedWait verifies the resolver returns promptly rather than
// hanging on a stalled capability.
func TestResolverBoundedWait(t *testing.T) {
	r := NewResolver(&stubGeocoder{place: "x", delay: 10 * time.Second}, 50*time.Millisecond, testLogger)

	start := time.Now()
	got := r.Resolve(context.Background(), 0, 0)
	elapsed := time.Since(start)

	if got != OverOcean {
		t.Errorf("Resolve = %q, want %q", got, OverOcean)
	}
	if elapsed > time.Second {
		t.Errorf("Resolve took %v, want bounded wait", elapsed)
	}
}
