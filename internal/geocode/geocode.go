// Package geocode resolves geodetic coordinates to a human-readable place
// name via an external reverse-geocoding capability.
//
// Geographic ambiguity over open ocean is an expected, non-exceptional
// outcome: the Resolver converts every lookup failure, timeout, or empty
// result into the literal fallback "Over Ocean" instead of propagating an
// error up the query path.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/LoreGonzalez883/ISS-Tracker-App/internal/metrics"
)

// OverOcean is the fallback place name when no named place is close enough.
const OverOcean = "Over Ocean"

// defaultEndpoint is the public Nominatim reverse-geocoding endpoint.
const defaultEndpoint = "https://nominatim.openstreetmap.org/reverse"

// maxBodyBytes caps a reverse-geocoding response; a single place record is
// well under this.
const maxBodyBytes = 1 * 1024 * 1024

// Geocoder is the external reverse-geocoding capability. Implementations
// return the place name for the coordinates, or an error / empty string when
// no named place is known there.
type Geocoder interface {
	Lookup(ctx context.Context, lat, lon float64) (string, error)
}

// NominatimClient implements Geocoder against the OSM Nominatim HTTP API.
type NominatimClient struct {
	endpoint   string
	userAgent  string
	httpClient *http.Client
}

// NewNominatimClient creates a client for the given endpoint. An empty
// endpoint uses the public Nominatim instance.
func NewNominatimClient(endpoint string) *NominatimClient {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &NominatimClient{
		endpoint:  endpoint,
		userAgent: "iss-tracker-app",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// nominatimResponse is the subset of the reverse API response we read.
// An unmatched location returns {"error": "Unable to geocode"}.
type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// Lookup performs a reverse geocode at zoom 20 with English names.
// An empty place name with a nil error means "no named place here".
func (c *NominatimClient) Lookup(ctx context.Context, lat, lon float64) (string, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("format", "jsonv2")
	q.Set("zoom", "20")
	q.Set("accept-language", "en")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("reverse geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, c.endpoint)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("reading response body: %w", err)
	}

	var parsed nominatimResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if parsed.Error != "" {
		return "", nil // no result: not an error condition
	}
	return parsed.DisplayName, nil
}

// Resolver applies the caller-side policy around a Geocoder: a bounded wait,
// and the OverOcean fallback for every non-prompt-success outcome.
type Resolver struct {
	geocoder Geocoder
	timeout  time.Duration
	logger   *slog.Logger
}

// NewResolver wraps a Geocoder with the given per-lookup timeout.
// A non-positive timeout defaults to 5s.
func NewResolver(g Geocoder, timeout time.Duration, logger *slog.Logger) *Resolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Resolver{
		geocoder: g,
		timeout:  timeout,
		logger:   logger,
	}
}

// Resolve maps coordinates to a place name, or OverOcean when the capability
// errors, times out, or returns no result. It never returns an error.
func (r *Resolver) Resolve(ctx context.Context, lat, lon float64) string {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	place, err := r.geocoder.Lookup(ctx, lat, lon)
	if err != nil {
		r.logger.Debug("reverse geocode failed, using fallback",
			"lat", lat,
			"lon", lon,
			"error", err,
		)
		metrics.IncGeocodeLookup("fallback")
		return OverOcean
	}
	if place == "" {
		metrics.IncGeocodeLookup("fallback")
		return OverOcean
	}
	metrics.IncGeocodeLookup("resolved")
	return place
}
