package oem

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// DefaultSourceURL is NASA's public ISS OEM ephemeris.
const DefaultSourceURL = "https://nasa-public-data.s3.amazonaws.com/iss-coords/current/ISS_OEM/ISS.OEM_J2K_EPH.xml"

// maxBodyBytes caps the fetched document size. The OEM file is a few MB;
// anything near this limit indicates a broken source.
const maxBodyBytes = 50 * 1024 * 1024

// Fetcher retrieves the raw OEM XML from an HTTP(S) URL or a local file path.
type Fetcher struct {
	source     string
	httpClient *http.Client
}

// NewFetcher creates a Fetcher for the given source. An empty source falls
// back to the NASA public URL. Sources without an http:// or https:// scheme
// are treated as local file paths.
func NewFetcher(source string) *Fetcher {
	if source == "" {
		source = DefaultSourceURL
	}
	return &Fetcher{
		source: source,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Source returns the configured source URL or path.
func (f *Fetcher) Source() string {
	return f.source
}

// Fetch returns the raw OEM document bytes.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	if !strings.HasPrefix(f.source, "http://") && !strings.HasPrefix(f.source, "https://") {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(f.source)
		if err != nil {
			return nil, fmt.Errorf("reading OEM file: %w", err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.source, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching OEM data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, f.source)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("response exceeds %d byte limit", maxBodyBytes)
	}

	return body, nil
}
