package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LoreGonzalez883/ISS-Tracker-App/internal/api"
	"github.com/LoreGonzalez883/ISS-Tracker-App/internal/config"
	"github.com/LoreGonzalez883/ISS-Tracker-App/internal/geocode"
	"github.com/LoreGonzalez883/ISS-Tracker-App/internal/metrics"
	"github.com/LoreGonzalez883/ISS-Tracker-App/internal/oem"
	"github.com/LoreGonzalez883/ISS-Tracker-App/internal/query"
	"github.com/LoreGonzalez883/ISS-Tracker-App/internal/stream"
)

func main() {
	bootLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load(bootLogger)
	if err != nil {
		bootLogger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	store := oem.NewStore()
	fetcher := oem.NewFetcher(cfg.Dataset.SourceURL)

	// The ephemeris must be loaded before the server takes traffic; a bad
	// or unreachable dataset is fatal at startup.
	loadCtx, cancel := context.WithTimeout(context.Background(), cfg.FetchTimeout())
	if err := loadDataset(loadCtx, fetcher, store, logger); err != nil {
		cancel()
		logger.Error("initial ephemeris load failed", "source", fetcher.Source(), "error", err)
		os.Exit(1)
	}
	cancel()

	geocoder := geocode.NewNominatimClient(cfg.Geocode.Endpoint)
	resolver := geocode.NewResolver(geocoder, time.Duration(cfg.Geocode.TimeoutSeconds)*time.Second, logger)
	svc := query.NewService(store, resolver, query.SystemClock{}, logger)

	var streamHandler *stream.Handler
	if cfg.Stream.Enabled {
		streamHandler = stream.NewHandler(svc, store, stream.Config{
			MaxConcurrentPerIP: cfg.Stream.MaxConcurrentPerIP,
			Interval:           time.Duration(cfg.Stream.IntervalSeconds) * time.Second,
			KeepaliveInterval:  time.Duration(cfg.Stream.KeepaliveSeconds) * time.Second,
			TrustProxy:         cfg.Server.TrustProxy,
		}, logger)
	}

	srv := api.NewServer(api.Config{
		Addr:       cfg.Server.Addr,
		TrustProxy: cfg.Server.TrustProxy,
	}, logger, svc, store, streamHandler)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Background goroutine to update the dataset age gauge.
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				age := store.AgeSeconds()
				if age >= 0 {
					metrics.SetDatasetAge(age)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// Periodic refresh keeps serving the old dataset if a fetch fails.
	if interval := cfg.RefreshInterval(); interval > 0 {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					refreshCtx, cancel := context.WithTimeout(ctx, cfg.FetchTimeout())
					if err := loadDataset(refreshCtx, fetcher, store, logger); err != nil {
						logger.Warn("ephemeris refresh failed, keeping current dataset", "error", err)
					}
					cancel()
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		logger.Info("starting server",
			"addr", cfg.Server.Addr,
			"source", fetcher.Source(),
			"stream_enabled", cfg.Stream.Enabled,
			"refresh_interval", cfg.RefreshInterval().String(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// loadDataset fetches and parses the OEM document and swaps it into the store.
func loadDataset(ctx context.Context, fetcher *oem.Fetcher, store *oem.Store, logger *slog.Logger) error {
	data, err := fetcher.Fetch(ctx)
	if err != nil {
		return err
	}

	ds, err := oem.Parse(bytes.NewReader(data))
	if err != nil {
		return err
	}
	ds.Source = fetcher.Source()
	ds.FetchedAt = time.Now().UTC()

	store.Set(ds)
	metrics.SetDatasetEpochs(len(ds.StateVectors))
	metrics.SetDatasetAge(0)

	logger.Info("ephemeris dataset loaded",
		"source", ds.Source,
		"epochs", len(ds.StateVectors),
		"first_epoch", ds.StateVectors[0].Epoch,
		"last_epoch", ds.StateVectors[len(ds.StateVectors)-1].Epoch,
	)
	return nil
}
