// Package query answers each supported telemetry query by orchestrating the
// epoch index, kinematics calculations, and the geolocation resolver over
// the current dataset snapshot.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/LoreGonzalez883/ISS-Tracker-App/internal/geocode"
	"github.com/LoreGonzalez883/ISS-Tracker-App/internal/index"
	"github.com/LoreGonzalez883/ISS-Tracker-App/internal/kinematics"
	"github.com/LoreGonzalez883/ISS-Tracker-App/internal/oem"
)

// Clock supplies the current instant for the /now query; swapped for a fixed
// clock in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall-clock provider.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// indexCache holds the epoch index built for a specific dataset snapshot.
// Immutable after construction; safe for concurrent reads.
type indexCache struct {
	ix      *index.Index
	dataset *oem.Dataset
}

// Service is the stateless query orchestrator. Each operation reads one
// dataset snapshot for its whole duration, so a concurrent refresh can never
// produce a mixed view.
type Service struct {
	store    *oem.Store
	resolver *geocode.Resolver
	clock    Clock
	logger   *slog.Logger

	cache   atomic.Pointer[indexCache]
	cacheMu sync.Mutex // serializes index rebuilds
}

// NewService creates a query service over the given store and resolver.
// A nil clock defaults to the system wall clock.
func NewService(store *oem.Store, resolver *geocode.Resolver, clock Clock, logger *slog.Logger) *Service {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Service{
		store:    store,
		resolver: resolver,
		clock:    clock,
		logger:   logger,
	}
}

// snapshot returns the current dataset and its epoch index. The index is
// rebuilt only when the snapshot pointer changes (double-checked locking).
func (s *Service) snapshot() (*oem.Dataset, *index.Index, error) {
	ds := s.store.Get()
	if ds == nil {
		return nil, nil, fmt.Errorf("%w: no dataset loaded", index.ErrEmptyDataset)
	}

	if c := s.cache.Load(); c != nil && c.dataset == ds {
		return ds, c.ix, nil
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if c := s.cache.Load(); c != nil && c.dataset == ds {
		return ds, c.ix, nil
	}

	ix := index.New(ds)
	s.logger.Debug("epoch index rebuilt", "state_vectors", ix.Len())
	s.cache.Store(&indexCache{ix: ix, dataset: ds})
	return ds, ix, nil
}

// Comments returns the dataset's comment block verbatim.
func (s *Service) Comments() ([]string, error) {
	ds, _, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return ds.Comments, nil
}

// Header returns the OEM file header.
func (s *Service) Header() (oem.Header, error) {
	ds, _, err := s.snapshot()
	if err != nil {
		return oem.Header{}, err
	}
	return ds.Header, nil
}

// Metadata returns the trajectory segment metadata.
func (s *Service) Metadata() (oem.Metadata, error) {
	ds, _, err := s.snapshot()
	if err != nil {
		return oem.Metadata{}, err
	}
	return ds.Metadata, nil
}

// Epochs lists state vectors in source order, optionally windowed by
// limit/offset.
func (s *Service) Epochs(limit, offset *int) ([]oem.StateVector, error) {
	_, ix, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return ix.List(limit, offset)
}

// Epoch returns the state vector with the exact epoch timestamp.
func (s *Service) Epoch(ts string) (oem.StateVector, error) {
	_, ix, err := s.snapshot()
	if err != nil {
		return oem.StateVector{}, err
	}
	return ix.Find(ts)
}

// Speed returns the instantaneous speed in km/s at the given epoch.
func (s *Service) Speed(ts string) (float64, error) {
	sv, err := s.Epoch(ts)
	if err != nil {
		return 0, err
	}
	return kinematics.Speed(sv.Velocity)
}

// Location is a resolved sub-point; it serializes as the 4-element JSON
// array [latitude, longitude, altitude_km, place].
type Location struct {
	Latitude  float64
	Longitude float64
	Altitude  float64
	Place     string
}

// MarshalJSON renders the location as [lat, lon, alt, place].
func (l Location) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{l.Latitude, l.Longitude, l.Altitude, l.Place})
}

// Location returns the geodetic sub-point and place name at the given epoch.
func (s *Service) Location(ctx context.Context, ts string) (Location, error) {
	sv, err := s.Epoch(ts)
	if err != nil {
		return Location{}, err
	}
	return s.locate(ctx, sv)
}

func (s *Service) locate(ctx context.Context, sv oem.StateVector) (Location, error) {
	geo, err := kinematics.ECIToGeodetic(sv.Position, sv.EpochTime)
	if err != nil {
		return Location{}, err
	}
	place := s.resolver.Resolve(ctx, geo.Latitude, geo.Longitude)
	return Location{
		Latitude:  geo.Latitude,
		Longitude: geo.Longitude,
		Altitude:  geo.Altitude,
		Place:     place,
	}, nil
}

// NowState is the combined current-state record: the nearest-past epoch's
// fields merged with derived speed, coordinates, altitude, and place name.
type NowState struct {
	StateVector oem.StateVector
	Speed       float64
	Location    Location
}

// MarshalJSON merges the epoch fields with the derived quantities, keeping
// the upstream key spelling (including "ALTITUDE (km)").
func (n NowState) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"EPOCH":         n.StateVector.Epoch,
		"X":             n.StateVector.X,
		"Y":             n.StateVector.Y,
		"Z":             n.StateVector.Z,
		"X_DOT":         n.StateVector.XDot,
		"Y_DOT":         n.StateVector.YDot,
		"Z_DOT":         n.StateVector.ZDot,
		"SPEED":         n.Speed,
		"COORDINATES":   fmt.Sprintf("(%v, %v)", n.Location.Latitude, n.Location.Longitude),
		"ALTITUDE (km)": n.Location.Altitude,
		"LOCATION":      n.Location.Place,
	})
}

// TrackPoint is a lightweight current-state sample for streaming: the
// nearest-past record plus derived speed and sub-point, without a place
// name (no geocoder round-trip per tick).
type TrackPoint struct {
	Epoch     string     `json:"epoch"`
	Position  [3]float64 `json:"position_km"`
	Speed     float64    `json:"speed_km_s"`
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Altitude  float64    `json:"altitude_km"`
}

// Track resolves the nearest-past record for the given instant and derives
// its speed and geodetic sub-point.
func (s *Service) Track(at time.Time) (TrackPoint, error) {
	_, ix, err := s.snapshot()
	if err != nil {
		return TrackPoint{}, err
	}

	sv, err := ix.NearestPast(at.UTC())
	if err != nil {
		return TrackPoint{}, err
	}

	speed, err := kinematics.Speed(sv.Velocity)
	if err != nil {
		return TrackPoint{}, err
	}
	geo, err := kinematics.ECIToGeodetic(sv.Position, sv.EpochTime)
	if err != nil {
		return TrackPoint{}, err
	}

	return TrackPoint{
		Epoch:     sv.Epoch,
		Position:  [3]float64{sv.Position.X, sv.Position.Y, sv.Position.Z},
		Speed:     speed,
		Latitude:  geo.Latitude,
		Longitude: geo.Longitude,
		Altitude:  geo.Altitude,
	}, nil
}

// Now resolves the nearest-past epoch for the current instant and derives
// its speed, sub-point, and place name.
func (s *Service) Now(ctx context.Context) (NowState, error) {
	_, ix, err := s.snapshot()
	if err != nil {
		return NowState{}, err
	}

	sv, err := ix.NearestPast(s.clock.Now().UTC())
	if err != nil {
		return NowState{}, err
	}

	speed, err := kinematics.Speed(sv.Velocity)
	if err != nil {
		return NowState{}, err
	}

	loc, err := s.locate(ctx, sv)
	if err != nil {
		return NowState{}, err
	}

	return NowState{
		StateVector: sv,
		Speed:       speed,
		Location:    loc,
	}, nil
}
