package query

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/LoreGonzalez883/ISS-Tracker-App/internal/geocode"
	"github.com/LoreGonzalez883/ISS-Tracker-App/internal/index"
	"github.com/LoreGonzalez883/ISS-Tracker-App/internal/oem"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type stubGeocoder struct {
	place string
	err   error
}

func (s *stubGeocoder) Lookup(ctx context.Context, lat, lon float64) (string, error) {
	return s.place, s.err
}

const testDocument = `<ndm>
  <oem id="CCSDS_OEM_VERS" version="2.0">
    <header>
      <CREATION_DATE>2024-067T18:36:27.254Z</CREATION_DATE>
      <ORIGINATOR>NASA/JSC/FOD/TOPO</ORIGINATOR>
    </header>
    <body>
      <segment>
        <metadata>
          <OBJECT_NAME>ISS</OBJECT_NAME>
          <OBJECT_ID>1998-067-A</OBJECT_ID>
          <CENTER_NAME>EARTH</CENTER_NAME>
          <REF_FRAME>EME2000</REF_FRAME>
          <TIME_SYSTEM>UTC</TIME_SYSTEM>
          <START_TIME>2024-066T12:00:00.000Z</START_TIME>
          <STOP_TIME>2024-066T12:04:00.000Z</STOP_TIME>
        </metadata>
        <data>
          <COMMENT>Units are in kg and m^2</COMMENT>
          <stateVector>
            <EPOCH>2024-066T12:00:00.000Z</EPOCH>
            <X units="km">4268.0238143340603</X>
            <Y units="km">122.835306274768</Y>
            <Z units="km">-5269.065554518155</Z>
            <X_DOT units="km/s">-1.21858691211102</X_DOT>
            <Y_DOT units="km/s">7.46523716714957</Y_DOT>
            <Z_DOT units="km/s">-1.1564316136170727</Z_DOT>
          </stateVector>
          <stateVector>
            <EPOCH>2024-066T12:04:00.000Z</EPOCH>
            <X units="km">3362.12151714458</X>
            <Y units="km">1861.99582867489</Y>
            <Z units="km">-5570.45399303469</Z>
            <X_DOT units="km/s">-6.30919812743459</X_DOT>
            <Y_DOT units="km/s">3.24140041307548</Y_DOT>
            <Z_DOT units="km/s">-2.48438502062159</Z_DOT>
          </stateVector>
        </data>
      </segment>
    </body>
  </oem>
</ndm>`

func testService(t *testing.T, clock Clock, g geocode.Geocoder) *Service {
	t.Helper()
	ds, err := oem.Parse(strings.NewReader(testDocument))
	if err != nil {
		t.Fatalf("parsing test document: %v", err)
	}
	ds.FetchedAt = time.Now()
	store := oem.NewStore()
	store.Set(ds)

	resolver := geocode.NewResolver(g, time.Second, testLogger)
	return NewService(store, resolver, clock, testLogger)
}

func TestServiceEpochs(t *testing.T) {
	s := testService(t, nil, &stubGeocoder{})

	all, err := s.Epochs(nil, nil)
	if err != nil {
		t.Fatalf("Epochs: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d epochs, want 2", len(all))
	}

	one := 1
	first, err := s.Epochs(&one, nil)
	if err != nil {
		t.Fatalf("Epochs(limit=1): %v", err)
	}
	if len(first) != 1 || first[0].Epoch != "2024-066T12:00:00.000Z" {
		t.Errorf("limit=1 returned %+v, want first record", first)
	}
}

func TestServiceSpeed(t *testing.T) {
	s := testService(t, nil, &stubGeocoder{})

	speed, err := s.Speed("2024-066T12:00:00.000Z")
	if err != nil {
		t.Fatalf("Speed: %v", err)
	}
	if math.Abs(speed-7.651931396786866) > 1e-9 {
		t.Errorf("speed = %.15f, want 7.651931396786866", speed)
	}

	if _, err := s.Speed("2024-066T23:59:59.000Z"); !errors.Is(err, index.ErrNotFound) {
		t.Errorf("unknown epoch: got %v, want ErrNotFound", err)
	}
}

func TestServiceLocation(t *testing.T) {
	s := testService(t, nil, &stubGeocoder{place: ""})

	loc, err := s.Location(context.Background(), "2024-066T12:00:00.000Z")
	if err != nil {
		t.Fatalf("Location: %v", err)
	}
	if loc.Place != geocode.OverOcean {
		t.Errorf("place = %q, want %q", loc.Place, geocode.OverOcean)
	}
	if loc.Altitude < 400 || loc.Altitude > 450 {
		t.Errorf("altitude = %.1f, want 400-450 km", loc.Altitude)
	}

	data, err := json.Marshal(loc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var arr []any
	if err := json.Unmarshal(data, &arr); err != nil {
		t.Fatalf("location did not serialize as array: %v", err)
	}
	if len(arr) != 4 {
		t.Fatalf("location array has %d elements, want 4", len(arr))
	}
	if arr[3] != geocode.OverOcean {
		t.Errorf("array place = %v", arr[3])
	}
}

func TestServiceNow(t *testing.T) {
	// Between the two records: nearest past is the first.
	clock := fixedClock{t: time.Date(2024, 3, 6, 12, 2, 0, 0, time.UTC)}
	s := testService(t, clock, &stubGeocoder{place: "South Atlantic Anomaly"})

	now, err := s.Now(context.Background())
	if err != nil {
		t.Fatalf("Now: %v", err)
	}
	if now.StateVector.Epoch != "2024-066T12:00:00.000Z" {
		t.Errorf("epoch = %s, want first record", now.StateVector.Epoch)
	}
	if math.Abs(now.Speed-7.651931396786866) > 1e-9 {
		t.Errorf("speed = %v", now.Speed)
	}
	if now.Location.Place != "South Atlantic Anomaly" {
		t.Errorf("place = %q", now.Location.Place)
	}

	data, err := json.Marshal(now)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"EPOCH", "X", "Y", "Z", "X_DOT", "Y_DOT", "Z_DOT", "SPEED", "COORDINATES", "ALTITUDE (km)", "LOCATION"} {
		if _, ok := obj[key]; !ok {
			t.Errorf("missing key %q in /now payload", key)
		}
	}

	// Component fields keep the raw text/units shape.
	x, ok := obj["X"].(map[string]any)
	if !ok {
		t.Fatalf("X is %T, want object", obj["X"])
	}
	if x["#text"] != "4268.0238143340603" || x["@units"] != "km" {
		t.Errorf("X = %v", x)
	}
	coords, _ := obj["COORDINATES"].(string)
	if !strings.HasPrefix(coords, "(") || !strings.Contains(coords, ", ") {
		t.Errorf("COORDINATES = %q", coords)
	}
}

func TestServiceNowBeforeCoverage(t *testing.T) {
	// All records in the future: falls back to the earliest.
	clock := fixedClock{t: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	s := testService(t, clock, &stubGeocoder{})

	now, err := s.Now(context.Background())
	if err != nil {
		t.Fatalf("Now: %v", err)
	}
	if now.StateVector.Epoch != "2024-066T12:00:00.000Z" {
		t.Errorf("epoch = %s, want earliest record", now.StateVector.Epoch)
	}
}

func TestServiceNoDataset(t *testing.T) {
	store := oem.NewStore()
	resolver := geocode.NewResolver(&stubGeocoder{}, time.Second, testLogger)
	s := NewService(store, resolver, nil, testLogger)

	if _, err := s.Comments(); !errors.Is(err, index.ErrEmptyDataset) {
		t.Errorf("Comments with no dataset: got %v, want ErrEmptyDataset", err)
	}
	if _, err := s.Now(context.Background()); !errors.Is(err, index.ErrEmptyDataset) {
		t.Errorf("Now with no dataset: got %v, want ErrEmptyDataset", err)
	}
}

// TestServiceIndexReuse verifies the per-snapshot index is rebuilt only when
// the dataset pointer changes.
func TestServiceIndexReuse(t *testing.T) {
	s := testService(t, nil, &stubGeocoder{})

	_, ix1, err := s.snapshot()
	if err != nil {
		t.Fatal(err)
	}
	_, ix2, err := s.snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if ix1 != ix2 {
		t.Error("index rebuilt for unchanged snapshot")
	}

	ds, _ := oem.Parse(strings.NewReader(testDocument))
	s.store.Set(ds)
	_, ix3, err := s.snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if ix3 == ix1 {
		t.Error("index not rebuilt after snapshot swap")
	}
}
