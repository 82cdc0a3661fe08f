// issdiag loads an OEM ephemeris from a file or URL and prints a summary
// plus the derived state for the current instant. Useful for checking a
// downloaded document without standing up the HTTP service.
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/LoreGonzalez883/ISS-Tracker-App/internal/kinematics"
	"github.com/LoreGonzalez883/ISS-Tracker-App/internal/oem"
)

func main() {
	source := ""
	if len(os.Args) > 1 {
		source = os.Args[1]
	}

	fetcher := oem.NewFetcher(source)
	fmt.Printf("Source: %s\n", fetcher.Source())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	data, err := fetcher.Fetch(ctx)
	if err != nil {
		fmt.Println("ERROR fetching OEM document:", err)
		os.Exit(1)
	}

	ds, err := oem.Parse(bytes.NewReader(data))
	if err != nil {
		fmt.Println("ERROR parsing OEM document:", err)
		os.Exit(1)
	}

	fmt.Printf("Originator: %s  created %s\n", ds.Header.Originator, ds.Header.CreationDate)
	fmt.Printf("Object: %s (%s)  frame %s  time system %s\n",
		ds.Metadata.ObjectName, ds.Metadata.ObjectID, ds.Metadata.RefFrame, ds.Metadata.TimeSystem)
	fmt.Printf("Coverage: %s .. %s\n", ds.Metadata.StartTime, ds.Metadata.StopTime)
	fmt.Printf("State vectors: %d\n", len(ds.StateVectors))
	fmt.Printf("Comments: %d\n", len(ds.Comments))

	now := time.Now().UTC()
	sv, ok := nearestPast(ds.StateVectors, now)
	if !ok {
		fmt.Println("\nNo record at or before the current instant; using earliest.")
		sv = ds.StateVectors[0]
	}

	fmt.Printf("\nNearest record for %s:\n", now.Format(time.RFC3339))
	fmt.Printf("  epoch    %s\n", sv.Epoch)
	fmt.Printf("  position (%.3f, %.3f, %.3f) km\n", sv.Position.X, sv.Position.Y, sv.Position.Z)

	speed, err := kinematics.Speed(sv.Velocity)
	if err != nil {
		fmt.Println("ERROR deriving speed:", err)
		os.Exit(1)
	}
	fmt.Printf("  speed    %.6f km/s\n", speed)

	geo, err := kinematics.ECIToGeodetic(sv.Position, sv.EpochTime)
	if err != nil {
		fmt.Println("ERROR deriving sub-point:", err)
		os.Exit(1)
	}
	fmt.Printf("  lat %.4f  lon %.4f  alt %.1f km\n", geo.Latitude, geo.Longitude, geo.Altitude)
}

// nearestPast returns the latest record at or before t.
func nearestPast(vectors []oem.StateVector, t time.Time) (oem.StateVector, bool) {
	for i := len(vectors) - 1; i >= 0; i-- {
		if !vectors[i].EpochTime.After(t) {
			return vectors[i], true
		}
	}
	return oem.StateVector{}, false
}
