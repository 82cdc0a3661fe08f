// Package kinematics derives scalar speed and geodetic sub-point coordinates
// from ISS state vectors.
//
// The geodetic conversion rotates the inertial longitude into the Earth-fixed
// frame using GMST (IAU-82, see gmst.go) rather than a fixed-rate-since-noon
// approximation. A spherical Earth model is used: the source ephemeris'
// precision does not warrant a full ellipsoid, and altitude is referenced to
// the mean equatorial radius.
package kinematics

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/LoreGonzalez883/ISS-Tracker-App/internal/oem"
)

// MeanEarthRadius is the spherical Earth radius in km used for altitude.
const MeanEarthRadius = 6378.1

// ErrInvalidVector reports non-finite components reaching a calculation,
// which indicates upstream data corruption.
var ErrInvalidVector = errors.New("non-finite vector component")

// Geodetic is a sub-point position: latitude/longitude in degrees,
// altitude in km above the mean Earth radius.
type Geodetic struct {
	Latitude  float64
	Longitude float64
	Altitude  float64
}

// Speed returns the Euclidean norm of a velocity vector in km/s.
func Speed(v oem.Vector3) (float64, error) {
	if !finite(v) {
		return 0, fmt.Errorf("%w: velocity {%v, %v, %v}", ErrInvalidVector, v.X, v.Y, v.Z)
	}
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z), nil
}

// ECIToGeodetic converts an Earth-centered inertial position (km) at time t
// to geodetic coordinates. Latitude uses the spherical approximation
// atan2(z, sqrt(x²+y²)); longitude is the inertial atan2(y, x) rotated by
// GMST(t) into the Earth-fixed frame and normalized to [-180, 180].
func ECIToGeodetic(p oem.Vector3, t time.Time) (Geodetic, error) {
	if !finite(p) {
		return Geodetic{}, fmt.Errorf("%w: position {%v, %v, %v}", ErrInvalidVector, p.X, p.Y, p.Z)
	}

	lat := math.Atan2(p.Z, math.Sqrt(p.X*p.X+p.Y*p.Y)) * 180.0 / math.Pi

	lonInertial := math.Atan2(p.Y, p.X) * 180.0 / math.Pi
	lon := normalizeLongitude(lonInertial - GMSTDegrees(t))

	alt := math.Sqrt(p.X*p.X+p.Y*p.Y+p.Z*p.Z) - MeanEarthRadius

	return Geodetic{
		Latitude:  lat,
		Longitude: lon,
		Altitude:  alt,
	}, nil
}

// normalizeLongitude wraps a longitude in degrees into [-180, 180].
func normalizeLongitude(lon float64) float64 {
	lon = math.Mod(lon, 360.0)
	if lon > 180.0 {
		lon -= 360.0
	} else if lon < -180.0 {
		lon += 360.0
	}
	return lon
}

func finite(v oem.Vector3) bool {
	for _, c := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
