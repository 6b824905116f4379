package feed

import (
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/francois-poidevin/stationtracker/internal/app"
	"github.com/francois-poidevin/stationtracker/internal/app/tools"
)

const (
	earthRadiusKm = 6378.137
	rad2deg       = 180 / math.Pi
)

// Propagator turns an element set into a geodetic sample at a given instant.
// ok is false when no valid position exists for that instant.
type Propagator func(tle TLE, at time.Time) (sample app.GeoSample, ok bool)

const (
	// DefaultMaxTLEAge - SGP4 keeps producing numbers long after they stop describing the orbit
	DefaultMaxTLEAge = 30 * 24 * time.Hour
	// DefaultMaxAltitude - km, well above any orbit SGP4 is meant for
	DefaultMaxAltitude = 50000.0
)

// PropagationLimits bounds what counts as a valid propagated position.
// A zero MaxAge or MaxAltitude disables that check.
type PropagationLimits struct {
	MaxAge      time.Duration
	MaxAltitude float64
}

// DefaultLimits - limits applied by PropagateFromTLE
var DefaultLimits = PropagationLimits{MaxAge: DefaultMaxTLEAge, MaxAltitude: DefaultMaxAltitude}

// PropagateFromTLE runs SGP4 (WGS72) on the element set within DefaultLimits.
// The TLE has to come from ParseTLE.
func PropagateFromTLE(tle TLE, at time.Time) (app.GeoSample, bool) {
	return DefaultLimits.Propagate(tle, at)
}

// Propagate runs SGP4 (WGS72) on the element set. It reports no position when the
// library flags the element set, when at is further than MaxAge from the epoch,
// or when the result is not a plausible orbit.
func (l PropagationLimits) Propagate(tle TLE, at time.Time) (sample app.GeoSample, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			sample, ok = app.GeoSample{}, false
		}
	}()

	if l.MaxAge > 0 && !tle.Epoch.IsZero() {
		age := at.Sub(tle.Epoch)
		if age < 0 {
			age = -age
		}
		if age > l.MaxAge {
			return app.GeoSample{}, false
		}
	}

	sat := satellite.TLEToSat(tle.Line1, tle.Line2, satellite.GravityWGS72)
	// set by sgp4init on elements it cannot work with
	if sat.Error != 0 {
		return app.GeoSample{}, false
	}

	at = at.UTC()
	year, month, day := at.Date()
	hour, min, sec := at.Clock()

	// go-satellite works in kilometres and kilometres per second
	posECI, velECI := satellite.Propagate(sat, year, int(month), day, hour, min, sec)
	if !usablePosition(posECI) {
		return app.GeoSample{}, false
	}

	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	gmst := satellite.ThetaG_JD(jd)
	altitude, _, latLon := satellite.ECIToLLA(posECI, gmst)

	lat := latLon.Latitude * rad2deg
	lon := tools.NormalizeLongitude(latLon.Longitude * rad2deg)
	speed := norm(velECI) * app.KMSKMH
	if !finite(lat) || !finite(lon) || !finite(altitude) || !finite(speed) {
		return app.GeoSample{}, false
	}
	if l.MaxAltitude > 0 && altitude > l.MaxAltitude {
		return app.GeoSample{}, false
	}

	return app.GeoSample{
		Latitude:  lat,
		Longitude: lon,
		Altitude:  altitude,
		Speed:     speed,
		Timestamp: at.Unix(),
	}, true
}

// usablePosition rejects what SGP4 hands back on error (zero vector) and decayed orbits.
func usablePosition(v satellite.Vector3) bool {
	r := norm(v)
	return finite(r) && r > earthRadiusKm
}

func norm(v satellite.Vector3) float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
