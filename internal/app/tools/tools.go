package tools

import (
	"math"
)

// Point - a lat/lon vertex in degree
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Segment - straight line between two vertices on a flat map
type Segment struct {
	Start Point `json:"start"`
	End   Point `json:"end"`
}

// NormalizeLongitude maps a longitude in degree to [-180,180).
func NormalizeLongitude(lon float64) float64 {
	if lon >= -180 && lon < 180 {
		return lon
	}
	if math.IsNaN(lon) || math.IsInf(lon, 0) {
		return math.NaN()
	}
	l := math.Mod(lon+180, 360)
	if l < 0 {
		l += 360
	}
	// rounding of l+360 can land on 360
	if l >= 360 {
		l -= 360
	}
	return l - 180
}

// DetectAntimeridianCrossing tells if going from prevLon to nextLon is a jump across ±180.
// Both longitudes have to be normalized first.
func DetectAntimeridianCrossing(prevLon, nextLon float64) bool {
	return math.Abs(nextLon-prevLon) > 180
}

// SplitAtAntimeridian cuts the step start->end where it crosses ±180.
// Without crossing the step is returned as is. Otherwise the crossing latitude is
// linearly interpolated and two segments are returned: start->boundary and
// opposite boundary->end.
func SplitAtAntimeridian(start, end Point) []Segment {
	if !DetectAntimeridianCrossing(start.Lon, end.Lon) {
		return []Segment{{Start: start, End: end}}
	}

	boundary := 180.0
	unwrapped := end.Lon + 360
	if start.Lon < end.Lon {
		//heading west
		boundary = -180
		unwrapped = end.Lon - 360
	}

	t := (boundary - start.Lon) / (unwrapped - start.Lon)
	lat := start.Lat + t*(end.Lat-start.Lat)

	return []Segment{
		{Start: start, End: Point{Lat: lat, Lon: boundary}},
		{Start: Point{Lat: lat, Lon: -boundary}, End: end},
	}
}
