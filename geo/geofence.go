// Package geo provides great-circle distance math and circular geofence
// containment used by landmark tags.
package geo

import "math"

// EarthRadiusMeters is the mean Earth radius used for haversine distance.
const EarthRadiusMeters = 6371000.0

// Distance returns the great-circle distance in meters between two points
// given in decimal degrees, using the haversine formula.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	const degToRad = math.Pi / 180.0

	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	dPhi := (lat2 - lat1) * degToRad
	dLambda := (lng2 - lng1) * degToRad

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)

	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// Circle is a circular geofence: a center in decimal degrees and a radius
// in meters.
type Circle struct {
	Lat    float64
	Lng    float64
	Radius float64
}

// Contains reports whether the point lies within the circle. A circle with
// a non-positive radius contains nothing.
func (c Circle) Contains(lat, lng float64) bool {
	if c.Radius <= 0 {
		return false
	}
	return Distance(c.Lat, c.Lng, lat, lng) <= c.Radius
}
