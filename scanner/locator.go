package scanner

import "time"

// DefaultProximityWindow is the largest time delta at which another
// asset's coordinates may be borrowed.
const DefaultProximityWindow = time.Hour

// Candidate is a geotagged, time-stamped asset eligible to donate its
// coordinates.
type Candidate struct {
	TakenAt   int64
	Latitude  float64
	Longitude float64
}

// NearestByTime returns the candidate closest in time to target, provided
// the absolute delta does not exceed window (<= 0 means
// DefaultProximityWindow). Ties keep the first candidate encountered, so
// the result is deterministic in candidate-list order.
func NearestByTime(target int64, candidates []Candidate, window time.Duration) (Candidate, bool) {
	if window <= 0 {
		window = DefaultProximityWindow
	}
	maxDelta := int64(window / time.Second)

	var best Candidate
	bestDelta := int64(-1)
	for _, c := range candidates {
		delta := target - c.TakenAt
		if delta < 0 {
			delta = -delta
		}
		if delta > maxDelta {
			continue
		}
		if bestDelta < 0 || delta < bestDelta {
			best = c
			bestDelta = delta
		}
	}
	return best, bestDelta >= 0
}
