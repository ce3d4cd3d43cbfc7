package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/camden-git/mediacatalog/geocode"
)

type GeocodeHandler struct {
	Limiter *geocode.Limiter
}

// ReverseGeocode serves GET /api/geocode?lat=..&lng=.. through the
// rate-limited lookup queue.
func (gh *GeocodeHandler) ReverseGeocode(w http.ResponseWriter, r *http.Request) {
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if errLat != nil || errLng != nil {
		WriteAPIError(w, http.StatusBadRequest, "bad_request", "Missing or invalid coordinates (lat, lng)")
		return
	}

	name, err := gh.Limiter.Resolve(lat, lng)
	if err != nil {
		log.Printf("Error resolving place name for (%f, %f): %v", lat, lng, err)
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to resolve place name")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"place": name})
}
