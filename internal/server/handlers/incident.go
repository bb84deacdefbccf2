// internal/server/handlers/incident.go

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"incidentmap/internal/domain/incident"
	"incidentmap/internal/service/geo"
)

// IncidentHandler handles marker and sidebar HTTP requests
type IncidentHandler struct {
	reconciler incident.Reconciler
}

// NewIncidentHandler creates a new incident handler
func NewIncidentHandler(reconciler incident.Reconciler) *IncidentHandler {
	return &IncidentHandler{
		reconciler: reconciler,
	}
}

// GetWatermark returns the highest admitted timestamp
func (h *IncidentHandler) GetWatermark(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]int64{"watermark": h.reconciler.Watermark()})
}

// ListMarkers returns every marker
func (h *IncidentHandler) ListMarkers(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.reconciler.Markers())
}

// GetMarker returns the marker for a location key
func (h *IncidentHandler) GetMarker(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" {
		respondWithError(w, http.StatusBadRequest, "Missing location key", nil)
		return
	}

	m, ok := h.reconciler.Marker(key)
	if !ok {
		respondWithError(w, http.StatusNotFound, "Marker not found", nil)
		return
	}

	respondWithJSON(w, http.StatusOK, m)
}

// GetNearbyMarkers returns markers within a radius of a point
func (h *IncidentHandler) GetNearbyMarkers(w http.ResponseWriter, r *http.Request) {
	latStr := r.URL.Query().Get("lat")
	lngStr := r.URL.Query().Get("lng")
	radiusStr := r.URL.Query().Get("radius")

	if latStr == "" || lngStr == "" {
		respondWithError(w, http.StatusBadRequest, "Missing location parameters", nil)
		return
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid latitude", err)
		return
	}

	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid longitude", err)
		return
	}

	// Parse radius (default to 1km)
	radius := 1.0
	if radiusStr != "" {
		radius, err = strconv.ParseFloat(radiusStr, 64)
		if err != nil || radius <= 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid radius", err)
			return
		}
	}

	center := incident.Coordinate{Longitude: lng, Latitude: lat}
	respondWithJSON(w, http.StatusOK, geo.Nearby(h.reconciler.Markers(), center, radius))
}

// ListSidebar returns sidebar entries, newest first
func (h *IncidentHandler) ListSidebar(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	respondWithJSON(w, http.StatusOK, h.reconciler.Sidebar(limit))
}

// FocusSidebarEntry centers connected maps on a sidebar entry's location
func (h *IncidentHandler) FocusSidebarEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "Missing entry ID", nil)
		return
	}

	if err := h.reconciler.FocusEntry(id); err != nil {
		switch {
		case errors.Is(err, incident.ErrNotFound):
			respondWithError(w, http.StatusNotFound, "Entry not found", nil)
		case errors.Is(err, incident.ErrNoLocation):
			respondWithError(w, http.StatusUnprocessableEntity, "Entry has no location", nil)
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to focus entry", err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListLabels returns the label table
func (h *IncidentHandler) ListLabels(w http.ResponseWriter, r *http.Request) {
	labels := h.reconciler.Labels()

	type labelView struct {
		Name  string `json:"name"`
		Glyph string `json:"glyph"`
	}
	out := make([]labelView, 0, len(labels))
	for _, name := range labels.Names() {
		out = append(out, labelView{Name: name, Glyph: labels[name]})
	}

	respondWithJSON(w, http.StatusOK, out)
}

// ListErrors returns the recorded fetch failures
func (h *IncidentHandler) ListErrors(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.reconciler.Errors())
}

// GetSnapshot returns the full reconciliation state
func (h *IncidentHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.reconciler.Snapshot())
}

// VersionHandler reports the running version so clients can reload on deploy
func VersionHandler(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"version": version})
	}
}
