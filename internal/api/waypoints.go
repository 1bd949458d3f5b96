package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"fieldnav/pkg/export"
	"fieldnav/pkg/model"
	"fieldnav/pkg/nav"
	"fieldnav/pkg/store"
)

// WaypointHandler serves the waypoint collection and its exports.
type WaypointHandler struct {
	core *nav.Core
	st   store.Store
}

// NewWaypointHandler creates the handler.
func NewWaypointHandler(core *nav.Core, st store.Store) *WaypointHandler {
	return &WaypointHandler{core: core, st: st}
}

// HandleList returns the collection in insertion order.
func (h *WaypointHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	wps := h.core.Waypoints()
	if wps == nil {
		wps = []model.Waypoint{}
	}
	writeJSON(w, wps)
}

// HandleMark snapshots the current fix as a waypoint.
func (h *WaypointHandler) HandleMark(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type string `json:"type"`
		Note string `json:"note"`
	}
	if r.ContentLength > 0 && !readJSON(w, r, &req) {
		return
	}

	wp, err := h.core.MarkWaypoint(req.Type, req.Note)
	if err != nil {
		if errors.Is(err, nav.ErrNoFix) {
			http.Error(w, "no position fix yet", http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := h.st.SaveWaypoint(r.Context(), &wp); err != nil {
		slog.Error("waypoint persist failed", "id", wp.ID, "error", err)
	}
	writeJSON(w, wp)
}

// HandleDelete removes a waypoint by id.
func (h *WaypointHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.core.DeleteWaypoint(id); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err := h.st.DeleteWaypoint(r.Context(), id); err != nil {
		slog.Error("waypoint delete persist failed", "id", id, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleImport bulk-adds parsed waypoints. Duplicate ids are skipped.
func (h *WaypointHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	var wps []model.Waypoint
	if !readJSON(w, r, &wps) {
		return
	}

	added := h.core.ImportWaypoints(wps)
	for _, wp := range added {
		if err := h.st.SaveWaypoint(r.Context(), &wp); err != nil {
			slog.Error("waypoint persist failed", "id", wp.ID, "error", err)
		}
	}

	writeJSON(w, map[string]int{"added": len(added)})
}

// HandleExportGeoJSON streams the waypoint collection as GeoJSON.
func (h *WaypointHandler) HandleExportGeoJSON(w http.ResponseWriter, r *http.Request) {
	data, err := export.WaypointsGeoJSON(h.core.Waypoints())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Write(data) //nolint:errcheck
}

// HandleExportCSV streams the collection with grid coordinates.
// An optional ?zone=NN reprojects all points into one zone.
func (h *WaypointHandler) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	zone := 0
	if z := r.URL.Query().Get("zone"); z != "" {
		v, err := strconv.Atoi(z)
		if err != nil || v < 1 || v > 60 {
			http.Error(w, "zone must be an integer 1-60", http.StatusBadRequest)
			return
		}
		zone = v
	}

	data, err := export.WaypointsCSV(h.core.Waypoints(), zone)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Write(data) //nolint:errcheck
}

// HandleExportTrack streams the recorded track as GeoJSON.
func (h *WaypointHandler) HandleExportTrack(w http.ResponseWriter, r *http.Request) {
	data, err := export.TrackGeoJSON(h.core.Track())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Write(data) //nolint:errcheck
}
