package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"fieldnav/pkg/model"
	"fieldnav/pkg/nav"
	"fieldnav/pkg/store"
)

// Persistent-state keys.
const (
	stateKeyTarget   = "target"
	StateKeySettings = "settings"
)

// NavigateHandler serves navigation commands: target, averaging,
// tracking and settings.
type NavigateHandler struct {
	core *nav.Core
	st   store.Store
}

// NewNavigateHandler creates the handler.
func NewNavigateHandler(core *nav.Core, st store.Store) *NavigateHandler {
	return &NavigateHandler{core: core, st: st}
}

// HandleSetTarget activates a navigation target: either a waypoint
// reference or an ad-hoc coordinate.
func (h *NavigateHandler) HandleSetTarget(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WaypointID string   `json:"waypoint_id"`
		Lat        *float64 `json:"lat"`
		Lon        *float64 `json:"lon"`
		Label      string   `json:"label"`
	}
	if !readJSON(w, r, &req) {
		return
	}

	switch {
	case req.WaypointID != "":
		if err := h.core.SetTargetWaypoint(req.WaypointID); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
	case req.Lat != nil && req.Lon != nil:
		h.core.SetTarget(model.NavigationTarget{Lat: *req.Lat, Lon: *req.Lon, Label: req.Label})
	default:
		http.Error(w, "need waypoint_id or lat/lon", http.StatusBadRequest)
		return
	}

	target := h.core.Target()
	if buf, err := json.Marshal(target); err == nil {
		if err := h.st.SetState(r.Context(), stateKeyTarget, string(buf)); err != nil {
			slog.Error("target persist failed", "error", err)
		}
	}
	writeJSON(w, target)
}

// HandleClearTarget deactivates navigation.
func (h *NavigateHandler) HandleClearTarget(w http.ResponseWriter, r *http.Request) {
	h.core.ClearTarget()
	if err := h.st.DeleteState(r.Context(), stateKeyTarget); err != nil {
		slog.Error("target clear persist failed", "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAveraging drives the averaging state machine. The path action
// is one of start, stop, reset, save.
func (h *NavigateHandler) HandleAveraging(w http.ResponseWriter, r *http.Request) {
	switch r.PathValue("action") {
	case "start":
		h.core.StartAveraging()
	case "stop":
		h.core.StopAveraging()
	case "reset":
		h.core.ResetAveraging()
	case "save":
		var req struct {
			Type string `json:"type"`
			Note string `json:"note"`
		}
		if r.ContentLength > 0 && !readJSON(w, r, &req) {
			return
		}
		wp, err := h.core.FinalizeAveraging(req.Type, req.Note)
		if err != nil {
			if errors.Is(err, nav.ErrNoSamples) {
				http.Error(w, "no samples collected", http.StatusConflict)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if err := h.st.SaveWaypoint(r.Context(), &wp); err != nil {
			slog.Error("averaged waypoint persist failed", "id", wp.ID, "error", err)
		}
		writeJSON(w, wp)
		return
	default:
		http.Error(w, "unknown averaging action", http.StatusNotFound)
		return
	}

	state, count := h.core.AveragingStatus()
	writeJSON(w, AveragingStatus{State: state.String(), Samples: count})
}

// HandleTracking toggles track recording.
func (h *NavigateHandler) HandleTracking(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	h.core.SetTracking(req.Enabled)
	writeJSON(w, map[string]bool{"tracking": h.core.Tracking()})
}

// HandleTrackReplace swaps the track wholesale, e.g. after an import.
func (h *NavigateHandler) HandleTrackReplace(w http.ResponseWriter, r *http.Request) {
	var points []model.TrackPoint
	if !readJSON(w, r, &points) {
		return
	}

	h.core.ReplaceTrack(points)
	if err := h.st.ReplaceTrack(r.Context(), points); err != nil {
		slog.Error("track persist failed", "error", err)
	}
	writeJSON(w, map[string]int{"points": len(points)})
}

// HandleTrackClear drops the recorded track.
func (h *NavigateHandler) HandleTrackClear(w http.ResponseWriter, r *http.Request) {
	h.core.ClearTrack()
	if err := h.st.ClearTrack(r.Context()); err != nil {
		slog.Error("track clear persist failed", "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// SettingsResponse mirrors the runtime policy knobs.
type SettingsResponse struct {
	MaxAccuracyM float64 `json:"max_accuracy_m"`
	AlertRadiusM float64 `json:"alert_radius_m"`
}

// HandleGetSettings returns the active policy values.
func (h *NavigateHandler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	cfg := h.core.Settings()
	writeJSON(w, SettingsResponse{
		MaxAccuracyM: cfg.MaxAccuracyM,
		AlertRadiusM: cfg.AlertRadiusM,
	})
}

// HandleSetSettings updates the accuracy gate and alert radius.
func (h *NavigateHandler) HandleSetSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsResponse
	if !readJSON(w, r, &req) {
		return
	}
	if req.MaxAccuracyM <= 0 || req.AlertRadiusM <= 0 {
		http.Error(w, "settings must be positive", http.StatusBadRequest)
		return
	}

	h.core.UpdateSettings(req.MaxAccuracyM, req.AlertRadiusM)
	if buf, err := json.Marshal(req); err == nil {
		if err := h.st.SetState(r.Context(), StateKeySettings, string(buf)); err != nil {
			slog.Error("settings persist failed", "error", err)
		}
	}
	h.HandleGetSettings(w, r)
}
