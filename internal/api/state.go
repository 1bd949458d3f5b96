package api

import (
	"net/http"
	"sync"

	"fieldnav/pkg/model"
	"fieldnav/pkg/nav"
)

// StateResponse is the live-state API response structure.
type StateResponse struct {
	Fix       *model.DerivedState   `json:"fix"` // nil until the first fix arrives
	Overlay   model.OverlayReadout  `json:"overlay"`
	Tracking  bool                  `json:"tracking"`
	Averaging AveragingStatus       `json:"averaging"`
	Alert     *model.ProximityAlert `json:"alert,omitempty"`
}

// AveragingStatus reports the averaging session to the UI.
type AveragingStatus struct {
	State   string `json:"state"`
	Samples int    `json:"samples"`
}

// StateHandler serves the current navigation readout.
type StateHandler struct {
	core *nav.Core

	mu        sync.RWMutex
	latest    *model.DerivedState
	lastAlert *model.ProximityAlert
}

// NewStateHandler creates the handler.
func NewStateHandler(core *nav.Core) *StateHandler {
	return &StateHandler{core: core}
}

// Update records the readout of the latest fix. Implements the fix
// loop's state sink.
func (h *StateHandler) Update(state model.DerivedState, alert *model.ProximityAlert) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = &state
	h.lastAlert = alert
}

// Snapshot assembles the full live-state response. It is also what the
// websocket hub broadcasts after each fix.
func (h *StateHandler) Snapshot() StateResponse {
	h.mu.RLock()
	latest := h.latest
	alert := h.lastAlert
	h.mu.RUnlock()

	avgState, avgCount := h.core.AveragingStatus()

	return StateResponse{
		Fix:      latest,
		Overlay:  h.core.Overlay(),
		Tracking: h.core.Tracking(),
		Averaging: AveragingStatus{
			State:   avgState.String(),
			Samples: avgCount,
		},
		Alert: alert,
	}
}

// HandleState returns the assembled live state.
func (h *StateHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.Snapshot())
}

// HandleHistory returns the rolling speed and altitude windows.
func (h *StateHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string][]float64{
		"speed_kmh":  h.core.SpeedHistory(),
		"altitude_m": h.core.AltitudeHistory(),
	})
}

// HandleOrientation ingests a device-orientation sample pushed by the
// browser.
func (h *StateHandler) HandleOrientation(w http.ResponseWriter, r *http.Request) {
	var sample model.OrientationSample
	if !readJSON(w, r, &sample) {
		return
	}
	h.core.IngestOrientation(sample)
	w.WriteHeader(http.StatusNoContent)
}
