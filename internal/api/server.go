package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"fieldnav/pkg/version"
)

// NewServer creates and configures the HTTP server.
// It accepts handlers for all API endpoints and a shutdownFunc for graceful shutdown.
func NewServer(addr, webDir string, state *StateHandler, wp *WaypointHandler, navH *NavigateHandler, hub *Hub, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	// 1. Health / version
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /api/version", handleVersion)

	// 2. Live state
	mux.HandleFunc("GET /api/state", state.HandleState)
	mux.HandleFunc("GET /api/history", state.HandleHistory)
	mux.HandleFunc("POST /api/orientation", state.HandleOrientation)
	mux.HandleFunc("GET /ws", hub.HandleWS)

	// 3. Waypoints
	mux.HandleFunc("GET /api/waypoints", wp.HandleList)
	mux.HandleFunc("POST /api/waypoints", wp.HandleMark)
	mux.HandleFunc("DELETE /api/waypoints/{id}", wp.HandleDelete)
	mux.HandleFunc("POST /api/waypoints/import", wp.HandleImport)

	// 4. Exports
	mux.HandleFunc("GET /api/export/waypoints.geojson", wp.HandleExportGeoJSON)
	mux.HandleFunc("GET /api/export/waypoints.csv", wp.HandleExportCSV)
	mux.HandleFunc("GET /api/export/track.geojson", wp.HandleExportTrack)

	// 5. Navigation commands
	mux.HandleFunc("POST /api/target", navH.HandleSetTarget)
	mux.HandleFunc("DELETE /api/target", navH.HandleClearTarget)
	mux.HandleFunc("POST /api/averaging/{action}", navH.HandleAveraging)
	mux.HandleFunc("POST /api/tracking", navH.HandleTracking)
	mux.HandleFunc("POST /api/track/replace", navH.HandleTrackReplace)
	mux.HandleFunc("POST /api/track/clear", navH.HandleTrackClear)
	mux.HandleFunc("GET /api/settings", navH.HandleGetSettings)
	mux.HandleFunc("POST /api/settings", navH.HandleSetSettings)

	// 6. Shutdown Endpoint
	mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Shutting down...")); err != nil {
			slog.Error("Failed to write shutdown response", "error", err)
		}
		// Call shutdown in a goroutine to allow response to flush
		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdown()
		}()
	})

	// 7. Static frontend
	mux.Handle("/", http.FileServer(http.Dir(webDir)))

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"version": version.Version})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func readJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}
