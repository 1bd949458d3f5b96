package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fieldnav/pkg/model"
	"fieldnav/pkg/nav"
)

// mockStore records persistence calls without touching a database.
type mockStore struct {
	waypoints map[string]model.Waypoint
	track     []model.TrackPoint
	state     map[string]string
	saveErr   error
}

func newMockStore() *mockStore {
	return &mockStore{
		waypoints: make(map[string]model.Waypoint),
		state:     make(map[string]string),
	}
}

func (m *mockStore) SaveWaypoint(ctx context.Context, wp *model.Waypoint) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.waypoints[wp.ID] = *wp
	return nil
}

func (m *mockStore) DeleteWaypoint(ctx context.Context, id string) error {
	delete(m.waypoints, id)
	return nil
}

func (m *mockStore) ListWaypoints(ctx context.Context) ([]model.Waypoint, error) {
	out := make([]model.Waypoint, 0, len(m.waypoints))
	for _, wp := range m.waypoints {
		out = append(out, wp)
	}
	return out, nil
}

func (m *mockStore) AppendTrackPoint(ctx context.Context, p model.TrackPoint) error {
	m.track = append(m.track, p)
	return nil
}

func (m *mockStore) ReplaceTrack(ctx context.Context, points []model.TrackPoint) error {
	m.track = append([]model.TrackPoint(nil), points...)
	return nil
}

func (m *mockStore) ListTrack(ctx context.Context) ([]model.TrackPoint, error) {
	return m.track, nil
}

func (m *mockStore) ClearTrack(ctx context.Context) error {
	m.track = nil
	return nil
}

func (m *mockStore) GetState(ctx context.Context, key string) (string, bool) {
	v, ok := m.state[key]
	return v, ok
}

func (m *mockStore) SetState(ctx context.Context, key, val string) error {
	m.state[key] = val
	return nil
}

func (m *mockStore) DeleteState(ctx context.Context, key string) error {
	delete(m.state, key)
	return nil
}

func (m *mockStore) Close() error { return nil }

func testFix(lat, lon float64) model.GeoFix {
	acc := 5.0
	return model.GeoFix{Lat: lat, Lon: lon, Accuracy: &acc, Timestamp: time.Now()}
}

func TestStateHandler_HandleState(t *testing.T) {
	core := nav.New(nav.DefaultConfig())
	handler := NewStateHandler(core)

	t.Run("No fix yet", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/state", nil)
		rr := httptest.NewRecorder()

		handler.HandleState(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rr.Code)
		}
		var resp StateResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if resp.Fix != nil {
			t.Error("Expected nil fix before first sample")
		}
		if resp.Averaging.State != "idle" {
			t.Errorf("Expected averaging state 'idle', got %q", resp.Averaging.State)
		}
	})

	t.Run("After fix", func(t *testing.T) {
		state, alert := core.IngestFix(testFix(43.642567, -79.387139))
		handler.Update(state, alert)

		req := httptest.NewRequest("GET", "/api/state", nil)
		rr := httptest.NewRecorder()

		handler.HandleState(rr, req)

		var resp StateResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
		if resp.Fix == nil {
			t.Fatal("Expected a fix in the response")
		}
		if resp.Fix.Lat != 43.642567 {
			t.Errorf("Expected lat 43.642567, got %f", resp.Fix.Lat)
		}
		if resp.Fix.Grid == "" {
			t.Error("Expected a UTM grid string")
		}
	})
}

func TestStateHandler_HandleOrientation(t *testing.T) {
	core := nav.New(nav.DefaultConfig())
	handler := NewStateHandler(core)

	body := bytes.NewBufferString(`{"heading": 270.0, "absolute": true}`)
	req := httptest.NewRequest("POST", "/api/orientation", body)
	rr := httptest.NewRecorder()

	handler.HandleOrientation(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", rr.Code)
	}
}

func TestWaypointHandler_MarkAndDelete(t *testing.T) {
	core := nav.New(nav.DefaultConfig())
	st := newMockStore()
	handler := NewWaypointHandler(core, st)

	t.Run("Mark without fix", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/waypoints", nil)
		rr := httptest.NewRecorder()

		handler.HandleMark(rr, req)

		if rr.Code != http.StatusConflict {
			t.Errorf("Expected status 409, got %d", rr.Code)
		}
	})

	core.IngestFix(testFix(51.6845, 14.4234))

	var marked model.Waypoint
	t.Run("Mark with fix", func(t *testing.T) {
		body := bytes.NewBufferString(`{"type": "ground_control", "note": "station 3"}`)
		req := httptest.NewRequest("POST", "/api/waypoints", body)
		rr := httptest.NewRecorder()

		handler.HandleMark(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &marked); err != nil {
			t.Fatalf("Failed to decode waypoint: %v", err)
		}
		if marked.Type != "ground_control" {
			t.Errorf("Expected type 'ground_control', got %q", marked.Type)
		}
		if _, ok := st.waypoints[marked.ID]; !ok {
			t.Error("Waypoint was not persisted")
		}
	})

	t.Run("List", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/waypoints", nil)
		rr := httptest.NewRecorder()

		handler.HandleList(rr, req)

		var wps []model.Waypoint
		if err := json.Unmarshal(rr.Body.Bytes(), &wps); err != nil {
			t.Fatalf("Failed to decode list: %v", err)
		}
		if len(wps) != 1 {
			t.Fatalf("Expected 1 waypoint, got %d", len(wps))
		}
	})

	t.Run("Delete", func(t *testing.T) {
		req := httptest.NewRequest("DELETE", "/api/waypoints/"+marked.ID, nil)
		req.SetPathValue("id", marked.ID)
		rr := httptest.NewRecorder()

		handler.HandleDelete(rr, req)

		if rr.Code != http.StatusNoContent {
			t.Errorf("Expected status 204, got %d", rr.Code)
		}
		if _, ok := st.waypoints[marked.ID]; ok {
			t.Error("Waypoint still in store after delete")
		}
	})

	t.Run("Delete unknown", func(t *testing.T) {
		req := httptest.NewRequest("DELETE", "/api/waypoints/nope", nil)
		req.SetPathValue("id", "nope")
		rr := httptest.NewRecorder()

		handler.HandleDelete(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", rr.Code)
		}
	})
}

func TestWaypointHandler_Import(t *testing.T) {
	core := nav.New(nav.DefaultConfig())
	st := newMockStore()
	handler := NewWaypointHandler(core, st)

	// A waypoint already in the collection must not be rewritten by a
	// later import.
	core.ImportWaypoints([]model.Waypoint{{ID: "wp-old", Lat: 1, Lon: 1}})

	body := bytes.NewBufferString(`[
		{"id": "wp-a", "lat": 35.6892, "lon": 51.389},
		{"id": "wp-a", "lat": 0, "lon": 0},
		{"id": "wp-b", "lat": 48.8584, "lon": 2.2945}
	]`)
	req := httptest.NewRequest("POST", "/api/waypoints/import", body)
	rr := httptest.NewRecorder()

	handler.HandleImport(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	var resp map[string]int
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp["added"] != 2 {
		t.Errorf("Expected 2 added, got %d", resp["added"])
	}
	if len(st.waypoints) != 2 {
		t.Errorf("Expected 2 persisted waypoints, got %d", len(st.waypoints))
	}
	if _, ok := st.waypoints["wp-old"]; ok {
		t.Error("Import must not re-persist pre-existing waypoints")
	}
}

func TestWaypointHandler_ExportCSV_ZoneParam(t *testing.T) {
	core := nav.New(nav.DefaultConfig())
	handler := NewWaypointHandler(core, newMockStore())

	t.Run("Invalid zone", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/export/waypoints.csv?zone=61", nil)
		rr := httptest.NewRecorder()

		handler.HandleExportCSV(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", rr.Code)
		}
	})

	t.Run("Valid zone", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/export/waypoints.csv?zone=31", nil)
		rr := httptest.NewRecorder()

		handler.HandleExportCSV(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", rr.Code)
		}
		if ct := rr.Header().Get("Content-Type"); ct != "text/csv" {
			t.Errorf("Expected text/csv, got %q", ct)
		}
	})
}

func TestNavigateHandler_Target(t *testing.T) {
	core := nav.New(nav.DefaultConfig())
	st := newMockStore()
	handler := NewNavigateHandler(core, st)

	t.Run("Ad-hoc target", func(t *testing.T) {
		body := bytes.NewBufferString(`{"lat": 35.69, "lon": 51.39, "label": "camp"}`)
		req := httptest.NewRequest("POST", "/api/target", body)
		rr := httptest.NewRecorder()

		handler.HandleSetTarget(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rr.Code)
		}
		target := core.Target()
		if target == nil || target.Label != "camp" {
			t.Fatalf("Target not set: %+v", target)
		}
		if _, ok := st.state[stateKeyTarget]; !ok {
			t.Error("Target was not persisted")
		}
	})

	t.Run("Unknown waypoint", func(t *testing.T) {
		body := bytes.NewBufferString(`{"waypoint_id": "nope"}`)
		req := httptest.NewRequest("POST", "/api/target", body)
		rr := httptest.NewRecorder()

		handler.HandleSetTarget(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", rr.Code)
		}
	})

	t.Run("Missing coordinates", func(t *testing.T) {
		body := bytes.NewBufferString(`{"label": "nowhere"}`)
		req := httptest.NewRequest("POST", "/api/target", body)
		rr := httptest.NewRecorder()

		handler.HandleSetTarget(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", rr.Code)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		req := httptest.NewRequest("DELETE", "/api/target", nil)
		rr := httptest.NewRecorder()

		handler.HandleClearTarget(rr, req)

		if rr.Code != http.StatusNoContent {
			t.Errorf("Expected status 204, got %d", rr.Code)
		}
		if core.Target() != nil {
			t.Error("Target still set after clear")
		}
		if _, ok := st.state[stateKeyTarget]; ok {
			t.Error("Persisted target not removed")
		}
	})
}

func TestNavigateHandler_Averaging(t *testing.T) {
	core := nav.New(nav.DefaultConfig())
	st := newMockStore()
	handler := NewNavigateHandler(core, st)

	do := func(action string, body string) *httptest.ResponseRecorder {
		var r *bytes.Buffer
		if body != "" {
			r = bytes.NewBufferString(body)
		} else {
			r = &bytes.Buffer{}
		}
		req := httptest.NewRequest("POST", "/api/averaging/"+action, r)
		req.SetPathValue("action", action)
		rr := httptest.NewRecorder()
		handler.HandleAveraging(rr, req)
		return rr
	}

	t.Run("Save without samples", func(t *testing.T) {
		do("start", "")
		do("stop", "")
		rr := do("save", "")
		if rr.Code != http.StatusConflict {
			t.Errorf("Expected status 409, got %d", rr.Code)
		}
		do("reset", "")
	})

	t.Run("Full session", func(t *testing.T) {
		rr := do("start", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rr.Code)
		}
		var status AveragingStatus
		if err := json.Unmarshal(rr.Body.Bytes(), &status); err != nil {
			t.Fatalf("Failed to decode status: %v", err)
		}
		if status.State != "active" {
			t.Errorf("Expected state 'active', got %q", status.State)
		}

		core.IngestFix(testFix(10.0, 20.0))
		core.IngestFix(testFix(10.0, 20.002))
		do("stop", "")

		rr = do("save", `{"type": "survey_marker"}`)
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200 on save, got %d: %s", rr.Code, rr.Body.String())
		}
		var wp model.Waypoint
		if err := json.Unmarshal(rr.Body.Bytes(), &wp); err != nil {
			t.Fatalf("Failed to decode waypoint: %v", err)
		}
		if wp.Type != "survey_marker" {
			t.Errorf("Expected type 'survey_marker', got %q", wp.Type)
		}
		if _, ok := st.waypoints[wp.ID]; !ok {
			t.Error("Averaged waypoint was not persisted")
		}
	})

	t.Run("Unknown action", func(t *testing.T) {
		rr := do("pause", "")
		if rr.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", rr.Code)
		}
	})
}

func TestNavigateHandler_TrackingAndTrack(t *testing.T) {
	core := nav.New(nav.DefaultConfig())
	st := newMockStore()
	handler := NewNavigateHandler(core, st)

	t.Run("Enable tracking", func(t *testing.T) {
		body := bytes.NewBufferString(`{"enabled": true}`)
		req := httptest.NewRequest("POST", "/api/tracking", body)
		rr := httptest.NewRecorder()

		handler.HandleTracking(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rr.Code)
		}
		if !core.Tracking() {
			t.Error("Tracking not enabled")
		}
	})

	t.Run("Replace track", func(t *testing.T) {
		body := bytes.NewBufferString(`[{"lat": 1, "lon": 2}, {"lat": 3, "lon": 4}]`)
		req := httptest.NewRequest("POST", "/api/track/replace", body)
		rr := httptest.NewRecorder()

		handler.HandleTrackReplace(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rr.Code)
		}
		if len(core.Track()) != 2 {
			t.Errorf("Expected 2 track points, got %d", len(core.Track()))
		}
		if len(st.track) != 2 {
			t.Errorf("Expected 2 persisted points, got %d", len(st.track))
		}
	})

	t.Run("Clear track", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/track/clear", nil)
		rr := httptest.NewRecorder()

		handler.HandleTrackClear(rr, req)

		if rr.Code != http.StatusNoContent {
			t.Errorf("Expected status 204, got %d", rr.Code)
		}
		if len(core.Track()) != 0 {
			t.Error("Track not cleared")
		}
		if len(st.track) != 0 {
			t.Error("Persisted track not cleared")
		}
	})
}

func TestNavigateHandler_Settings(t *testing.T) {
	core := nav.New(nav.DefaultConfig())
	st := newMockStore()
	handler := NewNavigateHandler(core, st)

	t.Run("Get defaults", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/settings", nil)
		rr := httptest.NewRecorder()

		handler.HandleGetSettings(rr, req)

		var resp SettingsResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to decode settings: %v", err)
		}
		if resp.MaxAccuracyM != 20 || resp.AlertRadiusM != 30 {
			t.Errorf("Unexpected defaults: %+v", resp)
		}
	})

	t.Run("Update", func(t *testing.T) {
		body := bytes.NewBufferString(`{"max_accuracy_m": 10, "alert_radius_m": 50}`)
		req := httptest.NewRequest("POST", "/api/settings", body)
		rr := httptest.NewRecorder()

		handler.HandleSetSettings(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rr.Code)
		}
		cfg := core.Settings()
		if cfg.MaxAccuracyM != 10 || cfg.AlertRadiusM != 50 {
			t.Errorf("Settings not applied: %+v", cfg)
		}
		if _, ok := st.state[StateKeySettings]; !ok {
			t.Error("Settings were not persisted")
		}
	})

	t.Run("Reject non-positive", func(t *testing.T) {
		for _, body := range []string{
			`{"max_accuracy_m": -1, "alert_radius_m": 50}`,
			`{"max_accuracy_m": 0, "alert_radius_m": 50}`,
			`{"max_accuracy_m": 10, "alert_radius_m": 0}`,
		} {
			req := httptest.NewRequest("POST", "/api/settings", bytes.NewBufferString(body))
			rr := httptest.NewRecorder()

			handler.HandleSetSettings(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400 for %s, got %d", body, rr.Code)
			}
		}
		cfg := core.Settings()
		if cfg.MaxAccuracyM != 10 || cfg.AlertRadiusM != 50 {
			t.Errorf("Rejected settings must not be applied: %+v", cfg)
		}
	})
}

func TestHandleVersion(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/version", nil)
	rr := httptest.NewRecorder()

	handleVersion(rr, req)

	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp["version"] == "" {
		t.Error("Expected a version string")
	}
}
