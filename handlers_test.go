package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yangzai4413/AutoSkyProject/nav"
)

func testHTTPServer(t *testing.T) (http.Handler, *nav.StatusTracker) {
	t.Helper()
	config := nav.DefaultConfig()
	config.DatasetDir = t.TempDir()
	cfg := config.RunnerConfig()

	tracker := nav.NewStatusTracker()
	store := nav.NewWaypointStore(config.DatasetDir, nil, cfg.Preprocess, cfg.Extractor)
	runner := nav.NewRunner(cfg, store, &nav.StaticCapture{}, &nav.RecorderActuator{})
	return newHTTPServer(tracker, runner, config), tracker
}

func TestHealthz(t *testing.T) {
	server, _ := testHTTPServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type %q", ct)
	}

	var body struct {
		Status string `json:"status"`
		RunID  string `json:"runId"`
		Ticks  uint64 `json:"ticks"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" {
		t.Errorf("status %q", body.Status)
	}
	if body.RunID == "" {
		t.Error("empty runId")
	}
	if body.Ticks != 0 {
		t.Errorf("ticks %d before any update", body.Ticks)
	}
}

func TestStatusBeforeFirstTick(t *testing.T) {
	server, _ := testHTTPServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status %d, want 503 before any update", w.Code)
	}
}

func TestStatusAfterUpdate(t *testing.T) {
	server, tracker := testHTTPServer(t)

	tracker.Set(nav.StatusUpdate{
		RunID:         "run-1",
		State:         "NAVIGATING",
		WaypointIndex: 3,
		WaypointImage: "wp_3.png",
		Similarity:    0.72,
		Threshold:     0.6,
		Offset:        -12.5,
	})

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status %d, want 200: %s", w.Code, w.Body.String())
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("cache control %q", cc)
	}

	var body struct {
		RunID         string  `json:"runId"`
		State         string  `json:"state"`
		WaypointIndex int     `json:"waypointIndex"`
		Similarity    float64 `json:"similarity"`
		Offset        float64 `json:"offset"`
		Ticks         uint64  `json:"ticks"`
		Mode          string  `json:"mode"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.State != "NAVIGATING" {
		t.Errorf("state %q", body.State)
	}
	if body.WaypointIndex != 3 {
		t.Errorf("waypoint index %d", body.WaypointIndex)
	}
	if body.Similarity != 0.72 {
		t.Errorf("similarity %v", body.Similarity)
	}
	if body.Offset != -12.5 {
		t.Errorf("offset %v", body.Offset)
	}
	if body.Ticks != 1 {
		t.Errorf("ticks %d, want 1", body.Ticks)
	}
	if body.Mode == "" {
		t.Error("empty mode")
	}
}

func TestUnknownPath(t *testing.T) {
	server, _ := testHTTPServer(t)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status %d, want 404", w.Code)
	}
}
