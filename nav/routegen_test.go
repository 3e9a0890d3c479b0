package nav

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGenerateRoute(t *testing.T) {
	dir := t.TempDir()
	writeFramePNG(t, filepath.Join(dir, "wp_002.png"), 2)
	writeFramePNG(t, filepath.Join(dir, "wp_000.png"), 0)
	writeFramePNG(t, filepath.Join(dir, "wp_001.png"), 1)
	// Non-image files are ignored.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	waypoints, err := GenerateRoute(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(waypoints) != 3 {
		t.Fatalf("got %d waypoints, want 3", len(waypoints))
	}

	// Filename order defines route order.
	for i, wp := range waypoints {
		if wp.ID != i {
			t.Errorf("waypoint %d has ID %d", i, wp.ID)
		}
		if wp.Action != ActionWalk {
			t.Errorf("waypoint %d action %v, want walk", i, wp.Action)
		}
		if wp.Threshold() != DefaultMatchThreshold {
			t.Errorf("waypoint %d threshold %f", i, wp.Threshold())
		}
	}
	if waypoints[0].ImageName != "wp_000.png" || waypoints[2].ImageName != "wp_002.png" {
		t.Errorf("waypoints out of order: %s ... %s", waypoints[0].ImageName, waypoints[2].ImageName)
	}
	if waypoints[0].Description != "Start Point" {
		t.Errorf("first waypoint description %q", waypoints[0].Description)
	}
}

func TestGenerateRoute_EmptyDir(t *testing.T) {
	if _, err := GenerateRoute(t.TempDir()); err == nil {
		t.Error("expected error for dataset without images")
	}
}

func TestGenerateRouteFile(t *testing.T) {
	dir := t.TempDir()
	writeFramePNG(t, filepath.Join(dir, "wp_0.png"), 1)

	if err := GenerateRouteFile(dir, ""); err != nil {
		t.Fatal(err)
	}

	// Default output lands next to the dataset and loads back.
	waypoints := LoadRoute(filepath.Join(dir, "waypoints.json"))
	if len(waypoints) != 1 {
		t.Fatalf("generated route has %d waypoints, want 1", len(waypoints))
	}
	if waypoints[0].ImageName != "wp_0.png" {
		t.Errorf("image name %q", waypoints[0].ImageName)
	}
}
