package nav

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// GenerateRoute scans a dataset directory for reference images and builds a
// default route: every frame a walk waypoint with the default threshold.
// Special waypoints (takeoff, jump, interaction points) are expected to be
// edited in by hand afterwards.
func GenerateRoute(datasetDir string) ([]Waypoint, error) {
	entries, err := os.ReadDir(datasetDir)
	if err != nil {
		return nil, fmt.Errorf("reading dataset dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		return nil, fmt.Errorf("no images found in %s", datasetDir)
	}

	waypoints := make([]Waypoint, len(names))
	for i, name := range names {
		waypoints[i] = Waypoint{
			ID:             i,
			ImageName:      name,
			Action:         ActionWalk,
			MatchThreshold: DefaultMatchThreshold,
		}
		if i == 0 {
			waypoints[i].Description = "Start Point"
		}
	}
	return waypoints, nil
}

// GenerateRouteFile writes a generated route next to its dataset.
func GenerateRouteFile(datasetDir, outputPath string) error {
	waypoints, err := GenerateRoute(datasetDir)
	if err != nil {
		return err
	}
	if outputPath == "" {
		outputPath = filepath.Join(datasetDir, "waypoints.json")
	}
	if err := SaveRoute(outputPath, waypoints); err != nil {
		return err
	}
	log.Printf("Generated route file %s with %d waypoints", outputPath, len(waypoints))
	log.Println("Review and edit special waypoints (takeoff, jump, interact) by hand")
	return nil
}
