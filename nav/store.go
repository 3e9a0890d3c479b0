package nav

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"path/filepath"
)

// ErrAssetMissing marks a waypoint whose backing image is absent or
// undecodable. The failure is local to that load: the previous target stays
// active and the caller decides whether to retry or skip.
var ErrAssetMissing = errors.New("waypoint asset missing")

// WaypointStore is the ordered collection of targets. It materializes
// descriptors lazily, exactly once per waypoint activation, and is owned by
// the navigation worker alone.
type WaypointStore struct {
	datasetDir string
	waypoints  []Waypoint

	pre PreprocessConfig
	ext ExtractorConfig

	current  int
	snapshot *TargetSnapshot
	complete bool
}

// NewWaypointStore builds a store over an already-loaded route. No image work
// happens until the first LoadWaypoint call.
func NewWaypointStore(datasetDir string, waypoints []Waypoint, pre PreprocessConfig, ext ExtractorConfig) *WaypointStore {
	return &WaypointStore{
		datasetDir: datasetDir,
		waypoints:  waypoints,
		pre:        pre,
		ext:        ext,
	}
}

// Len returns the number of waypoints in the route.
func (s *WaypointStore) Len() int { return len(s.waypoints) }

// CurrentIndex returns the index of the active waypoint.
func (s *WaypointStore) CurrentIndex() int { return s.current }

// Complete reports whether the route has been exhausted.
func (s *WaypointStore) Complete() bool { return s.complete }

// Current returns the active waypoint. The second result is false once the
// route is complete or when the route is empty.
func (s *WaypointStore) Current() (Waypoint, bool) {
	if s.complete || s.current >= len(s.waypoints) {
		return Waypoint{}, false
	}
	return s.waypoints[s.current], true
}

// Snapshot returns the cached features of the active waypoint, or nil before
// the first successful load.
func (s *WaypointStore) Snapshot() *TargetSnapshot {
	return s.snapshot
}

// LoadWaypoint activates the waypoint at index. An index at or past the end
// of the route signals route completion: the call is idempotent, performs no
// descriptor work, and is not an error. A missing or undecodable backing
// image fails only this load and leaves the previous snapshot intact.
func (s *WaypointStore) LoadWaypoint(index int) error {
	if index >= len(s.waypoints) {
		if !s.complete {
			log.Printf("Route complete: reached end at index %d", index)
		}
		s.complete = true
		return nil
	}
	if index < 0 {
		return fmt.Errorf("waypoint index %d out of range", index)
	}

	wp := s.waypoints[index]
	path := filepath.Join(s.datasetDir, wp.ImageName)
	gray, err := loadGrayImage(path, s.pre)
	if err != nil {
		return fmt.Errorf("waypoint %d (%s): %w", index, wp.ImageName, err)
	}

	keypoints, descriptors := Extract(gray, s.ext)
	log.Printf("Target -> index %d id %d action %s features %d %s",
		index, wp.ID, wp.Action, len(keypoints), wp.Description)

	// Replace the snapshot atomically only after the new target is ready.
	s.current = index
	s.snapshot = &TargetSnapshot{
		Index:       index,
		Keypoints:   keypoints,
		Descriptors: descriptors,
		Gray:        gray,
	}
	return nil
}

// Next advances to the waypoint after the current one.
func (s *WaypointStore) Next() error {
	return s.LoadWaypoint(s.current + 1)
}

// loadGrayImage reads an image file and runs it through preprocessing.
func loadGrayImage(path string, pre PreprocessConfig) (*image.Gray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssetMissing, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrAssetMissing, path, err)
	}
	return Preprocess(img, pre), nil
}
