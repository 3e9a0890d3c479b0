package nav

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
)

// DefaultMatchThreshold is the arrival similarity threshold applied when a
// waypoint record does not configure one.
const DefaultMatchThreshold = 0.6

// Threshold returns the waypoint's arrival threshold, falling back to the
// default when the record left it unset.
func (w Waypoint) Threshold() float64 {
	if w.MatchThreshold <= 0 {
		return DefaultMatchThreshold
	}
	return w.MatchThreshold
}

// UnmarshalJSON decodes a route record, defaulting match_threshold when the
// field is absent and resolving the action string.
func (w *Waypoint) UnmarshalJSON(data []byte) error {
	type record struct {
		ID             int      `json:"id"`
		ImageName      string   `json:"img_name"`
		Action         string   `json:"action"`
		Duration       float64  `json:"duration"`
		MatchThreshold *float64 `json:"match_threshold"`
		Description    string   `json:"description"`
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}

	action, err := ParseAction(rec.Action)
	if err != nil {
		return fmt.Errorf("waypoint %d: %w", rec.ID, err)
	}

	w.ID = rec.ID
	w.ImageName = rec.ImageName
	w.Action = action
	w.RawAction = rec.Action
	w.Duration = rec.Duration
	w.Description = rec.Description
	if rec.MatchThreshold != nil {
		w.MatchThreshold = *rec.MatchThreshold
	} else {
		w.MatchThreshold = DefaultMatchThreshold
	}
	return nil
}

// LoadRoute reads the ordered waypoint list from a JSON file. A missing or
// unparseable file is not fatal: it logs a warning and yields an empty route,
// which drives the navigation loop straight to DONE.
func LoadRoute(path string) []Waypoint {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("Warning: route file not readable (%v), using empty route", err)
		return nil
	}

	var waypoints []Waypoint
	if err := json.Unmarshal(data, &waypoints); err != nil {
		log.Printf("Warning: route file %s not parseable (%v), using empty route", path, err)
		return nil
	}
	return waypoints
}

// SaveRoute writes the waypoint list as indented JSON, the format consumed by
// LoadRoute and produced by the route generator.
func SaveRoute(path string, waypoints []Waypoint) error {
	type record struct {
		ID             int     `json:"id"`
		ImageName      string  `json:"img_name"`
		Action         string  `json:"action"`
		Duration       float64 `json:"duration"`
		MatchThreshold float64 `json:"match_threshold"`
		Description    string  `json:"description,omitempty"`
	}
	records := make([]record, len(waypoints))
	for i, w := range waypoints {
		records[i] = record{
			ID:             w.ID,
			ImageName:      w.ImageName,
			Action:         w.Action.String(),
			Duration:       w.Duration,
			MatchThreshold: w.Threshold(),
			Description:    w.Description,
		}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling route: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing route file: %w", err)
	}
	return nil
}
