package nav

import (
	"fmt"
	"log"
)

// SelfTestResult is the per-waypoint outcome of the self-match sanity check.
type SelfTestResult struct {
	Index        int
	ImageName    string
	Features     int
	Matches      int
	Offset       float64
	Similarity   float64
	MedianDist   float64
	Passed       bool
	FailureCause string
}

// SelfTest feeds each waypoint's own reference image back through the full
// pipeline as the "current frame". A healthy dataset yields offset near zero
// and similarity above the calibration threshold for every waypoint; a
// failure flags a reference image too dark or too uniform to navigate by.
func SelfTest(store *WaypointStore, cfg RunnerConfig) ([]SelfTestResult, error) {
	results := make([]SelfTestResult, 0, store.Len())

	for i := 0; i < store.Len(); i++ {
		if err := store.LoadWaypoint(i); err != nil {
			results = append(results, SelfTestResult{
				Index:        i,
				Passed:       false,
				FailureCause: err.Error(),
			})
			continue
		}

		snapshot := store.Snapshot()
		wp, _ := store.Current()
		result := SelfTestResult{
			Index:     i,
			ImageName: wp.ImageName,
			Features:  len(snapshot.Keypoints),
		}

		if len(snapshot.Descriptors) < cfg.Extractor.MinDescriptors {
			result.FailureCause = fmt.Sprintf("only %d descriptors, floor is %d",
				len(snapshot.Descriptors), cfg.Extractor.MinDescriptors)
			results = append(results, result)
			continue
		}

		matches := MatchDescriptors(snapshot.Descriptors, snapshot.Descriptors, cfg.Matcher)
		normalizer := cfg.Estimator.Normalizer(cfg.Preprocess.Mode)
		offset, similarity := Estimate(snapshot.Keypoints, snapshot.Keypoints, matches, normalizer)

		result.Matches = len(matches)
		result.Offset = offset
		result.Similarity = similarity
		result.MedianDist = MatchDistanceQuantile(matches, 0.5)

		switch {
		case similarity <= cfg.Machine.CalibrationThreshold:
			result.FailureCause = fmt.Sprintf("self similarity %.2f at or below calibration threshold %.2f",
				similarity, cfg.Machine.CalibrationThreshold)
		case offset > 1 || offset < -1:
			result.FailureCause = fmt.Sprintf("self offset %.2f not near zero", offset)
		default:
			result.Passed = true
		}
		results = append(results, result)
	}
	return results, nil
}

// ReportSelfTest logs the self-test outcome and returns true when every
// waypoint passed.
func ReportSelfTest(results []SelfTestResult) bool {
	passed := 0
	for _, r := range results {
		if r.Passed {
			passed++
			log.Printf("waypoint %2d %-24s ok: features %d, similarity %.2f, offset %+.2f",
				r.Index, r.ImageName, r.Features, r.Similarity, r.Offset)
		} else {
			log.Printf("waypoint %2d %-24s FAILED: %s", r.Index, r.ImageName, r.FailureCause)
		}
	}
	log.Printf("Self-test: %d/%d waypoints passed", passed, len(results))
	return passed == len(results)
}
