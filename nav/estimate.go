package nav

import "gonum.org/v1/gonum/stat"

// EstimatorConfig holds the per-mode similarity normalizers. The divisors are
// empirically tuned: raw grayscale descriptors spread over larger Hamming
// distances than edge-map descriptors, so edge mode normalizes tighter.
type EstimatorConfig struct {
	RawNormalizer  float64
	EdgeNormalizer float64
}

// DefaultEstimatorConfig returns the tuned normalizers.
func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		RawNormalizer:  100,
		EdgeNormalizer: 80,
	}
}

// Normalizer returns the divisor for the given preprocessing mode.
func (c EstimatorConfig) Normalizer(mode PreprocessMode) float64 {
	if mode == ModeEdge {
		if c.EdgeNormalizer > 0 {
			return c.EdgeNormalizer
		}
		return 80
	}
	if c.RawNormalizer > 0 {
		return c.RawNormalizer
	}
	return 100
}

// Estimate reduces accepted correspondences to a signed horizontal offset and
// a normalized similarity score.
//
// Offset is the difference of matched centroid x-coordinates, frame minus
// target: positive means the recognized scene content sits right of where the
// target expects it, so the agent should rotate rightward to re-center.
//
// Similarity is 1 - avgDistance/normalizer clamped to [0, 1]. Both values are
// recomputed fully each tick; any smoothing across ticks belongs to the state
// machine, not here.
//
// An empty match set (the unmatched-frame case) always yields (0, 0).
func Estimate(targetKP, frameKP []Keypoint, matches []Match, normalizer float64) (offset, similarity float64) {
	if len(matches) == 0 {
		return 0, 0
	}
	if normalizer <= 0 {
		normalizer = 100
	}

	targetX := make([]float64, len(matches))
	frameX := make([]float64, len(matches))
	dists := make([]float64, len(matches))
	for i, m := range matches {
		targetX[i] = targetKP[m.TargetIdx].X
		frameX[i] = frameKP[m.FrameIdx].X
		dists[i] = float64(m.Distance)
	}

	offset = stat.Mean(frameX, nil) - stat.Mean(targetX, nil)
	similarity = 1 - stat.Mean(dists, nil)/normalizer
	if similarity < 0 {
		similarity = 0
	} else if similarity > 1 {
		similarity = 1
	}
	return offset, similarity
}
