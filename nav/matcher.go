package nav

import (
	"math/bits"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// MatcherConfig controls correspondence filtering.
type MatcherConfig struct {
	// KeepFraction retains the best fraction of cross-checked matches.
	KeepFraction float64

	// MinGoodMatches is the floor on the retained count, so short match
	// lists are not filtered below usefulness.
	MinGoodMatches int

	// MinViableMatches is the smallest retained set that still produces an
	// offset estimate. Below it the tick is reported as unmatched.
	MinViableMatches int

	// MaxDistance rejects matches above this Hamming distance regardless of
	// rank. Zero disables the ceiling.
	MaxDistance int
}

// DefaultMatcherConfig returns the tuned matcher defaults.
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{
		KeepFraction:     0.15,
		MinGoodMatches:   10,
		MinViableMatches: 5,
	}
}

// HammingDistance returns the number of differing bits between descriptors.
func HammingDistance(a, b Descriptor) int {
	d := 0
	for i := 0; i < DescriptorWords; i++ {
		d += bits.OnesCount64(a[i] ^ b[i])
	}
	return d
}

// MatchDescriptors finds correspondences from target descriptors to frame descriptors
// using brute-force Hamming nearest neighbors with mutual-consistency
// filtering: a pair survives only when each side is the other's nearest
// neighbor. The result is sorted ascending by distance with ties broken by
// extraction order, so identical input always yields identical output. The
// retained set is the best KeepFraction with a MinGoodMatches floor; fewer
// than MinViableMatches survivors means the frame is unmatched and callers
// score the tick as zero confidence.
func MatchDescriptors(target, frame []Descriptor, cfg MatcherConfig) []Match {
	if len(target) == 0 || len(frame) == 0 {
		return nil
	}
	if cfg.KeepFraction <= 0 {
		cfg.KeepFraction = 0.15
	}
	if cfg.MinGoodMatches <= 0 {
		cfg.MinGoodMatches = 10
	}
	if cfg.MinViableMatches <= 0 {
		cfg.MinViableMatches = 5
	}

	// Nearest frame descriptor for each target descriptor.
	fwd := make([]int, len(target))
	fwdDist := make([]int, len(target))
	for i, td := range target {
		best, bestDist := -1, DescriptorBits+1
		for j, fd := range frame {
			if d := HammingDistance(td, fd); d < bestDist {
				best, bestDist = j, d
			}
		}
		fwd[i], fwdDist[i] = best, bestDist
	}

	// Nearest target descriptor for each frame descriptor.
	rev := make([]int, len(frame))
	for j, fd := range frame {
		best, bestDist := -1, DescriptorBits+1
		for i, td := range target {
			if d := HammingDistance(fd, td); d < bestDist {
				best, bestDist = i, d
			}
		}
		rev[j] = best
	}

	var matches []Match
	for i, j := range fwd {
		if j >= 0 && rev[j] == i {
			matches = append(matches, Match{TargetIdx: i, FrameIdx: j, Distance: fwdDist[i]})
		}
	}
	if len(matches) == 0 {
		return nil
	}

	sort.Slice(matches, func(a, b int) bool {
		if matches[a].Distance != matches[b].Distance {
			return matches[a].Distance < matches[b].Distance
		}
		if matches[a].TargetIdx != matches[b].TargetIdx {
			return matches[a].TargetIdx < matches[b].TargetIdx
		}
		return matches[a].FrameIdx < matches[b].FrameIdx
	})

	keep := int(float64(len(matches)) * cfg.KeepFraction)
	if keep < cfg.MinGoodMatches {
		keep = cfg.MinGoodMatches
	}
	if keep > len(matches) {
		keep = len(matches)
	}
	matches = matches[:keep]

	if cfg.MaxDistance > 0 {
		filtered := matches[:0]
		for _, m := range matches {
			if m.Distance <= cfg.MaxDistance {
				filtered = append(filtered, m)
			}
		}
		matches = filtered
	}

	if len(matches) < cfg.MinViableMatches {
		return nil
	}
	return matches
}

// MatchDistanceQuantile reports the q-quantile of match distances, used by
// the self-test report to characterize match quality spread.
func MatchDistanceQuantile(matches []Match, q float64) float64 {
	if len(matches) == 0 {
		return 0
	}
	dists := make([]float64, len(matches))
	for i, m := range matches {
		dists[i] = float64(m.Distance)
	}
	sort.Float64s(dists)
	return stat.Quantile(q, stat.Empirical, dists, nil)
}
