package nav

import (
	"image"
	"math/rand"
	"sort"
)

// ExtractorConfig bounds feature extraction.
type ExtractorConfig struct {
	// MaxFeatures caps the keypoint count, ranked by detector response.
	MaxFeatures int

	// Threshold is the FAST segment-test intensity margin.
	Threshold int

	// MinDescriptors is the floor below which a frame counts as having no
	// usable signal. Degenerate frames are not an error.
	MinDescriptors int
}

// DefaultExtractorConfig returns extraction defaults for the given mode.
// Edge maps carry less texture than raw luminance, so edge mode works with a
// doubled feature cap to compensate.
func DefaultExtractorConfig(mode PreprocessMode) ExtractorConfig {
	cfg := ExtractorConfig{
		MaxFeatures:    500,
		Threshold:      20,
		MinDescriptors: 8,
	}
	if mode == ModeEdge {
		cfg.MaxFeatures = 1000
		cfg.Threshold = 40
	}
	return cfg
}

// patchMargin keeps keypoints far enough from the border for both the FAST
// circle (radius 3) and the descriptor patch (31x31).
const patchMargin = 16

// fastArcMin is the minimum contiguous arc length for the segment test.
const fastArcMin = 9

// circleOffsets is the 16-point Bresenham circle of radius 3 used by the
// segment test, in clockwise order starting at 12 o'clock.
var circleOffsets = [16][2]int{
	{0, -3}, {1, -3}, {2, -2}, {3, -1},
	{3, 0}, {3, 1}, {2, 2}, {1, 3},
	{0, 3}, {-1, 3}, {-2, 2}, {-3, 1},
	{-3, 0}, {-3, -1}, {-2, -2}, {-1, -3},
}

// briefPattern is the fixed descriptor sampling pattern: DescriptorBits point
// pairs inside the 31x31 patch. It is generated once from a constant seed so
// identical pixels always produce identical descriptors.
var briefPattern = makeBriefPattern()

func makeBriefPattern() [DescriptorBits][4]int {
	rng := rand.New(rand.NewSource(0x5eed))
	var pattern [DescriptorBits][4]int
	for i := range pattern {
		for j := 0; j < 4; j++ {
			// Coordinates in [-13, 13], clear of the patch border.
			pattern[i][j] = rng.Intn(27) - 13
		}
	}
	return pattern
}

// Extract detects capped, response-ranked keypoints and computes one binary
// descriptor per keypoint in the same order. Near-uniform input yields fewer
// descriptors than cfg.MinDescriptors; callers treat that as "no signal".
func Extract(gray *image.Gray, cfg ExtractorConfig) ([]Keypoint, []Descriptor) {
	if cfg.MaxFeatures <= 0 {
		cfg.MaxFeatures = 500
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 20
	}

	candidates := detectFAST(gray, cfg.Threshold)
	candidates = suppressNonMax(candidates)

	// Rank by response; ties break on raster order so identical pixel input
	// always yields the same keypoint set.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Response != candidates[j].Response {
			return candidates[i].Response > candidates[j].Response
		}
		if candidates[i].Y != candidates[j].Y {
			return candidates[i].Y < candidates[j].Y
		}
		return candidates[i].X < candidates[j].X
	})
	if len(candidates) > cfg.MaxFeatures {
		candidates = candidates[:cfg.MaxFeatures]
	}

	smoothed := gaussian5(gray)
	descriptors := make([]Descriptor, len(candidates))
	for i, kp := range candidates {
		descriptors[i] = describe(smoothed, kp)
	}
	return candidates, descriptors
}

// detectFAST runs the FAST segment test: a pixel is a corner when at least
// fastArcMin contiguous circle pixels are all brighter than center+threshold
// or all darker than center-threshold. Response is the summed margin over the
// circle, which ranks stronger corners higher.
func detectFAST(gray *image.Gray, threshold int) []Keypoint {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	var keypoints []Keypoint

	var ring [16]int
	for y := patchMargin; y < h-patchMargin; y++ {
		for x := patchMargin; x < w-patchMargin; x++ {
			center := int(gray.Pix[y*gray.Stride+x])
			hi := center + threshold
			lo := center - threshold

			brighter, darker := 0, 0
			for i, off := range circleOffsets {
				v := int(gray.Pix[(y+off[1])*gray.Stride+x+off[0]])
				ring[i] = v
				if v > hi {
					brighter++
				} else if v < lo {
					darker++
				}
			}
			// Cheap reject before the contiguity scan.
			if brighter < fastArcMin && darker < fastArcMin {
				continue
			}
			if !hasContiguousArc(ring, hi, lo) {
				continue
			}

			response := 0
			for _, v := range ring {
				d := v - center
				if d < 0 {
					d = -d
				}
				if d > threshold {
					response += d - threshold
				}
			}
			keypoints = append(keypoints, Keypoint{
				X:        float64(x),
				Y:        float64(y),
				Response: float64(response),
			})
		}
	}
	return keypoints
}

// hasContiguousArc scans the doubled ring for a run of fastArcMin pixels all
// above hi or all below lo.
func hasContiguousArc(ring [16]int, hi, lo int) bool {
	runHi, runLo := 0, 0
	for i := 0; i < 32; i++ {
		v := ring[i%16]
		if v > hi {
			runHi++
			if runHi >= fastArcMin {
				return true
			}
		} else {
			runHi = 0
		}
		if v < lo {
			runLo++
			if runLo >= fastArcMin {
				return true
			}
		} else {
			runLo = 0
		}
	}
	return false
}

// suppressNonMax drops keypoints that have a stronger neighbor within a 3x3
// window, thinning corner clusters.
func suppressNonMax(keypoints []Keypoint) []Keypoint {
	if len(keypoints) == 0 {
		return keypoints
	}
	byCell := make(map[[2]int]float64, len(keypoints))
	for _, kp := range keypoints {
		byCell[[2]int{int(kp.X), int(kp.Y)}] = kp.Response
	}

	kept := keypoints[:0]
	for _, kp := range keypoints {
		x, y := int(kp.X), int(kp.Y)
		best := true
		for dy := -1; dy <= 1 && best; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				r, ok := byCell[[2]int{x + dx, y + dy}]
				if !ok {
					continue
				}
				// Strictly-greater neighbors win; equal responses keep the
				// raster-earlier keypoint.
				if r > kp.Response || (r == kp.Response && (dy < 0 || (dy == 0 && dx < 0))) {
					best = false
					break
				}
			}
		}
		if best {
			kept = append(kept, kp)
		}
	}
	return kept
}

// describe computes the 256-bit intensity-comparison descriptor for one
// keypoint over the pre-smoothed image.
func describe(smoothed *image.Gray, kp Keypoint) Descriptor {
	var d Descriptor
	x, y := int(kp.X), int(kp.Y)
	for i, p := range briefPattern {
		a := smoothed.Pix[(y+p[1])*smoothed.Stride+x+p[0]]
		b := smoothed.Pix[(y+p[3])*smoothed.Stride+x+p[2]]
		if a < b {
			d[i/64] |= 1 << uint(i%64)
		}
	}
	return d
}
