package nav

import (
	"image"
	"image/color"
	"math"

	xdraw "golang.org/x/image/draw"
)

// PreprocessConfig controls frame reduction ahead of feature extraction.
// Edge thresholds follow the usual low/high hysteresis convention; gradient
// magnitude uses the L2 norm.
type PreprocessConfig struct {
	Mode PreprocessMode

	// ScaleWidth downscales frames wider than this before extraction.
	// Zero disables scaling.
	ScaleWidth int

	// EdgeLow and EdgeHigh are the hysteresis thresholds for edge mode.
	EdgeLow  float64
	EdgeHigh float64
}

// DefaultPreprocessConfig returns the tuned defaults for raw grayscale mode.
func DefaultPreprocessConfig() PreprocessConfig {
	return PreprocessConfig{
		Mode:     ModeRawGray,
		EdgeLow:  20,
		EdgeHigh: 60,
	}
}

// Preprocess reduces a frame to the fixed single-channel representation the
// extractor consumes. Raw mode is plain luminance; edge mode additionally
// applies gradient edge detection for lighting invariance.
func Preprocess(frame image.Image, cfg PreprocessConfig) *image.Gray {
	gray := ToGray(frame)
	if cfg.ScaleWidth > 0 && gray.Bounds().Dx() > cfg.ScaleWidth {
		gray = scaleGray(gray, cfg.ScaleWidth)
	}
	if cfg.Mode == ModeEdge {
		return EdgeMap(gray, cfg.EdgeLow, cfg.EdgeHigh)
	}
	return gray
}

// ToGray converts any image to 8-bit BT.601 luminance. An input that is
// already *image.Gray with a zero origin is returned as is.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Bounds().Min == image.Pt(0, 0) {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			gray.SetGray(x-b.Min.X, y-b.Min.Y, c)
		}
	}
	return gray
}

// scaleGray downscales to the requested width preserving aspect ratio.
func scaleGray(src *image.Gray, width int) *image.Gray {
	b := src.Bounds()
	height := int(math.Round(float64(b.Dy()) * float64(width) / float64(b.Dx())))
	if height < 1 {
		height = 1
	}
	dst := image.NewGray(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}

// EdgeMap runs gradient edge detection on a luminance image and returns a
// binary map with edges at 255. The pipeline is the classic one: Gaussian
// smoothing, Sobel gradients, non-maximum suppression along the gradient
// direction, then double-threshold hysteresis.
func EdgeMap(gray *image.Gray, low, high float64) *image.Gray {
	if low <= 0 {
		low = 20
	}
	if high <= low {
		high = low * 3
	}

	smoothed := gaussian5(gray)
	w := smoothed.Bounds().Dx()
	h := smoothed.Bounds().Dy()

	mag := make([]float64, w*h)
	dir := make([]float64, w*h)
	sobel(smoothed, mag, dir)

	thin := nonMaxSuppress(mag, dir, w, h)
	return hysteresis(thin, w, h, low, high)
}

// gaussian5 applies a separable 5-tap Gaussian (1 4 6 4 1)/16 blur.
func gaussian5(src *image.Gray) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	kernel := [5]int{1, 4, 6, 4, 1}

	tmp := make([]int, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := 0
			for k := -2; k <= 2; k++ {
				xx := clampInt(x+k, 0, w-1)
				sum += kernel[k+2] * int(src.GrayAt(xx, y).Y)
			}
			tmp[y*w+x] = sum / 16
		}
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := 0
			for k := -2; k <= 2; k++ {
				yy := clampInt(y+k, 0, h-1)
				sum += kernel[k+2] * tmp[yy*w+x]
			}
			dst.Pix[y*dst.Stride+x] = uint8(sum / 16)
		}
	}
	return dst
}

// sobel fills L2 gradient magnitude and direction (radians) per pixel.
// Border pixels are left at zero magnitude.
func sobel(src *image.Gray, mag, dir []float64) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			p := func(dx, dy int) float64 {
				return float64(src.GrayAt(x+dx, y+dy).Y)
			}
			gx := -p(-1, -1) - 2*p(-1, 0) - p(-1, 1) + p(1, -1) + 2*p(1, 0) + p(1, 1)
			gy := -p(-1, -1) - 2*p(0, -1) - p(1, -1) + p(-1, 1) + 2*p(0, 1) + p(1, 1)
			i := y*w + x
			mag[i] = math.Hypot(gx, gy)
			dir[i] = math.Atan2(gy, gx)
		}
	}
}

// nonMaxSuppress keeps only pixels that are local maxima along their gradient
// direction, quantized to four sectors.
func nonMaxSuppress(mag, dir []float64, w, h int) []float64 {
	out := make([]float64, w*h)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			m := mag[i]
			if m == 0 {
				continue
			}
			angle := dir[i] * 180 / math.Pi
			if angle < 0 {
				angle += 180
			}

			var a, b float64
			switch {
			case angle < 22.5 || angle >= 157.5: // horizontal gradient
				a, b = mag[i-1], mag[i+1]
			case angle < 67.5: // 45 degrees
				a, b = mag[(y-1)*w+x+1], mag[(y+1)*w+x-1]
			case angle < 112.5: // vertical gradient
				a, b = mag[(y-1)*w+x], mag[(y+1)*w+x]
			default: // 135 degrees
				a, b = mag[(y-1)*w+x-1], mag[(y+1)*w+x+1]
			}
			if m >= a && m >= b {
				out[i] = m
			}
		}
	}
	return out
}

// hysteresis applies double thresholding: strong pixels (>= high) become
// edges and weak pixels (>= low) survive only if connected to a strong one.
func hysteresis(mag []float64, w, h int, low, high float64) *image.Gray {
	const (
		none   = 0
		weak   = 1
		strong = 2
	)
	marks := make([]uint8, w*h)
	var stack []int
	for i, m := range mag {
		switch {
		case m >= high:
			marks[i] = strong
			stack = append(stack, i)
		case m >= low:
			marks[i] = weak
		}
	}

	// Flood weak pixels reachable from strong ones.
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if marks[j] == weak {
					marks[j] = strong
					stack = append(stack, j)
				}
			}
		}
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	for i, m := range marks {
		if m == strong {
			dst.Pix[i/w*dst.Stride+i%w] = 255
		}
	}
	return dst
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
