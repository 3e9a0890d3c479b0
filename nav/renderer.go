package nav

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// OverlayColors defines the palette for the debug overlay.
type OverlayColors struct {
	Keypoint color.NRGBA
	Matched  color.NRGBA
	Center   color.NRGBA
	Offset   color.NRGBA
	Text     color.NRGBA
}

// DefaultOverlayColors returns the overlay palette.
func DefaultOverlayColors() OverlayColors {
	return OverlayColors{
		Keypoint: color.NRGBA{255, 215, 0, 255},  // gold
		Matched:  color.NRGBA{0, 255, 0, 255},    // green
		Center:   color.NRGBA{100, 149, 237, 255}, // cornflower blue
		Offset:   color.NRGBA{255, 0, 0, 255},    // red
		Text:     color.NRGBA{0, 255, 0, 255},
	}
}

// TickOverlay is everything the debug renderer draws for one tick.
type TickOverlay struct {
	Frame      *image.Gray
	Keypoints  []Keypoint
	Matches    []Match
	Offset     float64
	Similarity float64
	Waypoint   Waypoint
	Index      int
	State      NavState
}

// OverlayRenderer draws tick diagnostics onto the processed frame: all
// keypoints, matched keypoints, a center reference line, the offset
// indicator, and a text HUD.
type OverlayRenderer struct {
	Colors OverlayColors
}

// NewOverlayRenderer creates a renderer with default colors.
func NewOverlayRenderer() *OverlayRenderer {
	return &OverlayRenderer{Colors: DefaultOverlayColors()}
}

// Render produces the annotated image.
func (r *OverlayRenderer) Render(overlay TickOverlay) *image.NRGBA {
	b := overlay.Frame.Bounds()
	img := image.NewNRGBA(b)
	draw.Draw(img, b, overlay.Frame, b.Min, draw.Src)

	matched := make(map[int]bool, len(overlay.Matches))
	for _, m := range overlay.Matches {
		matched[m.FrameIdx] = true
	}

	for i, kp := range overlay.Keypoints {
		c := r.Colors.Keypoint
		if matched[i] {
			c = r.Colors.Matched
		}
		drawCross(img, int(kp.X), int(kp.Y), 3, c)
	}

	w, h := b.Dx(), b.Dy()
	drawVLine(img, w/2, 0, h, r.Colors.Center)
	drawHLine(img, 0, w, h/2, r.Colors.Center)

	// Offset indicator from center, matching the sign convention: positive
	// points right.
	end := w/2 + int(overlay.Offset)
	if end < 0 {
		end = 0
	}
	if end >= w {
		end = w - 1
	}
	if end < w/2 {
		drawHLineRange(img, end, w/2, h/2, r.Colors.Offset)
	} else {
		drawHLineRange(img, w/2, end, h/2, r.Colors.Offset)
	}

	hud := []string{
		fmt.Sprintf("Target: %d (%s)", overlay.Index, overlay.Waypoint.ImageName),
		fmt.Sprintf("State: %s", overlay.State),
		fmt.Sprintf("Offset: %+.2f", overlay.Offset),
		fmt.Sprintf("Score: %.2f / %.2f", overlay.Similarity, overlay.Waypoint.Threshold()),
		fmt.Sprintf("Features: %d, matched %d", len(overlay.Keypoints), len(overlay.Matches)),
	}
	y := 20
	for _, line := range hud {
		drawLabel(img, 10, y, line, r.Colors.Text)
		y += 16
	}
	return img
}

// RenderPNG writes the annotated frame to a file.
func (r *OverlayRenderer) RenderPNG(path string, overlay TickOverlay) error {
	img := r.Render(overlay)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating overlay file: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encoding overlay PNG: %w", err)
	}
	return nil
}

func drawCross(img *image.NRGBA, x, y, arm int, c color.NRGBA) {
	b := img.Bounds()
	for d := -arm; d <= arm; d++ {
		if image.Pt(x+d, y).In(b) {
			img.SetNRGBA(x+d, y, c)
		}
		if image.Pt(x, y+d).In(b) {
			img.SetNRGBA(x, y+d, c)
		}
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	for y := y0; y < y1; y++ {
		if image.Pt(x, y).In(img.Bounds()) {
			img.SetNRGBA(x, y, c)
		}
	}
}

func drawHLine(img *image.NRGBA, x0, x1, y int, c color.NRGBA) {
	drawHLineRange(img, x0, x1, y, c)
}

func drawHLineRange(img *image.NRGBA, x0, x1, y int, c color.NRGBA) {
	for x := x0; x <= x1; x++ {
		if image.Pt(x, y).In(img.Bounds()) {
			img.SetNRGBA(x, y, c)
		}
	}
}

// drawLabel renders small HUD text with the basic bitmap font.
func drawLabel(img *image.NRGBA, x, y int, text string, c color.NRGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
