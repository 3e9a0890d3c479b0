package nav

import (
	"fmt"
	"image/png"
	"io"
	"os"
	"strings"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	"github.com/tdewolff/canvas/renderers/svg"
)

// MatchRenderer draws the target and frame keypoint clouds side by side with
// correspondence lines between accepted matches. The output is the route
// author's main diagnostic: a stretched, near-horizontal line bundle means a
// clean lock, a crosshatched one means ambiguous matching.
type MatchRenderer struct {
	Target     *TargetSnapshot
	FrameKP    []Keypoint
	FrameSize  [2]int
	Matches    []Match
	Offset     float64
	Similarity float64

	// Gap separates the two panels in output units.
	Gap float64

	// Resolution applies to PNG output.
	Resolution canvas.Resolution
}

// NewMatchRenderer creates a renderer with default layout settings.
func NewMatchRenderer(target *TargetSnapshot, frameKP []Keypoint, frameW, frameH int, matches []Match) *MatchRenderer {
	return &MatchRenderer{
		Target:     target,
		FrameKP:    frameKP,
		FrameSize:  [2]int{frameW, frameH},
		Matches:    matches,
		Gap:        40,
		Resolution: canvas.DPI(150),
	}
}

// canvasRenderer is the interface both the svg and rasterizer backends
// implement.
type canvasRenderer interface {
	RenderPath(path *canvas.Path, style canvas.Style, m canvas.Matrix)
}

// RenderToSVG writes the match diagram as an SVG.
func (r *MatchRenderer) RenderToSVG(w io.Writer) error {
	width, height := r.dimensions()
	svgRenderer := svg.New(w, width, height, nil)
	r.renderToCanvas(svgRenderer, width, height)
	return svgRenderer.Close()
}

// RenderToPNG writes the match diagram as a PNG.
func (r *MatchRenderer) RenderToPNG(w io.Writer) error {
	width, height := r.dimensions()
	rast := rasterizer.New(width, height, r.Resolution, canvas.DefaultColorSpace)
	r.renderToCanvas(rast, width, height)
	return png.Encode(w, rast)
}

// RenderFile writes SVG or PNG depending on the path extension.
func (r *MatchRenderer) RenderFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating match diagram: %w", err)
	}
	defer f.Close()

	if strings.HasSuffix(strings.ToLower(path), ".svg") {
		return r.RenderToSVG(f)
	}
	return r.RenderToPNG(f)
}

// dimensions computes the combined panel size.
func (r *MatchRenderer) dimensions() (float64, float64) {
	tw, th := r.targetSize()
	fw, fh := float64(r.FrameSize[0]), float64(r.FrameSize[1])
	width := tw + r.Gap + fw
	height := th
	if fh > height {
		height = fh
	}
	return width, height
}

func (r *MatchRenderer) targetSize() (float64, float64) {
	if r.Target != nil && r.Target.Gray != nil {
		b := r.Target.Gray.Bounds()
		return float64(b.Dx()), float64(b.Dy())
	}
	return float64(r.FrameSize[0]), float64(r.FrameSize[1])
}

// renderToCanvas draws both keypoint clouds and the correspondence bundle.
// Canvas y grows upward, so image y-coordinates are flipped.
func (r *MatchRenderer) renderToCanvas(renderer canvasRenderer, width, height float64) {
	bgStyle := canvas.DefaultStyle
	bgStyle.Fill = canvas.Paint{Color: canvas.White}
	renderer.RenderPath(canvas.Rectangle(width, height), bgStyle, canvas.Identity)

	tw, _ := r.targetSize()
	frameOffsetX := tw + r.Gap

	// Panel borders.
	borderStyle := canvas.DefaultStyle
	borderStyle.Fill = canvas.Paint{Color: canvas.Transparent}
	borderStyle.Stroke = canvas.Paint{Color: canvas.Lightgray}
	borderStyle.StrokeWidth = 1
	fw, fh := float64(r.FrameSize[0]), float64(r.FrameSize[1])
	th := height
	renderer.RenderPath(panelPath(0, height-th, tw, th), borderStyle, canvas.Identity)
	renderer.RenderPath(panelPath(frameOffsetX, height-fh, fw, fh), borderStyle, canvas.Identity)

	// Keypoint dots.
	dotStyle := canvas.DefaultStyle
	dotStyle.Fill = canvas.Paint{Color: canvas.Orange}
	if r.Target != nil {
		for _, kp := range r.Target.Keypoints {
			renderer.RenderPath(dotPath(kp.X, height-kp.Y, 1.2), dotStyle, canvas.Identity)
		}
	}
	frameDotStyle := canvas.DefaultStyle
	frameDotStyle.Fill = canvas.Paint{Color: canvas.Steelblue}
	for _, kp := range r.FrameKP {
		renderer.RenderPath(dotPath(frameOffsetX+kp.X, height-kp.Y, 1.2), frameDotStyle, canvas.Identity)
	}

	// Correspondence bundle.
	if r.Target != nil && len(r.Matches) > 0 {
		linePath := &canvas.Path{}
		for _, m := range r.Matches {
			tp := r.Target.Keypoints[m.TargetIdx]
			fp := r.FrameKP[m.FrameIdx]
			linePath.MoveTo(tp.X, height-tp.Y)
			linePath.LineTo(frameOffsetX+fp.X, height-fp.Y)
		}
		lineStyle := canvas.DefaultStyle
		lineStyle.Fill = canvas.Paint{Color: canvas.Transparent}
		lineStyle.Stroke = canvas.Paint{Color: canvas.Seagreen}
		lineStyle.StrokeWidth = 0.5
		renderer.RenderPath(linePath, lineStyle, canvas.Identity)
	}
}

// panelPath builds a rectangle outline at the given origin.
func panelPath(x, y, w, h float64) *canvas.Path {
	p := &canvas.Path{}
	p.MoveTo(x, y)
	p.LineTo(x+w, y)
	p.LineTo(x+w, y+h)
	p.LineTo(x, y+h)
	p.Close()
	return p
}

// dotPath builds a small circle centered at (x, y).
func dotPath(x, y, radius float64) *canvas.Path {
	return canvas.Circle(radius).Translate(x, y)
}
