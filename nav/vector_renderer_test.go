package nav

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func testMatchRenderer() *MatchRenderer {
	target := &TargetSnapshot{
		Index: 0,
		Keypoints: []Keypoint{
			{X: 30, Y: 30}, {X: 90, Y: 70},
		},
		Gray: noiseGray(160, 120, 1),
	}
	frameKP := []Keypoint{{X: 35, Y: 32}, {X: 95, Y: 68}}
	matches := []Match{
		{TargetIdx: 0, FrameIdx: 0, Distance: 8},
		{TargetIdx: 1, FrameIdx: 1, Distance: 14},
	}
	return NewMatchRenderer(target, frameKP, 160, 120, matches)
}

func TestMatchRenderer_SVG(t *testing.T) {
	var buf bytes.Buffer
	if err := testMatchRenderer().RenderToSVG(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "<svg") {
		t.Error("output does not look like SVG")
	}
	if len(out) < 100 {
		t.Errorf("suspiciously small SVG: %d bytes", len(out))
	}
}

func TestMatchRenderer_PNG(t *testing.T) {
	var buf bytes.Buffer
	if err := testMatchRenderer().RenderToPNG(&buf); err != nil {
		t.Fatal(err)
	}
	// PNG magic header.
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Error("output does not look like PNG")
	}
}

func TestMatchRenderer_FileByExtension(t *testing.T) {
	dir := t.TempDir()

	svgPath := filepath.Join(dir, "diagram.svg")
	if err := testMatchRenderer().RenderFile(svgPath); err != nil {
		t.Fatal(err)
	}
	pngPath := filepath.Join(dir, "diagram.png")
	if err := testMatchRenderer().RenderFile(pngPath); err != nil {
		t.Fatal(err)
	}
}

func TestMatchRenderer_NoMatches(t *testing.T) {
	r := NewMatchRenderer(&TargetSnapshot{Gray: noiseGray(64, 64, 2)}, nil, 64, 64, nil)
	var buf bytes.Buffer
	if err := r.RenderToSVG(&buf); err != nil {
		t.Fatalf("empty match set must still render: %v", err)
	}
}

func TestMatchRenderer_Dimensions(t *testing.T) {
	r := testMatchRenderer()
	w, h := r.dimensions()
	if w != 160+40+160 {
		t.Errorf("width %f, want both panels plus gap", w)
	}
	if h != 120 {
		t.Errorf("height %f, want 120", h)
	}
}
