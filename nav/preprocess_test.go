package nav

import (
	"image"
	"image/color"
	"testing"
)

func TestToGray_Luminance(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	img.Set(1, 0, color.RGBA{A: 255})

	gray := ToGray(img)
	if gray.GrayAt(0, 0).Y != 255 {
		t.Errorf("white converted to %d", gray.GrayAt(0, 0).Y)
	}
	if gray.GrayAt(1, 0).Y != 0 {
		t.Errorf("black converted to %d", gray.GrayAt(1, 0).Y)
	}
}

func TestToGray_PassThrough(t *testing.T) {
	src := uniformGray(10, 10, 50)
	if got := ToGray(src); got != src {
		t.Error("zero-origin gray input should pass through unchanged")
	}
}

func TestPreprocess_ScaleWidth(t *testing.T) {
	cfg := DefaultPreprocessConfig()
	cfg.ScaleWidth = 100

	out := Preprocess(noiseGray(200, 100, 1), cfg)
	if out.Bounds().Dx() != 100 {
		t.Errorf("scaled width %d, want 100", out.Bounds().Dx())
	}
	if out.Bounds().Dy() != 50 {
		t.Errorf("scaled height %d, want 50 (aspect preserved)", out.Bounds().Dy())
	}

	// Narrower frames are untouched.
	out = Preprocess(noiseGray(80, 60, 1), cfg)
	if out.Bounds().Dx() != 80 {
		t.Errorf("narrow frame rescaled to %d", out.Bounds().Dx())
	}
}

func TestEdgeMap_StepEdge(t *testing.T) {
	// Left half dark, right half bright: one strong vertical edge.
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 32; x < 64; x++ {
			img.Pix[y*img.Stride+x] = 200
		}
	}

	edges := EdgeMap(img, 20, 60)
	found := 0
	for y := 5; y < 59; y++ {
		for x := 28; x < 36; x++ {
			if edges.GrayAt(x, y).Y == 255 {
				found++
			}
		}
	}
	if found == 0 {
		t.Error("no edge pixels detected along the step boundary")
	}

	// Away from the boundary everything stays empty.
	for y := 5; y < 59; y++ {
		if edges.GrayAt(10, y).Y != 0 {
			t.Fatalf("spurious edge at (10, %d)", y)
		}
		if edges.GrayAt(54, y).Y != 0 {
			t.Fatalf("spurious edge at (54, %d)", y)
		}
	}
}

func TestEdgeMap_UniformImage(t *testing.T) {
	edges := EdgeMap(uniformGray(64, 64, 128), 20, 60)
	for i, p := range edges.Pix {
		if p != 0 {
			t.Fatalf("uniform image produced edge at pixel %d", i)
		}
	}
}

func TestEdgeMap_Binary(t *testing.T) {
	edges := EdgeMap(noiseGray(64, 64, 9), 20, 60)
	for i, p := range edges.Pix {
		if p != 0 && p != 255 {
			t.Fatalf("edge map pixel %d has value %d, want 0 or 255", i, p)
		}
	}
}

func TestPreprocess_EdgeMode(t *testing.T) {
	cfg := DefaultPreprocessConfig()
	cfg.Mode = ModeEdge

	out := Preprocess(noiseGray(64, 64, 3), cfg)
	for i, p := range out.Pix {
		if p != 0 && p != 255 {
			t.Fatalf("edge mode output pixel %d has value %d", i, p)
		}
	}
}
