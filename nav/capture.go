package nav

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Capture is the frame source collaborator. Implementations that target a
// live window may fall back to a full-display grab when the window region
// lookup fails; the fallback is reported through Frame.Source, never as an
// error.
type Capture interface {
	CaptureFrame() (Frame, error)
}

// DatasetCapture replays recorded frames from a directory in filename order.
// It backs offline runs, the self-test mode, and the loop tests; live screen
// capture is an external collaborator behind the same interface.
type DatasetCapture struct {
	mu    sync.Mutex
	paths []string
	next  int

	// Loop replays from the first frame after the last; otherwise the final
	// frame repeats forever.
	Loop bool
}

// NewDatasetCapture scans dir for .jpg/.jpeg/.png frames.
func NewDatasetCapture(dir string) (*DatasetCapture, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading dataset dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("no frames found in %s", dir)
	}
	return &DatasetCapture{paths: paths}, nil
}

// Len returns the number of frames available.
func (c *DatasetCapture) Len() int { return len(c.paths) }

// CaptureFrame returns the next recorded frame.
func (c *DatasetCapture) CaptureFrame() (Frame, error) {
	c.mu.Lock()
	idx := c.next
	if idx >= len(c.paths) {
		if c.Loop {
			idx = 0
			c.next = 1
		} else {
			idx = len(c.paths) - 1
		}
	} else {
		c.next++
	}
	path := c.paths[idx]
	c.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return Frame{}, fmt.Errorf("opening frame %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return Frame{}, fmt.Errorf("decoding frame %s: %w", path, err)
	}
	return Frame{Image: img, Source: SourceDataset}, nil
}

// StaticCapture returns the same frame on every tick. Tests inject it to
// drive the pipeline with synthetic images.
type StaticCapture struct {
	Frame Frame
	Err   error
}

// CaptureFrame returns the configured frame or error.
func (c *StaticCapture) CaptureFrame() (Frame, error) {
	return c.Frame, c.Err
}
