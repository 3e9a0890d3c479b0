package nav

import (
	"fmt"
	"image"
	"strings"
)

// Action is the maneuver dispatched when the agent arrives at a waypoint.
type Action int

const (
	ActionWalk Action = iota
	ActionFlyStart
	ActionInteract
	ActionJump
)

func (a Action) String() string {
	switch a {
	case ActionWalk:
		return "walk"
	case ActionFlyStart:
		return "fly_start"
	case ActionInteract:
		return "interact"
	case ActionJump:
		return "jump"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// ParseAction converts a route-file action string into an Action.
func ParseAction(value string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "walk":
		return ActionWalk, nil
	case "fly_start":
		return ActionFlyStart, nil
	case "interact":
		return ActionInteract, nil
	case "jump":
		return ActionJump, nil
	default:
		return ActionWalk, fmt.Errorf("unknown action %q", value)
	}
}

// Waypoint is one ordered checkpoint of a route. Records are addressed purely
// by array order; ID is informational only.
type Waypoint struct {
	ID             int     `json:"id"`
	ImageName      string  `json:"img_name"`
	Action         Action  `json:"-"`
	RawAction      string  `json:"action"`
	Duration       float64 `json:"duration"`
	MatchThreshold float64 `json:"match_threshold"`
	Description    string  `json:"description,omitempty"`
}

// Keypoint is a distinctive image location selected for description and
// matching. Response ranks keypoints when the extractor caps their count.
type Keypoint struct {
	X        float64
	Y        float64
	Response float64
}

// DescriptorBits is the fixed descriptor width in bits.
const DescriptorBits = 256

// DescriptorWords is the descriptor width in 64-bit words.
const DescriptorWords = DescriptorBits / 64

// Descriptor is a fixed-width binary fingerprint of the patch around a
// keypoint. Distance between descriptors is the Hamming distance.
type Descriptor [DescriptorWords]uint64

// PreprocessMode selects how raw frames are reduced before extraction.
type PreprocessMode int

const (
	// ModeRawGray matches against plain luminance images.
	ModeRawGray PreprocessMode = iota
	// ModeEdge matches against gradient edge maps for lighting invariance.
	// Edge maps carry less texture, so extraction needs a higher feature cap.
	ModeEdge
)

func (m PreprocessMode) String() string {
	switch m {
	case ModeRawGray:
		return "raw_gray"
	case ModeEdge:
		return "edge"
	default:
		return fmt.Sprintf("PreprocessMode(%d)", int(m))
	}
}

// ParsePreprocessMode converts a config string into a PreprocessMode.
func ParsePreprocessMode(value string) (PreprocessMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "raw_gray", "gray":
		return ModeRawGray, nil
	case "edge":
		return ModeEdge, nil
	default:
		return ModeRawGray, fmt.Errorf("unknown preprocess mode %q", value)
	}
}

// CaptureSource reports how a frame was obtained, for observability.
type CaptureSource int

const (
	// SourceWindow means the frame covers only the target window region.
	SourceWindow CaptureSource = iota
	// SourceFullDisplay means window lookup failed and the frame is a
	// full-display fallback. The fallback itself is never an error.
	SourceFullDisplay
	// SourceDataset means the frame was replayed from recorded files.
	SourceDataset
)

func (s CaptureSource) String() string {
	switch s {
	case SourceWindow:
		return "window"
	case SourceFullDisplay:
		return "full_display"
	case SourceDataset:
		return "dataset"
	default:
		return fmt.Sprintf("CaptureSource(%d)", int(s))
	}
}

// Frame is one captured image. Frames are consumed within a single tick and
// never retained across ticks.
type Frame struct {
	Image  image.Image
	Source CaptureSource
}

// Match is a single accepted correspondence between a target descriptor and a
// frame descriptor.
type Match struct {
	TargetIdx int
	FrameIdx  int
	Distance  int
}

// TargetSnapshot caches the active waypoint's extracted features. It is
// recomputed exactly once per waypoint activation, never per tick, and is
// owned exclusively by the WaypointStore.
type TargetSnapshot struct {
	Index       int
	Keypoints   []Keypoint
	Descriptors []Descriptor
	Gray        *image.Gray
}

// NavState is the single authoritative state of the navigation machine.
type NavState int

const (
	StateCalibrating NavState = iota
	StateNavigating
	StateBlind
	StateArriving
	StateDone
	StateCalibrationFailed
)

func (s NavState) String() string {
	switch s {
	case StateCalibrating:
		return "CALIBRATING"
	case StateNavigating:
		return "NAVIGATING"
	case StateBlind:
		return "BLIND"
	case StateArriving:
		return "ARRIVING"
	case StateDone:
		return "DONE"
	case StateCalibrationFailed:
		return "CALIBRATION_FAILED"
	default:
		return fmt.Sprintf("NavState(%d)", int(s))
	}
}

// Terminal reports whether no further ticks are processed in this state.
func (s NavState) Terminal() bool {
	return s == StateDone || s == StateCalibrationFailed
}

// Outcome is the final result of a navigation run.
type Outcome int

const (
	OutcomeDone Outcome = iota
	OutcomeCalibrationFailed
	OutcomeCancelled
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDone:
		return "DONE"
	case OutcomeCalibrationFailed:
		return "CALIBRATION_FAILED"
	case OutcomeCancelled:
		return "CANCELLED"
	case OutcomeError:
		return "ERROR"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// StatusUpdate is the per-tick message pushed to the presentation surface.
// The worker is the only producer; consumers never write back.
type StatusUpdate struct {
	RunID         string  `json:"runId"`
	State         string  `json:"state"`
	WaypointIndex int     `json:"waypointIndex"`
	WaypointImage string  `json:"waypointImage"`
	Similarity    float64 `json:"similarity"`
	Threshold     float64 `json:"threshold"`
	Offset        float64 `json:"offset"`
	Misses        int     `json:"misses"`
	Source        string  `json:"source"`
	Timestamp     int64   `json:"timestamp"`
}
