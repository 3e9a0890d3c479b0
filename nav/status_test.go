package nav

import (
	"testing"
)

func TestStatusTracker(t *testing.T) {
	tracker := NewStatusTracker()
	if _, ok := tracker.Latest(); ok {
		t.Error("fresh tracker reports a status")
	}
	if tracker.Ticks() != 0 {
		t.Errorf("fresh tracker ticks %d", tracker.Ticks())
	}

	ch := make(chan StatusUpdate, 2)
	ch <- StatusUpdate{RunID: "r", State: "CALIBRATING"}
	ch <- StatusUpdate{RunID: "r", State: "NAVIGATING"}
	close(ch)
	tracker.Consume(ch)

	latest, ok := tracker.Latest()
	if !ok {
		t.Fatal("no status after consume")
	}
	if latest.State != "NAVIGATING" {
		t.Errorf("latest state %q, want the newest update", latest.State)
	}
	if tracker.Ticks() != 2 {
		t.Errorf("ticks %d, want 2", tracker.Ticks())
	}
	if tracker.Uptime() < 0 {
		t.Error("negative uptime")
	}
}

func TestNavState_Terminal(t *testing.T) {
	terminals := map[NavState]bool{
		StateCalibrating:       false,
		StateNavigating:        false,
		StateBlind:             false,
		StateArriving:          false,
		StateDone:              true,
		StateCalibrationFailed: true,
	}
	for state, want := range terminals {
		if state.Terminal() != want {
			t.Errorf("%v.Terminal() = %v, want %v", state, state.Terminal(), want)
		}
	}
}

func TestParsePreprocessMode(t *testing.T) {
	if m, err := ParsePreprocessMode("edge"); err != nil || m != ModeEdge {
		t.Errorf("edge parse: %v, %v", m, err)
	}
	if m, err := ParsePreprocessMode(""); err != nil || m != ModeRawGray {
		t.Errorf("empty parse: %v, %v", m, err)
	}
	if _, err := ParsePreprocessMode("sepia"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
