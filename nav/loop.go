package nav

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// RunnerConfig aggregates the per-run pipeline tuning.
type RunnerConfig struct {
	// TickInterval is the fixed inter-tick delay: a deliberate frame-rate
	// cap, not a hard real-time guarantee.
	TickInterval time.Duration

	// StatusBuffer bounds the status channel. The worker never blocks on a
	// slow consumer; overflow ticks are dropped.
	StatusBuffer int

	Preprocess PreprocessConfig
	Extractor  ExtractorConfig
	Matcher    MatcherConfig
	Estimator  EstimatorConfig
	Machine    MachineConfig
	Steering   ActuatorConfig
}

// DefaultRunnerConfig returns tuned defaults for the given preprocessing mode.
func DefaultRunnerConfig(mode PreprocessMode) RunnerConfig {
	pre := DefaultPreprocessConfig()
	pre.Mode = mode
	return RunnerConfig{
		TickInterval: 100 * time.Millisecond,
		StatusBuffer: 16,
		Preprocess:   pre,
		Extractor:    DefaultExtractorConfig(mode),
		Matcher:      DefaultMatcherConfig(),
		Estimator:    DefaultEstimatorConfig(),
		Machine:      DefaultMachineConfig(),
		Steering:     DefaultActuatorConfig(),
	}
}

// Runner drives the tick loop: capture, match, estimate, state machine step,
// actuator dispatch, status emission, delay, cancellation check. It is the
// only component that talks to the capture and actuator collaborators, and
// the whole loop runs on a single worker goroutine.
type Runner struct {
	cfg     RunnerConfig
	store   *WaypointStore
	capture Capture
	act     Actuator
	machine *Machine

	runID  string
	status chan StatusUpdate
}

// NewRunner wires a runner over its collaborators.
func NewRunner(cfg RunnerConfig, store *WaypointStore, capture Capture, act Actuator) *Runner {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 100 * time.Millisecond
	}
	if cfg.StatusBuffer <= 0 {
		cfg.StatusBuffer = 16
	}
	return &Runner{
		cfg:     cfg,
		store:   store,
		capture: capture,
		act:     act,
		machine: NewMachine(cfg.Machine, cfg.Steering, store, act),
		runID:   uuid.NewString(),
		status:  make(chan StatusUpdate, cfg.StatusBuffer),
	}
}

// RunID returns the unique identifier stamped on this run's status messages.
func (r *Runner) RunID() string { return r.runID }

// Machine exposes the state machine for introspection.
func (r *Runner) Machine() *Machine { return r.machine }

// Status returns the one-directional status channel. The runner is the sole
// producer and closes the channel when the run ends.
func (r *Runner) Status() <-chan StatusUpdate { return r.status }

// Run executes the navigation loop until a terminal state, cancellation, or
// an unrecoverable fault. Whatever the exit path, held motion state is
// released before returning; a moving, unattended agent is the one failure
// mode this loop must never produce.
func (r *Runner) Run(ctx context.Context) (outcome Outcome, err error) {
	defer close(r.status)
	defer r.act.StopAll()
	defer func() {
		if p := recover(); p != nil {
			log.Printf("Navigation tick fault: %v", p)
			outcome = OutcomeError
			err = fmt.Errorf("navigation fault: %v", p)
		}
	}()

	if err := r.loadFirstTarget(); err != nil {
		return OutcomeError, err
	}

	log.Printf("Navigation run %s starting: %d waypoints, mode %s",
		r.runID, r.store.Len(), r.cfg.Preprocess.Mode)

	ticker := time.NewTicker(r.cfg.TickInterval)
	defer ticker.Stop()

	for {
		if state := r.machine.State(); state.Terminal() {
			if state == StateCalibrationFailed {
				return OutcomeCalibrationFailed, nil
			}
			return OutcomeDone, nil
		}
		if r.store.Complete() {
			// Empty or exhausted route with the machine not yet advanced.
			r.machine.Tick(0, 0)
			continue
		}

		if err := r.tick(); err != nil {
			return OutcomeError, err
		}

		// Cancellation is cooperative and observed only between ticks; an
		// in-flight action sequence is never preempted.
		select {
		case <-ctx.Done():
			log.Printf("Navigation run %s cancelled", r.runID)
			return OutcomeCancelled, nil
		case <-ticker.C:
		}
	}
}

// loadFirstTarget activates waypoint 0, skipping over leading waypoints with
// missing assets.
func (r *Runner) loadFirstTarget() error {
	index := 0
	for {
		err := r.store.LoadWaypoint(index)
		if err == nil {
			return nil
		}
		log.Printf("Skipping waypoint %d: %v", index, err)
		index++
	}
}

// tick runs one capture-to-command cycle.
func (r *Runner) tick() error {
	frame, err := r.capture.CaptureFrame()
	if err != nil {
		return fmt.Errorf("capture failed: %w", err)
	}

	gray := Preprocess(frame.Image, r.cfg.Preprocess)
	keypoints, descriptors := Extract(gray, r.cfg.Extractor)

	offset, similarity := 0.0, 0.0
	snapshot := r.store.Snapshot()
	if snapshot != nil && len(descriptors) >= r.cfg.Extractor.MinDescriptors {
		matches := MatchDescriptors(snapshot.Descriptors, descriptors, r.cfg.Matcher)
		normalizer := r.cfg.Estimator.Normalizer(r.cfg.Preprocess.Mode)
		offset, similarity = Estimate(snapshot.Keypoints, keypoints, matches, normalizer)
	}

	r.machine.Tick(offset, similarity)
	r.emitStatus(offset, similarity, frame.Source)
	return nil
}

// emitStatus pushes a tick snapshot without ever blocking the worker.
func (r *Runner) emitStatus(offset, similarity float64, source CaptureSource) {
	wp, _ := r.store.Current()
	update := StatusUpdate{
		RunID:         r.runID,
		State:         r.machine.State().String(),
		WaypointIndex: r.store.CurrentIndex(),
		WaypointImage: wp.ImageName,
		Similarity:    similarity,
		Threshold:     wp.Threshold(),
		Offset:        offset,
		Misses:        r.machine.Misses(),
		Source:        source.String(),
		Timestamp:     time.Now().UnixMilli(),
	}
	select {
	case r.status <- update:
	default:
		// Consumer is behind; drop the oldest and retry once.
		select {
		case <-r.status:
		default:
		}
		select {
		case r.status <- update:
		default:
		}
	}
}
