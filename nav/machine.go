package nav

import (
	"errors"
	"log"
	"math"
	"time"
)

// MachineConfig holds the state machine thresholds. The calibration and
// similarity constants are empirically tuned and deliberately configurable.
type MachineConfig struct {
	// CalibrationThreshold is the similarity needed for the initial lock-on
	// against waypoint 0.
	CalibrationThreshold float64 `yaml:"calibration_threshold"`

	// AlignTolerance is the offset magnitude considered centered during
	// calibration. Larger offsets trigger a re-align that does not consume
	// a calibration attempt.
	AlignTolerance float64 `yaml:"align_tolerance"`

	// SearchRotation is the fixed rotation issued per failed calibration
	// attempt while sweeping for the first waypoint.
	SearchRotation float64 `yaml:"search_rotation"`

	// MaxCalibrationAttempts bounds the sweep; exceeding it is terminal.
	MaxCalibrationAttempts int `yaml:"max_calibration_attempts"`

	// LowConfidenceFloor resets the miss counter when similarity reaches it.
	LowConfidenceFloor float64 `yaml:"low_confidence_floor"`

	// BlindThreshold is the miss count that must be strictly exceeded
	// before steering corrections are suppressed.
	BlindThreshold int `yaml:"blind_threshold"`

	// Action settle delays.
	JumpSettle     time.Duration `yaml:"jump_settle"`
	InteractSettle time.Duration `yaml:"interact_settle"`
	FlySettle      time.Duration `yaml:"fly_settle"`
}

// DefaultMachineConfig returns the tuned state machine defaults.
func DefaultMachineConfig() MachineConfig {
	return MachineConfig{
		CalibrationThreshold:   0.6,
		AlignTolerance:         10,
		SearchRotation:         30,
		MaxCalibrationAttempts: 12,
		LowConfidenceFloor:     0.2,
		BlindThreshold:         10,
		JumpSettle:             500 * time.Millisecond,
		InteractSettle:         time.Second,
		FlySettle:              time.Second,
	}
}

// Machine is the navigation state machine. It consumes one offset/similarity
// pair per tick, steers through the actuator, advances the waypoint store,
// and tracks tracking-loss history. It runs on the worker goroutine only and
// shares nothing by reference.
type Machine struct {
	cfg      MachineConfig
	steering ActuatorConfig
	store    *WaypointStore
	act      Actuator

	state    NavState
	misses   int
	attempts int
	moving   bool

	// delay is time.Sleep in production; tests substitute a recorder so
	// multi-second action sequences finish instantly.
	delay func(time.Duration)
}

// NewMachine builds a machine in the CALIBRATING state.
func NewMachine(cfg MachineConfig, steering ActuatorConfig, store *WaypointStore, act Actuator) *Machine {
	return &Machine{
		cfg:      cfg,
		steering: steering,
		store:    store,
		act:      act,
		state:    StateCalibrating,
		delay:    time.Sleep,
	}
}

// SetDelayFunc overrides the settle-delay implementation.
func (m *Machine) SetDelayFunc(delay func(time.Duration)) {
	if delay != nil {
		m.delay = delay
	}
}

// State returns the current authoritative state.
func (m *Machine) State() NavState { return m.state }

// Misses returns the consecutive low-confidence tick count.
func (m *Machine) Misses() int { return m.misses }

// CalibrationAttempts returns the number of failed sweep attempts.
func (m *Machine) CalibrationAttempts() int { return m.attempts }

// IsBlind reports whether steering corrections are currently suppressed.
// The boundary is strict: exactly at the threshold the machine still steers.
func (m *Machine) IsBlind() bool {
	return m.misses > m.cfg.BlindThreshold
}

// CheckArrival reports whether similarity crosses the active waypoint's
// arrival threshold. The comparison is strictly greater-than.
func (m *Machine) CheckArrival(similarity float64) bool {
	wp, ok := m.store.Current()
	if !ok {
		return false
	}
	return similarity > wp.Threshold()
}

// Tick advances the machine by one observation. It returns the state after
// the transition; terminal states ignore further ticks.
func (m *Machine) Tick(offset, similarity float64) NavState {
	if m.state.Terminal() {
		return m.state
	}
	if m.store.Complete() {
		m.finish(StateDone)
		return m.state
	}

	switch m.state {
	case StateCalibrating:
		m.tickCalibrating(offset, similarity)
	case StateNavigating, StateBlind:
		m.tickNavigating(offset, similarity)
	}
	return m.state
}

// tickCalibrating sweeps in place until the view locks onto waypoint 0.
func (m *Machine) tickCalibrating(offset, similarity float64) {
	if similarity > m.cfg.CalibrationThreshold {
		if math.Abs(offset) > m.cfg.AlignTolerance {
			// Confident but off-center: nudge and re-evaluate without
			// consuming a sweep attempt.
			m.act.Steer(m.steering.SteerDelta(offset))
			return
		}
		log.Printf("Calibration locked: similarity %.2f, offset %.1f", similarity, offset)
		m.state = StateNavigating
		return
	}

	m.act.Steer(m.cfg.SearchRotation)
	m.attempts++
	if m.attempts > m.cfg.MaxCalibrationAttempts {
		log.Printf("Calibration failed after %d attempts, manual repositioning required", m.attempts)
		m.finish(StateCalibrationFailed)
	}
}

// tickNavigating handles travel toward the current waypoint, including the
// blind dead-reckoning degradation and arrival dispatch.
func (m *Machine) tickNavigating(offset, similarity float64) {
	if m.CheckArrival(similarity) {
		m.arrive()
		return
	}

	if similarity >= m.cfg.LowConfidenceFloor {
		m.misses = 0
	} else {
		m.misses++
	}

	if m.IsBlind() {
		if m.state != StateBlind {
			log.Printf("Tracking lost for %d ticks, continuing blind", m.misses)
		}
		m.state = StateBlind
	} else {
		if m.state == StateBlind {
			log.Printf("Tracking recovered at similarity %.2f", similarity)
		}
		m.state = StateNavigating
		if delta := m.steering.SteerDelta(offset); delta != 0 {
			m.act.Steer(delta)
		}
	}

	// Forward motion continues unconditionally, blind or not.
	if !m.moving {
		m.moving = true
		m.act.StartForward()
	}
}

// arrive dispatches the waypoint action exactly once and advances the route.
func (m *Machine) arrive() {
	m.state = StateArriving
	wp, ok := m.store.Current()
	if ok {
		log.Printf("Arrived at waypoint %d (%s)", m.store.CurrentIndex(), wp.Action)
		m.dispatchAction(wp.Action)
	}

	m.advance()
	if m.store.Complete() {
		m.finish(StateDone)
		return
	}
	// The freshly loaded target is evaluated on the next tick.
	m.misses = 0
	m.state = StateNavigating
}

// dispatchAction runs the waypoint's arrival maneuver. The sequence is not
// preemptible; cancellation is only observed at tick boundaries.
func (m *Machine) dispatchAction(action Action) {
	switch action {
	case ActionJump:
		m.act.Jump()
		m.delay(m.cfg.JumpSettle)
	case ActionInteract:
		m.act.Interact()
		m.delay(m.cfg.InteractSettle)
	case ActionFlyStart:
		m.act.Jump()
		m.delay(m.cfg.JumpSettle)
		m.act.ToggleFly()
		m.delay(m.cfg.FlySettle)
	}
}

// advance loads the next waypoint, skipping entries whose backing image is
// missing. A skipped asset never crashes the run.
func (m *Machine) advance() {
	index := m.store.CurrentIndex() + 1
	for {
		err := m.store.LoadWaypoint(index)
		if err == nil {
			return
		}
		if errors.Is(err, ErrAssetMissing) {
			log.Printf("Skipping waypoint %d: %v", index, err)
			index++
			continue
		}
		log.Printf("Waypoint load failed: %v", err)
		return
	}
}

// finish enters a terminal state and releases held motion.
func (m *Machine) finish(state NavState) {
	m.state = state
	m.moving = false
	m.act.StopAll()
}
