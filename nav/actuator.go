package nav

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"sync"
	"time"
)

// Actuator is the motion/input collaborator. Implementations wrap whatever
// actually moves the agent; every call is fire-and-forget. StopAll must be
// idempotent and callable at any time, including mid-fault.
type Actuator interface {
	Steer(delta float64)
	StartForward()
	StopForward()
	StrafeLeft()
	StrafeRight()
	Stop()
	Jump()
	Interact()
	ToggleFly()
	StopAll()
}

// ActuatorConfig is construction-time tuning for steering output. These were
// once process-wide globals in earlier iterations; they are explicit
// configuration now.
type ActuatorConfig struct {
	// SteerGain scales the visual offset into a steering delta.
	SteerGain float64 `yaml:"steer_gain"`

	// Deadzone suppresses corrections for offsets below this magnitude,
	// preventing jitter around center.
	Deadzone float64 `yaml:"deadzone"`

	// MaxStep clamps a single steering correction.
	MaxStep float64 `yaml:"max_step"`
}

// DefaultActuatorConfig returns the tuned steering defaults.
func DefaultActuatorConfig() ActuatorConfig {
	return ActuatorConfig{
		SteerGain: 0.5,
		Deadzone:  15,
		MaxStep:   50,
	}
}

// SteerDelta converts a visual offset into the clamped steering correction,
// or 0 when the offset falls inside the deadzone.
func (c ActuatorConfig) SteerDelta(offset float64) float64 {
	deadzone := c.Deadzone
	if deadzone <= 0 {
		deadzone = 15
	}
	if offset > -deadzone && offset < deadzone {
		return 0
	}
	gain := c.SteerGain
	if gain <= 0 {
		gain = 0.5
	}
	maxStep := c.MaxStep
	if maxStep <= 0 {
		maxStep = 50
	}
	delta := offset * gain
	if delta > maxStep {
		delta = maxStep
	} else if delta < -maxStep {
		delta = -maxStep
	}
	return delta
}

// commandPacket is the wire form of one actuator primitive.
type commandPacket struct {
	Command   string  `json:"command"`
	Delta     float64 `json:"delta,omitempty"`
	Timestamp int64   `json:"timestamp"`
}

// UDPActuator emits actuator primitives as JSON datagrams for an external
// input bridge to execute. An empty address yields a disabled sender, which
// keeps dry runs cheap.
type UDPActuator struct {
	conn *net.UDPConn
	mu   sync.Mutex
}

// NewUDPActuator dials the input bridge at addr.
func NewUDPActuator(addr string) (*UDPActuator, error) {
	if addr == "" {
		return &UDPActuator{}, nil
	}
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolving actuator address: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("dialing actuator: %w", err)
	}
	return &UDPActuator{conn: conn}, nil
}

// Close releases the socket. StopAll remains safe to call afterwards.
func (a *UDPActuator) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil {
		return nil
	}
	err := a.conn.Close()
	a.conn = nil
	return err
}

func (a *UDPActuator) send(command string, delta float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil {
		return
	}
	payload, err := json.Marshal(commandPacket{
		Command:   command,
		Delta:     delta,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return
	}
	if _, err := a.conn.Write(payload); err != nil {
		log.Printf("Actuator send %s failed: %v", command, err)
	}
}

func (a *UDPActuator) Steer(delta float64) { a.send("steer", delta) }
func (a *UDPActuator) StartForward()       { a.send("forward_start", 0) }
func (a *UDPActuator) StopForward()        { a.send("forward_stop", 0) }
func (a *UDPActuator) StrafeLeft()         { a.send("strafe_left", 0) }
func (a *UDPActuator) StrafeRight()        { a.send("strafe_right", 0) }
func (a *UDPActuator) Stop()               { a.send("stop", 0) }
func (a *UDPActuator) Jump()               { a.send("jump", 0) }
func (a *UDPActuator) Interact()           { a.send("interact", 0) }
func (a *UDPActuator) ToggleFly()          { a.send("fly_toggle", 0) }
func (a *UDPActuator) StopAll()            { a.send("stop_all", 0) }

// RecorderActuator records every primitive in order. It backs tests and the
// self-check report.
type RecorderActuator struct {
	mu    sync.Mutex
	Calls []string
}

func (r *RecorderActuator) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, call)
}

func (r *RecorderActuator) Steer(delta float64) { r.record(fmt.Sprintf("steer %.1f", delta)) }
func (r *RecorderActuator) StartForward()       { r.record("forward_start") }
func (r *RecorderActuator) StopForward()        { r.record("forward_stop") }
func (r *RecorderActuator) StrafeLeft()         { r.record("strafe_left") }
func (r *RecorderActuator) StrafeRight()        { r.record("strafe_right") }
func (r *RecorderActuator) Stop()               { r.record("stop") }
func (r *RecorderActuator) Jump()               { r.record("jump") }
func (r *RecorderActuator) Interact()           { r.record("interact") }
func (r *RecorderActuator) ToggleFly()          { r.record("fly_toggle") }
func (r *RecorderActuator) StopAll()            { r.record("stop_all") }

// Recorded returns a copy of the recorded call sequence.
func (r *RecorderActuator) Recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Calls))
	copy(out, r.Calls)
	return out
}

// SelfCheck exercises each actuator primitive once and finishes with StopAll,
// so an operator can confirm the input bridge has control before a run.
func SelfCheck(a Actuator, pause func(time.Duration)) {
	if pause == nil {
		pause = time.Sleep
	}
	log.Println("Actuator self-check: steering sweep")
	a.Steer(30)
	pause(200 * time.Millisecond)
	a.Steer(-30)
	pause(200 * time.Millisecond)

	log.Println("Actuator self-check: movement")
	a.StartForward()
	pause(300 * time.Millisecond)
	a.StopForward()
	a.StrafeLeft()
	pause(200 * time.Millisecond)
	a.StrafeRight()
	pause(200 * time.Millisecond)
	a.Stop()

	log.Println("Actuator self-check: jump")
	a.Jump()
	pause(300 * time.Millisecond)

	a.StopAll()
	log.Println("Actuator self-check complete")
}
