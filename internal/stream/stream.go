// Package stream moves the sensor between standby and streaming.
package stream

import (
	"errors"
	"log/slog"
	"time"

	"github.com/smazurov/sensornode/internal/bus"
	"github.com/smazurov/sensornode/internal/logging"
)

// State is the streaming state of the sensor.
type State int

// Streaming states.
const (
	Standby State = iota
	Streaming
)

func (s State) String() string {
	if s == Streaming {
		return "streaming"
	}
	return "standby"
}

const (
	regCtrlMode  uint16 = 0x3000
	regSecondary uint16 = 0x3002

	ctrlModeStreaming = 0x00
	ctrlModeStandby   = 0x01
	secondaryActive   = 0x00
	secondaryStandby  = 0x01
)

// DefaultSettle is the wait between enabling output and releasing the
// secondary standby register.
const DefaultSettle = 30 * time.Millisecond

// ErrNotPowered is returned when streaming is requested without power.
var ErrNotPowered = errors.New("sensor is not powered")

// Registers is the register access the machine needs.
type Registers interface {
	Write(addr uint16, val uint32, length int) error
	WriteProgram(p bus.Program) error
}

// Replayer pushes the configured control values to hardware.
type Replayer interface {
	Apply() error
}

// Machine is the Standby/Streaming state machine. It is not safe for
// concurrent use; the sensor facade serializes access.
type Machine struct {
	regs   Registers
	settle time.Duration
	state  State
	sleep  func(time.Duration)
	logger *slog.Logger
}

// New returns a machine in Standby.
func New(regs Registers, settle time.Duration) *Machine {
	return &Machine{
		regs:   regs,
		settle: settle,
		state:  Standby,
		sleep:  time.Sleep,
		logger: logging.GetLogger("stream"),
	}
}

// State returns the current streaming state.
func (m *Machine) State() State {
	return m.state
}

// Start programs the mode, replays controls and enables output. Only a
// program failure aborts; the state is left unchanged in that case.
// Starting while already streaming does nothing.
func (m *Machine) Start(powered bool, program bus.Program, controls Replayer) error {
	if m.state == Streaming {
		return nil
	}
	if !powered {
		return ErrNotPowered
	}

	if err := m.regs.WriteProgram(program); err != nil {
		return err
	}

	if err := controls.Apply(); err != nil {
		m.logger.Warn("control replay incomplete", "error", err)
	}

	// TODO(secondary-status): failures below are not returned; revisit
	// once the sensor's behaviour after a lost write is characterised.
	if err := m.regs.Write(regCtrlMode, ctrlModeStreaming, 1); err != nil {
		m.secondaryFailed("start", regCtrlMode, err)
	}
	m.sleep(m.settle)
	if err := m.regs.Write(regSecondary, secondaryActive, 1); err != nil {
		m.secondaryFailed("start", regSecondary, err)
	}

	m.set(Streaming)
	starts.Inc()
	return nil
}

// Stop returns the sensor to standby. It always succeeds; bus failures
// are logged.
func (m *Machine) Stop() {
	if m.state == Standby {
		return
	}

	if err := m.regs.Write(regCtrlMode, ctrlModeStandby, 1); err != nil {
		m.secondaryFailed("stop", regCtrlMode, err)
	}
	if err := m.regs.Write(regSecondary, secondaryStandby, 1); err != nil {
		m.secondaryFailed("stop", regSecondary, err)
	}

	m.set(Standby)
}

// Reset forces the logical state to Standby without touching hardware,
// for use after the sensor has lost power.
func (m *Machine) Reset() {
	if m.state != Standby {
		m.set(Standby)
	}
}

func (m *Machine) secondaryFailed(phase string, addr uint16, err error) {
	secondaryFailures.WithLabelValues(phase).Inc()
	m.logger.Warn("stream register write failed", "phase", phase, "addr", addr, "error", err)
}

func (m *Machine) set(s State) {
	m.state = s
	if s == Streaming {
		streaming.Set(1)
	} else {
		streaming.Set(0)
	}
	m.logger.Info("stream state", "state", s)
}
