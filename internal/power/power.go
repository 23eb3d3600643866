// Package power sequences the sensor's supplies, clock and control lines
// between Off and On.
//
// The board resources are narrow collaborator interfaces. Reset and
// power-down lines and the pin-state selector are optional; a nil value
// means the board does not wire them.
package power

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"github.com/smazurov/sensornode/internal/logging"
)

// State is the power state of the sensor.
type State int

// Power states.
const (
	Off State = iota
	On
)

func (s State) String() string {
	if s == On {
		return "on"
	}
	return "off"
}

// Pin multiplexing states selected around power transitions.
const (
	PinsDefault = "rockchip,camera_default"
	PinsSleep   = "rockchip,camera_sleep"
)

// ClockRate is the sensor's nominal input clock.
const ClockRate = 37125 * physic.KiloHertz

// Clock is the sensor's input clock.
type Clock interface {
	SetRate(f physic.Frequency) error
	Rate() physic.Frequency
	Enable() error
	Disable() error
}

// Line is a discrete output signal such as reset or power-down.
// periph's gpio.PinOut satisfies it.
type Line interface {
	Out(l gpio.Level) error
}

// Rails switches the fixed set of supplies as one unit.
type Rails interface {
	EnableAll() error
	DisableAll() error
}

// Pins selects a named pin multiplexing state.
type Pins interface {
	Select(state string) error
}

// Board bundles the resources a power transition drives.
type Board struct {
	Clock     Clock
	Rails     Rails
	Reset     Line // optional
	PowerDown Line // optional
	Pins      Pins // optional
	ClockRate physic.Frequency
}

// Timing holds the delays of the power-on sequence.
type Timing struct {
	ResetSettle time.Duration
	Stabilize   time.Duration
}

// DefaultTiming matches the sensor's datasheet windows.
var DefaultTiming = Timing{
	ResetSettle: 750 * time.Microsecond,
	Stabilize:   35 * time.Millisecond,
}

// Errors reported by power transitions and board validation.
var (
	ErrNoClock     = errors.New("board has no sensor clock")
	ErrClockEnable = errors.New("failed to enable sensor clock")
	ErrRailsEnable = errors.New("failed to enable supplies")
)

// Machine is the Off/On state machine. It is not safe for concurrent
// use; Runtime serializes access.
type Machine struct {
	board  Board
	timing Timing
	state  State
	sleep  func(time.Duration)
	logger *slog.Logger
}

// NewMachine validates board and returns a machine in the Off state.
func NewMachine(board Board, timing Timing) (*Machine, error) {
	if board.Clock == nil {
		return nil, ErrNoClock
	}
	if board.Rails == nil {
		board.Rails = NoRails{}
	}
	if board.ClockRate == 0 {
		board.ClockRate = ClockRate
	}
	return &Machine{
		board:  board,
		timing: timing,
		state:  Off,
		sleep:  time.Sleep,
		logger: logging.GetLogger("power"),
	}, nil
}

// State returns the current power state.
func (m *Machine) State() State {
	return m.state
}

// PowerOn brings the sensor up. Only clock and supply failures abort the
// sequence; after a supply failure the clock is disabled again.
func (m *Machine) PowerOn() error {
	if m.state == On {
		return nil
	}
	b := m.board

	if b.Pins != nil {
		if err := b.Pins.Select(PinsDefault); err != nil {
			m.logger.Warn("could not select default pin state", "error", err)
		}
	}

	if err := b.Clock.SetRate(b.ClockRate); err != nil {
		m.logger.Warn("could not set clock rate", "rate", b.ClockRate, "error", err)
	}
	if got := b.Clock.Rate(); got != b.ClockRate {
		m.logger.Warn("clock rate differs from target", "rate", got, "want", b.ClockRate)
	}

	if err := b.Clock.Enable(); err != nil {
		return fmt.Errorf("%w: %w", ErrClockEnable, err)
	}

	if err := b.Rails.EnableAll(); err != nil {
		if derr := b.Clock.Disable(); derr != nil {
			m.logger.Warn("could not disable clock after supply failure", "error", derr)
		}
		return fmt.Errorf("%w: %w", ErrRailsEnable, err)
	}

	if b.Reset != nil {
		m.drive("reset", b.Reset, gpio.Low)
		m.sleep(m.timing.ResetSettle)
		m.drive("reset", b.Reset, gpio.High)
	}
	if b.PowerDown != nil {
		m.drive("pwdn", b.PowerDown, gpio.High)
	}

	m.sleep(m.timing.Stabilize)

	m.set(On)
	return nil
}

// PowerOff takes the sensor down in reverse order. It never fails;
// hardware errors are logged.
func (m *Machine) PowerOff() {
	if m.state == Off {
		return
	}
	b := m.board

	if b.PowerDown != nil {
		m.drive("pwdn", b.PowerDown, gpio.Low)
	}
	if err := b.Clock.Disable(); err != nil {
		m.logger.Warn("could not disable clock", "error", err)
	}
	if b.Reset != nil {
		m.drive("reset", b.Reset, gpio.Low)
	}
	if b.Pins != nil {
		if err := b.Pins.Select(PinsSleep); err != nil {
			m.logger.Warn("could not select sleep pin state", "error", err)
		}
	}
	if err := b.Rails.DisableAll(); err != nil {
		m.logger.Warn("could not disable supplies", "error", err)
	}

	m.set(Off)
}

func (m *Machine) drive(name string, l Line, level gpio.Level) {
	if err := l.Out(level); err != nil {
		m.logger.Warn("could not drive line", "line", name, "level", level, "error", err)
	}
}

func (m *Machine) set(s State) {
	m.state = s
	powered.Set(boolGauge(s == On))
	m.logger.Info("sensor power", "state", s)
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
