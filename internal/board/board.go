// Package board opens the sensor's bus and control lines on the host,
// or a simulated sensor for development without hardware.
package board

import (
	"errors"
	"fmt"
	"strings"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/smazurov/sensornode/internal/bus"
	"github.com/smazurov/sensornode/internal/logging"
	"github.com/smazurov/sensornode/internal/power"
)

// DefaultAddr is the sensor's 7-bit bus address.
const DefaultAddr = 0x1a

// Config names the host resources wired to the sensor. Empty line names
// mean the board does not wire that line.
type Config struct {
	Simulate  bool
	I2CBus    string // periph bus name; empty selects the first bus
	Addr      uint16
	ClockRate physic.Frequency
	Reset     string
	PowerDown string
	Supplies  map[string]string // supply name -> enable line
}

// Hardware is an opened board.
type Hardware struct {
	Transport  bus.Transport
	Board      power.Board
	DeviceName string // e.g. "1-001a"
	Sim        *bus.Sim

	closer i2c.BusCloser
}

// Close releases the bus.
func (h *Hardware) Close() error {
	if h.closer != nil {
		return h.closer.Close()
	}
	return nil
}

// ErrLineNotFound is returned when a configured line does not exist.
var ErrLineNotFound = errors.New("gpio line not found")

// Open initializes the host drivers and opens the configured resources.
func Open(cfg Config) (*Hardware, error) {
	if cfg.Addr == 0 {
		cfg.Addr = DefaultAddr
	}
	if cfg.ClockRate == 0 {
		cfg.ClockRate = power.ClockRate
	}
	if cfg.Simulate {
		return Simulated(cfg.Addr), nil
	}

	logger := logging.GetLogger("board")
	state, err := host.Init()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize host drivers: %w", err)
	}
	for _, f := range state.Failed {
		logger.Debug("Host driver failed to load", "driver", f.D.String(), "error", f.Err)
	}

	reset, err := line(cfg.Reset)
	if err != nil {
		return nil, err
	}
	pwdn, err := line(cfg.PowerDown)
	if err != nil {
		return nil, err
	}
	supplies := make(map[string]power.Line, len(cfg.Supplies))
	for name, l := range cfg.Supplies {
		pin, err := line(l)
		if err != nil {
			return nil, fmt.Errorf("supply %s: %w", name, err)
		}
		if pin != nil {
			supplies[name] = pin
		}
	}

	b, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("failed to open i2c bus %q: %w", cfg.I2CBus, err)
	}

	hw := &Hardware{
		Transport: bus.NewPeriph(b, cfg.Addr),
		Board: power.Board{
			// The input clock is a fixed oscillator on supported boards.
			Clock:     power.NewFixedClock(cfg.ClockRate),
			Rails:     power.NewLineRails(supplies),
			ClockRate: cfg.ClockRate,
		},
		DeviceName: DeviceName(cfg.I2CBus, cfg.Addr),
		closer:     b,
	}
	// Leave the interfaces nil rather than holding typed nil pins.
	if reset != nil {
		hw.Board.Reset = reset
	}
	if pwdn != nil {
		hw.Board.PowerDown = pwdn
	}

	logger.Info("Board opened", "bus", b.String(), "addr", fmt.Sprintf("0x%02x", cfg.Addr), "device", hw.DeviceName)
	return hw, nil
}

// Simulated returns a board backed by an in-memory sensor that answers
// the identity probe.
func Simulated(addr uint16) *Hardware {
	sim := bus.NewSim()
	sim.Poke(0x301e, 0xb2)
	return &Hardware{
		Transport:  sim,
		Board:      power.Board{Clock: power.NewFixedClock(power.ClockRate)},
		DeviceName: DeviceName("sim", addr),
		Sim:        sim,
	}
}

// DeviceName formats a bus and address the way the kernel names i2c
// clients: "<bus number>-<address as 4 hex digits>".
func DeviceName(busName string, addr uint16) string {
	n := strings.TrimPrefix(busName, "/dev/i2c-")
	n = strings.TrimPrefix(n, "I2C")
	if n == "" {
		n = "0"
	}
	return fmt.Sprintf("%s-%04x", n, addr)
}

func line(name string) (gpio.PinIO, error) {
	if name == "" {
		return nil, nil
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrLineNotFound, name)
	}
	return p, nil
}
