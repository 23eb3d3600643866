package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/smazurov/sensornode/internal/board"
	"github.com/smazurov/sensornode/internal/power"
	"github.com/smazurov/sensornode/internal/sensor"
)

// hardwareFlags are the board flags shared by subcommands that talk to
// the sensor.
type hardwareFlags struct {
	bus       string
	addr      string
	reset     string
	powerDown string
	simulate  bool
}

func (f *hardwareFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.bus, "i2c-bus", "", "I2C bus name (empty selects the first bus)")
	cmd.Flags().StringVar(&f.addr, "i2c-addr", "0x1a", "Sensor I2C address")
	cmd.Flags().StringVar(&f.reset, "gpio-reset", "", "Reset line name")
	cmd.Flags().StringVar(&f.powerDown, "gpio-pwdn", "", "Power-down line name")
	cmd.Flags().BoolVar(&f.simulate, "simulate", false, "Use a simulated sensor")
}

func (f *hardwareFlags) config() (board.Config, error) {
	addr, err := ParseAddr(f.addr)
	if err != nil {
		return board.Config{}, err
	}
	return board.Config{
		Simulate:  f.simulate,
		I2CBus:    f.bus,
		Addr:      addr,
		Reset:     f.reset,
		PowerDown: f.powerDown,
	}, nil
}

// open opens the board and builds a detached sensor on it.
func (f *hardwareFlags) open() (*board.Hardware, *sensor.Sensor, error) {
	cfg, err := f.config()
	if err != nil {
		return nil, nil, err
	}
	hw, err := board.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	s, err := sensor.New(sensor.Config{DeviceName: hw.DeviceName}, sensor.Deps{
		Transport: hw.Transport,
		Board:     hw.Board,
		Timing:    power.DefaultTiming,
	})
	if err != nil {
		hw.Close()
		return nil, nil, err
	}
	return hw, s, nil
}

// ParseAddr parses a 7-bit I2C address given in decimal, hex (0x) or
// octal notation.
func ParseAddr(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid i2c address %q: %w", s, err)
	}
	if v == 0 || v > 0x7f {
		return 0, fmt.Errorf("i2c address 0x%x out of 7-bit range", v)
	}
	return uint16(v), nil
}
