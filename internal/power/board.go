package power

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// SupplyNames is the fixed set of sensor supplies, in enable order.
var SupplyNames = []string{"avdd", "dovdd", "dvdd"}

// FixedClock is a board oscillator without software control. Enable and
// Disable only track state; SetRate accepts the oscillator's own rate.
type FixedClock struct {
	Hz      physic.Frequency
	enabled bool
}

// NewFixedClock returns a clock running at hz.
func NewFixedClock(hz physic.Frequency) *FixedClock {
	return &FixedClock{Hz: hz}
}

// SetRate implements Clock.
func (c *FixedClock) SetRate(f physic.Frequency) error {
	if f != c.Hz {
		return fmt.Errorf("fixed oscillator runs at %s, cannot set %s", c.Hz, f)
	}
	return nil
}

// Rate implements Clock.
func (c *FixedClock) Rate() physic.Frequency {
	return c.Hz
}

// Enable implements Clock.
func (c *FixedClock) Enable() error {
	c.enabled = true
	return nil
}

// Disable implements Clock.
func (c *FixedClock) Disable() error {
	c.enabled = false
	return nil
}

// Enabled reports whether the clock is running.
func (c *FixedClock) Enabled() bool {
	return c.enabled
}

// NoRails is for boards whose supplies are always on.
type NoRails struct{}

// EnableAll implements Rails.
func (NoRails) EnableAll() error { return nil }

// DisableAll implements Rails.
func (NoRails) DisableAll() error { return nil }

// LineRails switches regulators through their enable lines. Missing
// names are treated as always-on supplies.
type LineRails struct {
	lines map[string]Line
}

// NewLineRails builds rails from a name to enable-line mapping.
func NewLineRails(lines map[string]Line) *LineRails {
	return &LineRails{lines: lines}
}

// EnableAll drives every supply high in SupplyNames order. If one fails
// the supplies already enabled are switched off again.
func (r *LineRails) EnableAll() error {
	var enabled []Line
	for _, name := range SupplyNames {
		l, ok := r.lines[name]
		if !ok || l == nil {
			continue
		}
		if err := l.Out(gpio.High); err != nil {
			for i := len(enabled) - 1; i >= 0; i-- {
				_ = enabled[i].Out(gpio.Low)
			}
			return fmt.Errorf("supply %s: %w", name, err)
		}
		enabled = append(enabled, l)
	}
	return nil
}

// DisableAll drives every supply low in reverse order and joins errors.
func (r *LineRails) DisableAll() error {
	var errs []error
	for i := len(SupplyNames) - 1; i >= 0; i-- {
		name := SupplyNames[i]
		l, ok := r.lines[name]
		if !ok || l == nil {
			continue
		}
		if err := l.Out(gpio.Low); err != nil {
			errs = append(errs, fmt.Errorf("supply %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
