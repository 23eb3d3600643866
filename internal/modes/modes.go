// Package modes holds the fixed catalogue of sensor configurations and
// nearest-size format matching.
package modes

import (
	"errors"
	"fmt"

	"github.com/smazurov/sensornode/internal/bus"
)

// Media bus pixel codes.
const (
	MediaBusFmtSRGGB12 uint32 = 0x3012
)

// Rational is a frame interval expressed as a fraction of a second.
type Rational struct {
	Numerator   uint32 `json:"numerator"`
	Denominator uint32 `json:"denominator"`
}

// FPS returns the frame rate the interval corresponds to.
func (r Rational) FPS() float64 {
	if r.Numerator == 0 {
		return 0
	}
	return float64(r.Denominator) / float64(r.Numerator)
}

// Size is a frame resolution.
type Size struct {
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
}

// Mode is an immutable sensor configuration.
type Mode struct {
	Code             uint32
	Width            uint32
	Height           uint32
	MaxFrameInterval Rational
	HTSDefault       uint32 // line length in pixel clocks
	VTSDefault       uint32 // frame length in lines
	ExposureDefault  uint32
	Program          bus.Program
}

// Size returns the mode's active resolution.
func (m *Mode) Size() Size {
	return Size{Width: m.Width, Height: m.Height}
}

// Validate checks the timing and program invariants of a mode.
func (m *Mode) Validate() error {
	if m.HTSDefault <= m.Width {
		return fmt.Errorf("mode %dx%d: hts 0x%x must exceed width", m.Width, m.Height, m.HTSDefault)
	}
	if m.VTSDefault <= m.Height {
		return fmt.Errorf("mode %dx%d: vts 0x%x must exceed height", m.Width, m.Height, m.VTSDefault)
	}
	if !m.Program.Terminated() {
		return fmt.Errorf("mode %dx%d: register program lacks sentinel", m.Width, m.Height)
	}
	return nil
}

// Table is an ordered, non-empty set of modes.
type Table []Mode

// NewTable validates modes and returns them as a table.
func NewTable(modes ...Mode) (Table, error) {
	if len(modes) == 0 {
		return nil, errors.New("mode table is empty")
	}
	for i := range modes {
		if err := modes[i].Validate(); err != nil {
			return nil, err
		}
	}
	return Table(modes), nil
}

// MustTable is NewTable for static tables; it panics on invalid input.
func MustTable(modes ...Mode) Table {
	t, err := NewTable(modes...)
	if err != nil {
		panic(err)
	}
	return t
}

// Nearest returns the mode closest to the requested size. Distance is
// |Δwidth| + |Δheight|; on a tie the later entry wins. It never fails.
func (t Table) Nearest(width, height uint32) *Mode {
	best := 0
	minErr := ^uint64(0)
	for i := range t {
		e := absDiff(t[i].Width, width) + absDiff(t[i].Height, height)
		if e > minErr {
			continue
		}
		minErr = e
		best = i
		if e == 0 {
			break
		}
	}
	return &t[best]
}

// Enumerate returns the modes in table order.
func (t Table) Enumerate() []Mode {
	out := make([]Mode, len(t))
	copy(out, t)
	return out
}

// Codes returns the distinct pixel codes in table order.
func (t Table) Codes() []uint32 {
	var codes []uint32
	seen := make(map[uint32]bool)
	for _, m := range t {
		if !seen[m.Code] {
			seen[m.Code] = true
			codes = append(codes, m.Code)
		}
	}
	return codes
}

// FrameSizesFor returns the sizes available for a pixel code.
func (t Table) FrameSizesFor(code uint32) []Size {
	var sizes []Size
	for _, m := range t {
		if m.Code == code {
			sizes = append(sizes, m.Size())
		}
	}
	return sizes
}

// Interval describes one enumerable frame interval.
type Interval struct {
	Code     uint32   `json:"code"`
	Size     Size     `json:"size"`
	Interval Rational `json:"interval"`
}

// Intervals returns the frame interval of every mode.
func (t Table) Intervals() []Interval {
	out := make([]Interval, 0, len(t))
	for _, m := range t {
		out = append(out, Interval{Code: m.Code, Size: m.Size(), Interval: m.MaxFrameInterval})
	}
	return out
}

func absDiff(a, b uint32) uint64 {
	if a > b {
		return uint64(a - b)
	}
	return uint64(b - a)
}
