package sensor

import (
	"fmt"

	"github.com/smazurov/sensornode/internal/events"
	"github.com/smazurov/sensornode/internal/modes"
	"github.com/smazurov/sensornode/internal/stream"
)

// Output window the crop is centred on.
const (
	cropWidth  = 1920
	cropHeight = 1080
	ccp2Top    = 21
)

// Format is the active media bus format.
type Format struct {
	Code   uint32 `json:"code"`
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
}

func formatOf(m *modes.Mode) Format {
	return Format{Code: m.Code, Width: m.Width, Height: m.Height}
}

// Rect is a crop rectangle in sensor pixels.
type Rect struct {
	Left   uint32 `json:"left"`
	Top    uint32 `json:"top"`
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
}

// EnumMbusCodes lists the pixel codes the sensor can produce.
func (s *Sensor) EnumMbusCodes() []uint32 {
	return s.table.Codes()
}

// EnumFrameSizes lists the sizes available for code.
func (s *Sensor) EnumFrameSizes(code uint32) ([]modes.Size, error) {
	sizes := s.table.FrameSizesFor(code)
	if len(sizes) == 0 {
		return nil, NewError(KindState, fmt.Sprintf("unsupported media bus code 0x%04x", code), nil)
	}
	return sizes, nil
}

// EnumFrameIntervals lists the frame interval of every mode.
func (s *Sensor) EnumFrameIntervals() []modes.Interval {
	return s.table.Intervals()
}

// Format returns the active format.
func (s *Sensor) Format() Format {
	s.mu.Lock()
	defer s.mu.Unlock()
	return formatOf(s.mode)
}

// FrameInterval returns the active mode's frame interval.
func (s *Sensor) FrameInterval() modes.Rational {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode.MaxFrameInterval
}

// SetFormat selects the mode nearest to width x height and returns the
// format actually applied. Timing control ranges follow the new mode
// immediately, powered or not. Switching modes while streaming is
// refused.
func (s *Sensor) SetFormat(width, height uint32) (Format, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return Format{}, err
	}

	mode := s.table.Nearest(width, height)
	if mode == s.mode {
		return formatOf(mode), nil
	}
	if s.stream.State() == stream.Streaming {
		return Format{}, NewError(KindState, "cannot change mode while streaming", nil)
	}

	s.mode = mode
	s.ctrls.SetMode(mode)
	f := formatOf(mode)
	s.logger.Info("Format set", "code", fmt.Sprintf("0x%04x", f.Code), "width", f.Width, "height", f.Height)

	s.publish(events.FormatChangedEvent{
		Code:      f.Code,
		Width:     f.Width,
		Height:    f.Height,
		Timestamp: now(),
	})
	return f, nil
}

// TryFormat returns the format SetFormat would apply without changing
// anything.
func (s *Sensor) TryFormat(width, height uint32) Format {
	return formatOf(s.table.Nearest(width, height))
}

// DefaultTryFormat is the format a fresh handle starts from: the first
// mode of the table.
func (s *Sensor) DefaultTryFormat() Format {
	return formatOf(&s.table[0])
}

// CropBounds returns the 1920x1080 window centred in the active mode,
// aligned to 4 pixels.
func (s *Sensor) CropBounds() Rect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cropFor(s.mode, s.cfg.BusType)
}

func cropFor(m *modes.Mode, bt BusType) Rect {
	r := Rect{
		Left:   centre(m.Width, cropWidth),
		Top:    centre(m.Height, cropHeight),
		Width:  cropWidth,
		Height: cropHeight,
	}
	if bt == BusCCP2 {
		r.Top = ccp2Top
	}
	return r
}

func centre(src, dst uint32) uint32 {
	if src <= dst {
		return 0
	}
	return (src - dst) / 2 / 4 * 4
}
