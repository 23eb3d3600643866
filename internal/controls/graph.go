// Package controls keeps the sensor's runtime controls, their ranges and
// their one real dependency: exposure is bounded by the frame length,
// which vertical blanking sets.
//
// Every write is two steps. The logical value and range are computed
// first; registers are written only when the caller reports the device
// powered, and the new state is committed only if those writes succeed.
// Values set while unpowered reach the sensor through Apply on the next
// stream start.
package controls

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/smazurov/sensornode/internal/logging"
	"github.com/smazurov/sensornode/internal/modes"
)

// Validation errors.
var (
	ErrUnknown    = errors.New("unknown control")
	ErrReadOnly   = errors.New("control is read-only")
	ErrOutOfRange = errors.New("value out of range")
)

// RegisterIO is the register access the graph needs.
type RegisterIO interface {
	Write(addr uint16, val uint32, length int) error
	Read(addr uint16, length int) (uint32, error)
}

// Graph holds control state for one sensor.
type Graph struct {
	regs      RegisterIO
	mode      *modes.Mode
	specs     map[ID]*Spec
	values    map[ID]int64
	vts       uint32
	flip      uint8
	groupHold bool
	logger    *slog.Logger
}

// Option configures a Graph.
type Option func(*Graph)

// WithGroupHold brackets shutter updates with the sensor's group-hold
// register so the three bytes latch on the same frame.
func WithGroupHold(enabled bool) Option {
	return func(g *Graph) {
		g.groupHold = enabled
	}
}

// New creates the control set for mode.
func New(mode *modes.Mode, regs RegisterIO, opts ...Option) *Graph {
	g := &Graph{
		regs:   regs,
		specs:  make(map[ID]*Spec, len(order)),
		values: make(map[ID]int64, len(order)),
		logger: logging.GetLogger("controls"),
	}
	for _, opt := range opts {
		opt(g)
	}

	g.add(Spec{ID: LinkFreq, Kind: KindIntegerMenu, IntMenu: []int64{LinkFrequency}, ReadOnly: true})
	g.add(Spec{ID: PixelRate, Kind: KindInteger, Minimum: 0, Maximum: PixelRateHz, Step: 1, Default: PixelRateHz, ReadOnly: true})
	g.add(Spec{ID: HBlank, Kind: KindInteger, Step: 1, ReadOnly: true})
	g.add(Spec{ID: VBlank, Kind: KindInteger, Step: 1})
	g.add(Spec{ID: Exposure, Kind: KindInteger, Minimum: ExposureMin, Step: ExposureStep})
	g.add(Spec{ID: AnalogueGain, Kind: KindInteger, Minimum: GainMin, Maximum: GainMax, Step: 1, Default: GainDefault})
	// Placeholder: the sensor exposes no digital gain register.
	g.add(Spec{ID: DigitalGain, Kind: KindInteger, Step: 1, ReadOnly: true})
	g.add(Spec{ID: TestPattern, Kind: KindMenu, Maximum: int64(len(TestPatternMenu) - 1), Step: 1, Menu: TestPatternMenu})
	g.add(Spec{ID: HFlip, Kind: KindBoolean, Maximum: 1, Step: 1})
	g.add(Spec{ID: VFlip, Kind: KindBoolean, Maximum: 1, Step: 1})

	g.SetMode(mode)
	// Exposure starts at the mode default; later mode changes only clamp it.
	g.values[Exposure] = g.specs[Exposure].Default
	return g
}

func (g *Graph) add(s Spec) {
	s.Name = names[s.ID]
	g.specs[s.ID] = &s
	g.values[s.ID] = s.Default
}

// SetMode derives the timing controls from mode. No registers are
// written; the mode program and Apply take care of that at stream start.
func (g *Graph) SetMode(mode *modes.Mode) {
	g.mode = mode

	hblank := int64(mode.HTSDefault - mode.Width)
	g.setRange(HBlank, hblank, hblank, hblank)
	g.values[HBlank] = hblank

	vblankDef := int64(mode.VTSDefault - mode.Height)
	g.setRange(VBlank, vblankDef, VTSMax-int64(mode.Height), vblankDef)
	g.values[VBlank] = vblankDef
	g.vts = mode.VTSDefault

	exp := g.specs[Exposure]
	g.setRange(Exposure, ExposureMin, int64(mode.VTSDefault)-2, int64(mode.ExposureDefault))
	g.values[Exposure] = clamp(g.values[Exposure], exp.Minimum, exp.Maximum)

	g.values[PixelRate] = PixelRateHz
	g.values[LinkFreq] = 0
}

func (g *Graph) setRange(id ID, lo, hi, def int64) {
	s := g.specs[id]
	s.Minimum, s.Maximum, s.Default = lo, hi, def
}

// Mode returns the mode the ranges were derived from.
func (g *Graph) Mode() *modes.Mode {
	return g.mode
}

// CurrentVTS returns the frame length in lines implied by vertical blanking.
func (g *Graph) CurrentVTS() uint32 {
	return g.vts
}

// FlipBits returns the last flip register value written to the sensor.
func (g *Graph) FlipBits() uint8 {
	return g.flip
}

// Get returns the current logical value of a control.
func (g *Graph) Get(id ID) (int64, error) {
	if _, ok := g.specs[id]; !ok {
		return 0, fmt.Errorf("%w: 0x%08x", ErrUnknown, uint32(id))
	}
	return g.values[id], nil
}

// Spec returns a copy of one control's description.
func (g *Graph) Spec(id ID) (Spec, error) {
	s, ok := g.specs[id]
	if !ok {
		return Spec{}, fmt.Errorf("%w: 0x%08x", ErrUnknown, uint32(id))
	}
	return *s, nil
}

// Specs lists every control in creation order.
func (g *Graph) Specs() []Spec {
	out := make([]Spec, 0, len(order))
	for _, id := range order {
		out = append(out, *g.specs[id])
	}
	return out
}

// Validate checks v against the current range of id without side effects.
func (g *Graph) Validate(id ID, v int64) error {
	s, ok := g.specs[id]
	if !ok {
		return fmt.Errorf("%w: 0x%08x", ErrUnknown, uint32(id))
	}
	if s.ReadOnly {
		return fmt.Errorf("%w: %s", ErrReadOnly, s.Name)
	}
	if v < s.Minimum || v > s.Maximum {
		return fmt.Errorf("%w: %s=%d not in [%d, %d]", ErrOutOfRange, s.Name, v, s.Minimum, s.Maximum)
	}
	if s.Step > 1 && (v-s.Minimum)%s.Step != 0 {
		return fmt.Errorf("%w: %s=%d not a multiple of step %d", ErrOutOfRange, s.Name, v, s.Step)
	}
	return nil
}

// Set changes a control. When powered is false only the logical state
// changes. On a register failure the previous state is kept.
func (g *Graph) Set(id ID, v int64, powered bool) error {
	if err := g.Validate(id, v); err != nil {
		return err
	}

	switch id {
	case VBlank:
		return g.setVBlank(v, powered)
	case Exposure:
		if powered {
			if err := g.writeShutter(g.vts, v); err != nil {
				return err
			}
		}
	case AnalogueGain:
		if powered {
			if err := g.regs.Write(regGain, uint32(v), 1); err != nil {
				return err
			}
			g.logger.Debug("set analogue gain", "gain", v)
		}
	case HFlip:
		if powered {
			if err := g.writeFlip(mirrorBit, v != 0); err != nil {
				return err
			}
		}
	case VFlip:
		if powered {
			if err := g.writeFlip(flipBit, v != 0); err != nil {
				return err
			}
		}
	case TestPattern:
		if powered {
			if err := g.writeTestPattern(v); err != nil {
				return err
			}
		}
	}

	g.values[id] = v
	return nil
}

func (g *Graph) setVBlank(v int64, powered bool) error {
	vts := uint32(v) + g.mode.Height
	expMax := int64(g.mode.Height) + v - 2
	exp := clamp(g.values[Exposure], ExposureMin, expMax)

	if powered {
		if err := g.writeVTS(vts); err != nil {
			return err
		}
		// The frame length is live from here on; later shutter writes
		// must encode against it even if the rewrite below fails.
		g.vts = vts
		// The shutter is relative to the frame end, so it moves with VTS.
		if err := g.writeShutter(vts, exp); err != nil {
			return err
		}
	}

	g.vts = vts
	g.specs[Exposure].Maximum = expMax
	g.values[Exposure] = exp
	g.values[VBlank] = v
	return nil
}

func (g *Graph) writeVTS(vts uint32) error {
	h, m, l := VTSBytes(vts)
	if err := g.writeBytes([3]uint16{regVTSH, regVTSM, regVTSL}, [3]uint8{h, m, l}); err != nil {
		return err
	}
	g.logger.Debug("set vts", "vts", fmt.Sprintf("0x%x", vts))
	return nil
}

// writeShutter writes the three SHS1 fields.
// TODO(group-hold): the default path writes the bytes without latching;
// confirm on hardware whether a frame can observe a torn shutter value.
func (g *Graph) writeShutter(vts uint32, e int64) error {
	shs1 := Shutter(vts, e)
	h, m, l := ShutterBytes(shs1)

	if g.groupHold {
		if err := g.regs.Write(regGroupHold, groupHoldStart, 1); err != nil {
			return err
		}
	}

	err := g.writeBytes([3]uint16{regShutterH, regShutterM, regShutterL}, [3]uint8{h, m, l})

	if g.groupHold {
		if endErr := g.regs.Write(regGroupHold, groupHoldEnd, 1); endErr != nil && err == nil {
			err = endErr
		}
	}
	if err != nil {
		return err
	}

	g.logger.Debug("set exposure", "exposure", fmt.Sprintf("0x%x", e), "vts", fmt.Sprintf("0x%x", vts), "shs1", fmt.Sprintf("0x%x", shs1))
	return nil
}

func (g *Graph) writeBytes(addrs [3]uint16, vals [3]uint8) error {
	for i := range addrs {
		if err := g.regs.Write(addrs[i], uint32(vals[i]), 1); err != nil {
			return err
		}
	}
	return nil
}

// writeFlip read-modify-writes one bit of the shared flip register.
func (g *Graph) writeFlip(bit uint8, on bool) error {
	cur, err := g.regs.Read(regFlip, 1)
	if err != nil {
		return err
	}
	val := uint8(cur)
	if on {
		val |= bit
	} else {
		val &^= bit
	}
	if err := g.regs.Write(regFlip, uint32(val), 1); err != nil {
		return err
	}
	g.flip = val
	return nil
}

func (g *Graph) writeTestPattern(p int64) error {
	if p > 0 {
		if err := g.regs.Write(regBlackLevel, blackLevelTest, 1); err != nil {
			return err
		}
		if err := g.regs.Write(regAuxTest, auxTest, 1); err != nil {
			return err
		}
		return g.regs.Write(regTestPat, TestPatternValue(p), 1)
	}

	cur, err := g.regs.Read(regTestPat, 1)
	if err != nil {
		return err
	}
	if err := g.regs.Write(regBlackLevel, blackLevelNormal, 1); err != nil {
		return err
	}
	if err := g.regs.Write(regAuxTest, auxNormal, 1); err != nil {
		return err
	}
	return g.regs.Write(regTestPat, cur&^testPatternEnable, 1)
}

// Apply writes every configured control to the sensor, in creation
// order. A disabled test pattern is replayed too, restoring the normal
// black level over the mode program's value. All controls are
// attempted; the first error is returned.
func (g *Graph) Apply() error {
	var first error
	for _, id := range order {
		s := g.specs[id]
		if s.ReadOnly {
			continue
		}
		v := g.values[id]

		if err := g.Set(id, v, true); err != nil {
			g.logger.Warn("control replay failed", "control", s.Name, "value", v, "error", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
