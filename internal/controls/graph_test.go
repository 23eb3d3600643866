package controls

import (
	"errors"
	"testing"

	"github.com/smazurov/sensornode/internal/bus"
	"github.com/smazurov/sensornode/internal/modes"
)

func newTestGraph(t *testing.T, opts ...Option) (*Graph, *bus.Sim) {
	t.Helper()
	sim := bus.NewSim()
	return New(&modes.IMX290[0], bus.New(sim), opts...), sim
}

func mustGet(t *testing.T, g *Graph, id ID) int64 {
	t.Helper()
	v, err := g.Get(id)
	if err != nil {
		t.Fatalf("Get(%s) error = %v", Name(id), err)
	}
	return v
}

func TestNewDerivesTimingFromMode(t *testing.T) {
	g, sim := newTestGraph(t)
	m := modes.IMX290[0]

	if got, want := mustGet(t, g, HBlank), int64(m.HTSDefault-m.Width); got != want {
		t.Errorf("hblank = %d, want %d", got, want)
	}
	if got, want := mustGet(t, g, VBlank), int64(m.VTSDefault-m.Height); got != want {
		t.Errorf("vblank = %d, want %d", got, want)
	}

	exp, _ := g.Spec(Exposure)
	if exp.Default != int64(m.ExposureDefault) {
		t.Errorf("exposure default = 0x%x, want 0x%x", exp.Default, m.ExposureDefault)
	}
	if exp.Maximum != int64(m.VTSDefault)-2 {
		t.Errorf("exposure max = %d, want %d", exp.Maximum, m.VTSDefault-2)
	}
	if got := mustGet(t, g, Exposure); got != int64(m.ExposureDefault) {
		t.Errorf("exposure = 0x%x, want 0x%x", got, m.ExposureDefault)
	}
	if g.CurrentVTS() != m.VTSDefault {
		t.Errorf("CurrentVTS() = 0x%x, want 0x%x", g.CurrentVTS(), m.VTSDefault)
	}
	if got := mustGet(t, g, PixelRate); got != 74250000 {
		t.Errorf("pixel rate = %d, want 74250000", got)
	}
	if len(sim.History()) != 0 {
		t.Errorf("construction wrote %d registers, want none", len(sim.History()))
	}
}

func TestVBlankRecomputesExposureRange(t *testing.T) {
	g, _ := newTestGraph(t)
	height := int64(modes.IMX290[0].Height)
	vb, _ := g.Spec(VBlank)

	values := []int64{vb.Minimum, vb.Minimum + 1, 500, 4096, vb.Maximum - 1, vb.Maximum}
	for v := vb.Minimum; v <= vb.Maximum; v += 977 {
		values = append(values, v)
	}

	for _, v := range values {
		if err := g.Set(VBlank, v, false); err != nil {
			t.Fatalf("Set(vblank, %d) error = %v", v, err)
		}
		exp, _ := g.Spec(Exposure)
		if exp.Maximum != height+v-2 {
			t.Errorf("vblank %d: exposure max = %d, want %d", v, exp.Maximum, height+v-2)
		}
		if int64(g.CurrentVTS()) != height+v {
			t.Errorf("vblank %d: vts = %d, want %d", v, g.CurrentVTS(), height+v)
		}
		if cur := mustGet(t, g, Exposure); cur > exp.Maximum {
			t.Errorf("vblank %d: exposure %d exceeds max %d", v, cur, exp.Maximum)
		}
	}
}

func TestVBlankClampsExposure(t *testing.T) {
	g, _ := newTestGraph(t)

	if err := g.Set(VBlank, 1000, false); err != nil {
		t.Fatal(err)
	}
	if err := g.Set(Exposure, 2095, false); err != nil {
		t.Fatal(err)
	}
	def, _ := g.Spec(VBlank)
	if err := g.Set(VBlank, def.Default, false); err != nil {
		t.Fatal(err)
	}

	exp, _ := g.Spec(Exposure)
	if got := mustGet(t, g, Exposure); got != exp.Maximum {
		t.Errorf("exposure = %d, want clamped to %d", got, exp.Maximum)
	}
}

func TestShutterEncoding(t *testing.T) {
	g, sim := newTestGraph(t)
	vts := g.CurrentVTS()
	exp, _ := g.Spec(Exposure)

	for e := exp.Minimum; e <= exp.Maximum; e += 37 {
		sim.ResetHistory()
		if err := g.Set(Exposure, e, true); err != nil {
			t.Fatalf("Set(exposure, %d) error = %v", e, err)
		}
		h, m, l := sim.Peek(regShutterH), sim.Peek(regShutterM), sim.Peek(regShutterL)
		if h&^0x0f != 0 {
			t.Errorf("exposure %d: high byte 0x%x exceeds 4 bits", e, h)
		}
		got := uint32(h)<<16 | uint32(m)<<8 | uint32(l)
		if want := vts - uint32(e) - 1; got != want {
			t.Errorf("exposure %d: shs1 = 0x%x, want 0x%x", e, got, want)
		}
	}
}

func TestExposureDefaultShutterBytes(t *testing.T) {
	g, sim := newTestGraph(t)

	if g.CurrentVTS() != 0x0465 {
		t.Fatalf("CurrentVTS() = 0x%x, want 0x0465", g.CurrentVTS())
	}
	if err := g.Set(Exposure, 0x03fe, true); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		addr uint16
		want byte
	}{
		{regShutterH, 0x00},
		{regShutterM, 0x00},
		{regShutterL, 0x66},
	}
	for _, tt := range tests {
		if got := sim.Peek(tt.addr); got != tt.want {
			t.Errorf("reg 0x%04x = 0x%02x, want 0x%02x", tt.addr, got, tt.want)
		}
	}
}

func TestVBlankWritesFrameLength(t *testing.T) {
	g, sim := newTestGraph(t)

	if err := g.Set(VBlank, 0x7fff-1097, true); err != nil {
		t.Fatal(err)
	}
	if sim.Peek(regVTSH) != 0x00 || sim.Peek(regVTSM) != 0x7f || sim.Peek(regVTSL) != 0xff {
		t.Errorf("vts regs = %02x %02x %02x, want 00 7f ff", sim.Peek(regVTSH), sim.Peek(regVTSM), sim.Peek(regVTSL))
	}
	// The shutter follows the new frame length.
	shs1 := uint32(sim.Peek(regShutterH))<<16 | uint32(sim.Peek(regShutterM))<<8 | uint32(sim.Peek(regShutterL))
	if want := Shutter(0x7fff, 0x03fe); shs1 != want {
		t.Errorf("shs1 = 0x%x, want 0x%x", shs1, want)
	}
}

func TestFlipAxesAreIndependent(t *testing.T) {
	g, sim := newTestGraph(t)
	sim.Poke(regFlip, 0x40)

	steps := []struct {
		id   ID
		v    int64
		want byte
	}{
		{HFlip, 1, 0x42},
		{VFlip, 1, 0x43},
		{HFlip, 0, 0x41},
		{VFlip, 0, 0x40},
		{VFlip, 1, 0x41},
	}
	for _, s := range steps {
		if err := g.Set(s.id, s.v, true); err != nil {
			t.Fatalf("Set(%s, %d) error = %v", Name(s.id), s.v, err)
		}
		if got := sim.Peek(regFlip); got != s.want {
			t.Errorf("after %s=%d flip reg = 0x%02x, want 0x%02x", Name(s.id), s.v, got, s.want)
		}
		if g.FlipBits() != s.want {
			t.Errorf("FlipBits() = 0x%02x, want 0x%02x", g.FlipBits(), s.want)
		}
	}
}

func TestTestPatternToggle(t *testing.T) {
	g, sim := newTestGraph(t)
	sim.Poke(regTestPat, 0x40)
	sim.Poke(regBlackLevel, 0xf0)

	if err := g.Set(TestPattern, 3, true); err != nil {
		t.Fatal(err)
	}
	if got := sim.Peek(regTestPat); got != 0x21 {
		t.Errorf("pattern reg = 0x%02x, want 0x21", got)
	}
	if sim.Peek(regBlackLevel) != blackLevelTest || sim.Peek(regAuxTest) != auxTest {
		t.Error("aux registers not forced to test values")
	}

	sim.Poke(regTestPat, 0x61)
	if err := g.Set(TestPattern, 0, true); err != nil {
		t.Fatal(err)
	}
	if got := sim.Peek(regTestPat); got != 0x60 {
		t.Errorf("pattern reg = 0x%02x, want 0x60 (enable cleared, other bits kept)", got)
	}
	if sim.Peek(regBlackLevel) != blackLevelNormal || sim.Peek(regAuxTest) != auxNormal {
		t.Error("aux registers not restored")
	}
}

func TestUnpoweredSetOnlyUpdatesState(t *testing.T) {
	g, sim := newTestGraph(t)

	sets := []struct {
		id ID
		v  int64
	}{
		{VBlank, 200},
		{Exposure, 100},
		{AnalogueGain, 0x30},
		{HFlip, 1},
		{TestPattern, 5},
	}
	for _, s := range sets {
		if err := g.Set(s.id, s.v, false); err != nil {
			t.Fatalf("Set(%s) error = %v", Name(s.id), err)
		}
		if got := mustGet(t, g, s.id); got != s.v {
			t.Errorf("%s = %d, want %d", Name(s.id), got, s.v)
		}
	}
	if n := len(sim.History()); n != 0 {
		t.Errorf("unpowered sets wrote %d registers", n)
	}
}

func TestFailedWriteKeepsState(t *testing.T) {
	g, sim := newTestGraph(t)

	sim.Nack(regGain, true)
	if err := g.Set(AnalogueGain, 0x20, true); !errors.Is(err, bus.ErrIO) {
		t.Fatalf("Set(gain) error = %v, want bus IO error", err)
	}
	if got := mustGet(t, g, AnalogueGain); got != GainDefault {
		t.Errorf("gain = %d, want unchanged %d", got, GainDefault)
	}

	sim.Nack(regVTSL, true)
	before := g.CurrentVTS()
	if err := g.Set(VBlank, 500, true); err == nil {
		t.Fatal("Set(vblank) succeeded despite bus failure")
	}
	if g.CurrentVTS() != before {
		t.Errorf("vts = %d after failed write, want %d", g.CurrentVTS(), before)
	}
	exp, _ := g.Spec(Exposure)
	if exp.Maximum != int64(before)-2 {
		t.Errorf("exposure max moved to %d after failed write", exp.Maximum)
	}
}

func TestValidate(t *testing.T) {
	g, _ := newTestGraph(t)

	tests := []struct {
		name string
		id   ID
		v    int64
		want error
	}{
		{"unknown id", ID(0x1234), 0, ErrUnknown},
		{"hblank read-only", HBlank, 2452, ErrReadOnly},
		{"pixel rate read-only", PixelRate, 1, ErrReadOnly},
		{"digital gain read-only", DigitalGain, 0, ErrReadOnly},
		{"exposure below min", Exposure, 1, ErrOutOfRange},
		{"exposure above max", Exposure, 0x0465 - 1, ErrOutOfRange},
		{"gain above max", AnalogueGain, 0x65, ErrOutOfRange},
		{"vblank below default", VBlank, 27, ErrOutOfRange},
		{"test pattern index", TestPattern, 16, ErrOutOfRange},
		{"flip not boolean", HFlip, 2, ErrOutOfRange},
		{"valid gain", AnalogueGain, 0x64, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Set(tt.id, tt.v, false)
			if tt.want == nil {
				if err != nil {
					t.Errorf("Set() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Set() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestApplyReplaysState(t *testing.T) {
	g, sim := newTestGraph(t)

	_ = g.Set(VBlank, 100, false)
	_ = g.Set(Exposure, 500, false)
	_ = g.Set(AnalogueGain, 0x10, false)
	_ = g.Set(VFlip, 1, false)

	if err := g.Apply(); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	vts := uint32(1097 + 100)
	if got := uint32(sim.Peek(regVTSM))<<8 | uint32(sim.Peek(regVTSL)); got != vts {
		t.Errorf("vts = %d, want %d", got, vts)
	}
	if got := uint32(sim.Peek(regShutterM))<<8 | uint32(sim.Peek(regShutterL)); got != vts-500-1 {
		t.Errorf("shs1 = %d, want %d", got, vts-500-1)
	}
	if sim.Peek(regGain) != 0x10 {
		t.Errorf("gain = 0x%x, want 0x10", sim.Peek(regGain))
	}
	if sim.Peek(regFlip) != flipBit {
		t.Errorf("flip = 0x%x, want 0x%x", sim.Peek(regFlip), flipBit)
	}
	// A disabled pattern restores the normal black level over the mode
	// program's value.
	if sim.Peek(regBlackLevel) != blackLevelNormal || sim.Peek(regAuxTest) != auxNormal {
		t.Errorf("black level = 0x%x aux = 0x%x, want 0x%x 0x%x",
			sim.Peek(regBlackLevel), sim.Peek(regAuxTest), blackLevelNormal, auxNormal)
	}
	if sim.Peek(regTestPat)&testPatternEnable != 0 {
		t.Error("test pattern left enabled")
	}
}

func TestApplyRestoresBlackLevelAfterModeProgram(t *testing.T) {
	g, sim := newTestGraph(t)
	sim.Poke(regBlackLevel, 0xf0)
	sim.Poke(regTestPat, 0x40)

	if err := g.Apply(); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got := sim.Peek(regBlackLevel); got != blackLevelNormal {
		t.Errorf("black level = 0x%x, want 0x%x", got, blackLevelNormal)
	}
	if got := sim.Peek(regTestPat); got != 0x40 {
		t.Errorf("test pattern register = 0x%x, want other bits kept (0x40)", got)
	}
}

func TestVBlankKeepsLiveVTSWhenShutterFails(t *testing.T) {
	g, sim := newTestGraph(t)
	before := mustGet(t, g, VBlank)
	sim.Nack(regShutterH, true)

	if err := g.Set(VBlank, 100, true); !errors.Is(err, bus.ErrIO) {
		t.Fatalf("Set(VBlank) error = %v, want bus IO error", err)
	}
	vts := uint32(1097 + 100)
	if g.CurrentVTS() != vts {
		t.Errorf("CurrentVTS() = %d, want %d written to the sensor", g.CurrentVTS(), vts)
	}
	if got := mustGet(t, g, VBlank); got != before {
		t.Errorf("vblank = %d, want uncommitted %d", got, before)
	}

	sim.Nack(regShutterH, false)
	if err := g.Set(Exposure, 500, true); err != nil {
		t.Fatal(err)
	}
	if got := uint32(sim.Peek(regShutterM))<<8 | uint32(sim.Peek(regShutterL)); got != vts-500-1 {
		t.Errorf("shs1 = %d, want %d", got, vts-500-1)
	}
}

func TestApplyReportsFirstError(t *testing.T) {
	g, sim := newTestGraph(t)
	sim.Nack(regGain, true)

	if err := g.Apply(); !errors.Is(err, bus.ErrIO) {
		t.Fatalf("Apply() error = %v, want bus IO error", err)
	}
	// Later controls are still attempted.
	if sim.Writes(regFlip) == 0 {
		t.Error("flip not replayed after earlier failure")
	}
}

func TestGroupHoldBracketsShutter(t *testing.T) {
	g, sim := newTestGraph(t, WithGroupHold(true))

	if err := g.Set(Exposure, 0x100, true); err != nil {
		t.Fatal(err)
	}

	want := []uint16{regGroupHold, regShutterH, regShutterM, regShutterL, regGroupHold}
	hist := sim.History()
	if len(hist) != len(want) {
		t.Fatalf("wrote %d registers, want %d", len(hist), len(want))
	}
	for i, w := range hist {
		if w.Addr != want[i] {
			t.Errorf("write %d addr = 0x%04x, want 0x%04x", i, w.Addr, want[i])
		}
	}
	if hist[0].Data[0] != groupHoldStart || hist[4].Data[0] != groupHoldEnd {
		t.Error("group hold not started and released")
	}
}

func TestSetModeResetsTiming(t *testing.T) {
	g, _ := newTestGraph(t)
	_ = g.Set(VBlank, 3000, false)

	g.SetMode(&modes.IMX290[0])

	if g.CurrentVTS() != modes.IMX290[0].VTSDefault {
		t.Errorf("CurrentVTS() = 0x%x after SetMode", g.CurrentVTS())
	}
	vb, _ := g.Spec(VBlank)
	if got := mustGet(t, g, VBlank); got != vb.Default {
		t.Errorf("vblank = %d, want default %d", got, vb.Default)
	}
}

func TestByName(t *testing.T) {
	for _, s := range func() []Spec { g, _ := newTestGraph(t); return g.Specs() }() {
		id, ok := ByName(s.Name)
		if !ok || id != s.ID {
			t.Errorf("ByName(%q) = 0x%x, %v", s.Name, uint32(id), ok)
		}
	}
	if _, ok := ByName("brightness"); ok {
		t.Error("ByName() resolved an unknown control")
	}
}
