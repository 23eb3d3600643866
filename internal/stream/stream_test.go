package stream

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/smazurov/sensornode/internal/bus"
)

var program = bus.Program{
	{Addr: 0x3005, Val: 0x01},
	{Addr: 0x3007, Val: 0x00},
	{Addr: 0x3018, Val: 0x65},
	{Addr: bus.Sentinel},
}

type countingReplayer struct {
	calls int
	err   error
}

func (r *countingReplayer) Apply() error {
	r.calls++
	return r.err
}

func newTestMachine() (*Machine, *bus.Sim) {
	sim := bus.NewSim()
	m := New(bus.New(sim), 0)
	m.sleep = func(time.Duration) {}
	return m, sim
}

func TestStartSequence(t *testing.T) {
	m, sim := newTestMachine()
	ctrls := &countingReplayer{}
	before := testutil.ToFloat64(starts)

	if err := m.Start(true, program, ctrls); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	want := []uint16{0x3005, 0x3007, 0x3018, regCtrlMode, regSecondary}
	hist := sim.History()
	if len(hist) != len(want) {
		t.Fatalf("wrote %d registers, want %d", len(hist), len(want))
	}
	for i, w := range hist {
		if w.Addr != want[i] {
			t.Errorf("write %d addr = 0x%04x, want 0x%04x", i, w.Addr, want[i])
		}
	}
	if sim.Peek(regCtrlMode) != ctrlModeStreaming || sim.Peek(regSecondary) != secondaryActive {
		t.Error("mode registers not set to streaming")
	}
	if ctrls.calls != 1 {
		t.Errorf("Apply() called %d times, want 1", ctrls.calls)
	}
	if m.State() != Streaming {
		t.Errorf("State() = %v, want streaming", m.State())
	}
	if got := testutil.ToFloat64(starts) - before; got != 1 {
		t.Errorf("starts counter delta = %v, want 1", got)
	}
	if testutil.ToFloat64(streaming) != 1 {
		t.Error("streaming gauge not set")
	}
}

func TestSecondStartIsNoop(t *testing.T) {
	m, sim := newTestMachine()
	ctrls := &countingReplayer{}

	if err := m.Start(true, program, ctrls); err != nil {
		t.Fatal(err)
	}
	sim.ResetHistory()

	if err := m.Start(true, program, ctrls); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	if n := len(sim.History()); n != 0 {
		t.Errorf("second Start() wrote %d registers", n)
	}
	if ctrls.calls != 1 {
		t.Errorf("controls replayed %d times, want 1", ctrls.calls)
	}
}

func TestStartRequiresPower(t *testing.T) {
	m, sim := newTestMachine()

	if err := m.Start(false, program, &countingReplayer{}); !errors.Is(err, ErrNotPowered) {
		t.Fatalf("Start() error = %v, want ErrNotPowered", err)
	}
	if len(sim.History()) != 0 || m.State() != Standby {
		t.Error("unpowered Start() touched the sensor")
	}
}

func TestProgramFailureAborts(t *testing.T) {
	m, sim := newTestMachine()
	ctrls := &countingReplayer{}
	sim.Nack(0x3007, true)

	err := m.Start(true, program, ctrls)
	if !errors.Is(err, bus.ErrIO) {
		t.Fatalf("Start() error = %v, want bus IO error", err)
	}
	if m.State() != Standby {
		t.Errorf("State() = %v, want standby", m.State())
	}
	if ctrls.calls != 0 {
		t.Error("controls replayed after program failure")
	}
	if sim.Writes(regCtrlMode) != 0 {
		t.Error("streaming enabled after program failure")
	}
}

func TestReplayFailureDoesNotAbort(t *testing.T) {
	m, _ := newTestMachine()

	if err := m.Start(true, program, &countingReplayer{err: errors.New("gain nack")}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if m.State() != Streaming {
		t.Errorf("State() = %v, want streaming", m.State())
	}
}

func TestSecondaryFailureIsCounted(t *testing.T) {
	m, sim := newTestMachine()
	sim.Nack(regSecondary, true)
	before := testutil.ToFloat64(secondaryFailures.WithLabelValues("start"))

	if err := m.Start(true, program, &countingReplayer{}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if got := testutil.ToFloat64(secondaryFailures.WithLabelValues("start")) - before; got != 1 {
		t.Errorf("secondary failures delta = %v, want 1", got)
	}
}

func TestStopIsBestEffort(t *testing.T) {
	m, sim := newTestMachine()
	_ = m.Start(true, program, &countingReplayer{})

	sim.Nack(regCtrlMode, true)
	m.Stop()

	if m.State() != Standby {
		t.Errorf("State() = %v, want standby", m.State())
	}
	if sim.Peek(regSecondary) != secondaryStandby {
		t.Error("secondary register not written after ctrl-mode failure")
	}

	sim.ResetHistory()
	m.Stop()
	if len(sim.History()) != 0 {
		t.Error("Stop() from standby wrote registers")
	}
}

func TestReset(t *testing.T) {
	m, sim := newTestMachine()
	_ = m.Start(true, program, &countingReplayer{})
	sim.ResetHistory()

	m.Reset()
	if m.State() != Standby {
		t.Errorf("State() = %v, want standby", m.State())
	}
	if len(sim.History()) != 0 {
		t.Error("Reset() wrote registers")
	}
}
