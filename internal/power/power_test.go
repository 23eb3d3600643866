package power

import (
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// recorder collects board operations in the order they happen.
type recorder struct {
	mu  sync.Mutex
	ops []string
}

func (r *recorder) add(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ops...)
}

type fakeClock struct {
	rec       *recorder
	rate      physic.Frequency
	enabled   bool
	enableErr error
}

func (c *fakeClock) SetRate(f physic.Frequency) error {
	c.rec.add("clk.rate")
	c.rate = f
	return nil
}

func (c *fakeClock) Rate() physic.Frequency { return c.rate }

func (c *fakeClock) Enable() error {
	c.rec.add("clk.on")
	if c.enableErr != nil {
		return c.enableErr
	}
	c.enabled = true
	return nil
}

func (c *fakeClock) Disable() error {
	c.rec.add("clk.off")
	c.enabled = false
	return nil
}

type fakeRails struct {
	rec *recorder
	err error
}

func (r *fakeRails) EnableAll() error {
	r.rec.add("rails.on")
	return r.err
}

func (r *fakeRails) DisableAll() error {
	r.rec.add("rails.off")
	return nil
}

type fakeLine struct {
	rec  *recorder
	name string
	err  error
}

func (l *fakeLine) Out(level gpio.Level) error {
	l.rec.add(l.name + "=" + level.String())
	return l.err
}

type fakePins struct {
	rec *recorder
	err error
}

func (p *fakePins) Select(state string) error {
	p.rec.add("pins." + state)
	return p.err
}

type fixture struct {
	rec   *recorder
	clock *fakeClock
	rails *fakeRails
	board Board
}

func newFixture() *fixture {
	rec := &recorder{}
	f := &fixture{
		rec:   rec,
		clock: &fakeClock{rec: rec},
		rails: &fakeRails{rec: rec},
	}
	f.board = Board{
		Clock:     f.clock,
		Rails:     f.rails,
		Reset:     &fakeLine{rec: rec, name: "reset"},
		PowerDown: &fakeLine{rec: rec, name: "pwdn"},
		Pins:      &fakePins{rec: rec},
	}
	return f
}

func (f *fixture) machine(t *testing.T) *Machine {
	t.Helper()
	m, err := NewMachine(f.board, Timing{})
	if err != nil {
		t.Fatalf("NewMachine() error = %v", err)
	}
	m.sleep = func(d time.Duration) { f.rec.add("sleep") }
	return m
}

func TestPowerOnSequence(t *testing.T) {
	f := newFixture()
	m := f.machine(t)

	if err := m.PowerOn(); err != nil {
		t.Fatalf("PowerOn() error = %v", err)
	}

	want := []string{
		"pins." + PinsDefault,
		"clk.rate",
		"clk.on",
		"rails.on",
		"reset=Low",
		"sleep",
		"reset=High",
		"pwdn=High",
		"sleep",
	}
	if got := f.rec.list(); !reflect.DeepEqual(got, want) {
		t.Errorf("sequence = %v\nwant %v", got, want)
	}
	if m.State() != On {
		t.Errorf("State() = %v, want on", m.State())
	}
	if f.clock.rate != ClockRate {
		t.Errorf("clock rate = %v, want %v", f.clock.rate, ClockRate)
	}
}

func TestPowerOffSequence(t *testing.T) {
	f := newFixture()
	m := f.machine(t)
	_ = m.PowerOn()
	f.rec.ops = nil

	m.PowerOff()

	want := []string{
		"pwdn=Low",
		"clk.off",
		"reset=Low",
		"pins." + PinsSleep,
		"rails.off",
	}
	if got := f.rec.list(); !reflect.DeepEqual(got, want) {
		t.Errorf("sequence = %v\nwant %v", got, want)
	}
	if m.State() != Off {
		t.Errorf("State() = %v, want off", m.State())
	}
}

func TestRailFailureDisablesClock(t *testing.T) {
	f := newFixture()
	f.rails.err = errors.New("regulator timeout")
	m := f.machine(t)

	err := m.PowerOn()
	if !errors.Is(err, ErrRailsEnable) {
		t.Fatalf("PowerOn() error = %v, want ErrRailsEnable", err)
	}
	if f.clock.enabled {
		t.Error("clock left running after supply failure")
	}
	if m.State() != Off {
		t.Errorf("State() = %v, want off", m.State())
	}
	for _, op := range f.rec.list() {
		if op == "reset=High" || op == "pwdn=High" {
			t.Errorf("sequence continued past supply failure: %s", op)
		}
	}
}

func TestClockFailureIsFatal(t *testing.T) {
	f := newFixture()
	f.clock.enableErr = errors.New("no parent")
	m := f.machine(t)

	if err := m.PowerOn(); !errors.Is(err, ErrClockEnable) {
		t.Fatalf("PowerOn() error = %v, want ErrClockEnable", err)
	}
	for _, op := range f.rec.list() {
		if op == "rails.on" {
			t.Error("supplies enabled without a clock")
		}
	}
}

func TestBestEffortStepsDoNotAbort(t *testing.T) {
	f := newFixture()
	rec := f.rec
	f.board.Pins = &fakePins{rec: rec, err: errors.New("no pinctrl")}
	f.board.Reset = &fakeLine{rec: rec, name: "reset", err: errors.New("gpio busy")}
	m := f.machine(t)

	if err := m.PowerOn(); err != nil {
		t.Fatalf("PowerOn() error = %v", err)
	}
	if m.State() != On {
		t.Errorf("State() = %v, want on", m.State())
	}
}

func TestOptionalResourcesAbsent(t *testing.T) {
	clk := NewFixedClock(ClockRate)
	m, err := NewMachine(Board{Clock: clk}, Timing{})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.PowerOn(); err != nil {
		t.Fatalf("PowerOn() error = %v", err)
	}
	if !clk.Enabled() {
		t.Error("clock not enabled")
	}
	m.PowerOff()
	if clk.Enabled() {
		t.Error("clock still enabled after power off")
	}
}

func TestNewMachineRequiresClock(t *testing.T) {
	if _, err := NewMachine(Board{}, Timing{}); !errors.Is(err, ErrNoClock) {
		t.Errorf("NewMachine() error = %v, want ErrNoClock", err)
	}
}

func TestRepeatedTransitionsAreNoops(t *testing.T) {
	f := newFixture()
	m := f.machine(t)

	m.PowerOff()
	if n := len(f.rec.list()); n != 0 {
		t.Errorf("PowerOff() from off performed %d operations", n)
	}
	_ = m.PowerOn()
	before := len(f.rec.list())
	_ = m.PowerOn()
	if n := len(f.rec.list()); n != before {
		t.Errorf("second PowerOn() performed %d operations", n-before)
	}
}

func TestLineRailsUnwindOnFailure(t *testing.T) {
	rec := &recorder{}
	rails := NewLineRails(map[string]Line{
		"avdd":  &fakeLine{rec: rec, name: "avdd"},
		"dovdd": &fakeLine{rec: rec, name: "dovdd", err: errors.New("stuck")},
		"dvdd":  &fakeLine{rec: rec, name: "dvdd"},
	})

	if err := rails.EnableAll(); err == nil {
		t.Fatal("EnableAll() succeeded despite failing supply")
	}
	want := []string{"avdd=High", "dovdd=High", "avdd=Low"}
	if got := rec.list(); !reflect.DeepEqual(got, want) {
		t.Errorf("sequence = %v, want %v", got, want)
	}
}

func TestRuntimeRefcount(t *testing.T) {
	f := newFixture()
	r := NewRuntime(f.machine(t), 0)

	var changes []State
	r.OnChange(func(s State) { changes = append(changes, s) })

	if err := r.Acquire(); err != nil {
		t.Fatal(err)
	}
	if err := r.Acquire(); err != nil {
		t.Fatal(err)
	}
	if !r.Powered() || r.Users() != 2 {
		t.Fatalf("Powered() = %v, Users() = %d", r.Powered(), r.Users())
	}

	r.Release()
	if !r.Powered() {
		t.Error("powered off while a reference is held")
	}
	r.Release()
	if r.Powered() {
		t.Error("still powered after last release")
	}
	r.Release()
	if r.Users() != 0 {
		t.Errorf("Users() = %d after unbalanced release", r.Users())
	}

	if want := []State{On, Off}; !reflect.DeepEqual(changes, want) {
		t.Errorf("changes = %v, want %v", changes, want)
	}
}

func TestRuntimeAcquireFailureHoldsNoReference(t *testing.T) {
	f := newFixture()
	f.rails.err = errors.New("brownout")
	r := NewRuntime(f.machine(t), 0)

	if err := r.Acquire(); err == nil {
		t.Fatal("Acquire() succeeded")
	}
	if r.Users() != 0 || r.Powered() {
		t.Errorf("Users() = %d, Powered() = %v after failed acquire", r.Users(), r.Powered())
	}
}

func TestRuntimeAutosuspend(t *testing.T) {
	f := newFixture()
	r := NewRuntime(f.machine(t), 20*time.Millisecond)

	off := make(chan struct{}, 1)
	r.OnChange(func(s State) {
		if s == Off {
			off <- struct{}{}
		}
	})

	_ = r.Acquire()
	r.Release()
	if !r.Powered() {
		t.Fatal("powered off before the autosuspend delay")
	}

	select {
	case <-off:
	case <-time.After(time.Second):
		t.Fatal("autosuspend never powered off")
	}
	if r.Powered() {
		t.Error("Powered() = true after autosuspend")
	}
}

func TestRuntimeAcquireCancelsAutosuspend(t *testing.T) {
	f := newFixture()
	r := NewRuntime(f.machine(t), 10*time.Millisecond)

	_ = r.Acquire()
	r.Release()
	_ = r.Acquire()
	time.Sleep(30 * time.Millisecond)

	if !r.Powered() {
		t.Error("autosuspend fired while a reference is held")
	}
	r.Shutdown()
	if r.Powered() || r.Users() != 0 {
		t.Error("Shutdown() left the sensor powered")
	}
}

func TestRuntimeGetIfInUse(t *testing.T) {
	f := newFixture()
	r := NewRuntime(f.machine(t), time.Hour)
	defer r.Shutdown()

	if r.GetIfInUse() {
		t.Fatal("GetIfInUse() = true while off")
	}

	// Still on, but only because autosuspend has not fired.
	_ = r.Acquire()
	r.Release()
	if !r.Powered() {
		t.Fatal("powered off before the autosuspend delay")
	}
	if r.GetIfInUse() {
		t.Fatal("GetIfInUse() = true with no reference held")
	}
	if r.Users() != 0 {
		t.Fatalf("Users() = %d, want 0", r.Users())
	}

	_ = r.Acquire()
	if !r.GetIfInUse() {
		t.Fatal("GetIfInUse() = false with a reference held")
	}
	if r.Users() != 2 {
		t.Errorf("Users() = %d, want 2", r.Users())
	}
	r.Release()
	r.Release()
	if r.Users() != 0 {
		t.Errorf("Users() = %d after releases, want 0", r.Users())
	}
}
