// Package sensor composes the register codec, mode table, controls and
// the power and stream state machines into one IMX290 device.
//
// Every exported method takes the device lock for its whole duration.
// The longest hold is a stream start, bounded by the settle delay.
package sensor

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/sensornode/internal/bus"
	"github.com/smazurov/sensornode/internal/controls"
	"github.com/smazurov/sensornode/internal/events"
	"github.com/smazurov/sensornode/internal/logging"
	"github.com/smazurov/sensornode/internal/modes"
	"github.com/smazurov/sensornode/internal/power"
	"github.com/smazurov/sensornode/internal/stream"
)

// Name is the sensor's model name.
const Name = "imx290"

const (
	regChipID uint16 = 0x301e
	chipID           = 0xb2
)

// BusType is the physical data interface between sensor and host.
type BusType string

// Bus types.
const (
	BusCSI2DPHY BusType = "csi2-dphy"
	BusCCP2     BusType = "ccp2"
)

// Config is the board-level description of one sensor instance.
type Config struct {
	ModuleIndex  int
	ModuleFacing string // "back" or "front"
	ModuleName   string
	LensName     string
	BusType      BusType
	Lanes        int
	DeviceName   string // bus-address identifier, e.g. "1-001a"
	GroupHold    bool
	StreamSettle time.Duration
}

// Publisher receives sensor events.
type Publisher interface {
	Publish(ev events.Event)
}

// Deps are the collaborators a Sensor drives.
type Deps struct {
	Transport   bus.Transport
	Board       power.Board
	Timing      power.Timing
	Autosuspend time.Duration
	Modes       modes.Table // defaults to modes.IMX290
	Events      Publisher   // optional
}

// Sensor is one IMX290 device.
type Sensor struct {
	mu sync.Mutex

	cfg    Config
	regs   *bus.Registers
	table  modes.Table
	mode   *modes.Mode
	ctrls  *controls.Graph
	power  *power.Runtime
	stream *stream.Machine
	events Publisher
	logger *slog.Logger

	attached  bool
	closed    bool
	hostPower bool
}

// New builds a sensor. No hardware is touched until Attach.
func New(cfg Config, deps Deps) (*Sensor, error) {
	if deps.Transport == nil {
		return nil, NewError(KindConfig, "no bus transport", nil)
	}
	machine, err := power.NewMachine(deps.Board, deps.Timing)
	if err != nil {
		return nil, wrap("board", err)
	}

	table := deps.Modes
	if table == nil {
		table = modes.IMX290
	}
	if cfg.BusType == "" {
		cfg.BusType = BusCSI2DPHY
	}
	if cfg.Lanes == 0 {
		cfg.Lanes = 2
	}
	if cfg.StreamSettle == 0 {
		cfg.StreamSettle = stream.DefaultSettle
	}

	regs := bus.New(deps.Transport)
	mode := &table[0]

	s := &Sensor{
		cfg:    cfg,
		regs:   regs,
		table:  table,
		mode:   mode,
		ctrls:  controls.New(mode, regs, controls.WithGroupHold(cfg.GroupHold)),
		power:  power.NewRuntime(machine, deps.Autosuspend),
		stream: stream.New(regs, cfg.StreamSettle),
		events: deps.Events,
	}
	s.logger = logging.GetLogger("sensor").With("sensor", s.entityName())
	s.power.OnChange(s.powerChanged)
	return s, nil
}

// Attach powers the sensor, checks its identity and loads the global
// register program. An identity mismatch leaves the sensor unusable.
func (s *Sensor) Attach() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewError(KindState, "sensor is closed", nil)
	}
	if s.attached {
		return nil
	}

	if err := s.power.Acquire(); err != nil {
		return wrap("power on", err)
	}
	defer s.power.Release()

	id, err := s.regs.Read(regChipID, 1)
	if err != nil {
		return wrap("read chip id", err)
	}
	if id != chipID {
		return NewError(KindIdentity, fmt.Sprintf("chip id 0x%02x, want 0x%02x", id, chipID), nil)
	}

	if err := s.regs.WriteProgram(modes.Global); err != nil {
		return wrap("global program", err)
	}

	s.attached = true
	s.logger.Info("Sensor attached", "chip_id", fmt.Sprintf("0x%02x", id), "module", s.cfg.ModuleName, "lens", s.cfg.LensName)
	return nil
}

// SetPower takes or drops the host's power reference. Taking it loads
// the global register program.
func (s *Sensor) SetPower(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return err
	}
	if on == s.hostPower {
		return nil
	}

	if !on {
		s.hostPower = false
		s.power.Release()
		return nil
	}

	if err := s.power.Acquire(); err != nil {
		return wrap("power on", err)
	}
	if err := s.regs.WriteProgram(modes.Global); err != nil {
		s.power.Release()
		return wrap("global program", err)
	}
	s.hostPower = true
	return nil
}

// StreamOn starts streaming, powering the sensor if needed.
func (s *Sensor) StreamOn() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return err
	}
	if s.stream.State() == stream.Streaming {
		return nil
	}

	if err := s.power.Acquire(); err != nil {
		return wrap("power on", err)
	}
	if err := s.stream.Start(s.power.Powered(), s.mode.Program, s.ctrls); err != nil {
		s.power.Release()
		return wrap("stream on", err)
	}

	s.publish(events.StreamStateChangedEvent{
		Sensor:    s.entityName(),
		Streaming: true,
		Timestamp: now(),
	})
	return nil
}

// StreamOff stops streaming. It never fails on bus errors.
func (s *Sensor) StreamOff() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream.State() == stream.Standby {
		return nil
	}
	s.streamOff()
	return nil
}

func (s *Sensor) streamOff() {
	s.stream.Stop()
	s.power.Release()
	s.publish(events.StreamStateChangedEvent{
		Sensor:    s.entityName(),
		Streaming: false,
		Timestamp: now(),
	})
}

// Streaming reports whether the sensor is streaming.
func (s *Sensor) Streaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream.State() == stream.Streaming
}

// Powered reports whether the sensor is physically powered.
func (s *Sensor) Powered() bool {
	return s.power.Powered()
}

// Close stops streaming, drops every power reference and powers off.
func (s *Sensor) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	if s.stream.State() == stream.Streaming {
		s.streamOff()
	}
	s.hostPower = false
	s.power.Shutdown()
	s.closed = true
	s.logger.Info("Sensor closed")
	return nil
}

// Controls lists every control with its current range.
func (s *Sensor) Controls() []controls.Spec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrls.Specs()
}

// Control returns a control's description and current value.
func (s *Sensor) Control(id controls.ID) (controls.Spec, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	spec, err := s.ctrls.Spec(id)
	if err != nil {
		return controls.Spec{}, 0, wrap("get control", err)
	}
	v, _ := s.ctrls.Get(id)
	return spec, v, nil
}

// SetControl sets a control. Registers are written only while a power
// reference is held; otherwise the value is applied at the next stream
// start.
func (s *Sensor) SetControl(id controls.ID, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return err
	}
	return s.setControl(id, value)
}

func (s *Sensor) setControl(id controls.ID, value int64) error {
	// A sensor kept on only by the autosuspend delay is not in use.
	powered := s.power.GetIfInUse()
	if powered {
		defer s.power.Release()
	}
	if err := s.ctrls.Set(id, value, powered); err != nil {
		return wrap("set "+controls.Name(id), err)
	}

	s.publish(events.ControlChangedEvent{
		Control:   controls.Name(id),
		Value:     value,
		Applied:   powered,
		Timestamp: now(),
	})
	return nil
}

// ApplyControls sets several controls by name under one lock hold, in
// control creation order so blanking lands before exposure. It returns
// the names that failed.
func (s *Sensor) ApplyControls(values map[string]int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(); err != nil {
		return nil, err
	}

	var failed []string
	seen := 0
	for _, spec := range s.ctrls.Specs() {
		v, ok := values[spec.Name]
		if !ok {
			continue
		}
		seen++
		if err := s.setControl(spec.ID, v); err != nil {
			s.logger.Warn("Control not applied", "control", spec.Name, "value", v, "error", err)
			failed = append(failed, spec.Name)
		}
	}
	if seen < len(values) {
		for name := range values {
			if _, ok := controls.ByName(name); !ok {
				failed = append(failed, name)
			}
		}
	}
	return failed, nil
}

// DeviceState is a snapshot of the mutable device state.
type DeviceState struct {
	Format      Format `json:"format"`
	VTS         uint32 `json:"vts"`
	Streaming   bool   `json:"streaming"`
	Powered     bool   `json:"powered"`
	FlipBits    uint8  `json:"flip_bits"`
	TestPattern int64  `json:"test_pattern"`
}

// State returns a snapshot of the device state.
func (s *Sensor) State() DeviceState {
	s.mu.Lock()
	defer s.mu.Unlock()

	tp, _ := s.ctrls.Get(controls.TestPattern)
	return DeviceState{
		Format:      formatOf(s.mode),
		VTS:         s.ctrls.CurrentVTS(),
		Streaming:   s.stream.State() == stream.Streaming,
		Powered:     s.power.Powered(),
		FlipBits:    s.ctrls.FlipBits(),
		TestPattern: tp,
	}
}

// ModuleInfo identifies the physical camera module.
type ModuleInfo struct {
	Sensor string `json:"sensor"`
	Module string `json:"module"`
	Lens   string `json:"lens"`
}

// ModuleInfo returns the static module identity.
func (s *Sensor) ModuleInfo() ModuleInfo {
	return ModuleInfo{Sensor: Name, Module: s.cfg.ModuleName, Lens: s.cfg.LensName}
}

// EntityName returns the media entity name, e.g. "m00_b_imx290 1-001a".
func (s *Sensor) EntityName() string {
	return s.entityName()
}

func (s *Sensor) entityName() string {
	facing := "f"
	if s.cfg.ModuleFacing == "back" {
		facing = "b"
	}
	return fmt.Sprintf("m%02d_%s_%s %s", s.cfg.ModuleIndex, facing, Name, s.cfg.DeviceName)
}

// BusConfig describes the data link the sensor drives.
type BusConfig struct {
	Type            BusType `json:"type"`
	Lanes           int     `json:"lanes"`
	ContinuousClock bool    `json:"continuous_clock"`
	LinkFrequency   int64   `json:"link_frequency"`
}

// BusConfig returns the data link configuration.
func (s *Sensor) BusConfig() BusConfig {
	return BusConfig{
		Type:            s.cfg.BusType,
		Lanes:           s.cfg.Lanes,
		ContinuousClock: true,
		LinkFrequency:   controls.LinkFrequency,
	}
}

func (s *Sensor) usable() error {
	if s.closed {
		return NewError(KindState, "sensor is closed", nil)
	}
	if !s.attached {
		return NewError(KindState, "sensor is not attached", nil)
	}
	return nil
}

func (s *Sensor) powerChanged(st power.State) {
	if st == power.Off {
		// Registers lose their contents; the next start reprograms them.
		s.stream.Reset()
	}
	s.publish(events.PowerStateChangedEvent{
		Sensor:    s.entityName(),
		Powered:   st == power.On,
		Timestamp: now(),
	})
}

func (s *Sensor) publish(ev events.Event) {
	if s.events != nil {
		s.events.Publish(ev)
	}
}

func now() string {
	return time.Now().Format(time.RFC3339)
}
