package led

import (
	"log/slog"
	"sync"

	"github.com/smazurov/sensornode/internal/events"
)

// sensorState is what the LED reflects for one sensor.
type sensorState struct {
	powered   bool
	streaming bool
}

// Manager follows sensor power and stream events and shows the aggregate
// on one LED: solid while every known sensor streams, blinking while any
// is powered but idle, off otherwise.
type Manager struct {
	controller Controller
	ledType    string
	eventBus   *events.Bus
	logger     *slog.Logger

	mu      sync.Mutex
	sensors map[string]sensorState
	unsubs  []func()
}

// NewManager creates a manager driving ledType on controller.
func NewManager(controller Controller, ledType string, eventBus *events.Bus, logger *slog.Logger) *Manager {
	return &Manager{
		controller: controller,
		ledType:    ledType,
		eventBus:   eventBus,
		logger:     logger,
		sensors:    make(map[string]sensorState),
	}
}

// Start subscribes to sensor events.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.unsubs = append(m.unsubs,
		m.eventBus.Subscribe(func(e events.StreamStateChangedEvent) {
			m.update(e.Sensor, func(s *sensorState) {
				s.streaming = e.Streaming
				if e.Streaming {
					s.powered = true
				}
			})
		}),
		m.eventBus.Subscribe(func(e events.PowerStateChangedEvent) {
			m.update(e.Sensor, func(s *sensorState) {
				s.powered = e.Powered
				if !e.Powered {
					s.streaming = false
				}
			})
		}),
	)
	m.logger.Info("LED manager started", "led", m.ledType)
}

// Stop unsubscribes from events and switches the LED off.
func (m *Manager) Stop() {
	m.mu.Lock()
	unsubs := m.unsubs
	m.unsubs = nil
	m.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.controller.Set(m.ledType, false, ""); err != nil {
		m.logger.Warn("Failed to switch LED off", "error", err)
	}
	m.logger.Info("LED manager stopped")
}

// Controller returns the underlying controller for direct API access.
func (m *Manager) Controller() Controller {
	return m.controller
}

func (m *Manager) update(sensor string, apply func(*sensorState)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.sensors[sensor]
	apply(&st)
	m.sensors[sensor] = st

	m.logger.Debug("Sensor state changed", "sensor", sensor, "powered", st.powered, "streaming", st.streaming)
	m.apply()
}

func (m *Manager) apply() {
	enabled, pattern := m.pattern()
	if err := m.controller.Set(m.ledType, enabled, pattern); err != nil {
		m.logger.Warn("Failed to set LED", "led", m.ledType, "pattern", pattern, "error", err)
	}
}

// pattern derives the LED state from every known sensor.
func (m *Manager) pattern() (bool, string) {
	allStreaming := len(m.sensors) > 0
	anyPowered := false
	for _, s := range m.sensors {
		if !s.streaming {
			allStreaming = false
		}
		if s.powered {
			anyPowered = true
		}
	}

	switch {
	case allStreaming:
		return true, "solid"
	case anyPowered:
		return true, "blink"
	default:
		return false, "solid"
	}
}
