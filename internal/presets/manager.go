package presets

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/smazurov/sensornode/internal/config"
	"github.com/smazurov/sensornode/internal/events"
	"github.com/smazurov/sensornode/internal/logging"
)

// ErrNotFound is returned for an unknown preset name.
var ErrNotFound = errors.New("preset not found")

// Applier sets control values by name. It returns the names that could
// not be applied; err is set only when nothing could be attempted.
type Applier interface {
	ApplyControls(values map[string]int64) (failed []string, err error)
}

// Publisher receives preset events.
type Publisher interface {
	Publish(ev events.Event)
}

// Manager applies presets and keeps the active one in effect when the
// presets file changes on disk.
type Manager struct {
	store   Store
	applier Applier
	bus     Publisher
	watcher *config.Watcher[File]
	logger  *slog.Logger
}

// NewManager creates a preset manager. bus may be nil.
func NewManager(store Store, applier Applier, bus Publisher) *Manager {
	return &Manager{
		store:   store,
		applier: applier,
		bus:     bus,
		logger:  logging.GetLogger("presets"),
	}
}

// Store returns the underlying store.
func (m *Manager) Store() Store {
	return m.store
}

// Apply applies the named preset and marks it active.
func (m *Manager) Apply(name string) ([]string, error) {
	p, ok := m.store.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	failed, err := m.apply(name, p)
	if err != nil {
		return failed, err
	}
	if err := m.store.SetActive(name); err != nil {
		return failed, err
	}
	return failed, nil
}

// ApplyActive re-applies the active preset, if any.
func (m *Manager) ApplyActive() error {
	name := m.store.Active()
	if name == "" {
		return nil
	}
	p, ok := m.store.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	_, err := m.apply(name, p)
	return err
}

func (m *Manager) apply(name string, p Preset) ([]string, error) {
	failed, err := m.applier.ApplyControls(p.Controls)
	if err != nil {
		m.logger.Warn("Preset not applied", "preset", name, "error", err)
		return failed, err
	}
	if len(failed) > 0 {
		m.logger.Warn("Preset partially applied", "preset", name, "failed", failed)
	} else {
		m.logger.Info("Preset applied", "preset", name, "controls", len(p.Controls))
	}

	if m.bus != nil {
		m.bus.Publish(events.PresetAppliedEvent{
			Preset:    name,
			Failed:    failed,
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}
	return failed, nil
}

// Watch reloads the presets file on change and re-applies the active
// preset.
func (m *Manager) Watch(debounce time.Duration) error {
	m.watcher = config.NewWatcher(m.store.Path(), LoadFile, m.logger, config.WithDebounce[File](debounce))
	m.watcher.OnReload(m.reload)
	return m.watcher.Start()
}

// Stop stops watching the presets file.
func (m *Manager) Stop() error {
	if m.watcher == nil {
		return nil
	}
	return m.watcher.Stop()
}

func (m *Manager) reload(f File) {
	m.store.Replace(f)
	if err := m.ApplyActive(); err != nil {
		m.logger.Warn("Failed to re-apply active preset", "preset", f.Active, "error", err)
	}
}
