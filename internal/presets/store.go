// Package presets stores named sets of control values and applies them
// to the sensor.
package presets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// Preset is a named set of control values keyed by control name.
type Preset struct {
	Description string           `toml:"description,omitempty" json:"description,omitempty"`
	Controls    map[string]int64 `toml:"controls" json:"controls"`
}

// File is the on-disk presets document.
type File struct {
	Version int               `toml:"version" json:"version"`
	Active  string            `toml:"active,omitempty" json:"active,omitempty"`
	Presets map[string]Preset `toml:"presets" json:"presets"`
}

// Store persists presets.
type Store interface {
	Load() error
	Get(name string) (Preset, bool)
	Names() []string
	Put(name string, p Preset) error
	Delete(name string) error
	Active() string
	SetActive(name string) error
	Replace(f File)
	Path() string
}

// tomlStore implements Store using TOML file storage.
type tomlStore struct {
	mu   sync.RWMutex
	path string
	file File
}

// NewTOML creates a new TOML-based store.
func NewTOML(path string) Store {
	if path == "" {
		path = "presets.toml"
	}
	return &tomlStore{
		path: path,
		file: File{Version: 1, Presets: make(map[string]Preset)},
	}
}

// LoadFile reads and normalizes a presets document. A missing file is
// an empty document.
func LoadFile(path string) (File, error) {
	f := File{Version: 1, Presets: make(map[string]Preset)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return f, nil
	}
	if err != nil {
		return f, fmt.Errorf("failed to read presets: %w", err)
	}
	if err := toml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("failed to parse presets: %w", err)
	}

	if f.Presets == nil {
		f.Presets = make(map[string]Preset)
	}
	if f.Version == 0 {
		f.Version = 1
	}
	if _, ok := f.Presets[f.Active]; f.Active != "" && !ok {
		return f, fmt.Errorf("active preset %q is not defined", f.Active)
	}
	return f, nil
}

func (s *tomlStore) Path() string {
	return s.path
}

// Load replaces the in-memory document with the file contents.
func (s *tomlStore) Load() error {
	f, err := LoadFile(s.path)
	if err != nil {
		return err
	}
	s.Replace(f)
	return nil
}

// Replace swaps in an already loaded document.
func (s *tomlStore) Replace(f File) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.file = f
}

// save writes the document through a temporary file and rename so
// watchers never read a partial file. Callers hold s.mu.
func (s *tomlStore) save() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create presets directory: %w", err)
	}

	data, err := toml.Marshal(s.file)
	if err != nil {
		return fmt.Errorf("failed to marshal presets: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to write presets: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write presets: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write presets: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to write presets: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to write presets: %w", err)
	}
	return nil
}

func (s *tomlStore) Get(name string) (Preset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.file.Presets[name]
	return p, ok
}

// Names returns the preset names, sorted.
func (s *tomlStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.file.Presets))
	for n := range s.file.Presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s *tomlStore) Put(name string, p Preset) error {
	if name == "" {
		return fmt.Errorf("preset name is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.file.Presets[name] = p
	return s.save()
}

func (s *tomlStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.file.Presets[name]; !ok {
		return fmt.Errorf("preset %q not found", name)
	}
	delete(s.file.Presets, name)
	if s.file.Active == name {
		s.file.Active = ""
	}
	return s.save()
}

func (s *tomlStore) Active() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.file.Active
}

func (s *tomlStore) SetActive(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.file.Presets[name]; name != "" && !ok {
		return fmt.Errorf("preset %q not found", name)
	}
	s.file.Active = name
	return s.save()
}
