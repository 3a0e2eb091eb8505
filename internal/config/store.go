package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/muurk/serlink/internal/logging"
	"github.com/muurk/serlink/internal/settings"
)

// Store owns the current settings snapshot and its file on disk.
// All methods are safe for concurrent use.
type Store struct {
	path string

	// loaded is set when the settings came from an existing file.
	loaded bool

	mu          sync.RWMutex
	current     settings.Snapshot
	preferences *Preferences

	// fileMu serialises writers so that persist and publish happen in order.
	fileMu sync.Mutex

	subMu  sync.Mutex
	subs   map[int]chan settings.Snapshot
	nextID int
}

// Open loads the store at path. An empty path selects GetSettingsPath.
// A missing file yields default settings for DefaultMaxPorts ports; call
// Fit once the device's port count is known. The file is created on the
// first Update.
func Open(path string) (*Store, error) {
	if path == "" {
		p, err := GetSettingsPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get settings path: %w", err)
		}
		path = p
	}

	f, loaded, err := load(path)
	if err != nil {
		return nil, err
	}

	return &Store{
		path:        path,
		loaded:      loaded,
		current:     f.Settings,
		preferences: f.Preferences,
		subs:        make(map[int]chan settings.Snapshot),
	}, nil
}

func load(path string) (*File, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logging.Debug("Settings file not found, using defaults", zap.String("path", path))
		return NewFile(), false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read settings file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, false, fmt.Errorf("failed to parse settings file: %w", err)
	}
	if f.Version != currentVersion {
		return nil, false, fmt.Errorf("unsupported settings version: %d (expected %d)", f.Version, currentVersion)
	}
	if f.Preferences == nil {
		f.Preferences = DefaultPreferences()
	}

	return &f, true, nil
}

// Fit adapts the in-memory settings to a device with maxPorts ports. When
// no settings file existed the defaults are rebuilt with maxPorts ports.
// Otherwise ports with an index of maxPorts or above are dropped, and the
// dropped ports are returned. Nothing is written; the next update
// persists the result.
func (s *Store) Fit(maxPorts int) []settings.PortConfig {
	if maxPorts < 0 {
		maxPorts = 0
	}

	s.fileMu.Lock()
	defer s.fileMu.Unlock()
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		s.current = settings.Default(maxPorts)
		return nil
	}

	var kept, dropped []settings.PortConfig
	for _, p := range s.current.Ports {
		if p.Index < maxPorts && len(kept) < maxPorts {
			kept = append(kept, p)
		} else {
			dropped = append(dropped, p)
		}
	}
	if len(dropped) == 0 {
		return nil
	}

	labels := make([]string, len(dropped))
	for i, p := range dropped {
		labels[i] = p.Label()
	}
	logging.Warn("Settings have more ports than the device, ignoring extra ports",
		zap.String("path", s.path),
		zap.Int("max_ports", maxPorts),
		zap.Strings("dropped", labels),
	)

	s.current.Ports = kept
	return dropped
}

// Path returns the file the store persists to.
func (s *Store) Path() string {
	return s.path
}

// Snapshot returns a copy of the current settings.
func (s *Store) Snapshot() settings.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Preferences returns a copy of the service preferences.
func (s *Store) Preferences() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.preferences.clone()
}

// MaxPorts returns the configured port capacity, or fallback when the
// preference is unset.
func (s *Store) MaxPorts(fallback int) int {
	if n := s.Preferences().MaxPorts; n > 0 {
		return n
	}
	return fallback
}

// Update applies fn to a copy of the current settings, validates the
// result against maxPorts, writes it to disk and only then makes it
// current. Warnings from validation are returned alongside a nil error.
// When fn or validation fails the stored settings are left unchanged.
// source names the writer in the change log, e.g. "form" or "api".
func (s *Store) Update(source string, maxPorts int, fn func(*settings.Snapshot) error) (settings.Snapshot, []error, error) {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	old := s.Snapshot()
	next := old.Clone()
	if err := fn(&next); err != nil {
		return old, nil, err
	}

	warnings, errs := settings.SeparateWarningsAndErrors(settings.Validate(next, maxPorts))
	if len(errs) > 0 {
		return old, warnings, settings.Join(errs)
	}

	if next.Equal(old) {
		return old, warnings, nil
	}

	s.mu.RLock()
	prefs := s.preferences.clone()
	s.mu.RUnlock()

	if err := s.write(&File{Version: currentVersion, Settings: next, Preferences: prefs}); err != nil {
		return old, warnings, err
	}

	// Holding subMu across the swap keeps Subscribe's starting snapshot
	// and the published stream consistent.
	s.subMu.Lock()
	s.mu.Lock()
	s.current = next.Clone()
	s.loaded = true
	s.mu.Unlock()
	s.publishLocked(next)
	s.subMu.Unlock()

	logging.LogSettingsChange(source, settings.ChangedFields(old, next))

	return next, warnings, nil
}

// Replace stores s as the complete new settings. It is Update with a
// function that overwrites the snapshot.
func (s *Store) Replace(source string, maxPorts int, snap settings.Snapshot) (settings.Snapshot, []error, error) {
	return s.Update(source, maxPorts, func(cur *settings.Snapshot) error {
		*cur = snap.Clone()
		return nil
	})
}

// SetPreferences persists new preferences alongside the current settings.
func (s *Store) SetPreferences(p Preferences) error {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	if p.MaxPorts < 0 {
		return settings.NewValidationError("max_ports", "must not be negative")
	}

	f := &File{Version: currentVersion, Settings: s.Snapshot(), Preferences: &p}
	if err := s.write(f); err != nil {
		return err
	}

	s.mu.Lock()
	s.preferences = p.clone()
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// Save writes the current state to disk, creating the file if needed.
func (s *Store) Save() error {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	s.mu.RLock()
	f := &File{Version: currentVersion, Settings: s.current.Clone(), Preferences: s.preferences.clone()}
	s.mu.RUnlock()

	if err := s.write(f); err != nil {
		return err
	}

	s.mu.Lock()
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// write performs an atomic tmp+rename write of f.
func (s *Store) write(f *File) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	header := []byte("# serlink settings\n# Written by serlink; edits are picked up on restart.\n\n")
	data = append(header, data...)

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary settings file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save settings file: %w", err)
	}

	return nil
}

// Subscribe returns the current snapshot, a channel that receives every
// snapshot published after it and a function that cancels the
// subscription. Slow readers miss intermediate snapshots rather than
// blocking Update.
func (s *Store) Subscribe() (settings.Snapshot, <-chan settings.Snapshot, func()) {
	ch := make(chan settings.Snapshot, 1)

	s.subMu.Lock()
	current := s.Snapshot()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
	return current, ch, cancel
}

// publishLocked sends snap to every subscriber. s.subMu must be held.
func (s *Store) publishLocked(snap settings.Snapshot) {
	for _, ch := range s.subs {
		// Drop a stale pending value so the reader sees the latest.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap.Clone():
		default:
		}
	}
}
