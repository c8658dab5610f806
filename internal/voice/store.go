package voice

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// Store holds the active settings. They are read once at startup and only
// change through Reload.
type Store struct {
	path string

	mu       sync.RWMutex
	settings Settings
	loadedAt time.Time
}

// NewStore loads settings from path. An empty path yields a store holding
// Default() that cannot be reloaded.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}
	if path == "" {
		s.settings = Default()
		s.loadedAt = time.Now()
		return s, nil
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStaticStore returns a store pinned to settings.
func NewStaticStore(settings Settings) *Store {
	return &Store{settings: settings, loadedAt: time.Now()}
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.settings
	out.SSMLDecorations = append([]Decoration(nil), s.settings.SSMLDecorations...)
	return out
}

// Path returns the settings file path, if any.
func (s *Store) Path() string { return s.path }

// LoadedAt returns when the settings were last loaded.
func (s *Store) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}

// Reload re-reads the settings file. On failure the previous settings stay
// active.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}
	settings, err := Load(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.settings = settings
	s.loadedAt = time.Now()
	s.mu.Unlock()

	log.Debug("Loaded voice settings", "path", s.path, "voice", settings.VoiceName, "decorations", len(settings.SSMLDecorations))
	return nil
}

// Watch reloads the store whenever its file is written or replaced, until ctx
// is done. Editors often save by renaming a temp file over the original, so
// the parent directory is watched rather than the file itself.
func Watch(ctx context.Context, s *Store) error {
	if s.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("unable to create settings watcher: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("unable to watch %s: %w", dir, err)
	}
	log.Info("Watching voice settings", "path", s.path)

	go func() {
		defer watcher.Close() //nolint:errcheck

		target := filepath.Clean(s.path)
		var debounce <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				log.Debug("Voice settings changed", "file", event.Name, "event", event.Op)
				debounce = time.After(100 * time.Millisecond)
			case <-debounce:
				debounce = nil
				if err := s.Reload(); err != nil {
					log.Warn("Keeping previous voice settings", "err", err)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Debug("Settings watcher error", "dir", dir, "error", err)
			}
		}
	}()
	return nil
}
