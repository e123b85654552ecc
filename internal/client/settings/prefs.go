package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dmitrijs2005/fieldcrm/internal/client/models"
	"github.com/dmitrijs2005/fieldcrm/internal/filex"
	toml "github.com/pelletier/go-toml/v2"
)

// Prefs is the fast settings layer: a value in memory mirrored to a TOML
// file. With an empty path it is memory only.
type Prefs struct {
	path string

	mu  sync.RWMutex
	cur models.AppSettings
}

// LoadPrefs reads path, falling back to defaults when the file is missing
// or unreadable.
func LoadPrefs(path string) *Prefs {
	p := &Prefs{cur: models.DefaultSettings()}
	if path == "" {
		return p
	}
	resolved, err := filex.ExpandPath(path)
	if err != nil {
		return p
	}
	p.path = resolved

	raw, err := os.ReadFile(resolved)
	if err != nil {
		return p
	}
	var s models.AppSettings
	if err := toml.Unmarshal(raw, &s); err != nil {
		return p
	}
	p.cur = s.Normalize()
	return p
}

func (p *Prefs) Get() models.AppSettings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cur
}

// Set updates memory first and then the file. The in-memory value stays
// even if the file write fails.
func (p *Prefs) Set(s models.AppSettings) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cur = s
	if p.path == "" {
		return nil
	}
	return p.write(s)
}

// Reset drops the fast layer back to defaults, file included.
func (p *Prefs) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cur = models.DefaultSettings()
	if p.path == "" {
		return nil
	}
	if err := os.Remove(p.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove prefs: %w", err)
	}
	return nil
}

func (p *Prefs) write(s models.AppSettings) error {
	if _, err := filex.EnsureParentDir(p.path); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	raw, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p.path), ".prefs-*.toml")
	if err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp.Name(), p.path); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}
