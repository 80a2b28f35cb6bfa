package preset

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/starford/tiedye/internal/apperr"
)

// Library holds recipes keyed by name. It is safe for concurrent use.
type Library struct {
	mu      sync.RWMutex
	recipes map[string]Recipe
}

// NewLibrary returns an empty library.
func NewLibrary() *Library {
	return &Library{recipes: make(map[string]Recipe)}
}

// Load parses every recipe file in dir. Files that fail to parse are logged
// and skipped.
func (l *Library) Load(dir string, logger *slog.Logger) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("preset: read dir: %w", err)
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() || !IsRecipeFile(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if _, err := l.LoadFile(path); err != nil {
			logger.Warn("preset: skipped", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		n++
	}
	return n, nil
}

// LoadFile parses one recipe file and stores it, replacing any recipe of
// the same name or from the same file.
func (l *Library) LoadFile(path string) (Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Recipe{}, err
	}
	r, err := Parse(path, data)
	if err != nil {
		return Recipe{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.removeSourceLocked(path)
	l.recipes[r.Name] = r
	return r, nil
}

// Put stores r under its name.
func (l *Library) Put(r Recipe) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("preset: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recipes[r.Name] = r
	return nil
}

// RemoveSource drops every recipe read from path and returns their names.
func (l *Library) RemoveSource(path string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.removeSourceLocked(path)
}

func (l *Library) removeSourceLocked(path string) []string {
	var names []string
	for name, r := range l.recipes {
		if r.Source == path {
			delete(l.recipes, name)
			names = append(names, name)
		}
	}
	return names
}

// Get returns the recipe called name.
func (l *Library) Get(name string) (Recipe, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.recipes[name]
	if !ok {
		return Recipe{}, fmt.Errorf("preset %q: %w", name, apperr.ErrNotFound)
	}
	return r, nil
}

// List returns every recipe sorted by name.
func (l *Library) List() []Recipe {
	l.mu.RLock()
	out := make([]Recipe, 0, len(l.recipes))
	for _, r := range l.recipes {
		out = append(out, r)
	}
	l.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of recipes.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.recipes)
}
