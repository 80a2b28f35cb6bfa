package internal

import (
	"fmt"
	"log/slog"

	"github.com/starford/tiedye/internal/gallery"
	"github.com/starford/tiedye/internal/metrics"
	"github.com/starford/tiedye/internal/preset"
	"github.com/starford/tiedye/internal/service"
	"github.com/starford/tiedye/internal/studio"
)

// components are the long-lived parts shared by the HTTP and MCP modes.
type components struct {
	manager *studio.Manager
	presets *preset.Library
	recipes *gallery.Files
	gallery *gallery.Store
	service *service.Service
}

func (c *components) close() {
	c.manager.Close()
	if err := c.gallery.Close(); err != nil {
		slog.Error("close gallery", slog.String("error", err.Error()))
	}
}

// build opens the gallery, loads recipes and creates the session manager.
// events may be nil.
func build(cfg *Config, logger *slog.Logger, m *metrics.Metrics, events studio.EventSink) (*components, error) {
	scfg, err := cfg.Studio()
	if err != nil {
		return nil, fmt.Errorf("studio config: %w", err)
	}

	store, err := gallery.Open(cfg.Gallery.Path, cfg.Gallery.SQLite.Path, cfg.Gallery.ThumbnailSize)
	if err != nil {
		return nil, fmt.Errorf("init gallery: %w", err)
	}
	if err := store.Reconcile(logger); err != nil {
		logger.Warn("gallery reconcile failed", slog.String("error", err.Error()))
	}

	recipes, err := gallery.NewFiles(cfg.Presets.Path)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("init presets dir: %w", err)
	}
	lib := preset.NewLibrary()
	n, err := lib.Load(recipes.Root(), logger)
	if err != nil {
		logger.Warn("preset load failed", slog.String("error", err.Error()))
	}
	if m != nil {
		m.PresetsLoaded.Set(float64(lib.Len()))
	}
	logger.Info("presets loaded", slog.Int("count", n), slog.String("dir", recipes.Root()))

	opts := []studio.Option{
		studio.WithMaxSessions(cfg.Simulation.MaxSessions),
		studio.WithMetrics(m),
	}
	if events != nil {
		opts = append(opts, studio.WithEvents(events))
	}
	mgr := studio.NewManager(scfg, logger, opts...)

	var svcOpts []service.Option
	if cfg.Presets.Writable {
		svcOpts = append(svcOpts, service.WithRecipeDir(recipes))
	}

	return &components{
		manager: mgr,
		presets: lib,
		recipes: recipes,
		gallery: store,
		service: service.New(mgr, lib, store, m, svcOpts...),
	}, nil
}
