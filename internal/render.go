package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/starford/tiedye/internal/preset"
	"github.com/starford/tiedye/internal/studio"
)

// RenderResult describes an offline recipe render.
type RenderResult struct {
	Recipe   string
	Recorded int
	Marks    int
	Unfolded bool
}

// Render replays the recipe at path on a throwaway session and writes the
// composite PNG to w. forceUnfold unfolds even when the recipe does not ask
// for it.
func Render(ctx context.Context, cfg *Config, path string, forceUnfold bool, w io.Writer, logger *slog.Logger) (RenderResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RenderResult{}, fmt.Errorf("read recipe: %w", err)
	}
	r, err := preset.Parse(path, data)
	if err != nil {
		return RenderResult{}, err
	}
	if forceUnfold {
		r.Unfold = true
	}

	scfg, err := cfg.Studio()
	if err != nil {
		return RenderResult{}, fmt.Errorf("studio config: %w", err)
	}
	scfg.UnfoldDelay = 0

	sess := studio.NewSession("render", scfg, logger, nil, nil)
	defer sess.Close()

	n, pat, err := sess.ApplyRecipe(ctx, r)
	if err != nil {
		return RenderResult{}, err
	}
	if err := sess.EncodeComposite(w); err != nil {
		return RenderResult{}, fmt.Errorf("encode: %w", err)
	}

	res := RenderResult{Recipe: r.Name, Recorded: n}
	if pat != nil {
		res.Marks = len(pat.Marks)
		res.Unfolded = true
	}
	logger.Info("recipe rendered",
		slog.String("recipe", r.Name),
		slog.Int("dye_points", n),
		slog.Int("marks", res.Marks))
	return res, nil
}
