package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/tiedye/internal"
	pkgconfig "github.com/starford/tiedye/pkg/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	read, err := pkgconfig.LoadOptional(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !read {
		slog.Warn("config file not found, using defaults", slog.String("path", configPath))
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("mcp server error: %w", err)
	}
	return nil
}

func render(ctx context.Context, cmd *cli.Command) error {
	recipe := cmd.Args().First()
	if recipe == "" {
		return fmt.Errorf("recipe path is required")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.IsSet("seed") {
		cfg.Simulation.Seed = uint64(cmd.Int("seed"))
	}

	out := cmd.String("out")
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	defer f.Close()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel}))
	res, err := internal.Render(ctx, cfg, recipe, cmd.Bool("unfold"), f, logger)
	if err != nil {
		_ = os.Remove(out)
		return fmt.Errorf("render %s: %w", recipe, err)
	}
	if err := f.Sync(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "%s: %d dye points, %d marks -> %s\n", res.Recipe, res.Recorded, res.Marks, out)
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "tiedye",
		Usage:   "Fold, dye and unfold virtual garments into tie-dye patterns",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the studio tools over MCP stdio",
				Action: serveMCP,
			},
			{
				Name:      "render",
				Usage:     "Render a recipe file to PNG without starting a server",
				ArgsUsage: "<recipe.yaml>",
				Action:    render,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Output PNG path",
						Value:   "pattern.png",
					},
					&cli.BoolFlag{
						Name:  "unfold",
						Usage: "Unfold even when the recipe does not ask for it",
					},
					&cli.IntFlag{
						Name:  "seed",
						Usage: "Random seed for crumple anchors and bleed",
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
