package main

import (
	"GopherPBR/internal/engine"
	"GopherPBR/internal/renderer"

	"github.com/urfave/cli"
)

// View opens the interactive viewer.
func View(ctx *cli.Context) error {
	setupLogging(ctx)

	cfg, err := engine.LoadConfig(ctx.String("config"))
	if err != nil {
		return err
	}
	if err := applyViewFlags(ctx, cfg); err != nil {
		return err
	}

	gopher := engine.NewGopher(cfg)
	gopher.Loader.RecalculateNormals = ctx.Bool("recalculate-normals")
	return gopher.Render()
}

// applyViewFlags overrides config values with the flags that were given.
func applyViewFlags(ctx *cli.Context, cfg *engine.Config) error {
	if ctx.NArg() > 0 {
		cfg.ModelPath = ctx.Args().First()
	}
	if env := ctx.String("env"); env != "" {
		cfg.EnvironmentPath = env
	}
	if w := ctx.Int("width"); w > 0 {
		cfg.WindowWidth = int32(w)
	}
	if h := ctx.Int("height"); h > 0 {
		cfg.WindowHeight = int32(h)
	}
	if ctx.Bool("performance") {
		mode := cfg.Rendering.Mode
		cfg.Rendering = *renderer.PerformanceRenderingOptions()
		cfg.Rendering.Mode = mode
	}
	if m := ctx.String("mode"); m != "" {
		mode, err := renderer.ParseRenderingMode(m)
		if err != nil {
			return err
		}
		cfg.Rendering.Mode = mode
	}
	if e := ctx.Float64("exposure"); e >= 0 {
		cfg.Exposure = float32(e)
	}
	if s := ctx.Float64("scale"); s > 0 {
		cfg.ModelScale = float32(s)
	}
	return cfg.Validate()
}
