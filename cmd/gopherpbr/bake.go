package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"GopherPBR/internal/ibl"
	"GopherPBR/internal/loader"
	"GopherPBR/internal/logger"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

// bakedFile is one map written by bakeEnvironment.
type bakedFile struct {
	Kind string
	Path string
	Size int
}

// Bake runs the CPU precomputation for one panorama and writes every map.
func Bake(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return errors.New("missing panorama argument")
	}
	cfg := ibl.DefaultBakerConfig()
	if v := ctx.Int("env-size"); v > 0 {
		cfg.EnvironmentSize = v
	}
	if v := ctx.Int("irradiance-size"); v > 0 {
		cfg.IrradianceSize = v
	}
	if v := ctx.Int("prefilter-size"); v > 0 {
		cfg.PrefilterSize = v
	}
	if v := ctx.Int("samples"); v > 0 {
		cfg.PrefilterSamples = uint32(v)
		cfg.BRDFSamples = uint32(v)
	}
	if v := ctx.Int("workers"); v > 0 {
		cfg.Workers = v
	}

	l := loader.New()
	defer l.Close()
	pano, err := l.LoadEnvironment(ctx.Args().First())
	if err != nil {
		return err
	}

	start := time.Now()
	files, err := bakeEnvironment(context.Background(), pano, cfg, ctx.String("out"))
	if err != nil {
		return err
	}
	fmt.Fprint(ctx.App.Writer, bakeSummary(files, time.Since(start)))
	return nil
}

// bakeEnvironment bakes pano and writes the results to outDir:
//
//	environment_<face>.hdr
//	irradiance_<face>.hdr
//	prefilter_<level>_<face>.hdr
//	brdf_lut.png
func bakeEnvironment(ctx context.Context, pano *ibl.Panorama, cfg ibl.BakerConfig, outDir string) ([]bakedFile, error) {
	baker, err := ibl.NewBaker(cfg)
	if err != nil {
		return nil, err
	}
	defer baker.Close()

	res, err := baker.Bake(ctx, pano)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}

	var files []bakedFile
	writeCube := func(kind, prefix string, cube *ibl.Cubemap) error {
		for face := 0; face < ibl.FaceCount; face++ {
			path := filepath.Join(outDir, fmt.Sprintf("%s_%s.hdr", prefix, ibl.FaceName(face)))
			if err := loader.WriteHDRFace(path, cube, face); err != nil {
				return err
			}
			files = append(files, bakedFile{Kind: kind, Path: path, Size: cube.Size})
		}
		return nil
	}

	if err := writeCube("environment", "environment", res.Environment[0]); err != nil {
		return nil, err
	}
	if err := writeCube("irradiance", "irradiance", res.Irradiance); err != nil {
		return nil, err
	}
	for level, cube := range res.Prefiltered {
		kind := fmt.Sprintf("prefilter (roughness %.2f)", ibl.PrefilterRoughness(level, len(res.Prefiltered)))
		if err := writeCube(kind, fmt.Sprintf("prefilter_%d", level), cube); err != nil {
			return nil, err
		}
	}

	lutPath := filepath.Join(outDir, "brdf_lut.png")
	if err := loader.WriteLUTPNG(lutPath, res.BRDF); err != nil {
		return nil, err
	}
	files = append(files, bakedFile{Kind: "brdf lut", Path: lutPath, Size: res.BRDF.Size})

	logger.Log.Info("Environment maps written", zap.String("dir", outDir), zap.Int("files", len(files)))
	return files, nil
}

// bakeSummary renders one table row per map, collapsing the six faces of a
// cubemap into a single row.
func bakeSummary(files []bakedFile, took time.Duration) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Map", "Size", "Files"})

	for i := 0; i < len(files); {
		j := i + 1
		for j < len(files) && files[j].Kind == files[i].Kind {
			j++
		}
		table.Append([]string{
			files[i].Kind,
			fmt.Sprintf("%dx%d", files[i].Size, files[i].Size),
			fmt.Sprintf("%d", j-i),
		})
		i = j
	}
	table.SetFooter([]string{"", "TOTAL", fmt.Sprintf("%d in %s", len(files), took.Round(time.Millisecond))})

	table.Render()
	return buf.String()
}
