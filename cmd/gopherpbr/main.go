package main

import (
	"os"

	"GopherPBR/internal/logger"

	"github.com/urfave/cli"
	"go.uber.org/zap"
)

func main() {
	if err := run(newApp(), os.Args); err != nil {
		os.Exit(1)
	}
}

// run executes the command line and logs any failure before flushing the
// logger.
func run(app *cli.App, args []string) error {
	err := app.Run(args)
	if err != nil {
		logger.Log.Error("gopherpbr failed", zap.Error(err))
	}
	logger.Sync()
	return err
}

func newApp() *cli.App {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "gopherpbr"
	app.Usage = "view glTF and OBJ models with physically based shading and image based lighting"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "view",
			Usage: "open the interactive viewer",
			Description: `
Open a window showing the model lit by the sun and the environment.

Keys 1-9 toggle shadows, IBL, sun, AO, normal maps, environment, tonemapping,
gamma and frustum culling. M switches to the light depth view, L points the
sun along the camera, +/- change exposure and P/O pick the performance or
full quality preset. Drop a model or an .hdr file on the window to load it.`,
			ArgsUsage: "[model_file]",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "config, c",
					Value: "gopherpbr.json",
					Usage: "JSON viewer config; missing keys keep their defaults",
				},
				cli.StringFlag{
					Name:  "env, e",
					Usage: "environment: an .hdr panorama or sky:<seed>",
				},
				cli.IntFlag{
					Name:  "width",
					Usage: "window width",
				},
				cli.IntFlag{
					Name:  "height",
					Usage: "window height",
				},
				cli.StringFlag{
					Name:  "mode",
					Usage: "rendering mode: standard or depth-from-light",
				},
				cli.Float64Flag{
					Name:  "exposure",
					Value: -1,
					Usage: "camera exposure for tone-mapping",
				},
				cli.Float64Flag{
					Name:  "scale",
					Value: -1,
					Usage: "uniform model scale",
				},
				cli.BoolFlag{
					Name:  "performance",
					Usage: "start with the performance preset",
				},
				cli.BoolFlag{
					Name:  "recalculate-normals",
					Usage: "ignore normals stored in OBJ files",
				},
			},
			Action: View,
		},
		{
			Name:  "bake",
			Usage: "precompute environment lighting maps on the CPU",
			Description: `
Convert an equirectangular panorama into the environment cubemap and derive
the diffuse irradiance map, the prefiltered specular mip chain and the BRDF
lookup table. Cube faces are written as Radiance HDR files and the lookup
table as a 16-bit PNG.`,
			ArgsUsage: "panorama.hdr|sky:<seed>",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "out, o",
					Value: "baked",
					Usage: "output directory",
				},
				cli.IntFlag{
					Name:  "env-size",
					Usage: "environment cubemap face size",
				},
				cli.IntFlag{
					Name:  "irradiance-size",
					Usage: "irradiance cubemap face size",
				},
				cli.IntFlag{
					Name:  "prefilter-size",
					Usage: "prefiltered cubemap base face size",
				},
				cli.IntFlag{
					Name:  "samples",
					Usage: "importance samples per prefiltered and BRDF texel",
				},
				cli.IntFlag{
					Name:  "workers",
					Usage: "number of worker goroutines",
				},
			},
			Action: Bake,
		},
		{
			Name:      "info",
			Usage:     "print statistics about models and environments",
			ArgsUsage: "file1 file2 ...",
			Action:    Info,
		},
	}
	return app
}
