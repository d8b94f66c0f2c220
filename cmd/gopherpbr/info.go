package main

import (
	"bytes"
	"errors"
	"fmt"

	"GopherPBR/internal/ibl"
	"GopherPBR/internal/loader"
	"GopherPBR/internal/renderer"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Info prints statistics for every model or environment given.
func Info(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() == 0 {
		return errors.New("missing file argument")
	}
	l := loader.New()
	defer l.Close()

	for _, path := range ctx.Args() {
		if loader.IsEnvironmentPath(path) {
			pano, err := l.LoadEnvironment(path)
			if err != nil {
				return err
			}
			fmt.Fprint(ctx.App.Writer, environmentTable(path, pano))
			continue
		}
		src, err := l.LoadModel(path)
		if err != nil {
			return err
		}
		fmt.Fprint(ctx.App.Writer, modelTable(path, src))
	}
	return nil
}

func modelTable(path string, src *renderer.SceneSource) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\n", path)

	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Mesh", "Vertices", "Triangles", "Normals", "Tangents", "UVs", "Textures"})
	for _, m := range src.Meshes {
		mesh := renderer.SceneSource{Meshes: []renderer.MeshSource{m}}
		table.Append([]string{
			m.Name,
			fmt.Sprintf("%d", mesh.VertexCount()),
			fmt.Sprintf("%d", mesh.TriangleCount()),
			yesNo(m.Normals != nil),
			yesNo(m.Tangents != nil),
			yesNo(m.UVs != nil),
			textureSlots(m.Material),
		})
	}
	footer := []string{"TOTAL", fmt.Sprintf("%d", src.VertexCount()), fmt.Sprintf("%d", src.TriangleCount()), "", "", "", ""}
	if lo, hi, ok := src.Bounds(); ok {
		size := hi.Sub(lo)
		footer[6] = fmt.Sprintf("extent %.2f x %.2f x %.2f", size[0], size[1], size[2])
	}
	table.SetFooter(footer)
	table.Render()
	return buf.String()
}

func environmentTable(path string, pano *ibl.Panorama) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\n", path)

	var sum, peak [3]float32
	for i := 0; i < len(pano.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			v := pano.Pix[i+c]
			sum[c] += v
			if v > peak[c] {
				peak[c] = v
			}
		}
	}
	n := float32(pano.Width * pano.Height)

	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Property", "Value"})
	table.Append([]string{"Size", fmt.Sprintf("%dx%d", pano.Width, pano.Height)})
	table.Append([]string{"Mean radiance", fmt.Sprintf("%.3f %.3f %.3f", sum[0]/n, sum[1]/n, sum[2]/n)})
	table.Append([]string{"Peak radiance", fmt.Sprintf("%.3f %.3f %.3f", peak[0], peak[1], peak[2])})
	table.Render()
	return buf.String()
}

// textureSlots lists the material slots that carry a texture.
func textureSlots(m renderer.MaterialSource) string {
	var buf bytes.Buffer
	for _, slot := range []struct {
		name string
		ref  *renderer.TextureRef
	}{
		{"albedo", m.Albedo},
		{"normal", m.Normal},
		{"metalness", m.Metalness},
		{"roughness", m.Roughness},
		{"ao", m.AO},
	} {
		if slot.ref == nil {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(slot.name)
	}
	if buf.Len() == 0 {
		return "-"
	}
	return buf.String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
