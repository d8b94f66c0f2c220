package loader

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"

	"GopherPBR/internal/ibl"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/mdouchement/hdr/hdrcolor"
)

// LoadHDR decodes a Radiance RGBE file into a panorama, top row first.
func LoadHDR(path string) (*ibl.Panorama, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pano, err := DecodeHDR(f)
	if err != nil {
		return nil, fmt.Errorf("hdr %q: %w", path, err)
	}
	return pano, nil
}

func DecodeHDR(r io.Reader) (*ibl.Panorama, error) {
	img, err := rgbe.Decode(r)
	if err != nil {
		return nil, err
	}
	m, ok := img.(hdr.Image)
	if !ok {
		return nil, fmt.Errorf("decoded %T is not a high dynamic range image", img)
	}

	b := m.Bounds()
	pano, err := ibl.NewPanorama(b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			cr, cg, cb, _ := m.HDRAt(b.Min.X+x, b.Min.Y+y).HDRRGBA()
			pano.Set(x, y, [3]float32{float32(cr), float32(cg), float32(cb)})
		}
	}
	return pano, nil
}

// EncodeHDR writes an RGB float image as Radiance RGBE.
func EncodeHDR(w io.Writer, width, height int, at func(x, y int) [3]float32) error {
	m := hdr.NewRGB(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := at(x, y)
			m.Set(x, y, hdrcolor.RGB{R: float64(c[0]), G: float64(c[1]), B: float64(c[2])})
		}
	}
	return rgbe.Encode(w, m)
}

// WriteHDRFace stores one face of a baked cubemap level as a .hdr file.
func WriteHDRFace(path string, cube *ibl.Cubemap, face int) error {
	if face < 0 || face >= ibl.FaceCount {
		return fmt.Errorf("face %d out of range", face)
	}
	return writeFile(path, func(w io.Writer) error {
		return EncodeHDR(w, cube.Size, cube.Size, func(x, y int) [3]float32 {
			return cube.At(face, x, y)
		})
	})
}

// WritePanoramaHDR stores a panorama, such as a generated sky, as .hdr.
func WritePanoramaHDR(path string, pano *ibl.Panorama) error {
	if err := pano.Validate(); err != nil {
		return err
	}
	return writeFile(path, func(w io.Writer) error {
		return EncodeHDR(w, pano.Width, pano.Height, func(x, y int) [3]float32 {
			return pano.At(x, y)
		})
	})
}

// WriteLUTPNG stores the BRDF table as a 16-bit PNG with scale in red and
// bias in green. Row 0 (roughness ~0) is written as the bottom row so the
// image reads like the usual plot.
func WriteLUTPNG(path string, lut *ibl.LUT) error {
	img := image.NewRGBA64(image.Rect(0, 0, lut.Size, lut.Size))
	for y := 0; y < lut.Size; y++ {
		for x := 0; x < lut.Size; x++ {
			v := lut.At(x, y)
			img.SetRGBA64(x, lut.Size-1-y, color.RGBA64{
				R: unitToUint16(v[0]),
				G: unitToUint16(v[1]),
				A: 0xffff,
			})
		}
	}
	return writeFile(path, func(w io.Writer) error { return png.Encode(w, img) })
}

func unitToUint16(v float32) uint16 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 0xffff
	}
	return uint16(v*0xffff + 0.5)
}

func writeFile(path string, encode func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encode(f); err != nil {
		f.Close()
		return fmt.Errorf("encode %q: %w", path, err)
	}
	return f.Close()
}
