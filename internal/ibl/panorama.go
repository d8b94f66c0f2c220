// Package ibl holds the image-based lighting math shared by the GPU
// precomputation pipeline and the CPU reference baker.
package ibl

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Panorama is an equirectangular HDR image. Pix holds RGBA float32 texels,
// row-major, with row 0 at the top of the image (the +Y pole).
type Panorama struct {
	Width  int
	Height int
	Pix    []float32
}

// NewPanorama allocates a black panorama of the given size.
func NewPanorama(width, height int) (*Panorama, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid panorama size %dx%d", width, height)
	}
	return &Panorama{Width: width, Height: height, Pix: make([]float32, width*height*4)}, nil
}

// NewConstantPanorama returns a panorama whose every texel is c.
func NewConstantPanorama(width, height int, c mgl32.Vec3) (*Panorama, error) {
	p, err := NewPanorama(width, height)
	if err != nil {
		return nil, err
	}
	for i := 0; i < width*height; i++ {
		p.Pix[i*4+0] = c[0]
		p.Pix[i*4+1] = c[1]
		p.Pix[i*4+2] = c[2]
		p.Pix[i*4+3] = 1
	}
	return p, nil
}

// Validate checks that the pixel buffer matches the declared dimensions.
func (p *Panorama) Validate() error {
	if p == nil {
		return fmt.Errorf("nil panorama")
	}
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("invalid panorama size %dx%d", p.Width, p.Height)
	}
	if len(p.Pix) != p.Width*p.Height*4 {
		return fmt.Errorf("panorama buffer has %d floats, want %d", len(p.Pix), p.Width*p.Height*4)
	}
	return nil
}

func (p *Panorama) At(x, y int) mgl32.Vec3 {
	i := (y*p.Width + x) * 4
	return mgl32.Vec3{p.Pix[i], p.Pix[i+1], p.Pix[i+2]}
}

func (p *Panorama) Set(x, y int, c mgl32.Vec3) {
	i := (y*p.Width + x) * 4
	p.Pix[i], p.Pix[i+1], p.Pix[i+2], p.Pix[i+3] = c[0], c[1], c[2], 1
}

// Sample bilinearly filters the panorama at texture coordinates (u, v) where
// v = 0 is the bottom row, matching how the GPU sees the flipped upload.
// U wraps around the seam, V clamps at the poles.
func (p *Panorama) Sample(u, v float32) mgl32.Vec3 {
	fx := u*float32(p.Width) - 0.5
	fy := (1-v)*float32(p.Height) - 0.5

	x0 := int(math.Floor(float64(fx)))
	y0 := int(math.Floor(float64(fy)))
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	wrap := func(x int) int {
		x %= p.Width
		if x < 0 {
			x += p.Width
		}
		return x
	}
	clampY := func(y int) int {
		if y < 0 {
			return 0
		}
		if y >= p.Height {
			return p.Height - 1
		}
		return y
	}

	c00 := p.At(wrap(x0), clampY(y0))
	c10 := p.At(wrap(x0+1), clampY(y0))
	c01 := p.At(wrap(x0), clampY(y0+1))
	c11 := p.At(wrap(x0+1), clampY(y0+1))

	top := c00.Mul(1 - tx).Add(c10.Mul(tx))
	bottom := c01.Mul(1 - tx).Add(c11.Mul(tx))
	return top.Mul(1 - ty).Add(bottom.Mul(ty))
}

// SampleDirection looks up the radiance arriving from direction dir.
func (p *Panorama) SampleDirection(dir mgl32.Vec3) mgl32.Vec3 {
	uv := DirectionToEquirectUV(dir)
	return p.Sample(uv[0], uv[1])
}
