package ibl

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Cubemap is one mip level of a cube texture. Each face holds Size*Size RGB
// float32 texels, row-major, addressed as in FaceDirection.
type Cubemap struct {
	Size  int
	Faces [FaceCount][]float32
}

// NewCubemap allocates a black cubemap.
func NewCubemap(size int) (*Cubemap, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid cubemap size %d", size)
	}
	c := &Cubemap{Size: size}
	for f := range c.Faces {
		c.Faces[f] = make([]float32, size*size*3)
	}
	return c, nil
}

func (c *Cubemap) At(face, x, y int) mgl32.Vec3 {
	i := (y*c.Size + x) * 3
	p := c.Faces[face]
	return mgl32.Vec3{p[i], p[i+1], p[i+2]}
}

func (c *Cubemap) Set(face, x, y int, v mgl32.Vec3) {
	i := (y*c.Size + x) * 3
	p := c.Faces[face]
	p[i], p[i+1], p[i+2] = v[0], v[1], v[2]
}

// SampleDirection bilinearly filters the face dir points at, clamping to the
// face edge.
func (c *Cubemap) SampleDirection(dir mgl32.Vec3) mgl32.Vec3 {
	face, sc, tc := DirectionToFace(dir)
	fx := (sc+1)/2*float32(c.Size) - 0.5
	fy := (tc+1)/2*float32(c.Size) - 0.5

	x0 := int(math.Floor(float64(fx)))
	y0 := int(math.Floor(float64(fy)))
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	clamp := func(i int) int {
		if i < 0 {
			return 0
		}
		if i >= c.Size {
			return c.Size - 1
		}
		return i
	}

	c00 := c.At(face, clamp(x0), clamp(y0))
	c10 := c.At(face, clamp(x0+1), clamp(y0))
	c01 := c.At(face, clamp(x0), clamp(y0+1))
	c11 := c.At(face, clamp(x0+1), clamp(y0+1))

	top := c00.Mul(1 - tx).Add(c10.Mul(tx))
	bottom := c01.Mul(1 - tx).Add(c11.Mul(tx))
	return top.Mul(1 - ty).Add(bottom.Mul(ty))
}

// Downsample returns the next mip level using a 2x2 box filter.
func (c *Cubemap) Downsample() *Cubemap {
	size := c.Size / 2
	if size < 1 {
		size = 1
	}
	out, _ := NewCubemap(size)
	for f := 0; f < FaceCount; f++ {
		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				sx, sy := x*2, y*2
				sx1, sy1 := minInt(sx+1, c.Size-1), minInt(sy+1, c.Size-1)
				sum := c.At(f, sx, sy).Add(c.At(f, sx1, sy)).Add(c.At(f, sx, sy1)).Add(c.At(f, sx1, sy1))
				out.Set(f, x, y, sum.Mul(0.25))
			}
		}
	}
	return out
}

// MipChain is a full mip pyramid, level 0 first.
type MipChain []*Cubemap

// NewMipChain builds every level down to 1x1 from base.
func NewMipChain(base *Cubemap) MipChain {
	chain := MipChain{base}
	for cur := base; cur.Size > 1; {
		cur = cur.Downsample()
		chain = append(chain, cur)
	}
	return chain
}

// SampleLod trilinearly filters the chain at a fractional level.
func (m MipChain) SampleLod(dir mgl32.Vec3, lod float32) mgl32.Vec3 {
	if len(m) == 0 {
		return mgl32.Vec3{}
	}
	lod = mgl32.Clamp(lod, 0, float32(len(m)-1))
	l0 := int(lod)
	if l0 >= len(m)-1 {
		return m[len(m)-1].SampleDirection(dir)
	}
	t := lod - float32(l0)
	a := m[l0].SampleDirection(dir)
	if t == 0 {
		return a
	}
	b := m[l0+1].SampleDirection(dir)
	return a.Mul(1 - t).Add(b.Mul(t))
}

// LUT is a two channel lookup table; Pix holds Size*Size (scale, bias) pairs.
// Columns index n.v and rows index roughness, row 0 being roughness ~0.
type LUT struct {
	Size int
	Pix  []float32
}

func (l *LUT) At(x, y int) mgl32.Vec2 {
	i := (y*l.Size + x) * 2
	return mgl32.Vec2{l.Pix[i], l.Pix[i+1]}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
