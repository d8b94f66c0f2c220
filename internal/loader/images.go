package loader

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"GopherPBR/internal/logger"
	"GopherPBR/internal/renderer"

	"go.uber.org/zap"
)

// imageJob is one texture to decode. Read returns the encoded bytes.
type imageJob struct {
	key  string
	read func() ([]byte, error)
}

func fileJob(path string) imageJob {
	return imageJob{key: path, read: func() ([]byte, error) { return os.ReadFile(path) }}
}

// decodeImages decodes every job on the loader pool. A texture that cannot
// be read or decoded is logged and left out of the result; the material
// slot that wanted it falls back to its constant factor.
func (l *Loader) decodeImages(jobs []imageJob) map[string]*renderer.TextureRef {
	refs := make([]*renderer.TextureRef, len(jobs))
	group := l.pool.NewGroup()
	for i, job := range jobs {
		i, job := i, job
		group.Submit(func() {
			data, err := job.read()
			if err == nil {
				var img *image.RGBA
				if img, err = decodeRGBA(data); err == nil {
					refs[i] = &renderer.TextureRef{Key: job.key, Image: img}
					return
				}
			}
			logger.Log.Warn("Texture skipped", zap.String("texture", job.key), zap.Error(err))
		})
	}
	group.Wait()

	out := make(map[string]*renderer.TextureRef, len(jobs))
	for _, ref := range refs {
		if ref != nil {
			out[ref.Key] = ref
		}
	}
	return out
}

// decodeRGBA decodes PNG or JPEG data into tightly packed RGBA8, top row
// first.
func decodeRGBA(data []byte) (*image.RGBA, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) && rgba.Stride == 4*rgba.Rect.Dx() {
		return rgba, nil
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba, nil
}
