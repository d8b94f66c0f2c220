package loader

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"GopherPBR/internal/ibl"
	"GopherPBR/internal/logger"
	"GopherPBR/internal/renderer"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"
)

// SkyScheme prefixes environment paths that name a procedural sky instead
// of a file, e.g. "sky:42" for the sky generated from seed 42.
const SkyScheme = "sky:"

var ErrUnsupportedFormat = errors.New("unsupported file format")

// Loader parses models and environments from disk. It is safe for
// concurrent use; texture decoding is spread over its own worker pool.
type Loader struct {
	// RecalculateNormals drops normals stored in OBJ files so the renderer
	// derives them from the geometry. Some exporters write broken ones.
	RecalculateNormals bool
	// SkyWidth and SkyHeight size panoramas produced for sky: paths.
	SkyWidth, SkyHeight int

	pool pond.Pool
}

var _ renderer.SceneLoader = (*Loader)(nil)

func New() *Loader {
	return &Loader{
		SkyWidth:  DefaultSkyWidth,
		SkyHeight: DefaultSkyHeight,
		pool:      pond.NewPool(runtime.NumCPU()),
	}
}

// Close waits for in-flight decodes and stops the worker pool.
func (l *Loader) Close() {
	l.pool.StopAndWait()
}

// LoadModel picks a parser by file extension.
func (l *Loader) LoadModel(path string) (*renderer.SceneSource, error) {
	var (
		src *renderer.SceneSource
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".gltf", ".glb":
		src, err = l.LoadGLTF(path)
	case ".obj":
		src, err = l.LoadOBJ(path)
	default:
		return nil, fmt.Errorf("model %q: %w", path, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, err
	}
	logger.Log.Info("Model parsed",
		zap.String("path", path),
		zap.Int("meshes", len(src.Meshes)),
		zap.Int("vertices", src.VertexCount()),
		zap.Int("triangles", src.TriangleCount()))
	return src, nil
}

// LoadEnvironment decodes a Radiance HDR panorama, or generates a sky for
// paths of the form sky:<seed>.
func (l *Loader) LoadEnvironment(path string) (*ibl.Panorama, error) {
	if seed, ok, err := ParseSkyPath(path); ok {
		if err != nil {
			return nil, err
		}
		return ProceduralSky(l.SkyWidth, l.SkyHeight, seed)
	}
	if IsEnvironmentPath(path) {
		return LoadHDR(path)
	}
	return nil, fmt.Errorf("environment %q: %w", path, ErrUnsupportedFormat)
}

// IsEnvironmentPath reports whether LoadEnvironment rather than LoadModel
// handles path.
func IsEnvironmentPath(path string) bool {
	if strings.HasPrefix(path, SkyScheme) {
		return true
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hdr", ".pic", ".rgbe":
		return true
	}
	return false
}

// ParseSkyPath reports whether path uses the sky scheme and, if so, the
// seed it names. An empty seed means seed 0.
func ParseSkyPath(path string) (seed int64, ok bool, err error) {
	if !strings.HasPrefix(path, SkyScheme) {
		return 0, false, nil
	}
	s := strings.TrimPrefix(path, SkyScheme)
	if s == "" {
		return 0, true, nil
	}
	seed, err = strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, true, fmt.Errorf("sky seed %q: %w", s, err)
	}
	return seed, true, nil
}
