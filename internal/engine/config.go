package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"GopherPBR/internal/ibl"
	"GopherPBR/internal/logger"
	"GopherPBR/internal/renderer"

	"go.uber.org/zap"
)

// Config is everything the viewer needs to open a window and set up the
// first frame. It is stored as JSON.
type Config struct {
	WindowWidth  int32  `json:"window_width"`
	WindowHeight int32  `json:"window_height"`
	WindowTitle  string `json:"window_title"`
	VSync        bool   `json:"vsync"`

	ModelPath       string  `json:"model_path"`
	EnvironmentPath string  `json:"environment_path"`
	ModelScale      float32 `json:"model_scale"`

	Rendering       renderer.RenderingOptions `json:"rendering"`
	Exposure        float32                   `json:"exposure"`
	SunIntensity    float32                   `json:"sun_intensity"`
	BackgroundColor [3]float32                `json:"background_color"`
	ShadowMapSize   int32                     `json:"shadow_map_size"`

	RotateSensitivity float32 `json:"rotate_sensitivity"`
	ZoomSensitivity   float32 `json:"zoom_sensitivity"`

	// Environment map resolutions. Zero keeps the built-in size.
	EnvironmentSize int `json:"environment_size"`
	IrradianceSize  int `json:"irradiance_size"`
	PrefilterSize   int `json:"prefilter_size"`
}

// DefaultConfig opens a 1024x768 window on the procedural sky with every
// rendering feature on.
func DefaultConfig() *Config {
	bg := renderer.DefaultBackgroundColor
	return &Config{
		WindowWidth:       1024,
		WindowHeight:      768,
		WindowTitle:       "GopherPBR",
		VSync:             true,
		EnvironmentPath:   "sky:0",
		ModelScale:        1,
		Rendering:         *renderer.DefaultRenderingOptions(),
		Exposure:          renderer.DefaultExposure,
		SunIntensity:      renderer.CreateSunlight().Intensity(),
		BackgroundColor:   [3]float32{bg[0], bg[1], bg[2]},
		ShadowMapSize:     renderer.DefaultShadowMapSize,
		RotateSensitivity: renderer.DefaultRotateSensitivity,
		ZoomSensitivity:   renderer.DefaultZoomSensitivity,
	}
}

// LoadConfig reads a JSON config on top of the defaults, so a file only
// needs the keys it changes. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Log.Info("No config file found, using defaults", zap.String("path", path))
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	logger.Log.Info("Config loaded", zap.String("path", path))
	return cfg, nil
}

// Save writes the config as indented JSON.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) Validate() error {
	switch {
	case c.WindowWidth <= 0 || c.WindowHeight <= 0:
		return fmt.Errorf("window %dx%d: %w", c.WindowWidth, c.WindowHeight, renderer.ErrInvalidDimensions)
	case c.ShadowMapSize <= 0:
		return fmt.Errorf("shadow map size %d: %w", c.ShadowMapSize, renderer.ErrInvalidDimensions)
	case c.ModelScale <= 0:
		return fmt.Errorf("model scale must be positive, got %v", c.ModelScale)
	case c.Exposure < 0:
		return fmt.Errorf("exposure must not be negative, got %v", c.Exposure)
	case c.SunIntensity < 0:
		return fmt.Errorf("sun intensity must not be negative, got %v", c.SunIntensity)
	}
	return c.BakerConfig().Validate()
}

// BakerConfig is the environment precomputation setup the config asks for.
func (c *Config) BakerConfig() ibl.BakerConfig {
	cfg := ibl.DefaultBakerConfig()
	if c.EnvironmentSize > 0 {
		cfg.EnvironmentSize = c.EnvironmentSize
	}
	if c.IrradianceSize > 0 {
		cfg.IrradianceSize = c.IrradianceSize
	}
	if c.PrefilterSize > 0 {
		cfg.PrefilterSize = c.PrefilterSize
	}
	return cfg
}
