package engine

import (
	"os"
	"path/filepath"
	"testing"

	"GopherPBR/internal/ibl"
	"GopherPBR/internal/renderer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, *renderer.DefaultRenderingOptions(), cfg.Rendering)
	assert.Equal(t, "sky:0", cfg.EnvironmentPath)
	assert.Equal(t, int32(renderer.DefaultShadowMapSize), cfg.ShadowMapSize)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "viewer.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"model_path": "helmet.glb",
		"exposure": 2.5,
		"rendering": {"shadows": false, "mode": "depth-from-light"}
	}`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "helmet.glb", cfg.ModelPath)
	assert.Equal(t, float32(2.5), cfg.Exposure)
	assert.False(t, cfg.Rendering.Shadows)
	assert.Equal(t, renderer.ModeDepthFromLight, cfg.Rendering.Mode)
	assert.Equal(t, int32(1024), cfg.WindowWidth)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"exposure": `},
		{"unknown mode", `{"rendering": {"mode": "wireframe"}}`},
		{"zero window", `{"window_width": 0}`},
		{"negative exposure", `{"exposure": -1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "viewer.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))
			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestConfigSaveRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModelPath = "scene.gltf"
	cfg.Rendering.IBL = false
	cfg.BackgroundColor = [3]float32{0.5, 0.25, 0}
	cfg.PrefilterSize = 64

	path := filepath.Join(t.TempDir(), "viewer.json")
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"shadow map", func(c *Config) { c.ShadowMapSize = 0 }},
		{"model scale", func(c *Config) { c.ModelScale = 0 }},
		{"sun intensity", func(c *Config) { c.SunIntensity = -2 }},
		{"window height", func(c *Config) { c.WindowHeight = -1 }},
		{"prefilter too small", func(c *Config) { c.PrefilterSize = 4 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestBakerConfigOverridesPositiveSizes(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ibl.DefaultBakerConfig(), cfg.BakerConfig())

	cfg.EnvironmentSize = 256
	cfg.IrradianceSize = 16
	baker := cfg.BakerConfig()
	assert.Equal(t, 256, baker.EnvironmentSize)
	assert.Equal(t, 16, baker.IrradianceSize)
	assert.Equal(t, ibl.DefaultBakerConfig().PrefilterSize, baker.PrefilterSize)
}
