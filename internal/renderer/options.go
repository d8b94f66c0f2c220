package renderer

import (
	"fmt"
	"strings"
)

// RenderingMode selects what a frame shows.
type RenderingMode int

const (
	// ModeStandard renders shadow, forward PBR, skybox and post passes.
	ModeStandard RenderingMode = iota
	// ModeDepthFromLight shows the raw shadow map for debugging.
	ModeDepthFromLight
)

func (m RenderingMode) String() string {
	switch m {
	case ModeStandard:
		return "standard"
	case ModeDepthFromLight:
		return "depth-from-light"
	default:
		return fmt.Sprintf("RenderingMode(%d)", int(m))
	}
}

// ParseRenderingMode accepts the names produced by String, case-insensitively.
func ParseRenderingMode(s string) (RenderingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "standard", "":
		return ModeStandard, nil
	case "depth-from-light", "depth", "depth_from_light":
		return ModeDepthFromLight, nil
	}
	return ModeStandard, fmt.Errorf("unknown rendering mode %q", s)
}

func (m RenderingMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *RenderingMode) UnmarshalText(text []byte) error {
	mode, err := ParseRenderingMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// RenderingOptions is the toggle record shared between the UI and the
// renderer. Both run on the frame loop goroutine, so fields are read and
// written directly; every pass reads each flag at most once per frame.
type RenderingOptions struct {
	// Lighting
	Shadows bool `json:"shadows"`
	IBL     bool `json:"ibl"`
	Sun     bool `json:"sun"`

	// Material channels
	AmbientOcclusion bool `json:"ambient_occlusion"`
	NormalMapping    bool `json:"normal_mapping"`

	// Background and post-processing
	EnvironmentMap  bool `json:"environment_map"`
	Tonemapping     bool `json:"tonemapping"`
	GammaCorrection bool `json:"gamma_correction"`

	// Not part of the shading model; lets the forward pass skip meshes
	// outside the camera frustum.
	FrustumCulling bool `json:"frustum_culling"`

	Mode RenderingMode `json:"mode"`
}

// DefaultRenderingOptions turns every feature on in standard mode.
func DefaultRenderingOptions() *RenderingOptions {
	return &RenderingOptions{
		Shadows:          true,
		IBL:              true,
		Sun:              true,
		AmbientOcclusion: true,
		NormalMapping:    true,
		EnvironmentMap:   true,
		Tonemapping:      true,
		GammaCorrection:  true,
		FrustumCulling:   true,
		Mode:             ModeStandard,
	}
}

// PerformanceRenderingOptions drops the shadow pass and the optional
// material channels.
func PerformanceRenderingOptions() *RenderingOptions {
	opts := DefaultRenderingOptions()
	opts.Shadows = false
	opts.AmbientOcclusion = false
	opts.NormalMapping = false
	return opts
}

// SetSun toggles the sun. Without a sun there is nothing to cast shadows,
// so turning it off also turns shadows off.
func (o *RenderingOptions) SetSun(on bool) {
	o.Sun = on
	if !on {
		o.Shadows = false
	}
}

// SetEnvironmentMap toggles the environment. IBL samples the environment
// maps, so turning it off also turns IBL off.
func (o *RenderingOptions) SetEnvironmentMap(on bool) {
	o.EnvironmentMap = on
	if !on {
		o.IBL = false
	}
}

// ToggleMode flips between the standard and the light depth view.
func (o *RenderingOptions) ToggleMode() {
	if o.Mode == ModeStandard {
		o.Mode = ModeDepthFromLight
	} else {
		o.Mode = ModeStandard
	}
}
