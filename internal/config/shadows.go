package config

// Cascade count limits.
const (
	MinCascades = 1
	MaxCascades = 3
)

// PointLightShadowLevel selects how point lights cast shadows.
type PointLightShadowLevel int

const (
	// PointLightShadowsOff disables cube shadows entirely.
	PointLightShadowsOff PointLightShadowLevel = iota
	// PointLightShadowsStatic renders static world geometry only.
	PointLightShadowsStatic
	// PointLightShadowsDynamic also renders NPCs into the cubes.
	PointLightShadowsDynamic
	// PointLightShadowsFull re-renders every shadowed light when it is forced.
	PointLightShadowsFull
)

// ShadowConfig holds the shadow-map knobs read by the renderer.
type ShadowConfig struct {
	Enabled            bool    `yaml:"enabled"`
	DrawGeometry       bool    `yaml:"draw_geometry"`
	MapSize            int     `yaml:"map_size"`
	NumCascades        int     `yaml:"num_cascades"`
	SplitLambda        float32 `yaml:"split_lambda"`
	WorldRangeScale    float32 `yaml:"world_range_scale"`
	SmoothCameraUpdate bool    `yaml:"smooth_camera_update"`
	Strength           float32 `yaml:"strength"`
	AOStrength         float32 `yaml:"ao_strength"`

	PointLightShadows     PointLightShadowLevel `yaml:"point_light_shadows"`
	PartialDynamicUpdates bool                  `yaml:"partial_dynamic_updates"`

	RainShadows bool `yaml:"rain_shadows"`
	RainMapSize int  `yaml:"rain_map_size"`
}

// DefaultShadows returns the default shadow settings.
func DefaultShadows() ShadowConfig {
	return ShadowConfig{
		Enabled:               true,
		DrawGeometry:          true,
		MapSize:               2048,
		NumCascades:           MaxCascades,
		SplitLambda:           0.97,
		WorldRangeScale:       1.0,
		SmoothCameraUpdate:    true,
		Strength:              0.4,
		AOStrength:            0.5,
		PointLightShadows:     PointLightShadowsStatic,
		PartialDynamicUpdates: false,
		RainShadows:           true,
		RainMapSize:           2048,
	}
}

// SetNumCascades stores n clamped to [MinCascades, MaxCascades] and reports
// whether the stored value changed.
func (s *ShadowConfig) SetNumCascades(n int) bool {
	n = min(max(n, MinCascades), MaxCascades)
	if s.NumCascades == n {
		return false
	}
	s.NumCascades = n
	return true
}

// ClampCascades corrects an out-of-range NumCascades in place and returns
// the valid count together with whether a correction was written back.
func (s *ShadowConfig) ClampCascades() (int, bool) {
	if s.NumCascades >= MinCascades && s.NumCascades <= MaxCascades {
		return s.NumCascades, false
	}
	s.SetNumCascades(s.NumCascades)
	return s.NumCascades, true
}

// PointLightShadowsEnabled reports whether any cube shadows are rendered.
func (s *ShadowConfig) PointLightShadowsEnabled() bool {
	return s.PointLightShadows > PointLightShadowsOff
}
