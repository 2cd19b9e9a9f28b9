package config

import "strings"

// Game versions with distinct indoor lighting.
const (
	GameGothic1 = "gothic1"
	GameGothic2 = "gothic2"
)

// LightingConfig holds the deferred lighting knobs.
type LightingConfig struct {
	SunLightColor        [3]float32 `yaml:"sun_light_color"`
	SunLightStrength     float32    `yaml:"sun_light_strength"`
	RainSunLightStrength float32    `yaml:"rain_sun_light_strength"`
	WorldAOStrength      float32    `yaml:"world_ao_strength"`
	LimitLightIntensity  bool       `yaml:"limit_light_intensity"`

	// Draw radii in world units.
	VisualFXDrawRadius        float32 `yaml:"visual_fx_draw_radius"`
	SectionDrawRadius         float32 `yaml:"section_draw_radius"` // in world sections
	OutdoorVobDrawRadius      float32 `yaml:"outdoor_vob_draw_radius"`
	OutdoorSmallVobDrawRadius float32 `yaml:"outdoor_small_vob_draw_radius"`

	GameVersion string                   `yaml:"game_version"`
	Indoor      map[string]IndoorProfile `yaml:"indoor"`
}

// IndoorProfile overrides the final lighting pass while the camera is in an
// indoor BSP region.
type IndoorProfile struct {
	ShadowStrength  float32            `yaml:"shadow_strength"`
	WorldAOStrength float32            `yaml:"world_ao_strength"`
	LightStrength   float32            `yaml:"light_strength"`
	Worlds          map[string]float32 `yaml:"worlds"` // per-world shadow strength
}

// DefaultIndoorAmbient is the sun strength used indoors.
const DefaultIndoorAmbient = 0.22

// DefaultLighting returns the default lighting settings.
func DefaultLighting() LightingConfig {
	return LightingConfig{
		SunLightColor:             [3]float32{1, 1, 1},
		SunLightStrength:          1.0,
		RainSunLightStrength:      0.35,
		WorldAOStrength:           0.5,
		LimitLightIntensity:       false,
		VisualFXDrawRadius:        8000,
		SectionDrawRadius:         4,
		OutdoorVobDrawRadius:      30000,
		OutdoorSmallVobDrawRadius: 10000,
		GameVersion:               GameGothic2,
		Indoor: map[string]IndoorProfile{
			GameGothic1: {
				ShadowStrength:  0.3,
				WorldAOStrength: 1.0,
				LightStrength:   DefaultIndoorAmbient,
				Worlds:          map[string]float32{"ORCTEMPEL": 0.15},
			},
			GameGothic2: {
				ShadowStrength:  0,
				WorldAOStrength: 1.0,
				LightStrength:   DefaultIndoorAmbient,
			},
		},
	}
}

// IndoorProfile returns the profile of the configured game version, falling
// back to the Gothic 2 defaults.
func (l *LightingConfig) IndoorProfile() IndoorProfile {
	if p, ok := l.Indoor[strings.ToLower(l.GameVersion)]; ok {
		return p
	}
	return DefaultLighting().Indoor[GameGothic2]
}

// ShadowStrengthFor returns the indoor shadow strength for a world.
func (p IndoorProfile) ShadowStrengthFor(world string) float32 {
	if s, ok := p.Worlds[strings.ToUpper(world)]; ok {
		return s
	}
	return p.ShadowStrength
}
