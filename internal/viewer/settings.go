package viewer

import (
	"go.uber.org/zap"

	"github.com/Faultbox/umbra/internal/config"
	"github.com/Faultbox/umbra/internal/engine/input"
	"github.com/Faultbox/umbra/internal/world"
)

// rainWetness is the wetness set by the rain toggle.
const rainWetness = 1.0

// toggles holds the state the key bindings flip that lives in neither the
// config nor the scene.
type toggles struct {
	sunSpeed  float32 // restored when the sun resumes
	sunPaused bool
}

// apply runs the actions of a frame against the settings and the scene.
func (t *toggles) apply(actions []input.Action, cfg *config.Config, scene *world.Scene, log *zap.Logger) {
	for _, a := range actions {
		switch a {
		case input.ActionCycleCascades:
			n := cfg.Shadows.NumCascades%config.MaxCascades + 1
			cfg.Shadows.SetNumCascades(n)
			log.Info("cascades", zap.Int("count", cfg.Shadows.NumCascades))

		case input.ActionToggleShadows:
			cfg.Shadows.Enabled = !cfg.Shadows.Enabled
			log.Info("sun shadows", zap.Bool("enabled", cfg.Shadows.Enabled))

		case input.ActionTogglePartialUpdates:
			cfg.Shadows.PartialDynamicUpdates = !cfg.Shadows.PartialDynamicUpdates
			log.Info("partial cube updates", zap.Bool("enabled", cfg.Shadows.PartialDynamicUpdates))

		case input.ActionToggleRain:
			if scene.Wetness > 0 {
				scene.Wetness = 0
			} else {
				scene.Wetness = rainWetness
			}
			log.Info("rain", zap.Float32("wetness", scene.Wetness))

		case input.ActionToggleLightLimit:
			cfg.Lighting.LimitLightIntensity = !cfg.Lighting.LimitLightIntensity
			log.Info("light limit", zap.Bool("enabled", cfg.Lighting.LimitLightIntensity))

		case input.ActionToggleSun:
			if t.sunPaused {
				scene.Sun.Speed = t.sunSpeed
			} else {
				t.sunSpeed = scene.Sun.Speed
				scene.Sun.Speed = 0
			}
			t.sunPaused = !t.sunPaused
			log.Info("sun", zap.Bool("paused", t.sunPaused))

		case input.ActionToggleIndoor:
			scene.Indoor = !scene.Indoor
			log.Info("indoor", zap.Bool("indoor", scene.Indoor))
		}
	}
}
