package viewer

import (
	"testing"

	"go.uber.org/zap"

	"github.com/Faultbox/umbra/internal/config"
	"github.com/Faultbox/umbra/internal/engine/input"
	"github.com/Faultbox/umbra/internal/world"
)

func fixture(t *testing.T) (*config.Config, *world.Scene) {
	t.Helper()
	scene, err := world.Demo()
	if err != nil {
		t.Fatalf("Demo: %v", err)
	}
	return config.Default(), scene
}

func TestCycleCascades(t *testing.T) {
	cfg, scene := fixture(t)
	var tg toggles

	want := []int{1, 2, 3, 1}
	for i, w := range want {
		tg.apply([]input.Action{input.ActionCycleCascades}, cfg, scene, zap.NewNop())
		if cfg.Shadows.NumCascades != w {
			t.Errorf("cycle %d: NumCascades = %d, want %d", i, cfg.Shadows.NumCascades, w)
		}
	}
}

func TestToggles(t *testing.T) {
	cfg, scene := fixture(t)
	var tg toggles
	all := []input.Action{
		input.ActionToggleShadows,
		input.ActionTogglePartialUpdates,
		input.ActionToggleRain,
		input.ActionToggleLightLimit,
		input.ActionToggleIndoor,
	}

	tg.apply(all, cfg, scene, zap.NewNop())
	if cfg.Shadows.Enabled || !cfg.Shadows.PartialDynamicUpdates || !cfg.Lighting.LimitLightIntensity {
		t.Errorf("config not toggled: %+v %+v", cfg.Shadows, cfg.Lighting)
	}
	if scene.Wetness != rainWetness || !scene.Indoor {
		t.Errorf("scene not toggled: wetness %v indoor %v", scene.Wetness, scene.Indoor)
	}

	tg.apply(all, cfg, scene, zap.NewNop())
	if !cfg.Shadows.Enabled || cfg.Shadows.PartialDynamicUpdates || cfg.Lighting.LimitLightIntensity {
		t.Errorf("config not restored: %+v %+v", cfg.Shadows, cfg.Lighting)
	}
	if scene.Wetness != 0 || scene.Indoor {
		t.Errorf("scene not restored: wetness %v indoor %v", scene.Wetness, scene.Indoor)
	}
}

func TestToggleSunKeepsSpeed(t *testing.T) {
	cfg, scene := fixture(t)
	var tg toggles
	speed := scene.Sun.Speed

	tg.apply([]input.Action{input.ActionToggleSun}, cfg, scene, zap.NewNop())
	if scene.Sun.Speed != 0 {
		t.Errorf("paused speed = %v, want 0", scene.Sun.Speed)
	}
	lon := scene.Sun.Longitude
	scene.Update(10)
	if scene.Sun.Longitude != lon {
		t.Errorf("paused sun moved from %v to %v", lon, scene.Sun.Longitude)
	}

	tg.apply([]input.Action{input.ActionToggleSun}, cfg, scene, zap.NewNop())
	if scene.Sun.Speed != speed {
		t.Errorf("resumed speed = %v, want %v", scene.Sun.Speed, speed)
	}
}
