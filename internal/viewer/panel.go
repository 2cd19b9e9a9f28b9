package viewer

import (
	"fmt"

	"github.com/AllenDang/cimgui-go/imgui"
	"go.uber.org/zap"

	"github.com/Faultbox/umbra/internal/config"
	"github.com/Faultbox/umbra/internal/engine/input"
	"github.com/Faultbox/umbra/internal/engine/ui"
	"github.com/Faultbox/umbra/internal/world"
)

var pointShadowNames = [...]string{"Off", "Static", "Dynamic", "Full"}

// pointShadowLevel clamps l to the named levels.
func pointShadowLevel(l config.PointLightShadowLevel) config.PointLightShadowLevel {
	return min(max(l, config.PointLightShadowsOff), config.PointLightShadowsFull)
}

// panelState is the part of the settings the panel edits with the same
// commands as the keys.
type panelState struct {
	Cascades   int
	Shadows    bool
	Partial    bool
	Rain       bool
	LightLimit bool
	SunPaused  bool
	Indoor     bool
}

func readPanelState(cfg *config.Config, scene *world.Scene, t *toggles) panelState {
	return panelState{
		Cascades:   cfg.Shadows.NumCascades,
		Shadows:    cfg.Shadows.Enabled,
		Partial:    cfg.Shadows.PartialDynamicUpdates,
		Rain:       scene.Wetness > 0,
		LightLimit: cfg.Lighting.LimitLightIntensity,
		SunPaused:  t.sunPaused,
		Indoor:     scene.Indoor,
	}
}

// actions returns the commands that turn s into edited. A cascade count is
// reached by cycling.
func (s panelState) actions(edited panelState) []input.Action {
	var out []input.Action
	if edited.Cascades != s.Cascades {
		cycles := (edited.Cascades - s.Cascades + config.MaxCascades) % config.MaxCascades
		for range cycles {
			out = append(out, input.ActionCycleCascades)
		}
	}
	flips := []struct {
		from, to bool
		action   input.Action
	}{
		{s.Shadows, edited.Shadows, input.ActionToggleShadows},
		{s.Partial, edited.Partial, input.ActionTogglePartialUpdates},
		{s.Rain, edited.Rain, input.ActionToggleRain},
		{s.LightLimit, edited.LightLimit, input.ActionToggleLightLimit},
		{s.SunPaused, edited.SunPaused, input.ActionToggleSun},
		{s.Indoor, edited.Indoor, input.ActionToggleIndoor},
	}
	for _, f := range flips {
		if f.from != f.to {
			out = append(out, f.action)
		}
	}
	return out
}

// panel is the ImGui front end: the stats overlay and the settings window.
type panel struct {
	overlay *ui.StatsOverlay
	visible bool
	status  string
}

func newPanel() *panel {
	return &panel{overlay: ui.NewStatsOverlay(), visible: true}
}

// render draws the panel and returns the commands its widgets issued.
// Continuous values are written to cfg directly.
func (p *panel) render(cfg *config.Config, scene *world.Scene, t *toggles, log *zap.Logger) []input.Action {
	p.overlay.Render()
	if !p.visible {
		return nil
	}

	vp := imgui.MainViewport()
	pos := vp.WorkPos()
	size := vp.WorkSize()
	imgui.SetNextWindowPos(imgui.NewVec2(pos.X+size.X-330, pos.Y+10))
	imgui.SetNextWindowSize(imgui.NewVec2(320, 0))

	var out []input.Action
	flags := imgui.WindowFlagsNoSavedSettings | imgui.WindowFlagsNoResize
	if imgui.BeginV("Shadows##Settings", nil, flags) {
		before := readPanelState(cfg, scene, t)
		edited := before

		if imgui.CollapsingHeaderTreeNodeFlagsV("Sun", imgui.TreeNodeFlagsDefaultOpen) {
			imgui.Checkbox("Shadows", &edited.Shadows)
			n := int32(edited.Cascades)
			imgui.SliderIntV("Cascades", &n, config.MinCascades, config.MaxCascades, "%d", imgui.SliderFlagsNone)
			edited.Cascades = int(n)
			imgui.SliderFloatV("Strength", &cfg.Shadows.Strength, 0, 1, "%.2f", imgui.SliderFlagsNone)
			imgui.SliderFloatV("AO strength", &cfg.Shadows.AOStrength, 0, 1, "%.2f", imgui.SliderFlagsNone)
			imgui.Checkbox("Pause sun", &edited.SunPaused)
		}

		if imgui.CollapsingHeaderTreeNodeFlagsV("Point lights", imgui.TreeNodeFlagsDefaultOpen) {
			level := int32(pointShadowLevel(cfg.Shadows.PointLightShadows))
			if imgui.SliderIntV("Cube shadows", &level, 0, int32(len(pointShadowNames)-1),
				pointShadowNames[pointShadowLevel(config.PointLightShadowLevel(level))], imgui.SliderFlagsNone) {
				cfg.Shadows.PointLightShadows = pointShadowLevel(config.PointLightShadowLevel(level))
				log.Info("point light shadows", zap.String("level", pointShadowNames[cfg.Shadows.PointLightShadows]))
			}
			imgui.Checkbox("Partial updates", &edited.Partial)
			imgui.Checkbox("Limit intensity", &edited.LightLimit)
		}

		if imgui.CollapsingHeaderTreeNodeFlagsV("World", imgui.TreeNodeFlagsDefaultOpen) {
			imgui.Checkbox("Rain", &edited.Rain)
			imgui.Checkbox("Indoor", &edited.Indoor)
		}

		p.overlay.RenderSettings()

		imgui.Separator()
		if imgui.ButtonV("Save settings", imgui.NewVec2(-1, 0)) {
			out = append(out, input.ActionSaveSettings)
		}
		if p.status != "" {
			imgui.TextDisabled(p.status)
		}

		out = append(before.actions(edited), out...)
	}
	imgui.End()
	return out
}

// update feeds the frame time and the counters of the last frame.
func (p *panel) update(deltaMs float64, v *Viewer) {
	p.overlay.Update(deltaMs)
	p.overlay.Stats = v.pipeline.Stats()
	p.overlay.Lights = len(v.scene.Lights)
	p.overlay.Cascades = v.cfg.Shadows.NumCascades
}

// saveSettings runs save for every save command and returns a status line.
func saveSettings(actions []input.Action, save func() error, log *zap.Logger) string {
	status := ""
	for _, a := range actions {
		if a != input.ActionSaveSettings {
			continue
		}
		if err := save(); err != nil {
			log.Warn("saving settings failed", zap.Error(err))
			status = fmt.Sprintf("Save failed: %v", err)
			continue
		}
		path := config.SavePath()
		log.Info("settings saved", zap.String("file", path))
		status = "Saved to " + path
	}
	return status
}
