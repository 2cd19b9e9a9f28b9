package viewer

import (
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/Faultbox/umbra/internal/config"
	"github.com/Faultbox/umbra/internal/engine/input"
)

func TestPanelEditsReachSettings(t *testing.T) {
	tests := []struct {
		name string
		edit func(*panelState)
	}{
		{"cascades down", func(s *panelState) { s.Cascades = 1 }},
		{"cascades wrap", func(s *panelState) { s.Cascades = 2 }},
		{"shadows off", func(s *panelState) { s.Shadows = false }},
		{"partial updates", func(s *panelState) { s.Partial = true }},
		{"rain", func(s *panelState) { s.Rain = true }},
		{"light limit", func(s *panelState) { s.LightLimit = !s.LightLimit }},
		{"pause sun", func(s *panelState) { s.SunPaused = true }},
		{"indoor", func(s *panelState) { s.Indoor = !s.Indoor }},
		{"several", func(s *panelState) {
			s.Cascades = 1
			s.Rain = true
			s.Indoor = !s.Indoor
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, scene := fixture(t)
			var tg toggles
			before := readPanelState(cfg, scene, &tg)
			edited := before
			tt.edit(&edited)

			tg.apply(before.actions(edited), cfg, scene, zap.NewNop())
			if got := readPanelState(cfg, scene, &tg); got != edited {
				t.Errorf("settings = %+v, want %+v", got, edited)
			}
		})
	}
}

func TestPanelNoEditNoActions(t *testing.T) {
	cfg, scene := fixture(t)
	var tg toggles
	s := readPanelState(cfg, scene, &tg)
	if got := s.actions(s); len(got) != 0 {
		t.Errorf("unchanged panel issued %v", got)
	}
}

func TestPointShadowLevel(t *testing.T) {
	tests := []struct {
		in, want config.PointLightShadowLevel
	}{
		{-1, config.PointLightShadowsOff},
		{config.PointLightShadowsDynamic, config.PointLightShadowsDynamic},
		{9, config.PointLightShadowsFull},
	}
	for _, tt := range tests {
		if got := pointShadowLevel(tt.in); got != tt.want {
			t.Errorf("pointShadowLevel(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSaveSettings(t *testing.T) {
	calls := 0
	save := func() error {
		calls++
		return nil
	}

	if status := saveSettings([]input.Action{input.ActionToggleRain}, save, zap.NewNop()); status != "" || calls != 0 {
		t.Errorf("saved without a request: status %q, %d calls", status, calls)
	}

	status := saveSettings([]input.Action{input.ActionSaveSettings}, save, zap.NewNop())
	if calls != 1 {
		t.Errorf("save called %d times, want 1", calls)
	}
	if !strings.HasPrefix(status, "Saved to ") || !strings.HasSuffix(status, config.SavePath()) {
		t.Errorf("status = %q", status)
	}

	failing := func() error { return errors.New("read-only") }
	if status := saveSettings([]input.Action{input.ActionSaveSettings}, failing, zap.NewNop()); !strings.Contains(status, "read-only") {
		t.Errorf("failure status = %q", status)
	}
}
