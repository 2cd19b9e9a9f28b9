package ui

import (
	"fmt"

	"github.com/AllenDang/cimgui-go/imgui"

	"github.com/Faultbox/umbra/internal/engine/lighting"
)

// StatsOverlay shows frame timing and the lighting pipeline counters.
type StatsOverlay struct {
	fps           float64
	frameTime     float64 // ms
	fpsUpdateTime float64 // seconds since last FPS update
	frameAccum    int

	Stats    lighting.FrameStats
	Lights   int
	Cascades int

	ShowShadows bool
	Enabled     bool
}

// NewStatsOverlay creates an enabled overlay.
func NewStatsOverlay() *StatsOverlay {
	return &StatsOverlay{ShowShadows: true, Enabled: true}
}

// Update accumulates frame timing. deltaMs is the frame time in
// milliseconds; the FPS figure refreshes every half second.
func (o *StatsOverlay) Update(deltaMs float64) {
	o.frameTime = deltaMs
	o.frameAccum++
	o.fpsUpdateTime += deltaMs / 1000.0

	if o.fpsUpdateTime >= 0.5 {
		o.fps = float64(o.frameAccum) / o.fpsUpdateTime
		o.frameAccum = 0
		o.fpsUpdateTime = 0
	}
}

// FPS returns the last computed frame rate.
func (o *StatsOverlay) FPS() float64 { return o.fps }

// FrameTime returns the last frame time in milliseconds.
func (o *StatsOverlay) FrameTime() float64 { return o.frameTime }

// Lines returns the counters as display text.
func (o *StatsOverlay) Lines() []string {
	st := o.Stats
	lines := []string{
		fmt.Sprintf("Lights: %d drawn, %d skipped of %d", st.LightsDrawn, st.LightsSkipped, o.Lights),
	}
	if !o.ShowShadows {
		return lines
	}
	rain := "off"
	if st.RainRendered {
		rain = "rendered"
	}
	return append(lines,
		fmt.Sprintf("Cube renders: %d (%d important, %d budgeted)", st.CubeRenders, st.ImportantUpdates, st.BudgetedUpdates),
		fmt.Sprintf("Cube queue: %d", st.QueueLength),
		fmt.Sprintf("Cube failures: %d", st.CubeFailures),
		fmt.Sprintf("Cascades: %d of %d (%d cleared)", st.CascadesRendered, o.Cascades, st.CascadeClears),
		fmt.Sprintf("Rain map: %s", rain),
	)
}

// Render draws the overlay in the top-left corner.
func (o *StatsOverlay) Render() {
	if !o.Enabled {
		return
	}

	imgui.SetNextWindowPos(imgui.NewVec2(10, 10))
	imgui.SetNextWindowSize(imgui.NewVec2(300, 0))

	flags := imgui.WindowFlagsNoTitleBar | imgui.WindowFlagsNoResize |
		imgui.WindowFlagsNoMove | imgui.WindowFlagsNoScrollbar |
		imgui.WindowFlagsNoSavedSettings | imgui.WindowFlagsNoFocusOnAppearing |
		imgui.WindowFlagsNoInputs

	imgui.PushStyleVarVec2(imgui.StyleVarWindowPadding, imgui.NewVec2(8, 8))
	imgui.SetNextWindowBgAlpha(0.6)

	if imgui.BeginV("##Stats", nil, flags) {
		fpsColor := imgui.NewVec4(0.2, 1.0, 0.2, 1.0)
		if o.fps < 30 {
			fpsColor = imgui.NewVec4(1.0, 0.2, 0.2, 1.0)
		} else if o.fps < 60 {
			fpsColor = imgui.NewVec4(1.0, 1.0, 0.2, 1.0)
		}
		imgui.TextColored(fpsColor, fmt.Sprintf("FPS: %.1f", o.fps))
		imgui.SameLine()
		imgui.TextDisabled(fmt.Sprintf("(%.2f ms)", o.frameTime))
		imgui.Text(fmt.Sprintf("Frame: %d", o.Stats.Frame))

		imgui.Separator()
		for _, line := range o.Lines() {
			imgui.Text(line)
		}
	}
	imgui.End()

	imgui.PopStyleVar()
}

// RenderSettings draws the overlay toggles.
func (o *StatsOverlay) RenderSettings() {
	if imgui.CollapsingHeaderTreeNodeFlagsV("Overlay", imgui.TreeNodeFlagsNone) {
		imgui.Checkbox("Show stats", &o.Enabled)
		imgui.Checkbox("Show shadow counters", &o.ShowShadows)
	}
}
