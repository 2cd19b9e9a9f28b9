// Package lighting schedules point light shadow updates and renders the
// deferred point light and sun lighting pass.
package lighting

import (
	"github.com/Faultbox/umbra/internal/engine/shadow"
	"github.com/Faultbox/umbra/pkg/math"
)

// DefaultLightRange is used for lights loaded without a positive range.
const DefaultLightRange = 100

// PointLight is one point light of the world.
type PointLight struct {
	Name     string
	Position math.Vec3
	Color    [4]float32 // RGBA, 0-1
	Range    float32
	Disabled bool
	Indoor   bool
	Dynamic  bool // NPCs cast shadows from this light

	// UpdateShadows requests a cube render. Shadow-casting lights start with
	// it set; it is cleared once the cube was rendered.
	UpdateShadows bool

	// VisibleInRenderPass is set by the host's visibility pass and reset by
	// the deferred pass.
	VisibleInRenderPass bool

	cube   *shadow.PointCube
	state  ShadowState
	queued bool
}

// NewPointLight returns an enabled light with a clamped color and a
// positive range.
func NewPointLight(name string, pos math.Vec3, color [3]float32, lightRange float32, castShadows bool) *PointLight {
	l := &PointLight{
		Name:          name,
		Position:      pos,
		Range:         lightRange,
		UpdateShadows: castShadows,
	}
	for i, c := range color {
		l.Color[i] = math.Clamp(c, 0, 1)
	}
	l.Color[3] = 1
	if l.Range <= 0 {
		l.Range = DefaultLightRange
	}
	return l
}

// Cube returns the shadow cube, or nil when the light has none.
func (l *PointLight) Cube() *shadow.PointCube { return l.cube }

// ShadowState returns where the light is in the shadow update cycle.
func (l *PointLight) ShadowState() ShadowState { return l.state }

// HasShadow reports whether the light owns an inited cube.
func (l *PointLight) HasShadow() bool {
	return l.cube != nil && l.cube.IsInited()
}

// Enabled reports whether the light contributes to lighting.
func (l *PointLight) Enabled() bool { return !l.Disabled }

// MoveTo moves the light. The cube notices the move on the next schedule.
func (l *PointLight) MoveTo(pos math.Vec3) {
	l.Position = pos
}
