package shadow

import "github.com/Faultbox/umbra/pkg/math"

// Anchor movement thresholds in world units.
const (
	AnchorMoveDistance = 200
	AnchorGridDistance = 64
	anchorGridEpsilon  = 0.1
)

// Anchor is the hysteresis-filtered ground position the cascades center on.
// It follows the camera only after a large move, or a medium one that ends
// near an integer grid coordinate.
type Anchor struct {
	pos math.Vec3
}

// Position returns the current anchor.
func (a *Anchor) Position() math.Vec3 {
	return a.pos
}

// Reset moves the anchor to pos immediately.
func (a *Anchor) Reset(pos math.Vec3) {
	a.pos = pos
}

// Update feeds the camera position and returns the anchor to use this frame.
func (a *Anchor) Update(cam math.Vec3) math.Vec3 {
	d := a.pos.Distance(cam)
	if d >= AnchorMoveDistance || (d >= AnchorGridDistance && nearGrid(cam)) {
		a.pos = cam
	}
	return a.pos
}

func nearGrid(p math.Vec3) bool {
	fx := p.X - float32(int64(p.X))
	fy := p.Y - float32(int64(p.Y))
	return math.Abs(fx) < anchorGridEpsilon && math.Abs(fy) < anchorGridEpsilon
}
