package shadow

import (
	gomath "math"

	"github.com/Faultbox/umbra/internal/engine/camera"
	"github.com/Faultbox/umbra/pkg/math"
)

// Cascade camera constants in world units.
const (
	SunDistance    = 10000 // light camera distance from the anchor
	CascadeNear    = 1
	CascadeFar     = 20000
	MinCascadeSize = 500
)

// Cascade is the light camera of one cascade slice.
type Cascade struct {
	Index      int
	Near, Far  float32 // view depth range covered
	Size       float32 // orthographic extent
	TexelSize  float32
	View       math.Mat4
	Projection math.Mat4
	Position   math.Vec3
	LookAt     math.Vec3

	// SnapOffset is the light-space XY shift applied to the anchor, in
	// (-TexelSize, 0].
	SnapOffset [2]float32
}

// ViewProjection returns Projection * View.
func (c Cascade) ViewProjection() math.Mat4 {
	return c.Projection.Mul(c.View)
}

// Replacement returns the camera override that renders this cascade.
func (c Cascade) Replacement() camera.Replacement {
	return camera.Replacement{
		View:       c.View,
		Projection: c.Projection,
		Position:   c.Position,
		LookAt:     c.LookAt,
	}
}

// CascadeSize returns the orthographic extent of cascade i. Later cascades
// grow with the square root of their share of the last split.
func CascadeSize(farPlane float32, splits []float32, i int) float32 {
	last := splits[len(splits)-1]
	if last <= 0 || i+1 >= len(splits) {
		return MinCascadeSize
	}
	return max(farPlane*math.Sqrt(splits[i+1]/last), MinCascadeSize)
}

// lightDir normalizes dir, defaulting to straight down from above.
func lightDir(dir math.Vec3) math.Vec3 {
	if dir.LengthSq() == 0 {
		return math.Vec3{Y: 1}
	}
	return dir.Normalize()
}

// lightUp picks an up vector that is not parallel to dir.
func lightUp(dir math.Vec3) math.Vec3 {
	if math.Abs(dir.Y) > 0.99 {
		return math.Vec3{Z: 1}
	}
	return math.Vec3{Y: 1}
}

// LightView returns the view looking from anchor + dir*SunDistance toward
// anchor, and the eye position.
func LightView(anchor, sunDir math.Vec3) (math.Mat4, math.Vec3) {
	dir := lightDir(sunDir)
	eye := anchor.Add(dir.Scale(SunDistance))
	return math.LookAt(eye, anchor, lightUp(dir)), eye
}

// SnapCascade builds a cascade camera whose light-space XY origin lies on
// multiples of the texel size. Two anchors inside the same texel produce the
// same XY translation, so shadow edges do not crawl while the camera moves.
// Depth is not snapped.
func SnapCascade(index int, anchor, sunDir math.Vec3, size float32, resolution int) Cascade {
	dir := lightDir(sunDir)
	texel := size / float32(max(resolution, 1))

	// The rotation is fixed for a sun direction; only the translation depends
	// on the anchor.
	base := math.LookAt(dir.Scale(SunDistance), math.Vec3{}, lightUp(dir))
	ls := base.TransformVec3(anchor)

	sx := math.Floor(ls.X/texel) * texel
	sy := math.Floor(ls.Y/texel) * texel

	view := math.Translate(-sx, -sy, -SunDistance-ls.Z).Mul(base)

	eye := view.Inverse().TransformVec3(math.Vec3{})
	return Cascade{
		Index:      index,
		Size:       size,
		TexelSize:  texel,
		View:       view,
		Projection: math.OrthoSized(size, size, CascadeNear, CascadeFar),
		Position:   eye,
		LookAt:     eye.Sub(dir.Scale(SunDistance)),
		SnapOffset: [2]float32{sx - ls.X, sy - ls.Y},
	}
}

// IndoorCascade is the fixed volume every cascade uses while the camera is
// indoors.
func IndoorCascade(index int, anchor, sunDir math.Vec3, farPlane float32, resolution int) Cascade {
	view, eye := LightView(anchor, sunDir)
	return Cascade{
		Index:      index,
		Size:       farPlane,
		TexelSize:  farPlane / float32(max(resolution, 1)),
		View:       view,
		Projection: math.OrthoSized(farPlane, farPlane, CascadeNear, CascadeFar),
		Position:   eye,
		LookAt:     anchor,
	}
}

// sunQuantum is the step of the smoothed sun direction.
const sunQuantum = 500

// QuantizeSunDirection rounds each component to 1/500 so slow sun motion
// does not move the cascades every frame.
func QuantizeSunDirection(dir math.Vec3) math.Vec3 {
	q := func(v float32) float32 {
		return float32(gomath.RoundToEven(float64(v)*sunQuantum) / sunQuantum)
	}
	return math.Vec3{X: q(dir.X), Y: q(dir.Y), Z: q(dir.Z)}
}

// Cube face directions and up vectors in GL cube map order.
var cubeFaces = [6]struct{ dir, up math.Vec3 }{
	{math.Vec3{X: 1}, math.Vec3{Y: -1}},
	{math.Vec3{X: -1}, math.Vec3{Y: -1}},
	{math.Vec3{Y: 1}, math.Vec3{Z: 1}},
	{math.Vec3{Y: -1}, math.Vec3{Z: -1}},
	{math.Vec3{Z: 1}, math.Vec3{Y: -1}},
	{math.Vec3{Z: -1}, math.Vec3{Y: -1}},
}

// CubeFaceView returns the view of one face of a cube map centered at pos.
func CubeFaceView(pos math.Vec3, face int) math.Mat4 {
	f := cubeFaces[face]
	return math.LookAt(pos, pos.Add(f.dir), f.up)
}

// CubeProjection is the 90 degree projection shared by all cube faces.
func CubeProjection(lightRange float32) math.Mat4 {
	return math.Perspective(gomath.Pi/2, 1, 1, max(lightRange, 2))
}
