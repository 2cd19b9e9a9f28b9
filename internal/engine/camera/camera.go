// Package camera provides the active camera state, scoped camera overrides
// for shadow passes, and the orbit camera the viewer drives.
package camera

import (
	gomath "math"

	"github.com/Faultbox/umbra/pkg/math"
)

// State is everything the renderer reads from the active camera.
type State struct {
	Position   math.Vec3
	LookAt     math.Vec3
	View       math.Mat4
	Projection math.Mat4
	Near       float32
	Far        float32
}

// ViewProjection returns Projection * View.
func (s State) ViewProjection() math.Mat4 {
	return s.Projection.Mul(s.View)
}

// OrbitCamera orbits around a center point.
type OrbitCamera struct {
	// Center point to orbit around
	Center math.Vec3

	// Spherical coordinates
	Distance  float32 // Distance from center
	RotationX float32 // Pitch (vertical angle, radians)
	RotationY float32 // Yaw (horizontal angle, radians)

	// Constraints
	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	// Sensitivity
	DragSensitivity float32
	ZoomSensitivity float32

	// Projection
	FovY float32 // radians
	Near float32
	Far  float32
}

// NewOrbitCamera creates a new orbit camera with default settings.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Distance:        800.0,
		RotationX:       0.5,
		RotationY:       0.0,
		MinDistance:     50.0,
		MaxDistance:     20000.0,
		MinPitch:        0.05,
		MaxPitch:        1.5,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
		FovY:            float32(gomath.Pi / 3),
		Near:            1,
		Far:             40000,
	}
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() math.Vec3 {
	x := c.Distance * float32(gomath.Cos(float64(c.RotationX))*gomath.Sin(float64(c.RotationY)))
	y := c.Distance * float32(gomath.Sin(float64(c.RotationX)))
	z := c.Distance * float32(gomath.Cos(float64(c.RotationX))*gomath.Cos(float64(c.RotationY)))

	return c.Center.Add(math.Vec3{X: x, Y: y, Z: z})
}

// ViewMatrix returns the view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position(), c.Center, math.Vec3{Y: 1})
}

// State returns the camera state for a viewport with the given aspect ratio.
func (c *OrbitCamera) State(aspect float32) State {
	return State{
		Position:   c.Position(),
		LookAt:     c.Center,
		View:       c.ViewMatrix(),
		Projection: math.Perspective(c.FovY, aspect, c.Near, c.Far),
		Near:       c.Near,
		Far:        c.Far,
	}
}

// HandleDrag updates rotation based on mouse drag delta.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float32) {
	c.RotationY -= deltaX * c.DragSensitivity
	c.RotationX = math.Clamp(c.RotationX+deltaY*c.DragSensitivity, c.MinPitch, c.MaxPitch)
}

// HandleZoom updates distance based on scroll wheel delta.
func (c *OrbitCamera) HandleZoom(delta float32) {
	c.Distance -= delta * c.Distance * c.ZoomSensitivity
	c.Distance = math.Clamp(c.Distance, c.MinDistance, c.MaxDistance)
}

// HandleMovement pans the camera center point based on keyboard input.
func (c *OrbitCamera) HandleMovement(forward, right, up float32) {
	// Speed scales with distance for consistent feel
	speed := c.Distance * 0.01

	dirX := float32(gomath.Sin(float64(c.RotationY)))
	dirZ := float32(gomath.Cos(float64(c.RotationY)))
	rightX := float32(gomath.Cos(float64(c.RotationY)))
	rightZ := float32(-gomath.Sin(float64(c.RotationY)))

	// Negate forward so W moves "into" the scene
	c.Center.X += (-dirX*forward + rightX*right) * speed
	c.Center.Z += (-dirZ*forward + rightZ*right) * speed
	c.Center.Y += up * speed
}

// LookFrom places the camera at position looking at target, within the
// distance and pitch limits.
func (c *OrbitCamera) LookFrom(position, target math.Vec3) {
	offset := position.Sub(target)
	d := offset.Length()
	c.Center = target
	if d == 0 {
		return
	}
	c.Distance = math.Clamp(d, c.MinDistance, c.MaxDistance)
	c.RotationX = math.Clamp(float32(gomath.Asin(float64(offset.Y/d))), c.MinPitch, c.MaxPitch)
	c.RotationY = float32(gomath.Atan2(float64(offset.X), float64(offset.Z)))
}
