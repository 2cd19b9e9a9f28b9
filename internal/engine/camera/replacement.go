package camera

import "github.com/Faultbox/umbra/pkg/math"

// Replacement overrides the active camera for a shadow render.
type Replacement struct {
	View       math.Mat4
	Projection math.Mat4
	Position   math.Vec3
	LookAt     math.Vec3
}

// Stack holds the real camera and the overrides installed on top of it.
type Stack struct {
	base  State
	repls []Replacement
}

// NewStack returns a stack over base.
func NewStack(base State) *Stack {
	return &Stack{base: base}
}

// SetBase replaces the real camera. Installed overrides stay on top.
func (s *Stack) SetBase(base State) {
	s.base = base
}

// Base returns the real camera.
func (s *Stack) Base() State {
	return s.base
}

// SetFar changes the far plane of the real camera.
func (s *Stack) SetFar(far float32) {
	s.base.Far = far
}

// Depth returns the number of installed overrides.
func (s *Stack) Depth() int {
	return len(s.repls)
}

// Active returns the real camera with the innermost override applied.
func (s *Stack) Active() State {
	st := s.base
	if n := len(s.repls); n > 0 {
		r := s.repls[n-1]
		st.View = r.View
		st.Projection = r.Projection
		st.Position = r.Position
		st.LookAt = r.LookAt
	}
	return st
}

// With installs r for the duration of fn. The previous camera is restored
// when fn returns or panics.
func (s *Stack) With(r Replacement, fn func()) {
	depth := len(s.repls)
	s.repls = append(s.repls, r)
	defer func() { s.repls = s.repls[:depth] }()
	fn()
}
