package frustum

import "github.com/Faultbox/umbra/pkg/math"

// Kind identifies which volume a Frustum tests against.
type Kind int

const (
	// KindOrthographic tests against the six planes of a light frustum.
	KindOrthographic Kind = iota
	// KindExpandedAABB tests against the light frustum's bounding box grown
	// to catch casters outside the direct view.
	KindExpandedAABB
	// KindSphere tests against a point light's range sphere.
	KindSphere
)

func (k Kind) String() string {
	switch k {
	case KindOrthographic:
		return "orthographic"
	case KindExpandedAABB:
		return "expanded-aabb"
	case KindSphere:
		return "sphere"
	default:
		return "unknown"
	}
}

// Plane is a half-space ax + by + cz + d >= 0 with a unit normal pointing
// inside.
type Plane struct {
	Normal math.Vec3
	D      float32
}

// Distance returns the signed distance from p to the plane.
func (pl Plane) Distance(p math.Vec3) float32 {
	return pl.Normal.Dot(p) + pl.D
}

func newPlane(a, b, c, d float32) Plane {
	n := math.Vec3{X: a, Y: b, Z: c}
	l := n.Length()
	if l == 0 {
		return Plane{}
	}
	return Plane{Normal: n.Scale(1 / l), D: d / l}
}

// Frustum is a culling volume for one shadow pass. Exactly one of its three
// shapes is active, selected by the last Build call. The zero value is an
// orthographic frustum that accepts everything.
type Frustum struct {
	planes   [6]Plane // left, right, bottom, top, near, far
	corners  [8]math.Vec3
	sphere   Sphere
	expanded AABB

	useSphere   bool
	useExpanded bool
}

// ndcCorners are the corners of the GL clip cube.
var ndcCorners = [8]math.Vec3{
	{X: -1, Y: -1, Z: -1}, {X: 1, Y: -1, Z: -1}, {X: -1, Y: 1, Z: -1}, {X: 1, Y: 1, Z: -1},
	{X: -1, Y: -1, Z: 1}, {X: 1, Y: -1, Z: 1}, {X: -1, Y: 1, Z: 1}, {X: 1, Y: 1, Z: 1},
}

// BuildOrthographic builds the world-space frustum of a light view and
// projection. A non-zero expandBack or a positive expandSides switches to an
// expanded bounding box: every extent grows by expandSides and the center
// moves expandBack units toward the light.
func (f *Frustum) BuildOrthographic(view, proj math.Mat4, expandBack, expandSides float32) {
	vp := proj.Mul(view)

	// Gribb/Hartmann on the rows of the column-major matrix.
	r := func(i int) [4]float32 { return [4]float32{vp[i], vp[4+i], vp[8+i], vp[12+i]} }
	r0, r1, r2, r3 := r(0), r(1), r(2), r(3)
	f.planes[0] = newPlane(r3[0]+r0[0], r3[1]+r0[1], r3[2]+r0[2], r3[3]+r0[3])
	f.planes[1] = newPlane(r3[0]-r0[0], r3[1]-r0[1], r3[2]-r0[2], r3[3]-r0[3])
	f.planes[2] = newPlane(r3[0]+r1[0], r3[1]+r1[1], r3[2]+r1[2], r3[3]+r1[3])
	f.planes[3] = newPlane(r3[0]-r1[0], r3[1]-r1[1], r3[2]-r1[2], r3[3]-r1[3])
	f.planes[4] = newPlane(r3[0]+r2[0], r3[1]+r2[1], r3[2]+r2[2], r3[3]+r2[3])
	f.planes[5] = newPlane(r3[0]-r2[0], r3[1]-r2[1], r3[2]-r2[2], r3[3]-r2[3])

	inv := vp.Inverse()
	for i, c := range ndcCorners {
		f.corners[i] = inv.TransformVec3(c)
	}

	f.useSphere = false
	f.useExpanded = expandBack != 0 || expandSides > 0
	if !f.useExpanded {
		return
	}

	box := AABBFromPoints(f.corners[:])
	grow := math.Vec3{X: expandSides, Y: expandSides, Z: expandSides}
	center := box.Center()

	// The view's +Z axis in world space points back at the light.
	toLight := view.Inverse().TransformDirection(math.Vec3{Z: 1}).Normalize()
	center = center.Add(toLight.Scale(expandBack))

	f.expanded = AABBFromCenter(center, box.Extents().Add(grow))
}

// BuildCubemapFace builds the volume for one face of a point light cube. All
// six faces share the light's range sphere.
func (f *Frustum) BuildCubemapFace(position math.Vec3, lightRange float32, face int) {
	_ = face
	f.sphere = Sphere{Center: position, Radius: lightRange}
	f.useSphere = true
	f.useExpanded = false
}

// Kind returns the active volume.
func (f *Frustum) Kind() Kind {
	switch {
	case f.useSphere:
		return KindSphere
	case f.useExpanded:
		return KindExpandedAABB
	default:
		return KindOrthographic
	}
}

// Corners returns the world-space corners of the last orthographic build.
func (f *Frustum) Corners() [8]math.Vec3 {
	return f.corners
}

// ExpandedBounds returns the expanded box of the last orthographic build.
func (f *Frustum) ExpandedBounds() AABB {
	return f.expanded
}

// Sphere returns the sphere of the last cube face build.
func (f *Frustum) Sphere() Sphere {
	return f.sphere
}

// Intersects reports whether the box is at least partly inside the volume.
func (f *Frustum) Intersects(b AABB) bool {
	switch {
	case f.useSphere:
		return f.sphere.IntersectsAABB(b)
	case f.useExpanded:
		return f.expanded.Intersects(b)
	}

	for _, p := range f.planes {
		// Positive vertex: the corner furthest along the normal.
		v := b.Max
		if p.Normal.X < 0 {
			v.X = b.Min.X
		}
		if p.Normal.Y < 0 {
			v.Y = b.Min.Y
		}
		if p.Normal.Z < 0 {
			v.Z = b.Min.Z
		}
		if p.Distance(v) < 0 {
			return false
		}
	}
	return true
}

// IntersectsSphere reports whether the sphere is at least partly inside the
// volume.
func (f *Frustum) IntersectsSphere(s Sphere) bool {
	switch {
	case f.useSphere:
		return f.sphere.Intersects(s)
	case f.useExpanded:
		return f.expanded.IntersectsSphere(s)
	}

	for _, p := range f.planes {
		if p.Distance(s.Center) < -s.Radius {
			return false
		}
	}
	return true
}

// IntersectsBatch4 tests four spheres at once. Cube face volumes use squared
// distances against the combined radii; other volumes test each sphere.
func (f *Frustum) IntersectsBatch4(centers *[4]math.Vec3, radii *[4]float32) [4]bool {
	var out [4]bool
	if !f.useSphere {
		for i := range out {
			out[i] = f.IntersectsSphere(Sphere{Center: centers[i], Radius: radii[i]})
		}
		return out
	}

	c := f.sphere.Center
	for i := range out {
		r := radii[i] + f.sphere.Radius
		out[i] = centers[i].DistanceSq(c) <= r*r
	}
	return out
}
