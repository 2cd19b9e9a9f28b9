package lighting

import (
	gomath "math"

	"github.com/Faultbox/umbra/pkg/math"
)

// Light volume tessellation.
const (
	sphereRings    = 8
	sphereSegments = 12
)

// InverseUnitSphere returns a unit sphere with inward facing triangles. The
// light volume is drawn with front faces culled while the camera is inside
// and back faces culled otherwise.
func InverseUnitSphere() ([]math.Vec3, []uint32) {
	positions := make([]math.Vec3, 0, (sphereRings+1)*(sphereSegments+1))
	for r := 0; r <= sphereRings; r++ {
		phi := gomath.Pi * float64(r) / sphereRings
		y := gomath.Cos(phi)
		ring := gomath.Sin(phi)
		for s := 0; s <= sphereSegments; s++ {
			theta := 2 * gomath.Pi * float64(s) / sphereSegments
			positions = append(positions, math.Vec3{
				X: float32(ring * gomath.Cos(theta)),
				Y: float32(y),
				Z: float32(ring * gomath.Sin(theta)),
			})
		}
	}

	indices := make([]uint32, 0, sphereRings*sphereSegments*6)
	stride := uint32(sphereSegments + 1)
	for r := uint32(0); r < sphereRings; r++ {
		for s := uint32(0); s < sphereSegments; s++ {
			a := r*stride + s
			b := a + stride
			// Wound clockwise seen from outside.
			indices = append(indices, a, a+1, b, a+1, b+1, b)
		}
	}
	return positions, indices
}
