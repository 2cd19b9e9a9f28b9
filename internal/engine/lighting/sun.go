package lighting

import (
	gomath "math"

	"github.com/Faultbox/umbra/pkg/math"
)

// SunDirection converts a longitude/latitude pair in degrees to a unit
// vector pointing towards the sun. Longitude rotates around Y, latitude is
// the elevation above the horizon; a negative latitude puts the sun below it.
func SunDirection(longitude, latitude float32) math.Vec3 {
	lonRad := float64(longitude) * gomath.Pi / 180.0
	latRad := float64(latitude) * gomath.Pi / 180.0

	return math.Vec3{
		X: float32(gomath.Cos(latRad) * gomath.Sin(lonRad)),
		Y: float32(gomath.Sin(latRad)),
		Z: float32(gomath.Cos(latRad) * gomath.Cos(lonRad)),
	}
}

// SunStrength darkens the sun while it rains. The rain weight is scaled so
// the sun dims as fast as the fog thickens.
func SunStrength(clear, rainy, rainWeight float32) float32 {
	return math.Lerp(clear, rainy, min(1, rainWeight*2))
}
