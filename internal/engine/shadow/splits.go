// Package shadow renders the cascaded sun shadow maps and the point light
// shadow cubes.
package shadow

import gomath "math"

// ComputeCascadeSplits returns numCascades+1 split distances from near to far.
// Each split blends a logarithmic and a uniform distribution: lambda 1 is
// fully logarithmic, 0 fully uniform. With no cascades the result is
// [near, far].
func ComputeCascadeSplits(near, far float32, numCascades int, lambda float32) []float32 {
	if numCascades <= 0 {
		return []float32{near, far}
	}
	l := gomath.Min(gomath.Max(float64(lambda), 0), 1)
	n, f := float64(near), float64(far)

	splits := make([]float32, numCascades+1)
	splits[0] = near
	for i := 1; i < numCascades; i++ {
		si := float64(i) / float64(numCascades)
		uniform := n + (f-n)*si
		logSplit := uniform
		// The logarithmic split is undefined for a non-positive near plane.
		if n > 0 {
			logSplit = n * gomath.Pow(f/n, si)
		}
		splits[i] = float32(l*logSplit + (1-l)*uniform)
	}
	// Both distributions end at far.
	splits[numCascades] = far
	return splits
}
