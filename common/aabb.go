package common

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// AABB is an axis-aligned bounding box stored as a center and half extents.
type AABB struct {
	Center      mgl32.Vec3
	HalfExtents mgl32.Vec3
}

// Sphere is a bounding sphere.
type Sphere struct {
	Center mgl32.Vec3
	Radius float32
}

// NewAABBFromMinMax builds an AABB from its minimum and maximum corners.
//
// Parameters:
//   - minPos: the minimum corner
//   - maxPos: the maximum corner
//
// Returns:
//   - AABB: the box spanning both corners
func NewAABBFromMinMax(minPos, maxPos mgl32.Vec3) AABB {
	return AABB{
		Center:      minPos.Add(maxPos).Mul(0.5),
		HalfExtents: maxPos.Sub(minPos).Mul(0.5),
	}
}

// NewAABBFromPoints returns the smallest AABB containing every point. An empty input yields the zero AABB.
func NewAABBFromPoints(points ...mgl32.Vec3) AABB {
	if len(points) == 0 {
		return AABB{}
	}
	lo, hi := points[0], points[0]
	for _, p := range points[1:] {
		lo = minVec3(lo, p)
		hi = maxVec3(hi, p)
	}
	return NewAABBFromMinMax(lo, hi)
}

// Min returns the minimum corner.
func (a AABB) Min() mgl32.Vec3 {
	return a.Center.Sub(a.HalfExtents)
}

// Max returns the maximum corner.
func (a AABB) Max() mgl32.Vec3 {
	return a.Center.Add(a.HalfExtents)
}

// MergeAABB returns the union of two boxes.
func MergeAABB(a, b AABB) AABB {
	return NewAABBFromMinMax(minVec3(a.Min(), b.Min()), maxVec3(a.Max(), b.Max()))
}

// Transform returns the box that bounds this box after applying m.
// The center is transformed as a point and the extents through the absolute
// values of the upper 3x3 block.
//
// Parameters:
//   - m: the affine transform to apply
//
// Returns:
//   - AABB: the transformed bounds
func (a AABB) Transform(m mgl32.Mat4) AABB {
	center := m.Mul4x1(a.Center.Vec4(1)).Vec3()
	var ext mgl32.Vec3
	for r := 0; r < 3; r++ {
		ext[r] = abs32(m.At(r, 0))*a.HalfExtents[0] +
			abs32(m.At(r, 1))*a.HalfExtents[1] +
			abs32(m.At(r, 2))*a.HalfExtents[2]
	}
	return AABB{Center: center, HalfExtents: ext}
}

// SphereFromAABB returns the sphere circumscribing the box.
func SphereFromAABB(a AABB) Sphere {
	return Sphere{Center: a.Center, Radius: a.HalfExtents.Len()}
}

func minVec3(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{min(a[0], b[0]), min(a[1], b[1]), min(a[2], b[2])}
}

func maxVec3(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{max(a[0], b[0]), max(a[1], b[1]), max(a[2], b[2])}
}

func abs32(v float32) float32 {
	return float32(math.Abs(float64(v)))
}
