package common

import "github.com/go-gl/mathgl/mgl32"

// AABBFrustum reports whether the box overlaps or lies inside the frustum.
// For every plane the most-positive vertex along the plane normal is tested; the box
// is outside as soon as that vertex falls behind a plane. Boxes straddling a plane
// are reported as visible.
//
// Parameters:
//   - a: the box to test
//   - f: the frustum with inward-facing planes
//
// Returns:
//   - bool: false only when the box is fully outside at least one plane
func AABBFrustum(a AABB, f Frustum) bool {
	for i := range f.Planes {
		p := &f.Planes[i]
		r := abs32(p.Normal[0])*a.HalfExtents[0] +
			abs32(p.Normal[1])*a.HalfExtents[1] +
			abs32(p.Normal[2])*a.HalfExtents[2]
		if p.Normal.Dot(a.Center)+p.Distance+r < 0 {
			return false
		}
	}
	return true
}

// SphereFrustum reports whether the sphere overlaps or lies inside the frustum.
func SphereFrustum(s Sphere, f Frustum) bool {
	for i := range f.Planes {
		if f.Planes[i].SignedDistance(s.Center) < -s.Radius {
			return false
		}
	}
	return true
}

// SphereAABB reports whether the sphere and the box overlap.
func SphereAABB(s Sphere, a AABB) bool {
	lo, hi := a.Min(), a.Max()
	var closest mgl32.Vec3
	for i := 0; i < 3; i++ {
		closest[i] = mgl32.Clamp(s.Center[i], lo[i], hi[i])
	}
	d := closest.Sub(s.Center)
	return d.Dot(d) <= s.Radius*s.Radius
}

// AABBAABB reports whether two boxes overlap. Touching faces count as overlap.
func AABBAABB(a, b AABB) bool {
	for i := 0; i < 3; i++ {
		if abs32(a.Center[i]-b.Center[i]) > a.HalfExtents[i]+b.HalfExtents[i] {
			return false
		}
	}
	return true
}
