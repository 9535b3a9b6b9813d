package common

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func testFrustum() Frustum {
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0})
	proj := mgl32.Perspective(mgl32.DegToRad(60), 1, 0.1, 100)
	return ExtractFrustumFromMatrix(proj.Mul4(view))
}

func approx(a, b, eps float32) bool {
	return math.Abs(float64(a-b)) <= float64(eps)
}

func TestAABBFrustum(t *testing.T) {
	f := testFrustum()
	tests := []struct {
		name string
		box  AABB
		want bool
	}{
		{"inside", AABB{Center: mgl32.Vec3{0, 0, -10}, HalfExtents: mgl32.Vec3{1, 1, 1}}, true},
		{"behind camera", AABB{Center: mgl32.Vec3{0, 0, 10}, HalfExtents: mgl32.Vec3{1, 1, 1}}, false},
		{"beyond far plane", AABB{Center: mgl32.Vec3{0, 0, -200}, HalfExtents: mgl32.Vec3{1, 1, 1}}, false},
		{"far to the left", AABB{Center: mgl32.Vec3{-100, 0, -10}, HalfExtents: mgl32.Vec3{1, 1, 1}}, false},
		{"straddles near plane", AABB{Center: mgl32.Vec3{0, 0, 0}, HalfExtents: mgl32.Vec3{1, 1, 1}}, true},
		{"straddles right plane", AABB{Center: mgl32.Vec3{6, 0, -10}, HalfExtents: mgl32.Vec3{1, 1, 1}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AABBFrustum(tt.box, f); got != tt.want {
				t.Errorf("AABBFrustum() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSphereFrustum(t *testing.T) {
	f := testFrustum()
	if !SphereFrustum(Sphere{Center: mgl32.Vec3{0, 0, -50}, Radius: 1}, f) {
		t.Error("sphere in front of the camera should be visible")
	}
	if SphereFrustum(Sphere{Center: mgl32.Vec3{0, 0, 20}, Radius: 5}, f) {
		t.Error("sphere behind the camera should be culled")
	}
	if !SphereFrustum(Sphere{Center: mgl32.Vec3{0, 0, 3}, Radius: 5}, f) {
		t.Error("sphere reaching across the near plane should be visible")
	}
}

func TestFrustumVertices(t *testing.T) {
	f := testFrustum()
	for i := 0; i < 4; i++ {
		if !approx(f.Vertices[i][2], -0.1, 1e-2) {
			t.Errorf("near corner %d z = %v, want -0.1", i, f.Vertices[i][2])
		}
	}
	for i := 4; i < 8; i++ {
		if !approx(f.Vertices[i][2], -100, 0.5) {
			t.Errorf("far corner %d z = %v, want -100", i, f.Vertices[i][2])
		}
	}
	if f.Vertices[0][0] >= 0 || f.Vertices[1][0] <= 0 {
		t.Errorf("corner x ordering wrong: %v %v", f.Vertices[0], f.Vertices[1])
	}
}

func TestAABBTransformAndMerge(t *testing.T) {
	box := AABB{HalfExtents: mgl32.Vec3{1, 1, 1}}
	m := mgl32.Translate3D(5, 0, 0).Mul4(mgl32.Scale3D(2, 1, 1))
	got := box.Transform(m)
	if got.Center != (mgl32.Vec3{5, 0, 0}) {
		t.Errorf("center = %v", got.Center)
	}
	if got.HalfExtents != (mgl32.Vec3{2, 1, 1}) {
		t.Errorf("half extents = %v", got.HalfExtents)
	}

	merged := MergeAABB(AABB{Center: mgl32.Vec3{-2, 0, 0}, HalfExtents: mgl32.Vec3{1, 1, 1}}, got)
	if merged.Min() != (mgl32.Vec3{-3, -1, -1}) || merged.Max() != (mgl32.Vec3{7, 1, 1}) {
		t.Errorf("merged = [%v, %v]", merged.Min(), merged.Max())
	}

	s := SphereFromAABB(AABB{HalfExtents: mgl32.Vec3{3, 4, 0}})
	if !approx(s.Radius, 5, 1e-5) {
		t.Errorf("radius = %v, want 5", s.Radius)
	}
}

func TestSphereAABBAndAABBAABB(t *testing.T) {
	box := AABB{HalfExtents: mgl32.Vec3{1, 1, 1}}
	if !SphereAABB(Sphere{Center: mgl32.Vec3{2, 0, 0}, Radius: 1.5}, box) {
		t.Error("overlapping sphere reported disjoint")
	}
	if SphereAABB(Sphere{Center: mgl32.Vec3{3, 3, 0}, Radius: 1}, box) {
		t.Error("disjoint sphere reported overlapping")
	}
	if !AABBAABB(box, AABB{Center: mgl32.Vec3{2, 0, 0}, HalfExtents: mgl32.Vec3{1, 1, 1}}) {
		t.Error("touching boxes should overlap")
	}
	if AABBAABB(box, AABB{Center: mgl32.Vec3{2.5, 0, 0}, HalfExtents: mgl32.Vec3{1, 1, 1}}) {
		t.Error("separated boxes should not overlap")
	}
}

func TestNextPowerOfTwo(t *testing.T) {
	tests := map[uint32]uint32{0: 1, 1: 1, 2: 2, 3: 4, 16: 16, 17: 32, 1000: 1024}
	for in, want := range tests {
		if got := NextPowerOfTwo(in); got != want {
			t.Errorf("NextPowerOfTwo(%d) = %d, want %d", in, got, want)
		}
	}
	if got := AlignUp(64, 256); got != 256 {
		t.Errorf("AlignUp(64, 256) = %d", got)
	}
}

func TestFrustumFromVertices(t *testing.T) {
	want := testFrustum()
	got := FrustumFromVertices(want.Vertices)
	for i := range want.Planes {
		for k := 0; k < 3; k++ {
			if !approx(got.Planes[i].Normal[k], want.Planes[i].Normal[k], 1e-2) {
				t.Errorf("plane %d normal = %v, want %v", i, got.Planes[i].Normal, want.Planes[i].Normal)
				break
			}
		}
	}
	if len(FrustumVertexFloats(got)) != 24 || len(FrustumPlaneFloats(got)) != 24 {
		t.Error("flattened frustum should hold 24 floats")
	}
	if !AABBFrustum(AABB{Center: mgl32.Vec3{0, 0, -10}, HalfExtents: mgl32.Vec3{1, 1, 1}}, got) {
		t.Error("box inside the rebuilt frustum reported outside")
	}
}
