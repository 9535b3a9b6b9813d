package common

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Plane represents a plane in 3D space using the equation: ax + by + cz + d = 0
// where (a, b, c) is the normal and d is the distance from origin.
type Plane struct {
	Normal   mgl32.Vec3
	Distance float32
}

// SignedDistance returns dot(n, p) + d. Positive values lie on the side the normal points to.
func (p Plane) SignedDistance(point mgl32.Vec3) float32 {
	return p.Normal.Dot(point) + p.Distance
}

// Frustum represents the six planes of a view frustum for culling.
// Planes are oriented so that positive half-space is inside the frustum.
// Vertices holds the eight world-space corners: index bit 0 selects -x/+x,
// bit 1 selects -y/+y and bit 2 selects the near/far plane.
type Frustum struct {
	Planes   [6]Plane // Left, Right, Bottom, Top, Near, Far
	Vertices [8]mgl32.Vec3
}

// FrustumPlane indices for clarity
const (
	FrustumLeft   = 0
	FrustumRight  = 1
	FrustumBottom = 2
	FrustumTop    = 3
	FrustumNear   = 4
	FrustumFar    = 5
)

// ExtractFrustumFromMatrix extracts frustum planes from a view-projection matrix.
// The matrix should be the combined Projection * View matrix with OpenGL clip-space depth
// ([-1, 1]), which is what mgl32.Perspective and mgl32.Ortho produce.
// Uses the Gribb/Hartmann method for plane extraction and unprojects the NDC cube
// corners for Vertices.
//
// Reference: https://www8.cs.umu.se/kurser/5DV051/HT12/lab/plane_extraction.pdf
//
// Parameters:
//   - viewProj: the view-projection matrix (column-major)
//
// Returns:
//   - Frustum: the extracted frustum with normalized planes
func ExtractFrustumFromMatrix(viewProj mgl32.Mat4) Frustum {
	var f Frustum
	m := viewProj

	// For column-major matrix M, element M[row][col] is at index col*4 + row.
	row := func(r int) mgl32.Vec4 {
		return mgl32.Vec4{m[r], m[4+r], m[8+r], m[12+r]}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	f.Planes[FrustumLeft] = planeFromVec4(r3.Add(r0))
	f.Planes[FrustumRight] = planeFromVec4(r3.Sub(r0))
	f.Planes[FrustumBottom] = planeFromVec4(r3.Add(r1))
	f.Planes[FrustumTop] = planeFromVec4(r3.Sub(r1))
	f.Planes[FrustumNear] = planeFromVec4(r3.Add(r2))
	f.Planes[FrustumFar] = planeFromVec4(r3.Sub(r2))

	f.Vertices = FrustumCorners(viewProj.Inv())
	return f
}

// FrustumCorners unprojects the eight corners of the OpenGL NDC cube through the
// inverse view-projection matrix. The ordering matches Frustum.Vertices.
//
// Parameters:
//   - invViewProj: the inverse of the view-projection matrix
//
// Returns:
//   - [8]mgl32.Vec3: the world-space corners
func FrustumCorners(invViewProj mgl32.Mat4) [8]mgl32.Vec3 {
	var out [8]mgl32.Vec3
	for i := range out {
		ndc := mgl32.Vec3{-1, -1, -1}
		if i&1 != 0 {
			ndc[0] = 1
		}
		if i&2 != 0 {
			ndc[1] = 1
		}
		if i&4 != 0 {
			ndc[2] = 1
		}
		out[i] = mgl32.TransformCoordinate(ndc, invViewProj)
	}
	return out
}

// planeFromVec4 builds a plane from (a, b, c, d) and normalizes it so that the normal has unit length.
func planeFromVec4(v mgl32.Vec4) Plane {
	p := Plane{Normal: v.Vec3(), Distance: v[3]}
	if length := p.Normal.Len(); length > 0 {
		invLen := 1.0 / length
		p.Normal = p.Normal.Mul(invLen)
		p.Distance *= invLen
	}
	return p
}

// FrustumFromVertices builds a frustum from its eight corners, ordered as in Frustum.Vertices.
// Plane normals are oriented towards the centroid of the corners.
//
// Parameters:
//   - v: the world-space corners
//
// Returns:
//   - Frustum: the frustum with inward-facing normalized planes
func FrustumFromVertices(v [8]mgl32.Vec3) Frustum {
	var centroid mgl32.Vec3
	for i := range v {
		centroid = centroid.Add(v[i])
	}
	centroid = centroid.Mul(1.0 / 8)

	faces := [6][3]int{
		FrustumLeft:   {0, 2, 4},
		FrustumRight:  {1, 3, 5},
		FrustumBottom: {0, 1, 4},
		FrustumTop:    {2, 3, 6},
		FrustumNear:   {0, 1, 2},
		FrustumFar:    {4, 5, 6},
	}
	f := Frustum{Vertices: v}
	for i, face := range faces {
		a, b, c := v[face[0]], v[face[1]], v[face[2]]
		n := b.Sub(a).Cross(c.Sub(a)).Normalize()
		p := Plane{Normal: n, Distance: -n.Dot(a)}
		if p.SignedDistance(centroid) < 0 {
			p.Normal = p.Normal.Mul(-1)
			p.Distance = -p.Distance
		}
		f.Planes[i] = p
	}
	return f
}

// FrustumVertexFloats flattens the corners into 24 floats.
func FrustumVertexFloats(f Frustum) []float32 {
	out := make([]float32, 0, 24)
	for _, v := range f.Vertices {
		out = append(out, v[0], v[1], v[2])
	}
	return out
}

// FrustumPlaneFloats flattens the planes into (nx, ny, nz, d) quadruples.
func FrustumPlaneFloats(f Frustum) []float32 {
	out := make([]float32, 0, 24)
	for _, p := range f.Planes {
		out = append(out, p.Normal[0], p.Normal[1], p.Normal[2], p.Distance)
	}
	return out
}
