package model

import (
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx"
	"github.com/go-gl/mathgl/mgl32"
)

// MeshBuilderOption is a function that configures a mesh during construction.
type MeshBuilderOption func(*mesh)

// WithMeshName sets the mesh name used in buffer labels.
func WithMeshName(name string) MeshBuilderOption {
	return func(m *mesh) {
		m.name = name
	}
}

// WithStream appends a vertex stream. The attributes are assigned to the new stream.
//
// Parameters:
//   - data: the interleaved vertex data
//   - stride: the byte stride of one vertex
//   - attrs: the attributes read from the stream
//
// Returns:
//   - MeshBuilderOption: a function that appends the stream to a mesh
func WithStream(data []byte, stride uint32, attrs ...gfx.Attribute) MeshBuilderOption {
	return func(m *mesh) {
		stream := uint32(len(m.streams))
		for _, a := range attrs {
			a.Stream = stream
			m.attributes = append(m.attributes, a)
		}
		m.streams = append(m.streams, FlatBuffer{Stride: stride, Count: uint32(len(data)) / max(stride, 1), Data: data})
	}
}

// WithVertices appends a GPUVertex stream and, unless bounds were given, derives the bounds from it.
//
// Parameters:
//   - vertices: the vertices
//
// Returns:
//   - MeshBuilderOption: a function that appends the stream to a mesh
func WithVertices(vertices []GPUVertex) MeshBuilderOption {
	return func(m *mesh) {
		WithStream(MarshalVertices(vertices), 24, VertexAttributes(0)...)(m)
		if !m.hasBounds {
			m.bounds = ComputeBounds(vertices)
			m.hasBounds = true
		}
	}
}

// WithIndices sets the index data of the mesh.
func WithIndices(indices []uint32) MeshBuilderOption {
	return func(m *mesh) {
		m.indices = indices
	}
}

// WithBounds sets the local bounds of the mesh.
func WithBounds(bounds common.AABB) MeshBuilderOption {
	return func(m *mesh) {
		m.bounds = bounds
		m.hasBounds = true
	}
}

// BoxVertices returns the 24 vertices and 36 indices of an axis-aligned box centered on the origin,
// with one normal per face.
//
// Parameters:
//   - halfExtents: the half size of the box along each axis
//
// Returns:
//   - []GPUVertex: four vertices per face
//   - []uint32: two counter-clockwise triangles per face
func BoxVertices(halfExtents mgl32.Vec3) ([]GPUVertex, []uint32) {
	faces := []struct{ n, u, v mgl32.Vec3 }{
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
	}
	vertices := make([]GPUVertex, 0, 24)
	indices := make([]uint32, 0, 36)
	for _, f := range faces {
		base := uint32(len(vertices))
		for _, c := range [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
			p := f.n.Add(f.u.Mul(c[0])).Add(f.v.Mul(c[1]))
			vertices = append(vertices, GPUVertex{
				Position: [3]float32{p[0] * halfExtents[0], p[1] * halfExtents[1], p[2] * halfExtents[2]},
				Normal:   f.n,
			})
		}
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	return vertices, indices
}
