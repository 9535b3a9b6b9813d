package model

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
)

// BatchingCount is the number of world matrices in the LocalBatched uniform, which caps how many
// draws one merged vertex batch can hold.
const BatchingCount = 10

// Local descriptor set bindings.
const (
	LocalBinding        = 0
	LocalBatchedBinding = 2
)

// Byte sizes and offsets of the local uniforms.
const (
	LocalMatWorldOffset   = 0
	LocalMatWorldITOffset = 64
	LocalSize             = 128
	LocalBatchedSize      = BatchingCount * 64
)

// GPUVertex is the GPU-aligned representation of a single mesh vertex.
// Matches the a_position and a_normal inputs of the standard program.
// Size: 24 bytes (tightly packed vertex stream).
type GPUVertex struct {
	Position [3]float32 // offset  0: vertex position in model space (12 bytes)
	Normal   [3]float32 // offset 12: vertex normal for lighting (12 bytes)
}

// Size returns the size of the GPUVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUVertex struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 24-byte buffer ready for GPU upload.
func (g *GPUVertex) Marshal() []byte {
	buf := make([]byte, 24)
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.Position[i]))
		binary.LittleEndian.PutUint32(buf[12+i*4:], math.Float32bits(g.Normal[i]))
	}
	return buf
}

// VertexAttributes returns the attributes of a GPUVertex stream.
//
// Parameters:
//   - stream: the vertex buffer index the attributes are read from
//
// Returns:
//   - []gfx.Attribute: position and normal
func VertexAttributes(stream uint32) []gfx.Attribute {
	return []gfx.Attribute{
		{Name: gfx.AttrPosition, Format: gputypes.VertexFormatFloat32x3, Stream: stream},
		{Name: gfx.AttrNormal, Format: gputypes.VertexFormatFloat32x3, Stream: stream, Location: 1},
	}
}

// MarshalVertices packs vertices into one interleaved stream.
func MarshalVertices(vertices []GPUVertex) []byte {
	out := make([]byte, 0, len(vertices)*24)
	for i := range vertices {
		out = append(out, vertices[i].Marshal()...)
	}
	return out
}

// ComputeBounds returns the local bounds of the vertex positions.
//
// Parameters:
//   - vertices: the vertex data to compute the bounds from
//
// Returns:
//   - common.AABB: the smallest box containing every position
func ComputeBounds(vertices []GPUVertex) common.AABB {
	points := make([]mgl32.Vec3, len(vertices))
	for i := range vertices {
		points[i] = vertices[i].Position
	}
	return common.NewAABBFromPoints(points...)
}

// GPULocal is the GPU-aligned per-model uniform. Matches the WGSL Local struct of the standard program.
// Size: 128 bytes (two mat4x4<f32>).
type GPULocal struct {
	MatWorld   [16]float32 // offset  0: model-to-world transform
	MatWorldIT [16]float32 // offset 64: inverse transpose of MatWorld, for normals
}

// NewGPULocal builds the local uniform of a world matrix.
func NewGPULocal(world mgl32.Mat4) GPULocal {
	return GPULocal{MatWorld: world, MatWorldIT: world.Inv().Transpose()}
}

// Size returns the size of the GPULocal struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes (128)
func (g *GPULocal) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPULocal struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 128-byte buffer ready for GPU upload.
func (g *GPULocal) Marshal() []byte {
	buf := make([]byte, LocalSize)
	common.PutMat4(buf[LocalMatWorldOffset:], g.MatWorld)
	common.PutMat4(buf[LocalMatWorldITOffset:], g.MatWorldIT)
	return buf
}

// LocalSetLayoutInfo returns the fixed layout of the local descriptor set shared by every sub-model,
// instanced batch and merged batch.
//
// Returns:
//   - gfx.DescriptorSetLayoutInfo: Local at binding 0, the dynamic ForwardLight at binding 1 and
//     LocalBatched at binding 2
func LocalSetLayoutInfo() gfx.DescriptorSetLayoutInfo {
	vis := gputypes.ShaderStagesVertexFragment
	return gfx.DescriptorSetLayoutInfo{Bindings: []gputypes.BindGroupLayoutEntry{
		{
			Binding:    LocalBinding,
			Visibility: vis,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform, MinBindingSize: LocalSize},
		},
		{
			Binding:    light.ForwardLightBinding,
			Visibility: vis,
			Buffer: &gputypes.BufferBindingLayout{
				Type:             gputypes.BufferBindingTypeUniform,
				HasDynamicOffset: true,
				MinBindingSize:   light.ForwardLightSize,
			},
		},
		{
			Binding:    LocalBatchedBinding,
			Visibility: vis,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform, MinBindingSize: LocalBatchedSize},
		},
	}}
}
