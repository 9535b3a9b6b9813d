package model

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pool"
	"github.com/gogpu/gputypes"
)

// ErrEmptyMesh is returned when a mesh is created without vertex streams.
var ErrEmptyMesh = errors.New("model: mesh has no vertex streams")

// FlatBuffer is one de-indexed vertex stream of a mesh, the form in which vertex data is merged
// into batched buffers.
type FlatBuffer struct {
	Stride uint32
	Count  uint32
	Data   []byte
}

type mesh struct {
	pools *pool.Pools
	name  string

	attributes []gfx.Attribute
	streams    []FlatBuffer
	indices    []uint32
	bounds     common.AABB
	hasBounds  bool

	vertexBuffers []pool.Handle
	indexBuffer   pool.Handle
	flat          []FlatBuffer
	uploaded      bool
}

// Mesh defines the interface for the GPU geometry of one sub-model: vertex streams, an optional
// uint32 index buffer and the attributes describing them.
type Mesh interface {
	// Name returns the mesh name.
	//
	// Returns:
	//   - string: the name
	Name() string

	// Attributes returns the vertex attributes of every stream.
	//
	// Returns:
	//   - []gfx.Attribute: the attributes
	Attributes() []gfx.Attribute

	// VertexBuffers returns one GPU buffer per vertex stream.
	//
	// Returns:
	//   - []gfx.Buffer: the vertex buffers
	VertexBuffers() []gfx.Buffer

	// IndexBuffer returns the index buffer.
	//
	// Returns:
	//   - gfx.Buffer: the index buffer, nil for non-indexed meshes
	IndexBuffer() gfx.Buffer

	// VertexCount returns the number of vertices of the first stream.
	//
	// Returns:
	//   - uint32: the vertex count
	VertexCount() uint32

	// IndexCount returns the number of indices.
	//
	// Returns:
	//   - uint32: the index count, 0 for non-indexed meshes
	IndexCount() uint32

	// Bounds returns the local-space bounds of the mesh.
	//
	// Returns:
	//   - common.AABB: the bounds
	Bounds() common.AABB

	// FlatBuffers returns the streams with the index buffer expanded, built on first use.
	//
	// Returns:
	//   - []FlatBuffer: one de-indexed buffer per stream
	FlatBuffers() []FlatBuffer

	// InputAssemblerInfo returns the description of an input assembler drawing the mesh.
	//
	// Returns:
	//   - gfx.InputAssemblerInfo: attributes, vertex buffers and index buffer
	InputAssemblerInfo() gfx.InputAssemblerInfo

	// Upload writes the vertex and index data on the first call.
	//
	// Parameters:
	//   - cmd: the command buffer the writes are recorded into
	Upload(cmd gfx.CommandBuffer)

	// Destroy frees the GPU buffers of the mesh.
	Destroy()
}

var _ Mesh = &mesh{}

// NewMesh creates a mesh and its GPU buffers.
//
// Parameters:
//   - pools: the pools the buffers are allocated from
//   - options: variadic list of MeshBuilderOption functions to configure the mesh
//
// Returns:
//   - Mesh: the mesh
//   - error: ErrEmptyMesh without streams, or the device error of a failed buffer creation
func NewMesh(pools *pool.Pools, options ...MeshBuilderOption) (Mesh, error) {
	m := &mesh{pools: pools}
	for _, opt := range options {
		opt(m)
	}
	if len(m.streams) == 0 {
		return nil, ErrEmptyMesh
	}
	for i, s := range m.streams {
		h, err := pools.Buffer.Alloc(gfx.BufferInfo{
			Label:  fmt.Sprintf("%s vb%d", m.name, i),
			Usage:  gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
			Size:   uint32(len(s.Data)),
			Stride: s.Stride,
		})
		if err != nil {
			m.Destroy()
			return nil, err
		}
		m.vertexBuffers = append(m.vertexBuffers, h)
	}
	if len(m.indices) > 0 {
		h, err := pools.Buffer.Alloc(gfx.BufferInfo{
			Label:  m.name + " ib",
			Usage:  gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst,
			Size:   uint32(len(m.indices) * 4),
			Stride: 4,
		})
		if err != nil {
			m.Destroy()
			return nil, err
		}
		m.indexBuffer = h
	}
	return m, nil
}

func (m *mesh) Name() string {
	return m.name
}

func (m *mesh) Attributes() []gfx.Attribute {
	return m.attributes
}

func (m *mesh) VertexBuffers() []gfx.Buffer {
	out := make([]gfx.Buffer, len(m.vertexBuffers))
	for i, h := range m.vertexBuffers {
		out[i] = m.pools.Buffer.Get(h)
	}
	return out
}

func (m *mesh) IndexBuffer() gfx.Buffer {
	if m.indexBuffer.IsNull() {
		return nil
	}
	return m.pools.Buffer.Get(m.indexBuffer)
}

func (m *mesh) VertexCount() uint32 {
	s := m.streams[0]
	if s.Stride == 0 {
		return 0
	}
	return uint32(len(s.Data)) / s.Stride
}

func (m *mesh) IndexCount() uint32 {
	return uint32(len(m.indices))
}

func (m *mesh) Bounds() common.AABB {
	return m.bounds
}

func (m *mesh) FlatBuffers() []FlatBuffer {
	if m.flat != nil {
		return m.flat
	}
	if len(m.indices) == 0 {
		m.flat = m.streams
		return m.flat
	}
	m.flat = make([]FlatBuffer, len(m.streams))
	for i, s := range m.streams {
		data := make([]byte, 0, len(m.indices)*int(s.Stride))
		for _, idx := range m.indices {
			start := idx * s.Stride
			if int(start+s.Stride) > len(s.Data) {
				data = append(data, make([]byte, s.Stride)...)
				continue
			}
			data = append(data, s.Data[start:start+s.Stride]...)
		}
		m.flat[i] = FlatBuffer{Stride: s.Stride, Count: uint32(len(m.indices)), Data: data}
	}
	return m.flat
}

func (m *mesh) InputAssemblerInfo() gfx.InputAssemblerInfo {
	return gfx.InputAssemblerInfo{
		Attributes:    m.attributes,
		VertexBuffers: m.VertexBuffers(),
		IndexBuffer:   m.IndexBuffer(),
	}
}

func (m *mesh) Upload(cmd gfx.CommandBuffer) {
	if m.uploaded {
		return
	}
	for i, h := range m.vertexBuffers {
		cmd.UpdateBuffer(m.pools.Buffer.Get(h), m.streams[i].Data)
	}
	if !m.indexBuffer.IsNull() {
		data := make([]byte, len(m.indices)*4)
		for i, idx := range m.indices {
			binary.LittleEndian.PutUint32(data[i*4:], idx)
		}
		cmd.UpdateBuffer(m.pools.Buffer.Get(m.indexBuffer), data)
	}
	m.uploaded = true
}

func (m *mesh) Destroy() {
	for _, h := range m.vertexBuffers {
		m.pools.Buffer.Free(h)
	}
	m.vertexBuffers = nil
	if !m.indexBuffer.IsNull() {
		m.pools.Buffer.Free(m.indexBuffer)
		m.indexBuffer = pool.NullHandle
	}
}
