package model

import (
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
)

// InstancedAttributeBlock is the per-instance vertex data of a model: the first three rows of its
// world matrix followed by user attributes. Instanced buffers append Data once per instance.
type InstancedAttributeBlock struct {
	Attributes []gfx.Attribute
	Data       []byte

	offsets map[string]uint32
}

func newInstancedAttributeBlock() *InstancedAttributeBlock {
	b := &InstancedAttributeBlock{offsets: make(map[string]uint32)}
	for _, name := range []string{gfx.AttrMatWorld0, gfx.AttrMatWorld1, gfx.AttrMatWorld2} {
		b.add(gfx.Attribute{Name: name, Format: gputypes.VertexFormatFloat32x4, IsInstanced: true})
	}
	return b
}

func (b *InstancedAttributeBlock) add(attr gfx.Attribute) {
	attr.IsInstanced = true
	b.offsets[attr.Name] = uint32(len(b.Data))
	b.Attributes = append(b.Attributes, attr)
	b.Data = append(b.Data, make([]byte, gfx.FormatSize(attr))...)
}

// Stride returns the byte size of one instance.
func (b *InstancedAttributeBlock) Stride() uint32 {
	return uint32(len(b.Data))
}

// SetFloats writes float components of a named attribute. Extra values are ignored.
//
// Parameters:
//   - name: the attribute name
//   - values: the components
//
// Returns:
//   - bool: false when the block has no attribute of that name
func (b *InstancedAttributeBlock) SetFloats(name string, values ...float32) bool {
	off, ok := b.offsets[name]
	if !ok {
		return false
	}
	size := b.size(name)
	for i, v := range values {
		if uint32(i+1)*4 > size {
			break
		}
		binary.LittleEndian.PutUint32(b.Data[off+uint32(i)*4:], math.Float32bits(v))
	}
	return true
}

// Floats reads the float components of a named attribute.
func (b *InstancedAttributeBlock) Floats(name string) []float32 {
	off, ok := b.offsets[name]
	if !ok {
		return nil
	}
	out := make([]float32, b.size(name)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b.Data[off+uint32(i)*4:]))
	}
	return out
}

func (b *InstancedAttributeBlock) size(name string) uint32 {
	for _, a := range b.Attributes {
		if a.Name == name {
			return gfx.FormatSize(a)
		}
	}
	return 0
}

// setWorld writes the first three rows of the world matrix.
func (b *InstancedAttributeBlock) setWorld(m mgl32.Mat4) {
	for r, name := range []string{gfx.AttrMatWorld0, gfx.AttrMatWorld1, gfx.AttrMatWorld2} {
		row := m.Row(r)
		b.SetFloats(name, row[0], row[1], row[2], row[3])
	}
}
