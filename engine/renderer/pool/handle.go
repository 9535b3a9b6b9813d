// Package pool implements the handle-based allocators backing every render entity.
//
// Entities are addressed by a Handle instead of a pointer. Fixed-layout entities live in
// chunked BufferPools (struct-of-arrays over shared uint32 and float32 storage), device
// objects live in ObjectPools with constructor and destructor callbacks, and variable length
// handle lists live in an ArrayPool. Every pool is owned by a Pools set created per renderer.
package pool

import "fmt"

// Handle is an opaque reference to a pooled entity.
//
// Layout (least significant bit first):
//   - bits 0-23: index, (chunk << entryBits) | entry for buffer pools
//   - bit 24: pool flag, always set so that valid handles are never zero
//   - bits 25-31: the pool Type
//   - bits 32-63: the generation of the slot when the handle was issued
type Handle uint64

// NullHandle is the zero handle. It never refers to an entity.
const NullHandle Handle = 0

const (
	indexBits       = 24
	indexMask       = 1<<indexBits - 1
	poolFlag        = 1 << indexBits
	typeShift       = indexBits + 1
	typeMask        = 0x7f
	generationShift = 32

	// MaxIndex is the largest index a handle can address.
	MaxIndex = indexMask
)

// Type identifies the pool a handle was issued by.
type Type uint8

const (
	TypeNone Type = iota
	TypePass
	TypeSubModel
	TypeModel
	TypeCamera
	TypeNode
	TypeAABB
	TypeFrustum
	TypeLight
	TypeShadows
	TypeSubModelArray
	TypeModelArray
	TypeShader
	TypeDescriptorSet
	TypeDescriptorSetLayout
	TypeInputAssembler
	TypePipelineLayout
	TypeFramebuffer
	TypeRenderPass
	TypeBuffer
)

var typeNames = [...]string{
	TypeNone:                "none",
	TypePass:                "pass",
	TypeSubModel:            "sub-model",
	TypeModel:               "model",
	TypeCamera:              "camera",
	TypeNode:                "node",
	TypeAABB:                "aabb",
	TypeFrustum:             "frustum",
	TypeLight:               "light",
	TypeShadows:             "shadows",
	TypeSubModelArray:       "sub-model-array",
	TypeModelArray:          "model-array",
	TypeShader:              "shader",
	TypeDescriptorSet:       "descriptor-set",
	TypeDescriptorSetLayout: "descriptor-set-layout",
	TypeInputAssembler:      "input-assembler",
	TypePipelineLayout:      "pipeline-layout",
	TypeFramebuffer:         "framebuffer",
	TypeRenderPass:          "render-pass",
	TypeBuffer:              "buffer",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

func newHandle(t Type, index, generation uint32) Handle {
	return Handle(uint64(generation)<<generationShift |
		uint64(t&typeMask)<<typeShift |
		poolFlag |
		uint64(index&indexMask))
}

// IsNull reports whether the handle is the zero handle.
func (h Handle) IsNull() bool {
	return h == NullHandle
}

// Index returns the slot index encoded in the handle.
func (h Handle) Index() uint32 {
	return uint32(h) & indexMask
}

// Chunk returns the chunk part of the index for a pool with entryBits bits per chunk.
func (h Handle) Chunk(entryBits uint32) uint32 {
	return h.Index() >> entryBits
}

// Entry returns the entry part of the index for a pool with the given entry mask.
func (h Handle) Entry(entryMask uint32) uint32 {
	return h.Index() & entryMask
}

// Type returns the pool type encoded in the handle.
func (h Handle) Type() Type {
	return Type(uint64(h) >> typeShift & typeMask)
}

// Generation returns the slot generation encoded in the handle.
func (h Handle) Generation() uint32 {
	return uint32(uint64(h) >> generationShift)
}

func (h Handle) String() string {
	if h.IsNull() {
		return "null"
	}
	return fmt.Sprintf("%s#%d@%d", h.Type(), h.Index(), h.Generation())
}
