// Package batching merges compatible draws into GPU-instanced and vertex-merged batches. Draws
// that do not fit a batch are left to the caller, which issues them as standalone draws.
package batching

import (
	"github.com/Carmen-Shannon/oxy-render/engine/logger"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pool"
	"github.com/gogpu/gputypes"
	"go.uber.org/zap"
)

const (
	// MaxInstances caps the instance count of one instanced draw.
	MaxInstances = 1024

	// InitialInstanceCapacity is the instance capacity of a new instanced draw.
	InitialInstanceCapacity = 32
)

// Instance is one instanced draw: a clone of the source input assembler with an extra
// per-instance vertex stream.
type Instance struct {
	Count    uint32
	Capacity uint32
	Stride   uint32

	// Data is the CPU copy of the instance stream, Capacity * Stride bytes.
	Data []byte

	Shader        gfx.Shader
	DescriptorSet gfx.DescriptorSet

	source gfx.InputAssembler
	vb     pool.Handle
	ia     pool.Handle
	pools  *pool.Pools
}

// InputAssembler returns the input assembler the instanced draw is issued with.
func (i *Instance) InputAssembler() gfx.InputAssembler {
	return i.pools.InputAssembler.Get(i.ia)
}

// Buffer returns the per-instance vertex buffer.
func (i *Instance) Buffer() gfx.Buffer {
	return i.pools.Buffer.Get(i.vb)
}

// matches reports whether a sub-model drawn with shader can join the instance.
func (i *Instance) matches(src gfx.InputAssembler, shader gfx.Shader) bool {
	if i.Shader != shader {
		return false
	}
	if i.source == src {
		return true
	}
	return i.source.IndexBuffer() == src.IndexBuffer() && sameBuffers(i.source.VertexBuffers(), src.VertexBuffers())
}

func sameBuffers(a, b []gfx.Buffer) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if a[k] != b[k] {
			return false
		}
	}
	return true
}

// instancedBuffer is the implementation of the InstancedBuffer interface.
type instancedBuffer struct {
	pools          *pool.Pools
	pass           material.Pass
	instances      []*Instance
	dynamicOffsets []uint32
	pending        bool
}

// InstancedBuffer merges sub-models sharing geometry into instanced draws for one pass.
type InstancedBuffer interface {
	// Pass returns the pass the buffer batches for.
	Pass() material.Pass

	// Merge appends one instance of a sub-model. An existing draw with the same geometry and shader
	// and fewer than MaxInstances instances is reused; otherwise a new draw is created.
	//
	// Parameters:
	//   - sm: the sub-model to merge
	//   - attrs: the per-instance attributes of the sub-model's model
	//   - passIdx: the index of the pass within the sub-model
	//   - shaderOverride: the shader variant to draw with, nil for the sub-model's own variant
	//
	// Returns:
	//   - bool: false when the sub-model cannot be instanced and must be drawn on its own
	Merge(sm model.SubModel, attrs *model.InstancedAttributeBlock, passIdx int, shaderOverride gfx.Shader) bool

	// UploadBuffers uploads the instance streams of every non-empty draw and sets their instance counts.
	//
	// Parameters:
	//   - cmd: the command buffer to record the uploads into
	UploadBuffers(cmd gfx.CommandBuffer)

	// Clear resets every instance count, keeping the buffers for the next frame.
	Clear()

	// Destroy releases every buffer and input assembler.
	Destroy()

	// Instances returns the instanced draws, including empty ones.
	Instances() []*Instance

	// HasPendingModels reports whether anything was merged since the last Clear.
	HasPendingModels() bool

	// DynamicOffsets returns the dynamic offsets bound with the local set of every draw.
	DynamicOffsets() []uint32

	// SetDynamicOffsets sets the dynamic offsets bound with the local set of every draw.
	SetDynamicOffsets(offsets ...uint32)
}

var _ InstancedBuffer = &instancedBuffer{}

// NewInstancedBuffer creates an empty InstancedBuffer for a pass.
//
// Parameters:
//   - pools: the pools buffers and input assemblers are allocated from
//   - pass: the pass the buffer batches for
//
// Returns:
//   - InstancedBuffer: the buffer
func NewInstancedBuffer(pools *pool.Pools, pass material.Pass) InstancedBuffer {
	return &instancedBuffer{pools: pools, pass: pass}
}

func (b *instancedBuffer) Pass() material.Pass {
	return b.pass
}

func (b *instancedBuffer) Merge(sm model.SubModel, attrs *model.InstancedAttributeBlock, passIdx int, shaderOverride gfx.Shader) bool {
	if sm == nil || attrs == nil {
		return false
	}
	stride := attrs.Stride()
	src := sm.InputAssembler()
	shader := shaderOverride
	if shader == nil {
		shader = sm.Shader(passIdx)
	}
	if stride == 0 || src == nil || shader == nil {
		return false
	}
	ds := sm.DescriptorSet()

	for _, inst := range b.instances {
		if inst.Count >= MaxInstances || !inst.matches(src, shader) {
			continue
		}
		if inst.Stride != stride {
			return false
		}
		if inst.Count >= inst.Capacity && !b.grow(inst) {
			return false
		}
		inst.DescriptorSet = ds
		copy(inst.Data[inst.Stride*inst.Count:], attrs.Data)
		inst.Count++
		b.pending = true
		return true
	}

	inst, ok := b.newInstance(src, attrs, shader)
	if !ok {
		return false
	}
	inst.DescriptorSet = ds
	copy(inst.Data, attrs.Data)
	inst.Count = 1
	b.instances = append(b.instances, inst)
	b.pending = true
	return true
}

// grow doubles the capacity of an instance, keeping the merged bytes.
func (b *instancedBuffer) grow(inst *Instance) bool {
	capacity := min(inst.Capacity*2, MaxInstances)
	if err := inst.Buffer().Resize(capacity * inst.Stride); err != nil {
		logger.Logger().Warn("instance buffer resize failed", zap.Uint32("capacity", capacity), zap.Error(err))
		return false
	}
	data := make([]byte, capacity*inst.Stride)
	copy(data, inst.Data)
	inst.Data = data
	inst.Capacity = capacity
	return true
}

func (b *instancedBuffer) newInstance(src gfx.InputAssembler, attrs *model.InstancedAttributeBlock, shader gfx.Shader) (*Instance, bool) {
	stride := attrs.Stride()
	vb, err := b.pools.Buffer.Alloc(gfx.BufferInfo{
		Label:  "instanced attributes",
		Usage:  gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
		Size:   stride * InitialInstanceCapacity,
		Stride: stride,
	})
	if err != nil {
		logger.Logger().Warn("instance buffer creation failed", zap.Error(err))
		return nil, false
	}

	srcVBs := src.VertexBuffers()
	stream := uint32(len(srcVBs))
	attributes := make([]gfx.Attribute, 0, len(src.Attributes())+len(attrs.Attributes))
	attributes = append(attributes, src.Attributes()...)
	for _, a := range attrs.Attributes {
		a.Stream = stream
		a.IsInstanced = true
		attributes = append(attributes, a)
	}
	vbs := make([]gfx.Buffer, 0, len(srcVBs)+1)
	vbs = append(vbs, srcVBs...)
	vbs = append(vbs, b.pools.Buffer.Get(vb))

	ia, err := b.pools.InputAssembler.Alloc(gfx.InputAssemblerInfo{
		Attributes:    attributes,
		VertexBuffers: vbs,
		IndexBuffer:   src.IndexBuffer(),
	})
	if err != nil {
		b.pools.Buffer.Free(vb)
		logger.Logger().Warn("instanced input assembler creation failed", zap.Error(err))
		return nil, false
	}
	inst := &Instance{
		Capacity: InitialInstanceCapacity,
		Stride:   stride,
		Data:     make([]byte, stride*InitialInstanceCapacity),
		Shader:   shader,
		source:   src,
		vb:       vb,
		ia:       ia,
		pools:    b.pools,
	}
	iaObj := inst.InputAssembler()
	iaObj.SetVertexCount(src.VertexCount())
	iaObj.SetIndexCount(src.IndexCount())
	logger.Logger().Debug("instanced draw created",
		zap.Uint32("pass", b.pass.Handle().Index()),
		zap.Uint32("stride", stride),
	)
	return inst, true
}

func (b *instancedBuffer) UploadBuffers(cmd gfx.CommandBuffer) {
	for _, inst := range b.instances {
		if inst.Count == 0 {
			continue
		}
		cmd.UpdateBuffer(inst.Buffer(), inst.Data[:inst.Count*inst.Stride])
		inst.InputAssembler().SetInstanceCount(inst.Count)
	}
}

func (b *instancedBuffer) Clear() {
	for _, inst := range b.instances {
		inst.Count = 0
		if ia := inst.InputAssembler(); ia != nil {
			ia.SetInstanceCount(0)
		}
	}
	b.pending = false
}

func (b *instancedBuffer) Destroy() {
	for _, inst := range b.instances {
		b.pools.InputAssembler.Free(inst.ia)
		b.pools.Buffer.Free(inst.vb)
	}
	b.instances = nil
	b.pending = false
}

func (b *instancedBuffer) Instances() []*Instance {
	return b.instances
}

func (b *instancedBuffer) HasPendingModels() bool {
	return b.pending
}

func (b *instancedBuffer) DynamicOffsets() []uint32 {
	return b.dynamicOffsets
}

func (b *instancedBuffer) SetDynamicOffsets(offsets ...uint32) {
	b.dynamicOffsets = append(b.dynamicOffsets[:0], offsets...)
}
