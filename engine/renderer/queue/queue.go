// Package queue collects visible sub-model passes into sortable draw lists and records them.
package queue

import (
	"slices"

	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/culling"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
)

// RenderPass is one queued draw: the sort key and the sub-model pass it draws.
type RenderPass struct {
	// Hash is pass priority<<16 | sub-model priority<<8 | pass index.
	Hash     uint32
	Depth    float32
	ShaderID uint32
	SubModel model.SubModel
	PassIdx  int
}

// SortHash builds the primary sort key of a queued draw.
//
// Parameters:
//   - passPriority: the pass priority
//   - subModelPriority: the sub-model priority
//   - passIdx: the pass index within the sub-model
//
// Returns:
//   - uint32: the sort hash
func SortHash(passPriority, subModelPriority uint32, passIdx int) uint32 {
	return passPriority<<16 | (subModelPriority&0xff)<<8 | uint32(passIdx)&0xff
}

// OpaqueCompare orders by hash, then front to back, then shader.
func OpaqueCompare(a, b *RenderPass) int {
	if a.Hash != b.Hash {
		return cmpUint32(a.Hash, b.Hash)
	}
	if a.Depth != b.Depth {
		return cmpFloat32(a.Depth, b.Depth)
	}
	return cmpUint32(a.ShaderID, b.ShaderID)
}

// TransparentCompare orders by hash, then back to front, then shader.
func TransparentCompare(a, b *RenderPass) int {
	if a.Hash != b.Hash {
		return cmpUint32(a.Hash, b.Hash)
	}
	if a.Depth != b.Depth {
		return cmpFloat32(b.Depth, a.Depth)
	}
	return cmpUint32(a.ShaderID, b.ShaderID)
}

// Desc configures which passes a queue accepts and how it sorts them.
type Desc struct {
	// IsTransparent selects passes whose first blend target blends.
	IsTransparent bool

	// Phases is the mask of accepted pass phases.
	Phases material.Phase

	// SortFunc orders the queue; nil selects OpaqueCompare or TransparentCompare from IsTransparent.
	SortFunc func(a, b *RenderPass) int
}

// renderQueue is the implementation of the RenderQueue interface.
type renderQueue struct {
	desc    Desc
	cache   pipeline.Cache
	entries []RenderPass
}

// RenderQueue is a per-phase draw list rebuilt every frame. Its backing storage is retained across
// frames.
type RenderQueue interface {
	// Desc returns the queue configuration.
	Desc() Desc

	// Clear empties the queue, keeping its storage.
	Clear()

	// InsertRenderPass queues one pass of one sub-model of a visible object. The pass is rejected when
	// its transparency differs from the queue's or its phase is outside the queue's phase mask.
	//
	// Parameters:
	//   - ro: the visible object
	//   - subModelIdx: the sub-model index within the object's model
	//   - passIdx: the pass index within the sub-model
	//
	// Returns:
	//   - bool: true if the pass was queued
	InsertRenderPass(ro culling.RenderObject, subModelIdx, passIdx int) bool

	// Sort orders the queue with the configured comparator. Equal entries keep insertion order.
	Sort()

	// RecordCommandBuffer records one draw per entry in queue order.
	//
	// Parameters:
	//   - device: the device creating missing pipeline states
	//   - renderPass: the render pass being recorded
	//   - cmd: the command buffer to record into
	RecordCommandBuffer(device gfx.Device, renderPass gfx.RenderPass, cmd gfx.CommandBuffer)

	// Len returns the number of queued entries.
	Len() int

	// Entries returns the queued entries; callers must not modify the slice.
	Entries() []RenderPass
}

var _ RenderQueue = &renderQueue{}

// NewRenderQueue creates an empty RenderQueue.
//
// Parameters:
//   - cache: the pipeline state cache used while recording
//   - desc: the transparency class, phase mask and comparator of the queue
//
// Returns:
//   - RenderQueue: the queue
func NewRenderQueue(cache pipeline.Cache, desc Desc) RenderQueue {
	if desc.SortFunc == nil {
		desc.SortFunc = OpaqueCompare
		if desc.IsTransparent {
			desc.SortFunc = TransparentCompare
		}
	}
	return &renderQueue{desc: desc, cache: cache, entries: make([]RenderPass, 0, 64)}
}

func (q *renderQueue) Desc() Desc {
	return q.desc
}

func (q *renderQueue) Clear() {
	clear(q.entries)
	q.entries = q.entries[:0]
}

func (q *renderQueue) InsertRenderPass(ro culling.RenderObject, subModelIdx, passIdx int) bool {
	subModels := ro.Model.SubModels()
	if subModelIdx < 0 || subModelIdx >= len(subModels) {
		return false
	}
	sm := subModels[subModelIdx]
	passes := sm.Passes()
	if passIdx < 0 || passIdx >= len(passes) {
		return false
	}
	p := passes[passIdx]
	if p.IsTransparent() != q.desc.IsTransparent || p.Phase()&q.desc.Phases == 0 {
		return false
	}
	var shaderID uint32
	if s := sm.Shader(passIdx); s != nil {
		shaderID = s.TypedID()
	}
	q.entries = append(q.entries, RenderPass{
		Hash:     SortHash(p.Priority(), sm.Priority(), passIdx),
		Depth:    ro.Depth,
		ShaderID: shaderID,
		SubModel: sm,
		PassIdx:  passIdx,
	})
	return true
}

func (q *renderQueue) Sort() {
	slices.SortStableFunc(q.entries, func(a, b RenderPass) int {
		return q.desc.SortFunc(&a, &b)
	})
}

func (q *renderQueue) RecordCommandBuffer(device gfx.Device, renderPass gfx.RenderPass, cmd gfx.CommandBuffer) {
	for i := range q.entries {
		e := &q.entries[i]
		p := e.SubModel.Passes()[e.PassIdx]
		ia := e.SubModel.InputAssembler()
		pso := q.cache.GetOrCreate(device, p, e.SubModel.Shader(e.PassIdx), renderPass, ia)
		if pso == nil {
			continue
		}
		cmd.BindPipelineState(pso)
		cmd.BindDescriptorSet(gfx.SetIndexMaterial, p.DescriptorSet(), nil)
		cmd.BindDescriptorSet(gfx.SetIndexLocal, e.SubModel.DescriptorSet(), nil)
		cmd.BindInputAssembler(ia)
		cmd.Draw(ia)
	}
}

func (q *renderQueue) Len() int {
	return len(q.entries)
}

func (q *renderQueue) Entries() []RenderPass {
	return q.entries
}

func cmpUint32(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpFloat32(a, b float32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
