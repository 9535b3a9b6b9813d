package batching

import (
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
)

// orderedSet keeps the first-insertion order of its members.
type orderedSet[T comparable] struct {
	index map[T]struct{}
	items []T
}

func newOrderedSet[T comparable]() orderedSet[T] {
	return orderedSet[T]{index: make(map[T]struct{})}
}

func (s *orderedSet[T]) add(v T) {
	if _, ok := s.index[v]; ok {
		return
	}
	s.index[v] = struct{}{}
	s.items = append(s.items, v)
}

func (s *orderedSet[T]) clear() {
	clear(s.index)
	clear(s.items)
	s.items = s.items[:0]
}

// instancedQueue is the implementation of the InstancedQueue interface.
type instancedQueue struct {
	cache pipeline.Cache
	set   orderedSet[InstancedBuffer]
}

// InstancedQueue records the instanced draws of the buffers merged into during a frame.
type InstancedQueue interface {
	// Add registers a buffer for this frame. Adding a buffer twice has no effect.
	Add(buf InstancedBuffer)

	// Clear clears every registered buffer and empties the queue.
	Clear()

	// UploadBuffers uploads every registered buffer.
	UploadBuffers(cmd gfx.CommandBuffer)

	// RecordCommandBuffer records one instanced draw per non-empty instance, buffers in registration order.
	//
	// Parameters:
	//   - device: the device creating missing pipeline states
	//   - renderPass: the render pass being recorded
	//   - cmd: the command buffer to record into
	RecordCommandBuffer(device gfx.Device, renderPass gfx.RenderPass, cmd gfx.CommandBuffer)

	// Buffers returns the registered buffers in registration order.
	Buffers() []InstancedBuffer
}

var _ InstancedQueue = &instancedQueue{}

// NewInstancedQueue creates an empty InstancedQueue recording through a pipeline cache.
func NewInstancedQueue(cache pipeline.Cache) InstancedQueue {
	return &instancedQueue{cache: cache, set: newOrderedSet[InstancedBuffer]()}
}

func (q *instancedQueue) Add(buf InstancedBuffer) {
	q.set.add(buf)
}

func (q *instancedQueue) Clear() {
	for _, buf := range q.set.items {
		buf.Clear()
	}
	q.set.clear()
}

func (q *instancedQueue) UploadBuffers(cmd gfx.CommandBuffer) {
	for _, buf := range q.set.items {
		if buf.HasPendingModels() {
			buf.UploadBuffers(cmd)
		}
	}
}

func (q *instancedQueue) RecordCommandBuffer(device gfx.Device, renderPass gfx.RenderPass, cmd gfx.CommandBuffer) {
	for _, buf := range q.set.items {
		if !buf.HasPendingModels() {
			continue
		}
		pass := buf.Pass()
		var last gfx.PipelineState
		for _, inst := range buf.Instances() {
			if inst.Count == 0 {
				continue
			}
			ia := inst.InputAssembler()
			pso := q.cache.GetOrCreate(device, pass, inst.Shader, renderPass, ia)
			if pso == nil {
				continue
			}
			if pso != last {
				cmd.BindPipelineState(pso)
				cmd.BindDescriptorSet(gfx.SetIndexMaterial, pass.DescriptorSet(), nil)
				last = pso
			}
			cmd.BindDescriptorSet(gfx.SetIndexLocal, inst.DescriptorSet, buf.DynamicOffsets())
			cmd.BindInputAssembler(ia)
			cmd.Draw(ia)
		}
	}
}

func (q *instancedQueue) Buffers() []InstancedBuffer {
	return q.set.items
}

// batchedQueue is the implementation of the BatchedQueue interface.
type batchedQueue struct {
	cache pipeline.Cache
	set   orderedSet[BatchedBuffer]
}

// BatchedQueue records the merged draws of the buffers merged into during a frame.
type BatchedQueue interface {
	// Add registers a buffer for this frame. Adding a buffer twice has no effect.
	Add(buf BatchedBuffer)

	// Clear clears every registered buffer and empties the queue.
	Clear()

	// UploadBuffers uploads every registered buffer.
	UploadBuffers(cmd gfx.CommandBuffer)

	// RecordCommandBuffer records one draw per non-empty batch, buffers in registration order.
	//
	// Parameters:
	//   - device: the device creating missing pipeline states
	//   - renderPass: the render pass being recorded
	//   - cmd: the command buffer to record into
	RecordCommandBuffer(device gfx.Device, renderPass gfx.RenderPass, cmd gfx.CommandBuffer)

	// Buffers returns the registered buffers in registration order.
	Buffers() []BatchedBuffer
}

var _ BatchedQueue = &batchedQueue{}

// NewBatchedQueue creates an empty BatchedQueue recording through a pipeline cache.
func NewBatchedQueue(cache pipeline.Cache) BatchedQueue {
	return &batchedQueue{cache: cache, set: newOrderedSet[BatchedBuffer]()}
}

func (q *batchedQueue) Add(buf BatchedBuffer) {
	q.set.add(buf)
}

func (q *batchedQueue) Clear() {
	for _, buf := range q.set.items {
		buf.Clear()
	}
	q.set.clear()
}

func (q *batchedQueue) UploadBuffers(cmd gfx.CommandBuffer) {
	for _, buf := range q.set.items {
		buf.UploadBuffers(cmd)
	}
}

func (q *batchedQueue) RecordCommandBuffer(device gfx.Device, renderPass gfx.RenderPass, cmd gfx.CommandBuffer) {
	for _, buf := range q.set.items {
		pass := buf.Pass()
		var last gfx.PipelineState
		for _, batch := range buf.Batches() {
			if batch.MergeCount == 0 {
				continue
			}
			ia := batch.InputAssembler()
			pso := q.cache.GetOrCreate(device, pass, batch.Shader, renderPass, ia)
			if pso == nil {
				continue
			}
			if pso != last {
				cmd.BindPipelineState(pso)
				cmd.BindDescriptorSet(gfx.SetIndexMaterial, pass.DescriptorSet(), nil)
				last = pso
			}
			cmd.BindDescriptorSet(gfx.SetIndexLocal, batch.DescriptorSet(), buf.DynamicOffsets())
			cmd.BindInputAssembler(ia)
			cmd.Draw(ia)
		}
	}
}

func (q *batchedQueue) Buffers() []BatchedBuffer {
	return q.set.items
}
