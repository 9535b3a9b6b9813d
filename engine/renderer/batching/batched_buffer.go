package batching

import (
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/logger"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pool"
	"github.com/gogpu/gputypes"
	"go.uber.org/zap"
)

// Batch is one vertex-merged draw of up to model.BatchingCount sub-models. Vertices carry a batch
// id selecting their world matrix from the LocalBatched uniform.
type Batch struct {
	MergeCount  uint32
	VertexCount uint32

	// VertexData holds the CPU copy of each merged stream; IDData the per-vertex batch ids.
	VertexData [][]byte
	IDData     []byte
	UBOData    []byte

	Strides []uint32
	Shader  gfx.Shader

	vbs   []pool.Handle
	idVB  pool.Handle
	ubo   pool.Handle
	ia    pool.Handle
	ds    pool.Handle
	pools *pool.Pools
}

// InputAssembler returns the input assembler the merged draw is issued with.
func (b *Batch) InputAssembler() gfx.InputAssembler {
	return b.pools.InputAssembler.Get(b.ia)
}

// DescriptorSet returns the local descriptor set of the merged draw.
func (b *Batch) DescriptorSet() gfx.DescriptorSet {
	return b.pools.DescriptorSet.Get(b.ds)
}

// VertexBuffer returns the GPU buffer of a merged stream.
func (b *Batch) VertexBuffer(stream int) gfx.Buffer {
	if stream < 0 || stream >= len(b.vbs) {
		return nil
	}
	return b.pools.Buffer.Get(b.vbs[stream])
}

// UBO returns the LocalBatched uniform buffer of the batch.
func (b *Batch) UBO() gfx.Buffer {
	return b.pools.Buffer.Get(b.ubo)
}

func (b *Batch) compatible(flat []model.FlatBuffer, shader gfx.Shader) bool {
	if len(b.Strides) != len(flat) || b.MergeCount >= model.BatchingCount || b.Shader != shader {
		return false
	}
	for i := range flat {
		if b.Strides[i] != flat[i].Stride {
			return false
		}
	}
	return true
}

// batchedBuffer is the implementation of the BatchedBuffer interface.
type batchedBuffer struct {
	pools          *pool.Pools
	pass           material.Pass
	batches        []*Batch
	dynamicOffsets []uint32
}

// BatchedBuffer merges the vertex streams of small sub-models into shared buffers for one pass.
type BatchedBuffer interface {
	// Pass returns the pass the buffer batches for.
	Pass() material.Pass

	// Merge appends the de-indexed vertices of a sub-model to a batch with the same stream layout and
	// shader that holds fewer than model.BatchingCount draws, or to a new batch.
	//
	// Parameters:
	//   - sm: the sub-model to merge
	//   - passIdx: the index of the pass within the sub-model
	//   - m: the model owning the sub-model, whose world matrix is written to the batch
	//   - shaderOverride: the shader variant to draw with, nil for the sub-model's own variant
	//
	// Returns:
	//   - bool: false when the sub-model cannot be merged and must be drawn on its own
	Merge(sm model.SubModel, passIdx int, m model.Model, shaderOverride gfx.Shader) bool

	// UploadBuffers uploads the streams, batch ids and world matrices of every non-empty batch.
	//
	// Parameters:
	//   - cmd: the command buffer to record the uploads into
	UploadBuffers(cmd gfx.CommandBuffer)

	// Clear resets every batch, keeping the buffers for the next frame.
	Clear()

	// Destroy releases every buffer, input assembler and descriptor set.
	Destroy()

	// Batches returns the batches, including empty ones.
	Batches() []*Batch

	// DynamicOffsets returns the dynamic offsets bound with the local set of every batch.
	DynamicOffsets() []uint32

	// SetDynamicOffsets sets the dynamic offsets bound with the local set of every batch.
	SetDynamicOffsets(offsets ...uint32)
}

var _ BatchedBuffer = &batchedBuffer{}

// NewBatchedBuffer creates an empty BatchedBuffer for a pass.
//
// Parameters:
//   - pools: the pools buffers, input assemblers and descriptor sets are allocated from
//   - pass: the pass the buffer batches for
//
// Returns:
//   - BatchedBuffer: the buffer
func NewBatchedBuffer(pools *pool.Pools, pass material.Pass) BatchedBuffer {
	return &batchedBuffer{pools: pools, pass: pass}
}

func (b *batchedBuffer) Pass() material.Pass {
	return b.pass
}

func (b *batchedBuffer) Merge(sm model.SubModel, passIdx int, m model.Model, shaderOverride gfx.Shader) bool {
	if sm == nil || m == nil || sm.Mesh() == nil {
		return false
	}
	flat := sm.Mesh().FlatBuffers()
	if len(flat) == 0 || flat[0].Count == 0 {
		return false
	}
	shader := shaderOverride
	if shader == nil {
		shader = sm.Shader(passIdx)
	}
	if shader == nil || sm.InputAssembler() == nil {
		return false
	}

	for _, batch := range b.batches {
		if !batch.compatible(flat, shader) {
			continue
		}
		if !b.append(batch, flat) {
			return false
		}
		b.finishMerge(batch, sm, m)
		return true
	}

	batch, ok := b.newBatch(sm, flat, shader)
	if !ok {
		return false
	}
	b.batches = append(b.batches, batch)
	if !b.append(batch, flat) {
		return false
	}
	b.finishMerge(batch, sm, m)
	return true
}

// append copies the flat streams after the merged vertices, resizing to the exact size needed.
func (b *batchedBuffer) append(batch *Batch, flat []model.FlatBuffer) bool {
	count := flat[0].Count
	total := batch.VertexCount + count
	for i := range flat {
		size := total * flat[i].Stride
		if size > uint32(len(batch.VertexData[i])) {
			if err := batch.VertexBuffer(i).Resize(size); err != nil {
				logger.Logger().Warn("batched vertex buffer resize failed", zap.Uint32("size", size), zap.Error(err))
				return false
			}
			batch.VertexData[i] = grow(batch.VertexData[i], size)
		}
	}
	if size := total * 4; size > uint32(len(batch.IDData)) {
		if err := b.pools.Buffer.Get(batch.idVB).Resize(size); err != nil {
			logger.Logger().Warn("batch id buffer resize failed", zap.Uint32("size", size), zap.Error(err))
			return false
		}
		batch.IDData = grow(batch.IDData, size)
	}

	for i := range flat {
		copy(batch.VertexData[i][batch.VertexCount*flat[i].Stride:], flat[i].Data)
	}
	id := math.Float32bits(float32(batch.MergeCount))
	for v := batch.VertexCount; v < total; v++ {
		binary.LittleEndian.PutUint32(batch.IDData[v*4:], id)
	}
	batch.VertexCount = total
	return true
}

// finishMerge writes the world matrix of the merged draw and binds the batch uniform on the first merge.
func (b *batchedBuffer) finishMerge(batch *Batch, sm model.SubModel, m model.Model) {
	common.PutMat4(batch.UBOData[batch.MergeCount*64:], m.Node().WorldMatrix())
	if batch.MergeCount == 0 {
		ds := batch.DescriptorSet()
		src := sm.DescriptorSet()
		for _, binding := range []uint32{model.LocalBinding, light.ForwardLightBinding} {
			if buf := src.GetBuffer(binding); buf != nil {
				ds.BindBuffer(binding, buf)
			}
		}
		ds.BindBuffer(model.LocalBatchedBinding, batch.UBO())
		ds.Update()
	}
	batch.MergeCount++
	batch.InputAssembler().SetVertexCount(batch.VertexCount)
}

func (b *batchedBuffer) newBatch(sm model.SubModel, flat []model.FlatBuffer, shader gfx.Shader) (*Batch, bool) {
	batch := &Batch{
		Strides:    make([]uint32, len(flat)),
		VertexData: make([][]byte, len(flat)),
		UBOData:    make([]byte, model.LocalBatchedSize),
		Shader:     shader,
		pools:      b.pools,
	}
	fail := func(what string, err error) (*Batch, bool) {
		logger.Logger().Warn("batch creation failed", zap.String("object", what), zap.Error(err))
		batch.destroy()
		return nil, false
	}

	buffers := make([]gfx.Buffer, 0, len(flat)+1)
	for i, f := range flat {
		h, err := b.pools.Buffer.Alloc(gfx.BufferInfo{
			Label:  "batched vertices",
			Usage:  gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
			Size:   f.Count * f.Stride,
			Stride: f.Stride,
		})
		if err != nil {
			return fail("vertex buffer", err)
		}
		batch.vbs = append(batch.vbs, h)
		batch.Strides[i] = f.Stride
		batch.VertexData[i] = make([]byte, f.Count*f.Stride)
		buffers = append(buffers, b.pools.Buffer.Get(h))
	}

	var err error
	if batch.idVB, err = b.pools.Buffer.Alloc(gfx.BufferInfo{
		Label:  "batch ids",
		Usage:  gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
		Size:   flat[0].Count * 4,
		Stride: 4,
	}); err != nil {
		return fail("batch id buffer", err)
	}
	batch.IDData = make([]byte, flat[0].Count*4)
	buffers = append(buffers, b.pools.Buffer.Get(batch.idVB))

	src := sm.InputAssembler().Attributes()
	attributes := make([]gfx.Attribute, 0, len(src)+1)
	attributes = append(attributes, src...)
	attributes = append(attributes, gfx.Attribute{
		Name:   gfx.AttrBatchID,
		Format: gputypes.VertexFormatFloat32,
		Stream: uint32(len(flat)),
	})
	if batch.ia, err = b.pools.InputAssembler.Alloc(gfx.InputAssemblerInfo{
		Attributes:    attributes,
		VertexBuffers: buffers,
	}); err != nil {
		return fail("input assembler", err)
	}

	if batch.ubo, err = b.pools.Buffer.Alloc(gfx.BufferInfo{
		Label: "local batched",
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		Size:  model.LocalBatchedSize,
	}); err != nil {
		return fail("uniform buffer", err)
	}
	if batch.ds, err = b.pools.DescriptorSet.Alloc(gfx.DescriptorSetInfo{Layout: sm.DescriptorSet().Layout()}); err != nil {
		return fail("descriptor set", err)
	}
	batch.InputAssembler().SetIndexCount(0)
	logger.Logger().Debug("vertex batch created",
		zap.Uint32("pass", b.pass.Handle().Index()),
		zap.Int("streams", len(flat)),
	)
	return batch, true
}

// grow returns data extended to size bytes with its contents preserved.
func grow(data []byte, size uint32) []byte {
	out := make([]byte, size)
	copy(out, data)
	return out
}

func (b *Batch) destroy() {
	p := b.pools
	if !b.ds.IsNull() {
		p.DescriptorSet.Free(b.ds)
	}
	if !b.ia.IsNull() {
		p.InputAssembler.Free(b.ia)
	}
	for _, h := range append(b.vbs, b.ubo, b.idVB) {
		if !h.IsNull() {
			p.Buffer.Free(h)
		}
	}
	b.vbs = nil
	b.ds, b.ia, b.ubo, b.idVB = pool.NullHandle, pool.NullHandle, pool.NullHandle, pool.NullHandle
}

func (b *batchedBuffer) UploadBuffers(cmd gfx.CommandBuffer) {
	for _, batch := range b.batches {
		if batch.MergeCount == 0 {
			continue
		}
		for i := range batch.vbs {
			cmd.UpdateBuffer(batch.VertexBuffer(i), batch.VertexData[i][:batch.VertexCount*batch.Strides[i]])
		}
		cmd.UpdateBuffer(b.pools.Buffer.Get(batch.idVB), batch.IDData[:batch.VertexCount*4])
		cmd.UpdateBuffer(batch.UBO(), batch.UBOData)
	}
}

func (b *batchedBuffer) Clear() {
	for _, batch := range b.batches {
		batch.MergeCount = 0
		batch.VertexCount = 0
		if ia := batch.InputAssembler(); ia != nil {
			ia.SetVertexCount(0)
		}
	}
}

func (b *batchedBuffer) Destroy() {
	for _, batch := range b.batches {
		batch.destroy()
	}
	b.batches = nil
}

func (b *batchedBuffer) Batches() []*Batch {
	return b.batches
}

func (b *batchedBuffer) DynamicOffsets() []uint32 {
	return b.dynamicOffsets
}

func (b *batchedBuffer) SetDynamicOffsets(offsets ...uint32) {
	b.dynamicOffsets = append(b.dynamicOffsets[:0], offsets...)
}
