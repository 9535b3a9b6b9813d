// Package lighting draws the per-light additive passes of punctual lights.
package lighting

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/logger"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/batching"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/culling"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pool"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
	"github.com/gogpu/gputypes"
	"go.uber.org/zap"
)

// spotPatches selects the spot light code path of an additive pass.
var spotPatches = []material.MacroPatch{{Name: material.DefineSpotLight, Value: "1"}}

// lightPass is one sub-model drawn standalone once per light that touches it.
type lightPass struct {
	subModel model.SubModel
	passIdx  int
	shaders  []gfx.Shader
	offsets  []uint32
}

// additiveLightQueue is the implementation of the RenderAdditiveLightQueue interface.
type additiveLightQueue struct {
	pools     *pool.Pools
	pipelines pipeline.Cache
	buffers   batching.Cache
	instanced batching.InstancedQueue
	batched   batching.BatchedQueue

	hdr     bool
	fpScale float32

	capacity   uint32
	stride     uint32
	lightData  []byte
	lightBuf   pool.Handle
	firstLight gfx.Buffer

	validLights  []light.Light
	lightPasses  []lightPass
	passIndices  []int
	lightIndices []int
}

// RenderAdditiveLightQueue renders the forward-add passes of every visible model once per sphere or
// spot light touching it. Light data lives in one uniform buffer indexed with dynamic offsets.
type RenderAdditiveLightQueue interface {
	// GatherLightPasses culls the scene's punctual lights against the camera, uploads the light
	// buffer and distributes the forward-add passes of the render objects to instanced, batched and
	// standalone draws.
	//
	// Parameters:
	//   - cam: the camera
	//   - sc: the scene providing the lights
	//   - objects: the visible render objects from culling
	//   - cmd: the command buffer uploads are recorded into
	GatherLightPasses(cam camera.Camera, sc scene.RenderScene, objects []culling.RenderObject, cmd gfx.CommandBuffer)

	// RecordCommandBuffer records the instanced and batched draws, then the standalone draws.
	//
	// Parameters:
	//   - device: the device creating missing pipeline states
	//   - renderPass: the render pass being recorded
	//   - cmd: the command buffer to record into
	RecordCommandBuffer(device gfx.Device, renderPass gfx.RenderPass, cmd gfx.CommandBuffer)

	// Clear drops the gathered lights and draws, keeping every buffer.
	Clear()

	// ValidLights returns the lights that passed camera culling in the last gather.
	ValidLights() []light.Light

	// LightBufferCapacity returns the number of lights the light buffer holds.
	LightBufferCapacity() uint32

	// LightBufferStride returns the aligned byte stride of one light in the light buffer.
	LightBufferStride() uint32

	// FirstLightView returns the view over the first light bound in the local sets of lit sub-models.
	FirstLightView() gfx.Buffer

	// Draws returns the number of draws the next RecordCommandBuffer issues.
	Draws() int

	// Destroy releases the light buffer and its view.
	Destroy()
}

var _ RenderAdditiveLightQueue = &additiveLightQueue{}

// NewRenderAdditiveLightQueue creates a RenderAdditiveLightQueue and its light buffer.
//
// Parameters:
//   - pools: the pools the light buffer is allocated from
//   - pipelines: the pipeline state cache used while recording
//   - buffers: the batching buffers, keyed by pass and light index
//   - options: variadic list of AdditiveLightQueueBuilderOption functions to configure the queue
//
// Returns:
//   - RenderAdditiveLightQueue: the queue
//   - error: an error if the light buffer could not be created
func NewRenderAdditiveLightQueue(pools *pool.Pools, pipelines pipeline.Cache, buffers batching.Cache, options ...AdditiveLightQueueBuilderOption) (RenderAdditiveLightQueue, error) {
	q := &additiveLightQueue{
		pools:     pools,
		pipelines: pipelines,
		buffers:   buffers,
		instanced: batching.NewInstancedQueue(pipelines),
		batched:   batching.NewBatchedQueue(pipelines),
		fpScale:   1,
		capacity:  DefaultLightBufferCapacity,
	}
	for _, opt := range options {
		opt(q)
	}
	q.capacity = common.NextPowerOfTwo(q.capacity)
	q.stride = common.AlignUp(light.ForwardLightSize, pools.Device().Capabilities().UBOOffsetAlignment)
	q.lightData = make([]byte, q.stride*q.capacity)

	var err error
	q.lightBuf, err = pools.Buffer.Alloc(gfx.BufferInfo{
		Label:  "forward lights",
		Usage:  gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		Size:   q.stride * q.capacity,
		Stride: q.stride,
	})
	if err != nil {
		return nil, fmt.Errorf("lighting: failed to create light buffer: %w", err)
	}
	if q.firstLight, err = q.createFirstLightView(); err != nil {
		pools.Buffer.Free(q.lightBuf)
		return nil, fmt.Errorf("lighting: failed to create light buffer view: %w", err)
	}
	return q, nil
}

// createFirstLightView creates the view over the first entry of the light buffer. Per-light
// entries are reached through the dynamic offset of the view's binding.
func (q *additiveLightQueue) createFirstLightView() (gfx.Buffer, error) {
	return q.pools.Device().CreateBufferView(gfx.BufferViewInfo{
		Buffer: q.pools.Buffer.Get(q.lightBuf),
		Range:  light.ForwardLightSize,
	})
}

func (q *additiveLightQueue) GatherLightPasses(cam camera.Camera, sc scene.RenderScene, objects []culling.RenderObject, cmd gfx.CommandBuffer) {
	q.Clear()
	if cam == nil || sc == nil || q.firstLight == nil {
		return
	}
	frustum := cam.Frustum()
	for _, l := range sc.SphereLights() {
		if culling.LightInFrustum(l, frustum) {
			q.validLights = append(q.validLights, l)
		}
	}
	for _, l := range sc.SpotLights() {
		if culling.LightInFrustum(l, frustum) {
			q.validLights = append(q.validLights, l)
		}
	}
	if len(q.validLights) == 0 {
		return
	}
	if !q.updateLightBuffer(cmd) {
		return
	}

	for _, ro := range objects {
		subModels := ro.Model.SubModels()
		if !q.lightPassIndices(subModels) {
			continue
		}
		q.lightIndices = q.lightIndices[:0]
		for i, l := range q.validLights {
			if !culling.CullLight(l, ro.Model) {
				q.lightIndices = append(q.lightIndices, i)
			}
		}
		if len(q.lightIndices) == 0 {
			continue
		}
		for smIdx, sm := range subModels {
			passIdx := q.passIndices[smIdx]
			if passIdx < 0 {
				continue
			}
			ds := sm.DescriptorSet()
			if ds.GetBuffer(light.ForwardLightBinding) != q.firstLight {
				ds.BindBuffer(light.ForwardLightBinding, q.firstLight)
				ds.Update()
			}
			q.addRenderQueue(sm, ro.Model, passIdx)
		}
	}

	q.instanced.UploadBuffers(cmd)
	q.batched.UploadBuffers(cmd)
}

// lightPassIndices finds the forward-add pass of every sub-model.
func (q *additiveLightQueue) lightPassIndices(subModels []model.SubModel) bool {
	q.passIndices = q.passIndices[:0]
	found := false
	for _, sm := range subModels {
		idx := -1
		for p, pass := range sm.Passes() {
			if pass.Phase() == material.PhaseForwardAdd {
				idx = p
				break
			}
		}
		q.passIndices = append(q.passIndices, idx)
		found = found || idx >= 0
	}
	return found
}

// updateLightBuffer grows the light buffer to hold every valid light, packs the lights and uploads them.
func (q *additiveLightQueue) updateLightBuffer(cmd gfx.CommandBuffer) bool {
	if n := uint32(len(q.validLights)); n > q.capacity {
		capacity := common.NextPowerOfTwo(n)
		if err := q.pools.Buffer.Get(q.lightBuf).Resize(q.stride * capacity); err != nil {
			logger.Logger().Warn("light buffer resize failed", zap.Uint32("lights", n), zap.Error(err))
			return false
		}
		q.firstLight.Destroy()
		view, err := q.createFirstLightView()
		if err != nil {
			logger.Logger().Warn("light buffer view creation failed", zap.Error(err))
			q.firstLight = nil
			return false
		}
		q.firstLight = view
		q.capacity = capacity
		q.lightData = make([]byte, q.stride*capacity)
		logger.Logger().Debug("light buffer grown", zap.Uint32("capacity", capacity))
	}
	for i, l := range q.validLights {
		entry := light.Pack(l, q.hdr, q.fpScale)
		entry.MarshalInto(q.lightData[uint32(i)*q.stride:])
	}
	cmd.UpdateBuffer(q.pools.Buffer.Get(q.lightBuf), q.lightData)
	return true
}

// addRenderQueue routes one lit sub-model to the batching buffers of its pass, one buffer per light,
// or to a standalone light pass. Draws that fail to batch fall back to the standalone pass.
func (q *additiveLightQueue) addRenderQueue(sm model.SubModel, m model.Model, passIdx int) {
	pass := sm.Passes()[passIdx]
	scheme := pass.BatchingScheme()
	var lp *lightPass
	for _, i := range q.lightIndices {
		l := q.validLights[i]
		var shader gfx.Shader
		if l.Type() == light.LightTypeSpot {
			patches := sm.Patches()
			shader = pass.GetShaderVariant(append(patches[:len(patches):len(patches)], spotPatches...))
		} else {
			shader = sm.Shader(passIdx)
		}
		if shader == nil {
			continue
		}
		offset := q.stride * uint32(i)
		switch scheme {
		case material.BatchingInstancing:
			buf := q.buffers.Instanced(pass, uint32(i))
			if buf.Merge(sm, m.InstancedAttributes(), passIdx, shader) {
				buf.SetDynamicOffsets(offset)
				q.instanced.Add(buf)
				continue
			}
		case material.BatchingVBMerging:
			buf := q.buffers.Batched(pass, uint32(i))
			if buf.Merge(sm, passIdx, m, shader) {
				buf.SetDynamicOffsets(offset)
				q.batched.Add(buf)
				continue
			}
		}
		if lp == nil {
			lp = q.nextLightPass()
			lp.subModel, lp.passIdx = sm, passIdx
		}
		lp.shaders = append(lp.shaders, shader)
		lp.offsets = append(lp.offsets, offset)
	}
}

// nextLightPass appends a light pass, reusing the slices of a previous frame's entry.
func (q *additiveLightQueue) nextLightPass() *lightPass {
	n := len(q.lightPasses)
	if n < cap(q.lightPasses) {
		q.lightPasses = q.lightPasses[:n+1]
	} else {
		q.lightPasses = append(q.lightPasses, lightPass{})
	}
	return &q.lightPasses[n]
}

func (q *additiveLightQueue) RecordCommandBuffer(device gfx.Device, renderPass gfx.RenderPass, cmd gfx.CommandBuffer) {
	q.instanced.RecordCommandBuffer(device, renderPass, cmd)
	q.batched.RecordCommandBuffer(device, renderPass, cmd)

	var offset [1]uint32
	for i := range q.lightPasses {
		lp := &q.lightPasses[i]
		pass := lp.subModel.Passes()[lp.passIdx]
		ia := lp.subModel.InputAssembler()
		ds := lp.subModel.DescriptorSet()
		materialBound := false
		var last gfx.PipelineState
		for j, shader := range lp.shaders {
			pso := q.pipelines.GetOrCreate(device, pass, shader, renderPass, ia)
			if pso == nil {
				continue
			}
			if pso != last {
				cmd.BindPipelineState(pso)
				last = pso
			}
			if !materialBound {
				cmd.BindDescriptorSet(gfx.SetIndexMaterial, pass.DescriptorSet(), nil)
				cmd.BindInputAssembler(ia)
				materialBound = true
			}
			offset[0] = lp.offsets[j]
			cmd.BindDescriptorSet(gfx.SetIndexLocal, ds, offset[:])
			cmd.Draw(ia)
		}
	}
}

func (q *additiveLightQueue) Clear() {
	q.instanced.Clear()
	q.batched.Clear()
	for i := range q.lightPasses {
		lp := &q.lightPasses[i]
		lp.subModel = nil
		lp.shaders = lp.shaders[:0]
		lp.offsets = lp.offsets[:0]
	}
	q.lightPasses = q.lightPasses[:0]
	q.validLights = common.Reset(q.validLights)
}

func (q *additiveLightQueue) ValidLights() []light.Light {
	return q.validLights
}

func (q *additiveLightQueue) LightBufferCapacity() uint32 {
	return q.capacity
}

func (q *additiveLightQueue) LightBufferStride() uint32 {
	return q.stride
}

func (q *additiveLightQueue) FirstLightView() gfx.Buffer {
	return q.firstLight
}

func (q *additiveLightQueue) Draws() int {
	n := 0
	for _, buf := range q.instanced.Buffers() {
		for _, inst := range buf.Instances() {
			if inst.Count > 0 {
				n++
			}
		}
	}
	for _, buf := range q.batched.Buffers() {
		for _, b := range buf.Batches() {
			if b.MergeCount > 0 {
				n++
			}
		}
	}
	for i := range q.lightPasses {
		n += len(q.lightPasses[i].shaders)
	}
	return n
}

func (q *additiveLightQueue) Destroy() {
	q.Clear()
	if q.firstLight != nil {
		q.firstLight.Destroy()
		q.firstLight = nil
	}
	if !q.lightBuf.IsNull() {
		q.pools.Buffer.Free(q.lightBuf)
		q.lightBuf = pool.NullHandle
	}
}
