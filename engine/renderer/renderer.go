package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/logger"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/batching"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/culling"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/lighting"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pool"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/queue"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
	"github.com/gogpu/gputypes"
	"go.uber.org/zap"
)

// ErrNoDevice is returned by NewRenderer when no device is given.
var ErrNoDevice = errors.New("renderer: a device is required")

// GlobalSize is the size of the per-camera global uniform: the camera block followed by the main light block.
const GlobalSize = 128

// ShadowDepthFormat is the depth format of the shadow map.
const ShadowDepthFormat = gputypes.TextureFormatDepth32Float

// MainDepthFormat is the depth format of the swapchain framebuffer.
const MainDepthFormat = gputypes.TextureFormatDepth24Plus

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	device gfx.Device
	pools  *pool.Pools

	// configuration collected from builder options
	poolOptions    []pool.PoolBuilderOption
	cullingOptions []culling.SceneCullingBuilderOption
	hdr            bool
	fpScale        float32
	shadows        bool
	lightCapacity  uint32

	shared    material.SharedLayouts
	pipelines pipeline.Cache
	buffers   batching.Cache
	culling   culling.SceneCulling

	opaque      queue.RenderQueue
	transparent queue.RenderQueue
	shadowQueue queue.RenderQueue
	instanced   batching.InstancedQueue
	batched     batching.BatchedQueue
	additive    lighting.RenderAdditiveLightQueue

	mainPass    pool.Handle
	mainFB      pool.Handle
	shadowPass  pool.Handle
	shadowFB    pool.Handle
	shadowSize  [2]uint32
	global      globalSet
	shadowGlob  globalSet
	shadowCasts []culling.RenderObject
	globalData  []byte

	inFrame bool
	frame   Stats
	stats   Stats
}

// globalSet is a global uniform buffer and the descriptor set binding it.
type globalSet struct {
	buffer pool.Handle
	set    pool.Handle
}

// Renderer is the frame context of the render pipeline. It owns the pools, caches, culling, queues
// and render targets, and records one command buffer per camera.
//
// A frame is BeginFrame, any number of Render calls, then EndFrame. Every Render call records and
// submits its cameras in order, so per-camera uniforms are written just before the camera's submit.
type Renderer interface {
	// Device returns the device the renderer records with.
	//
	// Returns:
	//   - gfx.Device: the device
	Device() gfx.Device

	// Pools returns the pools models, cameras, lights and passes rendered by this renderer must be
	// created from.
	//
	// Returns:
	//   - *pool.Pools: the pools
	Pools() *pool.Pools

	// SharedLayouts returns the global and local set layouts every pass must be created with.
	//
	// Returns:
	//   - material.SharedLayouts: the shared layouts
	SharedLayouts() material.SharedLayouts

	// PipelineCache returns the pipeline state cache.
	//
	// Returns:
	//   - pipeline.Cache: the cache
	PipelineCache() pipeline.Cache

	// BeginFrame acquires the next swapchain image and resets the frame statistics.
	//
	// Returns:
	//   - error: an error if the image could not be acquired
	BeginFrame() error

	// Render culls, queues, uploads, records and submits the scene once per camera. Without cameras
	// the scene's own cameras are used. Inactive scenes are skipped.
	//
	// Parameters:
	//   - s: the scene to render
	//   - cameras: the cameras to render the scene with
	Render(s scene.RenderScene, cameras ...camera.Camera)

	// EndFrame presents the swapchain image and publishes the frame statistics.
	EndFrame()

	// Resize reconfigures the swapchain for a new surface size.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	Resize(width, height uint32)

	// Stats returns the statistics of the last completed frame.
	//
	// Returns:
	//   - Stats: the frame statistics
	Stats() Stats

	// Destroy releases every object the renderer owns. The device is left to its creator.
	Destroy()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer recording with the given device.
//
// Parameters:
//   - device: the device to create objects with and submit to
//   - options: variadic list of RendererBuilderOption functions to configure the renderer
//
// Returns:
//   - Renderer: the renderer
//   - error: an error if a shared device object could not be created
func NewRenderer(device gfx.Device, options ...RendererBuilderOption) (Renderer, error) {
	if device == nil {
		return nil, ErrNoDevice
	}
	r := &renderer{
		mu:      &sync.Mutex{},
		device:  device,
		fpScale: 1,
	}
	for _, opt := range options {
		opt(r)
	}
	r.pools = pool.NewPools(device, r.poolOptions...)
	if err := r.init(); err != nil {
		r.Destroy()
		return nil, err
	}
	return r, nil
}

func (r *renderer) init() error {
	var err error
	p := r.pools

	globalLayout, err := p.DescriptorSetLayout.Alloc(globalSetLayoutInfo())
	if err != nil {
		return fmt.Errorf("renderer: failed to create global set layout: %w", err)
	}
	localLayout, err := p.DescriptorSetLayout.Alloc(model.LocalSetLayoutInfo())
	if err != nil {
		return fmt.Errorf("renderer: failed to create local set layout: %w", err)
	}
	r.shared = material.SharedLayouts{
		Global: p.DescriptorSetLayout.Get(globalLayout),
		Local:  p.DescriptorSetLayout.Get(localLayout),
	}

	if r.global, err = r.newGlobalSet("global"); err != nil {
		return err
	}
	if r.shadowGlob, err = r.newGlobalSet("shadow global"); err != nil {
		return err
	}
	r.globalData = make([]byte, 0, GlobalSize)

	caps := r.device.Capabilities()
	if r.mainPass, err = p.RenderPass.Alloc(gfx.RenderPassInfo{
		ColorFormats:       []gputypes.TextureFormat{caps.SurfaceFormat},
		DepthStencilFormat: MainDepthFormat,
		SampleCount:        max(caps.SampleCount, 1),
	}); err != nil {
		return fmt.Errorf("renderer: failed to create main render pass: %w", err)
	}
	if r.mainFB, err = p.Framebuffer.Alloc(gfx.FramebufferInfo{
		RenderPass: p.RenderPass.Get(r.mainPass),
		Swapchain:  true,
	}); err != nil {
		return fmt.Errorf("renderer: failed to create swapchain framebuffer: %w", err)
	}
	if r.shadowPass, err = p.RenderPass.Alloc(gfx.RenderPassInfo{
		DepthStencilFormat: ShadowDepthFormat,
		SampleCount:        1,
	}); err != nil {
		return fmt.Errorf("renderer: failed to create shadow render pass: %w", err)
	}

	r.pipelines = pipeline.NewCache()
	r.buffers = batching.NewCache(p)
	r.culling = culling.NewSceneCulling(r.cullingOptions...)

	r.opaque = queue.NewRenderQueue(r.pipelines, queue.Desc{Phases: material.PhaseDefault})
	r.transparent = queue.NewRenderQueue(r.pipelines, queue.Desc{IsTransparent: true, Phases: material.PhaseDefault})
	r.shadowQueue = queue.NewRenderQueue(r.pipelines, queue.Desc{Phases: material.PhaseShadowCaster})
	r.instanced = batching.NewInstancedQueue(r.pipelines)
	r.batched = batching.NewBatchedQueue(r.pipelines)

	lightOptions := []lighting.AdditiveLightQueueBuilderOption{lighting.WithHDR(r.hdr, r.fpScale)}
	if r.lightCapacity > 0 {
		lightOptions = append(lightOptions, lighting.WithLightBufferCapacity(r.lightCapacity))
	}
	if r.additive, err = lighting.NewRenderAdditiveLightQueue(p, r.pipelines, r.buffers, lightOptions...); err != nil {
		return fmt.Errorf("renderer: %w", err)
	}
	return nil
}

func globalSetLayoutInfo() gfx.DescriptorSetLayoutInfo {
	return gfx.DescriptorSetLayoutInfo{Bindings: []gputypes.BindGroupLayoutEntry{{
		Binding:    0,
		Visibility: gputypes.ShaderStagesVertexFragment,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform, MinBindingSize: GlobalSize},
	}}}
}

func (r *renderer) newGlobalSet(label string) (globalSet, error) {
	var g globalSet
	var err error
	if g.buffer, err = r.pools.Buffer.Alloc(gfx.BufferInfo{
		Label: label,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		Size:  GlobalSize,
	}); err != nil {
		return g, fmt.Errorf("renderer: failed to create %s buffer: %w", label, err)
	}
	if g.set, err = r.pools.DescriptorSet.Alloc(gfx.DescriptorSetInfo{Layout: r.shared.Global}); err != nil {
		return g, fmt.Errorf("renderer: failed to create %s set: %w", label, err)
	}
	ds := r.pools.DescriptorSet.Get(g.set)
	ds.BindBuffer(0, r.pools.Buffer.Get(g.buffer))
	ds.Update()
	return g, nil
}

func (r *renderer) Device() gfx.Device {
	return r.device
}

func (r *renderer) Pools() *pool.Pools {
	return r.pools
}

func (r *renderer) SharedLayouts() material.SharedLayouts {
	return r.shared
}

func (r *renderer) PipelineCache() pipeline.Cache {
	return r.pipelines
}

func (r *renderer) BeginFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.device.Acquire(); err != nil {
		return err
	}
	r.inFrame = true
	r.frame = Stats{}
	return nil
}

func (r *renderer) Render(s scene.RenderScene, cameras ...camera.Camera) {
	if s == nil || !s.Active() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.inFrame {
		logger.Logger().Warn("renderer: Render called outside BeginFrame/EndFrame", zap.String("scene", s.Name()))
		return
	}
	if len(cameras) == 0 {
		cameras = s.Cameras()
	}
	s.Update()
	for _, cam := range cameras {
		if cam == nil {
			continue
		}
		cam.Update(r.hdr)
		r.renderCamera(s, cam)
	}
}

// renderCamera runs culling, queue population, upload, recording and submission for one camera.
func (r *renderer) renderCamera(s scene.RenderScene, cam camera.Camera) {
	cmd := r.device.CommandBuffer()
	if err := cmd.Begin(); err != nil {
		logger.Logger().Error("renderer: failed to begin command buffer", zap.Error(err))
		return
	}
	r.clearQueues()

	res := r.culling.Cull(cam, s)
	shadowed := r.gatherShadowCasters(cmd, cam, s, res)
	for _, ro := range res.RenderObjects {
		r.addRenderObject(ro)
	}
	r.opaque.Sort()
	r.transparent.Sort()
	r.shadowQueue.Sort()

	// uploads land before this camera's submit
	r.uploadGlobal(cmd, r.global, camera.Uniform(cam), s, cam.Exposure())
	for _, ro := range r.shadowCasts {
		ro.Model.UpdateUBOs(cmd)
	}
	for _, ro := range res.RenderObjects {
		ro.Model.UpdateUBOs(cmd)
		for _, sm := range ro.Model.SubModels() {
			for _, p := range sm.Passes() {
				p.Upload(cmd)
			}
		}
	}
	r.instanced.UploadBuffers(cmd)
	r.batched.UploadBuffers(cmd)
	r.additive.GatherLightPasses(cam, s, res.RenderObjects, cmd)

	p := r.pools
	if shadowed {
		shadowPass := p.RenderPass.Get(r.shadowPass)
		cmd.BeginRenderPass(shadowPass, p.Framebuffer.Get(r.shadowFB), gfx.Color{}, 1)
		cmd.BindDescriptorSet(gfx.SetIndexGlobal, p.DescriptorSet.Get(r.shadowGlob.set), nil)
		r.shadowQueue.RecordCommandBuffer(r.device, shadowPass, cmd)
		cmd.EndRenderPass()
	}

	mainPass := p.RenderPass.Get(r.mainPass)
	cmd.BeginRenderPass(mainPass, p.Framebuffer.Get(r.mainFB), cam.ClearColor(), cam.ClearDepth())
	cmd.BindDescriptorSet(gfx.SetIndexGlobal, p.DescriptorSet.Get(r.global.set), nil)
	r.opaque.RecordCommandBuffer(r.device, mainPass, cmd)
	r.instanced.RecordCommandBuffer(r.device, mainPass, cmd)
	r.batched.RecordCommandBuffer(r.device, mainPass, cmd)
	r.additive.RecordCommandBuffer(r.device, mainPass, cmd)
	r.transparent.RecordCommandBuffer(r.device, mainPass, cmd)
	cmd.EndRenderPass()

	if err := cmd.End(); err != nil {
		logger.Logger().Error("renderer: failed to finish command buffer", zap.Error(err))
		return
	}
	r.device.Submit(cmd)
	r.accumulate(cmd, res)
}

func (r *renderer) clearQueues() {
	r.opaque.Clear()
	r.transparent.Clear()
	r.shadowQueue.Clear()
	r.instanced.Clear()
	r.batched.Clear()
	r.shadowCasts = r.shadowCasts[:0]
}

// gatherShadowCasters fits the main light frustum, culls the casters against it and queues their
// shadow-caster passes. It reports whether a shadow pass should be recorded.
func (r *renderer) gatherShadowCasters(cmd gfx.CommandBuffer, cam camera.Camera, s scene.RenderScene, res *culling.Result) bool {
	if !r.shadows || !res.HasCasters {
		return false
	}
	shadows := s.Shadows()
	sf, ok := culling.CalcDirectionalLightCullFrustum(cam, s.MainLight(), shadows)
	if !ok || !r.ensureShadowFramebuffer(shadows) {
		return false
	}
	r.shadowCasts = culling.ShadowCulling(r.shadowCasts[:0], res.ShadowObjects, sf)
	for _, ro := range r.shadowCasts {
		for smIdx, sm := range ro.Model.SubModels() {
			for passIdx := range sm.Passes() {
				r.shadowQueue.InsertRenderPass(ro, smIdx, passIdx)
			}
		}
	}

	u := camera.GPUCameraUniform{
		ViewProj:       camera.ClipCorrection.Mul4(sf.ViewProj),
		CameraPosition: [3]float32{sf.Position[0], sf.Position[1], sf.Position[2]},
		Exposure:       1,
	}
	r.uploadGlobal(cmd, r.shadowGlob, u, s, 1)
	return true
}

// ensureShadowFramebuffer (re)creates the shadow map framebuffer at the shadow map resolution.
func (r *renderer) ensureShadowFramebuffer(shadows light.Shadows) bool {
	size := shadows.Size()
	w, h := uint32(max(size[0], 1)), uint32(max(size[1], 1))
	if !r.shadowFB.IsNull() && r.shadowSize == [2]uint32{w, h} {
		return true
	}
	if !r.shadowFB.IsNull() {
		r.pools.Framebuffer.Free(r.shadowFB)
		r.shadowFB = pool.NullHandle
	}
	fb, err := r.pools.Framebuffer.Alloc(gfx.FramebufferInfo{
		RenderPass: r.pools.RenderPass.Get(r.shadowPass),
		Width:      w,
		Height:     h,
	})
	if err != nil {
		logger.Logger().Error("renderer: failed to create shadow map", zap.Uint32("width", w), zap.Uint32("height", h), zap.Error(err))
		return false
	}
	r.shadowFB = fb
	r.shadowSize = [2]uint32{w, h}
	return true
}

// addRenderObject routes every main-phase pass of a visible object to the instancing or VB-merging
// buffers of its pass, or to the opaque or transparent queue. Transparent passes are always queued
// so that they keep their back-to-front order.
func (r *renderer) addRenderObject(ro culling.RenderObject) {
	m := ro.Model
	for smIdx, sm := range m.SubModels() {
		for passIdx, p := range sm.Passes() {
			if p.Phase() != material.PhaseDefault {
				continue
			}
			if !p.IsTransparent() && r.merge(m, sm, p, passIdx) {
				continue
			}
			if p.IsTransparent() {
				r.transparent.InsertRenderPass(ro, smIdx, passIdx)
			} else {
				r.opaque.InsertRenderPass(ro, smIdx, passIdx)
			}
		}
	}
}

// merge adds a pass to its batching buffer. A false return falls back to a standalone draw.
func (r *renderer) merge(m model.Model, sm model.SubModel, p material.Pass, passIdx int) bool {
	switch p.BatchingScheme() {
	case material.BatchingInstancing:
		buf := r.buffers.Instanced(p, 0)
		if buf.Merge(sm, m.InstancedAttributes(), passIdx, sm.Shader(passIdx)) {
			r.instanced.Add(buf)
			return true
		}
	case material.BatchingVBMerging:
		buf := r.buffers.Batched(p, 0)
		if buf.Merge(sm, passIdx, m, sm.Shader(passIdx)) {
			r.batched.Add(buf)
			return true
		}
	}
	return false
}

// uploadGlobal writes the camera block and the scene's main light block of a global set.
func (r *renderer) uploadGlobal(cmd gfx.CommandBuffer, g globalSet, cam camera.GPUCameraUniform, s scene.RenderScene, exposure float32) {
	ml := light.MainLightUniform(s.MainLight(), s.Ambient(), r.hdr, exposure)
	r.globalData = append(r.globalData[:0], cam.Marshal()...)
	r.globalData = append(r.globalData, ml.Marshal()...)
	cmd.UpdateBuffer(r.pools.Buffer.Get(g.buffer), r.globalData)
}

func (r *renderer) accumulate(cmd gfx.CommandBuffer, res *culling.Result) {
	f := &r.frame
	f.Cameras++
	f.DrawCalls += cmd.NumDrawCalls()
	f.Instances += cmd.NumInstances()
	f.VisibleObjects += len(res.RenderObjects)
	f.ShadowCasters += len(r.shadowCasts)
	f.ValidLights += len(r.additive.ValidLights())
	f.AdditiveDraws += r.additive.Draws()
	f.OpaqueDraws += r.opaque.Len()
	f.TransparentDraws += r.transparent.Len()
	for _, buf := range r.instanced.Buffers() {
		for _, inst := range buf.Instances() {
			if inst.Count > 0 {
				f.InstancedDraws++
				f.InstancedObjects += int(inst.Count)
			}
		}
	}
	for _, buf := range r.batched.Buffers() {
		for _, b := range buf.Batches() {
			if b.MergeCount > 0 {
				f.BatchedDraws++
				f.BatchedObjects += int(b.MergeCount)
			}
		}
	}
}

func (r *renderer) EndFrame() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.inFrame {
		return
	}
	r.device.Present()
	r.inFrame = false
	r.frame.Pipelines = r.pipelines.Len()
	r.frame.PipelineHits = r.pipelines.Hits()
	r.frame.PipelineMisses = r.pipelines.Misses()
	r.stats = r.frame
}

func (r *renderer) Resize(width, height uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.device.Resize(width, height)
}

func (r *renderer) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func (r *renderer) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.culling != nil {
		r.culling.Destroy()
		r.culling = nil
	}
	if r.additive != nil {
		r.additive.Destroy()
		r.additive = nil
	}
	if r.buffers != nil {
		r.buffers.Destroy()
		r.buffers = nil
	}
	if r.pipelines != nil {
		r.pipelines.Destroy()
		r.pipelines = nil
	}
	if r.pools != nil {
		r.pools.Destroy()
	}
}
