// Package backend implements gfx.Device on WebGPU through cogentcore/webgpu.
package backend

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/engine/logger"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/gputypes"
	"go.uber.org/zap"
)

// ErrFrameInFlight is returned by Acquire when the previous swapchain image has not been presented.
var ErrFrameInFlight = errors.New("backend: previous frame surface not yet presented")

// ErrUnsupportedFormat is returned when a texture format has no WebGPU equivalent in this backend.
var ErrUnsupportedFormat = errors.New("backend: unsupported texture format")

// device is the implementation of gfx.Device.
type device struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface
	device   *wgpu.Device
	queue    *wgpu.Queue

	surfaceFormat        wgpu.TextureFormat
	presentMode          PresentMode
	sampleCount          MSAASampleCount
	forceFallbackAdapter bool
	width, height        uint32

	// frame state between Acquire and Present
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
	frameCleared bool

	swapchains []*framebuffer
	dummies    map[uint64]*wgpu.Buffer
	nextShader uint32
	cmd        *commandBuffer
}

var _ gfx.Device = &device{}

// NewDevice creates a WebGPU device rendering into the surface described by surfaceDescriptor,
// which is platform-specific and typically obtained from Window.SurfaceDescriptor().
//
// Parameters:
//   - surfaceDescriptor: the platform-specific surface descriptor
//   - width: the initial surface width in pixels
//   - height: the initial surface height in pixels
//   - options: variadic list of DeviceBuilderOption functions to configure the device
//
// Returns:
//   - gfx.Device: the device
//   - error: an error if no adapter or device could be obtained
func NewDevice(surfaceDescriptor *wgpu.SurfaceDescriptor, width, height uint32, options ...DeviceBuilderOption) (gfx.Device, error) {
	runtime.LockOSThread()
	d := &device{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: PresentModeUncapped,
		sampleCount: MSAA4x,
		dummies:     make(map[uint64]*wgpu.Buffer),
	}
	for _, opt := range options {
		opt(d)
	}
	d.surface = d.instance.CreateSurface(surfaceDescriptor)

	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallbackAdapter,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("backend: failed to request adapter: %w", err)
	}
	d.adapter = a

	limits := wgpu.DefaultLimits()
	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("backend: failed to request device: %w", err)
	}
	d.device = dev
	d.queue = dev.GetQueue()
	d.cmd = &commandBuffer{device: d}

	d.Resize(width, height)
	return d, nil
}

func (d *device) Capabilities() gfx.Capabilities {
	format, _ := fromTextureFormat(d.surfaceFormat)
	return gfx.Capabilities{
		UBOOffsetAlignment: uboOffsetAlignment,
		SurfaceFormat:      format,
		SampleCount:        uint32(d.sampleCount),
	}
}

func (d *device) CreateBuffer(info gfx.BufferInfo) (gfx.Buffer, error) {
	b := &buffer{device: d, info: info}
	if err := b.allocate(info.Size); err != nil {
		return nil, err
	}
	return b, nil
}

func (d *device) CreateBufferView(info gfx.BufferViewInfo) (gfx.Buffer, error) {
	parent, ok := info.Buffer.(*buffer)
	if !ok {
		return nil, fmt.Errorf("backend: buffer view parent must be a backend buffer, got %T", info.Buffer)
	}
	if info.Offset+info.Range > parent.info.Size {
		return nil, fmt.Errorf("backend: buffer view [%d, %d) exceeds parent size %d", info.Offset, info.Offset+info.Range, parent.info.Size)
	}
	return &bufferView{parent: parent, offset: info.Offset, size: info.Range}, nil
}

func (d *device) CreateInputAssembler(info gfx.InputAssemblerInfo) (gfx.InputAssembler, error) {
	ia := &inputAssembler{info: info, hash: gfx.HashAttributes(info.Attributes)}
	if len(info.VertexBuffers) > 0 && info.VertexBuffers[0] != nil {
		ia.vertexCount = info.VertexBuffers[0].Count()
	}
	if info.IndexBuffer != nil {
		ia.indexCount = info.IndexBuffer.Size() / 4
		if info.IndexBuffer.Stride() > 0 {
			ia.indexCount = info.IndexBuffer.Count()
		}
	}
	return ia, nil
}

func (d *device) CreateShader(info gfx.ShaderInfo) (gfx.Shader, error) {
	s := &shader{info: info, modules: make(map[gputypes.ShaderStage]*wgpu.ShaderModule, len(info.Stages))}
	bySource := make(map[string]*wgpu.ShaderModule, 1)
	for _, stage := range info.Stages {
		mod, ok := bySource[stage.Source]
		if !ok {
			var err error
			mod, err = d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
				Label: info.Name,
				WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
					Code: stage.Source,
				},
			})
			if err != nil {
				s.Destroy()
				return nil, fmt.Errorf("backend: failed to create shader module %q: %w", info.Name, err)
			}
			bySource[stage.Source] = mod
		}
		s.modules[stage.Stage] = mod
	}
	d.mu.Lock()
	d.nextShader++
	s.id = d.nextShader
	d.mu.Unlock()
	return s, nil
}

func (d *device) CreateDescriptorSetLayout(info gfx.DescriptorSetLayoutInfo) (gfx.DescriptorSetLayout, error) {
	entries := toLayoutEntries(info)
	raw, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{Entries: entries})
	if err != nil {
		return nil, fmt.Errorf("backend: failed to create bind group layout: %w", err)
	}
	l := &descriptorSetLayout{info: info, raw: raw, entries: entries}
	for _, e := range entries {
		if e.Buffer.HasDynamicOffset {
			l.dynamicCount++
		}
	}
	return l, nil
}

func (d *device) CreateDescriptorSet(info gfx.DescriptorSetInfo) (gfx.DescriptorSet, error) {
	layout, ok := info.Layout.(*descriptorSetLayout)
	if !ok {
		return nil, fmt.Errorf("backend: descriptor set layout must be a backend layout, got %T", info.Layout)
	}
	return &descriptorSet{device: d, layout: layout, pending: make(map[uint32]gfx.Buffer), committed: make(map[uint32]gfx.Buffer)}, nil
}

func (d *device) CreatePipelineLayout(info gfx.PipelineLayoutInfo) (gfx.PipelineLayout, error) {
	layouts := make([]*wgpu.BindGroupLayout, 0, len(info.SetLayouts))
	for i, l := range info.SetLayouts {
		bl, ok := l.(*descriptorSetLayout)
		if !ok {
			return nil, fmt.Errorf("backend: set %d layout must be a backend layout, got %T", i, l)
		}
		layouts = append(layouts, bl.raw)
	}
	raw, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{BindGroupLayouts: layouts})
	if err != nil {
		return nil, fmt.Errorf("backend: failed to create pipeline layout: %w", err)
	}
	return &pipelineLayout{info: info, raw: raw}, nil
}

func (d *device) CreatePipelineState(info gfx.PipelineStateInfo) (gfx.PipelineState, error) {
	s, ok := info.Shader.(*shader)
	if !ok {
		return nil, fmt.Errorf("backend: pipeline shader must be a backend shader, got %T", info.Shader)
	}
	layout, ok := info.PipelineLayout.(*pipelineLayout)
	if !ok {
		return nil, fmt.Errorf("backend: pipeline layout must be a backend layout, got %T", info.PipelineLayout)
	}
	rp := info.RenderPass.Info()

	desc := &wgpu.RenderPipelineDescriptor{
		Label:  s.info.Name,
		Layout: layout.raw,
		Vertex: wgpu.VertexState{
			Module:     s.modules[gputypes.ShaderStageVertex],
			EntryPoint: s.entryPoint(gputypes.ShaderStageVertex),
			Buffers:    vertexLayouts(info.InputState.Attributes),
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  toTopology(info.Primitive),
			FrontFace: toFrontFace(info.Rasterizer.FrontFace),
			CullMode:  toCullMode(info.Rasterizer.CullMode),
		},
		Multisample: wgpu.MultisampleState{
			Count: max(rp.SampleCount, 1),
			Mask:  0xFFFFFFFF,
		},
	}

	if len(rp.ColorFormats) > 0 {
		targets := make([]wgpu.ColorTargetState, 0, len(rp.ColorFormats))
		for i, f := range rp.ColorFormats {
			format, ok := toTextureFormat(f)
			if !ok {
				return nil, fmt.Errorf("backend: color target %d: %w", i, ErrUnsupportedFormat)
			}
			state := wgpu.ColorTargetState{Format: format, WriteMask: wgpu.ColorWriteMaskAll}
			if i < len(info.Blend.Targets) {
				t := info.Blend.Targets[i]
				state.WriteMask = toWriteMask(t.WriteMask)
				if t.Blend {
					state.Blend = toBlendState(t.State)
				}
			}
			targets = append(targets, state)
		}
		desc.Fragment = &wgpu.FragmentState{
			Module:     s.modules[gputypes.ShaderStageFragment],
			EntryPoint: s.entryPoint(gputypes.ShaderStageFragment),
			Targets:    targets,
		}
	}

	if rp.DepthStencilFormat != gputypes.TextureFormatUndefined {
		format, ok := toTextureFormat(rp.DepthStencilFormat)
		if !ok {
			return nil, fmt.Errorf("backend: depth target: %w", ErrUnsupportedFormat)
		}
		depthCompare := toCompare(info.DepthStencil.DepthFunc)
		if !info.DepthStencil.DepthTest {
			depthCompare = wgpu.CompareFunctionAlways
		}
		desc.DepthStencil = &wgpu.DepthStencilState{
			Format:              format,
			DepthWriteEnabled:   info.DepthStencil.DepthWrite,
			DepthCompare:        depthCompare,
			DepthBias:           info.Rasterizer.DepthBias,
			DepthBiasSlopeScale: info.Rasterizer.DepthBiasSlopeScale,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}

	raw, err := d.device.CreateRenderPipeline(desc)
	if err != nil {
		return nil, fmt.Errorf("backend: failed to create render pipeline %q: %w", s.info.Name, err)
	}
	return &pipelineState{info: info, raw: raw}, nil
}

func (d *device) CreateRenderPass(info gfx.RenderPassInfo) (gfx.RenderPass, error) {
	for _, f := range info.ColorFormats {
		if _, ok := toTextureFormat(f); !ok {
			return nil, ErrUnsupportedFormat
		}
	}
	if info.DepthStencilFormat != gputypes.TextureFormatUndefined {
		if _, ok := toTextureFormat(info.DepthStencilFormat); !ok {
			return nil, ErrUnsupportedFormat
		}
	}
	return &renderPass{info: info, hash: gfx.HashRenderPass(info)}, nil
}

func (d *device) CreateFramebuffer(info gfx.FramebufferInfo) (gfx.Framebuffer, error) {
	fb := &framebuffer{device: d, info: info}
	if info.Swapchain {
		fb.info.Width, fb.info.Height = d.width, d.height
	}
	if err := fb.allocate(); err != nil {
		return nil, err
	}
	if info.Swapchain {
		d.mu.Lock()
		d.swapchains = append(d.swapchains, fb)
		d.mu.Unlock()
	}
	return fb, nil
}

func (d *device) CommandBuffer() gfx.CommandBuffer {
	return d.cmd
}

func (d *device) Acquire() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frameSurface != nil {
		return ErrFrameInFlight
	}
	surfaceTexture, err := d.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}
	d.frameSurface = surfaceTexture
	d.frameView = view
	d.frameCleared = false
	return nil
}

func (d *device) Submit(cmds ...gfx.CommandBuffer) {
	for _, c := range cmds {
		cb, ok := c.(*commandBuffer)
		if !ok || cb.finished == nil {
			continue
		}
		d.queue.Submit(cb.finished)
		cb.finished.Release()
		cb.finished = nil
	}
}

func (d *device) Present() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frameSurface == nil {
		return
	}
	d.surface.Present()
	d.frameView.Release()
	d.frameView = nil
	d.frameSurface.Release()
	d.frameSurface = nil
}

func (d *device) Resize(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	capabilities := d.surface.GetCapabilities(d.adapter)
	d.surfaceFormat = capabilities.Formats[0]
	for _, f := range capabilities.Formats {
		if _, ok := fromTextureFormat(f); ok {
			d.surfaceFormat = f
			break
		}
	}
	d.surface.Configure(d.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      d.surfaceFormat,
		Width:       width,
		Height:      height,
		PresentMode: d.wgpuPresentMode(capabilities.PresentModes),
		AlphaMode:   capabilities.AlphaModes[0],
	})
	d.width, d.height = width, height

	for _, fb := range d.swapchains {
		fb.release()
		fb.info.Width, fb.info.Height = width, height
		if err := fb.allocate(); err != nil {
			logger.Logger().Error("backend: failed to resize swapchain framebuffer", zap.Error(err))
		}
	}
}

// wgpuPresentMode maps the configured present mode, falling back to Fifo when the surface lacks it.
func (d *device) wgpuPresentMode(supported []wgpu.PresentMode) wgpu.PresentMode {
	want := wgpu.PresentModeFifo
	switch d.presentMode {
	case PresentModeUncapped:
		want = wgpu.PresentModeImmediate
	case PresentModeMailbox:
		want = wgpu.PresentModeMailbox
	}
	for _, m := range supported {
		if m == want {
			return want
		}
	}
	return wgpu.PresentModeFifo
}

// dummyBuffer returns a zeroed uniform buffer of at least size bytes for bindings left empty.
func (d *device) dummyBuffer(size uint64) (*wgpu.Buffer, error) {
	size = max(alignUp4(size), minDummySize)
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := d.dummies[size]; ok {
		return b, nil
	}
	b, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Placeholder Uniform Buffer",
		Size:  size,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	d.dummies[size] = b
	return b, nil
}

func (d *device) Destroy() {
	d.mu.Lock()
	for _, fb := range d.swapchains {
		fb.release()
	}
	d.swapchains = nil
	for size, b := range d.dummies {
		b.Release()
		delete(d.dummies, size)
	}
	d.mu.Unlock()

	if d.cmd != nil {
		d.cmd.release()
	}
	d.Present()
	if d.queue != nil {
		d.queue.Release()
	}
	if d.device != nil {
		d.device.Release()
	}
	if d.adapter != nil {
		d.adapter.Release()
	}
	if d.surface != nil {
		d.surface.Release()
	}
	if d.instance != nil {
		d.instance.Release()
	}
}
