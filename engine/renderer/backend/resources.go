package backend

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/gputypes"
)

// ErrViewResize is returned when Resize is called on a buffer view.
var ErrViewResize = errors.New("backend: buffer views cannot be resized")

// buffer is a GPU buffer. generation is bumped whenever the underlying wgpu buffer is replaced.
type buffer struct {
	device     *device
	info       gfx.BufferInfo
	raw        *wgpu.Buffer
	generation uint32
}

var _ gfx.Buffer = &buffer{}

func (b *buffer) allocate(size uint32) error {
	raw, err := b.device.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: b.info.Label,
		Size:  max(alignUp4(uint64(size)), 4),
		Usage: toBufferUsage(b.info.Usage),
	})
	if err != nil {
		return fmt.Errorf("backend: failed to create buffer %q of %d bytes: %w", b.info.Label, size, err)
	}
	if b.raw != nil {
		b.raw.Release()
	}
	b.raw = raw
	b.info.Size = size
	b.generation++
	return nil
}

func (b *buffer) Size() uint32   { return b.info.Size }
func (b *buffer) Stride() uint32 { return b.info.Stride }

func (b *buffer) Count() uint32 {
	if b.info.Stride == 0 {
		return 0
	}
	return b.info.Size / b.info.Stride
}

func (b *buffer) Resize(size uint32) error {
	return b.allocate(size)
}

func (b *buffer) Destroy() {
	if b.raw != nil {
		b.raw.Release()
		b.raw = nil
	}
}

// bufferView is a window into a parent buffer.
type bufferView struct {
	parent *buffer
	offset uint32
	size   uint32
}

var _ gfx.Buffer = &bufferView{}

func (v *bufferView) Size() uint32        { return v.size }
func (v *bufferView) Stride() uint32      { return 0 }
func (v *bufferView) Count() uint32       { return 0 }
func (v *bufferView) Resize(uint32) error { return ErrViewResize }
func (v *bufferView) Destroy()            {}

// binding is the wgpu range a gfx.Buffer resolves to.
type binding struct {
	raw        *wgpu.Buffer
	offset     uint64
	size       uint64
	generation uint32
	isView     bool
}

func resolve(b gfx.Buffer) (binding, bool) {
	switch v := b.(type) {
	case *buffer:
		if v.raw == nil {
			return binding{}, false
		}
		return binding{raw: v.raw, size: uint64(v.info.Size), generation: v.generation}, true
	case *bufferView:
		if v.parent.raw == nil {
			return binding{}, false
		}
		return binding{raw: v.parent.raw, offset: uint64(v.offset), size: uint64(v.size), generation: v.parent.generation, isView: true}, true
	}
	return binding{}, false
}

type inputAssembler struct {
	info          gfx.InputAssemblerInfo
	hash          uint32
	vertexCount   uint32
	indexCount    uint32
	instanceCount uint32
}

var _ gfx.InputAssembler = &inputAssembler{}

func (ia *inputAssembler) Attributes() []gfx.Attribute { return ia.info.Attributes }
func (ia *inputAssembler) AttributesHash() uint32      { return ia.hash }
func (ia *inputAssembler) VertexBuffers() []gfx.Buffer { return ia.info.VertexBuffers }
func (ia *inputAssembler) IndexBuffer() gfx.Buffer     { return ia.info.IndexBuffer }
func (ia *inputAssembler) VertexCount() uint32         { return ia.vertexCount }
func (ia *inputAssembler) SetVertexCount(n uint32)     { ia.vertexCount = n }
func (ia *inputAssembler) IndexCount() uint32          { return ia.indexCount }
func (ia *inputAssembler) SetIndexCount(n uint32)      { ia.indexCount = n }
func (ia *inputAssembler) InstanceCount() uint32       { return ia.instanceCount }
func (ia *inputAssembler) SetInstanceCount(n uint32)   { ia.instanceCount = n }
func (ia *inputAssembler) Destroy()                    {}

// shader holds one module per stage. Stages sharing a source share the module.
type shader struct {
	id      uint32
	info    gfx.ShaderInfo
	modules map[gputypes.ShaderStage]*wgpu.ShaderModule
}

var _ gfx.Shader = &shader{}

func (s *shader) TypedID() uint32             { return s.id }
func (s *shader) Name() string                { return s.info.Name }
func (s *shader) Attributes() []gfx.Attribute { return s.info.Attributes }

func (s *shader) entryPoint(stage gputypes.ShaderStage) string {
	for _, st := range s.info.Stages {
		if st.Stage == stage && st.EntryPoint != "" {
			return st.EntryPoint
		}
	}
	if stage == gputypes.ShaderStageFragment {
		return "fs_main"
	}
	return "vs_main"
}

func (s *shader) Destroy() {
	released := make(map[*wgpu.ShaderModule]bool, len(s.modules))
	for stage, m := range s.modules {
		if !released[m] {
			m.Release()
			released[m] = true
		}
		delete(s.modules, stage)
	}
}

type descriptorSetLayout struct {
	info         gfx.DescriptorSetLayoutInfo
	raw          *wgpu.BindGroupLayout
	entries      []wgpu.BindGroupLayoutEntry
	dynamicCount int
}

var _ gfx.DescriptorSetLayout = &descriptorSetLayout{}

func (l *descriptorSetLayout) Info() gfx.DescriptorSetLayoutInfo { return l.info }

func (l *descriptorSetLayout) Destroy() {
	if l.raw != nil {
		l.raw.Release()
		l.raw = nil
	}
}

// descriptorSet builds its bind group lazily. The group is rebuilt after Update or when a
// committed buffer has been reallocated since the last build.
type descriptorSet struct {
	device    *device
	layout    *descriptorSetLayout
	pending   map[uint32]gfx.Buffer
	committed map[uint32]gfx.Buffer

	raw         *wgpu.BindGroup
	generations map[uint32]uint32
	dirty       bool
}

var _ gfx.DescriptorSet = &descriptorSet{}

func (s *descriptorSet) Layout() gfx.DescriptorSetLayout { return s.layout }

func (s *descriptorSet) BindBuffer(binding uint32, buffer gfx.Buffer) {
	s.pending[binding] = buffer
}

func (s *descriptorSet) GetBuffer(binding uint32) gfx.Buffer {
	if b, ok := s.pending[binding]; ok {
		return b
	}
	return s.committed[binding]
}

func (s *descriptorSet) Update() {
	for k, v := range s.pending {
		s.committed[k] = v
	}
	clear(s.pending)
	s.dirty = true
}

func (s *descriptorSet) stale() bool {
	if s.dirty || s.raw == nil {
		return true
	}
	for slot, b := range s.committed {
		r, ok := resolve(b)
		if !ok || r.generation != s.generations[slot] {
			return true
		}
	}
	return false
}

// bindGroup returns the current bind group, rebuilding it when stale.
func (s *descriptorSet) bindGroup() (*wgpu.BindGroup, error) {
	if !s.stale() {
		return s.raw, nil
	}
	if s.generations == nil {
		s.generations = make(map[uint32]uint32, len(s.layout.entries))
	}
	entries := make([]wgpu.BindGroupEntry, 0, len(s.layout.entries))
	for _, le := range s.layout.entries {
		entry := wgpu.BindGroupEntry{Binding: le.Binding, Size: wgpu.WholeSize}
		r, ok := resolve(s.committed[le.Binding])
		switch {
		case ok:
			entry.Buffer = r.raw
			entry.Offset = r.offset
			if r.isView {
				entry.Size = r.size
			} else if le.Buffer.HasDynamicOffset && le.Buffer.MinBindingSize > 0 {
				entry.Size = le.Buffer.MinBindingSize
			}
			s.generations[le.Binding] = r.generation
		default:
			dummy, err := s.device.dummyBuffer(le.Buffer.MinBindingSize)
			if err != nil {
				return nil, err
			}
			entry.Buffer = dummy
			if le.Buffer.MinBindingSize > 0 {
				entry.Size = le.Buffer.MinBindingSize
			}
			delete(s.generations, le.Binding)
		}
		entries = append(entries, entry)
	}
	raw, err := s.device.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout:  s.layout.raw,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("backend: failed to create bind group: %w", err)
	}
	if s.raw != nil {
		s.raw.Release()
	}
	s.raw = raw
	s.dirty = false
	return raw, nil
}

func (s *descriptorSet) Destroy() {
	if s.raw != nil {
		s.raw.Release()
		s.raw = nil
	}
}

type pipelineLayout struct {
	info gfx.PipelineLayoutInfo
	raw  *wgpu.PipelineLayout
}

var _ gfx.PipelineLayout = &pipelineLayout{}

func (l *pipelineLayout) SetLayouts() []gfx.DescriptorSetLayout { return l.info.SetLayouts }

func (l *pipelineLayout) Destroy() {
	if l.raw != nil {
		l.raw.Release()
		l.raw = nil
	}
}

type pipelineState struct {
	info gfx.PipelineStateInfo
	raw  *wgpu.RenderPipeline
}

var _ gfx.PipelineState = &pipelineState{}

func (p *pipelineState) Info() gfx.PipelineStateInfo { return p.info }

func (p *pipelineState) Destroy() {
	if p.raw != nil {
		p.raw.Release()
		p.raw = nil
	}
}

type renderPass struct {
	info gfx.RenderPassInfo
	hash uint32
}

var _ gfx.RenderPass = &renderPass{}

func (r *renderPass) Hash() uint32             { return r.hash }
func (r *renderPass) Info() gfx.RenderPassInfo { return r.info }
func (r *renderPass) Destroy()                 {}

// framebuffer owns the attachment textures of a render pass. Swapchain framebuffers render into
// an MSAA color texture resolved to the surface, or straight into the surface when single-sampled.
type framebuffer struct {
	device *device
	info   gfx.FramebufferInfo

	textures []*wgpu.Texture
	colors   []*wgpu.TextureView
	depth    *wgpu.TextureView
}

var _ gfx.Framebuffer = &framebuffer{}

func (f *framebuffer) RenderPass() gfx.RenderPass { return f.info.RenderPass }
func (f *framebuffer) Width() uint32              { return f.info.Width }
func (f *framebuffer) Height() uint32             { return f.info.Height }

func (f *framebuffer) texture(label string, format gputypes.TextureFormat, samples uint32) (*wgpu.TextureView, error) {
	wf, ok := toTextureFormat(format)
	if !ok {
		return nil, ErrUnsupportedFormat
	}
	usage := wgpu.TextureUsageRenderAttachment
	if !f.info.Swapchain && samples == 1 {
		usage |= wgpu.TextureUsageTextureBinding
	}
	tex, err := f.device.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              max(f.info.Width, 1),
			Height:             max(f.info.Height, 1),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   samples,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wf,
		Usage:         usage,
	})
	if err != nil {
		return nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	f.textures = append(f.textures, tex)
	return view, nil
}

func (f *framebuffer) allocate() error {
	rp := f.info.RenderPass.Info()
	samples := max(rp.SampleCount, 1)
	for i, format := range rp.ColorFormats {
		if f.info.Swapchain && samples == 1 {
			// drawn straight into the acquired surface view
			f.colors = append(f.colors, nil)
			continue
		}
		view, err := f.texture(fmt.Sprintf("Color Attachment %d", i), format, samples)
		if err != nil {
			f.release()
			return fmt.Errorf("backend: failed to create color attachment %d: %w", i, err)
		}
		f.colors = append(f.colors, view)
	}
	if rp.DepthStencilFormat != gputypes.TextureFormatUndefined {
		view, err := f.texture("Depth Attachment", rp.DepthStencilFormat, samples)
		if err != nil {
			f.release()
			return fmt.Errorf("backend: failed to create depth attachment: %w", err)
		}
		f.depth = view
	}
	return nil
}

func (f *framebuffer) release() {
	for _, v := range f.colors {
		if v != nil {
			v.Release()
		}
	}
	f.colors = nil
	if f.depth != nil {
		f.depth.Release()
		f.depth = nil
	}
	for _, t := range f.textures {
		t.Release()
	}
	f.textures = nil
}

func (f *framebuffer) Destroy() {
	f.release()
	if !f.info.Swapchain {
		return
	}
	d := f.device
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, fb := range d.swapchains {
		if fb == f {
			d.swapchains = append(d.swapchains[:i], d.swapchains[i+1:]...)
			break
		}
	}
}
