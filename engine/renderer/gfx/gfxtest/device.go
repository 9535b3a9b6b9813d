// Package gfxtest provides an in-memory gfx.Device that records every factory call,
// binding and draw so that render pipeline code can be tested without a GPU.
package gfxtest

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx"
	"github.com/gogpu/gputypes"
)

// ErrInjected is returned by factories when a failure has been injected.
var ErrInjected = errors.New("gfxtest: injected failure")

// Device is a recording gfx.Device.
type Device struct {
	Caps gfx.Capabilities

	// FailBuffers makes CreateBuffer and Buffer.Resize fail.
	FailBuffers bool

	BuffersCreated         int
	BufferViewsCreated     int
	InputAssemblersCreated int
	ShadersCreated         int
	LayoutsCreated         int
	DescriptorSetsCreated  int
	PipelineLayoutsCreated int
	PipelineStatesCreated  int
	RenderPassesCreated    int
	FramebuffersCreated    int

	Acquired  int
	Submitted int
	Presented int

	nextShaderID uint32
	cmd          *CommandBuffer
}

var _ gfx.Device = (*Device)(nil)

// NewDevice returns a recording device with a 256 byte uniform offset alignment and a
// single-sampled BGRA8 swapchain.
func NewDevice() *Device {
	d := &Device{Caps: gfx.Capabilities{
		UBOOffsetAlignment: 256,
		SurfaceFormat:      gputypes.TextureFormatBGRA8Unorm,
		SampleCount:        1,
	}}
	d.cmd = &CommandBuffer{}
	return d
}

func (d *Device) Capabilities() gfx.Capabilities {
	return d.Caps
}

func (d *Device) CreateBuffer(info gfx.BufferInfo) (gfx.Buffer, error) {
	if d.FailBuffers {
		return nil, ErrInjected
	}
	d.BuffersCreated++
	return &Buffer{device: d, info: info, Data: make([]byte, info.Size)}, nil
}

func (d *Device) CreateBufferView(info gfx.BufferViewInfo) (gfx.Buffer, error) {
	parent, ok := info.Buffer.(*Buffer)
	if !ok {
		return nil, errors.New("gfxtest: buffer view requires a gfxtest buffer")
	}
	d.BufferViewsCreated++
	return &Buffer{
		device: d,
		info:   gfx.BufferInfo{Usage: parent.info.Usage, Size: info.Range},
		Parent: parent,
		Offset: info.Offset,
	}, nil
}

func (d *Device) CreateInputAssembler(info gfx.InputAssemblerInfo) (gfx.InputAssembler, error) {
	d.InputAssemblersCreated++
	ia := &InputAssembler{info: info, hash: gfx.HashAttributes(info.Attributes)}
	if len(info.VertexBuffers) > 0 && info.VertexBuffers[0].Stride() > 0 {
		ia.vertexCount = info.VertexBuffers[0].Count()
	}
	if info.IndexBuffer != nil && info.IndexBuffer.Stride() > 0 {
		ia.indexCount = info.IndexBuffer.Count()
	}
	return ia, nil
}

func (d *Device) CreateShader(info gfx.ShaderInfo) (gfx.Shader, error) {
	d.ShadersCreated++
	d.nextShaderID++
	return &Shader{id: d.nextShaderID, info: info}, nil
}

func (d *Device) CreateDescriptorSetLayout(info gfx.DescriptorSetLayoutInfo) (gfx.DescriptorSetLayout, error) {
	d.LayoutsCreated++
	return &DescriptorSetLayout{info: info}, nil
}

func (d *Device) CreateDescriptorSet(info gfx.DescriptorSetInfo) (gfx.DescriptorSet, error) {
	d.DescriptorSetsCreated++
	return &DescriptorSet{layout: info.Layout, pending: map[uint32]gfx.Buffer{}, bound: map[uint32]gfx.Buffer{}}, nil
}

func (d *Device) CreatePipelineLayout(info gfx.PipelineLayoutInfo) (gfx.PipelineLayout, error) {
	d.PipelineLayoutsCreated++
	return &PipelineLayout{info: info}, nil
}

func (d *Device) CreatePipelineState(info gfx.PipelineStateInfo) (gfx.PipelineState, error) {
	d.PipelineStatesCreated++
	return &PipelineState{info: info}, nil
}

func (d *Device) CreateRenderPass(info gfx.RenderPassInfo) (gfx.RenderPass, error) {
	d.RenderPassesCreated++
	return &RenderPass{info: info, hash: gfx.HashRenderPass(info)}, nil
}

func (d *Device) CreateFramebuffer(info gfx.FramebufferInfo) (gfx.Framebuffer, error) {
	d.FramebuffersCreated++
	return &Framebuffer{info: info}, nil
}

// CommandBuffer returns the recording command buffer.
func (d *Device) CommandBuffer() gfx.CommandBuffer {
	return d.cmd
}

// Recorder returns the concrete recording command buffer for assertions.
func (d *Device) Recorder() *CommandBuffer {
	return d.cmd
}

func (d *Device) Acquire() error {
	d.Acquired++
	return nil
}

func (d *Device) Submit(cmds ...gfx.CommandBuffer) {
	d.Submitted += len(cmds)
}

func (d *Device) Present() {
	d.Presented++
}

func (d *Device) Resize(width, height uint32) {}

func (d *Device) Destroy() {}

// Buffer is a recording buffer. Data holds the bytes most recently uploaded.
type Buffer struct {
	device *Device
	info   gfx.BufferInfo

	Data      []byte
	Resizes   int
	Destroyed bool

	// Parent and Offset are set for buffer views.
	Parent *Buffer
	Offset uint32
}

func (b *Buffer) Size() uint32   { return b.info.Size }
func (b *Buffer) Stride() uint32 { return b.info.Stride }

func (b *Buffer) Count() uint32 {
	if b.info.Stride == 0 {
		return 0
	}
	return b.info.Size / b.info.Stride
}

func (b *Buffer) Resize(size uint32) error {
	if b.device != nil && b.device.FailBuffers {
		return ErrInjected
	}
	b.Resizes++
	b.info.Size = size
	if b.Parent == nil {
		b.Data = make([]byte, size)
	}
	return nil
}

func (b *Buffer) Destroy() {
	b.Destroyed = true
}

// InputAssembler is a recording input assembler.
type InputAssembler struct {
	info          gfx.InputAssemblerInfo
	hash          uint32
	vertexCount   uint32
	indexCount    uint32
	instanceCount uint32
	Destroyed     bool
}

func (ia *InputAssembler) Attributes() []gfx.Attribute { return ia.info.Attributes }
func (ia *InputAssembler) AttributesHash() uint32      { return ia.hash }
func (ia *InputAssembler) VertexBuffers() []gfx.Buffer { return ia.info.VertexBuffers }
func (ia *InputAssembler) IndexBuffer() gfx.Buffer     { return ia.info.IndexBuffer }
func (ia *InputAssembler) VertexCount() uint32         { return ia.vertexCount }
func (ia *InputAssembler) SetVertexCount(n uint32)     { ia.vertexCount = n }
func (ia *InputAssembler) IndexCount() uint32          { return ia.indexCount }
func (ia *InputAssembler) SetIndexCount(n uint32)      { ia.indexCount = n }
func (ia *InputAssembler) InstanceCount() uint32       { return ia.instanceCount }
func (ia *InputAssembler) SetInstanceCount(n uint32)   { ia.instanceCount = n }
func (ia *InputAssembler) Destroy()                    { ia.Destroyed = true }

// Shader is a recording shader.
type Shader struct {
	id        uint32
	info      gfx.ShaderInfo
	Destroyed bool
}

func (s *Shader) TypedID() uint32             { return s.id }
func (s *Shader) Name() string                { return s.info.Name }
func (s *Shader) Attributes() []gfx.Attribute { return s.info.Attributes }
func (s *Shader) Info() gfx.ShaderInfo        { return s.info }
func (s *Shader) Destroy()                    { s.Destroyed = true }

// DescriptorSetLayout is a recording descriptor set layout.
type DescriptorSetLayout struct {
	info      gfx.DescriptorSetLayoutInfo
	Destroyed bool
}

func (l *DescriptorSetLayout) Info() gfx.DescriptorSetLayoutInfo { return l.info }
func (l *DescriptorSetLayout) Destroy()                          { l.Destroyed = true }

// DescriptorSet is a recording descriptor set. Bindings become visible through GetBuffer
// immediately and are counted as committed on Update.
type DescriptorSet struct {
	layout    gfx.DescriptorSetLayout
	pending   map[uint32]gfx.Buffer
	bound     map[uint32]gfx.Buffer
	Updates   int
	Destroyed bool
}

func (s *DescriptorSet) Layout() gfx.DescriptorSetLayout { return s.layout }

func (s *DescriptorSet) BindBuffer(binding uint32, buffer gfx.Buffer) {
	s.pending[binding] = buffer
}

func (s *DescriptorSet) GetBuffer(binding uint32) gfx.Buffer {
	if b, ok := s.pending[binding]; ok {
		return b
	}
	return s.bound[binding]
}

// Committed returns the buffer bound at a slot as of the last Update.
func (s *DescriptorSet) Committed(binding uint32) gfx.Buffer {
	return s.bound[binding]
}

func (s *DescriptorSet) Update() {
	for k, v := range s.pending {
		s.bound[k] = v
	}
	clear(s.pending)
	s.Updates++
}

func (s *DescriptorSet) Destroy() { s.Destroyed = true }

// PipelineLayout is a recording pipeline layout.
type PipelineLayout struct {
	info      gfx.PipelineLayoutInfo
	Destroyed bool
}

func (l *PipelineLayout) SetLayouts() []gfx.DescriptorSetLayout { return l.info.SetLayouts }
func (l *PipelineLayout) Destroy()                              { l.Destroyed = true }

// PipelineState is a recording pipeline state.
type PipelineState struct {
	info      gfx.PipelineStateInfo
	Destroyed bool
}

func (p *PipelineState) Info() gfx.PipelineStateInfo { return p.info }
func (p *PipelineState) Destroy()                    { p.Destroyed = true }

// RenderPass is a recording render pass.
type RenderPass struct {
	info      gfx.RenderPassInfo
	hash      uint32
	Destroyed bool
}

func (r *RenderPass) Hash() uint32             { return r.hash }
func (r *RenderPass) Info() gfx.RenderPassInfo { return r.info }
func (r *RenderPass) Destroy()                 { r.Destroyed = true }

// Framebuffer is a recording framebuffer.
type Framebuffer struct {
	info      gfx.FramebufferInfo
	Destroyed bool
}

func (f *Framebuffer) RenderPass() gfx.RenderPass { return f.info.RenderPass }
func (f *Framebuffer) Width() uint32              { return f.info.Width }
func (f *Framebuffer) Height() uint32             { return f.info.Height }
func (f *Framebuffer) Destroy()                   { f.Destroyed = true }
