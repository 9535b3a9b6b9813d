// Package gfx declares the backend-neutral device contracts the render pipeline is written against.
// Enumerations come from gputypes so that every backend shares a single vocabulary; concrete
// devices live in sibling packages (backend for WebGPU, gfxtest for tests).
package gfx

import (
	"math"

	"github.com/gogpu/gputypes"
)

// SetIndex identifies a descriptor set slot in a pipeline layout.
type SetIndex uint32

const (
	// SetIndexGlobal holds per-frame and per-camera data.
	SetIndexGlobal SetIndex = iota

	// SetIndexMaterial holds per-pass material data.
	SetIndexMaterial

	// SetIndexLocal holds per-draw data (world matrices, forward light, batched matrices).
	SetIndexLocal
)

// UnresolvedLocation marks an attribute whose shader location could not be matched by name.
const UnresolvedLocation = math.MaxUint32

// Vertex attribute names shared between meshes, shaders and the batching buffers.
const (
	AttrPosition   = "a_position"
	AttrNormal     = "a_normal"
	AttrTexCoord   = "a_texCoord"
	AttrColor      = "a_color"
	AttrBatchID    = "a_dyn_batch_id"
	AttrMatWorld0  = "a_matWorld0"
	AttrMatWorld1  = "a_matWorld1"
	AttrMatWorld2  = "a_matWorld2"
	AttrInstanceID = "a_instance_id"
)

// Attribute describes one vertex attribute and the vertex stream it is read from.
type Attribute struct {
	// Name is matched against shader-declared inputs when resolving locations.
	Name string

	// Format is the vertex format of the attribute.
	Format gputypes.VertexFormat

	// IsNormalized marks integer formats that the shader reads as normalized floats.
	IsNormalized bool

	// Stream is the index of the vertex buffer the attribute is read from.
	Stream uint32

	// IsInstanced marks per-instance attributes (step mode instance).
	IsInstanced bool

	// Location is the shader location. Only meaningful once resolved against a shader.
	Location uint32
}

// ShaderStage is the source of one stage of a shader program.
type ShaderStage struct {
	Stage      gputypes.ShaderStage
	Source     string
	EntryPoint string
}

// ShaderInfo describes a shader program variant.
type ShaderInfo struct {
	Name       string
	Stages     []ShaderStage
	Attributes []Attribute

	// SetLayouts holds the buffer bindings the program declares, keyed by set index.
	SetLayouts map[SetIndex]DescriptorSetLayoutInfo
}

// BufferInfo describes a buffer to create.
type BufferInfo struct {
	Label  string
	Usage  gputypes.BufferUsage
	Size   uint32
	Stride uint32
}

// BufferViewInfo describes a window into an existing buffer.
type BufferViewInfo struct {
	Buffer Buffer
	Offset uint32
	Range  uint32
}

// InputAssemblerInfo describes the vertex and index streams of a draw.
type InputAssemblerInfo struct {
	Attributes    []Attribute
	VertexBuffers []Buffer
	IndexBuffer   Buffer
}

// DescriptorSetLayoutInfo lists the bindings of a descriptor set layout.
type DescriptorSetLayoutInfo struct {
	Bindings []gputypes.BindGroupLayoutEntry
}

// DescriptorSetInfo describes a descriptor set to create.
type DescriptorSetInfo struct {
	Layout DescriptorSetLayout
}

// PipelineLayoutInfo lists the descriptor set layouts of a pipeline, indexed by SetIndex.
type PipelineLayoutInfo struct {
	SetLayouts []DescriptorSetLayout
}

// RenderPassInfo describes the attachments of a render pass.
type RenderPassInfo struct {
	ColorFormats       []gputypes.TextureFormat
	DepthStencilFormat gputypes.TextureFormat
	SampleCount        uint32
}

// FramebufferInfo describes a framebuffer. Swapchain framebuffers target the presentation surface.
type FramebufferInfo struct {
	RenderPass RenderPass
	Width      uint32
	Height     uint32
	Swapchain  bool
}

// RasterizerState is the fixed-function rasterizer configuration of a pass.
type RasterizerState struct {
	CullMode            gputypes.CullMode
	FrontFace           gputypes.FrontFace
	DepthBias           int32
	DepthBiasSlopeScale float32
}

// DepthStencilState is the depth configuration of a pass.
type DepthStencilState struct {
	DepthTest  bool
	DepthWrite bool
	DepthFunc  gputypes.CompareFunction
}

// BlendTarget is the blend configuration of one color target.
type BlendTarget struct {
	Blend     bool
	State     gputypes.BlendState
	WriteMask gputypes.ColorWriteMask
}

// BlendState holds one BlendTarget per color attachment.
type BlendState struct {
	Targets []BlendTarget
}

// IsTransparent reports whether the first target has blending enabled.
func (b BlendState) IsTransparent() bool {
	return len(b.Targets) > 0 && b.Targets[0].Blend
}

// DynamicStateFlags lists pipeline states that are set on the command buffer instead of baked.
type DynamicStateFlags uint32

const (
	DynamicStateViewport DynamicStateFlags = 1 << iota
	DynamicStateScissor
	DynamicStateDepthBias
	DynamicStateBlendConstants
)

// InputState is the resolved vertex input of a pipeline.
type InputState struct {
	Attributes []Attribute
}

// PipelineStateInfo holds everything needed to build a pipeline state object.
type PipelineStateInfo struct {
	Shader         Shader
	PipelineLayout PipelineLayout
	RenderPass     RenderPass
	InputState     InputState
	Rasterizer     RasterizerState
	DepthStencil   DepthStencilState
	Blend          BlendState
	Primitive      gputypes.PrimitiveTopology
	DynamicStates  DynamicStateFlags
}

// Capabilities reports device limits the pipeline depends on.
type Capabilities struct {
	// UBOOffsetAlignment is the required alignment of dynamic uniform buffer offsets.
	UBOOffsetAlignment uint32

	// SurfaceFormat is the color format of swapchain framebuffers.
	SurfaceFormat gputypes.TextureFormat

	// SampleCount is the sample count of swapchain framebuffers.
	SampleCount uint32
}

// Color is a clear color.
type Color struct {
	R, G, B, A float64
}
