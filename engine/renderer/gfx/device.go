package gfx

// Buffer is a GPU buffer or a view into one.
type Buffer interface {
	// Size returns the size of the buffer in bytes.
	//
	// Returns:
	//   - uint32: the buffer size in bytes
	Size() uint32

	// Stride returns the element stride of the buffer in bytes.
	//
	// Returns:
	//   - uint32: the stride in bytes, 0 when the buffer is not element-structured
	Stride() uint32

	// Count returns Size divided by Stride, or 0 when the stride is 0.
	//
	// Returns:
	//   - uint32: the number of elements
	Count() uint32

	// Resize reallocates the buffer with a new size. Previous GPU contents are not preserved;
	// callers keep a CPU shadow and re-upload it.
	//
	// Parameters:
	//   - size: the new size in bytes
	//
	// Returns:
	//   - error: an error if the backend could not reallocate the buffer
	Resize(size uint32) error

	// Destroy releases the GPU resources held by the buffer.
	Destroy()
}

// InputAssembler binds vertex and index streams for a draw.
type InputAssembler interface {
	// Attributes returns the vertex attributes, in declaration order.
	//
	// Returns:
	//   - []Attribute: the attributes; callers must not modify the slice
	Attributes() []Attribute

	// AttributesHash returns a hash of the attribute layout, used as part of the pipeline cache key.
	//
	// Returns:
	//   - uint32: the attribute layout hash
	AttributesHash() uint32

	// VertexBuffers returns the vertex buffers, one per stream.
	//
	// Returns:
	//   - []Buffer: the vertex buffers
	VertexBuffers() []Buffer

	// IndexBuffer returns the index buffer, or nil for non-indexed draws.
	//
	// Returns:
	//   - Buffer: the index buffer or nil
	IndexBuffer() Buffer

	VertexCount() uint32
	SetVertexCount(n uint32)
	IndexCount() uint32
	SetIndexCount(n uint32)
	InstanceCount() uint32
	SetInstanceCount(n uint32)

	// Destroy releases the input assembler. Buffers it references are not destroyed.
	Destroy()
}

// Shader is a compiled shader program variant.
type Shader interface {
	// TypedID returns a device-unique id of the shader, used for sort keys and pipeline cache keys.
	//
	// Returns:
	//   - uint32: the shader id
	TypedID() uint32

	// Name returns the name the shader was created with.
	//
	// Returns:
	//   - string: the shader name
	Name() string

	// Attributes returns the vertex inputs declared by the shader.
	//
	// Returns:
	//   - []Attribute: the declared inputs with their locations
	Attributes() []Attribute

	Destroy()
}

// DescriptorSetLayout describes the bindings of a descriptor set.
type DescriptorSetLayout interface {
	Info() DescriptorSetLayoutInfo
	Destroy()
}

// DescriptorSet is a set of bound resources matching a DescriptorSetLayout.
type DescriptorSet interface {
	// Layout returns the layout the set was created with.
	//
	// Returns:
	//   - DescriptorSetLayout: the layout
	Layout() DescriptorSetLayout

	// BindBuffer binds a buffer to a binding slot. The change takes effect on the next Update.
	//
	// Parameters:
	//   - binding: the binding slot
	//   - buffer: the buffer or buffer view to bind
	BindBuffer(binding uint32, buffer Buffer)

	// GetBuffer returns the buffer bound at a slot, or nil.
	//
	// Parameters:
	//   - binding: the binding slot
	//
	// Returns:
	//   - Buffer: the bound buffer or nil
	GetBuffer(binding uint32) Buffer

	// Update commits pending bindings to the device.
	Update()

	Destroy()
}

// PipelineLayout lists the descriptor set layouts a pipeline is compatible with.
type PipelineLayout interface {
	SetLayouts() []DescriptorSetLayout
	Destroy()
}

// PipelineState is a compiled pipeline state object.
type PipelineState interface {
	Info() PipelineStateInfo
	Destroy()
}

// RenderPass describes the attachments a pipeline renders into.
type RenderPass interface {
	// Hash returns a hash of the attachment description, used as part of the pipeline cache key.
	//
	// Returns:
	//   - uint32: the render pass hash
	Hash() uint32

	Info() RenderPassInfo
	Destroy()
}

// Framebuffer is a set of attachments matching a RenderPass.
type Framebuffer interface {
	RenderPass() RenderPass
	Width() uint32
	Height() uint32
	Destroy()
}

// CommandBuffer records GPU commands for one frame.
type CommandBuffer interface {
	// Begin starts recording a new frame.
	//
	// Returns:
	//   - error: an error if the backend could not begin recording
	Begin() error

	// BeginRenderPass starts a render pass targeting a framebuffer.
	//
	// Parameters:
	//   - renderPass: the render pass describing the attachments
	//   - framebuffer: the framebuffer to render into
	//   - clearColor: the color to clear color attachments with
	//   - clearDepth: the depth to clear the depth attachment with
	BeginRenderPass(renderPass RenderPass, framebuffer Framebuffer, clearColor Color, clearDepth float32)

	// EndRenderPass ends the current render pass.
	EndRenderPass()

	// End finishes recording.
	//
	// Returns:
	//   - error: an error if the backend could not finish the recording
	End() error

	// BindPipelineState binds a pipeline state for subsequent draws.
	//
	// Parameters:
	//   - pso: the pipeline state to bind
	BindPipelineState(pso PipelineState)

	// BindDescriptorSet binds a descriptor set to a set index.
	//
	// Parameters:
	//   - set: the set index
	//   - ds: the descriptor set to bind
	//   - dynamicOffsets: one offset per dynamic binding of the set, in binding order
	BindDescriptorSet(set SetIndex, ds DescriptorSet, dynamicOffsets []uint32)

	// BindInputAssembler binds vertex and index buffers for subsequent draws.
	//
	// Parameters:
	//   - ia: the input assembler to bind
	BindInputAssembler(ia InputAssembler)

	// Draw issues a draw using the counts stored on the input assembler.
	//
	// Parameters:
	//   - ia: the input assembler whose counts describe the draw
	Draw(ia InputAssembler)

	// UpdateBuffer uploads data into a buffer starting at offset 0.
	//
	// Parameters:
	//   - buffer: the destination buffer
	//   - data: the bytes to upload
	UpdateBuffer(buffer Buffer, data []byte)

	// NumDrawCalls returns the number of draws recorded since Begin.
	NumDrawCalls() uint32

	// NumInstances returns the number of instances drawn since Begin.
	NumInstances() uint32
}

// Device creates GPU objects and submits command buffers.
// Factory methods return an error instead of panicking; per-frame callers degrade gracefully on failure.
type Device interface {
	// Capabilities returns the device limits.
	//
	// Returns:
	//   - Capabilities: the device limits
	Capabilities() Capabilities

	CreateBuffer(info BufferInfo) (Buffer, error)
	CreateBufferView(info BufferViewInfo) (Buffer, error)
	CreateInputAssembler(info InputAssemblerInfo) (InputAssembler, error)
	CreateShader(info ShaderInfo) (Shader, error)
	CreateDescriptorSetLayout(info DescriptorSetLayoutInfo) (DescriptorSetLayout, error)
	CreateDescriptorSet(info DescriptorSetInfo) (DescriptorSet, error)
	CreatePipelineLayout(info PipelineLayoutInfo) (PipelineLayout, error)
	CreatePipelineState(info PipelineStateInfo) (PipelineState, error)
	CreateRenderPass(info RenderPassInfo) (RenderPass, error)
	CreateFramebuffer(info FramebufferInfo) (Framebuffer, error)

	// CommandBuffer returns the primary command buffer of the device.
	//
	// Returns:
	//   - CommandBuffer: the primary command buffer
	CommandBuffer() CommandBuffer

	// Acquire prepares the next swapchain image for rendering.
	//
	// Returns:
	//   - error: an error if no image could be acquired
	Acquire() error

	// Submit submits recorded command buffers to the GPU queue.
	//
	// Parameters:
	//   - cmds: the command buffers to submit, in order
	Submit(cmds ...CommandBuffer)

	// Present presents the acquired swapchain image.
	Present()

	// Resize reconfigures the swapchain for a new surface size.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	Resize(width, height uint32)

	// Destroy releases the device.
	Destroy()
}
