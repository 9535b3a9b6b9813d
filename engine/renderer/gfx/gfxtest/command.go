package gfxtest

import "github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx"

// BoundSet is a descriptor set binding captured at draw time.
type BoundSet struct {
	Set     gfx.DescriptorSet
	Offsets []uint32
}

// Draw is a recorded draw call with the state bound when it was issued.
type Draw struct {
	Pipeline      gfx.PipelineState
	Sets          [3]BoundSet
	IA            gfx.InputAssembler
	VertexCount   uint32
	IndexCount    uint32
	InstanceCount uint32
}

// Upload is a recorded buffer update.
type Upload struct {
	Buffer gfx.Buffer
	Size   int
}

// Pass is a recorded render pass.
type Pass struct {
	RenderPass  gfx.RenderPass
	Framebuffer gfx.Framebuffer
	FirstDraw   int
	LastDraw    int
}

// CommandBuffer is a recording gfx.CommandBuffer.
type CommandBuffer struct {
	Draws         []Draw
	Uploads       []Upload
	Passes        []Pass
	PipelineBinds int
	SetBinds      int
	Ended         bool

	pso  gfx.PipelineState
	sets [3]BoundSet
	ia   gfx.InputAssembler
}

var _ gfx.CommandBuffer = (*CommandBuffer)(nil)

// Begin clears every recording.
func (c *CommandBuffer) Begin() error {
	*c = CommandBuffer{}
	return nil
}

func (c *CommandBuffer) BeginRenderPass(renderPass gfx.RenderPass, framebuffer gfx.Framebuffer, clearColor gfx.Color, clearDepth float32) {
	c.Passes = append(c.Passes, Pass{RenderPass: renderPass, Framebuffer: framebuffer, FirstDraw: len(c.Draws)})
}

func (c *CommandBuffer) EndRenderPass() {
	if n := len(c.Passes); n > 0 {
		c.Passes[n-1].LastDraw = len(c.Draws)
	}
}

func (c *CommandBuffer) End() error {
	c.Ended = true
	return nil
}

func (c *CommandBuffer) BindPipelineState(pso gfx.PipelineState) {
	c.pso = pso
	c.PipelineBinds++
}

func (c *CommandBuffer) BindDescriptorSet(set gfx.SetIndex, ds gfx.DescriptorSet, dynamicOffsets []uint32) {
	if int(set) >= len(c.sets) {
		return
	}
	c.sets[set] = BoundSet{Set: ds, Offsets: append([]uint32(nil), dynamicOffsets...)}
	c.SetBinds++
}

func (c *CommandBuffer) BindInputAssembler(ia gfx.InputAssembler) {
	c.ia = ia
}

func (c *CommandBuffer) Draw(ia gfx.InputAssembler) {
	c.Draws = append(c.Draws, Draw{
		Pipeline:      c.pso,
		Sets:          c.sets,
		IA:            ia,
		VertexCount:   ia.VertexCount(),
		IndexCount:    ia.IndexCount(),
		InstanceCount: ia.InstanceCount(),
	})
}

// UpdateBuffer copies data into the buffer's recorded bytes. Views write through to their parent.
func (c *CommandBuffer) UpdateBuffer(buffer gfx.Buffer, data []byte) {
	c.Uploads = append(c.Uploads, Upload{Buffer: buffer, Size: len(data)})
	b, ok := buffer.(*Buffer)
	if !ok {
		return
	}
	if b.Parent != nil {
		copy(b.Parent.Data[b.Offset:], data)
		return
	}
	copy(b.Data, data)
}

func (c *CommandBuffer) NumDrawCalls() uint32 {
	return uint32(len(c.Draws))
}

func (c *CommandBuffer) NumInstances() uint32 {
	var n uint32
	for i := range c.Draws {
		n += max(c.Draws[i].InstanceCount, 1)
	}
	return n
}
