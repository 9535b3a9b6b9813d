package backend

import (
	"github.com/Carmen-Shannon/oxy-render/engine/logger"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

// commandBuffer records into a wgpu command encoder. Buffer updates go straight to the queue and
// therefore land before the next Submit.
type commandBuffer struct {
	device *device

	encoder  *wgpu.CommandEncoder
	pass     *wgpu.RenderPassEncoder
	finished *wgpu.CommandBuffer

	offsets   []uint32
	draws     uint32
	instances uint32
}

var _ gfx.CommandBuffer = &commandBuffer{}

func (c *commandBuffer) Begin() error {
	c.release()
	encoder, err := c.device.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	c.encoder = encoder
	c.draws, c.instances = 0, 0
	return nil
}

func (c *commandBuffer) BeginRenderPass(renderPass gfx.RenderPass, framebuffer gfx.Framebuffer, clearColor gfx.Color, clearDepth float32) {
	if c.encoder == nil {
		return
	}
	fb, ok := framebuffer.(*framebuffer)
	if !ok {
		logger.Logger().Error("backend: framebuffer is not a backend framebuffer")
		return
	}
	d := c.device
	rp := renderPass.Info()

	desc := &wgpu.RenderPassDescriptor{}
	for i := range rp.ColorFormats {
		att := wgpu.RenderPassColorAttachment{
			LoadOp:  wgpu.LoadOpClear,
			StoreOp: wgpu.StoreOpStore,
			ClearValue: wgpu.Color{
				R: clearColor.R, G: clearColor.G, B: clearColor.B, A: clearColor.A,
			},
		}
		if i < len(fb.colors) {
			att.View = fb.colors[i]
		}
		if fb.info.Swapchain {
			if d.frameView == nil {
				logger.Logger().Warn("backend: render pass targets the swapchain before Acquire")
				return
			}
			if att.View == nil {
				att.View = d.frameView
			} else {
				att.ResolveTarget = d.frameView
			}
			if d.frameCleared {
				att.LoadOp = wgpu.LoadOpLoad
			}
		}
		desc.ColorAttachments = append(desc.ColorAttachments, att)
	}
	if fb.info.Swapchain && len(rp.ColorFormats) > 0 {
		d.frameCleared = true
	}
	if fb.depth != nil {
		desc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            fb.depth,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: clearDepth,
		}
	}
	c.pass = c.encoder.BeginRenderPass(desc)
}

func (c *commandBuffer) EndRenderPass() {
	if c.pass == nil {
		return
	}
	c.pass.End()
	c.pass.Release()
	c.pass = nil
}

func (c *commandBuffer) End() error {
	if c.encoder == nil {
		return nil
	}
	c.EndRenderPass()
	cb, err := c.encoder.Finish(nil)
	c.encoder.Release()
	c.encoder = nil
	if err != nil {
		return err
	}
	c.finished = cb
	return nil
}

func (c *commandBuffer) BindPipelineState(pso gfx.PipelineState) {
	p, ok := pso.(*pipelineState)
	if c.pass == nil || !ok || p.raw == nil {
		return
	}
	c.pass.SetPipeline(p.raw)
}

func (c *commandBuffer) BindDescriptorSet(set gfx.SetIndex, ds gfx.DescriptorSet, dynamicOffsets []uint32) {
	s, ok := ds.(*descriptorSet)
	if c.pass == nil || !ok {
		return
	}
	bg, err := s.bindGroup()
	if err != nil {
		logger.Logger().Error("backend: failed to bind descriptor set", zap.Uint32("set", uint32(set)), zap.Error(err))
		return
	}
	c.offsets = padOffsets(c.offsets, dynamicOffsets, s.layout.dynamicCount)
	c.pass.SetBindGroup(uint32(set), bg, c.offsets)
}

func (c *commandBuffer) BindInputAssembler(ia gfx.InputAssembler) {
	if c.pass == nil {
		return
	}
	for i, vb := range ia.VertexBuffers() {
		r, ok := resolve(vb)
		if !ok {
			continue
		}
		c.pass.SetVertexBuffer(uint32(i), r.raw, r.offset, r.size)
	}
	if ib := ia.IndexBuffer(); ib != nil {
		if r, ok := resolve(ib); ok {
			c.pass.SetIndexBuffer(r.raw, wgpu.IndexFormatUint32, r.offset, r.size)
		}
	}
}

func (c *commandBuffer) Draw(ia gfx.InputAssembler) {
	if c.pass == nil {
		return
	}
	instances := max(ia.InstanceCount(), 1)
	if ia.IndexBuffer() != nil && ia.IndexCount() > 0 {
		c.pass.DrawIndexed(ia.IndexCount(), instances, 0, 0, 0)
	} else {
		c.pass.Draw(ia.VertexCount(), instances, 0, 0)
	}
	c.draws++
	c.instances += instances
}

func (c *commandBuffer) UpdateBuffer(buf gfx.Buffer, data []byte) {
	r, ok := resolve(buf)
	if !ok || len(data) == 0 {
		return
	}
	n := min(uint64(len(data)), r.size)
	padded := alignUp4(n)
	if padded != uint64(len(data)) {
		tmp := make([]byte, padded)
		copy(tmp, data[:n])
		data = tmp
	}
	c.device.queue.WriteBuffer(r.raw, r.offset, data)
}

func (c *commandBuffer) NumDrawCalls() uint32 { return c.draws }
func (c *commandBuffer) NumInstances() uint32 { return c.instances }

func (c *commandBuffer) release() {
	if c.pass != nil {
		c.pass.Release()
		c.pass = nil
	}
	if c.encoder != nil {
		c.encoder.Release()
		c.encoder = nil
	}
	if c.finished != nil {
		c.finished.Release()
		c.finished = nil
	}
}
