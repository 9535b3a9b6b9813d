package pool

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx"
)

var (
	// ErrExhausted is returned when a pool runs out of addressable slots.
	ErrExhausted = errors.New("pool: index space exhausted")

	// ErrNoDevice is returned by device object pools created without a device.
	ErrNoDevice = errors.New("pool: no device")
)

func errPoolExhausted(t Type) error {
	return fmt.Errorf("%s: %w", t, ErrExhausted)
}

// Pools is the set of pools owned by one renderer. Entity pools are BufferPools; device objects
// are created lazily through the device factories when their ObjectPool allocates.
type Pools struct {
	device gfx.Device
	cfg    *config

	Pass     *BufferPool[PassView]
	SubModel *BufferPool[SubModelView]
	Model    *BufferPool[ModelView]
	Node     *BufferPool[NodeView]
	Camera   *BufferPool[CameraView]
	AABB     *BufferPool[AABBView]
	Frustum  *BufferPool[FrustumView]
	Light    *BufferPool[LightView]
	Shadows  *BufferPool[ShadowsView]

	SubModelArray *ArrayPool
	ModelArray    *ArrayPool

	Shader              *ObjectPool[gfx.Shader, gfx.ShaderInfo]
	DescriptorSet       *ObjectPool[gfx.DescriptorSet, gfx.DescriptorSetInfo]
	DescriptorSetLayout *ObjectPool[gfx.DescriptorSetLayout, gfx.DescriptorSetLayoutInfo]
	InputAssembler      *ObjectPool[gfx.InputAssembler, gfx.InputAssemblerInfo]
	PipelineLayout      *ObjectPool[gfx.PipelineLayout, gfx.PipelineLayoutInfo]
	Framebuffer         *ObjectPool[gfx.Framebuffer, gfx.FramebufferInfo]
	RenderPass          *ObjectPool[gfx.RenderPass, gfx.RenderPassInfo]
	Buffer              *ObjectPool[gfx.Buffer, gfx.BufferInfo]
}

// NewPools creates the pool set for a device.
//
// Parameters:
//   - device: the device used by the object pools, may be nil when no device objects are needed
//   - options: pool options shared by every pool
//
// Returns:
//   - *Pools: the pool set
func NewPools(device gfx.Device, options ...PoolBuilderOption) *Pools {
	cfg := newConfig(options...)
	p := &Pools{
		device:   device,
		cfg:      cfg,
		Pass:     newBufferPool[PassView](TypePass, passLayout, cfg),
		SubModel: newBufferPool[SubModelView](TypeSubModel, subModelLayout, cfg),
		Model:    newBufferPool[ModelView](TypeModel, modelLayout, cfg),
		Node:     newBufferPool[NodeView](TypeNode, nodeLayout, cfg),
		Camera:   newBufferPool[CameraView](TypeCamera, cameraLayout, cfg),
		AABB:     newBufferPool[AABBView](TypeAABB, aabbLayout, cfg),
		Frustum:  newBufferPool[FrustumView](TypeFrustum, frustumLayout, cfg),
		Light:    newBufferPool[LightView](TypeLight, lightLayout, cfg),
		Shadows:  newBufferPool[ShadowsView](TypeShadows, shadowsLayout, cfg),

		SubModelArray: newArrayPool(TypeSubModelArray, DefaultArrayStep, cfg),
		ModelArray:    newArrayPool(TypeModelArray, DefaultArrayStep*8, cfg),
	}

	p.Shader = deviceObjectPool(TypeShader, factory(device, gfx.Device.CreateShader), cfg)
	p.DescriptorSet = deviceObjectPool(TypeDescriptorSet, factory(device, gfx.Device.CreateDescriptorSet), cfg)
	p.DescriptorSetLayout = deviceObjectPool(TypeDescriptorSetLayout, factory(device, gfx.Device.CreateDescriptorSetLayout), cfg)
	p.InputAssembler = deviceObjectPool(TypeInputAssembler, factory(device, gfx.Device.CreateInputAssembler), cfg)
	p.PipelineLayout = deviceObjectPool(TypePipelineLayout, factory(device, gfx.Device.CreatePipelineLayout), cfg)
	p.Framebuffer = deviceObjectPool(TypeFramebuffer, factory(device, gfx.Device.CreateFramebuffer), cfg)
	p.RenderPass = deviceObjectPool(TypeRenderPass, factory(device, gfx.Device.CreateRenderPass), cfg)
	p.Buffer = deviceObjectPool(TypeBuffer, factory(device, gfx.Device.CreateBuffer), cfg)
	return p
}

// Device returns the device the object pools create objects with.
func (p *Pools) Device() gfx.Device {
	return p.device
}

// Mirror reports whether vector and matrix fields are mirrored into the buffer pools.
func (p *Pools) Mirror() bool {
	return p.cfg.mirror
}

// Debug reports whether debug handle validation is enabled.
func (p *Pools) Debug() bool {
	return p.cfg.debug
}

// Destroy destroys every live device object and array. Entity pools need no teardown.
func (p *Pools) Destroy() {
	p.Shader.Destroy()
	p.DescriptorSet.Destroy()
	p.InputAssembler.Destroy()
	p.PipelineLayout.Destroy()
	p.DescriptorSetLayout.Destroy()
	p.Framebuffer.Destroy()
	p.RenderPass.Destroy()
	p.Buffer.Destroy()
	p.SubModelArray.Destroy()
	p.ModelArray.Destroy()
}

// factory binds a device factory method to a device. A nil device fails every call with ErrNoDevice.
func factory[T any, A any](d gfx.Device, create func(gfx.Device, A) (T, error)) func(A) (T, error) {
	return func(args A) (T, error) {
		if d == nil {
			var zero T
			return zero, ErrNoDevice
		}
		return create(d, args)
	}
}

type destroyer interface {
	Destroy()
}

func deviceObjectPool[T destroyer, A any](t Type, create func(A) (T, error), cfg *config) *ObjectPool[T, A] {
	return newObjectPool(t, func(args A, _ T, _ bool) (T, error) {
		obj, err := create(args)
		if err != nil {
			var zero T
			return zero, fmt.Errorf("pool: failed to create %s: %w", t, err)
		}
		return obj, nil
	}, func(obj T) T {
		obj.Destroy()
		var zero T
		return zero
	}, cfg)
}
