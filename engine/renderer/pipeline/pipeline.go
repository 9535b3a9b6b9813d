// Package pipeline memoizes device pipeline state objects per pass, shader variant, render pass and
// vertex input layout.
package pipeline

import (
	"github.com/Carmen-Shannon/oxy-render/engine/logger"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"go.uber.org/zap"
)

// Key is the full identity of a cached pipeline state.
type Key struct {
	PassHash       uint32
	RenderPassHash uint32
	AttributesHash uint32
	ShaderID       uint32
}

// Hash combines the key components with XOR. It selects the bucket; the full key disambiguates
// entries that share a bucket.
func (k Key) Hash() uint32 {
	return k.PassHash ^ k.RenderPassHash ^ k.AttributesHash ^ k.ShaderID
}

type entry struct {
	key Key
	pso gfx.PipelineState
}

// cache is the implementation of the Cache interface.
type cache struct {
	buckets map[uint32][]entry
	count   int
	hits    uint64
	misses  uint64
}

// Cache deduplicates pipeline state objects. It is owned by one renderer and is not safe for
// concurrent use.
type Cache interface {
	// GetOrCreate returns the pipeline state for the combination, creating it on the first request.
	// On a miss the input assembler attributes are resolved against the shader's declared inputs by
	// name before the device object is created.
	//
	// Parameters:
	//   - device: the device creating pipeline states on a miss
	//   - pass: the pass supplying the fixed-function state and pipeline layout
	//   - shader: the shader variant to bind
	//   - renderPass: the render pass the pipeline renders into
	//   - ia: the input assembler supplying the vertex layout
	//
	// Returns:
	//   - gfx.PipelineState: the cached or new pipeline state, nil if an argument is nil or creation failed
	GetOrCreate(device gfx.Device, pass material.Pass, shader gfx.Shader, renderPass gfx.RenderPass, ia gfx.InputAssembler) gfx.PipelineState

	// Len returns the number of cached pipeline states.
	Len() int

	// Hits returns the number of lookups served from the cache.
	Hits() uint64

	// Misses returns the number of lookups that created a pipeline state.
	Misses() uint64

	// Destroy destroys every cached pipeline state and empties the cache.
	Destroy()
}

var _ Cache = &cache{}

// NewCache creates an empty Cache.
//
// Parameters:
//   - options: variadic list of CacheBuilderOption functions to configure the cache
//
// Returns:
//   - Cache: the cache
func NewCache(options ...CacheBuilderOption) Cache {
	c := &cache{}
	cfg := cacheConfig{initialCapacity: DefaultInitialCapacity}
	for _, opt := range options {
		opt(&cfg)
	}
	c.buckets = make(map[uint32][]entry, cfg.initialCapacity)
	return c
}

func (c *cache) GetOrCreate(device gfx.Device, pass material.Pass, shader gfx.Shader, renderPass gfx.RenderPass, ia gfx.InputAssembler) gfx.PipelineState {
	if device == nil || pass == nil || shader == nil || renderPass == nil || ia == nil {
		return nil
	}
	key := Key{
		PassHash:       pass.Hash(),
		RenderPassHash: renderPass.Hash(),
		AttributesHash: ia.AttributesHash(),
		ShaderID:       shader.TypedID(),
	}
	h := key.Hash()
	for _, e := range c.buckets[h] {
		if e.key == key {
			c.hits++
			return e.pso
		}
	}

	pso, err := device.CreatePipelineState(gfx.PipelineStateInfo{
		Shader:         shader,
		PipelineLayout: pass.PipelineLayout(),
		RenderPass:     renderPass,
		InputState:     gfx.InputState{Attributes: ResolveAttributes(shader.Attributes(), ia.Attributes())},
		Rasterizer:     pass.Rasterizer(),
		DepthStencil:   pass.DepthStencil(),
		Blend:          pass.Blend(),
		Primitive:      pass.Primitive(),
		DynamicStates:  pass.DynamicStates(),
	})
	if err != nil {
		logger.Logger().Warn("pipeline: failed to create pipeline state",
			zap.String("shader", shader.Name()),
			zap.Uint32("hash", h),
			zap.Error(err))
		return nil
	}
	c.misses++
	c.count++
	if len(c.buckets[h]) > 0 {
		logger.Logger().Debug("pipeline: hash bucket shared by distinct keys", zap.Uint32("hash", h))
	}
	c.buckets[h] = append(c.buckets[h], entry{key: key, pso: pso})
	return pso
}

func (c *cache) Len() int {
	return c.count
}

func (c *cache) Hits() uint64 {
	return c.hits
}

func (c *cache) Misses() uint64 {
	return c.misses
}

func (c *cache) Destroy() {
	for h, bucket := range c.buckets {
		for _, e := range bucket {
			e.pso.Destroy()
		}
		delete(c.buckets, h)
	}
	c.count = 0
}

// ResolveAttributes copies the input assembler attributes and assigns each the location of the first
// shader input with the same name. Attributes without a match keep gfx.UnresolvedLocation.
//
// Parameters:
//   - shaderAttrs: the shader's declared vertex inputs with their locations
//   - iaAttrs: the input assembler attributes
//
// Returns:
//   - []gfx.Attribute: the resolved attributes, in input assembler order
func ResolveAttributes(shaderAttrs, iaAttrs []gfx.Attribute) []gfx.Attribute {
	out := make([]gfx.Attribute, len(iaAttrs))
	for i, a := range iaAttrs {
		a.Location = gfx.UnresolvedLocation
		for _, s := range shaderAttrs {
			if s.Name == a.Name {
				a.Location = s.Location
				break
			}
		}
		out[i] = a
	}
	return out
}
