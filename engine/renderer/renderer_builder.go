package renderer

import (
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/culling"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pool"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithDebugChecks enables handle validation on every pool the renderer owns.
//
// Parameters:
//   - enabled: true to validate handles on every pool access
//
// Returns:
//   - RendererBuilderOption: a function that applies the debug option to a renderer
func WithDebugChecks(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.poolOptions = append(r.poolOptions, pool.WithDebugChecks(enabled))
	}
}

// WithMirror controls whether vector and matrix fields are mirrored into the buffer pools.
//
// Parameters:
//   - enabled: true to mirror writes into the pools
//
// Returns:
//   - RendererBuilderOption: a function that applies the mirror option to a renderer
func WithMirror(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.poolOptions = append(r.poolOptions, pool.WithMirror(enabled))
	}
}

// WithChunkSize sets the number of entries per buffer pool chunk.
//
// Parameters:
//   - size: the chunk size, rounded up to a power of two by the pools
//
// Returns:
//   - RendererBuilderOption: a function that applies the chunk size option to a renderer
func WithChunkSize(size uint32) RendererBuilderOption {
	return func(r *renderer) {
		r.poolOptions = append(r.poolOptions, pool.WithChunkSize(size))
	}
}

// WithPoolViolationHandler routes pool contract violations to a custom handler. It only has an
// effect together with WithDebugChecks.
//
// Parameters:
//   - h: the violation handler
//
// Returns:
//   - RendererBuilderOption: a function that applies the handler option to a renderer
func WithPoolViolationHandler(h pool.ViolationHandler) RendererBuilderOption {
	return func(r *renderer) {
		r.poolOptions = append(r.poolOptions, pool.WithViolationHandler(h))
	}
}

// WithCullingWorkers runs the visibility phase of culling on a worker pool. 0 picks one worker per
// spare CPU.
//
// Parameters:
//   - n: the number of culling workers
//
// Returns:
//   - RendererBuilderOption: a function that applies the culling option to a renderer
func WithCullingWorkers(n int) RendererBuilderOption {
	return func(r *renderer) {
		r.cullingOptions = append(r.cullingOptions, culling.WithCullingWorkers(n))
	}
}

// WithHDR renders in HDR: camera exposure and light illuminance are scaled into the HDR range.
//
// Parameters:
//   - hdr: true to render in HDR
//
// Returns:
//   - RendererBuilderOption: a function that applies the HDR option to a renderer
func WithHDR(hdr bool) RendererBuilderOption {
	return func(r *renderer) {
		r.hdr = hdr
	}
}

// WithFPScale sets the floating point scale applied to additive light luminance in HDR.
//
// Parameters:
//   - scale: the scale, 1 by default
//
// Returns:
//   - RendererBuilderOption: a function that applies the scale option to a renderer
func WithFPScale(scale float32) RendererBuilderOption {
	return func(r *renderer) {
		r.fpScale = scale
	}
}

// WithShadows enables the shadow caster pass for scenes with enabled shadows and a directional
// main light.
//
// Parameters:
//   - enabled: true to record shadow caster passes
//
// Returns:
//   - RendererBuilderOption: a function that applies the shadows option to a renderer
func WithShadows(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.shadows = enabled
	}
}

// WithLightBufferCapacity sets the initial number of lights the additive light buffer holds.
//
// Parameters:
//   - lights: the initial capacity
//
// Returns:
//   - RendererBuilderOption: a function that applies the capacity option to a renderer
func WithLightBufferCapacity(lights uint32) RendererBuilderOption {
	return func(r *renderer) {
		r.lightCapacity = lights
	}
}
