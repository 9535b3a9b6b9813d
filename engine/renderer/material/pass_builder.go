package material

import (
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/shader"
	"github.com/gogpu/gputypes"
)

// PassBuilderOption is a function that configures a pass instance during construction.
type PassBuilderOption func(*pass)

// WithPriority is an option builder that sets the pass priority. Lower priorities are drawn first.
//
// Parameters:
//   - priority: the priority, 0-255
//
// Returns:
//   - PassBuilderOption: a function that applies the priority option to a pass
func WithPriority(priority uint32) PassBuilderOption {
	return func(p *pass) {
		p.priority = priority & 0xff
	}
}

// WithPhase is an option builder that sets the phase the pass renders in.
//
// Parameters:
//   - phase: the phase bit
//
// Returns:
//   - PassBuilderOption: a function that applies the phase option to a pass
func WithPhase(phase Phase) PassBuilderOption {
	return func(p *pass) {
		p.phase = phase
	}
}

// WithBatchingScheme is an option builder that sets how sub-models using the pass are batched.
//
// Parameters:
//   - scheme: the batching scheme
//
// Returns:
//   - PassBuilderOption: a function that applies the batching option to a pass
func WithBatchingScheme(scheme BatchingScheme) PassBuilderOption {
	return func(p *pass) {
		p.batching = scheme
	}
}

// WithDefines is an option builder that sets the defines selecting the pass's default shader variant.
//
// Parameters:
//   - defines: the variant defines
//
// Returns:
//   - PassBuilderOption: a function that applies the defines option to a pass
func WithDefines(defines ...shader.Define) PassBuilderOption {
	return func(p *pass) {
		p.defines = append(p.defines[:0], defines...)
	}
}

// WithPrimitive is an option builder that sets the primitive topology.
func WithPrimitive(topology gputypes.PrimitiveTopology) PassBuilderOption {
	return func(p *pass) {
		p.primitive = topology
	}
}

// WithDynamicStates is an option builder that sets the pipeline states recorded on the command buffer.
func WithDynamicStates(states gfx.DynamicStateFlags) PassBuilderOption {
	return func(p *pass) {
		p.dynamicStates = states
	}
}

// WithRasterizerState is an option builder that sets the rasterizer state.
func WithRasterizerState(state gfx.RasterizerState) PassBuilderOption {
	return func(p *pass) {
		p.rasterizer = state
	}
}

// WithDepthStencilState is an option builder that sets the depth state.
func WithDepthStencilState(state gfx.DepthStencilState) PassBuilderOption {
	return func(p *pass) {
		p.depthStencil = state
	}
}

// WithBlendState is an option builder that sets the blend state. A pass whose first target
// blends is transparent.
//
// Parameters:
//   - state: the blend state
//
// Returns:
//   - PassBuilderOption: a function that applies the blend option to a pass
func WithBlendState(state gfx.BlendState) PassBuilderOption {
	return func(p *pass) {
		p.blend = state
	}
}

// WithAlphaBlend is an option builder that makes the pass transparent with standard alpha blending
// and disables depth writes.
func WithAlphaBlend() PassBuilderOption {
	return func(p *pass) {
		p.blend = gfx.BlendState{Targets: []gfx.BlendTarget{{
			Blend:     true,
			State:     gputypes.BlendStateAlpha(),
			WriteMask: gputypes.ColorWriteMaskAll,
		}}}
		p.depthStencil.DepthWrite = false
	}
}

// WithAdditiveBlend is an option builder for forward-add passes: one-one additive blending
// with depth writes off and an equal-or-less depth test.
func WithAdditiveBlend() PassBuilderOption {
	return func(p *pass) {
		add := gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorOne,
			DstFactor: gputypes.BlendFactorOne,
			Operation: gputypes.BlendOperationAdd,
		}
		p.blend = gfx.BlendState{Targets: []gfx.BlendTarget{{
			Blend:     true,
			State:     gputypes.BlendState{Color: add, Alpha: add},
			WriteMask: gputypes.ColorWriteMaskAll,
		}}}
		p.depthStencil.DepthWrite = false
		p.depthStencil.DepthFunc = gputypes.CompareFunctionLessEqual
	}
}

// WithTint is an option builder that sets the tint color uploaded to PassParams.
//
// Parameters:
//   - color: the RGBA tint
//
// Returns:
//   - PassBuilderOption: a function that applies the tint option to a pass
func WithTint(color [4]float32) PassBuilderOption {
	return func(p *pass) {
		p.params.TintColor = color
	}
}
