// Package material holds render passes: the per-phase pipeline configuration of a material,
// its shader variants and the descriptor set of the material set.
package material

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"slices"

	"github.com/Carmen-Shannon/oxy-render/engine/logger"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pool"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/shader"
	"github.com/gogpu/gputypes"
	"go.uber.org/zap"
)

// ErrNoProgram is returned by NewPass when no shader program is given.
var ErrNoProgram = errors.New("material: pass requires a shader program")

// SharedLayouts holds the descriptor set layouts every pass of a renderer shares.
// The material set layout in between is parsed from each pass's program.
type SharedLayouts struct {
	// Global is the per-camera set layout (SetIndexGlobal).
	Global gfx.DescriptorSetLayout

	// Local is the per-draw set layout (SetIndexLocal).
	Local gfx.DescriptorSetLayout
}

// pass is the implementation of the Pass interface.
type pass struct {
	pools   *pool.Pools
	handle  pool.Handle
	program *shader.Program
	defines []shader.Define

	priority      uint32
	phase         Phase
	batching      BatchingScheme
	primitive     gputypes.PrimitiveTopology
	dynamicStates gfx.DynamicStateFlags
	rasterizer    gfx.RasterizerState
	depthStencil  gfx.DepthStencilState
	blend         gfx.BlendState

	params       GPUPassParams
	paramsDirty  bool
	paramsBuffer pool.Handle

	setLayout      pool.Handle
	descriptorSet  pool.Handle
	pipelineLayout pool.Handle
	shaderHandle   pool.Handle
	variants       map[string]pool.Handle
}

// Pass defines the interface for one render pass of a material. Scalar state lives in the Pass
// pool and is read back through the pass handle; device objects are allocated from the object pools.
type Pass interface {
	// Handle retrieves the pool handle of the pass.
	//
	// Returns:
	//   - pool.Handle: the handle into the Pass pool
	Handle() pool.Handle

	// Program retrieves the shader program of the pass.
	//
	// Returns:
	//   - *shader.Program: the program
	Program() *shader.Program

	// Defines retrieves the defines of the default shader variant.
	//
	// Returns:
	//   - []shader.Define: the defines; callers must not modify the slice
	Defines() []shader.Define

	// Priority retrieves the pass priority, 0-255.
	//
	// Returns:
	//   - uint32: the priority
	Priority() uint32

	// Phase retrieves the phase the pass renders in.
	//
	// Returns:
	//   - Phase: the phase bit
	Phase() Phase

	// BatchingScheme retrieves how sub-models using this pass are batched.
	//
	// Returns:
	//   - BatchingScheme: the batching scheme
	BatchingScheme() BatchingScheme

	// Primitive retrieves the primitive topology.
	//
	// Returns:
	//   - gputypes.PrimitiveTopology: the topology
	Primitive() gputypes.PrimitiveTopology

	// DynamicStates retrieves the dynamic pipeline states.
	//
	// Returns:
	//   - gfx.DynamicStateFlags: the dynamic states
	DynamicStates() gfx.DynamicStateFlags

	// Rasterizer retrieves the rasterizer state.
	//
	// Returns:
	//   - gfx.RasterizerState: the rasterizer state
	Rasterizer() gfx.RasterizerState

	// DepthStencil retrieves the depth state.
	//
	// Returns:
	//   - gfx.DepthStencilState: the depth state
	DepthStencil() gfx.DepthStencilState

	// Blend retrieves the blend state.
	//
	// Returns:
	//   - gfx.BlendState: the blend state
	Blend() gfx.BlendState

	// IsTransparent reports whether the first blend target has blending enabled.
	//
	// Returns:
	//   - bool: true for transparent passes
	IsTransparent() bool

	// Hash retrieves the hash of the program, defines and fixed-function states.
	// Passes with equal hashes build identical pipelines for the same shader, render pass and input layout.
	//
	// Returns:
	//   - uint32: the pass hash
	Hash() uint32

	// DescriptorSet retrieves the material descriptor set.
	//
	// Returns:
	//   - gfx.DescriptorSet: the descriptor set bound at SetIndexMaterial
	DescriptorSet() gfx.DescriptorSet

	// SetLayout retrieves the layout of the material descriptor set.
	//
	// Returns:
	//   - gfx.DescriptorSetLayout: the material set layout
	SetLayout() gfx.DescriptorSetLayout

	// PipelineLayout retrieves the pipeline layout (global, material and local sets).
	//
	// Returns:
	//   - gfx.PipelineLayout: the pipeline layout
	PipelineLayout() gfx.PipelineLayout

	// Shader retrieves the default shader variant.
	//
	// Returns:
	//   - gfx.Shader: the shader built from Defines
	Shader() gfx.Shader

	// ShaderHandle retrieves the pool handle of the default shader variant.
	//
	// Returns:
	//   - pool.Handle: the handle into the Shader pool
	ShaderHandle() pool.Handle

	// GetShaderVariant retrieves the shader variant built from the pass defines overridden by patches.
	// Variants are created once and cached by their define key.
	//
	// Parameters:
	//   - patches: the defines to override or add
	//
	// Returns:
	//   - gfx.Shader: the variant, or nil if it failed to compile or create
	GetShaderVariant(patches []MacroPatch) gfx.Shader

	// ShaderVariantHandle is GetShaderVariant returning the variant's pool handle.
	//
	// Parameters:
	//   - patches: the defines to override or add
	//
	// Returns:
	//   - pool.Handle: the handle into the Shader pool, NullHandle if the variant is unavailable
	ShaderVariantHandle(patches []MacroPatch) pool.Handle

	// Params retrieves the pass uniform values.
	//
	// Returns:
	//   - GPUPassParams: the values uploaded to PassParams
	Params() GPUPassParams

	// SetTint sets the tint color and marks the params for upload.
	//
	// Parameters:
	//   - color: the RGBA tint
	SetTint(color [4]float32)

	// Upload records the pass uniform upload when the params changed since the last upload.
	//
	// Parameters:
	//   - cmd: the command buffer to record into
	Upload(cmd gfx.CommandBuffer)

	// Destroy frees the pool entry and every device object of the pass.
	Destroy()
}

var _ Pass = &pass{}

// NewPass creates a Pass instance configured with the provided options. The default shader variant
// is compiled immediately and its group 1 bindings become the material set layout. When the program
// declares a uniform at @group(1) @binding(0) a PassParams buffer is created and bound there.
//
// Parameters:
//   - pools: the pools of the renderer the pass is used with
//   - shared: the global and local set layouts
//   - program: the shader program
//   - options: variadic list of PassBuilderOption functions to configure the pass
//
// Returns:
//   - Pass: the new pass
//   - error: an error if the program failed to compile or a device object could not be created
func NewPass(pools *pool.Pools, shared SharedLayouts, program *shader.Program, options ...PassBuilderOption) (Pass, error) {
	if program == nil {
		return nil, ErrNoProgram
	}
	p := &pass{
		pools:     pools,
		program:   program,
		phase:     PhaseDefault,
		primitive: gputypes.PrimitiveTopologyTriangleList,
		rasterizer: gfx.RasterizerState{
			CullMode:  gputypes.CullModeBack,
			FrontFace: gputypes.FrontFaceCCW,
		},
		depthStencil: gfx.DepthStencilState{
			DepthTest:  true,
			DepthWrite: true,
			DepthFunc:  gputypes.CompareFunctionLessEqual,
		},
		blend: gfx.BlendState{Targets: []gfx.BlendTarget{{
			State:     gputypes.BlendStateReplace(),
			WriteMask: gputypes.ColorWriteMaskAll,
		}}},
		params:   GPUPassParams{TintColor: [4]float32{1, 1, 1, 1}},
		variants: make(map[string]pool.Handle),
	}
	for _, opt := range options {
		opt(p)
	}

	if err := p.init(shared); err != nil {
		p.Destroy()
		return nil, err
	}
	return p, nil
}

func (p *pass) init(shared SharedLayouts) error {
	info, err := p.program.Variant(p.defines)
	if err != nil {
		return err
	}

	layoutInfo := info.SetLayouts[gfx.SetIndexMaterial]
	if p.setLayout, err = p.pools.DescriptorSetLayout.Alloc(layoutInfo); err != nil {
		return err
	}
	setLayout := p.SetLayout()
	if p.descriptorSet, err = p.pools.DescriptorSet.Alloc(gfx.DescriptorSetInfo{Layout: setLayout}); err != nil {
		return err
	}
	if size, ok := paramsBindingSize(layoutInfo, uint32(p.params.Size())); ok {
		p.paramsBuffer, err = p.pools.Buffer.Alloc(gfx.BufferInfo{
			Label: p.program.Name() + " pass params",
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
			Size:  size,
		})
		if err != nil {
			return err
		}
		p.DescriptorSet().BindBuffer(0, p.pools.Buffer.Get(p.paramsBuffer))
		p.paramsDirty = true
	}
	p.DescriptorSet().Update()

	p.pipelineLayout, err = p.pools.PipelineLayout.Alloc(gfx.PipelineLayoutInfo{
		SetLayouts: []gfx.DescriptorSetLayout{shared.Global, setLayout, shared.Local},
	})
	if err != nil {
		return err
	}

	if p.shaderHandle, err = p.shaderVariant(p.defines); err != nil {
		return err
	}

	p.handle = p.pools.Pass.Alloc()
	if p.handle.IsNull() {
		return fmt.Errorf("material: %w", pool.ErrExhausted)
	}
	pp := p.pools.Pass
	pp.SetUint32(p.handle, pool.PassPriority, p.priority)
	pp.SetUint32(p.handle, pool.PassPhase, uint32(p.phase))
	pp.SetUint32(p.handle, pool.PassBatchingScheme, uint32(p.batching))
	pp.SetUint32(p.handle, pool.PassPrimitive, uint32(p.primitive))
	pp.SetUint32(p.handle, pool.PassDynamicStates, uint32(p.dynamicStates))
	pp.SetUint32(p.handle, pool.PassHash, p.computeHash())
	pp.SetBool(p.handle, pool.PassIsTransparent, p.blend.IsTransparent())
	pp.SetHandle(p.handle, pool.PassDescriptorSet, p.descriptorSet)
	pp.SetHandle(p.handle, pool.PassPipelineLayout, p.pipelineLayout)
	return nil
}

// paramsBindingSize reports whether the material layout declares a uniform at binding 0 and the
// size its buffer needs.
func paramsBindingSize(info gfx.DescriptorSetLayoutInfo, minSize uint32) (uint32, bool) {
	for _, b := range info.Bindings {
		if b.Binding != 0 || b.Buffer == nil || b.Buffer.Type != gputypes.BufferBindingTypeUniform {
			continue
		}
		return max(minSize, uint32(b.Buffer.MinBindingSize)), true
	}
	return 0, false
}

func (p *pass) Handle() pool.Handle {
	return p.handle
}

func (p *pass) Program() *shader.Program {
	return p.program
}

func (p *pass) Defines() []shader.Define {
	return p.defines
}

func (p *pass) Priority() uint32 {
	return p.pools.Pass.GetUint32(p.handle, pool.PassPriority)
}

func (p *pass) Phase() Phase {
	return Phase(p.pools.Pass.GetUint32(p.handle, pool.PassPhase))
}

func (p *pass) BatchingScheme() BatchingScheme {
	return BatchingScheme(p.pools.Pass.GetUint32(p.handle, pool.PassBatchingScheme))
}

func (p *pass) Primitive() gputypes.PrimitiveTopology {
	return gputypes.PrimitiveTopology(p.pools.Pass.GetUint32(p.handle, pool.PassPrimitive))
}

func (p *pass) DynamicStates() gfx.DynamicStateFlags {
	return gfx.DynamicStateFlags(p.pools.Pass.GetUint32(p.handle, pool.PassDynamicStates))
}

func (p *pass) Rasterizer() gfx.RasterizerState {
	return p.rasterizer
}

func (p *pass) DepthStencil() gfx.DepthStencilState {
	return p.depthStencil
}

func (p *pass) Blend() gfx.BlendState {
	return p.blend
}

func (p *pass) IsTransparent() bool {
	return p.pools.Pass.GetBool(p.handle, pool.PassIsTransparent)
}

func (p *pass) Hash() uint32 {
	return p.pools.Pass.GetUint32(p.handle, pool.PassHash)
}

func (p *pass) DescriptorSet() gfx.DescriptorSet {
	return p.pools.DescriptorSet.Get(p.descriptorSet)
}

func (p *pass) SetLayout() gfx.DescriptorSetLayout {
	return p.pools.DescriptorSetLayout.Get(p.setLayout)
}

func (p *pass) PipelineLayout() gfx.PipelineLayout {
	return p.pools.PipelineLayout.Get(p.pipelineLayout)
}

func (p *pass) Shader() gfx.Shader {
	return p.pools.Shader.Get(p.shaderHandle)
}

func (p *pass) ShaderHandle() pool.Handle {
	return p.shaderHandle
}

func (p *pass) GetShaderVariant(patches []MacroPatch) gfx.Shader {
	h := p.ShaderVariantHandle(patches)
	if h.IsNull() {
		return nil
	}
	return p.pools.Shader.Get(h)
}

func (p *pass) ShaderVariantHandle(patches []MacroPatch) pool.Handle {
	if len(patches) == 0 {
		return p.shaderHandle
	}
	h, err := p.shaderVariant(mergeDefines(p.defines, patches))
	if err != nil {
		logger.Logger().Warn("shader variant unavailable",
			zap.String("program", p.program.Name()),
			zap.String("patches", shader.DefinesKey(patches)),
			zap.Error(err),
		)
		return pool.NullHandle
	}
	return h
}

// shaderVariant returns the cached shader handle for a define set, creating the shader on first use.
// Failures are cached as NullHandle so a broken variant is compiled once.
func (p *pass) shaderVariant(defines []shader.Define) (pool.Handle, error) {
	key := shader.DefinesKey(defines)
	if h, ok := p.variants[key]; ok {
		if h.IsNull() {
			return pool.NullHandle, fmt.Errorf("material: variant %q of %s failed earlier", key, p.program.Name())
		}
		return h, nil
	}
	info, err := p.program.Variant(defines)
	if err == nil {
		var h pool.Handle
		h, err = p.pools.Shader.Alloc(info)
		if err == nil {
			p.variants[key] = h
			return h, nil
		}
	}
	p.variants[key] = pool.NullHandle
	return pool.NullHandle, err
}

// mergeDefines overlays patches onto base. Patched names keep their position in base; new names are appended.
func mergeDefines(base []shader.Define, patches []MacroPatch) []shader.Define {
	out := slices.Clone(base)
	for _, patch := range patches {
		i := slices.IndexFunc(out, func(d shader.Define) bool { return d.Name == patch.Name })
		if i >= 0 {
			out[i].Value = patch.Value
			continue
		}
		out = append(out, patch)
	}
	return out
}

func (p *pass) Params() GPUPassParams {
	return p.params
}

func (p *pass) SetTint(color [4]float32) {
	p.params.TintColor = color
	p.paramsDirty = true
}

func (p *pass) Upload(cmd gfx.CommandBuffer) {
	if !p.paramsDirty || p.paramsBuffer.IsNull() {
		return
	}
	cmd.UpdateBuffer(p.pools.Buffer.Get(p.paramsBuffer), p.params.Marshal())
	p.paramsDirty = false
}

func (p *pass) Destroy() {
	for key, h := range p.variants {
		if !h.IsNull() {
			p.pools.Shader.Free(h)
		}
		delete(p.variants, key)
	}
	p.shaderHandle = pool.NullHandle
	freeObject(p.pools.PipelineLayout, &p.pipelineLayout)
	freeObject(p.pools.DescriptorSet, &p.descriptorSet)
	freeObject(p.pools.Buffer, &p.paramsBuffer)
	freeObject(p.pools.DescriptorSetLayout, &p.setLayout)
	if !p.handle.IsNull() {
		p.pools.Pass.Free(p.handle)
		p.handle = pool.NullHandle
	}
}

func freeObject[T any, A any](op *pool.ObjectPool[T, A], h *pool.Handle) {
	if h.IsNull() {
		return
	}
	op.Free(*h)
	*h = pool.NullHandle
}

// computeHash hashes everything that affects the pipeline a pass builds.
func (p *pass) computeHash() uint32 {
	b := make([]byte, 0, 128)
	b = append(b, p.program.Name()...)
	b = append(b, 0)
	b = append(b, shader.DefinesKey(p.defines)...)
	b = append(b, 0)
	b = binary.LittleEndian.AppendUint32(b, uint32(p.primitive))
	b = binary.LittleEndian.AppendUint32(b, uint32(p.dynamicStates))
	b = binary.LittleEndian.AppendUint32(b, uint32(p.rasterizer.CullMode))
	b = binary.LittleEndian.AppendUint32(b, uint32(p.rasterizer.FrontFace))
	b = binary.LittleEndian.AppendUint32(b, uint32(p.rasterizer.DepthBias))
	b = binary.LittleEndian.AppendUint32(b, math.Float32bits(p.rasterizer.DepthBiasSlopeScale))
	b = append(b, boolByte(p.depthStencil.DepthTest), boolByte(p.depthStencil.DepthWrite))
	b = binary.LittleEndian.AppendUint32(b, uint32(p.depthStencil.DepthFunc))
	for _, t := range p.blend.Targets {
		b = append(b, boolByte(t.Blend))
		b = binary.LittleEndian.AppendUint32(b, uint32(t.WriteMask))
		for _, c := range []gputypes.BlendComponent{t.State.Color, t.State.Alpha} {
			b = binary.LittleEndian.AppendUint32(b, uint32(c.SrcFactor))
			b = binary.LittleEndian.AppendUint32(b, uint32(c.DstFactor))
			b = binary.LittleEndian.AppendUint32(b, uint32(c.Operation))
		}
	}
	h := fnv.New32a()
	h.Write(b)
	return h.Sum32()
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
