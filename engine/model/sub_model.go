package model

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pool"
)

// ErrTooManyPasses is returned when a sub-model is given more passes than its pool entry holds.
var ErrTooManyPasses = errors.New("model: too many passes for a sub-model")

type subModel struct {
	pools  *pool.Pools
	handle pool.Handle
	mesh   Mesh

	passes         []material.Pass
	patches        []material.MacroPatch
	inputAssembler pool.Handle
	descriptorSet  pool.Handle
}

// SubModel defines the interface for one drawable part of a model: a mesh drawn with a list of passes.
// Priority, pass and shader handles, the descriptor set and the input assembler live in the SubModel pool.
type SubModel interface {
	// Handle returns the sub-model's pool handle.
	//
	// Returns:
	//   - pool.Handle: the handle into the SubModel pool
	Handle() pool.Handle

	// Mesh returns the geometry of the sub-model.
	//
	// Returns:
	//   - Mesh: the mesh
	Mesh() Mesh

	// Priority returns the sub-model priority used by render queue sorting.
	//
	// Returns:
	//   - uint32: the priority in [0, 255]
	Priority() uint32

	// SetPriority sets the sub-model priority.
	//
	// Parameters:
	//   - priority: the priority, masked to 8 bits
	SetPriority(priority uint32)

	// Passes returns the passes the sub-model is drawn with.
	//
	// Returns:
	//   - []material.Pass: the passes, indexed by pass index
	Passes() []material.Pass

	// Shader returns the shader variant of a pass for this sub-model.
	//
	// Parameters:
	//   - passIdx: the pass index
	//
	// Returns:
	//   - gfx.Shader: the shader, nil for an out-of-range index or an unavailable variant
	Shader(passIdx int) gfx.Shader

	// Patches returns the defines the sub-model applies to every pass.
	//
	// Returns:
	//   - []material.MacroPatch: the patches
	Patches() []material.MacroPatch

	// SetPatches replaces the sub-model patches and re-resolves the shader of every pass.
	//
	// Parameters:
	//   - patches: the defines to apply
	SetPatches(patches []material.MacroPatch)

	// InputAssembler returns the input assembler drawing the mesh.
	//
	// Returns:
	//   - gfx.InputAssembler: the input assembler
	InputAssembler() gfx.InputAssembler

	// DescriptorSet returns the local descriptor set of the sub-model.
	//
	// Returns:
	//   - gfx.DescriptorSet: the set bound at SetIndexLocal
	DescriptorSet() gfx.DescriptorSet

	// Destroy frees the sub-model's pool entries. The mesh and the passes are not destroyed.
	Destroy()
}

var _ SubModel = &subModel{}

func newSubModel(pools *pool.Pools, localLayout gfx.DescriptorSetLayout, local gfx.Buffer, mesh Mesh, passes []material.Pass, priority uint32) (*subModel, error) {
	if len(passes) > pool.MaxPassesPerSubModel {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyPasses, len(passes), pool.MaxPassesPerSubModel)
	}
	sm := &subModel{pools: pools, mesh: mesh, passes: passes}
	var err error
	if sm.inputAssembler, err = pools.InputAssembler.Alloc(mesh.InputAssemblerInfo()); err != nil {
		return nil, err
	}
	if sm.descriptorSet, err = pools.DescriptorSet.Alloc(gfx.DescriptorSetInfo{Layout: localLayout}); err != nil {
		pools.InputAssembler.Free(sm.inputAssembler)
		return nil, err
	}
	ds := sm.DescriptorSet()
	ds.BindBuffer(LocalBinding, local)
	ds.Update()

	sm.handle = pools.SubModel.Alloc()
	sp := pools.SubModel
	sp.SetUint32(sm.handle, pool.SubModelPriority, priority&0xff)
	sp.SetUint32(sm.handle, pool.SubModelPassCount, uint32(len(passes)))
	sp.SetHandle(sm.handle, pool.SubModelInputAssembler, sm.inputAssembler)
	sp.SetHandle(sm.handle, pool.SubModelDescriptorSet, sm.descriptorSet)
	sm.resolveShaders()
	return sm, nil
}

func (s *subModel) Handle() pool.Handle {
	return s.handle
}

func (s *subModel) Mesh() Mesh {
	return s.mesh
}

func (s *subModel) Priority() uint32 {
	return s.pools.SubModel.GetUint32(s.handle, pool.SubModelPriority)
}

func (s *subModel) SetPriority(priority uint32) {
	s.pools.SubModel.SetUint32(s.handle, pool.SubModelPriority, priority&0xff)
}

func (s *subModel) Passes() []material.Pass {
	return s.passes
}

func (s *subModel) Shader(passIdx int) gfx.Shader {
	if passIdx < 0 || passIdx >= len(s.passes) {
		return nil
	}
	h := s.pools.SubModel.GetHandle(s.handle, pool.SubModelShader0+pool.SubModelView(passIdx))
	if h.IsNull() {
		return nil
	}
	return s.pools.Shader.Get(h)
}

func (s *subModel) Patches() []material.MacroPatch {
	return s.patches
}

func (s *subModel) SetPatches(patches []material.MacroPatch) {
	s.patches = patches
	s.resolveShaders()
}

func (s *subModel) InputAssembler() gfx.InputAssembler {
	return s.pools.InputAssembler.Get(s.inputAssembler)
}

func (s *subModel) DescriptorSet() gfx.DescriptorSet {
	return s.pools.DescriptorSet.Get(s.descriptorSet)
}

func (s *subModel) Destroy() {
	if s.handle.IsNull() {
		return
	}
	s.pools.DescriptorSet.Free(s.descriptorSet)
	s.pools.InputAssembler.Free(s.inputAssembler)
	s.pools.SubModel.Free(s.handle)
	s.handle, s.descriptorSet, s.inputAssembler = pool.NullHandle, pool.NullHandle, pool.NullHandle
}

// resolveShaders stores the pass and shader handles of every pass in the pool entry.
func (s *subModel) resolveShaders() {
	sp := s.pools.SubModel
	for i, p := range s.passes {
		sp.SetHandle(s.handle, pool.SubModelPass0+pool.SubModelView(i), p.Handle())
		sp.SetHandle(s.handle, pool.SubModelShader0+pool.SubModelView(i), p.ShaderVariantHandle(s.patches))
	}
}
