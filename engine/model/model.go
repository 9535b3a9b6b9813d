// Package model holds the drawable scene objects. A Model reads its transform from a node and owns
// one SubModel per mesh, each drawn with a list of material passes.
package model

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/node"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pool"
	"github.com/gogpu/gputypes"
)

// ErrNoLocalLayout is returned when a model is created without the local descriptor set layout.
var ErrNoLocalLayout = errors.New("model: local set layout required")

type subMeshSpec struct {
	mesh     Mesh
	passes   []material.Pass
	priority uint32
}

// model is the implementation of the Model interface.
type model struct {
	pools   *pool.Pools
	handle  pool.Handle
	bounds  pool.Handle
	array   pool.Handle
	name    string
	node    node.Node
	ownNode bool

	specs       []subMeshSpec
	subModels   []SubModel
	localBounds common.AABB
	worldBounds common.AABB
	instanced   *InstancedAttributeBlock

	localBuffer pool.Handle
	local       GPULocal
	localDirty  bool
	transformed bool

	enabled       bool
	castShadow    bool
	receiveShadow bool
	visFlags      uint32
	priority      uint32
}

// Model defines the interface for a drawable scene object.
// Enabled, visibility flags, shadow flags and priority live in the Model pool together with the
// handles of the node, the world bounds entry and the sub-model array.
type Model interface {
	// Handle returns the model's pool handle.
	//
	// Returns:
	//   - pool.Handle: the handle into the Model pool
	Handle() pool.Handle

	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Node returns the node the model reads its transform from.
	//
	// Returns:
	//   - node.Node: the model node
	Node() node.Node

	// SubModels returns the drawable parts of the model.
	//
	// Returns:
	//   - []SubModel: the sub-models in creation order
	SubModels() []SubModel

	// Enabled reports whether the model takes part in culling.
	//
	// Returns:
	//   - bool: true when enabled
	Enabled() bool

	// SetEnabled enables or disables the model.
	//
	// Parameters:
	//   - enabled: whether the model is rendered
	SetEnabled(enabled bool)

	// VisFlags returns the extra layer bits the model is visible on besides its node layer.
	//
	// Returns:
	//   - uint32: the visibility flags
	VisFlags() uint32

	// SetVisFlags sets the extra visibility layer bits.
	//
	// Parameters:
	//   - flags: the visibility flags
	SetVisFlags(flags uint32)

	// CastShadow reports whether the model is drawn into shadow maps.
	//
	// Returns:
	//   - bool: true for shadow casters
	CastShadow() bool

	// SetCastShadow sets whether the model casts shadows.
	//
	// Parameters:
	//   - enabled: whether the model casts shadows
	SetCastShadow(enabled bool)

	// ReceiveShadow reports whether the model receives shadows.
	//
	// Returns:
	//   - bool: true for shadow receivers
	ReceiveShadow() bool

	// SetReceiveShadow sets whether the model receives shadows.
	//
	// Parameters:
	//   - enabled: whether the model receives shadows
	SetReceiveShadow(enabled bool)

	// Priority returns the model priority.
	//
	// Returns:
	//   - uint32: the priority
	Priority() uint32

	// LocalBounds returns the union of the mesh bounds.
	//
	// Returns:
	//   - common.AABB: the model-space bounds
	LocalBounds() common.AABB

	// WorldBounds returns the local bounds transformed by the world matrix of the last UpdateTransform.
	//
	// Returns:
	//   - common.AABB: the world-space bounds
	WorldBounds() common.AABB

	// InstancedAttributes returns the per-instance attribute block.
	//
	// Returns:
	//   - *InstancedAttributeBlock: world matrix rows followed by user attributes
	InstancedAttributes() *InstancedAttributeBlock

	// LocalBuffer returns the buffer holding the Local uniform.
	//
	// Returns:
	//   - gfx.Buffer: the local uniform buffer
	LocalBuffer() gfx.Buffer

	// UpdateTransform refreshes world bounds, the local uniform and the instanced world matrix when the
	// node transform changed since the last call.
	UpdateTransform()

	// UpdateUBOs records the local uniform write if it changed, and the first upload of every mesh.
	//
	// Parameters:
	//   - cmd: the command buffer the writes are recorded into
	UpdateUBOs(cmd gfx.CommandBuffer)

	// Destroy frees the model's pool entries, its sub-models and, if the model created it, its node.
	// Meshes and passes are not destroyed.
	Destroy()
}

var _ Model = &model{}

// NewModel creates a Model instance configured with the provided options.
//
// Parameters:
//   - pools: the pools the model is stored in
//   - localLayout: the local descriptor set layout, created from LocalSetLayoutInfo
//   - options: variadic list of ModelBuilderOption functions to configure the model
//
// Returns:
//   - Model: the model
//   - error: an error if the layout is missing or a device object could not be created
func NewModel(pools *pool.Pools, localLayout gfx.DescriptorSetLayout, options ...ModelBuilderOption) (Model, error) {
	if localLayout == nil {
		return nil, ErrNoLocalLayout
	}
	m := &model{
		pools:     pools,
		enabled:   true,
		instanced: newInstancedAttributeBlock(),
	}
	for _, opt := range options {
		opt(m)
	}

	var err error
	m.localBuffer, err = pools.Buffer.Alloc(gfx.BufferInfo{
		Label: m.name + " local",
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		Size:  LocalSize,
	})
	if err != nil {
		return nil, fmt.Errorf("model: failed to create local buffer: %w", err)
	}

	m.handle = pools.Model.Alloc()
	m.bounds = pools.AABB.Alloc()
	m.array = pools.SubModelArray.Alloc()
	if m.node == nil {
		m.node = node.NewNode(pools, node.WithName(m.name))
		m.ownNode = true
	}

	local := m.LocalBuffer()
	for i, spec := range m.specs {
		sm, err := newSubModel(pools, localLayout, local, spec.mesh, spec.passes, spec.priority)
		if err != nil {
			m.Destroy()
			return nil, fmt.Errorf("model: sub-model %d: %w", i, err)
		}
		m.subModels = append(m.subModels, sm)
		pools.SubModelArray.Push(m.array, sm.handle.Index())
		if i == 0 {
			m.localBounds = spec.mesh.Bounds()
		} else {
			m.localBounds = common.MergeAABB(m.localBounds, spec.mesh.Bounds())
		}
	}
	m.specs = nil

	mp := pools.Model
	mp.SetBool(m.handle, pool.ModelEnabled, m.enabled)
	mp.SetUint32(m.handle, pool.ModelVisFlags, m.visFlags)
	mp.SetBool(m.handle, pool.ModelCastShadow, m.castShadow)
	mp.SetBool(m.handle, pool.ModelReceiveShadow, m.receiveShadow)
	mp.SetUint32(m.handle, pool.ModelPriority, m.priority)
	mp.SetHandle(m.handle, pool.ModelWorldBounds, m.bounds)
	mp.SetHandle(m.handle, pool.ModelNode, m.node.Handle())
	mp.SetHandle(m.handle, pool.ModelSubModelArray, m.array)
	m.UpdateTransform()
	return m, nil
}

func (m *model) Handle() pool.Handle {
	return m.handle
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Node() node.Node {
	return m.node
}

func (m *model) SubModels() []SubModel {
	return m.subModels
}

func (m *model) Enabled() bool {
	return m.pools.Model.GetBool(m.handle, pool.ModelEnabled)
}

func (m *model) SetEnabled(enabled bool) {
	m.pools.Model.SetBool(m.handle, pool.ModelEnabled, enabled)
}

func (m *model) VisFlags() uint32 {
	return m.pools.Model.GetUint32(m.handle, pool.ModelVisFlags)
}

func (m *model) SetVisFlags(flags uint32) {
	m.pools.Model.SetUint32(m.handle, pool.ModelVisFlags, flags)
}

func (m *model) CastShadow() bool {
	return m.pools.Model.GetBool(m.handle, pool.ModelCastShadow)
}

func (m *model) SetCastShadow(enabled bool) {
	m.pools.Model.SetBool(m.handle, pool.ModelCastShadow, enabled)
}

func (m *model) ReceiveShadow() bool {
	return m.pools.Model.GetBool(m.handle, pool.ModelReceiveShadow)
}

func (m *model) SetReceiveShadow(enabled bool) {
	m.pools.Model.SetBool(m.handle, pool.ModelReceiveShadow, enabled)
}

func (m *model) Priority() uint32 {
	return m.pools.Model.GetUint32(m.handle, pool.ModelPriority)
}

func (m *model) LocalBounds() common.AABB {
	return m.localBounds
}

func (m *model) WorldBounds() common.AABB {
	return m.worldBounds
}

func (m *model) InstancedAttributes() *InstancedAttributeBlock {
	return m.instanced
}

func (m *model) LocalBuffer() gfx.Buffer {
	return m.pools.Buffer.Get(m.localBuffer)
}

func (m *model) UpdateTransform() {
	if m.handle.IsNull() || (m.transformed && m.node.FlagsChanged() == 0) {
		return
	}
	world := m.node.WorldMatrix()
	m.worldBounds = m.localBounds.Transform(world)
	m.pools.AABB.SetVec3(m.bounds, pool.AABBCenter, m.worldBounds.Center)
	m.pools.AABB.SetVec3(m.bounds, pool.AABBHalfExtents, m.worldBounds.HalfExtents)
	m.local = NewGPULocal(world)
	m.localDirty = true
	m.instanced.setWorld(world)
	m.transformed = true
}

func (m *model) UpdateUBOs(cmd gfx.CommandBuffer) {
	for _, sm := range m.subModels {
		sm.Mesh().Upload(cmd)
	}
	if !m.localDirty {
		return
	}
	cmd.UpdateBuffer(m.LocalBuffer(), m.local.Marshal())
	m.localDirty = false
}

func (m *model) Destroy() {
	if m.handle.IsNull() {
		return
	}
	for _, sm := range m.subModels {
		sm.Destroy()
	}
	m.subModels = nil
	m.pools.SubModelArray.Free(m.array)
	m.pools.AABB.Free(m.bounds)
	m.pools.Buffer.Free(m.localBuffer)
	if m.ownNode {
		m.node.Destroy()
	}
	m.pools.Model.Free(m.handle)
	m.handle, m.bounds, m.array, m.localBuffer = pool.NullHandle, pool.NullHandle, pool.NullHandle, pool.NullHandle
}
