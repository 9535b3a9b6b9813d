// Package node holds scene nodes: the transform carriers models, cameras and lights attach to.
package node

import (
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pool"
	"github.com/go-gl/mathgl/mgl32"
)

// Layer bits. A model is visible to a camera when the node layer intersects the camera visibility.
const (
	LayerIgnoreRaycast uint32 = 1 << 20
	LayerGizmos        uint32 = 1 << 21
	LayerEditor        uint32 = 1 << 22
	LayerUI3D          uint32 = 1 << 23
	LayerSceneGizmo    uint32 = 1 << 24
	LayerUI2D          uint32 = 1 << 25
	LayerProfiler      uint32 = 1 << 28
	LayerDefault       uint32 = 1 << 30
	LayerAll           uint32 = 0xffffffff
)

// Transform change flags reported by FlagsChanged.
const (
	ChangedPosition uint32 = 1 << iota
	ChangedRotation
	ChangedScale

	ChangedTRS = ChangedPosition | ChangedRotation | ChangedScale
)

type node struct {
	pools  *pool.Pools
	handle pool.Handle
	name   string
	parent Node

	position mgl32.Vec3
	rotation mgl32.Quat
	scale    mgl32.Vec3

	world      mgl32.Mat4
	worldDirty bool
}

// Node defines the interface for a scene node. Layer and change flags live in the Node pool;
// world-space vectors and the world matrix are mirrored there when pool mirroring is enabled.
type Node interface {
	// Handle returns the node's pool handle.
	//
	// Returns:
	//   - pool.Handle: the handle into the Node pool
	Handle() pool.Handle

	// Name returns the node name.
	//
	// Returns:
	//   - string: the name
	Name() string

	// Parent returns the parent node, or nil for a root node.
	//
	// Returns:
	//   - Node: the parent or nil
	Parent() Node

	// SetParent attaches the node under a parent. World transforms compose with the parent's.
	//
	// Parameters:
	//   - parent: the new parent, or nil to detach
	SetParent(parent Node)

	// Position returns the local position.
	//
	// Returns:
	//   - mgl32.Vec3: the position relative to the parent
	Position() mgl32.Vec3

	// SetPosition sets the local position.
	//
	// Parameters:
	//   - p: the position relative to the parent
	SetPosition(p mgl32.Vec3)

	// Rotation returns the local rotation.
	//
	// Returns:
	//   - mgl32.Quat: the rotation relative to the parent
	Rotation() mgl32.Quat

	// SetRotation sets the local rotation.
	//
	// Parameters:
	//   - q: the rotation relative to the parent
	SetRotation(q mgl32.Quat)

	// SetRotationFromEuler sets the local rotation from Euler angles in degrees (X, then Y, then Z).
	//
	// Parameters:
	//   - x, y, z: the angles in degrees
	SetRotationFromEuler(x, y, z float32)

	// Scale returns the local scale.
	//
	// Returns:
	//   - mgl32.Vec3: the scale relative to the parent
	Scale() mgl32.Vec3

	// SetScale sets the local scale.
	//
	// Parameters:
	//   - s: the scale relative to the parent
	SetScale(s mgl32.Vec3)

	// LookAt rotates the node so that its forward axis (-Z) points at target.
	//
	// Parameters:
	//   - target: the world-space point to face
	//   - up: the world up vector
	LookAt(target, up mgl32.Vec3)

	// Layer returns the node's layer bits.
	//
	// Returns:
	//   - uint32: the layer
	Layer() uint32

	// SetLayer sets the node's layer bits.
	//
	// Parameters:
	//   - layer: the layer
	SetLayer(layer uint32)

	// WorldMatrix returns the world matrix, recomputing it when the node or a parent changed.
	//
	// Returns:
	//   - mgl32.Mat4: the local-to-world transform
	WorldMatrix() mgl32.Mat4

	// WorldPosition returns the world-space position.
	//
	// Returns:
	//   - mgl32.Vec3: the translation of the world matrix
	WorldPosition() mgl32.Vec3

	// WorldRotation returns the world-space rotation.
	//
	// Returns:
	//   - mgl32.Quat: the rotation composed with every parent rotation
	WorldRotation() mgl32.Quat

	// Forward returns the world-space forward direction (-Z).
	//
	// Returns:
	//   - mgl32.Vec3: the normalized forward vector
	Forward() mgl32.Vec3

	// FlagsChanged returns the transform changes of the node and its parents since the last ResetChangedFlags.
	//
	// Returns:
	//   - uint32: a combination of the Changed* bits
	FlagsChanged() uint32

	// ResetChangedFlags clears the change flags, once per frame after every consumer has run.
	ResetChangedFlags()

	// Destroy frees the pool entry.
	Destroy()
}

var _ Node = &node{}

// NewNode creates a new Node instance configured with the provided options.
//
// Parameters:
//   - pools: the pools the node is stored in
//   - options: variadic list of NodeBuilderOption functions to configure the node
//
// Returns:
//   - Node: a new Node instance
func NewNode(pools *pool.Pools, options ...NodeBuilderOption) Node {
	n := &node{
		pools:      pools,
		handle:     pools.Node.Alloc(),
		rotation:   mgl32.QuatIdent(),
		scale:      mgl32.Vec3{1, 1, 1},
		worldDirty: true,
	}
	n.pools.Node.SetUint32(n.handle, pool.NodeLayer, LayerDefault)
	for _, opt := range options {
		opt(n)
	}
	n.markChanged(ChangedTRS)
	return n
}

func (n *node) Handle() pool.Handle {
	return n.handle
}

func (n *node) Name() string {
	return n.name
}

func (n *node) Parent() Node {
	return n.parent
}

func (n *node) SetParent(parent Node) {
	n.parent = parent
	n.markChanged(ChangedTRS)
}

func (n *node) Position() mgl32.Vec3 {
	return n.position
}

func (n *node) SetPosition(p mgl32.Vec3) {
	n.position = p
	n.markChanged(ChangedPosition)
}

func (n *node) Rotation() mgl32.Quat {
	return n.rotation
}

func (n *node) SetRotation(q mgl32.Quat) {
	n.rotation = q.Normalize()
	n.markChanged(ChangedRotation)
}

func (n *node) SetRotationFromEuler(x, y, z float32) {
	n.SetRotation(mgl32.AnglesToQuat(mgl32.DegToRad(x), mgl32.DegToRad(y), mgl32.DegToRad(z), mgl32.XYZ))
}

func (n *node) Scale() mgl32.Vec3 {
	return n.scale
}

func (n *node) SetScale(s mgl32.Vec3) {
	n.scale = s
	n.markChanged(ChangedScale)
}

func (n *node) LookAt(target, up mgl32.Vec3) {
	eye := n.WorldPosition()
	if target.Sub(eye).Len() < 1e-6 {
		return
	}
	// QuatLookAtV returns the view rotation; the node rotation is its inverse.
	n.SetRotation(mgl32.QuatLookAtV(eye, target, up).Inverse())
}

func (n *node) Layer() uint32 {
	return n.pools.Node.GetUint32(n.handle, pool.NodeLayer)
}

func (n *node) SetLayer(layer uint32) {
	n.pools.Node.SetUint32(n.handle, pool.NodeLayer, layer)
}

func (n *node) WorldMatrix() mgl32.Mat4 {
	if n.worldDirty || (n.parent != nil && n.parent.FlagsChanged() != 0) {
		n.updateWorld()
	}
	return n.world
}

func (n *node) WorldPosition() mgl32.Vec3 {
	return n.WorldMatrix().Col(3).Vec3()
}

func (n *node) WorldRotation() mgl32.Quat {
	if n.parent == nil {
		return n.rotation
	}
	return n.parent.WorldRotation().Mul(n.rotation)
}

func (n *node) Forward() mgl32.Vec3 {
	return n.WorldRotation().Rotate(mgl32.Vec3{0, 0, -1}).Normalize()
}

func (n *node) FlagsChanged() uint32 {
	f := n.pools.Node.GetUint32(n.handle, pool.NodeFlagsChanged)
	if n.parent != nil {
		f |= n.parent.FlagsChanged()
	}
	return f
}

func (n *node) ResetChangedFlags() {
	n.pools.Node.SetUint32(n.handle, pool.NodeFlagsChanged, 0)
}

func (n *node) Destroy() {
	if n.handle.IsNull() {
		return
	}
	n.pools.Node.Free(n.handle)
	n.handle = pool.NullHandle
}

func (n *node) markChanged(flags uint32) {
	n.worldDirty = true
	f := n.pools.Node.GetUint32(n.handle, pool.NodeFlagsChanged)
	n.pools.Node.SetUint32(n.handle, pool.NodeFlagsChanged, f|flags)
}

// updateWorld recomposes the world matrix as parent * T * R * S and mirrors it into the pool.
func (n *node) updateWorld() {
	local := mgl32.Translate3D(n.position[0], n.position[1], n.position[2]).
		Mul4(n.rotation.Mat4()).
		Mul4(mgl32.Scale3D(n.scale[0], n.scale[1], n.scale[2]))
	if n.parent != nil {
		local = n.parent.WorldMatrix().Mul4(local)
	}
	n.world = local
	n.worldDirty = false

	np := n.pools.Node
	np.SetMat4(n.handle, pool.NodeWorldMatrix, n.world)
	np.SetVec3(n.handle, pool.NodeWorldPosition, n.world.Col(3).Vec3())
	q := n.WorldRotation()
	np.SetVec4(n.handle, pool.NodeWorldRotation, mgl32.Vec4{q.V[0], q.V[1], q.V[2], q.W})
	np.SetVec3(n.handle, pool.NodeWorldScale, n.scale)
}
