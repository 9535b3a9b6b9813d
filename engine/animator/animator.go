package animator

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/engine/node"
	"github.com/go-gl/mathgl/mgl32"
)

// instance is the animation state of one node.
type instance struct {
	node     node.Node
	position mgl32.Vec3
	scale    mgl32.Vec3
	rotation mgl32.Vec3 // euler angles in radians
	rotSpeed mgl32.Vec3 // radians per second around each axis
	spinning bool
}

// animator is the implementation of the Animator interface.
type animator struct {
	mu *sync.Mutex

	instances []instance

	// sparse dirty tracking: indices mutated since the last PrepareFrame, deduplicated by the bitset
	dirtyIndices []uint32
	dirtyBitset  []uint64
}

// Animator drives the transforms of a set of nodes. Each instance has a position, a scale, an
// euler rotation and a rotation speed; PrepareFrame advances the spinning instances and writes
// every changed instance back to its node.
type Animator interface {
	// AddInstance registers a node with the animator. The instance starts from the node's current
	// position and scale.
	//
	// Parameters:
	//   - n: the node to animate
	//
	// Returns:
	//   - uint32: the index of the newly registered instance
	AddInstance(n node.Node) uint32

	// RemoveInstance removes the instance at the given index using a swap-remove strategy.
	//
	// Parameters:
	//   - index: the instance index to remove
	//
	// Returns:
	//   - uint32: the old last index that was swapped into the removed slot (only meaningful when bool is true)
	//   - bool: true if the last instance was swapped into the removed slot
	RemoveInstance(index uint32) (uint32, bool)

	// InstanceCount returns the current number of registered instances.
	//
	// Returns:
	//   - uint32: the number of instances
	InstanceCount() uint32

	// Node returns the node of an instance.
	//
	// Parameters:
	//   - index: the instance index
	//
	// Returns:
	//   - node.Node: the node, or nil for an invalid index
	Node(index uint32) node.Node

	// SetInstanceTransform sets the position and scale of an instance.
	//
	// Parameters:
	//   - index: the instance index to update
	//   - position: the local position
	//   - scale: the local scale
	SetInstanceTransform(index uint32, position, scale mgl32.Vec3)

	// SetInstanceRotation sets the rotation speed and current rotation of an instance.
	//
	// Parameters:
	//   - index: the instance index to update
	//   - speed: rotation speed in radians per second around each axis
	//   - rotation: current euler rotation in radians
	SetInstanceRotation(index uint32, speed, rotation mgl32.Vec3)

	// SetInstanceData sets every field of an instance in a single call.
	//
	// Parameters:
	//   - index: the instance index to update
	//   - position: the local position
	//   - scale: the local scale
	//   - speed: rotation speed in radians per second around each axis
	//   - rotation: current euler rotation in radians
	SetInstanceData(index uint32, position, scale, speed, rotation mgl32.Vec3)

	// InstanceRotation returns the rotation speed and current rotation of an instance.
	//
	// Parameters:
	//   - index: the instance index
	//
	// Returns:
	//   - mgl32.Vec3: the rotation speed in radians per second
	//   - mgl32.Vec3: the current euler rotation in radians
	InstanceRotation(index uint32) (mgl32.Vec3, mgl32.Vec3)

	// PrepareFrame advances every spinning instance by deltaTime and writes the changed instances
	// to their nodes.
	//
	// Parameters:
	//   - deltaTime: elapsed time since the last frame in seconds
	//
	// Returns:
	//   - int: the number of nodes written
	PrepareFrame(deltaTime float32) int

	// Release drops every instance. The nodes are left untouched.
	Release()
}

var _ Animator = &animator{}

// NewAnimator creates an empty Animator.
//
// Parameters:
//   - options: variadic list of AnimatorBuilderOption functions to configure the animator
//
// Returns:
//   - Animator: the animator
func NewAnimator(options ...AnimatorBuilderOption) Animator {
	a := &animator{mu: &sync.Mutex{}}
	for _, opt := range options {
		opt(a)
	}
	return a
}

func (a *animator) AddInstance(n node.Node) uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()

	inst := instance{node: n, scale: mgl32.Vec3{1, 1, 1}}
	if n != nil {
		inst.position = n.Position()
		inst.scale = n.Scale()
	}
	a.instances = append(a.instances, inst)
	idx := uint32(len(a.instances) - 1)
	a.markDirty(idx)
	return idx
}

func (a *animator) RemoveInstance(index uint32) (uint32, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := uint32(len(a.instances))
	if index >= n {
		return 0, false
	}
	last := n - 1
	a.clearDirty(last)
	if index == last {
		a.instances = a.instances[:last]
		return 0, false
	}
	a.instances[index] = a.instances[last]
	a.instances = a.instances[:last]
	a.markDirty(index)
	return last, true
}

func (a *animator) InstanceCount() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return uint32(len(a.instances))
}

func (a *animator) Node(index uint32) node.Node {
	a.mu.Lock()
	defer a.mu.Unlock()
	if index >= uint32(len(a.instances)) {
		return nil
	}
	return a.instances[index].node
}

func (a *animator) SetInstanceTransform(index uint32, position, scale mgl32.Vec3) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if index >= uint32(len(a.instances)) {
		return
	}
	a.instances[index].position = position
	a.instances[index].scale = scale
	a.markDirty(index)
}

func (a *animator) SetInstanceRotation(index uint32, speed, rotation mgl32.Vec3) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if index >= uint32(len(a.instances)) {
		return
	}
	a.setRotation(index, speed, rotation)
}

func (a *animator) SetInstanceData(index uint32, position, scale, speed, rotation mgl32.Vec3) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if index >= uint32(len(a.instances)) {
		return
	}
	a.instances[index].position = position
	a.instances[index].scale = scale
	a.setRotation(index, speed, rotation)
}

func (a *animator) setRotation(index uint32, speed, rotation mgl32.Vec3) {
	inst := &a.instances[index]
	inst.rotSpeed = speed
	inst.rotation = rotation
	inst.spinning = speed != (mgl32.Vec3{})
	a.markDirty(index)
}

func (a *animator) InstanceRotation(index uint32) (mgl32.Vec3, mgl32.Vec3) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if index >= uint32(len(a.instances)) {
		return mgl32.Vec3{}, mgl32.Vec3{}
	}
	inst := a.instances[index]
	return inst.rotSpeed, inst.rotation
}

func (a *animator) PrepareFrame(deltaTime float32) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	written := 0
	for i := range a.instances {
		inst := &a.instances[i]
		if !inst.spinning {
			continue
		}
		inst.rotation = wrapAngles(inst.rotation.Add(inst.rotSpeed.Mul(deltaTime)))
		if a.isDirty(uint32(i)) {
			// written below with the rest of the dirty set
			continue
		}
		a.apply(inst)
		written++
	}
	for _, idx := range a.dirtyIndices {
		if idx < uint32(len(a.instances)) {
			a.apply(&a.instances[idx])
			written++
		}
		a.dirtyBitset[idx/64] &^= 1 << (idx % 64)
	}
	a.dirtyIndices = a.dirtyIndices[:0]
	return written
}

func (a *animator) apply(inst *instance) {
	if inst.node == nil {
		return
	}
	inst.node.SetPosition(inst.position)
	inst.node.SetScale(inst.scale)
	inst.node.SetRotation(mgl32.AnglesToQuat(inst.rotation[0], inst.rotation[1], inst.rotation[2], mgl32.XYZ))
}

func (a *animator) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.instances = nil
	a.dirtyIndices = nil
	a.dirtyBitset = nil
}

func (a *animator) markDirty(index uint32) {
	word := int(index / 64)
	if word >= len(a.dirtyBitset) {
		a.dirtyBitset = append(a.dirtyBitset, make([]uint64, word-len(a.dirtyBitset)+1)...)
	}
	bit := uint64(1) << (index % 64)
	if a.dirtyBitset[word]&bit != 0 {
		return
	}
	a.dirtyBitset[word] |= bit
	a.dirtyIndices = append(a.dirtyIndices, index)
}

func (a *animator) isDirty(index uint32) bool {
	word := int(index / 64)
	return word < len(a.dirtyBitset) && a.dirtyBitset[word]&(1<<(index%64)) != 0
}

// clearDirty drops an index from the dirty set, used when the slot stops existing.
func (a *animator) clearDirty(index uint32) {
	if !a.isDirty(index) {
		return
	}
	a.dirtyBitset[index/64] &^= 1 << (index % 64)
	for i, idx := range a.dirtyIndices {
		if idx == index {
			a.dirtyIndices = append(a.dirtyIndices[:i], a.dirtyIndices[i+1:]...)
			break
		}
	}
}

// wrapAngles keeps euler angles in [-2pi, 2pi] so long-running spins keep their precision.
func wrapAngles(v mgl32.Vec3) mgl32.Vec3 {
	const twoPi = 2 * math.Pi
	for i := range 3 {
		for v[i] > twoPi {
			v[i] -= twoPi
		}
		for v[i] < -twoPi {
			v[i] += twoPi
		}
	}
	return v
}
