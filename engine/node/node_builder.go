package node

import (
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pool"
	"github.com/go-gl/mathgl/mgl32"
)

// NodeBuilderOption is a function that configures a node instance during construction.
type NodeBuilderOption func(*node)

// WithName is an option builder that sets the node name.
//
// Parameters:
//   - name: the node name
//
// Returns:
//   - NodeBuilderOption: a function that applies the name option to a node
func WithName(name string) NodeBuilderOption {
	return func(n *node) {
		n.name = name
	}
}

// WithPosition is an option builder that sets the initial local position.
//
// Parameters:
//   - p: the position
//
// Returns:
//   - NodeBuilderOption: a function that applies the position option to a node
func WithPosition(p mgl32.Vec3) NodeBuilderOption {
	return func(n *node) {
		n.position = p
	}
}

// WithRotation is an option builder that sets the initial local rotation.
func WithRotation(q mgl32.Quat) NodeBuilderOption {
	return func(n *node) {
		n.rotation = q.Normalize()
	}
}

// WithScale is an option builder that sets the initial local scale.
func WithScale(s mgl32.Vec3) NodeBuilderOption {
	return func(n *node) {
		n.scale = s
	}
}

// WithLayer is an option builder that sets the node layer bits.
//
// Parameters:
//   - layer: the layer, LayerDefault when not set
//
// Returns:
//   - NodeBuilderOption: a function that applies the layer option to a node
func WithLayer(layer uint32) NodeBuilderOption {
	return func(n *node) {
		n.pools.Node.SetUint32(n.handle, pool.NodeLayer, layer)
	}
}

// WithParent is an option builder that attaches the node under a parent.
func WithParent(parent Node) NodeBuilderOption {
	return func(n *node) {
		n.parent = parent
	}
}
