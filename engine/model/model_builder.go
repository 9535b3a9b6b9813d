package model

import (
	"github.com/Carmen-Shannon/oxy-render/engine/node"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/material"
)

// ModelBuilderOption is a functional option for configuring a Model via NewModel.
type ModelBuilderOption func(*model)

// WithName is an option builder that sets the name of the Model.
//
// Parameters:
//   - name: the model identifier
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a model
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		m.name = name
	}
}

// WithNode is an option builder that sets the node the Model reads its transform from.
// The model does not destroy a node it was given.
//
// Parameters:
//   - n: the model node
//
// Returns:
//   - ModelBuilderOption: a function that applies the node option to a model
func WithNode(n node.Node) ModelBuilderOption {
	return func(m *model) {
		m.node = n
	}
}

// WithSubMesh is an option builder that adds a sub-model drawing the mesh with the passes.
//
// Parameters:
//   - mesh: the sub-model geometry
//   - passes: the passes, at most pool.MaxPassesPerSubModel
//
// Returns:
//   - ModelBuilderOption: a function that appends the sub-model to a model
func WithSubMesh(mesh Mesh, passes ...material.Pass) ModelBuilderOption {
	return func(m *model) {
		m.specs = append(m.specs, subMeshSpec{mesh: mesh, passes: passes})
	}
}

// WithSubMeshPriority is WithSubMesh with a sub-model priority for render queue sorting.
func WithSubMeshPriority(priority uint32, mesh Mesh, passes ...material.Pass) ModelBuilderOption {
	return func(m *model) {
		m.specs = append(m.specs, subMeshSpec{mesh: mesh, passes: passes, priority: priority})
	}
}

// WithEnabled is an option builder that sets whether the Model takes part in culling.
func WithEnabled(enabled bool) ModelBuilderOption {
	return func(m *model) {
		m.enabled = enabled
	}
}

// WithShadows is an option builder that sets the shadow caster and receiver flags.
//
// Parameters:
//   - cast: whether the model is drawn into shadow maps
//   - receive: whether the model receives shadows
//
// Returns:
//   - ModelBuilderOption: a function that applies the shadow flags to a model
func WithShadows(cast, receive bool) ModelBuilderOption {
	return func(m *model) {
		m.castShadow = cast
		m.receiveShadow = receive
	}
}

// WithVisFlags is an option builder that sets extra visibility layer bits.
func WithVisFlags(flags uint32) ModelBuilderOption {
	return func(m *model) {
		m.visFlags = flags
	}
}

// WithPriority is an option builder that sets the model priority.
func WithPriority(priority uint32) ModelBuilderOption {
	return func(m *model) {
		m.priority = priority
	}
}

// WithInstancedAttribute is an option builder that appends a user attribute to the per-instance block.
//
// Parameters:
//   - attr: the attribute, its stream and instanced flag are assigned by the instanced buffer
//   - values: the initial float components
//
// Returns:
//   - ModelBuilderOption: a function that adds the attribute to a model
func WithInstancedAttribute(attr gfx.Attribute, values ...float32) ModelBuilderOption {
	return func(m *model) {
		m.instanced.add(attr)
		m.instanced.SetFloats(attr.Name, values...)
	}
}
