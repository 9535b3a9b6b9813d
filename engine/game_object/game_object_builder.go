package game_object

import (
	"github.com/Carmen-Shannon/oxy-render/engine/animator"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// GameObjectBuilderOption is a functional option applied to a gameObject during construction via NewGameObject.
type GameObjectBuilderOption func(*gameObject)

// WithID sets the object's identifier.
//
// Parameters:
//   - id: the identifier
//
// Returns:
//   - GameObjectBuilderOption: a function that applies the ID to a gameObject
func WithID(id uint64) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.id = id
	}
}

// WithModel sets the model the object renders.
//
// Parameters:
//   - m: the model
//
// Returns:
//   - GameObjectBuilderOption: a function that applies the model to a gameObject
func WithModel(m model.Model) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.mdl = m
	}
}

// WithAnimator drives the object's node through an Animator instance.
//
// Parameters:
//   - a: the animator
//
// Returns:
//   - GameObjectBuilderOption: a function that applies the animator to a gameObject
func WithAnimator(a animator.Animator) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.animator = a
	}
}

// WithPosition sets the initial local position.
func WithPosition(p mgl32.Vec3) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.initialPosition = p
	}
}

// WithScale sets the initial local scale.
func WithScale(s mgl32.Vec3) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.initialScale = s
	}
}

// WithRotation sets the initial euler rotation in radians.
func WithRotation(r mgl32.Vec3) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.initialRotation = r
	}
}

// WithRotationSpeed sets the initial spin in radians per second. It only has an effect together
// with WithAnimator.
func WithRotationSpeed(speed mgl32.Vec3) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.initialRotationSpeed = speed
	}
}

// WithLight attaches a light that follows the object.
//
// Parameters:
//   - l: the light
//
// Returns:
//   - GameObjectBuilderOption: a function that applies the light to a gameObject
func WithLight(l light.Light) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.attachedLight = l
	}
}
