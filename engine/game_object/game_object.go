package game_object

import (
	"github.com/Carmen-Shannon/oxy-render/engine/animator"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/Carmen-Shannon/oxy-render/engine/node"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

type gameObject struct {
	id                 uint64
	mdl                model.Model
	animator           animator.Animator
	animatorInstanceID int
	attachedLight      light.Light

	// initial transform state applied on construction
	initialPosition      mgl32.Vec3
	initialScale         mgl32.Vec3
	initialRotation      mgl32.Vec3
	initialRotationSpeed mgl32.Vec3
}

// GameObject is a scene entity: a model, optionally driven by an Animator instance, optionally
// carrying a light parented to the model's node.
//
// With an Animator, the transform lives in the animator and reaches the node on the animator's
// next PrepareFrame. Without one, transform writes go straight to the node.
type GameObject interface {
	// ID returns the object's identifier.
	//
	// Returns:
	//   - uint64: the object ID
	ID() uint64

	// Enabled returns whether the object's model is rendered.
	//
	// Returns:
	//   - bool: true if enabled
	Enabled() bool

	// SetEnabled enables or disables rendering of the object's model.
	//
	// Parameters:
	//   - enabled: true to render the model
	SetEnabled(enabled bool)

	// Model returns the model of the object.
	//
	// Returns:
	//   - model.Model: the model, or nil
	Model() model.Model

	// Animator returns the Animator driving the object.
	//
	// Returns:
	//   - animator.Animator: the animator, or nil
	Animator() animator.Animator

	// AnimatorInstanceID returns the instance index within the Animator.
	//
	// Returns:
	//   - int: the instance index, or -1 if unset
	AnimatorInstanceID() int

	// SetAnimatorInstanceID updates the instance index, used after the animator swap-removed
	// another instance into this object's slot.
	//
	// Parameters:
	//   - instanceID: the new instance index
	SetAnimatorInstanceID(instanceID int)

	// Position returns the object's local position.
	//
	// Returns:
	//   - mgl32.Vec3: the position
	Position() mgl32.Vec3

	// SetPosition sets the object's local position.
	//
	// Parameters:
	//   - p: the position
	SetPosition(p mgl32.Vec3)

	// Scale returns the object's local scale.
	//
	// Returns:
	//   - mgl32.Vec3: the scale
	Scale() mgl32.Vec3

	// SetScale sets the object's local scale.
	//
	// Parameters:
	//   - s: the scale
	SetScale(s mgl32.Vec3)

	// Rotation returns the object's euler rotation in radians. Without an Animator it is the
	// initial rotation.
	//
	// Returns:
	//   - mgl32.Vec3: the rotation
	Rotation() mgl32.Vec3

	// SetRotation sets the object's euler rotation in radians.
	//
	// Parameters:
	//   - r: the rotation
	SetRotation(r mgl32.Vec3)

	// RotationSpeed returns the spin in radians per second. Always zero without an Animator.
	//
	// Returns:
	//   - mgl32.Vec3: the rotation speed
	RotationSpeed() mgl32.Vec3

	// SetRotationSpeed sets the spin in radians per second. No-op without an Animator.
	//
	// Parameters:
	//   - speed: the rotation speed
	SetRotationSpeed(speed mgl32.Vec3)

	// Light returns the light attached to the object.
	//
	// Returns:
	//   - light.Light: the light, or nil
	Light() light.Light

	// SetLight attaches a light to the object. The light's node is parented to the model's node
	// so the light follows the object.
	//
	// Parameters:
	//   - l: the light, or nil to detach the current one
	SetLight(l light.Light)

	// AddTo registers the model and the attached light with a scene.
	//
	// Parameters:
	//   - s: the scene
	AddTo(s scene.RenderScene)

	// RemoveFrom unregisters the model and the attached light from a scene.
	//
	// Parameters:
	//   - s: the scene
	RemoveFrom(s scene.RenderScene)
}

var _ GameObject = &gameObject{}

// NewGameObject creates a GameObject and applies its initial transform, registering an Animator
// instance for the model's node when an Animator is set.
//
// Parameters:
//   - options: variadic list of GameObjectBuilderOption functions to configure the object
//
// Returns:
//   - GameObject: the object
func NewGameObject(options ...GameObjectBuilderOption) GameObject {
	g := &gameObject{
		animatorInstanceID: -1,
		initialScale:       mgl32.Vec3{1, 1, 1},
	}
	for _, opt := range options {
		opt(g)
	}

	if g.animator != nil && g.mdl != nil {
		g.animatorInstanceID = int(g.animator.AddInstance(g.mdl.Node()))
		g.animator.SetInstanceData(uint32(g.animatorInstanceID),
			g.initialPosition, g.initialScale, g.initialRotationSpeed, g.initialRotation)
	} else if n := g.node(); n != nil {
		n.SetPosition(g.initialPosition)
		n.SetScale(g.initialScale)
		n.SetRotation(mgl32.AnglesToQuat(g.initialRotation[0], g.initialRotation[1], g.initialRotation[2], mgl32.XYZ))
	}
	if g.attachedLight != nil {
		l := g.attachedLight
		g.attachedLight = nil
		g.SetLight(l)
	}
	return g
}

func (g *gameObject) node() node.Node {
	if g.mdl == nil {
		return nil
	}
	return g.mdl.Node()
}

func (g *gameObject) animated() bool {
	return g.animator != nil && g.animatorInstanceID >= 0
}

func (g *gameObject) ID() uint64 {
	return g.id
}

func (g *gameObject) Enabled() bool {
	return g.mdl != nil && g.mdl.Enabled()
}

func (g *gameObject) SetEnabled(enabled bool) {
	if g.mdl != nil {
		g.mdl.SetEnabled(enabled)
	}
}

func (g *gameObject) Model() model.Model {
	return g.mdl
}

func (g *gameObject) Animator() animator.Animator {
	return g.animator
}

func (g *gameObject) AnimatorInstanceID() int {
	return g.animatorInstanceID
}

func (g *gameObject) SetAnimatorInstanceID(instanceID int) {
	g.animatorInstanceID = instanceID
}

func (g *gameObject) Position() mgl32.Vec3 {
	if n := g.node(); n != nil && !g.animated() {
		return n.Position()
	}
	return g.initialPosition
}

func (g *gameObject) SetPosition(p mgl32.Vec3) {
	g.initialPosition = p
	if g.animated() {
		g.animator.SetInstanceTransform(uint32(g.animatorInstanceID), p, g.initialScale)
	} else if n := g.node(); n != nil {
		n.SetPosition(p)
	}
}

func (g *gameObject) Scale() mgl32.Vec3 {
	if n := g.node(); n != nil && !g.animated() {
		return n.Scale()
	}
	return g.initialScale
}

func (g *gameObject) SetScale(s mgl32.Vec3) {
	g.initialScale = s
	if g.animated() {
		g.animator.SetInstanceTransform(uint32(g.animatorInstanceID), g.initialPosition, s)
	} else if n := g.node(); n != nil {
		n.SetScale(s)
	}
}

func (g *gameObject) Rotation() mgl32.Vec3 {
	if g.animated() {
		_, rot := g.animator.InstanceRotation(uint32(g.animatorInstanceID))
		return rot
	}
	return g.initialRotation
}

func (g *gameObject) SetRotation(r mgl32.Vec3) {
	g.initialRotation = r
	if g.animated() {
		speed, _ := g.animator.InstanceRotation(uint32(g.animatorInstanceID))
		g.animator.SetInstanceRotation(uint32(g.animatorInstanceID), speed, r)
	} else if n := g.node(); n != nil {
		n.SetRotation(mgl32.AnglesToQuat(r[0], r[1], r[2], mgl32.XYZ))
	}
}

func (g *gameObject) RotationSpeed() mgl32.Vec3 {
	if !g.animated() {
		return mgl32.Vec3{}
	}
	speed, _ := g.animator.InstanceRotation(uint32(g.animatorInstanceID))
	return speed
}

func (g *gameObject) SetRotationSpeed(speed mgl32.Vec3) {
	if !g.animated() {
		return
	}
	_, rot := g.animator.InstanceRotation(uint32(g.animatorInstanceID))
	g.animator.SetInstanceRotation(uint32(g.animatorInstanceID), speed, rot)
}

func (g *gameObject) Light() light.Light {
	return g.attachedLight
}

func (g *gameObject) SetLight(l light.Light) {
	if g.attachedLight != nil && g.attachedLight.Node() != nil {
		g.attachedLight.Node().SetParent(nil)
	}
	g.attachedLight = l
	if l != nil && l.Node() != nil && g.mdl != nil {
		l.Node().SetParent(g.mdl.Node())
	}
}

func (g *gameObject) AddTo(s scene.RenderScene) {
	if g.mdl != nil {
		s.AddModel(g.mdl)
	}
	if g.attachedLight != nil {
		s.AddLight(g.attachedLight)
	}
}

func (g *gameObject) RemoveFrom(s scene.RenderScene) {
	if g.mdl != nil {
		s.RemoveModel(g.mdl)
	}
	if g.attachedLight != nil {
		s.RemoveLight(g.attachedLight)
	}
}
