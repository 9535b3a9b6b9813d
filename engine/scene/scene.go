// Package scene holds the render scene: the models, lights and cameras one renderer draws.
package scene

import (
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/logger"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/Carmen-Shannon/oxy-render/engine/node"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/pool"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// DefaultAmbient is the sky ambient color used when no ambient is configured; w is the intensity.
var DefaultAmbient = mgl32.Vec4{0.2, 0.5, 0.8, 1}

// RenderScene manages the models, punctual lights, main light, shadow settings and cameras of a scene.
// Registries are guarded by a read/write mutex; the slices returned by the accessors are owned by the
// scene and must not be modified by callers.
type RenderScene interface {
	// Name returns the scene's identifier.
	Name() string

	// Active returns whether the scene is rendered by the engine loop.
	Active() bool

	// SetActive sets whether the scene is rendered by the engine loop.
	//
	// Parameters:
	//   - active: true to render the scene
	SetActive(active bool)

	// Pools returns the pools the scene's entities are stored in.
	Pools() *pool.Pools

	// AddModel registers a model. Adding a model twice is a no-op.
	//
	// Parameters:
	//   - m: the model to add
	AddModel(m model.Model)

	// RemoveModel unregisters a model, preserving the order of the remaining models.
	//
	// Parameters:
	//   - m: the model to remove
	//
	// Returns:
	//   - bool: true if the model was registered
	RemoveModel(m model.Model) bool

	// Models returns the registered models in insertion order.
	Models() []model.Model

	// AddLight registers a light in the registry matching its type. A directional light becomes the
	// main light.
	//
	// Parameters:
	//   - l: the light to add
	AddLight(l light.Light)

	// RemoveLight unregisters a light. Removing the main light clears it.
	//
	// Parameters:
	//   - l: the light to remove
	//
	// Returns:
	//   - bool: true if the light was registered
	RemoveLight(l light.Light) bool

	// SphereLights returns the registered sphere lights.
	SphereLights() []light.Light

	// SpotLights returns the registered spot lights.
	SpotLights() []light.Light

	// MainLight returns the directional main light, nil if none is set.
	MainLight() light.Light

	// SetMainLight sets the directional main light. Lights of any other type are rejected.
	//
	// Parameters:
	//   - l: a directional light, or nil to clear the main light
	SetMainLight(l light.Light)

	// Shadows returns the scene's shadow settings.
	Shadows() light.Shadows

	// Ambient returns the ambient sky color; w holds the intensity.
	Ambient() mgl32.Vec4

	// SetAmbient sets the ambient sky color.
	//
	// Parameters:
	//   - ambient: the color with the intensity in w
	SetAmbient(ambient mgl32.Vec4)

	// AddCamera registers a camera the scene is rendered from.
	//
	// Parameters:
	//   - c: the camera to add
	AddCamera(c camera.Camera)

	// RemoveCamera unregisters a camera.
	//
	// Parameters:
	//   - c: the camera to remove
	//
	// Returns:
	//   - bool: true if the camera was registered
	RemoveCamera(c camera.Camera) bool

	// Cameras returns the registered cameras in insertion order.
	Cameras() []camera.Camera

	// Update propagates node transforms to model world bounds and local uniforms and refreshes light
	// bounds, then resets the changed flags of every node it touched. Call once per frame before rendering.
	Update()

	// Destroy unregisters everything and frees the scene-owned shadow settings.
	// Models, lights and cameras are owned by the caller and left intact.
	Destroy()
}

type renderScene struct {
	mu *sync.RWMutex

	pools  *pool.Pools
	name   string
	active bool

	models       []model.Model
	sphereLights []light.Light
	spotLights   []light.Light
	mainLight    light.Light
	shadows      light.Shadows
	ownShadows   bool
	ambient      mgl32.Vec4
	cameras      []camera.Camera

	// nodes is reused by Update to reset changed flags once per node.
	nodes []node.Node
}

var _ RenderScene = &renderScene{}

// NewRenderScene creates an empty, active RenderScene.
//
// Parameters:
//   - pools: the pools the scene's entities are stored in
//   - options: variadic list of SceneBuilderOption functions to configure the scene
//
// Returns:
//   - RenderScene: the scene
func NewRenderScene(pools *pool.Pools, options ...SceneBuilderOption) RenderScene {
	s := &renderScene{
		mu:      &sync.RWMutex{},
		pools:   pools,
		active:  true,
		ambient: DefaultAmbient,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.shadows == nil {
		s.shadows = light.NewShadows(pools)
		s.ownShadows = true
	}
	return s
}

func (s *renderScene) Name() string {
	return s.name
}

func (s *renderScene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *renderScene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *renderScene) Pools() *pool.Pools {
	return s.pools
}

func (s *renderScene) AddModel(m model.Model) {
	if m == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.models, m) {
		s.models = append(s.models, m)
	}
}

func (s *renderScene) RemoveModel(m model.Model) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ok bool
	s.models, ok = remove(s.models, m)
	return ok
}

func (s *renderScene) Models() []model.Model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.models
}

func (s *renderScene) AddLight(l light.Light) {
	if l == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLight(l)
}

func (s *renderScene) RemoveLight(l light.Light) bool {
	if l == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var ok bool
	switch l.Type() {
	case light.LightTypeSphere:
		s.sphereLights, ok = remove(s.sphereLights, l)
	case light.LightTypeSpot:
		s.spotLights, ok = remove(s.spotLights, l)
	case light.LightTypeDirectional:
		if s.mainLight == l {
			s.mainLight = nil
			ok = true
		}
	}
	return ok
}

func (s *renderScene) SphereLights() []light.Light {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sphereLights
}

func (s *renderScene) SpotLights() []light.Light {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.spotLights
}

func (s *renderScene) MainLight() light.Light {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mainLight
}

func (s *renderScene) SetMainLight(l light.Light) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setMainLight(l)
}

func (s *renderScene) Shadows() light.Shadows {
	return s.shadows
}

func (s *renderScene) Ambient() mgl32.Vec4 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ambient
}

func (s *renderScene) SetAmbient(ambient mgl32.Vec4) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ambient = ambient
}

func (s *renderScene) AddCamera(c camera.Camera) {
	if c == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.cameras, c) {
		s.cameras = append(s.cameras, c)
	}
}

func (s *renderScene) RemoveCamera(c camera.Camera) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ok bool
	s.cameras, ok = remove(s.cameras, c)
	return ok
}

func (s *renderScene) Cameras() []camera.Camera {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cameras
}

func (s *renderScene) Update() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes = s.nodes[:0]
	for _, m := range s.models {
		m.UpdateTransform()
		s.nodes = append(s.nodes, m.Node())
	}
	for _, l := range s.sphereLights {
		l.Update()
		s.nodes = append(s.nodes, l.Node())
	}
	for _, l := range s.spotLights {
		l.Update()
		s.nodes = append(s.nodes, l.Node())
	}
	if s.mainLight != nil {
		s.mainLight.Update()
		s.nodes = append(s.nodes, s.mainLight.Node())
	}
	// Nodes shared between entities are reset only after every entity has seen the change.
	for _, n := range s.nodes {
		n.ResetChangedFlags()
	}
}

func (s *renderScene) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models = nil
	s.sphereLights = nil
	s.spotLights = nil
	s.mainLight = nil
	s.cameras = nil
	s.nodes = nil
	if s.ownShadows {
		s.shadows.Destroy()
	}
}

// addLight files the light by type. Caller must hold the write lock.
func (s *renderScene) addLight(l light.Light) {
	switch l.Type() {
	case light.LightTypeSphere:
		if !slices.Contains(s.sphereLights, l) {
			s.sphereLights = append(s.sphereLights, l)
		}
	case light.LightTypeSpot:
		if !slices.Contains(s.spotLights, l) {
			s.spotLights = append(s.spotLights, l)
		}
	case light.LightTypeDirectional:
		s.setMainLight(l)
	}
}

// setMainLight replaces the main light. Caller must hold the write lock.
func (s *renderScene) setMainLight(l light.Light) {
	if l != nil && l.Type() != light.LightTypeDirectional {
		logger.Logger().Warn("scene: main light must be directional",
			zap.String("scene", s.name),
			zap.String("light", l.Name()),
			zap.Stringer("type", l.Type()))
		return
	}
	s.mainLight = l
}

// remove deletes the first occurrence of v, keeping the order of the rest.
func remove[T comparable](items []T, v T) ([]T, bool) {
	i := slices.Index(items, v)
	if i < 0 {
		return items, false
	}
	return slices.Delete(items, i, i+1), true
}
