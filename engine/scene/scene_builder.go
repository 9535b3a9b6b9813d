package scene

import (
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/light"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// SceneBuilderOption is a functional option for configuring a RenderScene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *renderScene)

// WithName sets the scene's identifier.
//
// Parameters:
//   - name: the scene name
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithName(name string) SceneBuilderOption {
	return func(s *renderScene) {
		s.name = name
	}
}

// WithActive sets whether the scene is rendered by the engine loop. Scenes are active by default.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *renderScene) {
		s.active = active
	}
}

// WithModels registers initial models.
//
// Parameters:
//   - models: the models to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithModels(models ...model.Model) SceneBuilderOption {
	return func(s *renderScene) {
		for _, m := range models {
			if m != nil {
				s.models = append(s.models, m)
			}
		}
	}
}

// WithLights registers initial lights. A directional light becomes the main light.
//
// Parameters:
//   - lights: the lights to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLights(lights ...light.Light) SceneBuilderOption {
	return func(s *renderScene) {
		for _, l := range lights {
			if l != nil {
				s.addLight(l)
			}
		}
	}
}

// WithCameras registers initial cameras.
//
// Parameters:
//   - cameras: the cameras to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithCameras(cameras ...camera.Camera) SceneBuilderOption {
	return func(s *renderScene) {
		for _, c := range cameras {
			if c != nil {
				s.cameras = append(s.cameras, c)
			}
		}
	}
}

// WithShadows uses caller-owned shadow settings instead of a disabled default.
//
// Parameters:
//   - shadows: the shadow settings
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithShadows(shadows light.Shadows) SceneBuilderOption {
	return func(s *renderScene) {
		s.shadows = shadows
	}
}

// WithAmbient sets the ambient sky color. Default is DefaultAmbient.
//
// Parameters:
//   - ambient: the color with the intensity in w
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithAmbient(ambient mgl32.Vec4) SceneBuilderOption {
	return func(s *renderScene) {
		s.ambient = ambient
	}
}
