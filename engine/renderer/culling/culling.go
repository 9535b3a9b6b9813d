// Package culling decides which models a camera sees, which of them cast and receive shadows,
// and which punctual lights touch which models.
package culling

import (
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/model"
	"github.com/Carmen-Shannon/oxy-render/engine/node"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
)

// RenderObject is a visible model and its signed view depth for one culling pass.
type RenderObject struct {
	Model model.Model
	Depth float32
}

// Result holds the output of one culling pass. Its slices are owned by the SceneCulling that
// produced it and are overwritten by the next Cull call.
type Result struct {
	// RenderObjects are the visible models inside the camera frustum, in scene order.
	RenderObjects []RenderObject

	// ShadowObjects are the visible shadow casters, inside the camera frustum or not.
	ShadowObjects []RenderObject

	CasterBounds   common.AABB
	ReceiverBounds common.AABB
	CasterSphere   common.Sphere
	ReceiverSphere common.Sphere
	HasCasters     bool
	HasReceivers   bool
}

// SceneCulling culls scene models against a camera.
type SceneCulling interface {
	// Cull classifies the enabled models of the scene for the camera. When the scene's shadows are
	// enabled, the caster and receiver spheres are written to them.
	//
	// Parameters:
	//   - cam: the camera to cull for
	//   - s: the scene to cull
	//
	// Returns:
	//   - *Result: the culling result, reused by the next call
	Cull(cam camera.Camera, s scene.RenderScene) *Result

	// Workers returns the number of workers of the parallel visibility phase, 0 when culling is serial.
	Workers() int

	// Destroy stops the worker pool.
	Destroy()
}

// modelFlags is the per-model output of the visibility phase.
type modelFlags struct {
	position  mgl32.Vec3
	depth     float32
	visible   bool
	inFrustum bool
}

type sceneCulling struct {
	workers int
	// minParallel is the model count below which the visibility phase runs serially.
	minParallel int

	pool   worker.DynamicWorkerPool
	flags  []modelFlags
	result Result
}

var _ SceneCulling = &sceneCulling{}

// NewSceneCulling creates a SceneCulling. Culling is serial unless WithCullingWorkers is given.
//
// Parameters:
//   - options: variadic list of SceneCullingBuilderOption functions to configure culling
//
// Returns:
//   - SceneCulling: the culling instance
func NewSceneCulling(options ...SceneCullingBuilderOption) SceneCulling {
	c := &sceneCulling{minParallel: DefaultMinParallel}
	for _, opt := range options {
		opt(c)
	}
	if c.workers > 1 {
		c.pool = worker.NewDynamicWorkerPool(c.workers, 256, 1*time.Second)
	} else {
		c.workers = 0
	}
	return c
}

// DefaultCullingWorkers is the worker count used by WithCullingWorkers(0).
func DefaultCullingWorkers() int {
	return max(runtime.NumCPU()-1, 1)
}

// DefaultMinParallel is the default model count below which culling stays serial.
const DefaultMinParallel = 512

func (c *sceneCulling) Workers() int {
	return c.workers
}

func (c *sceneCulling) Destroy() {
	if c.pool != nil {
		c.pool.Stop()
		c.pool = nil
	}
}

func (c *sceneCulling) Cull(cam camera.Camera, s scene.RenderScene) *Result {
	r := &c.result
	r.RenderObjects = r.RenderObjects[:0]
	r.ShadowObjects = r.ShadowObjects[:0]
	r.CasterBounds, r.ReceiverBounds = common.AABB{}, common.AABB{}
	r.CasterSphere, r.ReceiverSphere = common.Sphere{}, common.Sphere{}
	r.HasCasters, r.HasReceivers = false, false

	models := s.Models()
	if cap(c.flags) < len(models) {
		c.flags = make([]modelFlags, len(models))
	}
	c.flags = c.flags[:len(models)]

	// World positions are resolved serially since nodes recompose their world matrix lazily.
	for i, m := range models {
		f := &c.flags[i]
		*f = modelFlags{}
		if m.Enabled() {
			f.position = m.Node().WorldPosition()
			f.visible = true
		}
	}

	visibility := cam.Visibility()
	frustum := cam.Frustum()
	camPos, forward := cam.Position(), cam.Forward()
	classify := func(lo, hi int) {
		for i := lo; i < hi; i++ {
			f := &c.flags[i]
			if !f.visible {
				continue
			}
			m := models[i]
			if !IsVisible(m.Node().Layer(), m.VisFlags(), visibility) {
				f.visible = false
				continue
			}
			f.inFrustum = common.AABBFrustum(m.WorldBounds(), frustum)
			f.depth = Depth(f.position, camPos, forward)
		}
	}

	if c.pool != nil && len(models) >= c.minParallel {
		chunk := (len(models) + c.workers - 1) / c.workers
		var wg sync.WaitGroup
		for id, lo := 0, 0; lo < len(models); id, lo = id+1, lo+chunk {
			hi := min(lo+chunk, len(models))
			wg.Add(1)
			c.pool.SubmitTask(worker.Task{
				ID: id,
				Do: func() (any, error) {
					defer wg.Done()
					classify(lo, hi)
					return nil, nil
				},
			})
		}
		wg.Wait()
	} else {
		classify(0, len(models))
	}

	for i, m := range models {
		f := &c.flags[i]
		if !f.visible {
			continue
		}
		if m.CastShadow() {
			r.CasterBounds = mergeInto(r.CasterBounds, m.WorldBounds(), r.HasCasters)
			r.HasCasters = true
			r.ShadowObjects = append(r.ShadowObjects, RenderObject{Model: m, Depth: f.depth})
		}
		if m.ReceiveShadow() {
			r.ReceiverBounds = mergeInto(r.ReceiverBounds, m.WorldBounds(), r.HasReceivers)
			r.HasReceivers = true
		}
		if f.inFrustum {
			r.RenderObjects = append(r.RenderObjects, RenderObject{Model: m, Depth: f.depth})
		}
	}

	if r.HasCasters {
		r.CasterSphere = common.SphereFromAABB(r.CasterBounds)
	}
	if r.HasReceivers {
		r.ReceiverSphere = common.SphereFromAABB(r.ReceiverBounds)
	}
	if sh := s.Shadows(); sh != nil && sh.Enabled() {
		sh.SetCasterSphere(r.CasterSphere)
		sh.SetReceiverSphere(r.ReceiverSphere)
	}
	return r
}

// IsVisible applies the camera visibility mask. A mask equal to the 2D UI layer only admits nodes on
// exactly that layer; any other mask admits a node whose layer or model visibility flags intersect it.
//
// Parameters:
//   - layer: the node layer
//   - visFlags: the model visibility flags
//   - visibility: the camera visibility mask
//
// Returns:
//   - bool: true if the model is visible to the camera
func IsVisible(layer, visFlags, visibility uint32) bool {
	if visibility == node.LayerUI2D {
		return layer == visibility
	}
	return layer&visibility != 0 || visFlags&visibility != 0
}

// Depth returns the signed distance of pos along the camera forward axis. It is a planar
// projection, not the Euclidean distance, and is used unchanged for sorting.
func Depth(pos, camPos, forward mgl32.Vec3) float32 {
	return pos.Sub(camPos).Dot(forward)
}

func mergeInto(acc, b common.AABB, initialized bool) common.AABB {
	if !initialized {
		return b
	}
	return common.MergeAABB(acc, b)
}
