package engine

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-render/engine/camera"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer/gfx/gfxtest"
	"github.com/Carmen-Shannon/oxy-render/engine/scene"
)

func newHeadless(t *testing.T, options ...EngineBuilderOption) (*engine, *gfxtest.Device) {
	t.Helper()
	dev := gfxtest.NewDevice()
	r, err := renderer.NewRenderer(dev)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(r.Destroy)
	e, err := NewEngine(append([]EngineBuilderOption{WithRenderer(r)}, options...)...)
	if err != nil {
		t.Fatal(err)
	}
	return e.(*engine), dev
}

func newScene(e *engine, name string, cameras int) scene.RenderScene {
	pools := e.Renderer().Pools()
	s := scene.NewRenderScene(pools, scene.WithName(name))
	for range cameras {
		s.AddCamera(camera.NewCamera(pools, camera.WithViewport(800, 600)))
	}
	return s
}

func TestNewEngineRequiresRenderer(t *testing.T) {
	if _, err := NewEngine(); !errors.Is(err, ErrNoRenderer) {
		t.Errorf("expected ErrNoRenderer, got %v", err)
	}
}

func TestActiveScenesOrder(t *testing.T) {
	e, _ := newHeadless(t)
	back := newScene(e, "back", 0)
	front := newScene(e, "front", 0)
	hidden := newScene(e, "hidden", 0)
	hidden.SetActive(false)
	e.AddScene(10, front)
	e.AddScene(-1, back)
	e.AddScene(5, hidden)
	e.AddScene(7, nil)

	active := e.activeScenes()
	if len(active) != 2 || active[0] != back || active[1] != front {
		t.Fatalf("expected [back front], got %d scenes", len(active))
	}
	if len(e.Scenes()) != 3 || e.Scene(5) != hidden || e.Scene(7) != nil {
		t.Error("unexpected scene registry")
	}
	e.RemoveScene(-1)
	if e.Scene(-1) != nil {
		t.Error("expected the scene to be removed")
	}
}

func TestRenderFrame(t *testing.T) {
	var callbacks int
	e, dev := newHeadless(t)
	e.SetRenderCallback(func(float32) { callbacks++ })
	e.AddScene(0, newScene(e, "a", 2))
	e.AddScene(1, newScene(e, "b", 1))
	inactive := newScene(e, "c", 3)
	inactive.SetActive(false)
	e.AddScene(2, inactive)

	if err := e.RenderFrame(0.016); err != nil {
		t.Fatal(err)
	}
	if callbacks != 1 {
		t.Errorf("render callback calls = %d, want 1", callbacks)
	}
	if dev.Acquired != 1 || dev.Presented != 1 {
		t.Errorf("acquired/presented = %d/%d, want 1/1", dev.Acquired, dev.Presented)
	}
	if dev.Submitted != 3 || e.Renderer().Stats().Cameras != 3 {
		t.Errorf("submitted = %d, want one submit per camera of the active scenes", dev.Submitted)
	}
}

func TestResizeUpdatesCameras(t *testing.T) {
	e, _ := newHeadless(t)
	s := newScene(e, "a", 2)
	e.AddScene(0, s)
	e.resize(1024, 512)
	for _, c := range s.Cameras() {
		if c.Width() != 1024 || c.Height() != 512 {
			t.Errorf("camera viewport = %dx%d, want 1024x512", c.Width(), c.Height())
		}
	}
}

func TestRates(t *testing.T) {
	e, _ := newHeadless(t, WithTickRate(0), WithRenderFrameLimit(50))
	if e.engineTickRate != time.Second/60 {
		t.Errorf("tick rate = %v, want the 60Hz default", e.engineTickRate)
	}
	if got := time.Duration(e.renderFrameLimit.Load()); got != 20*time.Millisecond {
		t.Errorf("frame limit = %v, want 20ms", got)
	}
	e.SetTickRate(120)
	if e.engineTickRate != time.Second/120 {
		t.Errorf("tick rate = %v, want 120Hz", e.engineTickRate)
	}
	e.SetRenderFrameLimit(0)
	if e.renderFrameLimit.Load() != 0 {
		t.Error("expected an uncapped render loop")
	}
}

func TestRunUntilQuit(t *testing.T) {
	e, dev := newHeadless(t, WithTickRate(1000), WithRenderFrameLimit(1000), WithProfiling(true))
	e.AddScene(0, newScene(e, "a", 1))

	var ticks atomic.Int32
	e.SetTickCallback(func(float32) {
		if ticks.Add(1) == 5 {
			e.Quit()
		}
	})

	done := make(chan struct{})
	go func() {
		e.Run()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Quit")
	}
	if ticks.Load() < 5 {
		t.Errorf("ticks = %d, want at least 5", ticks.Load())
	}
	if dev.Presented == 0 {
		t.Error("expected the render loop to present frames")
	}
	e.Quit()
}
