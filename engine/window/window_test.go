package window

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func TestNewConfig(t *testing.T) {
	tests := []struct {
		name          string
		options       []WindowBuilderOption
		width, height int
	}{
		{name: "defaults", width: 1280, height: 720},
		{name: "explicit size", options: []WindowBuilderOption{WithSize(800, 600)}, width: 800, height: 600},
		{
			name:    "clamped to max size",
			options: []WindowBuilderOption{WithSize(4000, 3000), WithMaxSize(1920, 1080)},
			width:   1920, height: 1080,
		},
		{
			name:    "clamped to min size",
			options: []WindowBuilderOption{WithSize(10, 10), WithMinSize(640, 480)},
			width:   640, height: 480,
		},
		{
			name:    "never zero",
			options: []WindowBuilderOption{WithSize(0, -5), WithMinSize(0, 0)},
			width:   1, height: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newConfig(tt.options...)
			if c.width != tt.width || c.height != tt.height {
				t.Errorf("expected %dx%d, got %dx%d", tt.width, tt.height, c.width, c.height)
			}
		})
	}
}

func TestConfigOptions(t *testing.T) {
	c := newConfig(WithTitle("demo"), WithResizable(false), WithCloseOnEscape(false))
	if c.title != "demo" || c.resizable || c.closeOnEscape {
		t.Errorf("unexpected config %+v", c)
	}
	if d := newConfig(); d.maxWidth != glfw.DontCare || !d.closeOnEscape {
		t.Errorf("unexpected defaults %+v", d)
	}
}

func TestWindowSizeBeforeCreate(t *testing.T) {
	w := &window{config: newConfig(WithSize(640, 480))}
	if width, height := w.Size(); width != 640 || height != 480 {
		t.Errorf("expected 640x480, got %dx%d", width, height)
	}
	if w.IsRunning() || w.SurfaceDescriptor() != nil {
		t.Error("an uncreated window must not report running or a surface")
	}
	if err := w.Close(); err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
