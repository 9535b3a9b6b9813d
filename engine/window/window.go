package window

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/logger"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"go.uber.org/zap"
)

// ErrClosed is returned by Close when the window has already been closed.
var ErrClosed = errors.New("window: already closed")

// Window is a GLFW window without a client API that a WebGPU surface is created on.
type Window interface {
	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the framebuffer is resized.
	//
	// Parameters:
	//   - callback: function receiving the new framebuffer width and height in pixels
	SetResizeCallback(callback func(width, height uint32))

	// SetScrollCallback sets the callback for mouse scroll wheel events.
	//
	// Parameters:
	//   - callback: function receiving the vertical scroll delta (positive = up)
	SetScrollCallback(callback func(delta float32))

	// SetKeyDownCallback sets the callback for key press and repeat events.
	//
	// Parameters:
	//   - callback: function receiving the key code
	SetKeyDownCallback(callback func(key common.KeyCode))

	// SetKeyUpCallback sets the callback for key release events.
	//
	// Parameters:
	//   - callback: function receiving the key code
	SetKeyUpCallback(callback func(key common.KeyCode))

	// SetMouseMoveCallback sets the callback for cursor movement.
	//
	// Parameters:
	//   - callback: function receiving the cursor position in screen coordinates
	SetMouseMoveCallback(callback func(x, y float32))

	// SurfaceDescriptor returns the platform surface descriptor of the window, created by the
	// wgpuglfw bridge.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the descriptor, or nil once the window is closed
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// Size returns the framebuffer size in pixels. It differs from the requested window size on
	// high-DPI displays.
	//
	// Returns:
	//   - uint32: the width in pixels
	//   - uint32: the height in pixels
	Size() (width, height uint32)

	// IsRunning reports whether the window is still open.
	//
	// Returns:
	//   - bool: true until the window is closed
	IsRunning() bool

	// Close destroys the window and terminates GLFW.
	//
	// Returns:
	//   - error: ErrClosed if the window was already closed
	Close() error

	// ProcessMessages polls window events until the window is closed, calling the update callback
	// each iteration. It must run on the thread that created the window.
	ProcessMessages()
}

// window is the implementation of the Window interface.
type window struct {
	config

	handle  *glfw.Window
	running bool

	onUpdate    func()
	onResize    func(width, height uint32)
	onScroll    func(delta float32)
	onKeyDown   func(key common.KeyCode)
	onKeyUp     func(key common.KeyCode)
	onMouseMove func(x, y float32)
}

// config is the window configuration collected from builder options.
type config struct {
	title         string
	width         int
	height        int
	minWidth      int
	minHeight     int
	maxWidth      int
	maxHeight     int
	resizable     bool
	closeOnEscape bool
}

var _ Window = &window{}

func newConfig(options ...WindowBuilderOption) config {
	c := config{
		title:         "oxy-render",
		width:         1280,
		height:        720,
		minWidth:      320,
		minHeight:     200,
		maxWidth:      glfw.DontCare,
		maxHeight:     glfw.DontCare,
		resizable:     true,
		closeOnEscape: true,
	}
	for _, opt := range options {
		opt(&c)
	}
	c.width = clampSize(c.width, c.minWidth, c.maxWidth)
	c.height = clampSize(c.height, c.minHeight, c.maxHeight)
	return c
}

// clampSize limits size to [lo, hi]. A negative hi means no upper limit.
func clampSize(size, lo, hi int) int {
	if hi >= 0 && size > hi {
		size = hi
	}
	return max(size, lo, 1)
}

// NewWindow initializes GLFW and creates a window with the given options. The calling goroutine is
// locked to its OS thread, which must then run ProcessMessages.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the open window
//   - error: an error if GLFW or the window could not be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	runtime.LockOSThread()

	w := &window{config: newConfig(options...)}
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("window: failed to initialize GLFW: %w", err)
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfwBool(w.resizable))

	handle, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("window: failed to create GLFW window: %w", err)
	}
	handle.SetSizeLimits(w.minWidth, w.minHeight, w.maxWidth, w.maxHeight)
	w.handle = handle
	w.running = true
	w.registerCallbacks()

	// the framebuffer may be larger than the requested size on high-DPI displays
	w.width, w.height = handle.GetFramebufferSize()
	logger.Logger().Info("window: created",
		zap.String("title", w.title),
		zap.Int("width", w.width),
		zap.Int("height", w.height),
	)
	return w, nil
}

func glfwBool(b bool) int {
	if b {
		return glfw.True
	}
	return glfw.False
}

func (w *window) registerCallbacks() {
	w.handle.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		code := common.KeyCode(key)
		if w.closeOnEscape && code == common.KeyEsc && action == glfw.Press {
			w.running = false
			w.handle.SetShouldClose(true)
			return
		}
		switch action {
		case glfw.Press, glfw.Repeat:
			if w.onKeyDown != nil {
				w.onKeyDown(code)
			}
		case glfw.Release:
			if w.onKeyUp != nil {
				w.onKeyUp(code)
			}
		}
	})
	w.handle.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		if w.onScroll != nil {
			w.onScroll(float32(yoff))
		}
	})
	w.handle.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		if w.onMouseMove != nil {
			w.onMouseMove(float32(x), float32(y))
		}
	})
	w.handle.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.width, w.height = width, height
		// minimized windows report a zero framebuffer
		if width <= 0 || height <= 0 {
			return
		}
		if w.onResize != nil {
			w.onResize(uint32(width), uint32(height))
		}
	})
}

func (w *window) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *window) SetResizeCallback(callback func(width, height uint32)) {
	w.onResize = callback
}

func (w *window) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *window) SetKeyDownCallback(callback func(key common.KeyCode)) {
	w.onKeyDown = callback
}

func (w *window) SetKeyUpCallback(callback func(key common.KeyCode)) {
	w.onKeyUp = callback
}

func (w *window) SetMouseMoveCallback(callback func(x, y float32)) {
	w.onMouseMove = callback
}

func (w *window) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	if w.handle == nil {
		return nil
	}
	return wgpuglfw.GetSurfaceDescriptor(w.handle)
}

func (w *window) Size() (uint32, uint32) {
	return uint32(max(w.width, 0)), uint32(max(w.height, 0))
}

func (w *window) IsRunning() bool {
	return w.handle != nil && w.running && !w.handle.ShouldClose()
}

func (w *window) Close() error {
	if w.handle == nil {
		return ErrClosed
	}
	w.running = false
	w.handle.Destroy()
	w.handle = nil
	glfw.Terminate()
	return nil
}

func (w *window) ProcessMessages() {
	for w.IsRunning() {
		glfw.PollEvents()
		if !w.IsRunning() {
			break
		}
		if w.onUpdate != nil {
			w.onUpdate()
		}
		runtime.Gosched()
	}
}
