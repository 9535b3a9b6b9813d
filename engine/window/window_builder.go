package window

// WindowBuilderOption is a functional option for configuring a window.
type WindowBuilderOption func(c *config)

// WithTitle sets the window title displayed in the title bar.
//
// Parameters:
//   - title: the window title text
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithTitle(title string) WindowBuilderOption {
	return func(c *config) {
		c.title = title
	}
}

// WithSize sets the initial window size. It is clamped to the size limits.
//
// Parameters:
//   - width: initial width in screen coordinates
//   - height: initial height in screen coordinates
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSize(width, height int) WindowBuilderOption {
	return func(c *config) {
		c.width, c.height = width, height
	}
}

// WithMinSize sets the minimum window size while resizing.
//
// Parameters:
//   - width: minimum width in screen coordinates
//   - height: minimum height in screen coordinates
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithMinSize(width, height int) WindowBuilderOption {
	return func(c *config) {
		c.minWidth, c.minHeight = width, height
	}
}

// WithMaxSize sets the maximum window size while resizing.
//
// Parameters:
//   - width: maximum width in screen coordinates
//   - height: maximum height in screen coordinates
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithMaxSize(width, height int) WindowBuilderOption {
	return func(c *config) {
		c.maxWidth, c.maxHeight = width, height
	}
}

// WithResizable controls whether the user can resize the window.
func WithResizable(resizable bool) WindowBuilderOption {
	return func(c *config) {
		c.resizable = resizable
	}
}

// WithCloseOnEscape controls whether pressing escape closes the window. Enabled by default.
func WithCloseOnEscape(enabled bool) WindowBuilderOption {
	return func(c *config) {
		c.closeOnEscape = enabled
	}
}
