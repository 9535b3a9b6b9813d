package common

// KeyCode is a virtual key code. Printable keys use their ASCII value, the rest follow GLFW.
type KeyCode uint32

const (
	KeySpace KeyCode = 32
	Key0     KeyCode = 48
	Key1     KeyCode = 49
	Key2     KeyCode = 50
	Key3     KeyCode = 51
	Key4     KeyCode = 52
	Key5     KeyCode = 53
	Key6     KeyCode = 54
	Key7     KeyCode = 55
	Key8     KeyCode = 56
	Key9     KeyCode = 57
	KeyA     KeyCode = 65
	KeyB     KeyCode = 66
	KeyC     KeyCode = 67
	KeyD     KeyCode = 68
	KeyE     KeyCode = 69
	KeyF     KeyCode = 70
	KeyH     KeyCode = 72
	KeyI     KeyCode = 73
	KeyL     KeyCode = 76
	KeyP     KeyCode = 80
	KeyQ     KeyCode = 81
	KeyS     KeyCode = 83
	KeyW     KeyCode = 87

	KeyEsc        KeyCode = 256
	KeyRight      KeyCode = 262
	KeyLeft       KeyCode = 263
	KeyDown       KeyCode = 264
	KeyUp         KeyCode = 265
	KeyLeftShift  KeyCode = 340
	KeyRightShift KeyCode = 344
)

// IsDigit reports whether the key is one of the number row keys.
func (k KeyCode) IsDigit() bool {
	return k >= Key0 && k <= Key9
}

// Digit returns the value of a number row key, or -1.
func (k KeyCode) Digit() int {
	if !k.IsDigit() {
		return -1
	}
	return int(k - Key0)
}
