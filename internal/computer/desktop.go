// File: internal/computer/desktop.go
package computer

import (
	"image"
	"time"
)

// Button names a mouse button.
type Button string

const (
	ButtonLeft   Button = "left"
	ButtonRight  Button = "right"
	ButtonMiddle Button = "middle"
)

// Desktop is the OS surface the computer tool drives. All coordinates are
// real screen pixels. Every method blocks until the OS call returns.
type Desktop interface {
	ScreenSize() (width, height int, err error)
	MoveTo(x, y int) error
	MouseDown(button Button) error
	MouseUp(button Button) error
	// Click clicks at the current pointer position.
	Click(button Button, double bool) error
	// Hotkey presses the keys together, in order, and releases them.
	Hotkey(keys ...string) error
	// TypeText enters text literally, pausing interval between characters.
	TypeText(text string, interval time.Duration) error
	CursorPosition() (x, y int, err error)
	Capture() (image.Image, error)
}
