// File: internal/computer/robot/desktop.go

// Package robot drives the real mouse, keyboard and screen through robotgo.
package robot

import (
	"fmt"
	"image"
	"time"

	"github.com/go-vgo/robotgo"

	"github.com/xkilldash9x/cycle-cli/internal/computer"
)

// keyNames maps canonical key names onto robotgo's spelling where they differ.
var keyNames = map[string]string{
	"command": "cmd",
	"ctrl":    "ctrl",
	"alt":     "alt",
	"shift":   "shift",
	"enter":   "enter",
	"esc":     "esc",
	"space":   "space",
	"tab":     "tab",
}

var buttonNames = map[computer.Button]string{
	computer.ButtonLeft:   "left",
	computer.ButtonRight:  "right",
	computer.ButtonMiddle: "center",
}

// Desktop implements computer.Desktop on the local display.
type Desktop struct{}

var _ computer.Desktop = (*Desktop)(nil)

// New returns a Desktop bound to the local display.
func New() *Desktop {
	return &Desktop{}
}

func (d *Desktop) ScreenSize() (int, int, error) {
	w, h := robotgo.GetScreenSize()
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("display reported invalid size %dx%d", w, h)
	}
	return w, h, nil
}

func (d *Desktop) MoveTo(x, y int) error {
	robotgo.Move(x, y)
	return nil
}

func (d *Desktop) MouseDown(button computer.Button) error {
	name, err := buttonName(button)
	if err != nil {
		return err
	}
	return robotgo.Toggle(name)
}

func (d *Desktop) MouseUp(button computer.Button) error {
	name, err := buttonName(button)
	if err != nil {
		return err
	}
	return robotgo.Toggle(name, "up")
}

func (d *Desktop) Click(button computer.Button, double bool) error {
	name, err := buttonName(button)
	if err != nil {
		return err
	}
	robotgo.Click(name, double)
	return nil
}

// Hotkey taps the last key while the keys before it are held as modifiers.
func (d *Desktop) Hotkey(keys ...string) error {
	if len(keys) == 0 {
		return fmt.Errorf("no keys to press")
	}
	mapped := make([]string, len(keys))
	for i, k := range keys {
		mapped[i] = keyName(k)
	}
	main, modifiers := mapped[len(mapped)-1], mapped[:len(mapped)-1]
	if len(modifiers) == 0 {
		return robotgo.KeyTap(main)
	}
	return robotgo.KeyTap(main, modifiers)
}

func (d *Desktop) TypeText(text string, interval time.Duration) error {
	for _, r := range text {
		robotgo.TypeStr(string(r))
		if interval > 0 {
			time.Sleep(interval)
		}
	}
	return nil
}

func (d *Desktop) CursorPosition() (int, int, error) {
	x, y := robotgo.Location()
	return x, y, nil
}

func (d *Desktop) Capture() (image.Image, error) {
	img, err := robotgo.CaptureImg()
	if err != nil {
		return nil, fmt.Errorf("failed to capture screen: %w", err)
	}
	return img, nil
}

func keyName(k string) string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return k
}

func buttonName(b computer.Button) (string, error) {
	name, ok := buttonNames[b]
	if !ok {
		return "", fmt.Errorf("unsupported mouse button %q", b)
	}
	return name, nil
}
