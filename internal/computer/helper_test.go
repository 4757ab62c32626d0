// File: internal/computer/helper_test.go
package computer

import (
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeDesktop records every OS call instead of performing it.
type fakeDesktop struct {
	mu       sync.Mutex
	width    int
	height   int
	cursorX  int
	cursorY  int
	calls    []string
	typed    []time.Duration
	failWith error
	sizeErr  error
	// blankCapture makes Capture succeed without producing an image.
	blankCapture bool
}

func newFakeDesktop(width, height int) *fakeDesktop {
	return &fakeDesktop{width: width, height: height}
}

func (f *fakeDesktop) record(format string, args ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	return f.failWith
}

func (f *fakeDesktop) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeDesktop) ScreenSize() (int, int, error) {
	return f.width, f.height, f.sizeErr
}

func (f *fakeDesktop) MoveTo(x, y int) error {
	f.cursorX, f.cursorY = x, y
	return f.record("move %d,%d", x, y)
}

func (f *fakeDesktop) MouseDown(b Button) error { return f.record("down %s", b) }

func (f *fakeDesktop) MouseUp(b Button) error { return f.record("up %s", b) }

func (f *fakeDesktop) Click(b Button, double bool) error {
	if double {
		return f.record("double %s", b)
	}
	return f.record("click %s", b)
}

func (f *fakeDesktop) Hotkey(keys ...string) error {
	return f.record("hotkey %s", strings.Join(keys, "+"))
}

func (f *fakeDesktop) TypeText(text string, interval time.Duration) error {
	f.mu.Lock()
	f.typed = append(f.typed, interval)
	f.mu.Unlock()
	return f.record("type %s", text)
}

func (f *fakeDesktop) CursorPosition() (int, int, error) {
	return f.cursorX, f.cursorY, f.record("cursor")
}

func (f *fakeDesktop) Capture() (image.Image, error) {
	if err := f.record("capture"); err != nil {
		return nil, err
	}
	if f.blankCapture {
		return nil, nil
	}
	img := image.NewRGBA(image.Rect(0, 0, f.width, f.height))
	for x := 0; x < f.width; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	return img, nil
}

func newTestTool(t *testing.T, desktop *fakeDesktop) *Tool {
	t.Helper()
	tool, err := New(zaptest.NewLogger(t), desktop, Options{MaxWidth: DefaultMaxWidth, TypingDelay: DefaultTypingDelay})
	require.NoError(t, err)
	return tool
}
