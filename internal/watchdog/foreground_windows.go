//go:build windows

package watchdog

import (
	"github.com/mywallpaper/desktop/internal/shell"
	"github.com/mywallpaper/desktop/internal/win32"
)

// System reads the foreground window from user32.
type System struct{}

func (System) Foreground() (Window, bool) {
	h := win32.ForegroundWindow()
	if h == 0 || !win32.IsWindowVisible(h) {
		return Window{}, false
	}
	r, ok := win32.WindowRect(h)
	if !ok {
		return Window{}, false
	}
	return Window{Handle: shell.Handle(h), Bounds: r, Class: win32.ClassName(h)}, true
}
