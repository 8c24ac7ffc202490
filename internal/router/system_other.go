//go:build !windows

package router

import (
	"github.com/mywallpaper/desktop/internal/geom"
	"github.com/mywallpaper/desktop/internal/shell"
)

// ClassRenderWidget is the Chromium child window that receives input for
// WebView2 and Electron content.
const ClassRenderWidget = "Chrome_RenderWidgetHostHWND"

// System has no windows to post to off Windows.
type System struct{}

func (System) Post(shell.Handle, uint32, uintptr, uintptr) bool       { return false }
func (System) IsWindow(shell.Handle) bool                             { return false }
func (System) ScreenToClient(_ shell.Handle, p geom.Point) geom.Point { return p }
func (System) CursorPos() (geom.Point, bool)                          { return geom.Point{}, false }

// RenderWidgetLocator returns the surface itself.
func RenderWidgetLocator(surface func() shell.Handle) Locator {
	return func() (shell.Handle, error) {
		if h := surface(); h != 0 {
			return h, nil
		}
		return 0, ErrNoSurface
	}
}
