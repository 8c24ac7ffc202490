//go:build windows

package router

import (
	"golang.org/x/sys/windows"

	"github.com/mywallpaper/desktop/internal/geom"
	"github.com/mywallpaper/desktop/internal/shell"
	"github.com/mywallpaper/desktop/internal/win32"
)

// ClassRenderWidget is the Chromium child window that receives input for
// WebView2 and Electron content.
const ClassRenderWidget = "Chrome_RenderWidgetHostHWND"

// System posts through user32.
type System struct{}

func (System) Post(h shell.Handle, msg uint32, wparam, lparam uintptr) bool {
	return win32.PostMessage(windows.HWND(h), msg, wparam, lparam)
}

func (System) IsWindow(h shell.Handle) bool { return win32.IsWindow(windows.HWND(h)) }

func (System) ScreenToClient(h shell.Handle, p geom.Point) geom.Point {
	return win32.ScreenToClient(windows.HWND(h), p)
}

func (System) CursorPos() (geom.Point, bool) { return win32.CursorPos() }

// RenderWidgetLocator finds the render widget under the window returned by
// surface, or the surface itself when it has none.
func RenderWidgetLocator(surface func() shell.Handle) Locator {
	return func() (shell.Handle, error) {
		root := surface()
		if root == 0 || !win32.IsWindow(windows.HWND(root)) {
			return 0, ErrNoSurface
		}
		var found windows.HWND
		win32.EnumChildren(windows.HWND(root), func(h windows.HWND) bool {
			if win32.ClassName(h) == ClassRenderWidget {
				found = h
				return false
			}
			return true
		})
		if found == 0 {
			return root, nil
		}
		return shell.Handle(found), nil
	}
}
