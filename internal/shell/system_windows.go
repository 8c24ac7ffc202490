//go:build windows

package shell

import (
	"errors"

	"golang.org/x/sys/windows"

	"github.com/mywallpaper/desktop/internal/geom"
	"github.com/mywallpaper/desktop/internal/win32"
)

// System is the live Win32 implementation of Tree, WindowOps and IconWindow.
type System struct{}

func hwnd(h Handle) windows.HWND { return windows.HWND(h) }

func (System) Find(parent, after Handle, class, title string) Handle {
	return Handle(win32.FindChild(hwnd(parent), hwnd(after), class, title))
}

func (System) TopLevel(fn func(Handle) bool) {
	win32.EnumTopLevel(func(h windows.HWND) bool { return fn(Handle(h)) })
}

func (System) ClassOf(h Handle) string { return win32.ClassName(hwnd(h)) }

func (System) ExStyle(h Handle) uint32 {
	return uint32(win32.WindowLong(hwnd(h), win32.GWL_EXSTYLE))
}

func (System) Send(h Handle, msg uint32, wparam, lparam uintptr, timeoutMs uint32) error {
	_, err := win32.SendMessageTimeout(hwnd(h), msg, wparam, lparam, timeoutMs)
	return err
}

func (System) Build() uint32 {
	return windows.RtlGetVersion().BuildNumber
}

func (System) IsWindow(h Handle) bool { return win32.IsWindow(hwnd(h)) }

func (System) Parent(h Handle) Handle { return Handle(win32.Parent(hwnd(h))) }

func (System) Styles(h Handle) (uint32, uint32) {
	return uint32(win32.WindowLong(hwnd(h), win32.GWL_STYLE)),
		uint32(win32.WindowLong(hwnd(h), win32.GWL_EXSTYLE))
}

func (System) SetStyles(h Handle, style, exStyle uint32) error {
	if err := win32.SetWindowLong(hwnd(h), win32.GWL_STYLE, uintptr(style)); err != nil {
		return err
	}
	return win32.SetWindowLong(hwnd(h), win32.GWL_EXSTYLE, uintptr(exStyle))
}

func (System) DisableFrame(h Handle) error {
	return errors.Join(
		win32.DwmSetWindowAttributeUint32(hwnd(h), win32.DWMWA_NCRENDERING_POLICY, win32.DWMNCRP_DISABLED),
		win32.DwmSetWindowAttributeUint32(hwnd(h), win32.DWMWA_BORDER_COLOR, win32.DWMWA_COLOR_NONE),
	)
}

func (System) SetParent(h, parent Handle) error { return win32.SetParent(hwnd(h), hwnd(parent)) }

func (System) ScreenToClient(parent Handle, p geom.Point) geom.Point {
	return win32.ScreenToClient(hwnd(parent), p)
}

func (System) SetPos(h, insertAfter Handle, r geom.Rect) error {
	flags := uint32(win32.SWP_NOACTIVATE | win32.SWP_FRAMECHANGED | win32.SWP_SHOWWINDOW | win32.SWP_NOOWNERZORDER)
	if insertAfter == 0 {
		flags |= win32.SWP_NOZORDER
	}
	return win32.SetWindowPos(hwnd(h), hwnd(insertAfter), r.Left, r.Top, r.Width(), r.Height(), flags)
}

func (System) Show(h Handle, visible bool) error {
	if !win32.IsWindow(hwnd(h)) {
		return ErrStaleHandle
	}
	cmd := int32(win32.SW_HIDE)
	if visible {
		cmd = win32.SW_SHOW
	}
	win32.ShowWindow(hwnd(h), cmd)
	return nil
}
