//go:build windows

package router

import "github.com/mywallpaper/desktop/internal/win32"

// SystemCOM calls through the controller's vtable.
var SystemCOM = COM{
	AddRef:  win32.ComAddRef,
	Call4:   win32.ComCall4,
	Release: win32.ComRelease,
}
