//go:build !windows

package router

import "github.com/mywallpaper/desktop/internal/win32"

// SystemCOM has no controller to call off Windows.
var SystemCOM = COM{
	Call4: func(uintptr, int, uintptr, uintptr, uintptr, uintptr) int32 { return win32.E_NOTIMPL },
}
