//go:build windows

package win32

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	dwmapi = windows.NewLazySystemDLL("dwmapi.dll")

	procDwmSetWindowAttribute = dwmapi.NewProc("DwmSetWindowAttribute")
)

// DwmSetWindowAttributeUint32 sets a 4-byte DWM attribute on hwnd.
func DwmSetWindowAttributeUint32(hwnd windows.HWND, attr uint32, value uint32) error {
	if err := procDwmSetWindowAttribute.Find(); err != nil {
		return err
	}
	hr, _, _ := procDwmSetWindowAttribute.Call(uintptr(hwnd), uintptr(attr),
		uintptr(unsafe.Pointer(&value)), unsafe.Sizeof(value))
	if int32(hr) < 0 {
		return windows.Errno(hr)
	}
	return nil
}
