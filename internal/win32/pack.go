package win32

import "github.com/mywallpaper/desktop/internal/geom"

// PackPoint packs a POINT for by-value passing on 64-bit targets.
func PackPoint(p geom.Point) uintptr {
	return uintptr(uint64(uint32(p.X)) | uint64(uint32(p.Y))<<32)
}

// MakeLParam packs coordinates into a mouse-message LPARAM.
func MakeLParam(p geom.Point) uintptr {
	return uintptr(uint32(uint16(int16(p.X))) | uint32(uint16(int16(p.Y)))<<16)
}

// MakeWheelWParam packs a wheel delta and MK_* key state into a
// WM_MOUSEWHEEL WPARAM.
func MakeWheelWParam(delta int16, keys uint16) uintptr {
	return uintptr(uint32(uint16(delta))<<16 | uint32(keys))
}
