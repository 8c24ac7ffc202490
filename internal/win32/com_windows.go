//go:build windows

package win32

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/mywallpaper/desktop/internal/geom"
)

var (
	oleacc = windows.NewLazySystemDLL("oleacc.dll")

	procAccessibleObjectFromPoint = oleacc.NewProc("AccessibleObjectFromPoint")
)

// vtblFn returns the function pointer at slot idx of a COM object's vtable.
func vtblFn(obj uintptr, idx int) uintptr {
	vtbl := *(*uintptr)(unsafe.Pointer(obj))
	return *(*uintptr)(unsafe.Pointer(vtbl + uintptr(idx)*unsafe.Sizeof(uintptr(0))))
}

// ComCall2 invokes vtable slot idx with two arguments. It does not allocate,
// which makes it usable from the hook thread.
func ComCall2(obj uintptr, idx int, a1, a2 uintptr) int32 {
	hr, _, _ := syscall.SyscallN(vtblFn(obj, idx), obj, a1, a2)
	return int32(hr)
}

// ComCall4 invokes vtable slot idx with four arguments. It does not allocate.
func ComCall4(obj uintptr, idx int, a1, a2, a3, a4 uintptr) int32 {
	hr, _, _ := syscall.SyscallN(vtblFn(obj, idx), obj, a1, a2, a3, a4)
	return int32(hr)
}

// ComRelease calls IUnknown::Release (slot 2).
func ComRelease(obj uintptr) {
	if obj != 0 {
		syscall.SyscallN(vtblFn(obj, 2), obj)
	}
}

// ComAddRef calls IUnknown::AddRef (slot 1).
func ComAddRef(obj uintptr) {
	if obj != 0 {
		syscall.SyscallN(vtblFn(obj, 1), obj)
	}
}

// AccessibleObjectFromPoint returns the IAccessible at p and writes the child
// id into child (a VARIANT). child must point at caller-owned memory.
func AccessibleObjectFromPoint(p geom.Point, child unsafe.Pointer) (uintptr, int32) {
	var acc uintptr
	hr, _, _ := syscall.SyscallN(procAccessibleObjectFromPoint.Addr(),
		PackPoint(p), uintptr(unsafe.Pointer(&acc)), uintptr(child))
	return acc, int32(hr)
}

// LoadOleacc resolves oleacc.dll eagerly so the first hook event does not
// pay for the load.
func LoadOleacc() error {
	return procAccessibleObjectFromPoint.Find()
}
