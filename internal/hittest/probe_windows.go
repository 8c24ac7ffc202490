//go:build windows

package hittest

import (
	"fmt"
	"unsafe"

	ole "github.com/go-ole/go-ole"

	"github.com/mywallpaper/desktop/internal/geom"
	"github.com/mywallpaper/desktop/internal/shell"
	"github.com/mywallpaper/desktop/internal/win32"
)

// IAccessible::get_accRole.
const vtblGetAccRole = 13

// AccessibleProbe queries oleacc for the object under a point. Its VARIANTs
// and class-name buffer are reused across calls, so a probe must be used by
// one thread only, and that thread must have initialised COM.
type AccessibleProbe struct {
	child ole.VARIANT
	role  ole.VARIANT
	class [256]uint16
}

// NewAccessibleProbe loads oleacc.dll up front.
func NewAccessibleProbe() (*AccessibleProbe, error) {
	if err := win32.LoadOleacc(); err != nil {
		return nil, err
	}
	return &AccessibleProbe{}, nil
}

// WindowAt returns the window under p, or 0 unless it is a list view; the
// desktop icon list is the only list view the classifier cares about.
func (a *AccessibleProbe) WindowAt(p geom.Point) shell.Handle {
	h := win32.WindowFromPoint(p)
	if h == 0 {
		return 0
	}
	n := win32.ClassNameInto(h, a.class[:])
	if !equalUTF16(a.class[:n], shell.ClassListView) {
		return 0
	}
	return shell.Handle(h)
}

// RoleAt returns the role of the accessible object at p.
func (a *AccessibleProbe) RoleAt(p geom.Point) (uint32, bool) {
	a.child = ole.VARIANT{}
	a.role = ole.VARIANT{}

	acc, hr := win32.AccessibleObjectFromPoint(p, unsafe.Pointer(&a.child))
	if hr < 0 || acc == 0 {
		return 0, false
	}
	defer win32.ComRelease(acc)

	// VARIANT is wider than a register on 64-bit targets and is passed by
	// reference to the callee.
	hr = win32.ComCall2(acc, vtblGetAccRole,
		uintptr(unsafe.Pointer(&a.child)), uintptr(unsafe.Pointer(&a.role)))
	if hr < 0 {
		return 0, false
	}
	if a.role.VT != ole.VT_I4 {
		// Custom roles come back as BSTR and own memory.
		_ = ole.VariantClear(&a.role)
		return 0, false
	}
	return uint32(a.role.Val), true
}

// equalUTF16 compares a UTF-16 buffer to an ASCII string without
// converting either side.
func equalUTF16(buf []uint16, s string) bool {
	if len(buf) != len(s) {
		return false
	}
	for i := 0; i < len(s); i++ {
		if buf[i] != uint16(s[i]) {
			return false
		}
	}
	return true
}

// sFalse is returned by CoInitializeEx when the thread already joined the
// apartment.
const sFalse = 1

// InitThread prepares the calling OS thread for accessibility calls.
func InitThread() error {
	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		if oleErr, ok := err.(*ole.OleError); ok && oleErr.Code() == sFalse {
			return nil
		}
		return fmt.Errorf("failed to initialize COM: %w", err)
	}
	return nil
}

// UninitThread undoes InitThread.
func UninitThread() { ole.CoUninitialize() }
