//go:build windows

package win32

import (
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/mywallpaper/desktop/internal/geom"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procFindWindowW              = user32.NewProc("FindWindowW")
	procFindWindowExW            = user32.NewProc("FindWindowExW")
	procEnumWindows              = user32.NewProc("EnumWindows")
	procEnumChildWindows         = user32.NewProc("EnumChildWindows")
	procGetClassNameW            = user32.NewProc("GetClassNameW")
	procGetParent                = user32.NewProc("GetParent")
	procGetAncestor              = user32.NewProc("GetAncestor")
	procIsWindow                 = user32.NewProc("IsWindow")
	procIsWindowVisible          = user32.NewProc("IsWindowVisible")
	procGetWindowLongPtrW        = user32.NewProc("GetWindowLongPtrW")
	procSetWindowLongPtrW        = user32.NewProc("SetWindowLongPtrW")
	procSetParent                = user32.NewProc("SetParent")
	procSetWindowPos             = user32.NewProc("SetWindowPos")
	procGetWindowRect            = user32.NewProc("GetWindowRect")
	procMapWindowPoints          = user32.NewProc("MapWindowPoints")
	procShowWindow               = user32.NewProc("ShowWindow")
	procSendMessageTimeoutW      = user32.NewProc("SendMessageTimeoutW")
	procPostMessageW             = user32.NewProc("PostMessageW")
	procWindowFromPoint          = user32.NewProc("WindowFromPoint")
	procGetForegroundWindow      = user32.NewProc("GetForegroundWindow")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
	procSetWindowsHookExW        = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx      = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx           = user32.NewProc("CallNextHookEx")
	procGetMessageW              = user32.NewProc("GetMessageW")
	procTranslateMessage         = user32.NewProc("TranslateMessage")
	procDispatchMessageW         = user32.NewProc("DispatchMessageW")
	procPostThreadMessageW       = user32.NewProc("PostThreadMessageW")
	procRegisterClassExW         = user32.NewProc("RegisterClassExW")
	procCreateWindowExW          = user32.NewProc("CreateWindowExW")
	procDefWindowProcW           = user32.NewProc("DefWindowProcW")
	procDestroyWindow            = user32.NewProc("DestroyWindow")
	procRegisterWindowMessageW   = user32.NewProc("RegisterWindowMessageW")
	procEnumDisplayMonitors      = user32.NewProc("EnumDisplayMonitors")
	procGetMonitorInfoW          = user32.NewProc("GetMonitorInfoW")
	procGetSystemMetrics         = user32.NewProc("GetSystemMetrics")
	procGetDoubleClickTime       = user32.NewProc("GetDoubleClickTime")
	procSetCursorPos             = user32.NewProc("SetCursorPos")
	procGetCursorPos             = user32.NewProc("GetCursorPos")

	procGetModuleHandleW      = kernel32.NewProc("GetModuleHandleW")
	procSetConsoleCtrlHandler = kernel32.NewProc("SetConsoleCtrlHandler")
	procSetLastError          = kernel32.NewProc("SetLastError")
)

// MSLLHOOKSTRUCT as delivered to a WH_MOUSE_LL callback.
type MSLLHOOKSTRUCT struct {
	Pt          geom.Point
	MouseData   uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

// MSG mirrors the Win32 message structure.
type MSG struct {
	Hwnd     windows.HWND
	Message  uint32
	WParam   uintptr
	LParam   uintptr
	Time     uint32
	Pt       geom.Point
	LPrivate uint32
}

// WNDCLASSEX mirrors WNDCLASSEXW.
type WNDCLASSEX struct {
	CbSize        uint32
	Style         uint32
	LpfnWndProc   uintptr
	CbClsExtra    int32
	CbWndExtra    int32
	HInstance     windows.Handle
	HIcon         windows.Handle
	HCursor       windows.Handle
	HbrBackground windows.Handle
	LpszMenuName  *uint16
	LpszClassName *uint16
	HIconSm       windows.Handle
}

// MONITORINFO mirrors MONITORINFO (not the EX variant).
type MONITORINFO struct {
	CbSize    uint32
	RcMonitor geom.Rect
	RcWork    geom.Rect
	DwFlags   uint32
}

// FindWindow looks up a top-level window by class and optional title.
func FindWindow(class, title string) windows.HWND {
	c, err := windows.UTF16PtrFromString(class)
	if err != nil {
		return 0
	}
	var t *uint16
	if title != "" {
		if t, err = windows.UTF16PtrFromString(title); err != nil {
			return 0
		}
	}
	r, _, _ := procFindWindowW.Call(uintptr(unsafe.Pointer(c)), uintptr(unsafe.Pointer(t)))
	return windows.HWND(r)
}

// FindChild looks up a child of parent (0 = top-level windows) after
// childAfter, by class and optional title.
func FindChild(parent, childAfter windows.HWND, class, title string) windows.HWND {
	c, err := windows.UTF16PtrFromString(class)
	if err != nil {
		return 0
	}
	var t *uint16
	if title != "" {
		if t, err = windows.UTF16PtrFromString(title); err != nil {
			return 0
		}
	}
	r, _, _ := procFindWindowExW.Call(uintptr(parent), uintptr(childAfter), uintptr(unsafe.Pointer(c)), uintptr(unsafe.Pointer(t)))
	return windows.HWND(r)
}

// syscall.NewCallback slots are never released, so the enumeration
// callbacks are created once and dispatch to the function stored under enumMu.
var (
	enumMu       sync.Mutex
	enumFn       func(windows.HWND) bool
	enumCallback = syscall.NewCallback(func(hwnd, _ uintptr) uintptr {
		if enumFn(windows.HWND(hwnd)) {
			return 1
		}
		return 0
	})

	monitorOut      []MONITORINFO
	monitorCallback = syscall.NewCallback(func(hmon, _, _, _ uintptr) uintptr {
		var mi MONITORINFO
		mi.CbSize = uint32(unsafe.Sizeof(mi))
		if r, _, _ := procGetMonitorInfoW.Call(hmon, uintptr(unsafe.Pointer(&mi))); r != 0 {
			monitorOut = append(monitorOut, mi)
		}
		return 1
	})
)

// EnumTopLevel calls fn for every top-level window until fn returns false.
func EnumTopLevel(fn func(windows.HWND) bool) {
	enumMu.Lock()
	defer enumMu.Unlock()
	enumFn = fn
	procEnumWindows.Call(enumCallback, 0)
	enumFn = nil
}

// EnumChildren calls fn for every descendant of parent until fn returns false.
func EnumChildren(parent windows.HWND, fn func(windows.HWND) bool) {
	enumMu.Lock()
	defer enumMu.Unlock()
	enumFn = fn
	procEnumChildWindows.Call(uintptr(parent), enumCallback, 0)
	enumFn = nil
}

// ClassName returns the window class of hwnd.
func ClassName(hwnd windows.HWND) string {
	var buf [256]uint16
	n := ClassNameInto(hwnd, buf[:])
	return windows.UTF16ToString(buf[:n])
}

// ClassNameInto writes the class name of hwnd into buf and returns its
// length in UTF-16 units. It does not allocate.
func ClassNameInto(hwnd windows.HWND, buf []uint16) int {
	if len(buf) == 0 {
		return 0
	}
	r, _, _ := syscall.SyscallN(procGetClassNameW.Addr(), uintptr(hwnd), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return int(r)
}

// Parent returns the parent (or owner) of hwnd.
func Parent(hwnd windows.HWND) windows.HWND {
	r, _, _ := procGetParent.Call(uintptr(hwnd))
	return windows.HWND(r)
}

// RootOf returns the top-level ancestor of hwnd. It does not allocate.
func RootOf(hwnd windows.HWND) windows.HWND {
	r, _, _ := syscall.SyscallN(procGetAncestor.Addr(), uintptr(hwnd), GA_ROOT)
	return windows.HWND(r)
}

// IsWindow reports whether hwnd still names a live window.
func IsWindow(hwnd windows.HWND) bool {
	if hwnd == 0 {
		return false
	}
	r, _, _ := syscall.SyscallN(procIsWindow.Addr(), uintptr(hwnd))
	return r != 0
}

// IsWindowVisible reports the WS_VISIBLE state of hwnd.
func IsWindowVisible(hwnd windows.HWND) bool {
	r, _, _ := procIsWindowVisible.Call(uintptr(hwnd))
	return r != 0
}

// WindowLong reads a GWL_* value.
func WindowLong(hwnd windows.HWND, index int32) uintptr {
	r, _, _ := procGetWindowLongPtrW.Call(uintptr(hwnd), uintptr(index))
	return r
}

// SetWindowLong writes a GWL_* value. SetWindowLongPtr returns 0 both for
// failure and for a previous value of 0, so the last error decides.
func SetWindowLong(hwnd windows.HWND, index int32, value uintptr) error {
	procSetLastError.Call(0)
	r, _, err := procSetWindowLongPtrW.Call(uintptr(hwnd), uintptr(index), value)
	if r == 0 && err != nil && err != windows.ERROR_SUCCESS {
		return err
	}
	return nil
}

// SetParent reparents hwnd under parent.
func SetParent(hwnd, parent windows.HWND) error {
	r, _, err := procSetParent.Call(uintptr(hwnd), uintptr(parent))
	if r == 0 {
		return err
	}
	return nil
}

// SetWindowPos wraps SetWindowPos.
func SetWindowPos(hwnd, insertAfter windows.HWND, x, y, w, h int32, flags uint32) error {
	r, _, err := procSetWindowPos.Call(uintptr(hwnd), uintptr(insertAfter),
		uintptr(x), uintptr(y), uintptr(w), uintptr(h), uintptr(flags))
	if r == 0 {
		return err
	}
	return nil
}

// WindowRect returns the screen rectangle of hwnd. It does not allocate.
func WindowRect(hwnd windows.HWND) (geom.Rect, bool) {
	var r geom.Rect
	ret, _, _ := syscall.SyscallN(procGetWindowRect.Addr(), uintptr(hwnd), uintptr(unsafe.Pointer(&r)))
	return r, ret != 0
}

// ScreenToClient maps a screen point into hwnd's client coordinates. It does
// not allocate.
func ScreenToClient(hwnd windows.HWND, p geom.Point) geom.Point {
	pt := p
	syscall.SyscallN(procMapWindowPoints.Addr(), 0, uintptr(hwnd), uintptr(unsafe.Pointer(&pt)), 1)
	return pt
}

// ShowWindow wraps ShowWindow and returns the previous visibility.
func ShowWindow(hwnd windows.HWND, cmd int32) bool {
	r, _, _ := procShowWindow.Call(uintptr(hwnd), uintptr(cmd))
	return r != 0
}

// SendMessageTimeout sends msg and gives up after timeoutMs.
func SendMessageTimeout(hwnd windows.HWND, msg uint32, wparam, lparam uintptr, timeoutMs uint32) (uintptr, error) {
	var result uintptr
	r, _, err := procSendMessageTimeoutW.Call(uintptr(hwnd), uintptr(msg), wparam, lparam,
		SMTO_NORMAL|SMTO_ABORTIFHUNG, uintptr(timeoutMs), uintptr(unsafe.Pointer(&result)))
	if r == 0 {
		return 0, err
	}
	return result, nil
}

// PostMessage queues msg for hwnd. It does not allocate.
func PostMessage(hwnd windows.HWND, msg uint32, wparam, lparam uintptr) bool {
	r, _, _ := syscall.SyscallN(procPostMessageW.Addr(), uintptr(hwnd), uintptr(msg), wparam, lparam)
	return r != 0
}

// WindowFromPoint returns the deepest visible window at p. POINT is passed by
// value, packed into one register on amd64/arm64. It does not allocate.
func WindowFromPoint(p geom.Point) windows.HWND {
	r, _, _ := syscall.SyscallN(procWindowFromPoint.Addr(), PackPoint(p))
	return windows.HWND(r)
}

// ForegroundWindow returns the current foreground window.
func ForegroundWindow() windows.HWND {
	r, _, _ := procGetForegroundWindow.Call()
	return windows.HWND(r)
}

// WindowProcessID returns the id of the process owning hwnd.
func WindowProcessID(hwnd windows.HWND) uint32 {
	var pid uint32
	procGetWindowThreadProcessId.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&pid)))
	return pid
}

// SetMouseHook installs a WH_MOUSE_LL hook for the calling thread's pump.
func SetMouseHook(callback uintptr) (windows.Handle, error) {
	r, _, err := procSetWindowsHookExW.Call(WH_MOUSE_LL, callback, uintptr(ModuleHandle()), 0)
	if r == 0 {
		return 0, err
	}
	return windows.Handle(r), nil
}

// Unhook removes a hook installed by SetMouseHook.
func Unhook(h windows.Handle) error {
	r, _, err := procUnhookWindowsHookEx.Call(uintptr(h))
	if r == 0 {
		return err
	}
	return nil
}

// CallNextHook passes the event down the hook chain. It does not allocate.
func CallNextHook(nCode, wparam, lparam uintptr) uintptr {
	r, _, _ := syscall.SyscallN(procCallNextHookEx.Addr(), 0, nCode, wparam, lparam)
	return r
}

// GetMessage blocks for the next message of the calling thread. It returns
// false on WM_QUIT or error.
func GetMessage(msg *MSG) bool {
	r, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(msg)), 0, 0, 0)
	return int32(r) > 0
}

// DispatchMessage translates and dispatches msg.
func DispatchMessage(msg *MSG) {
	procTranslateMessage.Call(uintptr(unsafe.Pointer(msg)))
	procDispatchMessageW.Call(uintptr(unsafe.Pointer(msg)))
}

// PostThreadMessage queues msg on thread tid.
func PostThreadMessage(tid uint32, msg uint32, wparam, lparam uintptr) error {
	r, _, err := procPostThreadMessageW.Call(uintptr(tid), uintptr(msg), wparam, lparam)
	if r == 0 {
		return err
	}
	return nil
}

// CreateHiddenWindow registers class and creates an invisible top-level
// window (not message-only, so it receives broadcasts like WM_DISPLAYCHANGE).
func CreateHiddenWindow(class string, wndProc uintptr) (windows.HWND, error) {
	name, err := windows.UTF16PtrFromString(class)
	if err != nil {
		return 0, err
	}
	wc := WNDCLASSEX{
		LpfnWndProc:   wndProc,
		HInstance:     ModuleHandle(),
		LpszClassName: name,
	}
	wc.CbSize = uint32(unsafe.Sizeof(wc))
	if r, _, err := procRegisterClassExW.Call(uintptr(unsafe.Pointer(&wc))); r == 0 && err != windows.ERROR_CLASS_ALREADY_EXISTS {
		return 0, err
	}
	r, _, err := procCreateWindowExW.Call(
		WS_EX_TOOLWINDOW, uintptr(unsafe.Pointer(name)), uintptr(unsafe.Pointer(name)),
		WS_POPUP, 0, 0, 0, 0, 0, 0, uintptr(ModuleHandle()), 0)
	if r == 0 {
		return 0, err
	}
	return windows.HWND(r), nil
}

// DefWindowProc forwards to DefWindowProcW.
func DefWindowProc(hwnd, msg, wparam, lparam uintptr) uintptr {
	r, _, _ := syscall.SyscallN(procDefWindowProcW.Addr(), hwnd, msg, wparam, lparam)
	return r
}

// DestroyWindow destroys hwnd.
func DestroyWindow(hwnd windows.HWND) {
	procDestroyWindow.Call(uintptr(hwnd))
}

// RegisterWindowMessage returns the id of a registered message name.
func RegisterWindowMessage(name string) uint32 {
	p, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return 0
	}
	r, _, _ := procRegisterWindowMessageW.Call(uintptr(unsafe.Pointer(p)))
	return uint32(r)
}

// Monitors returns the rectangle and primary flag of every display monitor,
// in enumeration order.
func Monitors() ([]MONITORINFO, error) {
	enumMu.Lock()
	defer enumMu.Unlock()

	monitorOut = nil
	r, _, err := procEnumDisplayMonitors.Call(0, 0, monitorCallback, 0)
	out := monitorOut
	monitorOut = nil
	if r == 0 {
		return nil, err
	}
	return out, nil
}

// SystemMetric wraps GetSystemMetrics.
func SystemMetric(index int32) int32 {
	r, _, _ := procGetSystemMetrics.Call(uintptr(index))
	return int32(r)
}

// DoubleClickTime returns the double-click interval in milliseconds.
func DoubleClickTime() uint32 {
	r, _, _ := procGetDoubleClickTime.Call()
	return uint32(r)
}

// SetCursorPos moves the cursor. It does not allocate.
func SetCursorPos(p geom.Point) bool {
	r, _, _ := syscall.SyscallN(procSetCursorPos.Addr(), uintptr(p.X), uintptr(p.Y))
	return r != 0
}

// CursorPos returns the current cursor position. It does not allocate.
func CursorPos() (geom.Point, bool) {
	var p geom.Point
	r, _, _ := syscall.SyscallN(procGetCursorPos.Addr(), uintptr(unsafe.Pointer(&p)))
	return p, r != 0
}

// ModuleHandle returns the handle of the running executable.
func ModuleHandle() windows.Handle {
	r, _, _ := procGetModuleHandleW.Call(0)
	return windows.Handle(r)
}

// SetConsoleCtrlHandler registers a console control handler.
func SetConsoleCtrlHandler(handler uintptr) error {
	r, _, err := procSetConsoleCtrlHandler.Call(handler, 1)
	if r == 0 {
		return err
	}
	return nil
}
