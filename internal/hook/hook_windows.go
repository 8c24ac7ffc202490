//go:build windows

package hook

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/mywallpaper/desktop/internal/geom"
	"github.com/mywallpaper/desktop/internal/hittest"
	"github.com/mywallpaper/desktop/internal/input"
	"github.com/mywallpaper/desktop/internal/shell"
	"github.com/mywallpaper/desktop/internal/win32"
)

const (
	windowClass = "MyWallpaperDesktopHook"
	stopTimeout = 2 * time.Second
)

// The OS gives callbacks no context pointer, and syscall.NewCallback slots
// are never freed, so one hook instance at a time owns these.
var (
	active         atomic.Pointer[Hook]
	taskbarCreated atomic.Uint32
	mouseCallback  = syscall.NewCallback(lowLevelMouseProc)
	windowCallback = syscall.NewCallback(hiddenWindowProc)
)

// Hook owns the hook thread: a locked OS thread running a message pump with
// the WH_MOUSE_LL hook and a hidden window for broadcasts. Other goroutines
// talk to it only through Start, Stop and the atomic getters.
type Hook struct {
	engine  *Engine
	signals *Signals
	onPanic func(any)

	tid     atomic.Uint32
	running atomic.Bool
	done    chan struct{}
	stopMu  sync.Mutex
}

// New returns a hook driving engine. onPanic, if set, is called on the hook
// thread with any recovered panic value and must not block.
func New(engine *Engine, signals *Signals, onPanic func(any)) *Hook {
	return &Hook{engine: engine, signals: signals, onPanic: onPanic}
}

// Running reports whether the hook is installed and pumping.
func (h *Hook) Running() bool { return h.running.Load() }

// Start spawns the hook thread and waits until the hook is installed.
func (h *Hook) Start() error {
	if !active.CompareAndSwap(nil, h) {
		return ErrAlreadyRunning
	}
	ready := make(chan error, 1)
	h.done = make(chan struct{})
	go h.run(ready)
	if err := <-ready; err != nil {
		active.CompareAndSwap(h, nil)
		return err
	}
	return nil
}

// Stop ends the pump, which unhooks and tears the thread down. Safe to call
// more than once.
func (h *Hook) Stop() error {
	h.stopMu.Lock()
	defer h.stopMu.Unlock()
	if !h.running.Load() {
		return nil
	}
	if err := win32.PostThreadMessage(h.tid.Load(), win32.WM_QUIT, 0, 0); err != nil {
		return fmt.Errorf("post WM_QUIT to hook thread: %w", err)
	}
	select {
	case <-h.done:
		return nil
	case <-time.After(stopTimeout):
		return fmt.Errorf("hook thread did not stop within %s", stopTimeout)
	}
}

func (h *Hook) run(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(h.done)
	defer active.CompareAndSwap(h, nil)

	if err := hittest.InitThread(); err != nil {
		log.Warn("COM init on hook thread failed, icon hit testing will miss", "error", err)
	} else {
		defer hittest.UninitThread()
	}

	h.tid.Store(windows.GetCurrentThreadId())
	taskbarCreated.Store(win32.RegisterWindowMessage("TaskbarCreated"))
	h.engine.SetMetrics(SystemMetrics())

	wnd, err := win32.CreateHiddenWindow(windowClass, windowCallback)
	if err != nil {
		log.Warn("hidden window for shell broadcasts not created", "error", err)
	}

	hh, err := win32.SetMouseHook(mouseCallback)
	if err != nil {
		if wnd != 0 {
			win32.DestroyWindow(wnd)
		}
		ready <- fmt.Errorf("%w: SetWindowsHookEx(WH_MOUSE_LL): %v", ErrInstallFailed, err)
		return
	}
	h.running.Store(true)
	ready <- nil
	log.Info("mouse hook installed", "thread", h.tid.Load())

	var msg win32.MSG
	for win32.GetMessage(&msg) {
		win32.DispatchMessage(&msg)
	}

	h.running.Store(false)
	if err := win32.Unhook(hh); err != nil {
		log.Warn("unhook failed", "error", err)
	}
	if wnd != 0 {
		win32.DestroyWindow(wnd)
	}
	log.Info("mouse hook removed")
}

// lowLevelMouseProc is the WH_MOUSE_LL callback. It runs for every mouse
// event in the session and must not allocate or block.
func lowLevelMouseProc(nCode, wparam, lparam uintptr) uintptr {
	if int32(nCode) == win32.HC_ACTION {
		if h := active.Load(); h != nil {
			ms := (*win32.MSLLHOOKSTRUCT)(unsafe.Pointer(lparam))
			if ev, ok := toEvent(uint32(wparam), ms); ok && h.engine.guard(ev, h.onPanic) {
				return 1
			}
		}
	}
	return win32.CallNextHook(nCode, wparam, lparam)
}

func toEvent(msg uint32, ms *win32.MSLLHOOKSTRUCT) (input.Event, bool) {
	ev := input.Event{Pt: ms.Pt, Time: ms.Time}
	switch msg {
	case win32.WM_MOUSEMOVE:
		ev.Kind = input.KindMove
	case win32.WM_LBUTTONDOWN:
		ev.Kind, ev.Button = input.KindDown, input.ButtonLeft
	case win32.WM_LBUTTONUP:
		ev.Kind, ev.Button = input.KindUp, input.ButtonLeft
	case win32.WM_RBUTTONDOWN:
		ev.Kind, ev.Button = input.KindDown, input.ButtonRight
	case win32.WM_RBUTTONUP:
		ev.Kind, ev.Button = input.KindUp, input.ButtonRight
	case win32.WM_MBUTTONDOWN:
		ev.Kind, ev.Button = input.KindDown, input.ButtonMiddle
	case win32.WM_MBUTTONUP:
		ev.Kind, ev.Button = input.KindUp, input.ButtonMiddle
	case win32.WM_MOUSEWHEEL:
		ev.Kind, ev.Delta = input.KindWheel, int16(ms.MouseData>>16)
	case win32.WM_MOUSEHWHEEL:
		ev.Kind, ev.Delta = input.KindHWheel, int16(ms.MouseData>>16)
	default:
		return ev, false
	}
	return ev, true
}

// hiddenWindowProc runs on the hook thread too, so metric refreshes can
// touch the engine directly.
func hiddenWindowProc(hwnd, msg, wparam, lparam uintptr) uintptr {
	h := active.Load()
	switch {
	case h == nil:
	case msg == win32.WM_DISPLAYCHANGE:
		h.signals.DisplayChanged()
	case msg == win32.WM_SETTINGCHANGE:
		h.engine.SetMetrics(SystemMetrics())
	case msg != 0 && uint32(msg) == taskbarCreated.Load():
		h.signals.ShellRestarted()
	}
	return win32.DefWindowProc(hwnd, msg, wparam, lparam)
}

// SystemMetrics reads the user's double-click and drag thresholds.
func SystemMetrics() input.Metrics {
	m := input.Metrics{
		DoubleClickTime: win32.DoubleClickTime(),
		DoubleClickSize: geom.Point{X: win32.SystemMetric(win32.SM_CXDOUBLECLK), Y: win32.SystemMetric(win32.SM_CYDOUBLECLK)},
		DragSize:        geom.Point{X: win32.SystemMetric(win32.SM_CXDRAG), Y: win32.SystemMetric(win32.SM_CYDRAG)},
	}
	if m.DoubleClickTime == 0 {
		m.DoubleClickTime = input.DefaultMetrics.DoubleClickTime
	}
	return m
}

// ShellDesktop answers Desktop.At from the cached shell chain and one
// WindowFromPoint call. The root is only looked up for windows that are not
// themselves in the chain.
type ShellDesktop struct {
	Chain *shell.Cache
}

func (d ShellDesktop) At(p geom.Point) (shell.Handle, bool) {
	w := win32.WindowFromPoint(p)
	if w == 0 {
		return 0, false
	}
	h := shell.Handle(w)
	chain := d.Chain.Load()
	if !chain.Resolved() {
		return h, false
	}
	return h, chain.IsShell(h) || chain.IsShell(shell.Handle(win32.RootOf(w)))
}
