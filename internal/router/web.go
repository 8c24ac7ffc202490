package router

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/mywallpaper/desktop/internal/geom"
	"github.com/mywallpaper/desktop/internal/shell"
	"github.com/mywallpaper/desktop/internal/win32"
	"github.com/mywallpaper/desktop/internal/workerpool"
)

// Forward is one wallpaper-bound mouse event. Kind is a window message
// number, which WebView2 reuses for its composition mouse event kinds.
type Forward struct {
	Kind uint32
	// Keys are MK_* flags.
	Keys uint32
	// Data is the wheel delta for wheel kinds.
	Data uint32
	// Pt is in screen coordinates.
	Pt   geom.Point
	Drag bool
}

// Injector delivers a forward into the render surface. client is Pt mapped
// into target's client area.
type Injector interface {
	Inject(target shell.Handle, f Forward, client geom.Point) error
}

// Locator finds the render surface window, e.g. the Chrome render widget
// under the wallpaper window.
type Locator func() (shell.Handle, error)

// WebTarget owns the render surface handle and the queue that moves
// forwards off the hook thread. A single worker keeps event order.
type WebTarget struct {
	win    Windows
	locate Locator
	inj    Injector
	pool   *workerpool.Pool[Forward]

	target    atomic.Uintptr
	delivered atomic.Uint64
	failed    atomic.Uint64
	lastErr   atomic.Pointer[error]
}

// NewWebTarget starts the forward queue. locate may be nil when the render
// surface is always supplied through SetSurface.
func NewWebTarget(win Windows, locate Locator, inj Injector, queueSize int) *WebTarget {
	w := &WebTarget{win: win, locate: locate, inj: inj}
	w.pool = workerpool.New("web-forward", 1, queueSize, w.deliver)
	return w
}

// SetSurface supplies the render surface handle directly.
func (w *WebTarget) SetSurface(h shell.Handle) {
	w.target.Store(uintptr(h))
}

// Surface returns the cached render surface handle, possibly stale.
func (w *WebTarget) Surface() shell.Handle {
	return shell.Handle(w.target.Load())
}

// Submit queues f without blocking.
func (w *WebTarget) Submit(f Forward) bool {
	return w.pool.Submit(f)
}

// Close drains queued forwards.
func (w *WebTarget) Close(ctx context.Context) {
	w.pool.Shutdown(ctx)
}

// Stats returns delivered and failed forward counts and queue rejections.
func (w *WebTarget) Stats() (delivered, failed, rejected uint64) {
	return w.delivered.Load(), w.failed.Load(), w.pool.Rejected()
}

// LastError returns the most recent delivery error.
func (w *WebTarget) LastError() error {
	if p := w.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// Resolve returns a live render surface, locating it again when the cached
// handle is gone.
func (w *WebTarget) Resolve() (shell.Handle, error) {
	if h := w.Surface(); h != 0 && w.win.IsWindow(h) {
		return h, nil
	}
	if w.locate == nil {
		if w.Surface() != 0 {
			return 0, ErrStaleSurface
		}
		return 0, ErrNoSurface
	}
	h, err := w.locate()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStaleSurface, err)
	}
	if h == 0 || !w.win.IsWindow(h) {
		return 0, ErrStaleSurface
	}
	prev := shell.Handle(w.target.Swap(uintptr(h)))
	if prev != h {
		log.Info("render surface resolved", "hwnd", h, "previous", prev)
	}
	return h, nil
}

// deliver runs on the queue worker.
func (w *WebTarget) deliver(f Forward) {
	target, err := w.Resolve()
	if err != nil {
		w.fail(err)
		return
	}

	// The queue may lag the real cursor during a drag; forward where the
	// cursor is now so the content sees no drift.
	if f.Drag && f.Kind == win32.WM_MOUSEMOVE {
		if cur, ok := w.win.CursorPos(); ok {
			f.Pt = cur
		}
	}

	client := w.win.ScreenToClient(target, f.Pt)
	if err := w.inj.Inject(target, f, client); err != nil {
		w.fail(err)
		return
	}
	w.delivered.Add(1)
}

func (w *WebTarget) fail(err error) {
	n := w.failed.Add(1)
	w.lastErr.Store(&err)
	// First failure and then every 500th, so a dead surface does not flood.
	if n == 1 || n%500 == 0 {
		log.Warn("web forward failed", "error", err, "failures", n)
	}
}

// MessageInjector posts forwards as window messages to the render widget.
// It is the fallback when no composition controller is available, such as
// when the wallpaper runs in another process.
type MessageInjector struct {
	win Windows
}

// NewMessageInjector returns an injector posting through win.
func NewMessageInjector(win Windows) *MessageInjector {
	return &MessageInjector{win: win}
}

func (m *MessageInjector) Inject(target shell.Handle, f Forward, client geom.Point) error {
	var wparam, lparam uintptr
	switch f.Kind {
	case win32.WM_MOUSEWHEEL, win32.WM_MOUSEHWHEEL:
		wparam = win32.MakeWheelWParam(int16(int32(f.Data)), uint16(f.Keys))
		lparam = win32.MakeLParam(f.Pt)
	case win32.WM_MOUSELEAVE:
	default:
		wparam = uintptr(f.Keys)
		lparam = win32.MakeLParam(client)
	}
	if !m.win.Post(target, f.Kind, wparam, lparam) {
		if !m.win.IsWindow(target) {
			return ErrStaleSurface
		}
		return fmt.Errorf("post 0x%04X to %s failed", f.Kind, target)
	}
	return nil
}
