// Package router delivers classified gestures: icon gestures as posted
// messages to the desktop list view, wallpaper gestures into the render
// surface.
package router

import (
	"errors"
	"sync/atomic"

	"github.com/mywallpaper/desktop/internal/geom"
	"github.com/mywallpaper/desktop/internal/input"
	"github.com/mywallpaper/desktop/internal/logging"
	"github.com/mywallpaper/desktop/internal/shell"
	"github.com/mywallpaper/desktop/internal/win32"
)

var log = logging.L("router")

var (
	// ErrStaleSurface means the render surface window is gone and could not
	// be located again.
	ErrStaleSurface = errors.New("router: render surface is stale")
	// ErrQueueFull means a web-bound event was dropped at the queue.
	ErrQueueFull = errors.New("router: forward queue full")
	// ErrNoSurface means no render surface has been supplied or found.
	ErrNoSurface = errors.New("router: no render surface")
)

// Windows is the slice of the window system the router drives. Post,
// IsWindow and ScreenToClient are called on the hook thread and must not
// allocate.
type Windows interface {
	Post(h shell.Handle, msg uint32, wparam, lparam uintptr) bool
	IsWindow(h shell.Handle) bool
	ScreenToClient(h shell.Handle, p geom.Point) geom.Point
	CursorPos() (geom.Point, bool)
}

// Fault is a hot-path delivery problem. Faults are reported as values so
// the hook thread never builds an error.
type Fault uint8

const (
	FaultNone Fault = iota
	// FaultNoChain: a native gesture arrived before the shell was resolved.
	FaultNoChain
	// FaultStaleChain: the icon list handle is dead.
	FaultStaleChain
	// FaultPost: PostMessage to the icon list failed on a live window.
	FaultPost
	// FaultQueueFull: the web forward queue rejected an event.
	FaultQueueFull
)

func (f Fault) String() string {
	switch f {
	case FaultNoChain:
		return "no shell chain"
	case FaultStaleChain:
		return "stale icon list"
	case FaultPost:
		return "post to icon list failed"
	case FaultQueueFull:
		return "forward queue full"
	default:
		return "none"
	}
}

// Router implements routing for the hook engine. Route and Leave are called
// from the hook thread only.
type Router struct {
	win   Windows
	chain *shell.Cache
	web   *WebTarget

	report func(Fault)
	stale  func()

	native  atomic.Uint64
	forward atomic.Uint64
}

// Option configures a Router.
type Option func(*Router)

// WithFaultReporter sets a non-blocking sink for hot-path faults.
func WithFaultReporter(fn func(Fault)) Option {
	return func(r *Router) { r.report = fn }
}

// WithStaleChain sets a non-blocking callback fired when the cached icon
// list handle turns out to be dead.
func WithStaleChain(fn func()) Option {
	return func(r *Router) { r.stale = fn }
}

// New returns a router posting through win. web may be nil, in which case
// wallpaper gestures are dropped.
func New(win Windows, chain *shell.Cache, web *WebTarget, opts ...Option) *Router {
	r := &Router{
		win:    win,
		chain:  chain,
		web:    web,
		report: func(Fault) {},
		stale:  func() {},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route delivers ev according to the gesture state s. Outside a gesture,
// hover moves and wheel events go to the wallpaper.
func (r *Router) Route(s input.State, ev input.Event) {
	switch s {
	case input.StateNative:
		r.routeNative(ev)
	case input.StateWeb:
		r.routeWeb(ev)
	case input.StateIdle:
		switch ev.Kind {
		case input.KindMove, input.KindWheel, input.KindHWheel:
			r.routeWeb(ev)
		}
	}
}

// Leave tells the wallpaper the cursor left the desktop.
func (r *Router) Leave() {
	if r.web == nil {
		return
	}
	if !r.web.Submit(Forward{Kind: win32.WM_MOUSELEAVE}) {
		r.report(FaultQueueFull)
	}
}

// Stats returns how many events went to each side.
func (r *Router) Stats() (native, web uint64) {
	return r.native.Load(), r.forward.Load()
}

func (r *Router) routeNative(ev input.Event) {
	list := r.chain.Load().IconList
	if list == 0 {
		r.report(FaultNoChain)
		return
	}
	msg := messageFor(ev)
	if msg == 0 {
		return
	}

	keys := keyState(ev.Pressed)
	var wparam, lparam uintptr
	switch ev.Kind {
	case input.KindWheel, input.KindHWheel:
		// Wheel messages carry screen coordinates.
		wparam = win32.MakeWheelWParam(ev.Delta, keys)
		lparam = win32.MakeLParam(ev.Pt)
	default:
		wparam = uintptr(keys)
		lparam = win32.MakeLParam(r.win.ScreenToClient(list, ev.Pt))
	}

	if r.win.Post(list, msg, wparam, lparam) {
		r.native.Add(1)
		return
	}
	if !r.win.IsWindow(list) {
		r.report(FaultStaleChain)
		r.stale()
		return
	}
	r.report(FaultPost)
}

func (r *Router) routeWeb(ev input.Event) {
	if r.web == nil {
		return
	}
	msg := messageFor(ev)
	if msg == 0 {
		return
	}
	f := Forward{
		Kind: msg,
		Keys: uint32(keyState(ev.Pressed)),
		Pt:   ev.Pt,
		Drag: ev.Drag,
	}
	if ev.Kind == input.KindWheel || ev.Kind == input.KindHWheel {
		f.Data = uint32(int32(ev.Delta))
	}
	if !r.web.Submit(f) {
		r.report(FaultQueueFull)
		return
	}
	r.forward.Add(1)
}

// messageFor maps an event to its window message. The same values are the
// WebView2 composition mouse event kinds.
func messageFor(ev input.Event) uint32 {
	switch ev.Kind {
	case input.KindMove:
		return win32.WM_MOUSEMOVE
	case input.KindWheel:
		return win32.WM_MOUSEWHEEL
	case input.KindHWheel:
		return win32.WM_MOUSEHWHEEL
	case input.KindDown:
		switch ev.Button {
		case input.ButtonLeft:
			if ev.Double {
				return win32.WM_LBUTTONDBLCLK
			}
			return win32.WM_LBUTTONDOWN
		case input.ButtonRight:
			if ev.Double {
				return win32.WM_RBUTTONDBLCLK
			}
			return win32.WM_RBUTTONDOWN
		case input.ButtonMiddle:
			if ev.Double {
				return win32.WM_MBUTTONDBLCLK
			}
			return win32.WM_MBUTTONDOWN
		}
	case input.KindUp:
		switch ev.Button {
		case input.ButtonLeft:
			return win32.WM_LBUTTONUP
		case input.ButtonRight:
			return win32.WM_RBUTTONUP
		case input.ButtonMiddle:
			return win32.WM_MBUTTONUP
		}
	}
	return 0
}

// keyState maps pressed buttons to MK_* flags, which are also the WebView2
// virtual key flags.
func keyState(b input.Buttons) uint16 {
	var k uint16
	if b.Has(input.ButtonLeft) {
		k |= win32.MK_LBUTTON
	}
	if b.Has(input.ButtonRight) {
		k |= win32.MK_RBUTTON
	}
	if b.Has(input.ButtonMiddle) {
		k |= win32.MK_MBUTTON
	}
	return k
}
