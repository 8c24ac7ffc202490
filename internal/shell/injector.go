package shell

import (
	"fmt"
	"sync"

	"github.com/mywallpaper/desktop/internal/geom"
	"github.com/mywallpaper/desktop/internal/monitor"
	"github.com/mywallpaper/desktop/internal/win32"
)

// Styles that make the compositor treat a window as an ordinary top-level
// window. They are removed before reparenting.
const (
	stripStyle = win32.WS_CAPTION | win32.WS_BORDER | win32.WS_DLGFRAME |
		win32.WS_THICKFRAME | win32.WS_SYSMENU | win32.WS_MINIMIZEBOX |
		win32.WS_MAXIMIZEBOX | win32.WS_POPUP
	stripExStyle = win32.WS_EX_DLGMODALFRAME | win32.WS_EX_WINDOWEDGE |
		win32.WS_EX_CLIENTEDGE | win32.WS_EX_STATICEDGE | win32.WS_EX_APPWINDOW |
		win32.WS_EX_TOPMOST | win32.WS_EX_TOOLWINDOW
	addStyle   = win32.WS_CHILD | win32.WS_VISIBLE | win32.WS_CLIPSIBLINGS
	addExStyle = win32.WS_EX_NOACTIVATE
)

// WindowOps is the write side of the window system used by the injector.
type WindowOps interface {
	IsWindow(h Handle) bool
	Parent(h Handle) Handle
	Styles(h Handle) (style, exStyle uint32)
	SetStyles(h Handle, style, exStyle uint32) error
	// DisableFrame removes the compositor-drawn border and non-client
	// rendering.
	DisableFrame(h Handle) error
	SetParent(h, parent Handle) error
	// ScreenToClient maps a screen point into parent's client area.
	ScreenToClient(parent Handle, p geom.Point) geom.Point
	// SetPos moves and sizes h. A zero insertAfter keeps the current Z order.
	SetPos(h, insertAfter Handle, r geom.Rect) error
}

// Placement is where an injection put the surface.
type Placement struct {
	Surface Handle    `json:"surface" yaml:"surface"`
	Parent  Handle    `json:"parent" yaml:"parent"`
	After   Handle    `json:"after" yaml:"after"`
	Screen  geom.Rect `json:"screen" yaml:"screen"`
	Client  geom.Rect `json:"client" yaml:"client"`
}

type savedStyles struct {
	style, exStyle uint32
}

// Injector places the wallpaper surface behind the desktop icons.
type Injector struct {
	ops WindowOps

	mu    sync.Mutex
	saved map[Handle]savedStyles
}

// NewInjector returns an injector over ops.
func NewInjector(ops WindowOps) *Injector {
	return &Injector{ops: ops, saved: make(map[Handle]savedStyles)}
}

// SurfaceStyles returns the styles a surface gets once injected.
func SurfaceStyles(style, exStyle uint32) (uint32, uint32) {
	return style&^stripStyle | addStyle, exStyle&^stripExStyle | addExStyle
}

// Inject restyles surface, reparents it under the chain's insertion point and
// spans it over every monitor. Any failure is returned wrapped in
// ErrInjectionFailed or ErrStaleHandle; callers retry resolve and inject
// together rather than resuming from the failed step.
func (in *Injector) Inject(surface Handle, h Handles, monitors monitor.Set) (Placement, error) {
	if !h.Resolved() {
		return Placement{}, fmt.Errorf("%w: inject with unresolved chain", ErrTopologyUnresolved)
	}
	if !in.ops.IsWindow(surface) {
		return Placement{}, fmt.Errorf("%w: surface %s", ErrStaleHandle, surface)
	}
	if !in.ops.IsWindow(h.Insertion) {
		return Placement{}, fmt.Errorf("%w: insertion %s", ErrStaleHandle, h.Insertion)
	}
	bounds := monitors.Bounds()
	if bounds.Empty() {
		return Placement{}, fmt.Errorf("%w: no monitor geometry", ErrInjectionFailed)
	}

	style, exStyle := in.ops.Styles(surface)
	in.remember(surface, style, exStyle)
	newStyle, newExStyle := SurfaceStyles(style, exStyle)
	if err := in.ops.SetStyles(surface, newStyle, newExStyle); err != nil {
		return Placement{}, fmt.Errorf("%w: set styles: %v", ErrInjectionFailed, err)
	}
	// Pre-Windows 11 DWM rejects the border color attribute; the style strip
	// above is enough there.
	if err := in.ops.DisableFrame(surface); err != nil {
		log.Debug("disable DWM frame", "hwnd", surface, "error", err)
	}

	if in.ops.Parent(surface) != h.Insertion {
		if err := in.ops.SetParent(surface, h.Insertion); err != nil {
			return Placement{}, fmt.Errorf("%w: set parent %s: %v", ErrInjectionFailed, h.Insertion, err)
		}
	}

	// DefView and the surface are siblings on the raised layout and on the
	// unsplit legacy fallback; sit directly behind it there. Otherwise the
	// insertion WorkerW already orders the surface behind the icons.
	var after Handle
	if in.ops.Parent(h.DefView) == h.Insertion {
		after = h.DefView
	}

	origin := in.ops.ScreenToClient(h.Insertion, bounds.Origin())
	client := geom.RectXYWH(origin.X, origin.Y, bounds.Width(), bounds.Height())
	if err := in.ops.SetPos(surface, after, client); err != nil {
		return Placement{}, fmt.Errorf("%w: set position: %v", ErrInjectionFailed, err)
	}

	p := Placement{Surface: surface, Parent: h.Insertion, After: after, Screen: bounds, Client: client}
	log.Info("surface injected", "surface", surface, "chain", h, "bounds", bounds)
	return p, nil
}

// Detach returns surface to an ordinary top-level window covering the
// primary monitor, restoring the styles it had before the first Inject.
func (in *Injector) Detach(surface Handle, monitors monitor.Set) error {
	if !in.ops.IsWindow(surface) {
		return fmt.Errorf("%w: surface %s", ErrStaleHandle, surface)
	}
	if err := in.ops.SetParent(surface, 0); err != nil {
		return fmt.Errorf("detach surface %s: %w", surface, err)
	}

	in.mu.Lock()
	orig, ok := in.saved[surface]
	delete(in.saved, surface)
	in.mu.Unlock()
	if ok {
		if err := in.ops.SetStyles(surface, orig.style, orig.exStyle); err != nil {
			return fmt.Errorf("restore surface styles: %w", err)
		}
	}

	if primary, ok := monitors.Primary(); ok {
		if err := in.ops.SetPos(surface, 0, primary.Bounds); err != nil {
			return fmt.Errorf("position detached surface: %w", err)
		}
	}
	log.Info("surface detached", "surface", surface)
	return nil
}

func (in *Injector) remember(surface Handle, style, exStyle uint32) {
	in.mu.Lock()
	defer in.mu.Unlock()
	// Keep the pre-injection styles across re-injections.
	if _, ok := in.saved[surface]; !ok && style&win32.WS_CHILD == 0 {
		in.saved[surface] = savedStyles{style: style, exStyle: exStyle}
	}
}
