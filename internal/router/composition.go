package router

import (
	"errors"

	"github.com/mywallpaper/desktop/internal/geom"
	"github.com/mywallpaper/desktop/internal/shell"
	"github.com/mywallpaper/desktop/internal/win32"
)

// ICoreWebView2CompositionController::SendMouseInput.
const vtblSendMouseInput = 5

// ErrControllerReleased is returned by Inject after Release.
var ErrControllerReleased = errors.New("router: composition controller released")

// COM is the vtable access a CompositionInjector needs. SystemCOM calls
// through real vtables.
type COM struct {
	AddRef  func(obj uintptr)
	Call4   func(obj uintptr, idx int, a1, a2, a3, a4 uintptr) int32
	Release func(obj uintptr)
}

// CompositionInjector feeds forwards into a WebView2 composition controller,
// which hit-tests inside the page the way a real click would.
type CompositionInjector struct {
	controller uintptr
	invoke     func(func())
	com        COM
}

// NewCompositionInjector wraps an ICoreWebView2CompositionController owned
// by the host and takes a reference on it. The controller must be called on
// the thread that created it; invoke marshals a call onto that thread and
// may be nil when the forward worker already is that thread. A zero com
// means SystemCOM.
func NewCompositionInjector(controller uintptr, invoke func(func()), com COM) *CompositionInjector {
	if com.Call4 == nil {
		com = SystemCOM
	}
	if com.AddRef != nil {
		com.AddRef(controller)
	}
	return &CompositionInjector{controller: controller, invoke: invoke, com: com}
}

// Inject sends f as a composition mouse input. target is unused: the
// controller already knows its page.
func (c *CompositionInjector) Inject(_ shell.Handle, f Forward, client geom.Point) error {
	if c.controller == 0 {
		return ErrControllerReleased
	}
	var hr int32
	call := func() {
		hr = c.com.Call4(c.controller, vtblSendMouseInput,
			uintptr(f.Kind), uintptr(f.Keys), uintptr(f.Data), win32.PackPoint(client))
	}
	if c.invoke != nil {
		c.invoke(call)
	} else {
		call()
	}
	if hr < 0 {
		return win32.HRESULTError(vtblSendMouseInput, hr)
	}
	return nil
}

// Release drops the controller reference. Call it once the forward queue
// has drained.
func (c *CompositionInjector) Release() {
	if c.controller == 0 {
		return
	}
	if c.com.Release != nil {
		c.com.Release(c.controller)
	}
	c.controller = 0
}
