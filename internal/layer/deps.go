package layer

import (
	"github.com/mywallpaper/desktop/internal/hittest"
	"github.com/mywallpaper/desktop/internal/hook"
	"github.com/mywallpaper/desktop/internal/input"
	"github.com/mywallpaper/desktop/internal/monitor"
	"github.com/mywallpaper/desktop/internal/router"
	"github.com/mywallpaper/desktop/internal/shell"
	"github.com/mywallpaper/desktop/internal/watchdog"
)

// HookRunner is the hook thread as seen by the layer.
type HookRunner interface {
	Start() error
	Stop() error
	Running() bool
}

// Deps are the OS-facing collaborators of a Layer. SystemDeps returns the
// real ones; tests substitute fakes.
type Deps struct {
	Tree       shell.Tree
	Windows    shell.WindowOps
	Icons      shell.IconWindow
	Monitors   func() (monitor.Set, error)
	Foreground watchdog.Foreground
	Probe      hittest.Probe
	Input      router.Windows

	// Forwarder delivers wallpaper-bound input. Nil posts window messages to
	// the render widget.
	Forwarder router.Injector
	// COM reaches the composition controller given to
	// WithCompositionController. Zero means router.SystemCOM.
	COM router.COM
	// Locator finds the render widget under the surface. Nil uses the surface
	// itself.
	Locator func(surface func() shell.Handle) router.Locator
	Desktop func(chain *shell.Cache) hook.Desktop
	Metrics input.Metrics
	NewHook func(*hook.Engine, *hook.Signals, func(any)) HookRunner

	// OwnerPID returns the process owning a window.
	OwnerPID func(shell.Handle) uint32
	// Identify defaults to ProcessIdentity.
	Identify func(pid uint32) (Identity, error)
}

func (d *Deps) fill() {
	if d.Identify == nil {
		d.Identify = ProcessIdentity
	}
	if d.Forwarder == nil && d.Input != nil {
		d.Forwarder = router.NewMessageInjector(d.Input)
	}
	if d.Metrics == (input.Metrics{}) {
		d.Metrics = input.DefaultMetrics
	}
}
