//go:build !windows

package hook

import (
	"fmt"

	"github.com/mywallpaper/desktop/internal/geom"
	"github.com/mywallpaper/desktop/internal/input"
	"github.com/mywallpaper/desktop/internal/shell"
)

// Hook cannot be installed off Windows.
type Hook struct {
	engine *Engine
}

// New returns a hook whose Start always fails.
func New(engine *Engine, _ *Signals, _ func(any)) *Hook {
	return &Hook{engine: engine}
}

func (h *Hook) Start() error {
	return fmt.Errorf("%w: low-level mouse hooks require Windows", ErrInstallFailed)
}

func (h *Hook) Stop() error   { return nil }
func (h *Hook) Running() bool { return false }

// SystemMetrics returns the Windows defaults.
func SystemMetrics() input.Metrics { return input.DefaultMetrics }

// ShellDesktop never contains a point off Windows.
type ShellDesktop struct {
	Chain *shell.Cache
}

func (ShellDesktop) At(geom.Point) (shell.Handle, bool) { return 0, false }
