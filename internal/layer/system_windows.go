//go:build windows

package layer

import (
	"fmt"

	"golang.org/x/sys/windows"

	"github.com/mywallpaper/desktop/internal/hittest"
	"github.com/mywallpaper/desktop/internal/hook"
	"github.com/mywallpaper/desktop/internal/monitor"
	"github.com/mywallpaper/desktop/internal/router"
	"github.com/mywallpaper/desktop/internal/shell"
	"github.com/mywallpaper/desktop/internal/watchdog"
	"github.com/mywallpaper/desktop/internal/win32"
)

// SystemDeps returns the live Win32 collaborators. Wallpaper input is posted
// to the render widget unless the layer is built WithCompositionController.
func SystemDeps() (Deps, error) {
	probe, err := hittest.NewAccessibleProbe()
	if err != nil {
		return Deps{}, fmt.Errorf("accessibility probe: %w", err)
	}
	sys := shell.System{}
	return Deps{
		Tree:       sys,
		Windows:    sys,
		Icons:      sys,
		Monitors:   monitor.Enumerate,
		Foreground: watchdog.System{},
		Probe:      probe,
		Input:      router.System{},
		Locator:    router.RenderWidgetLocator,
		Metrics:    hook.SystemMetrics(),
		OwnerPID: func(h shell.Handle) uint32 {
			return win32.WindowProcessID(windows.HWND(h))
		},
	}, nil
}
