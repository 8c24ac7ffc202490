package layer

import (
	"github.com/mywallpaper/desktop/internal/health"
	"github.com/mywallpaper/desktop/internal/hook"
	"github.com/mywallpaper/desktop/internal/monitor"
	"github.com/mywallpaper/desktop/internal/shell"
)

// Status is a snapshot of a running layer.
type Status struct {
	Surface          shell.Handle     `json:"surface" yaml:"surface"`
	Mode             Mode             `json:"mode" yaml:"mode"`
	Chain            shell.Handles    `json:"chain" yaml:"chain"`
	Placement        *shell.Placement `json:"placement,omitempty" yaml:"placement,omitempty"`
	Monitors         monitor.Set      `json:"monitors" yaml:"monitors"`
	Shell            *Identity        `json:"shell,omitempty" yaml:"shell,omitempty"`
	HookRunning      bool             `json:"hook_running" yaml:"hook_running"`
	WallpaperVisible bool             `json:"wallpaper_visible" yaml:"wallpaper_visible"`
	IconsVisible     bool             `json:"icons_visible" yaml:"icons_visible"`
	Input            hook.Stats       `json:"input" yaml:"input"`
	Native           uint64           `json:"native_routed" yaml:"native_routed"`
	Web              uint64           `json:"web_routed" yaml:"web_routed"`
	Health           health.Report    `json:"health" yaml:"health"`
}

// Status returns a snapshot of the layer. Safe to call at any time.
func (l *Layer) Status() Status {
	native, web := l.router.Stats()
	return Status{
		Surface:          l.surface,
		Mode:             l.Mode(),
		Chain:            l.chain.Load(),
		Placement:        l.placement.Load(),
		Monitors:         l.monitors.Load(),
		Shell:            l.owner.Load(),
		HookRunning:      l.hook.Running(),
		WallpaperVisible: l.watchdog.Visible(),
		IconsVisible:     l.icons.Restored(),
		Input:            l.engine.Stats(),
		Native:           native,
		Web:              web,
		Health:           l.health.Report(),
	}
}
