// Package watchdog reports when the wallpaper is hidden behind fullscreen
// applications.
package watchdog

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/mywallpaper/desktop/internal/events"
	"github.com/mywallpaper/desktop/internal/geom"
	"github.com/mywallpaper/desktop/internal/logging"
	"github.com/mywallpaper/desktop/internal/monitor"
	"github.com/mywallpaper/desktop/internal/shell"
)

var log = logging.L("watchdog")

const DefaultInterval = 2 * time.Second

// Window is the foreground top-level window.
type Window struct {
	Handle shell.Handle
	Bounds geom.Rect
	Class  string
}

// Foreground reports the current foreground window. ok is false when there
// is none or it is minimized or hidden.
type Foreground interface {
	Foreground() (w Window, ok bool)
}

// Desktop window classes that can hold the foreground without hiding the
// wallpaper.
var shellClasses = map[string]bool{
	shell.ClassProgman: true,
	shell.ClassWorkerW: true,
}

// Watchdog polls the foreground window and publishes occlusion edges, per
// monitor and for the wallpaper as a whole.
type Watchdog struct {
	fg       Foreground
	monitors *monitor.Cache
	chain    *shell.Cache
	surface  func() shell.Handle
	pub      events.Publisher

	mu       sync.Mutex
	layout   monitor.Set
	occluded []bool

	visible atomic.Bool
	polls   atomic.Uint64
}

func New(fg Foreground, monitors *monitor.Cache, chain *shell.Cache, surface func() shell.Handle, pub events.Publisher) *Watchdog {
	w := &Watchdog{
		fg:       fg,
		monitors: monitors,
		chain:    chain,
		surface:  surface,
		pub:      pub,
	}
	w.visible.Store(true)
	return w
}

// Visible reports the last published aggregate state.
func (w *Watchdog) Visible() bool { return w.visible.Load() }

// Polls is the number of completed polls.
func (w *Watchdog) Polls() uint64 { return w.polls.Load() }

// Occluded returns the per-monitor state from the last poll, in monitor
// order.
func (w *Watchdog) Occluded() []bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]bool(nil), w.occluded...)
}

// Register adds the poll job to s. The job runs in singleton mode so a
// slow poll is never overlapped by the next tick.
func (w *Watchdog) Register(s gocron.Scheduler, interval time.Duration) (gocron.Job, error) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	job, err := s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(w.Poll),
		gocron.WithName("visibility-watchdog"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return nil, fmt.Errorf("watchdog: schedule poll: %w", err)
	}
	log.Info("visibility watchdog scheduled", "interval", interval)
	return job, nil
}

// Poll samples the foreground window once and publishes any edges.
func (w *Watchdog) Poll() {
	defer w.polls.Add(1)

	set := w.monitors.Load()
	fg, ok := w.fg.Foreground()
	if ok && w.excluded(fg) {
		ok = false
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.adopt(set)

	all := len(set) > 0
	for i, m := range set {
		covered := ok && fg.Bounds.Covers(m.Bounds)
		if covered != w.occluded[i] {
			w.occluded[i] = covered
			log.Debug("monitor occlusion changed", logging.KeyMonitor, m.Index, "occluded", covered)
			w.pub.Publish(events.MonitorOccluded(m.Index, covered))
		}
		all = all && covered
	}

	if visible := !all; w.visible.Load() != visible {
		w.visible.Store(visible)
		log.Info("wallpaper visibility changed", "visible", visible)
		w.pub.Publish(events.WallpaperVisibility(visible))
	}
}

// adopt carries per-monitor state over to a new layout. A monitor that kept
// its bounds keeps its state; anything else starts uncovered.
func (w *Watchdog) adopt(set monitor.Set) {
	if w.layout.Equal(set) {
		return
	}
	next := make([]bool, len(set))
	for i, m := range set {
		for j, old := range w.layout {
			if old.Bounds == m.Bounds {
				next[i] = w.occluded[j]
				break
			}
		}
	}
	w.layout = set
	w.occluded = next
}

func (w *Watchdog) excluded(fg Window) bool {
	if fg.Handle == 0 {
		return true
	}
	if w.surface != nil && fg.Handle == w.surface() {
		return true
	}
	if w.chain != nil && w.chain.Load().IsShell(fg.Handle) {
		return true
	}
	return shellClasses[fg.Class]
}
