// Package layer runs the desktop layer: it keeps the wallpaper surface
// injected behind the desktop icons, owns the mouse hook and its routing,
// and reacts to explorer restarts and display changes.
package layer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/mywallpaper/desktop/internal/config"
	"github.com/mywallpaper/desktop/internal/events"
	"github.com/mywallpaper/desktop/internal/health"
	"github.com/mywallpaper/desktop/internal/hittest"
	"github.com/mywallpaper/desktop/internal/hook"
	"github.com/mywallpaper/desktop/internal/logging"
	"github.com/mywallpaper/desktop/internal/monitor"
	"github.com/mywallpaper/desktop/internal/router"
	"github.com/mywallpaper/desktop/internal/shell"
	"github.com/mywallpaper/desktop/internal/watchdog"
	"github.com/mywallpaper/desktop/internal/workerpool"
)

var log = logging.L("layer")

var (
	// ErrNoSurface means no wallpaper window was given.
	ErrNoSurface = errors.New("layer: no wallpaper surface")
	// ErrSurfaceGone means the wallpaper window was destroyed.
	ErrSurfaceGone = errors.New("layer: wallpaper surface destroyed")
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("layer: already started")
	// ErrNotStarted is returned by operations that need a started layer.
	ErrNotStarted = errors.New("layer: not started")
	// ErrShutdown is returned by operations after Shutdown.
	ErrShutdown = errors.New("layer: shut down")
)

// Option configures a Layer.
type Option func(*Layer)

// WithEvents publishes notifications to pub.
func WithEvents(pub events.Publisher) Option {
	return func(l *Layer) { l.pub = pub }
}

// WithHealth records component health in m.
func WithHealth(m *health.Monitor) Option {
	return func(l *Layer) { l.health = m }
}

// WithRecoveryFile enables the icon crash recovery file at path.
func WithRecoveryFile(path string) Option {
	return func(l *Layer) { l.recoveryPath = path }
}

// WithDetachOnShutdown returns the surface to a top-level window when the
// layer shuts down. Used when the surface belongs to another process.
func WithDetachOnShutdown(v bool) Option {
	return func(l *Layer) { l.detach = v }
}

// WithCompositionController routes wallpaper input through a WebView2
// composition controller owned by an in-process host instead of posting
// window messages. invoke marshals a call onto the controller's thread. The
// layer holds a reference until Shutdown.
func WithCompositionController(controller uintptr, invoke func(func())) Option {
	return func(l *Layer) {
		l.controller = controller
		l.invoke = invoke
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(events.Event) {}

// Layer is the desktop layer for one wallpaper surface.
type Layer struct {
	deps         Deps
	surface      shell.Handle
	pub          events.Publisher
	health       *health.Monitor
	recoveryPath string
	detach       bool
	controller   uintptr
	invoke       func(func())
	composition  *router.CompositionInjector

	cfg       atomic.Pointer[config.Config]
	monitors  monitor.Cache
	chain     shell.Cache
	placement atomic.Pointer[shell.Placement]
	owner     atomic.Pointer[Identity]

	resolver *shell.Resolver
	injector *shell.Injector
	icons    *shell.IconController
	signals  *hook.Signals
	engine   *hook.Engine
	router   *router.Router
	web      *router.WebTarget
	hook     HookRunner
	watchdog *watchdog.Watchdog
	diag     *workerpool.Pool[diagnostic]
	faults   [router.FaultQueueFull + 1]uint64

	// attachMu serialises resolve+inject cycles.
	attachMu sync.Mutex

	// opMu orders runtime changes (icons, config, mode) against Shutdown.
	opMu    sync.Mutex
	stopped bool
	mode    atomic.Int32

	jobsMu      sync.Mutex
	sched       gocron.Scheduler
	watchdogJob gocron.Job
	started     atomic.Bool
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	stopOnce    sync.Once
	lost        chan struct{}
	lostOnce    sync.Once
}

// New wires a layer for surface. Nothing touches the OS until Start.
func New(cfg config.Config, surface shell.Handle, deps Deps, opts ...Option) (*Layer, error) {
	if surface == 0 {
		return nil, ErrNoSurface
	}
	deps.fill()

	l := &Layer{
		deps:    deps,
		surface: surface,
		pub:     nopPublisher{},
		signals: hook.NewSignals(),
		lost:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.health == nil {
		l.health = health.NewMonitor()
	}
	l.cfg.Store(&cfg)

	l.resolver = shell.NewResolver(deps.Tree)
	l.injector = shell.NewInjector(deps.Windows)
	l.icons = shell.NewIconController(deps.Icons, l.chain.Load, l.recoveryPath)
	l.icons.OnChange(func(visible bool) {
		l.pub.Publish(events.IconsVisibilityChanged(visible))
	})

	l.diag = workerpool.New("diagnostics", 1, 64, l.logDiagnostic)

	var locate router.Locator
	if deps.Locator != nil {
		locate = deps.Locator(func() shell.Handle { return l.surface })
	}
	forwarder := deps.Forwarder
	if l.controller != 0 {
		l.composition = router.NewCompositionInjector(l.controller, l.invoke, deps.COM)
		forwarder = l.composition
	}
	l.web = router.NewWebTarget(deps.Input, locate, forwarder, cfg.ForwardQueueSize)
	if locate == nil {
		l.web.SetSurface(surface)
	}
	l.router = router.New(deps.Input, &l.chain, l.web,
		router.WithFaultReporter(func(f router.Fault) { l.diag.Submit(diagnostic{fault: f}) }),
		router.WithStaleChain(l.signals.ChainStale),
	)

	var desktop hook.Desktop = hook.ShellDesktop{Chain: &l.chain}
	if deps.Desktop != nil {
		desktop = deps.Desktop(&l.chain)
	}
	l.engine = hook.NewEngine(hittest.New(deps.Probe, &l.chain), l.router, desktop, deps.Metrics, cfg.ConsumeDesktopInput)

	onPanic := func(v any) { l.diag.Submit(diagnostic{panic: v}) }
	if deps.NewHook != nil {
		l.hook = deps.NewHook(l.engine, l.signals, onPanic)
	} else {
		l.hook = hook.New(l.engine, l.signals, onPanic)
	}

	l.watchdog = watchdog.New(deps.Foreground, &l.monitors, &l.chain, func() shell.Handle { return l.surface }, l.pub)
	return l, nil
}

func (l *Layer) config() config.Config { return *l.cfg.Load() }

// Start attaches the surface, installs the hook and starts the periodic
// jobs. A failed attach or hook install is reported and left to recovery;
// only a cancelled ctx or a scheduler failure makes Start fail.
func (l *Layer) Start(ctx context.Context) error {
	if !l.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.health.Update(health.Surface, health.Healthy, l.surface.String())

	if err := l.attach(ctx); err != nil {
		if ctx.Err() != nil {
			return err
		}
		if errors.Is(err, ErrSurfaceGone) {
			l.loseSurface(err)
			return err
		}
		log.Error("desktop layer not attached, supervisor will retry", "error", err)
	}
	if l.chain.Load().Resolved() && l.icons.RecoverIfNeeded() {
		log.Info("desktop icons recovered from a previous run")
	}

	l.startHook()

	if err := l.startJobs(); err != nil {
		return err
	}

	if l.config().HideDesktopIcons {
		if err := l.SetIconsVisible(false); err != nil {
			log.Warn("failed to hide desktop icons", "error", err)
		}
	}

	l.wg.Add(1)
	go l.loop(ctx)
	log.Info("desktop layer started", "surface", l.surface)
	return nil
}

func (l *Layer) startHook() {
	if err := l.hook.Start(); err != nil {
		// The wallpaper keeps rendering; only click pass-through is lost.
		l.health.Update(health.Hook, health.Unhealthy, err.Error())
		log.Error("mouse hook not installed, desktop clicks will not reach the wallpaper", "error", err)
		l.pub.Publish(events.HookInstallFailed(err))
		return
	}
	l.health.Update(health.Hook, health.Healthy, "")
}

func (l *Layer) startJobs() error {
	l.jobsMu.Lock()
	defer l.jobsMu.Unlock()

	s, err := gocron.NewScheduler(gocron.WithLogger(logging.L("scheduler")))
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	cfg := l.config()
	job, err := l.watchdog.Register(s, cfg.WatchdogInterval)
	if err != nil {
		_ = s.Shutdown()
		return err
	}
	if _, err := s.NewJob(
		gocron.DurationJob(cfg.SupervisorInterval),
		gocron.NewTask(l.supervise),
		gocron.WithName("shell-supervisor"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		_ = s.Shutdown()
		return fmt.Errorf("schedule shell supervisor: %w", err)
	}
	s.Start()
	l.sched, l.watchdogJob = s, job
	l.health.Update(health.Watchdog, health.Healthy, cfg.WatchdogInterval.String())
	return nil
}

// loop is the single goroutine that performs recovery.
func (l *Layer) loop(ctx context.Context) {
	defer l.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.signals.Display:
			l.displayChanged(ctx)
		case <-l.signals.Shell:
			l.recoverChain(ctx, "shell restarted")
		case <-l.signals.Stale:
			l.recoverChain(ctx, "shell chain stale")
		}
	}
}

func (l *Layer) displayChanged(ctx context.Context) {
	set, err := l.deps.Monitors()
	if err != nil {
		log.Warn("monitor enumeration failed after display change", "error", err)
		return
	}
	if !l.monitors.Store(set) {
		return
	}
	log.Info("display layout changed", "monitors", len(set), "bounds", set.Bounds())
	l.recoverChain(ctx, "display changed")
}

func (l *Layer) recoverChain(ctx context.Context, reason string) {
	log.Info("re-attaching desktop layer", "reason", reason)
	err := l.attach(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrSurfaceGone):
		l.loseSurface(err)
	case ctx.Err() == nil:
		log.Error("re-attach failed, supervisor will retry", "reason", reason, "error", err)
	}
}

func (l *Layer) loseSurface(err error) {
	l.lostOnce.Do(func() {
		l.health.Update(health.Surface, health.Unhealthy, err.Error())
		log.Error("wallpaper surface lost", "surface", l.surface, "error", err)
		close(l.lost)
	})
}

// SurfaceLost is closed once the wallpaper window no longer exists.
func (l *Layer) SurfaceLost() <-chan struct{} { return l.lost }

// SetIconsVisible hides or shows the desktop icons. After Shutdown it
// returns ErrShutdown and leaves the icons restored.
func (l *Layer) SetIconsVisible(visible bool) error {
	l.opMu.Lock()
	defer l.opMu.Unlock()
	if l.stopped {
		return ErrShutdown
	}
	return l.icons.SetVisible(visible)
}

// ApplyConfig switches to next, applying the settings that can change at
// runtime. It is ignored after Shutdown.
func (l *Layer) ApplyConfig(next config.Config) {
	l.opMu.Lock()
	defer l.opMu.Unlock()
	if l.stopped {
		log.Debug("config change ignored after shutdown")
		return
	}
	prev := l.config()
	l.cfg.Store(&next)

	if prev.ConsumeDesktopInput != next.ConsumeDesktopInput {
		l.engine.SetConsume(next.ConsumeDesktopInput)
		log.Info("desktop input consumption changed", "consume", next.ConsumeDesktopInput)
	}
	if prev.HideDesktopIcons != next.HideDesktopIcons {
		if err := l.icons.SetVisible(!next.HideDesktopIcons); err != nil {
			log.Warn("failed to apply desktop icon visibility", "error", err)
		}
	}
	if prev.WatchdogInterval != next.WatchdogInterval {
		l.rescheduleWatchdog(next.WatchdogInterval)
	}
}

func (l *Layer) rescheduleWatchdog(interval time.Duration) {
	l.jobsMu.Lock()
	defer l.jobsMu.Unlock()
	if l.sched == nil {
		return
	}
	if l.watchdogJob != nil {
		if err := l.sched.RemoveJob(l.watchdogJob.ID()); err != nil {
			log.Warn("remove watchdog job", "error", err)
		}
	}
	job, err := l.watchdog.Register(l.sched, interval)
	if err != nil {
		l.health.Update(health.Watchdog, health.Unhealthy, err.Error())
		return
	}
	l.watchdogJob = job
	l.health.Update(health.Watchdog, health.Healthy, interval.String())
}

// Shutdown stops the hook and jobs, restores the desktop icons and, when
// configured, detaches the surface. Safe to call from every exit path and
// more than once; only the first call does the work.
func (l *Layer) Shutdown(ctx context.Context) error {
	var errs []error
	l.stopOnce.Do(func() {
		log.Info("shutting down desktop layer")
		l.opMu.Lock()
		l.stopped = true
		l.opMu.Unlock()

		if l.cancel != nil {
			l.cancel()
		}
		if err := l.hook.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop hook: %w", err))
		}
		l.jobsMu.Lock()
		if l.sched != nil {
			if err := l.sched.Shutdown(); err != nil {
				errs = append(errs, fmt.Errorf("stop scheduler: %w", err))
			}
		}
		l.jobsMu.Unlock()
		l.wg.Wait()

		l.web.Close(ctx)
		if l.composition != nil {
			l.composition.Release()
		}

		if err := l.icons.Restore(); err != nil {
			errs = append(errs, fmt.Errorf("restore icons: %w", err))
		}

		l.attachMu.Lock()
		if l.detach && l.placement.Load() != nil {
			if err := l.injector.Detach(l.surface, l.monitors.Load()); err != nil {
				errs = append(errs, fmt.Errorf("detach surface: %w", err))
			}
			l.placement.Store(nil)
		}
		l.attachMu.Unlock()

		l.diag.Shutdown(ctx)
	})
	return errors.Join(errs...)
}
