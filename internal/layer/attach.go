package layer

import (
	"context"
	"fmt"

	"github.com/avast/retry-go/v4"

	"github.com/mywallpaper/desktop/internal/events"
	"github.com/mywallpaper/desktop/internal/health"
	"github.com/mywallpaper/desktop/internal/logging"
)

// attach runs resolve+inject cycles until one succeeds. Each retry starts
// from monitor enumeration so no attempt builds on a half-applied one. In
// interactive mode it does nothing.
func (l *Layer) attach(ctx context.Context) error {
	l.attachMu.Lock()
	defer l.attachMu.Unlock()
	if l.Mode() == ModeInteractive {
		return nil
	}

	cfg := l.config()
	// retry-go treats zero attempts as unlimited.
	attempts := max(cfg.ResolveAttempts, 1)
	err := retry.Do(
		l.cycle,
		retry.Attempts(uint(attempts)),
		retry.Delay(cfg.ResolveInitialDelay),
		retry.MaxDelay(cfg.ResolveMaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn("attach attempt failed", logging.KeyAttempt, n+1, "error", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("attach surface %s: %w", l.surface, err)
	}
	return nil
}

func (l *Layer) cycle() error {
	if !l.deps.Windows.IsWindow(l.surface) {
		return retry.Unrecoverable(fmt.Errorf("%w: %s", ErrSurfaceGone, l.surface))
	}

	set, err := l.deps.Monitors()
	if err != nil {
		return err
	}
	if l.monitors.Store(set) {
		log.Info("monitor layout", "monitors", len(set), "bounds", set.Bounds())
	}

	if err := l.resolver.SpawnWorker(); err != nil {
		log.Debug("spawn worker", "error", err)
	}
	h, err := l.resolver.Resolve()
	if err != nil {
		l.chain.Clear()
		l.health.Update(health.Topology, health.Degraded, err.Error())
		return err
	}
	l.chain.Store(h)
	l.health.Update(health.Topology, health.Healthy, h.Variant.String())

	p, err := l.injector.Inject(l.surface, h, set)
	if err != nil {
		l.health.Update(health.Injector, health.Degraded, err.Error())
		return err
	}
	l.placement.Store(&p)
	l.health.Update(health.Injector, health.Healthy, "")

	l.rememberOwner()
	if err := l.icons.Reapply(); err != nil {
		log.Warn("failed to re-hide desktop icons on new chain", "error", err)
	}
	l.pub.Publish(events.Topology(h.Variant.String(), h.Root.String(), l.surface.String()))
	return nil
}

// rememberOwner records which explorer instance owns the current chain.
func (l *Layer) rememberOwner() {
	id, ok := l.shellOwner()
	if !ok {
		l.owner.Store(nil)
		return
	}
	if prev := l.owner.Swap(&id); prev == nil || !prev.Same(id) {
		log.Info("shell process", "pid", id.PID, "name", id.Name)
	}
}

func (l *Layer) shellOwner() (Identity, bool) {
	if l.deps.OwnerPID == nil {
		return Identity{}, false
	}
	root := l.chain.Load().Root
	if root == 0 {
		return Identity{}, false
	}
	id, err := l.deps.Identify(l.deps.OwnerPID(root))
	if err != nil {
		log.Debug("shell process identity", "error", err)
		return Identity{}, false
	}
	return id, true
}

// supervise runs on the scheduler. It only detects trouble and signals the
// recovery loop; it never re-attaches itself.
func (l *Layer) supervise() {
	if !l.deps.Windows.IsWindow(l.surface) {
		l.loseSurface(fmt.Errorf("%w: %s", ErrSurfaceGone, l.surface))
		return
	}
	if l.Mode() == ModeInteractive {
		return
	}

	h := l.chain.Load()
	if !h.Resolved() {
		l.signals.ShellRestarted()
		return
	}
	if !l.deps.Windows.IsWindow(h.Root) || !l.deps.Windows.IsWindow(h.IconList) {
		log.Warn("shell chain windows are gone", "chain", h)
		l.signals.ChainStale()
		return
	}
	if p := l.placement.Load(); p == nil || l.deps.Windows.Parent(l.surface) != p.Parent {
		log.Warn("wallpaper surface is no longer under the shell")
		l.signals.ChainStale()
		return
	}

	prev := l.owner.Load()
	if prev == nil {
		return
	}
	cur, ok := l.shellOwner()
	if ok && !prev.Same(cur) {
		log.Warn("shell process changed", "previous", prev.PID, "current", cur.PID)
		l.signals.ShellRestarted()
	}
}
