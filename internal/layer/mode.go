package layer

import (
	"context"
	"fmt"

	"github.com/mywallpaper/desktop/internal/events"
	"github.com/mywallpaper/desktop/internal/health"
)

// Mode is where the wallpaper surface lives.
type Mode int32

const (
	// ModeDesktop keeps the surface behind the desktop icons with desktop
	// clicks routed to it.
	ModeDesktop Mode = iota
	// ModeInteractive returns the surface to an ordinary top-level window
	// covering the primary monitor. The hook passes every event through and
	// no re-attach happens until the mode switches back.
	ModeInteractive
)

func (m Mode) String() string {
	if m == ModeInteractive {
		return "interactive"
	}
	return "desktop"
}

// MarshalText renders the mode name in status output.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// ParseMode accepts "desktop" or "interactive".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "desktop":
		return ModeDesktop, nil
	case "interactive":
		return ModeInteractive, nil
	}
	return 0, fmt.Errorf("layer: unknown mode %q", s)
}

// Mode returns the current mode.
func (l *Layer) Mode() Mode { return Mode(l.mode.Load()) }

// SetMode moves the surface between the desktop and an interactive
// top-level window and publishes a layer-mode-changed event. Setting the
// current mode is a no-op. A failed re-attach leaves the layer in desktop
// mode for the supervisor to retry.
func (l *Layer) SetMode(ctx context.Context, m Mode) error {
	l.opMu.Lock()
	defer l.opMu.Unlock()
	if l.stopped {
		return ErrShutdown
	}
	if !l.started.Load() {
		return ErrNotStarted
	}
	if l.Mode() == m {
		return nil
	}

	switch m {
	case ModeInteractive:
		if err := l.enterInteractive(); err != nil {
			return err
		}
	case ModeDesktop:
		l.mode.Store(int32(ModeDesktop))
		l.engine.SetEnabled(true)
		if err := l.attach(ctx); err != nil {
			log.Error("re-attach after interactive mode failed, supervisor will retry", "error", err)
			l.publishMode(ModeDesktop)
			return err
		}
	default:
		return fmt.Errorf("layer: unknown mode %d", m)
	}
	l.publishMode(m)
	return nil
}

// ToggleMode flips the mode and returns the new one.
func (l *Layer) ToggleMode(ctx context.Context) (Mode, error) {
	next := ModeInteractive
	if l.Mode() == ModeInteractive {
		next = ModeDesktop
	}
	return next, l.SetMode(ctx, next)
}

func (l *Layer) enterInteractive() error {
	l.attachMu.Lock()
	defer l.attachMu.Unlock()

	l.engine.SetEnabled(false)
	if err := l.injector.Detach(l.surface, l.monitors.Load()); err != nil {
		l.engine.SetEnabled(true)
		return fmt.Errorf("enter interactive mode: %w", err)
	}
	l.placement.Store(nil)
	l.mode.Store(int32(ModeInteractive))
	l.health.Update(health.Injector, health.Healthy, "interactive")
	return nil
}

func (l *Layer) publishMode(m Mode) {
	log.Info("layer mode changed", "mode", m)
	l.pub.Publish(events.LayerModeChanged(m.String()))
}
