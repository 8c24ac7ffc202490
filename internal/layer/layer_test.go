package layer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mywallpaper/desktop/internal/config"
	"github.com/mywallpaper/desktop/internal/events"
	"github.com/mywallpaper/desktop/internal/geom"
	"github.com/mywallpaper/desktop/internal/health"
	"github.com/mywallpaper/desktop/internal/hook"
	"github.com/mywallpaper/desktop/internal/monitor"
	"github.com/mywallpaper/desktop/internal/router"
	"github.com/mywallpaper/desktop/internal/shell"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(ev events.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) of(typ events.Type) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, ev := range r.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func testConfig() config.Config {
	cfg := *config.Default()
	cfg.ResolveInitialDelay = time.Millisecond
	cfg.ResolveMaxDelay = 5 * time.Millisecond
	cfg.WatchdogInterval = time.Hour
	cfg.SupervisorInterval = time.Hour
	return cfg
}

type fixture struct {
	shell   *fakeShell
	hook    *fakeHook
	rec     *recorder
	health  *health.Monitor
	layer   *Layer
	surface shell.Handle
	list    shell.Handle
	worker  shell.Handle
	path    string
}

func newFixture(t *testing.T, cfg config.Config, opts ...Option) *fixture {
	t.Helper()
	return newFixtureWith(t, cfg, nil, opts...)
}

// newFixtureWith lets a test adjust the fake dependencies before New.
func newFixtureWith(t *testing.T, cfg config.Config, adjust func(*Deps), opts ...Option) *fixture {
	t.Helper()
	f := &fixture{shell: newFakeShell(), hook: &fakeHook{}, rec: &recorder{}, health: health.NewMonitor()}
	_, _, f.list, f.worker = f.shell.explorer()
	f.surface = f.shell.add(0, "Chrome_WidgetWin_1", "MyWallpaper")
	f.path = filepath.Join(t.TempDir(), "icons_state.json")

	deps := f.shell.deps(f.hook)
	if adjust != nil {
		adjust(&deps)
	}
	opts = append([]Option{WithEvents(f.rec), WithHealth(f.health), WithRecoveryFile(f.path)}, opts...)
	l, err := New(cfg, f.surface, deps, opts...)
	if err != nil {
		t.Fatal(err)
	}
	f.layer = l
	t.Cleanup(func() { _ = l.Shutdown(context.Background()) })
	return f
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestNewRequiresSurface(t *testing.T) {
	if _, err := New(testConfig(), 0, Deps{}); !errors.Is(err, ErrNoSurface) {
		t.Fatalf("err = %v, want ErrNoSurface", err)
	}
}

func TestStartInjectsBehindIcons(t *testing.T) {
	f := newFixture(t, testConfig())
	if err := f.layer.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	if got := f.shell.Parent(f.surface); got != f.worker {
		t.Fatalf("surface parent = %s, want WorkerW %s", got, f.worker)
	}
	want := geom.RectXYWH(0, -200, 1920+2560, 1440)
	if got := f.shell.position(f.surface); got != want {
		t.Fatalf("surface rect = %+v, want %+v", got, want)
	}

	st := f.layer.Status()
	if !st.Chain.Resolved() || st.Chain.IconList != f.list {
		t.Fatalf("chain = %+v", st.Chain)
	}
	if !st.HookRunning {
		t.Fatal("hook not running")
	}
	if st.Shell == nil || st.Shell.PID != 4242 {
		t.Fatalf("shell identity = %+v", st.Shell)
	}
	if len(f.rec.of(events.TypeTopologyChanged)) != 1 {
		t.Fatal("expected one topology-changed event")
	}
	for _, c := range []string{health.Topology, health.Injector, health.Hook, health.Watchdog, health.Surface} {
		if chk, ok := f.health.Get(c); !ok || chk.Status != health.Healthy {
			t.Fatalf("%s health = %+v", c, chk)
		}
	}
	if err := f.layer.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second Start = %v", err)
	}
}

func TestStartRetriesUntilShellSplits(t *testing.T) {
	d := newFakeShell()
	progman := d.add(0, shell.ClassProgman, "Program Manager")
	surface := d.add(0, "Chrome_WidgetWin_1", "MyWallpaper")
	var worker shell.Handle
	// Explorer only creates the desktop windows during the second cycle's
	// spawn messages.
	d.onSend = func(n int) {
		if n != 6 {
			return
		}
		d.mu.Lock()
		defer d.mu.Unlock()
		host := d.addLocked(0, shell.ClassWorkerW, "")
		dv := d.addLocked(host, shell.ClassDefView, "")
		d.addLocked(dv, shell.ClassListView, shell.TitleIconList)
		worker = d.addLocked(0, shell.ClassWorkerW, "")
	}

	h := &fakeHook{}
	l, err := New(testConfig(), surface, d.deps(h))
	if err != nil {
		t.Fatal(err)
	}
	defer l.Shutdown(context.Background())

	if err := l.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := d.Parent(surface); got == 0 || got != worker {
		t.Fatalf("surface parent = %s, want %s", got, worker)
	}
	if root := l.Status().Chain.Root; root != progman {
		t.Fatalf("root = %s, want %s", root, progman)
	}
}

func TestStartWithoutShellKeepsRunning(t *testing.T) {
	d := newFakeShell()
	surface := d.add(0, "Chrome_WidgetWin_1", "MyWallpaper")
	cfg := testConfig()
	cfg.ResolveAttempts = 2
	hm := health.NewMonitor()
	l, err := New(cfg, surface, d.deps(&fakeHook{}), WithHealth(hm))
	if err != nil {
		t.Fatal(err)
	}
	defer l.Shutdown(context.Background())

	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("an unresolved shell must not fail Start: %v", err)
	}
	if chk, _ := hm.Get(health.Topology); chk.Status != health.Degraded {
		t.Fatalf("topology health = %+v", chk)
	}
	if l.Status().Chain.Resolved() {
		t.Fatal("chain should be unresolved")
	}
}

func TestHookInstallFailureIsSurfaced(t *testing.T) {
	f := newFixture(t, testConfig())
	f.hook.startErr = hook.ErrInstallFailed

	if err := f.layer.Start(context.Background()); err != nil {
		t.Fatalf("hook failure must not stop the layer: %v", err)
	}
	if got := f.rec.of(events.TypeHookFailed); len(got) != 1 {
		t.Fatalf("hook-failed events = %d", len(got))
	}
	if chk, _ := f.health.Get(health.Hook); chk.Status != health.Unhealthy {
		t.Fatalf("hook health = %+v", chk)
	}
	if f.shell.Parent(f.surface) != f.worker {
		t.Fatal("the wallpaper should still be injected")
	}
}

func TestSurfaceGone(t *testing.T) {
	f := newFixture(t, testConfig())
	f.shell.destroy(f.surface)

	if err := f.layer.Start(context.Background()); !errors.Is(err, ErrSurfaceGone) {
		t.Fatalf("Start = %v, want ErrSurfaceGone", err)
	}
	select {
	case <-f.layer.SurfaceLost():
	default:
		t.Fatal("SurfaceLost not closed")
	}
}

func TestHideIconsAndRestoreOnShutdown(t *testing.T) {
	cfg := testConfig()
	cfg.HideDesktopIcons = true
	f := newFixture(t, cfg)

	if err := f.layer.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if f.shell.visible(f.list) {
		t.Fatal("icons should be hidden")
	}
	if _, err := os.Stat(f.path); err != nil {
		t.Fatalf("recovery file: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = f.layer.Shutdown(context.Background())
		}()
	}
	wg.Wait()

	if !f.shell.visible(f.list) {
		t.Fatal("icons not restored on shutdown")
	}
	if _, err := os.Stat(f.path); !os.IsNotExist(err) {
		t.Fatal("recovery file should be removed")
	}
	got := f.rec.of(events.TypeIconsVisibility)
	if len(got) != 2 || got[0] != events.IconsVisibilityChanged(false) || got[1] != events.IconsVisibilityChanged(true) {
		t.Fatalf("icon events = %v", got)
	}
	if n := f.hook.stops.Load(); n != 1 {
		t.Fatalf("hook stopped %d times", n)
	}
}

func TestRecoverIconsFromPreviousRun(t *testing.T) {
	f := newFixture(t, testConfig())
	if err := f.shell.Show(f.list, false); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(f.path, []byte(`{"hidden":true}`), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := f.layer.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !f.shell.visible(f.list) {
		t.Fatal("icons left hidden by a crashed run were not restored")
	}
}

func TestSupervisorReattachesAfterExplorerRestart(t *testing.T) {
	f := newFixture(t, testConfig())
	if err := f.layer.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	old := f.layer.Status().Chain

	// explorer.exe restarts: every desktop window is replaced.
	f.shell.destroy(old.Root, old.Host, old.DefView, old.IconList, old.Insertion)
	f.shell.created.Add(1)
	_, _, list, worker := f.shell.explorer()

	f.layer.supervise()
	waitFor(t, "re-attach", func() bool { return f.layer.Status().Chain.IconList == list })
	waitFor(t, "re-parent", func() bool { return f.shell.Parent(f.surface) == worker })
	if n := len(f.rec.of(events.TypeTopologyChanged)); n != 2 {
		t.Fatalf("topology events = %d, want 2", n)
	}
}

func TestSupervisorDetectsNewShellProcess(t *testing.T) {
	f := newFixture(t, testConfig())
	if err := f.layer.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	f.layer.supervise()
	time.Sleep(20 * time.Millisecond)
	if n := len(f.rec.of(events.TypeTopologyChanged)); n != 1 {
		t.Fatalf("an unchanged shell must not trigger recovery, got %d topology events", n)
	}

	f.shell.created.Add(1)
	f.layer.supervise()
	waitFor(t, "re-attach", func() bool { return len(f.rec.of(events.TypeTopologyChanged)) == 2 })
}

func TestDisplayChangeResizesSurface(t *testing.T) {
	f := newFixture(t, testConfig())
	if err := f.layer.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	single := geom.RectXYWH(0, 0, 3840, 2160)
	f.shell.setMonitors(monitor.Set{{Index: 0, Bounds: single, Primary: true}})
	f.layer.signals.DisplayChanged()

	waitFor(t, "resize", func() bool { return f.shell.position(f.surface) == single })
}

func TestApplyConfig(t *testing.T) {
	f := newFixture(t, testConfig())
	if err := f.layer.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	next := testConfig()
	next.HideDesktopIcons = true
	next.WatchdogInterval = 30 * time.Minute
	f.layer.ApplyConfig(next)
	if f.shell.visible(f.list) {
		t.Fatal("icons should be hidden after config change")
	}
	if chk, _ := f.health.Get(health.Watchdog); chk.Message != "30m0s" {
		t.Fatalf("watchdog not rescheduled: %+v", chk)
	}

	f.layer.ApplyConfig(testConfig())
	if !f.shell.visible(f.list) {
		t.Fatal("icons should be visible again")
	}
}

func TestIconChangesIgnoredAfterShutdown(t *testing.T) {
	f := newFixture(t, testConfig())
	if err := f.layer.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := f.layer.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}

	hide := testConfig()
	hide.HideDesktopIcons = true
	f.layer.ApplyConfig(hide)
	if err := f.layer.SetIconsVisible(false); !errors.Is(err, ErrShutdown) {
		t.Fatalf("SetIconsVisible after shutdown = %v, want ErrShutdown", err)
	}
	if !f.shell.visible(f.list) {
		t.Fatal("icons hidden after shutdown")
	}
	if _, err := os.Stat(f.path); !os.IsNotExist(err) {
		t.Fatal("recovery file written after shutdown")
	}
}

func TestConfigHideRacingShutdownLeavesIconsVisible(t *testing.T) {
	for i := 0; i < 25; i++ {
		f := newFixture(t, testConfig())
		if err := f.layer.Start(context.Background()); err != nil {
			t.Fatal(err)
		}
		hide := testConfig()
		hide.HideDesktopIcons = true

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			f.layer.ApplyConfig(hide)
		}()
		go func() {
			defer wg.Done()
			_ = f.layer.Shutdown(context.Background())
		}()
		wg.Wait()

		if !f.shell.visible(f.list) || !f.layer.Status().IconsVisible {
			t.Fatalf("run %d: icons left hidden after shutdown", i)
		}
		got := f.rec.of(events.TypeIconsVisibility)
		if n := len(got); n > 0 && got[n-1] != events.IconsVisibilityChanged(true) {
			t.Fatalf("run %d: last icon event = %v", i, got[n-1])
		}
	}
}

func TestDetachOnShutdown(t *testing.T) {
	f := newFixture(t, testConfig(), WithDetachOnShutdown(true))
	if err := f.layer.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := f.layer.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if p := f.shell.Parent(f.surface); p != 0 {
		t.Fatalf("surface still parented under %s", p)
	}
	if got := f.shell.position(f.surface); got != geom.RectXYWH(0, 0, 1920, 1080) {
		t.Fatalf("detached surface rect = %+v, want primary monitor", got)
	}
}

func TestDiagnosticsCounted(t *testing.T) {
	f := newFixture(t, testConfig())
	for i := 0; i < 3; i++ {
		f.layer.logDiagnostic(diagnostic{fault: router.FaultStaleChain})
	}
	f.layer.logDiagnostic(diagnostic{panic: "boom"})
	f.layer.logDiagnostic(diagnostic{fault: router.Fault(200)})
	if got := f.layer.faults[router.FaultStaleChain]; got != 3 {
		t.Fatalf("stale chain faults = %d", got)
	}
}

func TestFindSurface(t *testing.T) {
	f := newFixture(t, testConfig())
	h, err := FindSurface(f.shell, "", "MyWallpaper")
	if err != nil || h != f.surface {
		t.Fatalf("top-level lookup = %s, %v", h, err)
	}

	if err := f.layer.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	h, err = FindSurface(f.shell, "", "MyWallpaper")
	if err != nil || h != f.surface {
		t.Fatalf("lookup under the shell = %s, %v", h, err)
	}

	if _, err := FindSurface(f.shell, "", "Nope"); !errors.Is(err, ErrNoSurface) {
		t.Fatalf("missing surface err = %v", err)
	}
}

func TestProcessIdentity(t *testing.T) {
	id, err := ProcessIdentity(uint32(os.Getpid()))
	if err != nil {
		t.Fatal(err)
	}
	again, err := ProcessIdentity(uint32(os.Getpid()))
	if err != nil {
		t.Fatal(err)
	}
	if !id.Same(again) || id.Created == 0 {
		t.Fatalf("identity unstable: %+v vs %+v", id, again)
	}
	if _, err := ProcessIdentity(0); err == nil {
		t.Fatal("pid 0 should fail")
	}
}
