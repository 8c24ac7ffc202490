package hook

import (
	"errors"
	"testing"

	"github.com/mywallpaper/desktop/internal/geom"
	"github.com/mywallpaper/desktop/internal/hittest"
	"github.com/mywallpaper/desktop/internal/input"
	"github.com/mywallpaper/desktop/internal/shell"
)

// scriptedClassifier returns results in order and counts calls.
type scriptedClassifier struct {
	results []hittest.Result
	calls   int
	under   shell.Handle
}

func (c *scriptedClassifier) Classify(_ geom.Point, under shell.Handle) hittest.Result {
	r := c.results[c.calls%len(c.results)]
	c.calls++
	c.under = under
	return r
}

type routed struct {
	state input.State
	ev    input.Event
}

type recordingRouter struct {
	got    []routed
	leaves int
}

func (r *recordingRouter) Route(s input.State, ev input.Event) { r.got = append(r.got, routed{s, ev}) }
func (r *recordingRouter) Leave()                              { r.leaves++ }

// desktopWindow is the window regionDesktop reports under desktop points.
const desktopWindow = shell.Handle(0x44)

// regionDesktop contains points with X < 10000.
type regionDesktop struct{}

func (regionDesktop) At(p geom.Point) (shell.Handle, bool) {
	if p.X < 10000 {
		return desktopWindow, true
	}
	return 0x99, false
}

var testMetrics = input.Metrics{
	DoubleClickTime: 500,
	DoubleClickSize: geom.Point{X: 4, Y: 4},
	DragSize:        geom.Point{X: 4, Y: 4},
}

func pt(x, y int32) geom.Point { return geom.Point{X: x, Y: y} }

func down(b input.Button, p geom.Point, t uint32) input.Event {
	return input.Event{Kind: input.KindDown, Button: b, Pt: p, Time: t}
}

func up(b input.Button, p geom.Point, t uint32) input.Event {
	return input.Event{Kind: input.KindUp, Button: b, Pt: p, Time: t}
}

func move(p geom.Point) input.Event {
	return input.Event{Kind: input.KindMove, Pt: p}
}

func TestGestureStateDecidedOnceAtButtonDown(t *testing.T) {
	for _, first := range []hittest.Result{hittest.Icon, hittest.Background} {
		// Later classifications flip; they must never be consulted.
		cls := &scriptedClassifier{results: []hittest.Result{first, 1 - first, first, 1 - first}}
		r := &recordingRouter{}
		e := NewEngine(cls, r, regionDesktop{}, testMetrics, true)

		want := input.StateWeb
		if first == hittest.Icon {
			want = input.StateNative
		}

		e.Handle(down(input.ButtonLeft, pt(100, 100), 0))
		for i := int32(0); i < 20; i++ {
			e.Handle(move(pt(100+i*7, 100+i*3)))
		}
		e.Handle(up(input.ButtonLeft, pt(240, 160), 300))

		if cls.calls != 1 {
			t.Fatalf("%v: classifier called %d times, want 1", first, cls.calls)
		}
		if len(r.got) != 22 {
			t.Fatalf("%v: routed %d events, want 22", first, len(r.got))
		}
		for i, g := range r.got {
			if g.state != want {
				t.Fatalf("%v: event %d (%v) routed as %v, want %v", first, i, g.ev.Kind, g.state, want)
			}
		}
		if e.State() != input.StateIdle {
			t.Fatalf("state after release = %v", e.State())
		}
	}
}

func TestEngineSwallowsButtonsButNeverMoves(t *testing.T) {
	e := NewEngine(&scriptedClassifier{results: []hittest.Result{hittest.Background}}, &recordingRouter{}, regionDesktop{}, testMetrics, true)

	if !e.Handle(down(input.ButtonLeft, pt(1, 1), 0)) {
		t.Fatal("down over the desktop should be swallowed")
	}
	if e.Handle(move(pt(50, 50))) {
		t.Fatal("moves must pass through")
	}
	if !e.Handle(up(input.ButtonLeft, pt(50, 50), 10)) {
		t.Fatal("up ending a desktop gesture should be swallowed")
	}
	if e.Handle(down(input.ButtonLeft, pt(20000, 1), 20)) {
		t.Fatal("down outside the desktop must pass through")
	}
	if e.Handle(up(input.ButtonLeft, pt(20000, 1), 30)) {
		t.Fatal("up of a foreign gesture must pass through")
	}
	if s := e.Stats(); s.Swallowed != 2 || s.Events != 5 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestGestureStartedOutsideStaysOutside(t *testing.T) {
	cls := &scriptedClassifier{results: []hittest.Result{hittest.Icon}}
	r := &recordingRouter{}
	e := NewEngine(cls, r, regionDesktop{}, testMetrics, true)

	e.Handle(down(input.ButtonLeft, pt(20000, 5), 0))
	e.Handle(move(pt(5, 5)))
	e.Handle(up(input.ButtonLeft, pt(5, 5), 10))

	if cls.calls != 0 {
		t.Fatal("classifier consulted for a gesture that started on an app window")
	}
	for _, g := range r.got {
		if g.ev.Kind != input.KindMove || g.state != input.StateIdle {
			t.Fatalf("unexpected routing %+v", g)
		}
	}
}

func TestDoubleClickReachesRouter(t *testing.T) {
	tests := []struct {
		name   string
		dt     uint32
		second geom.Point
		want   bool
	}{
		{"within thresholds", 200, pt(101, 99), true},
		{"too slow", 700, pt(100, 100), false},
		{"too far", 200, pt(110, 100), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recordingRouter{}
			e := NewEngine(&scriptedClassifier{results: []hittest.Result{hittest.Icon}}, r, regionDesktop{}, testMetrics, true)

			e.Handle(down(input.ButtonLeft, pt(100, 100), 1000))
			e.Handle(up(input.ButtonLeft, pt(100, 100), 1050))
			e.Handle(down(input.ButtonLeft, tt.second, 1000+tt.dt))
			e.Handle(up(input.ButtonLeft, tt.second, 1000+tt.dt+50))

			var downs []bool
			for _, g := range r.got {
				if g.ev.Kind == input.KindDown {
					downs = append(downs, g.ev.Double)
				}
			}
			if len(downs) != 2 || downs[0] || downs[1] != tt.want {
				t.Fatalf("down double flags = %v, want [false %v]", downs, tt.want)
			}
		})
	}
}

func TestDragFlagOnMovesAndRelease(t *testing.T) {
	r := &recordingRouter{}
	e := NewEngine(&scriptedClassifier{results: []hittest.Result{hittest.Background}}, r, regionDesktop{}, testMetrics, true)

	e.Handle(down(input.ButtonLeft, pt(0, 0), 0))
	e.Handle(move(pt(1, 1)))
	e.Handle(move(pt(30, 0)))
	e.Handle(up(input.ButtonLeft, pt(30, 0), 100))

	if r.got[1].ev.Drag {
		t.Fatal("move inside drag threshold flagged as drag")
	}
	if !r.got[2].ev.Drag || !r.got[2].ev.Pressed.Has(input.ButtonLeft) {
		t.Fatalf("drag move = %+v", r.got[2].ev)
	}
	if !r.got[3].ev.Drag {
		t.Fatal("release of a drag should carry the drag flag")
	}
}

func TestChordDuringDragKeepsDrag(t *testing.T) {
	r := &recordingRouter{}
	e := NewEngine(&scriptedClassifier{results: []hittest.Result{hittest.Background}}, r, regionDesktop{}, testMetrics, true)

	e.Handle(down(input.ButtonLeft, pt(0, 0), 0))
	e.Handle(move(pt(30, 0)))
	e.Handle(down(input.ButtonRight, pt(30, 0), 50))
	e.Handle(up(input.ButtonRight, pt(30, 0), 60))
	e.Handle(move(pt(60, 0)))
	e.Handle(up(input.ButtonLeft, pt(60, 0), 100))

	if len(r.got) != 6 {
		t.Fatalf("routed %d events, want 6", len(r.got))
	}
	for i, g := range r.got {
		if g.state != input.StateWeb {
			t.Fatalf("event %d routed as %v", i, g.state)
		}
	}
	if r.got[2].ev.Double {
		t.Fatal("chord press reported as double click")
	}
	if !r.got[4].ev.Drag {
		t.Fatal("move after the chord lost its drag flag")
	}
	if !r.got[5].ev.Drag {
		t.Fatal("left release after the chord lost its drag flag")
	}
	if e.State() != input.StateIdle {
		t.Fatalf("state = %v after release, want idle", e.State())
	}
}

func TestClassifierGetsWindowFoundByDesktop(t *testing.T) {
	cls := &scriptedClassifier{results: []hittest.Result{hittest.Icon}}
	e := NewEngine(cls, &recordingRouter{}, regionDesktop{}, testMetrics, true)
	e.Handle(down(input.ButtonLeft, pt(5, 5), 0))
	if cls.calls != 1 || cls.under != desktopWindow {
		t.Fatalf("classifier calls=%d under=%s, want 1 and %s", cls.calls, cls.under, desktopWindow)
	}
}

func TestDisabledEnginePassesEverythingThrough(t *testing.T) {
	r := &recordingRouter{}
	e := NewEngine(&scriptedClassifier{results: []hittest.Result{hittest.Background}}, r, regionDesktop{}, testMetrics, true)

	e.Handle(down(input.ButtonLeft, pt(0, 0), 0))
	e.SetEnabled(false)
	if e.Handle(move(pt(30, 0))) || e.Handle(up(input.ButtonLeft, pt(30, 0), 50)) {
		t.Fatal("disabled engine dropped an event")
	}
	if e.Handle(down(input.ButtonRight, pt(5, 5), 100)) {
		t.Fatal("disabled engine dropped a press")
	}
	if e.State() != input.StateIdle {
		t.Fatalf("state = %v, want idle", e.State())
	}
	if len(r.got) != 1 || r.leaves != 1 {
		t.Fatalf("routed %d events and %d leaves while disabled, want 1 and 1", len(r.got), r.leaves)
	}

	e.SetEnabled(true)
	if !e.Handle(down(input.ButtonLeft, pt(0, 0), 200)) {
		t.Fatal("re-enabled engine should swallow wallpaper presses")
	}
}

func TestHoverAndLeave(t *testing.T) {
	r := &recordingRouter{}
	e := NewEngine(&scriptedClassifier{results: []hittest.Result{hittest.Background}}, r, regionDesktop{}, testMetrics, true)

	e.Handle(move(pt(10, 10)))
	e.Handle(move(pt(20, 10)))
	e.Handle(move(pt(20000, 10)))
	e.Handle(move(pt(20001, 10)))

	if len(r.got) != 2 || r.got[0].state != input.StateIdle {
		t.Fatalf("hover routing = %+v", r.got)
	}
	if r.leaves != 1 {
		t.Fatalf("leaves = %d, want 1", r.leaves)
	}
}

func TestConsumeOffLeavesIconsToTheShell(t *testing.T) {
	r := &recordingRouter{}
	cls := &scriptedClassifier{results: []hittest.Result{hittest.Icon, hittest.Background}}
	e := NewEngine(cls, r, regionDesktop{}, testMetrics, false)

	if e.Handle(down(input.ButtonLeft, pt(5, 5), 0)) {
		t.Fatal("nothing is swallowed with consume off")
	}
	e.Handle(up(input.ButtonLeft, pt(5, 5), 10))
	if len(r.got) != 0 {
		t.Fatalf("icon gesture routed with consume off: %+v", r.got)
	}

	e.Handle(down(input.ButtonLeft, pt(5, 5), 2000))
	e.Handle(up(input.ButtonLeft, pt(5, 5), 2010))
	if len(r.got) != 2 || r.got[0].state != input.StateWeb {
		t.Fatalf("wallpaper gesture routing = %+v", r.got)
	}
}

func TestWheelOverDesktop(t *testing.T) {
	r := &recordingRouter{}
	e := NewEngine(&scriptedClassifier{results: []hittest.Result{hittest.Icon}}, r, regionDesktop{}, testMetrics, true)

	if !e.Handle(input.Event{Kind: input.KindWheel, Pt: pt(1, 1), Delta: 120}) {
		t.Fatal("wheel over desktop should be swallowed")
	}
	if e.Handle(input.Event{Kind: input.KindWheel, Pt: pt(20000, 1), Delta: 120}) {
		t.Fatal("wheel over an app must pass through")
	}
	if len(r.got) != 1 || r.got[0].state != input.StateIdle || r.got[0].ev.Delta != 120 {
		t.Fatalf("wheel routing = %+v", r.got)
	}
}

type panickyRouter struct{}

func (panickyRouter) Route(input.State, input.Event) { panic(errors.New("boom")) }
func (panickyRouter) Leave()                         {}

func TestGuardRecoversAndPassesThrough(t *testing.T) {
	e := NewEngine(&scriptedClassifier{results: []hittest.Result{hittest.Background}}, panickyRouter{}, regionDesktop{}, testMetrics, true)

	var recovered any
	if e.guard(down(input.ButtonLeft, pt(1, 1), 0), func(v any) { recovered = v }) {
		t.Fatal("a panicking event must pass through")
	}
	if recovered == nil || e.Stats().Panics != 1 {
		t.Fatalf("recovered = %v, stats = %+v", recovered, e.Stats())
	}
	if e.machine.Active() {
		t.Fatal("gesture state should be reset after a panic")
	}
}

func TestHandleDoesNotAllocate(t *testing.T) {
	r := &recordingRouter{got: make([]routed, 0, 4096)}
	e := NewEngine(&scriptedClassifier{results: []hittest.Result{hittest.Icon}}, r, regionDesktop{}, testMetrics, true)
	var tick uint32
	allocs := testing.AllocsPerRun(200, func() {
		tick += 1000
		e.Handle(down(input.ButtonLeft, pt(3, 3), tick))
		e.Handle(move(pt(9, 9)))
		e.Handle(up(input.ButtonLeft, pt(9, 9), tick+5))
	})
	if allocs != 0 {
		t.Fatalf("Handle allocated %.1f times per gesture", allocs)
	}
}

func TestSignalsCollapse(t *testing.T) {
	s := NewSignals()
	s.DisplayChanged()
	s.DisplayChanged()
	s.ShellRestarted()
	if len(s.Display) != 1 || len(s.Shell) != 1 || len(s.Stale) != 0 {
		t.Fatalf("pending = %d/%d/%d", len(s.Display), len(s.Shell), len(s.Stale))
	}
}
