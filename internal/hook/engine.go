// Package hook runs the system-wide low-level mouse hook and turns its
// events into routed gestures.
package hook

import (
	"errors"
	"sync/atomic"

	"github.com/mywallpaper/desktop/internal/geom"
	"github.com/mywallpaper/desktop/internal/hittest"
	"github.com/mywallpaper/desktop/internal/input"
	"github.com/mywallpaper/desktop/internal/logging"
	"github.com/mywallpaper/desktop/internal/shell"
)

var log = logging.L("hook")

var (
	// ErrInstallFailed means the low-level mouse hook could not be
	// installed. The wallpaper keeps rendering without click pass-through.
	ErrInstallFailed = errors.New("hook: install failed")
	// ErrAlreadyRunning means another hook instance owns the callback.
	ErrAlreadyRunning = errors.New("hook: already running")
)

// Classifier decides whether a point is on a desktop icon. under is the
// window already found at p, or 0.
type Classifier interface {
	Classify(p geom.Point, under shell.Handle) hittest.Result
}

// Router delivers events for a gesture state.
type Router interface {
	Route(s input.State, ev input.Event)
	Leave()
}

// Desktop returns the window under a point and whether it belongs to the
// desktop (the shell chain or the wallpaper behind it).
type Desktop interface {
	At(p geom.Point) (shell.Handle, bool)
}

// Engine is the per-event decision logic of the hook. Handle runs on the
// hook thread only; the counters and the consume switch may be read and set
// from anywhere.
type Engine struct {
	classifier Classifier
	router     Router
	desktop    Desktop

	machine  input.Machine
	tracker  *input.Tracker
	pressed  input.Buttons
	hovering bool

	consume atomic.Bool
	enabled atomic.Bool

	events     atomic.Uint64
	swallowed  atomic.Uint64
	classified atomic.Uint64
	panics     atomic.Uint64
	state      atomic.Uint32
}

// NewEngine wires an engine. consume controls whether button and wheel
// events over the desktop are swallowed and re-delivered by the router.
func NewEngine(c Classifier, r Router, d Desktop, m input.Metrics, consume bool) *Engine {
	e := &Engine{
		classifier: c,
		router:     r,
		desktop:    d,
		tracker:    input.NewTracker(m),
	}
	e.consume.Store(consume)
	e.enabled.Store(true)
	return e
}

// SetConsume switches input swallowing. Takes effect at the next gesture
// boundary in practice, since a gesture's own events follow its state.
func (e *Engine) SetConsume(v bool) { e.consume.Store(v) }

// SetEnabled turns routing on or off. A disabled engine passes every event
// through and abandons any gesture in progress at the next event.
func (e *Engine) SetEnabled(v bool) { e.enabled.Store(v) }

// SetMetrics replaces the double-click and drag thresholds. Hook thread
// only.
func (e *Engine) SetMetrics(m input.Metrics) { e.tracker.SetMetrics(m) }

// State returns the current gesture state.
func (e *Engine) State() input.State { return input.State(e.state.Load()) }

// Stats is a snapshot of engine counters.
type Stats struct {
	Events     uint64 `json:"events" yaml:"events"`
	Swallowed  uint64 `json:"swallowed" yaml:"swallowed"`
	Classified uint64 `json:"classified" yaml:"classified"`
	Panics     uint64 `json:"panics" yaml:"panics"`
}

// Stats returns the counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Events:     e.events.Load(),
		Swallowed:  e.swallowed.Load(),
		Classified: e.classified.Load(),
		Panics:     e.panics.Load(),
	}
}

// Handle processes one event and reports whether the OS should drop it.
// Moves are never dropped; the cursor would stop.
func (e *Engine) Handle(ev input.Event) bool {
	e.events.Add(1)
	if !e.enabled.Load() {
		e.abandon()
		return false
	}
	var drop bool
	switch ev.Kind {
	case input.KindDown:
		drop = e.down(ev)
	case input.KindUp:
		drop = e.up(ev)
	case input.KindMove:
		e.move(ev)
	case input.KindWheel, input.KindHWheel:
		drop = e.wheel(ev)
	}
	e.state.Store(uint32(e.machine.State()))
	if drop {
		e.swallowed.Add(1)
	}
	return drop
}

func (e *Engine) abandon() {
	if e.machine.Active() {
		e.machine.Reset()
		e.tracker.Reset()
		e.pressed = 0
		e.state.Store(uint32(input.StateIdle))
	}
	if e.hovering {
		e.hovering = false
		e.router.Leave()
	}
}

func (e *Engine) down(ev input.Event) bool {
	var under shell.Handle
	if !e.machine.Active() {
		w, ok := e.desktop.At(ev.Pt)
		if !ok {
			return false
		}
		under = w
	}
	s := e.machine.Begin(ev.Button, func() input.State {
		e.classified.Add(1)
		if e.classifier.Classify(ev.Pt, under) == hittest.Icon {
			return input.StateNative
		}
		return input.StateWeb
	})
	e.pressed = e.pressed.With(ev.Button)
	ev.Pressed = e.pressed
	ev.Double = e.tracker.Press(ev.Button, ev.Pt, ev.Time)
	e.hovering = true
	return e.deliver(s, ev)
}

func (e *Engine) up(ev input.Event) bool {
	e.pressed = e.pressed.Without(ev.Button)
	if !e.machine.Active() {
		return false
	}
	ev.Pressed = e.pressed
	ev.Drag = e.tracker.Release(ev.Button)
	s, _ := e.machine.End(ev.Button)
	return e.deliver(s, ev)
}

func (e *Engine) move(ev input.Event) {
	if e.machine.Active() {
		ev.Pressed = e.pressed
		ev.Drag = e.tracker.Move(ev.Pt)
		e.deliver(e.machine.State(), ev)
		return
	}
	if _, ok := e.desktop.At(ev.Pt); ok {
		e.hovering = true
		e.router.Route(input.StateIdle, ev)
		return
	}
	if e.hovering {
		e.hovering = false
		e.router.Leave()
	}
}

func (e *Engine) wheel(ev input.Event) bool {
	ev.Pressed = e.pressed
	if e.machine.Active() {
		return e.deliver(e.machine.State(), ev)
	}
	if _, ok := e.desktop.At(ev.Pt); !ok {
		return false
	}
	e.router.Route(input.StateIdle, ev)
	return e.consume.Load()
}

// deliver routes ev and reports whether it should be dropped. With
// swallowing off the shell receives icon gestures itself, so only wallpaper
// gestures are routed.
func (e *Engine) deliver(s input.State, ev input.Event) bool {
	consume := e.consume.Load()
	if s == input.StateNative && !consume {
		return false
	}
	e.router.Route(s, ev)
	return consume && s != input.StateIdle
}

// guard runs Handle and converts a panic into a pass-through. The hook
// callback must never unwind into user32.
func (e *Engine) guard(ev input.Event, onPanic func(any)) (drop bool) {
	defer func() {
		if r := recover(); r != nil {
			e.panics.Add(1)
			e.machine.Reset()
			e.pressed = 0
			drop = false
			if onPanic != nil {
				onPanic(r)
			}
		}
	}()
	return e.Handle(ev)
}
