package input

import "github.com/mywallpaper/desktop/internal/geom"

// Metrics are the OS double-click and drag thresholds.
type Metrics struct {
	// DoubleClickTime is the maximum gap between presses, in ms.
	DoubleClickTime uint32
	// DoubleClickSize is the full width and height of the rectangle,
	// centred on the first press, the second press must land in.
	DoubleClickSize geom.Point
	// DragSize is the full width and height of the rectangle the cursor
	// must leave before a press becomes a drag.
	DragSize geom.Point
}

// DefaultMetrics are the Windows defaults.
var DefaultMetrics = Metrics{
	DoubleClickTime: 500,
	DoubleClickSize: geom.Point{X: 4, Y: 4},
	DragSize:        geom.Point{X: 4, Y: 4},
}

// Tracker reproduces double-click and drag detection for a process that
// observes clicks without receiving them. Not safe for concurrent use.
type Tracker struct {
	m Metrics

	armed      bool
	lastButton Button
	lastPt     geom.Point
	lastTime   uint32

	pressed  Button
	pressPt  geom.Point
	dragging bool
}

// NewTracker returns a tracker using m.
func NewTracker(m Metrics) *Tracker {
	return &Tracker{m: m}
}

// SetMetrics replaces the thresholds, e.g. after a settings change.
func (t *Tracker) SetMetrics(m Metrics) { t.m = m }

// Metrics returns the current thresholds.
func (t *Tracker) Metrics() Metrics { return t.m }

// Press records a button press and reports whether it completes a double
// click with the previous press. A completed double click disarms the
// tracker, so a third press starts over as a single click. A press of
// another button while one is held is a chord: it leaves the held button's
// drag state alone and never pairs.
func (t *Tracker) Press(b Button, pt geom.Point, now uint32) bool {
	if t.pressed != ButtonNone && b != t.pressed {
		t.armed = false
		return false
	}
	double := t.armed && b == t.lastButton &&
		now-t.lastTime <= t.m.DoubleClickTime &&
		within(pt, t.lastPt, t.m.DoubleClickSize)

	if double {
		t.armed = false
	} else {
		t.armed = true
		t.lastButton, t.lastPt, t.lastTime = b, pt, now
	}
	t.pressed, t.pressPt, t.dragging = b, pt, false
	return double
}

// Move updates drag state for a move while a button is held and reports
// whether the gesture is a drag.
func (t *Tracker) Move(pt geom.Point) bool {
	if t.pressed == ButtonNone {
		return false
	}
	if !t.dragging && !within(pt, t.pressPt, t.m.DragSize) {
		t.dragging = true
		// A drag never pairs with the next press.
		t.armed = false
	}
	return t.dragging
}

// Release ends the press of b and reports whether it was a drag. Releasing
// a chorded button reports the held button's drag state and ends nothing.
func (t *Tracker) Release(b Button) bool {
	if b != t.pressed {
		return t.dragging
	}
	dragged := t.dragging
	t.pressed, t.dragging = ButtonNone, false
	return dragged
}

// Reset forgets any held button and the double-click history.
func (t *Tracker) Reset() {
	t.armed, t.pressed, t.dragging = false, ButtonNone, false
}

// Dragging reports whether the held button has passed the drag threshold.
func (t *Tracker) Dragging() bool { return t.dragging }

// within reports whether p lies in the size.X by size.Y rectangle centred
// on c.
func within(p, c geom.Point, size geom.Point) bool {
	dx, dy := abs32(p.X-c.X), abs32(p.Y-c.Y)
	return dx <= size.X/2 && dy <= size.Y/2
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
