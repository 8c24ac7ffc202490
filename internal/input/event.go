// Package input holds the mouse gesture model shared by the hook engine and
// the click router: event values, the per-gesture routing state machine and
// double-click/drag tracking. Nothing here touches the OS.
package input

import "github.com/mywallpaper/desktop/internal/geom"

// Kind is the type of a mouse event.
type Kind uint8

const (
	KindMove Kind = iota
	KindDown
	KindUp
	KindWheel
	KindHWheel
)

func (k Kind) String() string {
	switch k {
	case KindMove:
		return "move"
	case KindDown:
		return "down"
	case KindUp:
		return "up"
	case KindWheel:
		return "wheel"
	case KindHWheel:
		return "hwheel"
	default:
		return "unknown"
	}
}

// Button identifies a mouse button.
type Button uint8

const (
	ButtonNone Button = iota
	ButtonLeft
	ButtonRight
	ButtonMiddle
)

func (b Button) String() string {
	switch b {
	case ButtonLeft:
		return "left"
	case ButtonRight:
		return "right"
	case ButtonMiddle:
		return "middle"
	default:
		return "none"
	}
}

// Buttons is a set of pressed buttons.
type Buttons uint8

// With returns the set including b.
func (s Buttons) With(b Button) Buttons { return s | 1<<b }

// Without returns the set excluding b.
func (s Buttons) Without(b Button) Buttons { return s &^ (1 << b) }

// Has reports whether b is in the set.
func (s Buttons) Has(b Button) bool { return s&(1<<b) != 0 }

// Event is one low-level mouse event. It is a plain value so it can be
// passed through queues without allocation.
type Event struct {
	Kind   Kind
	Button Button
	// Pt is in virtual-screen coordinates.
	Pt geom.Point
	// Time is the OS tick count in milliseconds; it wraps.
	Time uint32
	// Delta is the wheel rotation for wheel events.
	Delta int16
	// Pressed is the button set after this event was applied.
	Pressed Buttons
	// Double marks a down event that completes a double click.
	Double bool
	// Drag marks moves and the final up of a gesture that passed the drag
	// threshold.
	Drag bool
}
