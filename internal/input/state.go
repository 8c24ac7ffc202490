package input

// State is the routing decision carried across one gesture.
type State uint8

const (
	// StateIdle: no gesture in progress.
	StateIdle State = iota
	// StateNative: the gesture started on a desktop icon.
	StateNative
	// StateWeb: the gesture started on wallpaper content.
	StateWeb
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateNative:
		return "native"
	case StateWeb:
		return "web"
	default:
		return "unknown"
	}
}

// Machine is the gesture state machine. Only a button-down from StateIdle
// chooses a state; moves and further buttons inherit it; releasing the
// button that opened the gesture returns to StateIdle. It is owned by the
// hook thread and is not safe for concurrent use.
type Machine struct {
	state  State
	opener Button
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Active reports whether a gesture is in progress.
func (m *Machine) Active() bool { return m.state != StateIdle }

// Begin opens a gesture with button b. classify is invoked only when no
// gesture is active; inside a gesture the current state is returned
// unchanged.
func (m *Machine) Begin(b Button, classify func() State) State {
	if m.state != StateIdle {
		return m.state
	}
	s := classify()
	if s == StateIdle {
		return StateIdle
	}
	m.state, m.opener = s, b
	return s
}

// End applies a release of b. It returns the state that governs this
// release and whether the gesture is now over.
func (m *Machine) End(b Button) (State, bool) {
	s := m.state
	if s == StateIdle {
		return StateIdle, false
	}
	if b != m.opener {
		return s, false
	}
	m.state, m.opener = StateIdle, ButtonNone
	return s, true
}

// Reset abandons any gesture in progress.
func (m *Machine) Reset() {
	m.state, m.opener = StateIdle, ButtonNone
}
