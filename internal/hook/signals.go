package hook

// Signals carries OS notifications seen by the hook thread's window to the
// rest of the process. Each channel holds at most one pending signal, so a
// burst of notifications collapses into one and the hook thread never
// blocks on a slow reader.
type Signals struct {
	// Display fires on WM_DISPLAYCHANGE.
	Display chan struct{}
	// Shell fires when explorer broadcasts TaskbarCreated after a restart.
	Shell chan struct{}
	// Stale fires when a routed event found the cached shell chain dead.
	Stale chan struct{}
}

// NewSignals returns empty signal channels.
func NewSignals() *Signals {
	return &Signals{
		Display: make(chan struct{}, 1),
		Shell:   make(chan struct{}, 1),
		Stale:   make(chan struct{}, 1),
	}
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// DisplayChanged raises the display signal.
func (s *Signals) DisplayChanged() { notify(s.Display) }

// ShellRestarted raises the shell signal.
func (s *Signals) ShellRestarted() { notify(s.Shell) }

// ChainStale raises the stale-chain signal.
func (s *Signals) ChainStale() { notify(s.Stale) }
