//go:build !windows

package watchdog

// System never reports a foreground window off Windows.
type System struct{}

func (System) Foreground() (Window, bool) { return Window{}, false }
