//go:build !windows

package monitor

// Enumerate is not implemented off Windows; the desktop layer only targets
// the Windows shell.
func Enumerate() (Set, error) {
	return nil, ErrNoMonitors
}
