package shell

import "errors"

var (
	// ErrTopologyUnresolved means the shell window chain could not be found.
	// It is never fatal: explorer may be restarting.
	ErrTopologyUnresolved = errors.New("shell: topology unresolved")

	// ErrInjectionFailed means the OS rejected a restyle, reparent or resize
	// of the surface. Callers retry the whole resolve and inject cycle.
	ErrInjectionFailed = errors.New("shell: injection failed")

	// ErrStaleHandle means a cached window handle no longer names a live
	// window.
	ErrStaleHandle = errors.New("shell: stale handle")
)
