//go:build !windows

package layer

import "errors"

// SystemDeps fails off Windows; the desktop layer needs explorer.
func SystemDeps() (Deps, error) {
	return Deps{}, errors.New("layer: the desktop layer requires Windows")
}
