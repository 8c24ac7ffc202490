//go:build !windows

package hittest

import (
	"errors"

	"github.com/mywallpaper/desktop/internal/geom"
	"github.com/mywallpaper/desktop/internal/shell"
)

// AccessibleProbe finds nothing off Windows.
type AccessibleProbe struct{}

// NewAccessibleProbe reports that accessibility hit testing is unavailable.
func NewAccessibleProbe() (*AccessibleProbe, error) {
	return nil, errors.New("hittest: accessibility probe requires Windows")
}

func (*AccessibleProbe) WindowAt(geom.Point) shell.Handle { return 0 }
func (*AccessibleProbe) RoleAt(geom.Point) (uint32, bool) { return 0, false }

func InitThread() error { return nil }
func UninitThread()     {}
