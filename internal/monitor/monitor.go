// Package monitor models the set of attached displays in virtual-screen
// coordinates.
package monitor

import (
	"errors"
	"sync/atomic"

	"github.com/mywallpaper/desktop/internal/geom"
)

// ErrNoMonitors is returned when enumeration yields no displays.
var ErrNoMonitors = errors.New("monitor: no monitors found")

// Info describes one display.
type Info struct {
	Index   int       `json:"index" yaml:"index"`
	Bounds  geom.Rect `json:"bounds" yaml:"bounds"`
	Work    geom.Rect `json:"work" yaml:"work"`
	Primary bool      `json:"primary" yaml:"primary"`
}

// Set is an ordered, immutable list of monitors. Build a new Set on display
// change instead of mutating one.
type Set []Info

// Bounds returns the union of all monitor rectangles: the single canvas the
// wallpaper surface spans.
func (s Set) Bounds() geom.Rect {
	var r geom.Rect
	for _, m := range s {
		r = r.Union(m.Bounds)
	}
	return r
}

// Equal reports whether two sets describe the same layout.
func (s Set) Equal(o Set) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// Primary returns the primary monitor, or the first one.
func (s Set) Primary() (Info, bool) {
	for _, m := range s {
		if m.Primary {
			return m, true
		}
	}
	if len(s) > 0 {
		return s[0], true
	}
	return Info{}, false
}

// Cache holds the current Set for readers on other threads. A single writer
// (display-change handling) replaces it wholesale.
type Cache struct {
	cur atomic.Pointer[Set]
}

// Load returns the cached set (nil before the first Store).
func (c *Cache) Load() Set {
	if p := c.cur.Load(); p != nil {
		return *p
	}
	return nil
}

// Store replaces the cached set and reports whether the layout changed.
func (c *Cache) Store(s Set) bool {
	prev := c.cur.Swap(&s)
	return prev == nil || !prev.Equal(s)
}
