// Package hittest decides whether a screen point is on a desktop icon.
package hittest

import (
	"sync/atomic"

	"github.com/mywallpaper/desktop/internal/geom"
	"github.com/mywallpaper/desktop/internal/shell"
)

// RoleListItem is ROLE_SYSTEM_LISTITEM, the accessibility role of a desktop
// icon inside the icon list view.
const RoleListItem = 0x22

// Result is the outcome of a classification.
type Result uint8

const (
	Background Result = iota
	Icon
)

func (r Result) String() string {
	if r == Icon {
		return "icon"
	}
	return "background"
}

// Probe answers the two OS questions the classifier needs. Implementations
// must not allocate; they run inside the mouse hook callback.
type Probe interface {
	// WindowAt returns the window under p.
	WindowAt(p geom.Point) shell.Handle
	// RoleAt returns the accessibility role of the object under p.
	RoleAt(p geom.Point) (uint32, bool)
}

// Classifier maps points to Icon or Background using the accessibility
// tree of the icon list. It keeps only fixed-size state and is meant to be
// called from one thread.
type Classifier struct {
	probe  Probe
	chain  *shell.Cache
	misses atomic.Uint64
}

// New returns a classifier that reads the icon list from chain.
func New(probe Probe, chain *shell.Cache) *Classifier {
	return &Classifier{probe: probe, chain: chain}
}

// Classify reports whether p is on a desktop icon. Anything that cannot be
// confirmed as an icon is Background. under is the window the caller
// already found at p; 0 makes the probe look it up.
func (c *Classifier) Classify(p geom.Point, under shell.Handle) Result {
	list := c.chain.Load().IconList
	if list == 0 {
		return Background
	}
	if under == 0 {
		under = c.probe.WindowAt(p)
	}
	if under != list {
		return Background
	}
	role, ok := c.probe.RoleAt(p)
	if !ok {
		c.misses.Add(1)
		return Background
	}
	if role == RoleListItem {
		return Icon
	}
	return Background
}

// Misses returns how many accessibility lookups failed.
func (c *Classifier) Misses() uint64 { return c.misses.Load() }
