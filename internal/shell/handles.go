package shell

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Handle is an opaque window handle. The desktop layer never owns the
// lifetime of the windows it names.
type Handle uintptr

func (h Handle) String() string { return fmt.Sprintf("0x%X", uintptr(h)) }

// LogValue renders handles in hex in structured logs.
func (h Handle) LogValue() slog.Value { return slog.StringValue(h.String()) }

// Variant identifies which desktop window layout explorer is using.
type Variant uint8

const (
	VariantUnknown Variant = iota
	// VariantLegacy: 0x052C splits the desktop into a WorkerW holding
	// SHELLDLL_DefView and an empty WorkerW behind it.
	VariantLegacy
	// VariantRaised: Progman itself hosts SHELLDLL_DefView and a WorkerW
	// child, as introduced by the 24H2 shell.
	VariantRaised
)

func (v Variant) String() string {
	switch v {
	case VariantLegacy:
		return "legacy"
	case VariantRaised:
		return "raised"
	default:
		return "unknown"
	}
}

// MarshalText lets Variant appear by name in JSON and YAML.
func (v Variant) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// Handles is the resolved shell chain. A Handles value is either fully
// resolved or the zero value; partially filled chains are never returned.
type Handles struct {
	Variant Variant `json:"variant" yaml:"variant"`
	// Root is the Progman window.
	Root Handle `json:"root" yaml:"root"`
	// Host is the top-level window that parents DefView.
	Host Handle `json:"host" yaml:"host"`
	// DefView is SHELLDLL_DefView, the icon-list container.
	DefView Handle `json:"def_view" yaml:"def_view"`
	// IconList is the SysListView32 that draws the icons.
	IconList Handle `json:"icon_list" yaml:"icon_list"`
	// Insertion is the window the wallpaper surface is parented under.
	Insertion Handle `json:"insertion" yaml:"insertion"`
}

// Resolved reports whether every handle in the chain is set.
func (h Handles) Resolved() bool {
	return h.Variant != VariantUnknown &&
		h.Root != 0 && h.Host != 0 && h.DefView != 0 &&
		h.IconList != 0 && h.Insertion != 0
}

// IsShell reports whether w is one of the shell chain windows. Used to
// ignore the desktop itself when it holds the foreground.
func (h Handles) IsShell(w Handle) bool {
	if w == 0 {
		return false
	}
	return w == h.Root || w == h.Host || w == h.DefView ||
		w == h.IconList || w == h.Insertion
}

// LogValue groups the chain in one structured attribute.
func (h Handles) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("variant", h.Variant.String()),
		slog.String("root", h.Root.String()),
		slog.String("host", h.Host.String()),
		slog.String("defView", h.DefView.String()),
		slog.String("iconList", h.IconList.String()),
		slog.String("insertion", h.Insertion.String()),
	)
}

// Cache publishes the current chain to other threads. Writers replace the
// whole value; the hook thread reads it without locking or allocating.
type Cache struct {
	p atomic.Pointer[Handles]
}

// Load returns the current chain, or the zero value.
func (c *Cache) Load() Handles {
	if p := c.p.Load(); p != nil {
		return *p
	}
	return Handles{}
}

// Store publishes h.
func (c *Cache) Store(h Handles) { c.p.Store(&h) }

// Clear drops the chain, e.g. when explorer went away.
func (c *Cache) Clear() { c.p.Store(nil) }
