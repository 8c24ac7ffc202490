// Package events carries the notifications the desktop layer exposes to the
// UI layer.
package events

import (
	"sync"
	"sync/atomic"

	"github.com/mywallpaper/desktop/internal/logging"
)

var log = logging.L("events")

// Type names match the event names the UI layer listens for.
type Type string

const (
	TypeWallpaperVisibility Type = "wallpaper-visibility"
	TypeMonitorOcclusion    Type = "monitor-occlusion"
	TypeIconsVisibility     Type = "icons-visibility-changed"
	TypeHookFailed          Type = "hook-failed"
	TypeTopologyChanged     Type = "topology-changed"
	TypeLayerMode           Type = "layer-mode-changed"
)

// Event is serialized as {"type": ..., "data": ...}.
type Event struct {
	Type Type `json:"type" yaml:"type"`
	Data any  `json:"data,omitempty" yaml:"data,omitempty"`
}

// Visibility is the aggregate wallpaper state: visible unless every monitor
// is covered by a fullscreen window.
type Visibility struct {
	Visible bool `json:"visible" yaml:"visible"`
}

// MonitorOcclusion is an edge for one monitor, by index in the current
// monitor set.
type MonitorOcclusion struct {
	Monitor  int  `json:"monitor" yaml:"monitor"`
	Occluded bool `json:"occluded" yaml:"occluded"`
}

// IconsVisibility acknowledges a completed icon show or hide.
type IconsVisibility struct {
	Visible bool `json:"visible" yaml:"visible"`
}

// HookFailed reports that the mouse hook could not be installed.
type HookFailed struct {
	Error string `json:"error" yaml:"error"`
}

// TopologyChanged follows every successful resolve and inject.
type TopologyChanged struct {
	Variant string `json:"variant" yaml:"variant"`
	Root    string `json:"root" yaml:"root"`
	Surface string `json:"surface" yaml:"surface"`
}

// LayerMode carries the new mode, "desktop" or "interactive".
type LayerMode struct {
	Mode string `json:"mode" yaml:"mode"`
}

// WallpaperVisibility builds an aggregate visibility edge.
func WallpaperVisibility(visible bool) Event {
	return Event{Type: TypeWallpaperVisibility, Data: Visibility{Visible: visible}}
}

// MonitorOccluded builds a per-monitor occlusion edge.
func MonitorOccluded(monitor int, occluded bool) Event {
	return Event{Type: TypeMonitorOcclusion, Data: MonitorOcclusion{Monitor: monitor, Occluded: occluded}}
}

// IconsVisibilityChanged builds the icon visibility acknowledgment.
func IconsVisibilityChanged(visible bool) Event {
	return Event{Type: TypeIconsVisibility, Data: IconsVisibility{Visible: visible}}
}

// HookInstallFailed builds the hook failure notification.
func HookInstallFailed(err error) Event {
	return Event{Type: TypeHookFailed, Data: HookFailed{Error: err.Error()}}
}

// Topology builds a topology-changed event.
func Topology(variant, root, surface string) Event {
	return Event{Type: TypeTopologyChanged, Data: TopologyChanged{Variant: variant, Root: root, Surface: surface}}
}

// LayerModeChanged builds a layer-mode-changed event.
func LayerModeChanged(mode string) Event {
	return Event{Type: TypeLayerMode, Data: LayerMode{Mode: mode}}
}

// Publisher is implemented by Bus.
type Publisher interface {
	Publish(Event)
}

type subscriber struct {
	ch chan Event
}

// Bus fans events out to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses the event.
type Bus struct {
	mu      sync.RWMutex
	subs    map[*subscriber]struct{}
	closed  bool
	dropped atomic.Uint64
}

// NewBus returns an open bus with no subscribers.
func NewBus() *Bus {
	return &Bus{subs: make(map[*subscriber]struct{})}
}

// Subscribe returns a channel receiving events published from now on and a
// function that unsubscribes and closes it.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	s := &subscriber{ch: make(chan Event, buffer)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(s.ch)
		return s.ch, func() {}
	}
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if _, ok := b.subs[s]; ok {
				delete(b.subs, s)
				close(s.ch)
			}
			b.mu.Unlock()
		})
	}
}

// Publish delivers ev to every subscriber with room for it.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for s := range b.subs {
		select {
		case s.ch <- ev:
		default:
			n := b.dropped.Add(1)
			log.Warn("subscriber full, event dropped", "type", ev.Type, "dropped", n)
		}
	}
}

// Dropped is the number of deliveries skipped because a subscriber was full.
func (b *Bus) Dropped() uint64 { return b.dropped.Load() }

// Close closes every subscriber channel. Later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for s := range b.subs {
		close(s.ch)
		delete(b.subs, s)
	}
}
