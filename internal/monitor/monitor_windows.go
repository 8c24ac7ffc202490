//go:build windows

package monitor

import (
	"fmt"

	"github.com/mywallpaper/desktop/internal/win32"
)

// Enumerate lists attached displays via EnumDisplayMonitors.
func Enumerate() (Set, error) {
	infos, err := win32.Monitors()
	if err != nil {
		return nil, fmt.Errorf("EnumDisplayMonitors: %w", err)
	}

	set := make(Set, 0, len(infos))
	for i, mi := range infos {
		set = append(set, Info{
			Index:   i,
			Bounds:  mi.RcMonitor,
			Work:    mi.RcWork,
			Primary: mi.DwFlags&win32.MONITORINFOF_PRIMARY != 0,
		})
	}
	if len(set) == 0 {
		return nil, ErrNoMonitors
	}
	return set, nil
}
