//go:build !windows

package shell

import (
	"errors"

	"github.com/mywallpaper/desktop/internal/geom"
)

var errUnsupported = errors.New("shell: desktop shell is only available on Windows")

// System is a placeholder on platforms without the explorer shell. Lookups
// find nothing and mutations fail.
type System struct{}

func (System) Find(parent, after Handle, class, title string) Handle { return 0 }
func (System) TopLevel(fn func(Handle) bool)                         {}
func (System) ClassOf(h Handle) string                               { return "" }
func (System) ExStyle(h Handle) uint32                               { return 0 }
func (System) Build() uint32                                         { return 0 }
func (System) IsWindow(h Handle) bool                                { return false }
func (System) Parent(h Handle) Handle                                { return 0 }
func (System) Styles(h Handle) (uint32, uint32)                      { return 0, 0 }
func (System) SetStyles(h Handle, style, exStyle uint32) error       { return errUnsupported }
func (System) DisableFrame(h Handle) error                           { return errUnsupported }
func (System) SetParent(h, parent Handle) error                      { return errUnsupported }
func (System) ScreenToClient(parent Handle, p geom.Point) geom.Point { return p }
func (System) SetPos(h, insertAfter Handle, r geom.Rect) error       { return errUnsupported }
func (System) Show(h Handle, visible bool) error                     { return errUnsupported }

func (System) Send(h Handle, msg uint32, wparam, lparam uintptr, timeoutMs uint32) error {
	return errUnsupported
}
