// Package win32 is the single table of user32/dwmapi/oleacc/kernel32 procs
// used by the desktop layer, plus thin typed wrappers. Wrappers used from the
// low-level mouse hook callback take and return plain values only, so they can
// run on the hook thread without heap allocation.
package win32
