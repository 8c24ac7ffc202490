//go:build windows

package main

import (
	"sync/atomic"
	"syscall"

	"github.com/mywallpaper/desktop/internal/win32"
)

const (
	ctrlCloseEvent    = 2
	ctrlLogoffEvent   = 5
	ctrlShutdownEvent = 6
)

var onClose atomic.Pointer[func()]

var consoleCallback = syscall.NewCallback(func(ctrlType uintptr) uintptr {
	switch ctrlType {
	case ctrlCloseEvent, ctrlLogoffEvent, ctrlShutdownEvent:
		if fn := onClose.Load(); fn != nil {
			(*fn)()
		}
		return 1
	}
	// Ctrl+C and Ctrl+Break fall through to the runtime and arrive as
	// signals.
	return 0
})

// onConsoleClose runs fn synchronously when the console window closes or
// the session ends, before Windows terminates the process.
func onConsoleClose(fn func()) {
	onClose.Store(&fn)
	if err := win32.SetConsoleCtrlHandler(consoleCallback); err != nil {
		log.Warn("console close handler not installed", "error", err)
	}
}
