//go:build !windows

package main

// onConsoleClose is a no-op off Windows; SIGTERM covers session end.
func onConsoleClose(func()) {}
