package shell

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// IconWindow shows or hides a shell window.
type IconWindow interface {
	Show(h Handle, visible bool) error
}

// IconState is persisted while icons are hidden so the next start can undo
// a hide that a crash left behind.
type IconState struct {
	Hidden   bool      `json:"hidden"`
	IconList Handle    `json:"icon_list"`
	HiddenAt time.Time `json:"hidden_at"`
}

// IconController toggles the desktop icons. The restored flag is the single
// source of truth: only the caller that flips it performs the transition, so
// racing restores (signal handler vs. explicit quit) show the icons once. A
// flip and its OS call happen under mu, so the flag never disagrees with the
// icon list once a transition returns.
type IconController struct {
	win          IconWindow
	handles      func() Handles
	recoveryPath string

	restored atomic.Bool
	mu       sync.Mutex
	onChange func(visible bool)
}

// NewIconController returns a controller that reads the current chain from
// handles on every call. recoveryPath may be empty to disable crash recovery.
func NewIconController(win IconWindow, handles func() Handles, recoveryPath string) *IconController {
	c := &IconController{win: win, handles: handles, recoveryPath: recoveryPath}
	c.restored.Store(true)
	return c
}

// OnChange registers the acknowledgment callback fired after each
// successful visibility transition. Set it before the first SetVisible.
func (c *IconController) OnChange(fn func(visible bool)) {
	c.onChange = fn
}

// Restored reports whether the icons are in their default visible state.
func (c *IconController) Restored() bool {
	return c.restored.Load()
}

// SetVisible hides or shows the desktop icons. Repeated calls in the same
// direction are no-ops apart from re-applying the hide to the current icon
// list, which matters after explorer recreated it.
func (c *IconController) SetVisible(visible bool) error {
	if visible {
		return c.restore()
	}
	return c.hide()
}

// Restore shows the icons if they are hidden. Safe to call from every exit
// path, any number of times, concurrently.
func (c *IconController) Restore() error {
	return c.restore()
}

// ForceShow shows the icon list whatever the flag says and clears any
// recovery file. Used by the restore-icons command, which runs in a fresh
// process that never hid anything itself.
func (c *IconController) ForceShow() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.apply(true); err != nil {
		return err
	}
	c.deleteRecovery()
	if !c.restored.Swap(true) {
		c.notify(true)
	}
	return nil
}

// Reapply pushes the current hidden state onto a freshly resolved chain.
func (c *IconController) Reapply() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.restored.Load() {
		return nil
	}
	return c.apply(false)
}

func (c *IconController) hide() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.restored.CompareAndSwap(true, false) {
		return c.apply(false)
	}
	if err := c.apply(false); err != nil {
		c.restored.Store(true)
		return err
	}
	if err := c.writeRecovery(); err != nil {
		log.Warn("failed to write icon recovery file", "error", err)
	}
	c.notify(false)
	return nil
}

func (c *IconController) restore() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.restored.CompareAndSwap(false, true) {
		return nil
	}
	err := c.apply(true)
	c.deleteRecovery()
	if err != nil {
		// Explorer restarts with icons visible, so a failed show on a dead
		// chain still leaves the desktop in its default state.
		return err
	}
	c.notify(true)
	return nil
}

// apply runs the OS call. Callers hold mu.
func (c *IconController) apply(visible bool) error {
	h := c.handles()
	if h.IconList == 0 {
		return fmt.Errorf("%w: icon list", ErrTopologyUnresolved)
	}
	if err := c.win.Show(h.IconList, visible); err != nil {
		return fmt.Errorf("show icon list %s (visible=%t): %w", h.IconList, visible, err)
	}
	return nil
}

func (c *IconController) notify(visible bool) {
	log.Info("desktop icons visibility changed", "visible", visible)
	if c.onChange != nil {
		c.onChange(visible)
	}
}

// RecoverIfNeeded shows the icons when a recovery file says a previous run
// hid them and never restored. It reports whether a recovery happened.
func (c *IconController) RecoverIfNeeded() bool {
	if c.recoveryPath == "" {
		return false
	}
	data, err := os.ReadFile(c.recoveryPath)
	if err != nil {
		return false
	}

	var state IconState
	if err := json.Unmarshal(data, &state); err != nil {
		log.Warn("invalid icon recovery file, removing", "error", err)
		c.deleteRecovery()
		return false
	}
	if !state.Hidden {
		c.deleteRecovery()
		return false
	}

	log.Info("restoring desktop icons hidden by a previous run", "hiddenAt", state.HiddenAt)
	c.mu.Lock()
	err = c.apply(true)
	c.mu.Unlock()
	if err != nil {
		log.Warn("failed to recover desktop icons", "error", err)
		return false
	}
	c.deleteRecovery()
	return true
}

func (c *IconController) writeRecovery() error {
	if c.recoveryPath == "" {
		return nil
	}
	data, err := json.Marshal(IconState{Hidden: true, IconList: c.handles().IconList, HiddenAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.recoveryPath), 0700); err != nil {
		return err
	}
	return os.WriteFile(c.recoveryPath, data, 0600)
}

func (c *IconController) deleteRecovery() {
	if c.recoveryPath == "" {
		return
	}
	if err := os.Remove(c.recoveryPath); err != nil && !os.IsNotExist(err) {
		log.Warn("failed to remove icon recovery file", "error", err)
	}
}
