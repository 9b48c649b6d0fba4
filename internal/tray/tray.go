// Package tray provides a system tray menu for the ring sizing service.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle func(enabled bool)
	onOpen   func()
	onQuit   func()
	enabled  bool
	lastSize string
	mu       sync.RWMutex

	menuToggle   *systray.MenuItem
	menuLastSize *systray.MenuItem
}

// New creates a new Tray. enabled is the initial live guidance state.
func New(enabled bool) *Tray {
	return &Tray{enabled: enabled}
}

// OnToggle sets the callback for the live guidance toggle.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnOpen sets the callback for the "Open Ring Sizer" item.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback called before the tray exits.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray from outside the menu.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Ringfit")
	systray.SetTooltip("Ringfit ring sizer")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle live guidance")
	systray.AddSeparator()
	t.menuLastSize = systray.AddMenuItem(t.lastSizeTitleLocked(), "Last measured ring size")
	t.menuLastSize.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open Ring Sizer...", "Open the sizer in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Ringfit")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetLastSize shows the most recent result, for example "8.5 (95%)".
// An empty label resets the item.
func (t *Tray) SetLastSize(label string, confidence int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastSize = ""
	if label != "" {
		t.lastSize = fmt.Sprintf("US %s (%d%%)", label, confidence)
	}
	if t.menuLastSize != nil {
		t.menuLastSize.SetTitle(t.lastSizeTitleLocked())
	}
}

// LastSize returns the text shown for the last result.
func (t *Tray) LastSize() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastSizeTitleLocked()
}

func (t *Tray) lastSizeTitleLocked() string {
	if t.lastSize == "" {
		return "Last: none"
	}
	return "Last: " + t.lastSize
}

// IsEnabled returns the live guidance state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Live guidance on"
	}
	return "○ Live guidance off"
}
