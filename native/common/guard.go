package common

import "errors"

// ErrModulePaused is returned when an operations-level pause halts a module's
// state-mutating entrypoints. It is distinct from the vault's own contract
// pause flag, which the owner toggles on-chain.
var ErrModulePaused = errors.New("module paused")

// PauseView reports whether a named module is halted.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects the call when the module is paused. A nil view or empty module
// name always passes.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// Switchboard is a settable PauseView for daemon wiring and tests.
type Switchboard struct {
	paused map[string]bool
}

// NewSwitchboard returns an empty switchboard with every module running.
func NewSwitchboard() *Switchboard {
	return &Switchboard{paused: make(map[string]bool)}
}

// SetPaused toggles the named module.
func (s *Switchboard) SetPaused(module string, paused bool) {
	if s == nil {
		return
	}
	s.paused[module] = paused
}

// IsPaused implements PauseView.
func (s *Switchboard) IsPaused(module string) bool {
	if s == nil {
		return false
	}
	return s.paused[module]
}
