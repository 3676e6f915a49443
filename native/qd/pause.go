package qd

import "qdchain/native/common"

// PauseFlags implements common.PauseView over a fixed set of named
// circuit breakers: borrow, swap, and liquidation can each be frozen
// independently by whoever administers the deployed contract, without
// touching the update crank or the SolvencyPool deposit/withdraw paths.
// This generalizes the teacher's per-module pause switch
// (native/common/guard.go) from a single flat namespace to the qd
// engine's own module names.
type PauseFlags struct {
	flags map[string]bool
}

// NewPauseFlags returns an all-unpaused flag set.
func NewPauseFlags() *PauseFlags {
	return &PauseFlags{flags: make(map[string]bool)}
}

func (p *PauseFlags) IsPaused(module string) bool {
	if p == nil {
		return false
	}
	return p.flags[module]
}

// SetPaused freezes or unfreezes module.
func (p *PauseFlags) SetPaused(module string, paused bool) {
	p.flags[module] = paused
}

const (
	ModuleBorrow      = "borrow"
	ModuleSwap        = "swap"
	ModuleLiquidation = "liquidation"
)

func (c *Contract) guard(module string) error {
	if err := common.Guard(c.Pause, module); err != nil {
		return err
	}
	return nil
}
