package qd

import (
	"math/big"

	"qdchain/hostenv"
)

// State is the persistence collaborator the engine reads and writes
// through, mirroring the teacher's engineState interface-injection
// pattern in native/lending/engine.go so the accounting logic in this
// package never touches a concrete storage backend directly.
type State interface {
	Pools() *Pools

	GetPledge(id hostenv.AccountID) (*Pledge, bool)
	PutPledge(p *Pledge)
	DeletePledge(id hostenv.AccountID)
	AllPledgeIDs() []hostenv.AccountID

	Index() *Index

	// UpdateInProgress gates every state-mutating call while the update
	// crank is mid-flight, per spec.md §5.
	UpdateInProgress() bool
	SetUpdateInProgress(bool)

	// LastUpdateNS/SetLastUpdateNS track when the update crank last
	// completed, enforcing the EightHoursNanos cooldown.
	LastUpdateNS() uint64
	SetLastUpdateNS(uint64)

	// SolvencyTarget is the target the update crank calibrates its risk
	// scale against. The crank only reads it; it is set from outside
	// (e.g. from package vote's tally of pledges' Target votes, never
	// invoked automatically by the engine) and is not range-checked here.
	SolvencyTarget() *big.Int
	SetSolvencyTarget(*big.Int)
}

// MemState is an in-memory State implementation for tests and the CLI.
type MemState struct {
	pools            *Pools
	pledges          map[hostenv.AccountID]*Pledge
	index            *Index
	updateInProgress bool
	lastUpdateNS     uint64
	solvencyTarget   *big.Int
}

// NewMemState returns an empty state with the solvency target seeded at
// MinCR, per spec.md §3's initial-condition note.
func NewMemState() *MemState {
	return &MemState{
		pools:          NewPools(),
		pledges:        make(map[hostenv.AccountID]*Pledge),
		index:          NewIndex(),
		solvencyTarget: DefaultTarget(),
	}
}

func (s *MemState) Pools() *Pools { return s.pools }

func (s *MemState) GetPledge(id hostenv.AccountID) (*Pledge, bool) {
	p, ok := s.pledges[id]
	return p, ok
}

func (s *MemState) PutPledge(p *Pledge) {
	s.pledges[p.ID] = p
}

func (s *MemState) DeletePledge(id hostenv.AccountID) {
	delete(s.pledges, id)
}

func (s *MemState) AllPledgeIDs() []hostenv.AccountID {
	out := make([]hostenv.AccountID, 0, len(s.pledges))
	for id := range s.pledges {
		out = append(out, id)
	}
	return out
}

func (s *MemState) Index() *Index { return s.index }

func (s *MemState) UpdateInProgress() bool      { return s.updateInProgress }
func (s *MemState) SetUpdateInProgress(v bool)  { s.updateInProgress = v }
func (s *MemState) LastUpdateNS() uint64        { return s.lastUpdateNS }
func (s *MemState) SetLastUpdateNS(ns uint64)   { s.lastUpdateNS = ns }
func (s *MemState) SolvencyTarget() *big.Int    { return s.solvencyTarget }
func (s *MemState) SetSolvencyTarget(t *big.Int) { s.solvencyTarget = t }
