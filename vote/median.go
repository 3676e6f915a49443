// Package vote implements a weighted-median tally for the SolvencyTarget
// governance parameter each pledge votes on via its Target field. Per
// spec.md §6, nothing in the engine's own call paths invokes this
// tally automatically; it is a standalone utility an operator or a
// separate governance process runs to compute the next target before
// writing it with State.SetSolvencyTarget, grounded on the proposal
// vote-tallying shape of native/governance/engine.go.
package vote

import (
	"math/big"
	"sort"
)

// Ballot is one pledge's vote: Value is its Target (scaled by
// mathx.ONE), Weight is the stake behind it (e.g. total debt).
type Ballot struct {
	Value  *big.Int
	Weight *big.Int
}

// WeightedMedian returns the value at which cumulative weight first
// reaches half the total, the standard weighted-median definition.
// Returns nil if ballots is empty or every weight is zero.
func WeightedMedian(ballots []Ballot) *big.Int {
	if len(ballots) == 0 {
		return nil
	}
	sorted := make([]Ballot, len(ballots))
	copy(sorted, ballots)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Value.Cmp(sorted[j].Value) < 0 })

	total := big.NewInt(0)
	for _, b := range sorted {
		total.Add(total, b.Weight)
	}
	if total.Sign() == 0 {
		return nil
	}

	half := new(big.Int).Div(total, big.NewInt(2))
	cum := big.NewInt(0)
	for _, b := range sorted {
		cum.Add(cum, b.Weight)
		if cum.Cmp(half) >= 0 {
			return new(big.Int).Set(b.Value)
		}
	}
	return new(big.Int).Set(sorted[len(sorted)-1].Value)
}
