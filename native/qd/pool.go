package qd

import (
	"math/big"

	"qdchain/core/mathx"
)

// Pools bundles the engine's four ledgers: live (active borrower
// positions), dead (liquidated positions awaiting absorption), gfund (the
// guarantee-fund reserve), and blood (the SolvencyPool). Unlike the other
// three, blood is not split into long/short Pods: spec.md §3 describes it
// as a single cell — credit is aggregate QD deposits, debit is aggregate
// NEAR deposits — and §4.5/§4.7/§4.9 only ever reference it unqualified
// (`blood.debit`, `blood.credit`), never `blood.long`/`blood.short`.
type Pools struct {
	Live  Pool
	Dead  Pool
	GFund Pool
	Blood Pod
}

// NewPools returns an all-zero ledger set.
func NewPools() *Pools {
	return &Pools{Live: ZeroPool(), Dead: ZeroPool(), GFund: ZeroPool(), Blood: ZeroPod()}
}

// addCredit / subCredit / addDebit / subDebit mutate one Pod field with
// checked arithmetic; every pool mutation in the engine goes through these
// so overflow/underflow panics happen at a single well-understood site.

func addCredit(p *Pod, amount *big.Int) { p.Credit = mathx.CheckedAdd(nz(p.Credit), amount) }
func subCredit(p *Pod, amount *big.Int) { p.Credit = mathx.CheckedSub(nz(p.Credit), amount) }
func addDebit(p *Pod, amount *big.Int)  { p.Debit = mathx.CheckedAdd(nz(p.Debit), amount) }
func subDebit(p *Pod, amount *big.Int)  { p.Debit = mathx.CheckedSub(nz(p.Debit), amount) }

// sidePod returns a pointer to Long or Short depending on short, so callers
// can mutate in place without round-tripping through Pledge's value-typed
// accessors.
func (p *Pool) sidePod(short bool) *Pod {
	if short {
		return &p.Short
	}
	return &p.Long
}

func (p *Pledge) sidePodPtr(short bool) *Pod {
	if short {
		return &p.Short
	}
	return &p.Long
}
