// Package qd implements the protocol state machine and capital bookkeeping
// for the QD collateralized stablecoin engine: the shared solvency pool,
// dead-pool absorption, guarantee fund, and liquidation/partial-rescue state
// machine described in spec.md. It is grounded on the teacher's
// native/lending engine (collateral + debt + health-factor + liquidation)
// generalized to the spec's two mirror-image long/short markets and four
// pool books.
package qd

import (
	"math/big"

	"qdchain/core/mathx"
	"qdchain/hostenv"
)

// Pod is an unsigned double-entry cell. In a long context Credit is NEAR
// collateral and Debit is QD debt; in a short context Credit is QD
// collateral and Debit is NEAR debt.
type Pod struct {
	Credit *big.Int
	Debit  *big.Int
}

// ZeroPod returns a Pod with both fields initialised to zero.
func ZeroPod() Pod {
	return Pod{Credit: big.NewInt(0), Debit: big.NewInt(0)}
}

// Clone returns a deep copy so callers never alias pool/pledge state.
func (p Pod) Clone() Pod {
	return Pod{Credit: new(big.Int).Set(nz(p.Credit)), Debit: new(big.Int).Set(nz(p.Debit))}
}

// IsZero reports whether both fields of the pod are zero.
func (p Pod) IsZero() bool {
	return nz(p.Credit).Sign() == 0 && nz(p.Debit).Sign() == 0
}

func nz(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

// Pool is the long/short pair of Pods backing three of the engine's four
// ledgers (live, dead, gfund); blood is a single Pod (see Pools).
type Pool struct {
	Long  Pod
	Short Pod
}

// ZeroPool returns a Pool with every field initialised to zero.
func ZeroPool() Pool {
	return Pool{Long: ZeroPod(), Short: ZeroPod()}
}

func (p Pool) Clone() Pool {
	return Pool{Long: p.Long.Clone(), Short: p.Short.Clone()}
}

// SideStats caches the risk metrics the update crank computes for one side
// of one pledge: stressed collateral/debt, losses, and the amortized
// premium charge for the period.
type SideStats struct {
	StressedCollateral *big.Int
	StressedDebt       *big.Int
	Loss               *big.Int
	AvgLoss            *big.Int
	RateE24            *big.Int // annualised premium rate, scaled by mathx.ONE
	Premiums           *big.Int // amount due this period, in the side's collateral unit
}

func zeroSideStats() SideStats {
	return SideStats{
		StressedCollateral: big.NewInt(0),
		StressedDebt:       big.NewInt(0),
		Loss:               big.NewInt(0),
		AvgLoss:            big.NewInt(0),
		RateE24:            big.NewInt(0),
		Premiums:           big.NewInt(0),
	}
}

// PledgeStats bundles the cached risk metrics for both sides of a pledge.
type PledgeStats struct {
	Long  SideStats
	Short SideStats
}

func zeroPledgeStats() PledgeStats {
	return PledgeStats{Long: zeroSideStats(), Short: zeroSideStats()}
}

// Pledge is one account's complete protocol position: its two independent
// borrow sides plus its SolvencyPool deposits.
type Pledge struct {
	ID    hostenv.AccountID
	Long  Pod
	Short Pod
	// Quid and Near are this account's SolvencyPool (blood) deposits.
	Quid *big.Int
	Near *big.Int
	// Stats caches the last-computed risk metrics; refreshed by
	// stress_pledge.
	Stats PledgeStats
	// Target is this pledge's vote for the solvency target, scaled by
	// mathx.ONE. Initialised to 1.10·ONE per spec.md §3; only consumed by
	// the (unused in live code paths) weighted-median vote in package
	// vote, never read directly by the engine's own call paths.
	Target *big.Int
}

// DefaultTarget is the initial per-pledge solvency-target vote: 110%.
func DefaultTarget() *big.Int {
	return mathx.Ratio(mathx.ONE, big.NewInt(11), big.NewInt(10))
}

// NewPledge constructs an empty pledge record for the given account.
func NewPledge(id hostenv.AccountID) *Pledge {
	return &Pledge{
		ID:     id,
		Long:   ZeroPod(),
		Short:  ZeroPod(),
		Quid:   big.NewInt(0),
		Near:   big.NewInt(0),
		Stats:  zeroPledgeStats(),
		Target: DefaultTarget(),
	}
}

// IsEmpty reports whether every field that determines pledge lifecycle
// (spec.md §3 invariant 5) is zero.
func (p *Pledge) IsEmpty() bool {
	return p.Long.IsZero() && p.Short.IsZero() && nz(p.Quid).Sign() == 0 && nz(p.Near).Sign() == 0
}

// SidePod returns the Long or Short pod depending on short.
func (p *Pledge) SidePod(short bool) Pod {
	if short {
		return p.Short
	}
	return p.Long
}

func (p *Pledge) setSidePod(short bool, v Pod) {
	if short {
		p.Short = v
	} else {
		p.Long = v
	}
}

// CR returns the collateralization ratio of one side of the pledge at the
// given price.
func (p *Pledge) CR(price *big.Int, short bool) *big.Int {
	side := p.SidePod(short)
	return mathx.ComputeCR(price, side.Credit, side.Debit, short)
}

// Oracle supplies already-validated instantaneous price/volatility
// readings; spec.md §1 treats oracle plumbing as an external collaborator.
type Oracle interface {
	// Price returns the current NEAR/USD price, scaled by mathx.ONE.
	Price() *big.Int
	// Vol returns the current measured annualised volatility as a plain
	// float (e.g. 0.8 for 80%).
	Vol() float64
}

// StaticOracle is a fixed-reading Oracle implementation for tests and the
// CLI, standing in for the real price/vol feed spec.md places out of scope.
type StaticOracle struct {
	PriceE24 *big.Int
	VolPct   float64
}

func (o *StaticOracle) Price() *big.Int { return new(big.Int).Set(o.PriceE24) }
func (o *StaticOracle) Vol() float64    { return o.VolPct }
