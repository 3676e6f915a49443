package qd

import (
	"log/slog"
	"math/big"

	"qdchain/core/mathx"
	"qdchain/hostenv"
	"qdchain/observability/metrics"
)

// Contract wires the protocol's pure accounting logic (this package) to
// its host collaborators, mirroring the teacher's engineState injection
// in native/lending/engine.go: the engine never reaches for a global, it
// only ever talks to Env, Token, Oracle, and State.
type Contract struct {
	Env     hostenv.Env
	Token   hostenv.Token
	Oracle  Oracle
	State   State
	Log     *slog.Logger
	Metrics *metrics.QDMetrics
	// Pause gates borrow/swap/liquidation independently; nil means
	// nothing is paused, matching common.Guard's nil-safe contract.
	Pause *PauseFlags
}

// New constructs a Contract, defaulting Log to slog.Default() and
// Metrics to the package-wide Prometheus registry so callers that don't
// care about observability destinations don't have to wire one up.
func New(env hostenv.Env, token hostenv.Token, oracle Oracle, state State) *Contract {
	return &Contract{
		Env:     env,
		Token:   token,
		Oracle:  oracle,
		State:   state,
		Log:     slog.Default(),
		Metrics: metrics.Registry(),
		Pause:   NewPauseFlags(),
	}
}

func (c *Contract) requireNotUpdating() error {
	if c.State.UpdateInProgress() {
		return ErrUpdateInProgress
	}
	return nil
}

func (c *Contract) requirePositive(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrAmountNotPositive
	}
	return nil
}

func (c *Contract) price() (*big.Int, error) {
	if c.Oracle == nil {
		return nil, ErrOracleUnset
	}
	return c.Oracle.Price(), nil
}

// getOrCreatePledge returns id's pledge record, creating an empty one on
// first access.
func (c *Contract) getOrCreatePledge(id hostenv.AccountID) *Pledge {
	p, ok := c.State.GetPledge(id)
	if !ok {
		p = NewPledge(id)
		c.State.PutPledge(p)
	}
	return p
}

// save persists p, or removes it entirely once it carries no balance,
// per spec.md §3 invariant 5 (empty pledges don't linger in storage) and
// also drops it from both index sides.
func (c *Contract) save(p *Pledge) {
	if p.IsEmpty() {
		c.State.DeletePledge(p.ID)
		c.State.Index().Remove(false, p.ID)
		c.State.Index().Remove(true, p.ID)
		return
	}
	c.State.PutPledge(p)
}

// fetchPledge returns id's pledge after running default absorption: any
// bad debt sitting in the dead pool on a side is socialized pro-rata
// across every live position on that side the first time each is
// touched, so the dead pool never needs its own per-account book. The
// dead pool's credit/debit shrink by exactly the amount each pledge
// absorbs, preserving the global double-entry invariant.
func (c *Contract) fetchPledge(id hostenv.AccountID) *Pledge {
	p := c.getOrCreatePledge(id)
	c.absorbDead(p, false)
	c.absorbDead(p, true)
	return p
}

func (c *Contract) absorbDead(p *Pledge, short bool) {
	dead := c.State.Pools().Dead.sidePod(short)
	if dead.Debit.Sign() == 0 {
		return
	}
	live := c.State.Pools().Live.sidePod(short)
	myDebt := p.sidePodPtr(short).Debit
	if myDebt.Sign() == 0 || live.Debit.Sign() == 0 {
		return
	}
	// share = myDebt / live.Debit, applied to both legs of the dead pod so
	// the seized collateral follows the absorbed debt proportionally.
	shareCredit := mathx.Ratio(dead.Credit, myDebt, live.Debit)
	shareDebit := mathx.Ratio(dead.Debit, myDebt, live.Debit)
	shareCredit = mathx.Min(shareCredit, dead.Credit)
	shareDebit = mathx.Min(shareDebit, dead.Debit)
	if shareCredit.Sign() == 0 && shareDebit.Sign() == 0 {
		return
	}
	subCredit(dead, shareCredit)
	subDebit(dead, shareDebit)
	mine := p.sidePodPtr(short)
	mine.Credit = mathx.CheckedAdd(mine.Credit, shareCredit)
	mine.Debit = mathx.CheckedAdd(mine.Debit, shareDebit)
}

// touchIndex recomputes p's sort key on the given side and re-inserts it,
// called after any operation that changes debt or collateral.
func (c *Contract) touchIndex(p *Pledge, short bool) {
	price, err := c.price()
	if err != nil {
		return
	}
	side := p.SidePod(short)
	if side.Debit.Sign() == 0 {
		c.State.Index().Remove(short, p.ID)
		return
	}
	cr := mathx.ComputeCR(price, side.Credit, side.Debit, short)
	c.State.Index().Upsert(short, p.ID, side.Debit, cr)
}

// collateralToDebtValue converts an amount of a side's own collateral into
// the equivalent value expressed in that side's debt unit, at price: long
// collateral is NEAR, debt is QD; short collateral is QD, debt is NEAR.
func collateralToDebtValue(price, collateral *big.Int, short bool) *big.Int {
	if short {
		return mathx.Ratio(collateral, mathx.ONE, price)
	}
	return mathx.Ratio(price, collateral, mathx.ONE)
}

// debtToCollateralValue is collateralToDebtValue's inverse: how much of a
// side's own collateral a given amount of its debt is worth, at price. Also
// doubles as turn's KillCR-rate conversion (spec.md §9 open question 2),
// since KillCR is defined as exactly mathx.ONE.
func debtToCollateralValue(price, debt *big.Int, short bool) *big.Int {
	if short {
		return mathx.Ratio(debt, price, mathx.ONE)
	}
	return mathx.Ratio(debt, mathx.ONE, price)
}
