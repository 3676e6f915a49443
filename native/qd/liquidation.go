package qd

import (
	"math/big"

	"qdchain/core/mathx"
	"qdchain/hostenv"
)

// Clip is the liquidation engine's entry point, per spec.md §6's
// clip(account) command: it runs the full §4.6 state machine
// independently on both sides of the account's pledge. Each side that is
// already at or above MinCR, or carries no debt, is left untouched.
func (c *Contract) Clip(id hostenv.AccountID) error {
	if err := c.requireNotUpdating(); err != nil {
		return err
	}
	if err := c.Env.AssertOneYocto(); err != nil {
		return err
	}
	if err := c.guard(ModuleLiquidation); err != nil {
		return err
	}
	if _, ok := c.State.GetPledge(id); !ok {
		return ErrPledgeNotFound
	}
	if err := c.clipSide(false, id); err != nil {
		return err
	}
	return c.clipSide(true, id)
}

// LongSave and ShortSave are the named rescue entry points spec.md §4.6
// exposes alongside clip, for callers that already know which side they
// mean to work and want to run its state machine directly rather than
// going through Clip's two-side sweep.
func (c *Contract) LongSave(id hostenv.AccountID) error {
	if err := c.requireNotUpdating(); err != nil {
		return err
	}
	if err := c.Env.AssertOneYocto(); err != nil {
		return err
	}
	if err := c.guard(ModuleLiquidation); err != nil {
		return err
	}
	if _, ok := c.State.GetPledge(id); !ok {
		return ErrPledgeNotFound
	}
	return c.clipSide(false, id)
}

func (c *Contract) ShortSave(id hostenv.AccountID) error {
	if err := c.requireNotUpdating(); err != nil {
		return err
	}
	if err := c.Env.AssertOneYocto(); err != nil {
		return err
	}
	if err := c.guard(ModuleLiquidation); err != nil {
		return err
	}
	if _, ok := c.State.GetPledge(id); !ok {
		return ErrPledgeNotFound
	}
	return c.clipSide(true, id)
}

// clipSide runs spec.md §4.6's full per-side state machine: skip a
// healthy side; otherwise attempt a save funded entirely from the
// borrower's own other assets (pledge.near / the borrower's own liquid
// QD / pledge.quid, in that order); if the save still leaves the side
// below KillCR, undo it and snatch the position whole; if it clears
// KillCR but not MinCR, shrink (sell collateral) the rest of the way to
// MinCR; if it reaches MinCR outright, the save stands on its own.
func (c *Contract) clipSide(short bool, id hostenv.AccountID) error {
	p := c.fetchPledge(id)
	price, err := c.price()
	if err != nil {
		return err
	}
	side := p.sidePodPtr(short)
	if side.Debit.Sign() == 0 {
		return nil
	}
	cr := mathx.ComputeCR(price, side.Credit, side.Debit, short)
	if cr.Cmp(mathx.MinCR) >= 0 {
		return nil
	}

	near0, quid0 := new(big.Int).Set(p.Near), new(big.Int).Set(p.Quid)
	credit0, debit0 := new(big.Int).Set(side.Credit), new(big.Int).Set(side.Debit)
	live := c.State.Pools().Live.sidePod(short)
	liveCredit0, liveDebit0 := new(big.Int).Set(live.Credit), new(big.Int).Set(live.Debit)
	blood := &c.State.Pools().Blood
	bloodCredit0, bloodDebit0 := new(big.Int).Set(blood.Credit), new(big.Int).Set(blood.Debit)

	moved := c.attemptSave(p, short, price)
	postCR := mathx.ComputeCR(price, side.Credit, side.Debit, short)

	if postCR.Cmp(mathx.KillCR) < 0 {
		p.Near, p.Quid = near0, quid0
		side.Credit, side.Debit = credit0, debit0
		live.Credit, live.Debit = liveCredit0, liveDebit0
		blood.Credit, blood.Debit = bloodCredit0, bloodDebit0
		if moved.amount.Sign() > 0 {
			if moved.burned {
				if err := c.Token.Mint(p.ID, moved.amount); err != nil {
					return err
				}
			} else if err := c.Token.Transfer(c.Env.SelfID(), p.ID, moved.amount); err != nil {
				return err
			}
		}
		return c.snatch(p, short, price)
	}

	c.touchIndex(p, short)
	c.save(p)
	if postCR.Cmp(mathx.MinCR) < 0 {
		return c.shrinkSide(p, short, price)
	}
	c.Metrics.ObserveLiquidation(short, "rescue")
	return nil
}

// walletMove records how much of a pledge owner's own token wallet was
// drawn into a save attempt, and by what mechanism, so clipSide can
// reverse it exactly if the save fails to clear KillCR.
type walletMove struct {
	amount *big.Int
	burned bool // true: Token.Burn'd (refund via Mint); false: Transfer'd to self (refund via Transfer back)
}

// attemptSave performs spec.md §4.6 step 3's rescue cascade in place.
// Long side: add NEAR from pledge.near first, then burn debt using the
// borrower's own liquid QD, then using pledge.quid. Short side: add QD
// collateral from the borrower's own liquid QD first, then from
// pledge.quid, then burn NEAR debt using pledge.near. Each step stops
// once the side's CR reaches MinCR.
func (c *Contract) attemptSave(p *Pledge, short bool, price *big.Int) walletMove {
	side := p.sidePodPtr(short)
	live := c.State.Pools().Live.sidePod(short)
	blood := &c.State.Pools().Blood
	move := walletMove{amount: big.NewInt(0)}

	creditTargetFor := func(debit *big.Int) *big.Int {
		return debtToCollateralValue(price, mathx.Ratio(debit, mathx.MinCR, mathx.ONE), short)
	}
	debitTargetFor := func(credit *big.Int) *big.Int {
		return mathx.Ratio(collateralToDebtValue(price, credit, short), mathx.ONE, mathx.MinCR)
	}

	if !short {
		need := mathx.CheckedSub(mathx.Max(creditTargetFor(side.Debit), side.Credit), side.Credit)
		addAmt := mathx.Min(need, p.Near)
		if addAmt.Sign() > 0 {
			p.Near = mathx.CheckedSub(p.Near, addAmt)
			side.Credit = mathx.CheckedAdd(side.Credit, addAmt)
			addCredit(live, addAmt)
			subDebit(blood, addAmt)
		}

		burnNeed := mathx.CheckedSub(mathx.Max(side.Debit, debitTargetFor(side.Credit)), debitTargetFor(side.Credit))
		liquid := c.Token.BalanceOf(p.ID)
		fromWallet := mathx.Min(burnNeed, liquid)
		if fromWallet.Sign() > 0 {
			if err := c.Token.Burn(p.ID, fromWallet); err == nil {
				side.Debit = mathx.CheckedSub(side.Debit, fromWallet)
				subDebit(live, fromWallet)
				move = walletMove{amount: fromWallet, burned: true}
			}
		}

		remaining := mathx.CheckedSub(burnNeed, fromWallet)
		fromQuid := mathx.Min(remaining, p.Quid)
		if fromQuid.Sign() > 0 {
			p.Quid = mathx.CheckedSub(p.Quid, fromQuid)
			subCredit(blood, fromQuid)
			side.Debit = mathx.CheckedSub(side.Debit, fromQuid)
			subDebit(live, fromQuid)
		}
		return move
	}

	need := mathx.CheckedSub(mathx.Max(creditTargetFor(side.Debit), side.Credit), side.Credit)
	liquid := c.Token.BalanceOf(p.ID)
	fromWallet := mathx.Min(need, liquid)
	if fromWallet.Sign() > 0 {
		if err := c.Token.Transfer(p.ID, c.Env.SelfID(), fromWallet); err == nil {
			side.Credit = mathx.CheckedAdd(side.Credit, fromWallet)
			addCredit(live, fromWallet)
			move = walletMove{amount: fromWallet, burned: false}
		}
	}

	remaining := mathx.CheckedSub(need, fromWallet)
	fromQuid := mathx.Min(remaining, p.Quid)
	if fromQuid.Sign() > 0 {
		p.Quid = mathx.CheckedSub(p.Quid, fromQuid)
		subCredit(blood, fromQuid)
		side.Credit = mathx.CheckedAdd(side.Credit, fromQuid)
		addCredit(live, fromQuid)
	}

	burnNeed := mathx.CheckedSub(mathx.Max(side.Debit, debitTargetFor(side.Credit)), debitTargetFor(side.Credit))
	fromNear := mathx.Min(burnNeed, p.Near)
	if fromNear.Sign() > 0 {
		p.Near = mathx.CheckedSub(p.Near, fromNear)
		subDebit(blood, fromNear)
		side.Debit = mathx.CheckedSub(side.Debit, fromNear)
		subDebit(live, fromNear)
	}
	return move
}

// shrinkAmount computes how much debt must be repaid, by selling the same
// value of collateral, to bring side back up to exactly MinCR, per spec.md
// §4.6's closed form x = 10*(MinCR*debt - coll) for the long side (and its
// short-side mirror), with coll valued in the side's debt unit. The factor
// 10 is ONE/(MinCR-ONE).
func (c *Contract) shrinkAmount(side *Pod, short bool, price *big.Int) *big.Int {
	collValue := collateralToDebtValue(price, side.Credit, short)
	targetColl := mathx.Ratio(side.Debit, mathx.MinCR, mathx.ONE)
	if targetColl.Cmp(collValue) <= 0 {
		return big.NewInt(0)
	}
	x := mathx.Ratio(mathx.CheckedSub(targetColl, collValue), mathx.ONE, mathx.CheckedSub(mathx.MinCR, mathx.ONE))
	return mathx.Min(x, side.Debit)
}

// shrinkSide is spec.md §4.6 step 5: it sells enough of the pledge's own
// collateral at the live price to repay shrinkAmount's debt target,
// restoring CR to MinCR, the same "sell collateral to cover debt" shape
// Fold uses to voluntarily close a healthy position.
func (c *Contract) shrinkSide(p *Pledge, short bool, price *big.Int) error {
	side := p.sidePodPtr(short)
	x := c.shrinkAmount(side, short, price)
	if x.Sign() <= 0 {
		return nil
	}
	collNeeded := debtToCollateralValue(price, x, short)
	consumed := mathx.Min(collNeeded, side.Credit)
	burn := x
	if consumed.Cmp(collNeeded) < 0 && collNeeded.Sign() > 0 {
		burn = mathx.Ratio(x, consumed, collNeeded)
	}

	side.Credit = mathx.CheckedSub(side.Credit, consumed)
	side.Debit = mathx.CheckedSub(side.Debit, burn)
	live := c.State.Pools().Live.sidePod(short)
	subCredit(live, consumed)
	subDebit(live, burn)

	c.touchIndex(p, short)
	c.save(p)
	c.Metrics.ObserveLiquidation(short, "shrink")
	return nil
}

// snatch seizes a pledge that has fallen below KillCR entirely: its
// remaining collateral and debt move out of the live pool and into the
// dead pool as a unit, to be picked up later by fetch_pledge absorption
// or cleared by Redeem/Invert. Per spec.md §9's corrected reading, any shortfall between the
// collateral's value and the debt it was backing is drawn from the
// guarantee fund before the position is retired, rather than left to
// silently understate the dead pool's bad debt.
func (c *Contract) snatch(p *Pledge, short bool, price *big.Int) error {
	side := p.sidePodPtr(short)
	credit, debit := new(big.Int).Set(side.Credit), new(big.Int).Set(side.Debit)

	live := c.State.Pools().Live.sidePod(short)
	subCredit(live, credit)
	subDebit(live, debit)

	shortfall := c.valueShortfall(credit, debit, short, price)
	if shortfall.Sign() > 0 {
		gfund := c.State.Pools().GFund.sidePod(short)
		draw := mathx.Min(shortfall, gfund.Credit)
		subCredit(gfund, draw)
		credit = mathx.CheckedAdd(credit, draw)
	}

	dead := c.State.Pools().Dead.sidePod(short)
	addCredit(dead, credit)
	addDebit(dead, debit)

	side.Credit = big.NewInt(0)
	side.Debit = big.NewInt(0)

	c.State.Index().Remove(short, p.ID)
	c.save(p)
	c.Metrics.ObserveLiquidation(short, "snatch")
	return nil
}

// valueShortfall returns, in collateral units, how far short credit's
// value falls of covering debit's value at the given price.
func (c *Contract) valueShortfall(credit, debit *big.Int, short bool, price *big.Int) *big.Int {
	return mathx.Max(big.NewInt(0), mathx.CheckedSub(debtToCollateralValue(price, debit, short), credit))
}
