package qd

import (
	"math/big"

	"qdchain/core/mathx"
)

// Deposit places the caller's attached NEAR and/or qdAmount QD into the
// SolvencyPool (the blood pool), crediting both the pledge's own
// Quid/Near tally and the pool's single aggregate ledger (spec.md §3:
// blood is one cell, credit is aggregate QD, debit is aggregate NEAR).
// Deposits take no share of liquidated positions: fetchPledge's dead-pool
// absorption applies only to a pledge's long/short borrow sides, never to
// its Quid/Near deposits.
func (c *Contract) Deposit(qdAmount *big.Int) error {
	if err := c.requireNotUpdating(); err != nil {
		return err
	}
	if qdAmount == nil {
		qdAmount = big.NewInt(0)
	}
	nearAmount := c.Env.AttachedNative()
	if qdAmount.Sign() < 0 {
		return ErrAmountNotPositive
	}
	if qdAmount.Sign() == 0 && nearAmount.Sign() == 0 {
		return ErrAmountNotPositive
	}

	caller := c.Env.Caller()
	p := c.fetchPledge(caller)
	blood := &c.State.Pools().Blood

	if qdAmount.Sign() > 0 {
		if err := c.Token.Transfer(caller, c.Env.SelfID(), qdAmount); err != nil {
			return err
		}
		p.Quid = mathx.CheckedAdd(p.Quid, qdAmount)
		addCredit(blood, qdAmount)
	}
	if nearAmount.Sign() > 0 {
		p.Near = mathx.CheckedAdd(p.Near, nearAmount)
		addDebit(blood, nearAmount)
	}

	c.save(p)
	return nil
}

// Renege is spec.md §4.7/§6's renege(amount, sp, qd): sp selects whether
// the withdrawal comes from a borrow position's own collateral (sp=
// false) or from the caller's SolvencyPool deposit (sp=true); qd selects
// which asset leg (QD collateral/deposit when true, NEAR when false). A
// protocol fee of FEE*amount/ONE is always taken off the gross amount,
// split 1/11 to gfund and the remainder into dead.{side}.debit, where
// side mirrors qd (QD leg withdrawals are accounted against the short
// side's dead pod, NEAR leg withdrawals against the long side's).
//
// sp=false reduces the pledge's own collateral and the live pool to
// match, requiring the remaining position (if any debt is left) stay at
// or above MinCR. sp=true draws down the caller's own blood deposit
// instead, with no CR to preserve.
//
// In both modes, if the contract cannot pay the net amount out of its
// real asset (NEAR balance, or an existing blood/gfund QD reserve), the
// shortfall is minted to the caller as QD and recorded as protocol debt
// in gfund.long.debit — spec.md §4.7's "withdraw NEAR beyond protocol
// balance pays out in QD instead" rule, generalized to both withdrawal
// legs since the underlying mechanism (mint QD, record the IOU) is the
// same either way.
func (c *Contract) Renege(amount *big.Int, sp bool, qd bool) error {
	if err := c.requireNotUpdating(); err != nil {
		return err
	}
	if err := c.Env.AssertOneYocto(); err != nil {
		return err
	}
	if err := c.requirePositive(amount); err != nil {
		return err
	}
	caller := c.Env.Caller()
	p, ok := c.State.GetPledge(caller)
	if !ok {
		return ErrPledgeNotFound
	}

	fee := mathx.Ratio(amount, mathx.Fee, mathx.ONE)
	gfCut := mathx.Ratio(fee, big.NewInt(1), big.NewInt(11))
	deadCut := mathx.CheckedSub(fee, gfCut)
	net := mathx.CheckedSub(amount, fee)

	pools := c.State.Pools()
	short := qd

	if !sp {
		side := p.sidePodPtr(short)
		if amount.Cmp(side.Credit) > 0 {
			return ErrInsufficientLiquidity
		}
		// Validate the post-withdrawal CR before touching any pool or
		// fee ledger: a call that would drop remaining debt under
		// MinCR must leave every balance exactly as it found them.
		if side.Debit.Sign() > 0 {
			price, err := c.price()
			if err != nil {
				return err
			}
			projectedCredit := mathx.CheckedSub(side.Credit, amount)
			cr := mathx.ComputeCR(price, projectedCredit, side.Debit, short)
			if cr.Cmp(mathx.MinCR) < 0 {
				return ErrBelowMinCR
			}
		}

		if short {
			if err := c.Token.Mint(caller, net); err != nil {
				return err
			}
		} else if c.Env.NativeBalance().Cmp(net) >= 0 {
			if err := c.Env.TransferNative(caller, net); err != nil {
				return err
			}
		} else {
			price, err := c.price()
			if err != nil {
				return err
			}
			qdEquiv := mathx.Ratio(net, price, mathx.ONE)
			if err := c.Token.Mint(caller, qdEquiv); err != nil {
				return err
			}
			addDebit(pools.GFund.sidePod(false), qdEquiv)
		}

		side.Credit = mathx.CheckedSub(side.Credit, amount)
		subCredit(pools.Live.sidePod(short), amount)
		addCredit(pools.GFund.sidePod(short), gfCut)
		addDebit(pools.Dead.sidePod(short), deadCut)

		c.touchIndex(p, short)
		c.save(p)
		return nil
	}

	// SolvencyPool withdrawal: draw down the caller's own deposit, then
	// fall back to blood's pool-wide reserve, then gfund, then mint the
	// remainder as protocol debt. Every payout (Mint/TransferNative) is
	// attempted before any pool ledger is adjusted, so a payout failure
	// leaves blood/gfund/the caller's own Quid-Near tally untouched
	// rather than destroying the caller's deposit without compensation.
	if qd {
		if amount.Cmp(p.Quid) > 0 {
			return ErrInsufficientLiquidity
		}
	} else {
		if amount.Cmp(p.Near) > 0 {
			return ErrInsufficientLiquidity
		}
	}

	blood := &pools.Blood
	remaining := new(big.Int).Set(net)
	if qd {
		fromBlood := mathx.Min(remaining, blood.Credit)
		remaining = mathx.CheckedSub(remaining, fromBlood)

		gfundQD := pools.GFund.sidePod(true)
		fromGfund := mathx.Min(remaining, gfundQD.Credit)
		remaining = mathx.CheckedSub(remaining, fromGfund)

		if err := c.Token.Mint(caller, net); err != nil {
			return err
		}

		p.Quid = mathx.CheckedSub(p.Quid, amount)
		subCredit(blood, fromBlood)
		subCredit(gfundQD, fromGfund)
		if remaining.Sign() > 0 {
			addDebit(pools.GFund.sidePod(false), remaining)
		}
	} else {
		fromBlood := mathx.Min(remaining, blood.Debit)
		remaining = mathx.CheckedSub(remaining, fromBlood)

		gfundNear := pools.GFund.sidePod(false)
		fromGfund := mathx.Min(remaining, gfundNear.Credit)
		remaining = mathx.CheckedSub(remaining, fromGfund)

		payable := mathx.CheckedSub(net, remaining)
		if payable.Sign() > 0 {
			if err := c.Env.TransferNative(caller, payable); err != nil {
				return err
			}
		}
		var qdEquiv *big.Int
		if remaining.Sign() > 0 {
			price, err := c.price()
			if err != nil {
				return err
			}
			qdEquiv = mathx.Ratio(remaining, price, mathx.ONE)
			if err := c.Token.Mint(caller, qdEquiv); err != nil {
				return err
			}
		}

		p.Near = mathx.CheckedSub(p.Near, amount)
		subDebit(blood, fromBlood)
		subCredit(gfundNear, fromGfund)
		if remaining.Sign() > 0 {
			addDebit(pools.GFund.sidePod(false), qdEquiv)
		}
	}

	addCredit(pools.GFund.sidePod(short), gfCut)
	addDebit(pools.Dead.sidePod(short), deadCut)
	c.save(p)
	return nil
}
