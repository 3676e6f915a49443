package qd

import "qdchain/core/mathx"

// Fold is spec.md §4.8's voluntary position closure: the caller closes
// their own position on one side by realizing its debt's value out of
// its own collateral at the live price and burning the matching debt,
// the same "sell collateral to cover debt" shape liquidation's shrink
// uses, except gated on CR > KillCR rather than CR < MinCR — a position
// already at or below KillCR is liquidation's job, not the caller's to
// fold out from under.
func (c *Contract) Fold(short bool) error {
	if err := c.requireNotUpdating(); err != nil {
		return err
	}
	if err := c.Env.AssertOneYocto(); err != nil {
		return err
	}
	caller := c.Env.Caller()
	p, ok := c.State.GetPledge(caller)
	if !ok {
		return ErrPledgeNotFound
	}
	price, err := c.price()
	if err != nil {
		return err
	}
	side := p.sidePodPtr(short)
	if side.Debit.Sign() == 0 {
		return nil
	}
	cr := mathx.ComputeCR(price, side.Credit, side.Debit, short)
	if cr.Cmp(mathx.KillCR) <= 0 {
		return ErrBelowMinCR
	}

	debtValue := debtToCollateralValue(price, side.Debit, short)
	consumed := mathx.Min(debtValue, side.Credit)
	burn := side.Debit
	if consumed.Cmp(debtValue) < 0 && debtValue.Sign() > 0 {
		burn = mathx.Ratio(side.Debit, consumed, debtValue)
	}

	live := c.State.Pools().Live.sidePod(short)
	side.Credit = mathx.CheckedSub(side.Credit, consumed)
	side.Debit = mathx.CheckedSub(side.Debit, burn)
	subCredit(live, consumed)
	subDebit(live, burn)

	c.touchIndex(p, short)
	c.save(p)
	return nil
}
