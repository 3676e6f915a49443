package qd

import (
	"math/big"

	"qdchain/core/mathx"
)

// Swap is spec.md §6's unified swap command: repay=true burns the
// caller's own debt directly (no market conversion, no collateral
// release); repay=false routes to the market legs, Redeem for the long
// side, Invert for the short side.
func (c *Contract) Swap(amount *big.Int, repay bool, short bool) error {
	if repay {
		return c.repayOwn(short, amount)
	}
	if short {
		return c.Invert()
	}
	return c.Redeem(amount)
}

// repayOwn burns up to amount of the caller's own debt on the given side
// using assets the caller supplies directly (QD burned from their own
// balance on the long side, attached NEAR on the short side), without
// touching collateral. This is turn's repay=true shape applied to the
// caller's own pledge, per spec.md §4.5.
func (c *Contract) repayOwn(short bool, amount *big.Int) error {
	if err := c.requireNotUpdating(); err != nil {
		return err
	}
	if err := c.guard(ModuleSwap); err != nil {
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
	price, err := c.price()
	if err != nil {
		return err
	}
	side := p.sidePodPtr(short)
	burn := mathx.Min(amount, side.Debit)
	if burn.Sign() == 0 {
		return nil
	}
	if short {
		if c.Env.AttachedNative().Cmp(burn) < 0 {
			return ErrInsufficientLiquidity
		}
	} else if err := c.Token.Burn(caller, burn); err != nil {
		return err
	}

	c.turn(p, short, burn, true, price)
	c.touchIndex(p, short)
	c.save(p)
	return nil
}

// turn is the swap engine's core primitive, per spec.md §4.5: it burns
// min(amt, pledge.side.debit) of a single borrower's debt and, unless
// repay is set, releases the matching collateral at the KillCR rate
// (spec.md §9 open question 2) rather than the pledge's own live CR, so
// an external redeemer never benefits from a position's current health.
// Returns the amount of debt burned and of collateral released.
func (c *Contract) turn(p *Pledge, short bool, amt *big.Int, repay bool, price *big.Int) (burned, released *big.Int) {
	side := p.sidePodPtr(short)
	burned = mathx.Min(amt, side.Debit)
	released = big.NewInt(0)
	if burned.Sign() == 0 {
		return burned, released
	}
	side.Debit = mathx.CheckedSub(side.Debit, burned)
	subDebit(c.State.Pools().Live.sidePod(short), burned)

	if !repay {
		released = mathx.Min(debtToCollateralValue(price, burned, short), side.Credit)
		side.Credit = mathx.CheckedSub(side.Credit, released)
		subCredit(c.State.Pools().Live.sidePod(short), released)
	}
	return burned, released
}

// turnFrom walks the sorted pledge index ascending (riskiest first) on
// the given side, burning borrower debt via turn until amt is exhausted
// or mathx.TurnFromBatch pledges have been visited, per spec.md §4.5: it
// stops once a pledge's CR reaches MinCR (healthy positions are never
// touched) and skips any pledge whose CR has already fallen below
// KillCR (liquidation's job, not the swap engine's). Returns the total
// debt burned, the total collateral released, and whatever amt could not
// be matched against any eligible pledge.
func (c *Contract) turnFrom(amt *big.Int, short bool, price *big.Int) (burned, released, residual *big.Int) {
	burned, released = big.NewInt(0), big.NewInt(0)
	remaining := new(big.Int).Set(amt)
	ids := c.State.Index().Ascending(short)
	hops := mathx.TurnFromBatch
	for i := 0; i < len(ids) && hops > 0 && remaining.Sign() > 0; i++ {
		id := ids[i]
		p, ok := c.State.GetPledge(id)
		if !ok {
			continue
		}
		side := p.sidePodPtr(short)
		cr := mathx.ComputeCR(price, side.Credit, side.Debit, short)
		if cr.Cmp(mathx.MinCR) >= 0 {
			break
		}
		hops--
		if cr.Cmp(mathx.KillCR) < 0 {
			continue
		}
		b, r := c.turn(p, short, remaining, false, price)
		if b.Sign() == 0 {
			continue
		}
		burned = mathx.CheckedAdd(burned, b)
		released = mathx.CheckedAdd(released, r)
		remaining = mathx.CheckedSub(remaining, b)
		c.touchIndex(p, short)
		c.save(p)
	}
	return burned, released, remaining
}

// Redeem is the swap engine's QD->NEAR leg, per spec.md §4.5's layered
// cascade: first turnFrom burns low-CR long borrowers' debt off the
// sorted index and releases their NEAR at the KillCR rate; any amount
// turnFrom could not place is cleared next against dead.long (collateral
// already seized by liquidation but not yet absorbed); anything still
// left draws on the SolvencyPool (blood), converting QD into NEAR at the
// live price; and if blood itself cannot cover it, the shortfall is
// minted as retroactive dead.short entries, so the redeemer is always
// paid in full and the shortfall is recorded in dead.short, where
// fetchPledge's absorption or a later Invert picks it up.
func (c *Contract) Redeem(amount *big.Int) error {
	if err := c.requireNotUpdating(); err != nil {
		return err
	}
	if err := c.guard(ModuleSwap); err != nil {
		return err
	}
	if err := c.requirePositive(amount); err != nil {
		return err
	}
	price, err := c.price()
	if err != nil {
		return err
	}
	caller := c.Env.Caller()

	_, nearOut, residual := c.turnFrom(amount, false, price)

	// Everything past this point through the balance check below is pure
	// computation: dead.long and blood are only actually adjusted once the
	// contract's own NEAR balance is confirmed sufficient to pay nearOut
	// and the caller's QD has been burned, so a shortfall never leaves
	// those pools half-cleared against a payout that didn't happen.
	dead := c.State.Pools().Dead.sidePod(false)
	var clearDebt, clearNear *big.Int
	if residual.Sign() > 0 && dead.Debit.Sign() > 0 {
		clearDebt = mathx.Min(residual, dead.Debit)
		clearNear = mathx.Min(mathx.Ratio(clearDebt, dead.Credit, dead.Debit), dead.Credit)
		nearOut = mathx.CheckedAdd(nearOut, clearNear)
		residual = mathx.CheckedSub(residual, clearDebt)
	}

	var nearNeeded, nearFromBlood, shortfallNear *big.Int
	if residual.Sign() > 0 {
		blood := &c.State.Pools().Blood
		nearNeeded = mathx.Ratio(residual, mathx.ONE, price)
		nearFromBlood = mathx.Min(nearNeeded, blood.Debit)
		// The redeemer is paid in full regardless of whether blood
		// could cover it: whatever blood can't source is recorded as
		// a retroactive dead.short claim below, not a shortchanged
		// payout.
		nearOut = mathx.CheckedAdd(nearOut, nearNeeded)
		shortfallNear = mathx.CheckedSub(nearNeeded, nearFromBlood)
	}

	if nearOut.Sign() == 0 {
		return nil
	}
	if c.Env.NativeBalance().Cmp(nearOut) < 0 {
		return ErrInsufficientLiquidity
	}
	if err := c.Token.Burn(caller, amount); err != nil {
		return err
	}

	if clearDebt != nil {
		subDebit(dead, clearDebt)
		subCredit(dead, clearNear)
	}
	if nearNeeded != nil {
		blood := &c.State.Pools().Blood
		subDebit(blood, nearFromBlood)
		addCredit(blood, residual)
		if shortfallNear.Sign() > 0 {
			deadShort := c.State.Pools().Dead.sidePod(true)
			addDebit(deadShort, mathx.Ratio(shortfallNear, price, mathx.ONE))
			addCredit(deadShort, shortfallNear)
		}
	}

	return c.Env.TransferNative(caller, nearOut)
}

// Invert is Redeem's mirror, the swap engine's NEAR->QD leg: turnFrom
// burns low-CR short borrowers' NEAR debt and releases their QD
// collateral at the KillCR rate; residual NEAR clears against
// dead.short; anything still left draws on the SolvencyPool (blood),
// converting NEAR into QD; and any remaining shortfall mints retroactive
// dead.long entries.
func (c *Contract) Invert() error {
	if err := c.requireNotUpdating(); err != nil {
		return err
	}
	if err := c.guard(ModuleSwap); err != nil {
		return err
	}
	nearIn := c.Env.AttachedNative()
	if err := c.requirePositive(nearIn); err != nil {
		return err
	}
	price, err := c.price()
	if err != nil {
		return err
	}
	caller := c.Env.Caller()

	_, qdOut, residual := c.turnFrom(nearIn, true, price)

	dead := c.State.Pools().Dead.sidePod(true)
	if residual.Sign() > 0 && dead.Debit.Sign() > 0 {
		clearDebt := mathx.Min(residual, dead.Debit)
		clearQD := mathx.Min(mathx.Ratio(clearDebt, dead.Credit, dead.Debit), dead.Credit)
		subDebit(dead, clearDebt)
		subCredit(dead, clearQD)
		qdOut = mathx.CheckedAdd(qdOut, clearQD)
		residual = mathx.CheckedSub(residual, clearDebt)
	}

	if residual.Sign() > 0 {
		blood := &c.State.Pools().Blood
		qdNeeded := mathx.Ratio(price, residual, mathx.ONE)
		qdFromBlood := mathx.Min(qdNeeded, blood.Credit)
		subCredit(blood, qdFromBlood)
		addDebit(blood, residual)
		// The inverter is paid in full regardless of whether blood
		// could cover it: whatever blood can't source is recorded as
		// a retroactive dead.long claim below, not a shortchanged
		// payout.
		qdOut = mathx.CheckedAdd(qdOut, qdNeeded)

		shortfallQD := mathx.CheckedSub(qdNeeded, qdFromBlood)
		if shortfallQD.Sign() > 0 {
			deadLong := c.State.Pools().Dead.sidePod(false)
			addDebit(deadLong, mathx.Ratio(shortfallQD, mathx.ONE, price))
			addCredit(deadLong, shortfallQD)
		}
	}

	if qdOut.Sign() == 0 {
		return nil
	}
	return c.Token.Mint(caller, qdOut)
}
