package qd

import (
	"math/big"

	"qdchain/core/mathx"
	"qdchain/hostenv"
)

// Borrow opens or tops up one side of the caller's pledge: it takes in
// collateral and mints debt against it in a single call, mirroring the
// teacher's combined DepositCollateral+Borrow flow in
// native/lending/engine.go but generalized to the spec's two mirror
// markets.
//
// On the long side, collateral is NEAR attached to the call and debt is
// minted QD. On the short side, collateral is QD pulled from the
// caller's token balance and debt is NEAR paid out of the contract's
// pooled native balance. debtDelta may be zero: per spec.md's relaxed
// reading of the original deposit-must-be-positive assertion, a caller
// may add pure collateral without minting any new debt.
//
// Per spec.md §4.4, a call that would leave the side's new CR under
// MinCR is not rejected outright unless the position was already
// underwater before this call: instead Borrow hands the position to
// valve, which attempts to self-leverage it back up to MinCR.
func (c *Contract) Borrow(short bool, shortCollateralIn, debtDelta *big.Int) error {
	if err := c.requireNotUpdating(); err != nil {
		return err
	}
	if err := c.guard(ModuleBorrow); err != nil {
		return err
	}
	if debtDelta == nil {
		debtDelta = big.NewInt(0)
	}
	if shortCollateralIn == nil {
		shortCollateralIn = big.NewInt(0)
	}
	if debtDelta.Sign() < 0 || shortCollateralIn.Sign() < 0 {
		return ErrAmountNotPositive
	}

	caller := c.Env.Caller()
	p := c.fetchPledge(caller)
	side := p.sidePodPtr(short)

	price, err := c.price()
	if err != nil {
		return err
	}
	if side.Debit.Sign() > 0 {
		curCR := mathx.ComputeCR(price, side.Credit, side.Debit, short)
		if curCR.Cmp(mathx.MinCR) < 0 {
			return ErrBelowMinCRToBorrow
		}
	}

	collateralDelta, err := c.pullCollateral(caller, short, shortCollateralIn)
	if err != nil {
		return err
	}
	if collateralDelta.Sign() == 0 && debtDelta.Sign() == 0 {
		return ErrAmountNotPositive
	}

	// The host model has no way to claw back a real asset payout once
	// it is made (TransferNative only moves funds out of the
	// contract's own balance, never back from a recipient), so valve's
	// feasibility is checked against this call's *projected* end state
	// before any debt is minted or paid out, not after.
	projectedCredit := mathx.CheckedAdd(side.Credit, collateralDelta)
	projectedDebit := mathx.CheckedAdd(side.Debit, debtDelta)
	needsValve := false
	if projectedDebit.Sign() > 0 {
		cr := mathx.ComputeCR(price, projectedCredit, projectedDebit, short)
		if cr.Cmp(mathx.MinCR) < 0 {
			needsValve = true
			projectedLiquidQD := c.Token.BalanceOf(caller)
			if !short {
				projectedLiquidQD = mathx.CheckedAdd(projectedLiquidQD, debtDelta)
			}
			if _, _, err := valvePlan(projectedCredit, projectedDebit, short, price, projectedLiquidQD); err != nil {
				return err
			}
		}
	}

	side.Credit = projectedCredit
	addCredit(c.State.Pools().Live.sidePod(short), collateralDelta)

	if debtDelta.Sign() > 0 {
		if err := c.payOutDebt(caller, short, debtDelta); err != nil {
			return err
		}
		side.Debit = projectedDebit
		addDebit(c.State.Pools().Live.sidePod(short), debtDelta)
	}

	if needsValve {
		if err := c.valve(p, short, price); err != nil {
			return err
		}
	}

	c.touchIndex(p, short)
	c.save(p)
	return nil
}

// valvePlan is valve's feasibility computation, factored out so Borrow
// can check ahead of time whether valve would succeed against a
// projected end state, before committing any payout it could not later
// undo. Returns the debt-unit amount valve would buy and the fee it
// would mint, or ErrBelowMinCRToBorrow if self-leverage can't clear
// MinCR from here.
func valvePlan(credit, debit *big.Int, short bool, price, liquidQD *big.Int) (bought, fee *big.Int, err error) {
	if debit.Sign() == 0 {
		return big.NewInt(0), big.NewInt(0), nil
	}
	endCollValue := mathx.Ratio(debit, mathx.MinCR, mathx.ONE)
	collValue := collateralToDebtValue(price, credit, short)
	if endCollValue.Cmp(collValue) <= 0 {
		return nil, nil, ErrBelowMinCRToBorrow
	}
	needed := mathx.CheckedSub(endCollValue, collValue)

	netValue := mathx.ZeroClamp(new(big.Int).Sub(mathx.CheckedAdd(liquidQD, collValue), debit))
	bought = mathx.Min(needed, netValue)
	if bought.Sign() == 0 {
		return nil, nil, ErrBelowMinCRToBorrow
	}

	boughtCollateral := debtToCollateralValue(price, bought, short)
	finalCredit := mathx.CheckedAdd(credit, boughtCollateral)
	cr := mathx.ComputeCR(price, finalCredit, debit, short)
	if cr.Cmp(mathx.MinCR) < 0 {
		return nil, nil, ErrBelowMinCRToBorrow
	}
	return bought, mathx.Ratio(bought, mathx.Fee, mathx.ONE), nil
}

// valve is borrow's self-leveraging fallback, per spec.md §4.4: when a
// borrow call leaves new CR under MinCR, valve mints fee QD to itself,
// targets end_coll = new_debt * MinCR, and buys the shortfall in
// collateral directly (manufacturing it rather than sourcing it from any
// pool, since the position's debt is already fixed), financed first by
// whatever QD the borrower already holds freely and topped up by the
// freshly minted fee. The fee is split 1/11 to gfund and 10/11 to
// dead.short.debit. By the time this runs, Borrow has already confirmed
// via valvePlan that self-leverage clears MinCR from here, so this only
// applies that plan's mutations.
func (c *Contract) valve(p *Pledge, short bool, price *big.Int) error {
	side := p.sidePodPtr(short)
	liquidQD := c.Token.BalanceOf(p.ID)
	bought, fee, err := valvePlan(side.Credit, side.Debit, short, price, liquidQD)
	if err != nil {
		return err
	}
	if bought.Sign() == 0 {
		return nil
	}

	if fee.Sign() > 0 {
		if err := c.Token.Mint(c.Env.SelfID(), fee); err != nil {
			return err
		}
		gfCut := mathx.Ratio(fee, big.NewInt(1), big.NewInt(11))
		deadCut := mathx.CheckedSub(fee, gfCut)
		addCredit(c.State.Pools().GFund.sidePod(short), gfCut)
		addDebit(c.State.Pools().Dead.sidePod(true), deadCut)
	}

	boughtCollateral := debtToCollateralValue(price, bought, short)
	side.Credit = mathx.CheckedAdd(side.Credit, boughtCollateral)
	addCredit(c.State.Pools().Live.sidePod(short), boughtCollateral)

	spend := mathx.Min(liquidQD, bought)
	if spend.Sign() > 0 {
		if err := c.Token.Burn(p.ID, spend); err != nil {
			return err
		}
	}
	return nil
}

// pullCollateral takes in this call's collateral contribution: NEAR
// attached to the call for the long side, or shortCollateralIn pulled
// from the caller's QD balance for the short side.
func (c *Contract) pullCollateral(caller hostenv.AccountID, short bool, shortCollateralIn *big.Int) (*big.Int, error) {
	if short {
		if shortCollateralIn.Sign() == 0 {
			return big.NewInt(0), nil
		}
		if err := c.Token.Transfer(caller, c.Env.SelfID(), shortCollateralIn); err != nil {
			return nil, err
		}
		return new(big.Int).Set(shortCollateralIn), nil
	}
	return new(big.Int).Set(c.Env.AttachedNative()), nil
}

func (c *Contract) payOutDebt(caller hostenv.AccountID, short bool, amount *big.Int) error {
	if short {
		return c.Env.TransferNative(caller, amount)
	}
	return c.Token.Mint(caller, amount)
}
