package qd

import (
	"math/big"
	"testing"

	"qdchain/core/mathx"
	"qdchain/hostenv"
)

func newTestContract(priceE24 *big.Int, vol float64) (*Contract, *hostenv.MemEnv, *hostenv.MemToken) {
	env := hostenv.NewMemEnv("contract", 0)
	token := hostenv.NewMemToken()
	oracle := &StaticOracle{PriceE24: priceE24, VolPct: vol}
	state := NewMemState()
	return New(env, token, oracle, state), env, token
}

func nearPrice(dollars int64) *big.Int {
	return mathx.Ratio(mathx.ONE, big.NewInt(dollars), big.NewInt(1))
}

func TestBorrowRejectsTopUpWhileAlreadyUnderwater(t *testing.T) {
	c, env, _ := newTestContract(nearPrice(5), 0.8)
	env.SetCaller("alice")

	// A position already below MinCR before this call (1 NEAR backing
	// 6 QD is CR=83%) must be rejected outright: valve's self-leverage
	// fallback only fires for a call that itself pushes a healthy
	// position under MinCR, not to rescue one that started there.
	p := c.fetchPledge("alice")
	p.Long.Credit = mathx.ONE
	p.Long.Debit = mathx.Ratio(mathx.ONE, big.NewInt(6), big.NewInt(1))
	addCredit(c.State.Pools().Live.sidePod(false), p.Long.Credit)
	addDebit(c.State.Pools().Live.sidePod(false), p.Long.Debit)
	c.touchIndex(p, false)
	c.save(p)

	env.SetAttached(big.NewInt(0))
	if err := c.Borrow(false, nil, mathx.ONE); err != ErrBelowMinCRToBorrow {
		t.Fatalf("expected ErrBelowMinCRToBorrow, got %v", err)
	}
}

func TestBorrowLongThenSwapRepay(t *testing.T) {
	c, env, token := newTestContract(nearPrice(5), 0.8)
	env.SetCaller("alice")
	env.SetAttached(mathx.ONE) // 1 NEAR attached

	borrowAmt := mathx.Ratio(mathx.ONE, big.NewInt(4), big.NewInt(1)) // 4 QD, CR = 5/4 = 125%
	if err := c.Borrow(false, nil, borrowAmt); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	if token.BalanceOf("alice").Cmp(borrowAmt) != 0 {
		t.Fatalf("expected alice to hold %s QD, got %s", borrowAmt, token.BalanceOf("alice"))
	}

	env.SetAttached(big.NewInt(0))
	if err := c.Swap(borrowAmt, true, false); err != nil {
		t.Fatalf("swap repay: %v", err)
	}
	p, ok := c.GetPledge("alice")
	if !ok {
		t.Fatalf("expected pledge to still exist after repay")
	}
	if p.Long.Debit.Sign() != 0 {
		t.Fatalf("expected debt fully repaid, got %s", p.Long.Debit)
	}
}

func TestBorrowBelowMinCRSelfLeverages(t *testing.T) {
	c, env, token := newTestContract(nearPrice(5), 0.8)
	env.SetCaller("alice")
	env.SetAttached(mathx.ONE) // 1 NEAR attached, worth 5 QD

	// Borrowing 4.8 QD against 5 QD of collateral is CR=104%, below
	// MinCR (110%): Borrow should fall through to valve and self-lever
	// the position back up rather than reject the call outright.
	borrowAmt := mathx.Ratio(mathx.ONE, big.NewInt(48), big.NewInt(10))
	if err := c.Borrow(false, nil, borrowAmt); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	// valve buys 4.8*1.1 - 5 = 0.28 QD of collateral value and pays for
	// it out of alice's liquid QD, leaving her 4.52 QD.
	wantQD := mathx.Ratio(mathx.ONE, big.NewInt(452), big.NewInt(100))
	if token.BalanceOf("alice").Cmp(wantQD) != 0 {
		t.Fatalf("expected alice to hold %s QD, got %s", wantQD, token.BalanceOf("alice"))
	}
	p, ok := c.GetPledge("alice")
	if !ok {
		t.Fatalf("expected pledge to exist")
	}
	price := nearPrice(5)
	cr := mathx.ComputeCR(price, p.Long.Credit, p.Long.Debit, false)
	if cr.Cmp(mathx.MinCR) < 0 {
		t.Fatalf("expected valve to leave CR>=MinCR, got %s", cr)
	}
	gfund := c.State.Pools().GFund.Long
	if gfund.Credit.Sign() == 0 {
		t.Fatalf("expected valve's fee to credit gfund")
	}
}

func TestClipSnatchesBelowKillCR(t *testing.T) {
	c, env, token := newTestContract(nearPrice(5), 0.8)
	env.SetCaller("bob")
	env.SetAttached(mathx.ONE)
	borrowAmt := mathx.Ratio(mathx.ONE, big.NewInt(45), big.NewInt(10)) // CR=5/4.5=111%
	if err := c.Borrow(false, nil, borrowAmt); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	// Bob has spent the borrowed QD, so the save has neither liquid QD
	// nor a SolvencyPool deposit to draw on.
	if err := token.Burn("bob", borrowAmt); err != nil {
		t.Fatalf("spend: %v", err)
	}

	// Price crashes; CR now 1/4.5 well below KillCR.
	c.Oracle = &StaticOracle{PriceE24: nearPrice(1), VolPct: 0.8}

	env.SetAttached(big.NewInt(1))
	if err := c.Clip("bob"); err != nil {
		t.Fatalf("clip: %v", err)
	}
	if _, ok := c.GetPledge("bob"); ok {
		if p, _ := c.GetPledge("bob"); p.Long.Debit.Sign() != 0 {
			t.Fatalf("expected long side fully seized")
		}
	}
	dead := c.State.Pools().Dead.Long
	if dead.Debit.Sign() == 0 {
		t.Fatalf("expected dead pool to carry bob's seized debt")
	}
}

func TestDepositRenegeRoundTrip(t *testing.T) {
	c, env, token := newTestContract(nearPrice(5), 0.8)
	env.SetCaller("carol")
	if err := token.Mint("carol", mathx.ONE); err != nil {
		t.Fatalf("seed mint: %v", err)
	}

	if err := c.Deposit(mathx.ONE); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	p, ok := c.GetPledge("carol")
	if !ok || p.Quid.Cmp(mathx.ONE) != 0 {
		t.Fatalf("expected carol's Quid to be credited")
	}

	env.SetAttached(big.NewInt(1))
	if err := c.Renege(mathx.ONE, true, true); err != nil {
		t.Fatalf("renege: %v", err)
	}
	fee := mathx.Ratio(mathx.ONE, mathx.Fee, mathx.ONE)
	net := mathx.CheckedSub(mathx.ONE, fee)
	if token.BalanceOf("carol").Cmp(net) != 0 {
		t.Fatalf("expected carol's net QD refunded (amount minus fee), got %s want %s", token.BalanceOf("carol"), net)
	}
}

func TestUpdateTooEarly(t *testing.T) {
	c, env, _ := newTestContract(nearPrice(5), 0.8)
	if err := c.Update(); err != nil {
		t.Fatalf("first update: %v", err)
	}
	env.AdvanceNS(1)
	if err := c.Update(); err != ErrTooEarly {
		t.Fatalf("expected ErrTooEarly, got %v", err)
	}
}
