package qd

import (
	"math/big"

	"qdchain/core/mathx"
	"qdchain/core/risk"
	"qdchain/hostenv"
)

func toFloat(v *big.Int) float64 {
	f := new(big.Float).SetInt(nz(v))
	f.Quo(f, new(big.Float).SetInt(mathx.ONE))
	out, _ := f.Float64()
	return out
}

func fromFloat(v float64) *big.Int {
	if v < 0 {
		v = 0
	}
	f := new(big.Float).SetFloat64(v)
	f.Mul(f, new(big.Float).SetInt(mathx.ONE))
	out, _ := f.Int(nil)
	return out
}

// scaleFor calibrates the implied-volatility multiplier for one side,
// per spec.md §4.11: own funds are the guarantee fund plus SolvencyPool
// capital backing that side; a one-sided 90% stress shock models how
// much of that capital would remain; the ratio of pre- to post-stress
// capital feeds SCR/Solvency, which is then calibrated against the
// live governance-voted solvency target.
func (c *Contract) scaleFor(short bool, vol float64) float64 {
	gfund := c.State.Pools().GFund.sidePod(short)
	blood := &c.State.Pools().Blood
	ownN := toFloat(gfund.Credit) + toFloat(blood.Credit)
	if ownN <= 0 {
		return 4.2
	}
	stressMove := risk.Stress(false, vol, short)
	ownS := ownN * (1 - stressMove)
	if ownS < 0 {
		ownS = 0
	}
	scr, err := risk.SCR(ownN, ownS)
	if err != nil {
		return 4.2
	}
	solvency := risk.Solvency(ownN, scr)
	target := toFloat(c.State.SolvencyTarget())
	return risk.Scale(target, solvency)
}

// stressPledge recomputes one side's cached risk metrics: stressed
// collateral/debt, the period's expected loss, and the amortized
// premium rate/amount due, per spec.md §4.10 steps 1-5, then collects the
// period's premium via collectPremium (step 6). It is the unit of work
// update() batches across the riskiest pledges each call.
func (c *Contract) stressPledge(id hostenv.AccountID, short bool) {
	p, ok := c.State.GetPledge(id)
	if !ok {
		return
	}
	side := p.sidePodPtr(short)
	stats := &p.Stats.Long
	if short {
		stats = &p.Stats.Short
	}
	if side.Debit.Sign() == 0 {
		*stats = zeroSideStats()
		c.save(p)
		return
	}

	price, err := c.price()
	if err != nil {
		return
	}
	priceF := toFloat(price)
	vol := 0.0
	if c.Oracle != nil {
		vol = c.Oracle.Vol()
	}
	scale := c.scaleFor(short, vol)
	sigma := vol * scale

	var valCrypto, valQD float64
	if short {
		valCrypto = toFloat(side.Debit) * priceF
		valQD = toFloat(side.Credit)
	} else {
		valCrypto = toFloat(side.Credit) * priceF
		valQD = toFloat(side.Debit)
	}

	avgMove := risk.Stress(true, sigma, short)
	stressMove := risk.Stress(false, sigma, short)

	stressedCollateral := valCrypto * (1 - stressMove)
	if short {
		stressedCollateral = valCrypto * (1 + stressMove)
	}
	loss := valQD - stressedCollateral
	if loss < 0 {
		loss = 0
	}
	avgLoss := valQD * avgMove
	if avgLoss < 0 {
		avgLoss = 0
	}

	rate := risk.Price(1.0, scale, valCrypto, valQD, sigma, short)
	premium := toFloat(side.Credit) * rate / float64(mathx.Period)

	stats.StressedCollateral = fromFloat(stressedCollateral)
	stats.StressedDebt = fromFloat(valQD)
	stats.Loss = fromFloat(loss)
	stats.AvgLoss = fromFloat(avgLoss)
	stats.RateE24 = fromFloat(rate)
	stats.Premiums = fromFloat(premium)

	c.collectPremium(p, side, short, stats)

	c.touchIndex(p, short)
	c.save(p)
	c.Metrics.ObservePremiumRate(short, rate)
}

// collectPremium performs spec.md §4.10 step 6: the period's premium is
// deducted from the pledge's own collateral on that side (never its
// debt, so collecting a premium can't itself push a position toward
// liquidation beyond what the stress test already modeled), 1/11 of it
// moves to gfund, and the remainder reduces what the SolvencyPool is
// owed from dead.{side}.debit — or, once that is exhausted, is instead
// credited onto the opposite side's dead pool as a windfall cushion for
// that market's own bad debt.
func (c *Contract) collectPremium(p *Pledge, side *Pod, short bool, stats *SideStats) {
	due := stats.Premiums
	if due == nil || due.Sign() <= 0 {
		return
	}
	deduct := mathx.Min(due, side.Credit)
	if deduct.Sign() == 0 {
		return
	}

	side.Credit = mathx.CheckedSub(side.Credit, deduct)
	subCredit(c.State.Pools().Live.sidePod(short), deduct)
	stats.Premiums = mathx.CheckedSub(due, deduct)

	gfCut := mathx.Ratio(deduct, big.NewInt(1), big.NewInt(11))
	addCredit(c.State.Pools().GFund.sidePod(short), gfCut)

	remainder := mathx.CheckedSub(deduct, gfCut)
	dead := c.State.Pools().Dead.sidePod(short)
	if dead.Debit.Sign() > 0 {
		reduce := mathx.Min(remainder, dead.Debit)
		subDebit(dead, reduce)
		remainder = mathx.CheckedSub(remainder, reduce)
	}
	if remainder.Sign() > 0 {
		addCredit(c.State.Pools().Dead.sidePod(!short), remainder)
	}
}

// Update is the protocol's periodic maintenance crank: once every
// EightHoursNanos it restresses the UpdateBatch riskiest pledges on each
// side, refreshing their premium rates and collecting each one's premium
// for the period. Per spec.md
// §5 it holds the UpdateInProgress gate for its whole batch so no
// borrow/valve/clip/swap call can observe a half-updated book.
func (c *Contract) Update() error {
	last := c.State.LastUpdateNS()
	now := c.Env.NowNS()
	if last != 0 && now < last+mathx.EightHoursNanos {
		c.Metrics.ObserveUpdate(true)
		return ErrTooEarly
	}

	c.State.SetUpdateInProgress(true)
	defer c.State.SetUpdateInProgress(false)

	for _, short := range []bool{false, true} {
		for _, id := range c.State.Index().Top(short, mathx.UpdateBatch) {
			c.stressPledge(id, short)
		}
	}

	// A stamp of 0 reads as "never run" above, so a cycle completing at
	// host time 0 is stamped 1 to keep the cooldown in force.
	if now == 0 {
		now = 1
	}
	c.State.SetLastUpdateNS(now)
	c.Metrics.ObserveUpdate(false)
	return nil
}
