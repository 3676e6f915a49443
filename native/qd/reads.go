package qd

import (
	"math/big"

	"qdchain/core/mathx"
	"qdchain/hostenv"
)

// GetPrice returns the oracle's current NEAR/USD reading.
func (c *Contract) GetPrice() (*big.Int, error) {
	return c.price()
}

// GetVol returns the oracle's current measured annualised volatility.
func (c *Contract) GetVol() (float64, error) {
	if c.Oracle == nil {
		return 0, ErrOracleUnset
	}
	return c.Oracle.Vol(), nil
}

// PoolStats is the read-only view returned by GetPoolStats: the raw pods
// for one pool plus their derived ratios, for dashboards and the CLI.
type PoolStats struct {
	Pool Pool
	// LongCR/ShortCR are each side's aggregate collateralization ratio,
	// treating the whole pool as one position.
	LongCR  *big.Int
	ShortCR *big.Int
}

// GetPoolStats returns one of the three long/short pools (live/dead/
// gfund) plus its aggregate CR per side. The SolvencyPool (blood) is not
// a Pool — it is a single unqualified Pod per spec.md §3 — and is read
// separately through GetSolvencyPoolStats.
func (c *Contract) GetPoolStats(name string) (*PoolStats, error) {
	price, err := c.price()
	if err != nil {
		return nil, err
	}
	var pool Pool
	switch name {
	case "live":
		pool = c.State.Pools().Live
	case "dead":
		pool = c.State.Pools().Dead
	case "gfund":
		pool = c.State.Pools().GFund
	default:
		return nil, ErrPledgeNotFound
	}
	return &PoolStats{
		Pool:    pool,
		LongCR:  crOf(price, pool.Long, false),
		ShortCR: crOf(price, pool.Short, true),
	}, nil
}

// GetSolvencyPoolStats returns the blood pool's raw Pod: credit is
// aggregate QD deposits, debit is aggregate NEAR deposits.
func (c *Contract) GetSolvencyPoolStats() Pod {
	return c.State.Pools().Blood
}

func crOf(price *big.Int, pod Pod, short bool) *big.Int {
	return mathx.ComputeCR(price, pod.Credit, pod.Debit, short)
}

// GetPledge returns the caller-specified account's pledge record, if any.
func (c *Contract) GetPledge(id hostenv.AccountID) (*Pledge, bool) {
	return c.State.GetPledge(id)
}

// GetQDBalance returns an account's QD token balance.
func (c *Contract) GetQDBalance(id hostenv.AccountID) *big.Int {
	return c.Token.BalanceOf(id)
}

// GetPledges returns every account id currently holding debt on the
// given side, riskiest first, per the sorted index.
func (c *Contract) GetPledges(short bool) []hostenv.AccountID {
	return c.State.Index().Ascending(short)
}

// GetPledgeStats returns the cached risk metrics stress_pledge last
// computed for an account, if it has one on record.
func (c *Contract) GetPledgeStats(id hostenv.AccountID) (PledgeStats, bool) {
	p, ok := c.State.GetPledge(id)
	if !ok {
		return PledgeStats{}, false
	}
	return p.Stats, true
}
