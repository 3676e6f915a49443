// Command qd is a local harness for the QD engine: it boots an
// in-memory Env/Token/Oracle/State quadruple and dispatches spec.md §6's
// commands and reads against it, grounded on cmd/nhb/main.go's
// flag-based CLI and config-loading pattern.
package main

import (
	"errors"
	"flag"
	"fmt"
	"math/big"
	"os"

	"qdchain/config"
	"qdchain/core/mathx"
	"qdchain/hostenv"
	"qdchain/native/qd"
	"qdchain/observability/logging"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a TOML config file")
		caller     = flag.String("caller", "dev.near", "account id to act as")
		cmd        = flag.String("cmd", "help", "command to run: borrow|swap|redeem|invert|deposit|renege|clip|fold|update|price|pools|pledge")
		short      = flag.Bool("short", false, "operate on the short side")
		repay      = flag.Bool("repay", false, "for swap: repay own debt instead of a market redemption/inversion")
		sp         = flag.Bool("sp", false, "for renege: withdraw from the SolvencyPool deposit instead of collateral")
		qd         = flag.Bool("qd", false, "for renege: withdraw the QD leg instead of the NEAR leg")
		amount     = flag.String("amount", "0", "decimal amount argument, in whole QD/NEAR units")
		attach     = flag.String("attach", "0", "decimal NEAR amount to attach to this call")
		pool       = flag.String("pool", "live", "pool name for the pools read: live|dead|gfund|blood")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logging.Setup(cfg.Service.Name, "")

	priceFixed, err := cfg.Oracle.PriceFixed(mathx.ONE)
	if err != nil {
		log.Error("invalid oracle config", "error", err)
		os.Exit(1)
	}

	env := hostenv.NewMemEnv("qd.contract", 0)
	env.SetCaller(hostenv.AccountID(*caller))
	token := hostenv.NewMemToken()
	oracle := &qd.StaticOracle{PriceE24: priceFixed, VolPct: cfg.Oracle.VolPct}
	state := qd.NewMemState()
	c := qd.New(env, token, oracle, state)
	c.Log = log

	amt, err := parseFixed(*amount)
	if err != nil {
		log.Error("invalid -amount", "error", err)
		os.Exit(1)
	}
	attached, err := parseFixed(*attach)
	if err != nil {
		log.Error("invalid -attach", "error", err)
		os.Exit(1)
	}
	env.SetAttached(attached)

	if err := run(c, *cmd, *short, *repay, *sp, *qd, amt, *pool); err != nil {
		log.Error("command failed", "cmd", *cmd, "error", err)
		os.Exit(1)
	}
}

func parseFixed(s string) (*big.Int, error) {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("invalid decimal amount %q", s)
	}
	scaled := new(big.Int).Mul(r.Num(), mathx.ONE)
	return new(big.Int).Quo(scaled, r.Denom()), nil
}

func run(c *qd.Contract, cmd string, short, repay, sp, qdLeg bool, amount *big.Int, poolName string) error {
	switch cmd {
	case "borrow":
		return c.Borrow(short, amount, amount)
	case "swap":
		return c.Swap(amount, repay, short)
	case "redeem":
		return c.Redeem(amount)
	case "invert":
		return c.Invert()
	case "deposit":
		return c.Deposit(amount)
	case "renege":
		return c.Renege(amount, sp, qdLeg)
	case "clip":
		return c.Clip(c.Env.Caller())
	case "fold":
		return c.Fold(short)
	case "update":
		return c.Update()
	case "price":
		price, err := c.GetPrice()
		if err != nil {
			return err
		}
		fmt.Println(price.String())
		return nil
	case "pools":
		if poolName == "blood" {
			stats := c.GetSolvencyPoolStats()
			fmt.Printf("blood: credit=%s debit=%s\n", stats.Credit, stats.Debit)
			return nil
		}
		stats, err := c.GetPoolStats(poolName)
		if err != nil {
			return err
		}
		fmt.Printf("long: credit=%s debit=%s cr=%s\n", stats.Pool.Long.Credit, stats.Pool.Long.Debit, stats.LongCR)
		fmt.Printf("short: credit=%s debit=%s cr=%s\n", stats.Pool.Short.Credit, stats.Pool.Short.Debit, stats.ShortCR)
		return nil
	case "pledge":
		p, ok := c.GetPledge(c.Env.Caller())
		if !ok {
			return errors.New("qd: no pledge on record for caller")
		}
		fmt.Printf("long: credit=%s debit=%s\n", p.Long.Credit, p.Long.Debit)
		fmt.Printf("short: credit=%s debit=%s\n", p.Short.Credit, p.Short.Debit)
		return nil
	default:
		flag.Usage()
		return nil
	}
}
