// Package mathx implements the fixed-point arithmetic shared by every pool
// and pledge mutation in the qd engine. All balances are unsigned integers
// scaled by ONE; every operation here is checked and panics with one of the
// four named strings from spec.md §7 rather than silently wrapping.
package mathx

import (
	"math/big"

	"github.com/holiman/uint256"
)

// ONE is the fixed-point scale shared by every balance, price, and ratio in
// the engine: 10^24 base units per whole unit.
var ONE = mustBig("1000000000000000000000000")

// MinCR is the minimum collateralization ratio a position must maintain to
// borrow or to survive a `clip` without a rescue.
var MinCR = ratioConst(11, 10)

// KillCR is the ratio below which a position is fully liquidated rather
// than partially shrunk.
var KillCR = new(big.Int).Set(ONE)

// Fee is the protocol fee rate, 1/110 ≈ 0.00909·ONE, applied to `renege`
// withdrawals and `valve` self-leverage mints.
var Fee = ratioConst(1, 110)

// Period is the number of 8-hour stress periods per year used to amortize
// premium rates into a per-period charge.
const Period = 1095

// EightHoursNanos is the minimum interval between `update` crank cycles.
const EightHoursNanos uint64 = 28_800 * 1_000_000_000

// UpdateBatch bounds the number of pledges `update` cranks per call.
const UpdateBatch = 42

// TurnFromBatch bounds the number of pledges `turnFrom` inspects per call.
const TurnFromBatch = 10

// MaxCR is the sentinel value standing in for an infinite collateralization
// ratio (collateral present, zero debt).
var MaxCR = mustBig("1000000000000000000000000000000")

func mustBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("mathx: invalid constant " + s)
	}
	return v
}

func ratioConst(num, den int64) *big.Int {
	return Ratio(ONE, big.NewInt(num), big.NewInt(den))
}

// toUint256 narrows a non-negative big.Int into a uint256.Int, panicking
// with the spec's named overflow string if the value does not fit in 256
// bits. Every balance in this engine is expected to remain well inside that
// bound; a value that doesn't indicates upstream corruption.
func toUint256(v *big.Int) *uint256.Int {
	if v == nil {
		return uint256.NewInt(0)
	}
	if v.Sign() < 0 {
		panic("Subtraction underflow")
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		panic("Multiplication overflow")
	}
	return out
}

// Ratio computes (n·m)/d using a 256-bit intermediate product, matching
// spec.md §4.1. It panics with "Multiplication overflow" if n·m exceeds 256
// bits and "Division overflow" if d is zero.
func Ratio(m, n, d *big.Int) *big.Int {
	if d == nil || d.Sign() == 0 {
		panic("Division overflow")
	}
	mm, nn := toUint256(m), toUint256(n)
	product, overflow := new(uint256.Int).MulOverflow(mm, nn)
	if overflow {
		panic("Multiplication overflow")
	}
	dd := toUint256(d)
	quotient := new(uint256.Int).Div(product, dd)
	return quotient.ToBig()
}

// CheckedAdd returns a+b, panicking with "Addition overflow" if the 256-bit
// sum would overflow.
func CheckedAdd(a, b *big.Int) *big.Int {
	aa, bb := toUint256(a), toUint256(b)
	sum, overflow := new(uint256.Int).AddOverflow(aa, bb)
	if overflow {
		panic("Addition overflow")
	}
	return sum.ToBig()
}

// CheckedSub returns a-b, panicking with "Subtraction underflow" if b>a.
func CheckedSub(a, b *big.Int) *big.Int {
	aa, bb := toUint256(a), toUint256(b)
	if bb.Cmp(aa) > 0 {
		panic("Subtraction underflow")
	}
	diff := new(uint256.Int).Sub(aa, bb)
	return diff.ToBig()
}

// Min returns the smaller of two big.Ints without mutating either argument.
func Min(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}

// Max returns the larger of two big.Ints without mutating either argument.
func Max(a, b *big.Int) *big.Int {
	if a.Cmp(b) >= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}

// ZeroClamp returns v if v is non-negative, else zero. Used after
// subtractions whose sign the caller cannot otherwise guarantee (e.g.
// valvePlan's net-value term).
func ZeroClamp(v *big.Int) *big.Int {
	if v.Sign() < 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// ComputeCR implements spec.md §3/§4.1's collateralization ratio:
//   - long:  CR = price·credit/debit
//   - short: CR = credit/(price·debit/ONE)
//
// CR is expressed in the same ONE scale as every other fixed-point value.
// debit=0,credit=0 -> 0; debit=0,credit>0 -> MaxCR; debit>0,credit=0 -> 0.
func ComputeCR(price, credit, debit *big.Int, short bool) *big.Int {
	if debit.Sign() == 0 && credit.Sign() == 0 {
		return big.NewInt(0)
	}
	if debit.Sign() == 0 {
		return new(big.Int).Set(MaxCR)
	}
	if credit.Sign() == 0 {
		return big.NewInt(0)
	}
	if !short {
		return Ratio(price, credit, debit)
	}
	value := Ratio(price, debit, ONE)
	if value.Sign() == 0 {
		return new(big.Int).Set(MaxCR)
	}
	return Ratio(credit, ONE, value)
}
