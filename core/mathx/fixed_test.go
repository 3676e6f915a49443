package mathx

import (
	"math/big"
	"testing"
)

func TestComputeCRLongScenario1(t *testing.T) {
	price := big.NewInt(0).Mul(big.NewInt(5), ONE)
	credit := big.NewInt(0).Mul(big.NewInt(2), ONE)
	debit := big.NewInt(0).Mul(big.NewInt(5), ONE)

	cr := ComputeCR(price, credit, debit, false)
	want := big.NewInt(0).Mul(big.NewInt(2), ONE)
	if cr.Cmp(want) != 0 {
		t.Fatalf("CR = %s, want %s", cr, want)
	}
}

func TestComputeCRShortScenario4(t *testing.T) {
	price := big.NewInt(0).Mul(big.NewInt(5), ONE)
	credit := big.NewInt(0).Mul(big.NewInt(5), ONE) // inverted NEAR->QD collateral
	debit := new(big.Int).Set(ONE)                  // 1 NEAR debt

	cr := ComputeCR(price, credit, debit, true)
	if cr.Cmp(ONE) != 0 {
		t.Fatalf("CR = %s, want exactly ONE (100%%)", cr)
	}
}

func TestComputeCRZeroBoth(t *testing.T) {
	if cr := ComputeCR(ONE, big.NewInt(0), big.NewInt(0), false); cr.Sign() != 0 {
		t.Fatalf("expected 0, got %s", cr)
	}
}

func TestComputeCRCollateralOnly(t *testing.T) {
	cr := ComputeCR(ONE, ONE, big.NewInt(0), false)
	if cr.Cmp(MaxCR) != 0 {
		t.Fatalf("expected MaxCR, got %s", cr)
	}
}

func TestComputeCRDebtOnly(t *testing.T) {
	cr := ComputeCR(ONE, big.NewInt(0), ONE, false)
	if cr.Sign() != 0 {
		t.Fatalf("expected 0, got %s", cr)
	}
}

func TestComputeCRMonotone(t *testing.T) {
	price := ONE
	credit := big.NewInt(0).Mul(big.NewInt(3), ONE)
	debit := big.NewInt(0).Mul(big.NewInt(2), ONE)

	base := ComputeCR(price, credit, debit, false)
	moreCredit := ComputeCR(price, new(big.Int).Add(credit, ONE), debit, false)
	if moreCredit.Cmp(base) < 0 {
		t.Fatalf("raising credit lowered CR: %s -> %s", base, moreCredit)
	}
	lessDebit := ComputeCR(price, credit, new(big.Int).Sub(debit, ONE), false)
	if lessDebit.Cmp(base) < 0 {
		t.Fatalf("lowering debit lowered CR: %s -> %s", base, lessDebit)
	}
}

func TestCheckedSubUnderflowPanics(t *testing.T) {
	defer func() {
		r := recover()
		if r != "Subtraction underflow" {
			t.Fatalf("expected underflow panic, got %v", r)
		}
	}()
	CheckedSub(big.NewInt(1), big.NewInt(2))
}

func TestRatioDivisionByZeroPanics(t *testing.T) {
	defer func() {
		r := recover()
		if r != "Division overflow" {
			t.Fatalf("expected division overflow panic, got %v", r)
		}
	}()
	Ratio(ONE, ONE, big.NewInt(0))
}

func TestCheckedAddRoundTrip(t *testing.T) {
	a := big.NewInt(0).Mul(big.NewInt(7), ONE)
	b := big.NewInt(0).Mul(big.NewInt(3), ONE)
	sum := CheckedAdd(a, b)
	want := big.NewInt(0).Mul(big.NewInt(10), ONE)
	if sum.Cmp(want) != 0 {
		t.Fatalf("sum = %s, want %s", sum, want)
	}
}
