package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalCDFInverseKnownPoints(t *testing.T) {
	require.InDelta(t, 0.0, NormalCDFInverse(0.5), 1e-6)
	require.InDelta(t, 1.2815515655446004, NormalCDFInverse(0.9), 1e-6)
	require.InDelta(t, -1.2815515655446004, NormalCDFInverse(0.1), 1e-6)
}

func TestStressAgreesWithZeroVolAtZeroSigma(t *testing.T) {
	if s := Stress(false, 0, true); math.Abs(s) > 1e-12 {
		t.Fatalf("stress(avg=false, sigma=0, short) = %v, want ~0", s)
	}
	if s := Stress(true, 0, false); math.Abs(s) > 1e-12 {
		t.Fatalf("stress(avg=true, sigma=0, long) = %v, want ~0", s)
	}
}

func TestStressShortIsPositiveForPositiveVol(t *testing.T) {
	s := Stress(false, 0.5, true)
	if s <= 0 {
		t.Fatalf("expected positive short stress move, got %v", s)
	}
}

func TestScaleClampsToBounds(t *testing.T) {
	if s := Scale(1.1, 100); s != 0.042 {
		t.Fatalf("expected floor clamp, got %v", s)
	}
	if s := Scale(100, 0.001); s != 4.2 {
		t.Fatalf("expected ceiling clamp, got %v", s)
	}
}

func TestSCRRequiresPositiveGap(t *testing.T) {
	if _, err := SCR(100, 120); err != ErrSCRZero {
		t.Fatalf("expected ErrSCRZero, got %v", err)
	}
	scr, err := SCR(120, 100)
	require.NoError(t, err)
	require.InDelta(t, 20, scr, 1e-9)
}

func TestPriceClampedToRange(t *testing.T) {
	rate := Price(1, 1, 100, 100, 1e-9, false)
	if rate < minRate*1 || rate > maxRate {
		t.Fatalf("rate %v out of clamp range", rate)
	}
	rate = Price(1, 1, 100, 100, 10, false)
	if rate > maxRate {
		t.Fatalf("rate %v exceeds ceiling", rate)
	}
}
