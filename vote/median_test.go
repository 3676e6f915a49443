package vote

import (
	"math/big"
	"testing"
)

func TestWeightedMedianPicksMidpoint(t *testing.T) {
	ballots := []Ballot{
		{Value: big.NewInt(100), Weight: big.NewInt(1)},
		{Value: big.NewInt(110), Weight: big.NewInt(5)},
		{Value: big.NewInt(150), Weight: big.NewInt(1)},
	}
	got := WeightedMedian(ballots)
	if got.Cmp(big.NewInt(110)) != 0 {
		t.Fatalf("expected 110, got %s", got)
	}
}

func TestWeightedMedianEmpty(t *testing.T) {
	if got := WeightedMedian(nil); got != nil {
		t.Fatalf("expected nil for empty ballots, got %s", got)
	}
}

func TestWeightedMedianAllZeroWeight(t *testing.T) {
	ballots := []Ballot{{Value: big.NewInt(100), Weight: big.NewInt(0)}}
	if got := WeightedMedian(ballots); got != nil {
		t.Fatalf("expected nil for all-zero weight, got %s", got)
	}
}
