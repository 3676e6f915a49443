package qd

import (
	"math/big"
	"testing"

	"qdchain/core/mathx"
)

func TestPausedBorrowRejected(t *testing.T) {
	c, env, _ := newTestContract(nearPrice(5), 0.8)
	env.SetCaller("dave")
	env.SetAttached(mathx.ONE)
	c.Pause.SetPaused(ModuleBorrow, true)

	err := c.Borrow(false, nil, big.NewInt(1))
	if err == nil {
		t.Fatalf("expected borrow to be rejected while paused")
	}
}
