package hostenv

import (
	"fmt"
	"math/big"
	"sync"
)

// MemEnv is an in-memory Env implementation for tests and the CLI,
// mirroring the hand-rolled in-memory state fakes the teacher's own
// engine tests use (e.g. native/lending's mock engineState) rather than a
// mocking framework.
type MemEnv struct {
	mu sync.Mutex

	caller   AccountID
	self     AccountID
	now      uint64
	balances map[AccountID]*big.Int
	attached *big.Int
}

// NewMemEnv constructs an in-memory host environment for the given
// contract identity, starting the clock at nowNS nanoseconds.
func NewMemEnv(self AccountID, nowNS uint64) *MemEnv {
	return &MemEnv{
		self:     self,
		now:      nowNS,
		balances: make(map[AccountID]*big.Int),
		attached: big.NewInt(0),
	}
}

// SetCaller fixes the account that subsequent calls are attributed to.
func (e *MemEnv) SetCaller(id AccountID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.caller = id
}

// SetAttached fixes the native-asset amount the next call will report as
// attached.
func (e *MemEnv) SetAttached(amount *big.Int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attached = new(big.Int).Set(amount)
}

// AdvanceNS moves the host clock forward by delta nanoseconds.
func (e *MemEnv) AdvanceNS(delta uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now += delta
}

// Credit adds amount of native asset to account's balance, used to seed
// test fixtures.
func (e *MemEnv) Credit(account AccountID, amount *big.Int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	prev := e.balances[account]
	if prev == nil {
		prev = big.NewInt(0)
	}
	e.balances[account] = new(big.Int).Add(prev, amount)
}

func (e *MemEnv) Caller() AccountID { return e.caller }
func (e *MemEnv) SelfID() AccountID { return e.self }
func (e *MemEnv) NowNS() uint64     { return e.now }

func (e *MemEnv) NativeBalance() *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	bal := e.balances[e.self]
	if bal == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(bal)
}

func (e *MemEnv) AttachedNative() *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return new(big.Int).Set(e.attached)
}

func (e *MemEnv) AssertOneYocto() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.attached.Cmp(big.NewInt(1)) != 0 {
		return ErrOneYoctoRequired
	}
	return nil
}

func (e *MemEnv) TransferNative(to AccountID, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	from := e.balances[e.self]
	if from == nil || from.Cmp(amount) < 0 {
		return fmt.Errorf("qd: insufficient native balance to transfer %s", amount)
	}
	e.balances[e.self] = new(big.Int).Sub(from, amount)
	prev := e.balances[to]
	if prev == nil {
		prev = big.NewInt(0)
	}
	e.balances[to] = new(big.Int).Add(prev, amount)
	return nil
}

// MemToken is an in-memory Token implementation backing the QD ledger for
// tests and the CLI.
type MemToken struct {
	mu       sync.Mutex
	balances map[AccountID]*big.Int
}

// NewMemToken constructs an empty in-memory QD ledger.
func NewMemToken() *MemToken {
	return &MemToken{balances: make(map[AccountID]*big.Int)}
}

func (t *MemToken) BalanceOf(account AccountID) *big.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	bal := t.balances[account]
	if bal == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(bal)
}

func (t *MemToken) Mint(to AccountID, amount *big.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("qd: mint amount must be non-negative")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	prev := t.balances[to]
	if prev == nil {
		prev = big.NewInt(0)
	}
	t.balances[to] = new(big.Int).Add(prev, amount)
	return nil
}

func (t *MemToken) Burn(from AccountID, amount *big.Int) error {
	if amount.Sign() < 0 {
		return fmt.Errorf("qd: burn amount must be non-negative")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	prev := t.balances[from]
	if prev == nil || prev.Cmp(amount) < 0 {
		return fmt.Errorf("qd: insufficient QD balance to burn %s", amount)
	}
	t.balances[from] = new(big.Int).Sub(prev, amount)
	return nil
}

func (t *MemToken) Transfer(from, to AccountID, amount *big.Int) error {
	if err := t.Burn(from, amount); err != nil {
		return err
	}
	return t.Mint(to, amount)
}
