// Package hostenv abstracts the blockchain host runtime behind a narrow
// capability interface, per spec.md §9 "Host-runtime decoupling": the
// engine never talks to a chain SDK directly, only to Env and Token, which
// makes the core testable without any host at all.
package hostenv

import (
	"errors"
	"math/big"
)

// ErrOneYoctoRequired is returned by AssertOneYocto when the caller did not
// attach the smallest host-native unit, the replay-protection convention
// spec.md §6 requires on state-mutating commands.
var ErrOneYoctoRequired = errors.New("qd: requires attached deposit of exactly one yocto")

// AccountID identifies a protocol participant. The host chain's account
// model, authentication, and key management are explicitly out of scope
// per spec.md §1; AccountID is treated as an opaque, comparable identifier.
type AccountID string

// Env is the capability surface the engine needs from its host: caller
// identity, self identity, wall-clock time, and native-asset transfer
// primitives. A production binding implements this against the real chain
// runtime; tests and the CLI use MemEnv.
type Env interface {
	// Caller returns the account that signed the current call.
	Caller() AccountID
	// SelfID returns this contract's own account identifier.
	SelfID() AccountID
	// NowNS returns the current host block timestamp in nanoseconds.
	NowNS() uint64
	// NativeBalance returns this contract's current native-asset balance,
	// scaled by mathx.ONE like every other balance in the engine.
	NativeBalance() *big.Int
	// AttachedNative returns the native-asset amount attached to the
	// current call (zero outside payable commands), scaled by mathx.ONE.
	AttachedNative() *big.Int
	// AssertOneYocto returns ErrOneYoctoRequired unless exactly one yocto
	// of native asset was attached to the current call.
	AssertOneYocto() error
	// TransferNative sends amount of the native asset to the given
	// account. It never panics; a transport failure is returned as an
	// error so the caller can decide whether it is fatal to the op.
	TransferNative(to AccountID, amount *big.Int) error
}
