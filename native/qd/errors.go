package qd

import "errors"

// Domain errors, per spec.md §7. Arithmetic failures panic (see
// core/mathx); these are ordinary fatal-to-the-call errors returned to
// the caller, matching the teacher's native/lending sentinel-error block.
var (
	ErrAmountNotPositive     = errors.New("qd: amount must be larger than 0")
	ErrUpdateInProgress      = errors.New("qd: update in progress")
	ErrBelowMinCRToBorrow    = errors.New("qd: cannot borrow while your current CR is below minimum")
	ErrBelowMinCR            = errors.New("qd: CR below min")
	ErrInsufficientLiquidity = errors.New("qd: insufficient NEAR/QD in the contract to clear this redemption/inversion")
	ErrNotSupposedToLiquidate = errors.New("qd: borrower was not supposed to be liquidated")
	ErrSCRZero               = errors.New("qd: SCR can't be 0")
	ErrTooEarly              = errors.New("qd: too early to run an update")
	ErrPledgeNotFound        = errors.New("qd: pledge doesn't exist")
	ErrSolvencyTargetRange   = errors.New("qd: allowable SolvencyTarget range is 100-200%")
	ErrNilState              = errors.New("qd: state not configured")
	ErrOracleUnset           = errors.New("qd: oracle not configured")
)
