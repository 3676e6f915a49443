package hostenv

import "math/big"

// Token is the fungible-token ledger collaborator for QD, the protocol's
// USD-pegged stablecoin. Its balance map, transfer semantics, and
// metadata are explicitly out of scope per spec.md §1; the engine only
// ever mints, burns, transfers, and reads balances through this interface.
type Token interface {
	BalanceOf(account AccountID) *big.Int
	Mint(to AccountID, amount *big.Int) error
	Burn(from AccountID, amount *big.Int) error
	Transfer(from, to AccountID, amount *big.Int) error
}
