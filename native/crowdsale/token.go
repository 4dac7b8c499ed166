package crowdsale

import "github.com/holiman/uint256"

// TokenLedger is the capability interface through which the sale touches the
// token contract. The token is an external collaborator: the engine never
// inspects its internals and treats every call as potentially reentrant.
type TokenLedger interface {
	// BalanceOf reads the token balance held by addr.
	BalanceOf(addr [20]byte) (*uint256.Int, error)
	// Transfer moves tokens along the standard path, subject to whatever
	// restrictions the token enforces.
	Transfer(from, to [20]byte, amount *uint256.Int) error
	// TransferToken is the privileged issuance path used by the purchase
	// flow. It bypasses any pause the token applies to ordinary transfers.
	TransferToken(to [20]byte, amount *uint256.Int) error
	// NeedALight destroys amount of supply held by holder. Used at
	// finalization to burn the unsold balance in the vault.
	NeedALight(holder [20]byte, amount *uint256.Int) error
}
