package types

import "github.com/holiman/uint256"

// Account tracks the balances held by a single address: the base currency
// (wei) used to contribute to the sale, and the sale token itself.
type Account struct {
	Nonce   uint64       `json:"nonce"`
	Balance *uint256.Int `json:"balance"`
	Tokens  *uint256.Int `json:"tokens"`
}

// EnsureAccount returns a usable account for the given value, initialising
// nil balances so callers never have to nil-check individual fields.
func EnsureAccount(acc *Account) *Account {
	if acc == nil {
		return &Account{Balance: uint256.NewInt(0), Tokens: uint256.NewInt(0)}
	}
	if acc.Balance == nil {
		acc.Balance = uint256.NewInt(0)
	}
	if acc.Tokens == nil {
		acc.Tokens = uint256.NewInt(0)
	}
	return acc
}

// Clone returns a deep copy of the account so callers can safely mutate the
// copy without affecting the stored instance.
func (a *Account) Clone() *Account {
	if a == nil {
		return EnsureAccount(nil)
	}
	clone := &Account{Nonce: a.Nonce, Balance: uint256.NewInt(0), Tokens: uint256.NewInt(0)}
	if a.Balance != nil {
		clone.Balance = new(uint256.Int).Set(a.Balance)
	}
	if a.Tokens != nil {
		clone.Tokens = new(uint256.Int).Set(a.Tokens)
	}
	return clone
}
