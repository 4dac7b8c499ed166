// Package state implements the durable ledger backing the crowdsale engine:
// base-currency accounts, the sale token, the persisted sale state and
// purchase receipts, all stored in a pluggable key-value database.
package state

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"salechain/core/types"
	"salechain/native/common"
	"salechain/storage"
)

const (
	accountPrefix = "acct/"
	receiptPrefix = "sale/receipt/"
	saleKey       = "sale/state"
	escrowKey     = "sale/escrow"
	supplyKey     = "token/supply"
)

var (
	ErrInsufficientFunds  = errors.New("state: insufficient balance")
	ErrInsufficientTokens = errors.New("state: insufficient token balance")
	ErrBurnExceedsSupply  = errors.New("state: burn exceeds token supply")
)

// Ledger is the single writer over the underlying database. It serves three
// capability surfaces consumed by the crowdsale engine: the base-currency
// bank, the token ledger and the sale-state store.
type Ledger struct {
	mu         sync.Mutex
	db         storage.Database
	tokenVault [20]byte
	paused     map[string]bool
}

// NewLedger wraps db. tokenVault is the account whose token balance feeds
// the privileged issuance path.
func NewLedger(db storage.Database, tokenVault [20]byte) *Ledger {
	return &Ledger{db: db, tokenVault: tokenVault, paused: make(map[string]bool)}
}

// SetPaused toggles the pause flag for a named module surface. Only the
// standard token transfer path honours it.
func (l *Ledger) SetPaused(module string, paused bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paused[module] = paused
}

// IsPaused implements common.PauseView.
func (l *Ledger) IsPaused(module string) bool {
	return l.paused[module]
}

func accountKey(addr [20]byte) []byte {
	return []byte(accountPrefix + hex.EncodeToString(addr[:]))
}

func (l *Ledger) getAccount(addr [20]byte) (*types.Account, error) {
	raw, err := l.db.Get(accountKey(addr))
	if errors.Is(err, storage.ErrNotFound) {
		return types.EnsureAccount(nil), nil
	}
	if err != nil {
		return nil, err
	}
	acc := &types.Account{}
	if err := json.Unmarshal(raw, acc); err != nil {
		return nil, fmt.Errorf("state: decode account: %w", err)
	}
	return types.EnsureAccount(acc), nil
}

func (l *Ledger) putAccount(addr [20]byte, acc *types.Account) error {
	raw, err := json.Marshal(types.EnsureAccount(acc))
	if err != nil {
		return fmt.Errorf("state: encode account: %w", err)
	}
	return l.db.Put(accountKey(addr), raw)
}

// GetAccount returns a copy of the account stored for addr. Missing accounts
// read as zero-balance accounts.
func (l *Ledger) GetAccount(addr [20]byte) (*types.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, err := l.getAccount(addr)
	if err != nil {
		return nil, err
	}
	return acc.Clone(), nil
}

// Credit adds amount of base currency to addr. Used by genesis allocation.
func (l *Ledger) Credit(addr [20]byte, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, err := l.getAccount(addr)
	if err != nil {
		return err
	}
	acc.Balance = new(uint256.Int).Add(acc.Balance, amount)
	return l.putAccount(addr, acc)
}

// Transfer moves base currency between accounts. Implements escrow.Bank.
func (l *Ledger) Transfer(from, to [20]byte, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if amount == nil || amount.IsZero() {
		return nil
	}
	fromAcc, err := l.getAccount(from)
	if err != nil {
		return err
	}
	if fromAcc.Balance.Lt(amount) {
		return ErrInsufficientFunds
	}
	toAcc, err := l.getAccount(to)
	if err != nil {
		return err
	}
	fromAcc.Balance = new(uint256.Int).Sub(fromAcc.Balance, amount)
	toAcc.Balance = new(uint256.Int).Add(toAcc.Balance, amount)
	if err := l.putAccount(from, fromAcc); err != nil {
		return err
	}
	return l.putAccount(to, toAcc)
}

// BalanceOf returns the token balance held by addr.
func (l *Ledger) BalanceOf(addr [20]byte) (*uint256.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, err := l.getAccount(addr)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).Set(acc.Tokens), nil
}

func (l *Ledger) moveTokens(from, to [20]byte, amount *uint256.Int) error {
	fromAcc, err := l.getAccount(from)
	if err != nil {
		return err
	}
	if fromAcc.Tokens.Lt(amount) {
		return ErrInsufficientTokens
	}
	toAcc, err := l.getAccount(to)
	if err != nil {
		return err
	}
	fromAcc.Tokens = new(uint256.Int).Sub(fromAcc.Tokens, amount)
	toAcc.Tokens = new(uint256.Int).Add(toAcc.Tokens, amount)
	if err := l.putAccount(from, fromAcc); err != nil {
		return err
	}
	return l.putAccount(to, toAcc)
}

// TransferTokens moves tokens along the standard path, refusing while the
// token module is paused.
func (l *Ledger) TransferTokens(from, to [20]byte, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := common.Guard(l, "token"); err != nil {
		return err
	}
	return l.moveTokens(from, to, amount)
}

// TransferToken is the privileged issuance path used by the sale: it moves
// tokens out of the vault regardless of the pause flag.
func (l *Ledger) TransferToken(to [20]byte, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.moveTokens(l.tokenVault, to, amount)
}

// NeedALight destroys amount of supply held by holder.
func (l *Ledger) NeedALight(holder [20]byte, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, err := l.getAccount(holder)
	if err != nil {
		return err
	}
	if acc.Tokens.Lt(amount) {
		return ErrInsufficientTokens
	}
	supply, err := l.tokenSupply()
	if err != nil {
		return err
	}
	if supply.Lt(amount) {
		return ErrBurnExceedsSupply
	}
	acc.Tokens = new(uint256.Int).Sub(acc.Tokens, amount)
	if err := l.putAccount(holder, acc); err != nil {
		return err
	}
	return l.putSupply(new(uint256.Int).Sub(supply, amount))
}

func (l *Ledger) tokenSupply() (*uint256.Int, error) {
	raw, err := l.db.Get([]byte(supplyKey))
	if errors.Is(err, storage.ErrNotFound) {
		return uint256.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	supply := new(uint256.Int)
	if err := supply.UnmarshalText(raw); err != nil {
		return nil, fmt.Errorf("state: decode supply: %w", err)
	}
	return supply, nil
}

func (l *Ledger) putSupply(supply *uint256.Int) error {
	raw, err := supply.MarshalText()
	if err != nil {
		return err
	}
	return l.db.Put([]byte(supplyKey), raw)
}

// TokenSupply returns the current total token supply.
func (l *Ledger) TokenSupply() (*uint256.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tokenSupply()
}

// MintTokens credits amount of tokens to addr and grows the supply. Used by
// genesis to seat the unsold supply in the vault.
func (l *Ledger) MintTokens(addr [20]byte, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, err := l.getAccount(addr)
	if err != nil {
		return err
	}
	supply, err := l.tokenSupply()
	if err != nil {
		return err
	}
	acc.Tokens = new(uint256.Int).Add(acc.Tokens, amount)
	if err := l.putAccount(addr, acc); err != nil {
		return err
	}
	return l.putSupply(new(uint256.Int).Add(supply, amount))
}
