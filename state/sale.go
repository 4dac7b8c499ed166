package state

import (
	"encoding/hex"
	"encoding/json"

	"github.com/holiman/uint256"

	"salechain/core/types"
	"salechain/native/crowdsale"
	"salechain/native/escrow"
)

// SaleGet loads the persisted sale state.
func (l *Ledger) SaleGet() (*crowdsale.SaleState, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	raw, err := l.db.Get([]byte(saleKey))
	if err != nil {
		return nil, false
	}
	sale := &crowdsale.SaleState{}
	if err := json.Unmarshal(raw, sale); err != nil {
		return nil, false
	}
	return sale.Clone(), true
}

// SalePut persists the sale state.
func (l *Ledger) SalePut(sale *crowdsale.SaleState) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	raw, err := json.Marshal(sale.Clone())
	if err != nil {
		return err
	}
	return l.db.Put([]byte(saleKey), raw)
}

// ReceiptPut stores a purchase receipt under its content-derived identifier.
func (l *Ledger) ReceiptPut(r *types.PurchaseReceipt) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	raw, err := json.Marshal(r.Clone())
	if err != nil {
		return err
	}
	return l.db.Put(receiptKey(r.ID), raw)
}

// ReceiptGet loads a purchase receipt by identifier.
func (l *Ledger) ReceiptGet(id [32]byte) (*types.PurchaseReceipt, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	raw, err := l.db.Get(receiptKey(id))
	if err != nil {
		return nil, false
	}
	receipt := &types.PurchaseReceipt{}
	if err := json.Unmarshal(raw, receipt); err != nil {
		return nil, false
	}
	return receipt.Clone(), true
}

// ReceiptDelete removes a stored purchase receipt. Used to back out a
// purchase whose settlement failed after the receipt was written.
func (l *Ledger) ReceiptDelete(id [32]byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.db.Delete(receiptKey(id))
}

func receiptKey(id [32]byte) []byte {
	return []byte(receiptPrefix + hex.EncodeToString(id[:]))
}

// EscrowGet loads the persisted escrow snapshot.
func (l *Ledger) EscrowGet() (*escrow.StoredEscrow, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	raw, err := l.db.Get([]byte(escrowKey))
	if err != nil {
		return nil, false
	}
	stored := &escrow.StoredEscrow{}
	if err := json.Unmarshal(raw, stored); err != nil {
		return nil, false
	}
	return stored, true
}

// EscrowPut persists the escrow snapshot.
func (l *Ledger) EscrowPut(stored *escrow.StoredEscrow) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	raw, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	return l.db.Put([]byte(escrowKey), raw)
}

// TokenFacade adapts the ledger to the capability interface the sale engine
// consumes for the token collaborator.
type TokenFacade struct {
	ledger *Ledger
}

// NewTokenFacade wraps ledger in the sale's token capability surface.
func NewTokenFacade(ledger *Ledger) TokenFacade {
	return TokenFacade{ledger: ledger}
}

func (t TokenFacade) BalanceOf(addr [20]byte) (*uint256.Int, error) {
	return t.ledger.BalanceOf(addr)
}

func (t TokenFacade) Transfer(from, to [20]byte, amount *uint256.Int) error {
	return t.ledger.TransferTokens(from, to, amount)
}

func (t TokenFacade) TransferToken(to [20]byte, amount *uint256.Int) error {
	return t.ledger.TransferToken(to, amount)
}

func (t TokenFacade) NeedALight(holder [20]byte, amount *uint256.Int) error {
	return t.ledger.NeedALight(holder, amount)
}
