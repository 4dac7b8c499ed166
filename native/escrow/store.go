package escrow

import (
	"encoding/hex"
	"fmt"

	"github.com/holiman/uint256"
)

// Store persists the escrow's lifecycle state and custody ledger. A nil
// store keeps the escrow memory-only; every backend that survives a restart
// must rehydrate the escrow through it, since the bank accounts it custodies
// funds in are durable.
type Store interface {
	EscrowGet() (*StoredEscrow, bool)
	EscrowPut(*StoredEscrow) error
}

// StoredEscrow is the serializable form of a refund escrow: the lifecycle
// state, the custody total and the per-depositor tracked balances keyed by
// hex-encoded address.
type StoredEscrow struct {
	State    State                   `json:"state"`
	Custody  *uint256.Int            `json:"custody"`
	Deposits map[string]*uint256.Int `json:"deposits"`
}

// Clone returns a deep copy.
func (s *StoredEscrow) Clone() *StoredEscrow {
	if s == nil {
		return nil
	}
	deposits := make(map[string]*uint256.Int, len(s.Deposits))
	for key, amount := range s.Deposits {
		deposits[key] = cloneOrZero(amount)
	}
	return &StoredEscrow{
		State:    s.State,
		Custody:  cloneOrZero(s.Custody),
		Deposits: deposits,
	}
}

func cloneOrZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Set(v)
}

// SetStore attaches the persistence backend and rehydrates any previously
// stored snapshot. Passing nil keeps the escrow memory-only.
func (r *RefundEscrow) SetStore(store Store) error {
	r.store = store
	if store == nil {
		return nil
	}
	stored, ok := store.EscrowGet()
	if !ok {
		return nil
	}
	return r.restore(stored)
}

func (r *RefundEscrow) restore(stored *StoredEscrow) error {
	if stored == nil {
		return nil
	}
	if !stored.State.Valid() {
		return ErrInvalidState
	}
	balances := make(map[[20]byte]*uint256.Int, len(stored.Deposits))
	for key, amount := range stored.Deposits {
		raw, err := hex.DecodeString(key)
		if err != nil || len(raw) != 20 {
			return fmt.Errorf("escrow: malformed stored depositor %q", key)
		}
		var addr [20]byte
		copy(addr[:], raw)
		balances[addr] = cloneOrZero(amount)
	}
	r.state = stored.State
	r.ledger.balances = balances
	r.ledger.custody = cloneOrZero(stored.Custody)
	return nil
}

func (r *RefundEscrow) snapshot() *StoredEscrow {
	deposits := make(map[string]*uint256.Int, len(r.ledger.balances))
	for addr, amount := range r.ledger.balances {
		deposits[hex.EncodeToString(addr[:])] = cloneOrZero(amount)
	}
	return &StoredEscrow{
		State:    r.state,
		Custody:  r.ledger.Custody(),
		Deposits: deposits,
	}
}

func (r *RefundEscrow) persist() error {
	if r.store == nil {
		return nil
	}
	return r.store.EscrowPut(r.snapshot())
}
