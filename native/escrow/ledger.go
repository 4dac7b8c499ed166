package escrow

import (
	"github.com/holiman/uint256"

	"salechain/native/safemath"
)

// Ledger tracks per-depositor balances held in custody by the escrow vault.
// Writes are restricted to a single authorized controller; the ledger trusts
// the controller's accounting for funds actually moved into custody.
type Ledger struct {
	controller [20]byte
	vault      [20]byte
	bank       Bank
	balances   map[[20]byte]*uint256.Int
	custody    *uint256.Int
}

// NewLedger creates an empty ledger whose deposit and withdraw primitives may
// only be invoked by controller. Released funds leave the vault account
// through bank.
func NewLedger(controller, vault [20]byte, bank Bank) *Ledger {
	return &Ledger{
		controller: controller,
		vault:      vault,
		bank:       bank,
		balances:   make(map[[20]byte]*uint256.Int),
		custody:    uint256.NewInt(0),
	}
}

// DepositsOf returns the tracked balance for payee.
func (l *Ledger) DepositsOf(payee [20]byte) *uint256.Int {
	bal, ok := l.balances[payee]
	if !ok {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Set(bal)
}

// Custody returns the total amount of funds the ledger believes it holds.
func (l *Ledger) Custody() *uint256.Int {
	return new(uint256.Int).Set(l.custody)
}

// Deposit credits amount to payee's tracked balance. The caller must have
// already moved amount into the vault account.
func (l *Ledger) Deposit(caller, payee [20]byte, amount *uint256.Int) error {
	if caller != l.controller {
		return ErrUnauthorized
	}
	current := l.DepositsOf(payee)
	updated, err := safemath.Add(current, amount)
	if err != nil {
		return err
	}
	custody, err := safemath.Add(l.custody, amount)
	if err != nil {
		return err
	}
	l.balances[payee] = updated
	l.custody = custody
	return nil
}

// debit zeroes payee's tracked balance and reduces custody, returning the
// amount owed to payee. The accounting settles before any funds move so a
// reentrant call observes an already-settled ledger.
func (l *Ledger) debit(caller, payee [20]byte) (*uint256.Int, error) {
	if caller != l.controller {
		return nil, ErrUnauthorized
	}
	amount := l.DepositsOf(payee)
	if amount.IsZero() {
		return nil, ErrNothingToRefund
	}
	if l.custody.Lt(amount) {
		return nil, ErrCustodyMismatch
	}
	l.balances[payee] = uint256.NewInt(0)
	l.custody = new(uint256.Int).Sub(l.custody, amount)
	return amount, nil
}

// reinstate adds amount back to payee's balance and custody, undoing a debit
// or revert applied earlier in the same call. No overflow checks: the amount
// was just subtracted.
func (l *Ledger) reinstate(payee [20]byte, amount *uint256.Int) {
	l.balances[payee] = new(uint256.Int).Add(l.DepositsOf(payee), amount)
	l.custody = new(uint256.Int).Add(l.custody, amount)
}

// revert subtracts amount from payee's balance and custody, undoing a deposit
// recorded earlier in the same call. No underflow checks: the amount was just
// added.
func (l *Ledger) revert(payee [20]byte, amount *uint256.Int) {
	l.balances[payee] = new(uint256.Int).Sub(l.DepositsOf(payee), amount)
	l.custody = new(uint256.Int).Sub(l.custody, amount)
}

// takeCustody zeroes the custody total and returns the amount taken. Tracked
// per-depositor balances are left untouched; callers only use this path once
// depositor withdrawal has become impossible.
func (l *Ledger) takeCustody() *uint256.Int {
	amount := new(uint256.Int).Set(l.custody)
	l.custody = uint256.NewInt(0)
	return amount
}

func (l *Ledger) restoreCustody(amount *uint256.Int) {
	l.custody = new(uint256.Int).Add(l.custody, amount)
}

// Withdraw zeroes payee's tracked balance and releases the full amount from
// the vault to payee. A failed release reinstates the accounting.
func (l *Ledger) Withdraw(caller, payee [20]byte) (*uint256.Int, error) {
	if caller != l.controller {
		return nil, ErrUnauthorized
	}
	if l.bank == nil {
		return nil, ErrNilBank
	}
	amount, err := l.debit(caller, payee)
	if err != nil {
		return nil, err
	}
	if err := l.bank.Transfer(l.vault, payee, amount); err != nil {
		l.reinstate(payee, amount)
		return nil, err
	}
	return amount, nil
}
