package escrow

import (
	"github.com/holiman/uint256"

	"salechain/core/events"
	"salechain/core/types"
)

type refundEvent struct {
	evt *types.Event
}

func (e refundEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e refundEvent) Event() *types.Event { return e.evt }

// RefundEscrow custodies sale contributions until the sale resolves. While
// Active it accepts deposits; after the one-shot transition to Refunding it
// pays depositors back individually, and after the one-shot transition to
// Closed it pays the entire custodied balance to the beneficiary as a lump
// sum. The withdrawal predicate is owned by the escrow itself: depositor
// withdrawal is allowed exactly when the state is Refunding.
type RefundEscrow struct {
	controller  [20]byte
	beneficiary [20]byte
	state       State
	ledger      *Ledger
	emitter     events.Emitter
	store       Store
}

// NewRefundEscrow creates an Active refund escrow. Only controller may invoke
// deposits, withdrawals and state transitions; funds are custodied in the
// vault account and move through bank.
func NewRefundEscrow(controller, beneficiary, vault [20]byte, bank Bank) *RefundEscrow {
	return &RefundEscrow{
		controller:  controller,
		beneficiary: beneficiary,
		state:       StateActive,
		ledger:      NewLedger(controller, vault, bank),
		emitter:     events.NoopEmitter{},
	}
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (r *RefundEscrow) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

func (r *RefundEscrow) emit(event *types.Event) {
	if r == nil || r.emitter == nil || event == nil {
		return
	}
	r.emitter.Emit(refundEvent{evt: event})
}

// State returns the current lifecycle phase.
func (r *RefundEscrow) State() State { return r.state }

// Beneficiary returns the fixed lump-sum recipient for the success outcome.
func (r *RefundEscrow) Beneficiary() [20]byte { return r.beneficiary }

// DepositsOf returns the tracked balance for refundee.
func (r *RefundEscrow) DepositsOf(refundee [20]byte) *uint256.Int {
	return r.ledger.DepositsOf(refundee)
}

// Custody returns the total custodied amount.
func (r *RefundEscrow) Custody() *uint256.Int { return r.ledger.Custody() }

// Deposit records amount against refundee and moves it from refundee into
// the vault. Deposits are only accepted while Active. The guarded accounting
// settles and persists before the bank moves value; a failed transfer backs
// the accounting out again.
func (r *RefundEscrow) Deposit(caller, refundee [20]byte, amount *uint256.Int) error {
	if caller != r.controller {
		return ErrUnauthorized
	}
	if r.state != StateActive {
		return ErrInvalidState
	}
	if r.ledger.bank == nil {
		return ErrNilBank
	}
	if err := r.ledger.Deposit(caller, refundee, amount); err != nil {
		return err
	}
	if err := r.persist(); err != nil {
		r.ledger.revert(refundee, amount)
		return err
	}
	if err := r.ledger.bank.Transfer(refundee, r.ledger.vault, amount); err != nil {
		r.ledger.revert(refundee, amount)
		if perr := r.persist(); perr != nil {
			return perr
		}
		return err
	}
	r.emit(NewDepositedEvent(refundee, amount, r.state))
	return nil
}

// Reclaim returns a just-deposited amount to refundee, backing out a
// settlement that failed after its funds had already moved into custody.
// Only valid while Active.
func (r *RefundEscrow) Reclaim(caller, refundee [20]byte, amount *uint256.Int) error {
	if caller != r.controller {
		return ErrUnauthorized
	}
	if r.state != StateActive {
		return ErrInvalidState
	}
	if r.ledger.bank == nil {
		return ErrNilBank
	}
	if r.ledger.DepositsOf(refundee).Lt(amount) || r.ledger.Custody().Lt(amount) {
		return ErrCustodyMismatch
	}
	r.ledger.revert(refundee, amount)
	if err := r.persist(); err != nil {
		r.ledger.reinstate(refundee, amount)
		return err
	}
	if err := r.ledger.bank.Transfer(r.ledger.vault, refundee, amount); err != nil {
		r.ledger.reinstate(refundee, amount)
		if perr := r.persist(); perr != nil {
			return perr
		}
		return err
	}
	return nil
}

// Close transitions the escrow to Closed, the success outcome. One-shot;
// only valid from Active.
func (r *RefundEscrow) Close(caller [20]byte) error {
	if caller != r.controller {
		return ErrUnauthorized
	}
	if r.state != StateActive {
		return ErrInvalidState
	}
	r.state = StateClosed
	if err := r.persist(); err != nil {
		r.state = StateActive
		return err
	}
	r.emit(NewStateEvent(EventTypeEscrowClosed, r.state, r.ledger.Custody()))
	return nil
}

// EnableRefunds transitions the escrow to Refunding, the failure outcome.
// One-shot; only valid from Active.
func (r *RefundEscrow) EnableRefunds(caller [20]byte) error {
	if caller != r.controller {
		return ErrUnauthorized
	}
	if r.state != StateActive {
		return ErrInvalidState
	}
	r.state = StateRefunding
	if err := r.persist(); err != nil {
		r.state = StateActive
		return err
	}
	r.emit(NewStateEvent(EventTypeEscrowRefundsEnabled, r.state, r.ledger.Custody()))
	return nil
}

func (r *RefundEscrow) withdrawalAllowed() bool { return r.state == StateRefunding }

// Withdraw refunds payee's full tracked deposit. The gate is the escrow's own
// state predicate: withdrawal is refused unless refunds are enabled. The
// balance is zeroed and persisted before the funds move so a reentrant call
// observes an already-settled ledger.
func (r *RefundEscrow) Withdraw(caller, payee [20]byte) (*uint256.Int, error) {
	if caller != r.controller {
		return nil, ErrUnauthorized
	}
	if !r.withdrawalAllowed() {
		return nil, ErrWithdrawalNotAllowed
	}
	if r.ledger.bank == nil {
		return nil, ErrNilBank
	}
	amount, err := r.ledger.debit(caller, payee)
	if err != nil {
		return nil, err
	}
	if err := r.persist(); err != nil {
		r.ledger.reinstate(payee, amount)
		return nil, err
	}
	if err := r.ledger.bank.Transfer(r.ledger.vault, payee, amount); err != nil {
		r.ledger.reinstate(payee, amount)
		if perr := r.persist(); perr != nil {
			return nil, perr
		}
		return nil, err
	}
	r.emit(NewRefundedEvent(payee, amount))
	return amount, nil
}

// BeneficiaryWithdraw releases the entire custodied balance to the
// beneficiary. Only valid once Closed. A drained escrow releases zero, which
// lets a finalization retry pass through without double-paying.
func (r *RefundEscrow) BeneficiaryWithdraw(caller [20]byte) (*uint256.Int, error) {
	if caller != r.controller {
		return nil, ErrUnauthorized
	}
	if r.state != StateClosed {
		return nil, ErrInvalidState
	}
	if r.ledger.bank == nil {
		return nil, ErrNilBank
	}
	amount := r.ledger.takeCustody()
	if err := r.persist(); err != nil {
		r.ledger.restoreCustody(amount)
		return nil, err
	}
	if !amount.IsZero() {
		if err := r.ledger.bank.Transfer(r.ledger.vault, r.beneficiary, amount); err != nil {
			r.ledger.restoreCustody(amount)
			if perr := r.persist(); perr != nil {
				return nil, perr
			}
			return nil, err
		}
	}
	r.emit(NewBeneficiaryWithdrawnEvent(r.beneficiary, amount))
	return amount, nil
}
