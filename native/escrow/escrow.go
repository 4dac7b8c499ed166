package escrow

import (
	"errors"

	"github.com/holiman/uint256"
)

// State represents the lifecycle phase of the refund escrow. Transitions are
// monotonic: Active may move to Refunding or Closed exactly once, and neither
// terminal state is ever left.
type State uint8

const (
	StateActive State = iota
	StateRefunding
	StateClosed
)

var (
	ErrUnauthorized         = errors.New("escrow: unauthorized caller")
	ErrInvalidState         = errors.New("escrow: invalid state for operation")
	ErrWithdrawalNotAllowed = errors.New("escrow: withdrawal not allowed")
	ErrNothingToRefund      = errors.New("escrow: nothing to refund")
	ErrNilBank              = errors.New("escrow: bank not configured")
	// ErrCustodyMismatch signals that a tracked balance exceeds the funds in
	// custody. It indicates ledger corruption and is never expected during
	// correct operation.
	ErrCustodyMismatch = errors.New("escrow: custody accounting mismatch")
)

// Valid reports whether the state value is within the supported range.
func (s State) Valid() bool {
	switch s {
	case StateActive, StateRefunding, StateClosed:
		return true
	default:
		return false
	}
}

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateRefunding:
		return "refunding"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Bank moves base currency between accounts. The refund escrow uses it to
// custody contributions in its vault account and to release them again.
type Bank interface {
	Transfer(from, to [20]byte, amount *uint256.Int) error
}
