package crowdsale

import (
	"errors"

	"salechain/native/escrow"
	"salechain/native/safemath"
)

var (
	// Validation failures.
	ErrInvalidBeneficiary = errors.New("crowdsale: beneficiary is the zero address")
	ErrZeroContribution   = errors.New("crowdsale: contribution value is zero")
	ErrInvalidRate        = errors.New("crowdsale: rate and bonus multiplier must be non-zero")
	ErrInvalidOwner       = errors.New("crowdsale: owner is the zero address")

	// State failures.
	ErrSaleNotOpen       = errors.New("crowdsale: sale window is not open")
	ErrSaleClosed        = errors.New("crowdsale: sale is closed")
	ErrSaleStillOpen     = errors.New("crowdsale: sale window has not elapsed")
	ErrAlreadyFinalized  = errors.New("crowdsale: already finalized")
	ErrNotFinalized      = errors.New("crowdsale: not finalized")
	ErrGoalReached       = errors.New("crowdsale: funding goal was reached")
	ErrAlreadyConfigured = errors.New("crowdsale: token vault already configured")
	ErrNotConfigured     = errors.New("crowdsale: token vault not configured")
	ErrSaleNotClosed     = errors.New("crowdsale: parameter updates require a closed sale")
	ErrInvalidRange      = errors.New("crowdsale: invalid sale window")
	ErrVaultUnderfunded  = errors.New("crowdsale: token vault cannot cover the purchase")

	// Authorization.
	ErrUnauthorized = errors.New("crowdsale: unauthorized caller")

	ErrNilState = errors.New("crowdsale: state not configured")

	// ErrUnwindFailed signals that reverting a partially settled purchase
	// itself failed, leaving the ledgers inconsistent. It is never expected
	// during correct operation.
	ErrUnwindFailed = errors.New("crowdsale: failed to revert a partial settlement")
)

// ErrorClass buckets a failure for logging and metrics. Arithmetic and
// invariant failures indicate a defect or a malicious overflow attempt and
// are kept distinguishable from ordinary business-rule rejections.
type ErrorClass string

const (
	ClassValidation ErrorClass = "validation"
	ClassState      ErrorClass = "state"
	ClassAuth       ErrorClass = "authorization"
	ClassArithmetic ErrorClass = "arithmetic"
	ClassInvariant  ErrorClass = "invariant"
	ClassInternal   ErrorClass = "internal"
)

// Classify maps an error returned by the engine onto its taxonomy bucket.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, safemath.ErrOverflow),
		errors.Is(err, safemath.ErrUnderflow),
		errors.Is(err, safemath.ErrDivisionByZero):
		return ClassArithmetic
	case errors.Is(err, escrow.ErrCustodyMismatch),
		errors.Is(err, ErrUnwindFailed):
		return ClassInvariant
	case errors.Is(err, ErrUnauthorized), errors.Is(err, escrow.ErrUnauthorized):
		return ClassAuth
	case errors.Is(err, ErrInvalidBeneficiary),
		errors.Is(err, ErrZeroContribution),
		errors.Is(err, ErrInvalidRate),
		errors.Is(err, ErrInvalidOwner),
		errors.Is(err, ErrInvalidRange):
		return ClassValidation
	case errors.Is(err, ErrSaleNotOpen),
		errors.Is(err, ErrSaleClosed),
		errors.Is(err, ErrSaleStillOpen),
		errors.Is(err, ErrAlreadyFinalized),
		errors.Is(err, ErrNotFinalized),
		errors.Is(err, ErrGoalReached),
		errors.Is(err, ErrAlreadyConfigured),
		errors.Is(err, ErrNotConfigured),
		errors.Is(err, ErrSaleNotClosed),
		errors.Is(err, ErrVaultUnderfunded),
		errors.Is(err, escrow.ErrInvalidState),
		errors.Is(err, escrow.ErrWithdrawalNotAllowed),
		errors.Is(err, escrow.ErrNothingToRefund):
		return ClassState
	default:
		return ClassInternal
	}
}
