package escrow

import (
	"encoding/hex"

	"github.com/holiman/uint256"

	"salechain/core/types"
)

const (
	EventTypeEscrowDeposited           = "escrow.deposited"
	EventTypeEscrowClosed              = "escrow.closed"
	EventTypeEscrowRefundsEnabled      = "escrow.refunds_enabled"
	EventTypeEscrowRefunded            = "escrow.refunded"
	EventTypeEscrowBeneficiaryWithdraw = "escrow.beneficiary_withdrawn"
)

// NewDepositedEvent returns the canonical payload for a recorded deposit.
func NewDepositedEvent(refundee [20]byte, amount *uint256.Int, state State) *types.Event {
	return &types.Event{
		Type: EventTypeEscrowDeposited,
		Attributes: map[string]string{
			"refundee": hex.EncodeToString(refundee[:]),
			"amount":   amountString(amount),
			"state":    state.String(),
		},
	}
}

// NewStateEvent returns the payload emitted on a lifecycle transition.
func NewStateEvent(eventType string, state State, custody *uint256.Int) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"state":   state.String(),
			"custody": amountString(custody),
		},
	}
}

// NewRefundedEvent returns the payload for a depositor refund.
func NewRefundedEvent(payee [20]byte, amount *uint256.Int) *types.Event {
	return &types.Event{
		Type: EventTypeEscrowRefunded,
		Attributes: map[string]string{
			"payee":  hex.EncodeToString(payee[:]),
			"amount": amountString(amount),
		},
	}
}

// NewBeneficiaryWithdrawnEvent returns the payload for the lump-sum payout.
func NewBeneficiaryWithdrawnEvent(beneficiary [20]byte, amount *uint256.Int) *types.Event {
	return &types.Event{
		Type: EventTypeEscrowBeneficiaryWithdraw,
		Attributes: map[string]string{
			"beneficiary": hex.EncodeToString(beneficiary[:]),
			"amount":      amountString(amount),
		},
	}
}

func amountString(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}
