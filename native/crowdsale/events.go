package crowdsale

import (
	"encoding/hex"
	"strconv"

	"github.com/holiman/uint256"

	"salechain/core/types"
)

const (
	EventTypePurchase             = "sale.purchase"
	EventTypeGoalReached          = "sale.goal_reached"
	EventTypeFinalized            = "sale.finalized"
	EventTypeBurn                 = "sale.burn"
	EventTypeStateUpdated         = "sale.state_updated"
	EventTypeParametersUpdated    = "sale.parameters_updated"
	EventTypeOwnershipTransferred = "sale.ownership_transferred"
	EventTypeVaultConfigured      = "sale.vault_configured"
)

// NewPurchaseEvent returns the canonical payload for a settled purchase.
func NewPurchaseEvent(receipt *types.PurchaseReceipt, sale *SaleState) *types.Event {
	attrs := make(map[string]string)
	if receipt != nil {
		attrs["id"] = hex.EncodeToString(receipt.ID[:])
		attrs["purchaser"] = hex.EncodeToString(receipt.Purchaser[:])
		attrs["beneficiary"] = hex.EncodeToString(receipt.Beneficiary[:])
		attrs["valueWei"] = decimal(receipt.ValueWei)
		attrs["tokens"] = decimal(receipt.Tokens)
		attrs["timestamp"] = strconv.FormatInt(receipt.Timestamp, 10)
	}
	if sale != nil {
		attrs["weiRaised"] = decimal(sale.WeiRaised)
	}
	return &types.Event{Type: EventTypePurchase, Attributes: attrs}
}

// NewGoalReachedEvent returns the payload emitted when the goal ratchet
// trips.
func NewGoalReachedEvent(sale *SaleState) *types.Event {
	return &types.Event{Type: EventTypeGoalReached, Attributes: saleAttrs(sale)}
}

// NewFinalizedEvent returns the payload emitted when the sale resolves.
func NewFinalizedEvent(sale *SaleState, burned, payout *uint256.Int) *types.Event {
	attrs := saleAttrs(sale)
	attrs["burned"] = decimal(burned)
	attrs["payout"] = decimal(payout)
	if sale != nil {
		attrs["goalReached"] = strconv.FormatBool(sale.GoalReached())
	}
	return &types.Event{Type: EventTypeFinalized, Attributes: attrs}
}

// NewBurnEvent returns the payload for a supply burn.
func NewBurnEvent(vault [20]byte, amount *uint256.Int) *types.Event {
	return &types.Event{
		Type: EventTypeBurn,
		Attributes: map[string]string{
			"vault":  hex.EncodeToString(vault[:]),
			"amount": decimal(amount),
		},
	}
}

// NewSaleStateEvent returns the payload for a manual open/close toggle.
func NewSaleStateEvent(sale *SaleState) *types.Event {
	return &types.Event{Type: EventTypeStateUpdated, Attributes: saleAttrs(sale)}
}

// NewParametersEvent returns the payload for a rate or bonus update.
func NewParametersEvent(sale *SaleState) *types.Event {
	attrs := saleAttrs(sale)
	if sale != nil {
		attrs["rate"] = decimal(sale.Rate)
		attrs["bonusMultiplier"] = decimal(sale.BonusMultiplier)
	}
	return &types.Event{Type: EventTypeParametersUpdated, Attributes: attrs}
}

// NewOwnershipTransferredEvent returns the payload for an owner handover.
func NewOwnershipTransferredEvent(previous, next [20]byte) *types.Event {
	return &types.Event{
		Type: EventTypeOwnershipTransferred,
		Attributes: map[string]string{
			"previousOwner": hex.EncodeToString(previous[:]),
			"newOwner":      hex.EncodeToString(next[:]),
		},
	}
}

// NewVaultConfiguredEvent returns the payload for the one-shot token vault
// binding.
func NewVaultConfiguredEvent(vault [20]byte) *types.Event {
	return &types.Event{
		Type: EventTypeVaultConfigured,
		Attributes: map[string]string{
			"vault": hex.EncodeToString(vault[:]),
		},
	}
}

func saleAttrs(sale *SaleState) map[string]string {
	attrs := make(map[string]string)
	if sale == nil {
		return attrs
	}
	attrs["weiRaised"] = decimal(sale.WeiRaised)
	attrs["goal"] = decimal(sale.Goal)
	attrs["isClose"] = strconv.FormatBool(sale.IsClose)
	attrs["isFinalized"] = strconv.FormatBool(sale.IsFinalized)
	return attrs
}

func decimal(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}
