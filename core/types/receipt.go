package types

import "github.com/holiman/uint256"

// PurchaseReceipt records a single settled token purchase. The identifier is
// the keccak256 hash of the purchaser, beneficiary and the pre-purchase
// raised total, making receipts deterministic and content-addressed.
type PurchaseReceipt struct {
	ID          [32]byte     `json:"id"`
	Purchaser   [20]byte     `json:"purchaser"`
	Beneficiary [20]byte     `json:"beneficiary"`
	ValueWei    *uint256.Int `json:"valueWei"`
	Tokens      *uint256.Int `json:"tokens"`
	Timestamp   int64        `json:"timestamp"`
}

// Clone returns a deep copy of the receipt.
func (r *PurchaseReceipt) Clone() *PurchaseReceipt {
	if r == nil {
		return nil
	}
	clone := *r
	if r.ValueWei != nil {
		clone.ValueWei = new(uint256.Int).Set(r.ValueWei)
	} else {
		clone.ValueWei = uint256.NewInt(0)
	}
	if r.Tokens != nil {
		clone.Tokens = new(uint256.Int).Set(r.Tokens)
	} else {
		clone.Tokens = uint256.NewInt(0)
	}
	return &clone
}
