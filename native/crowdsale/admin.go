package crowdsale

import "github.com/holiman/uint256"

func (e *Engine) ownerSale(caller [20]byte) (*SaleState, error) {
	sale, err := e.loadSale()
	if err != nil {
		return nil, err
	}
	if caller != sale.Owner {
		return nil, ErrUnauthorized
	}
	return sale, nil
}

// TransferOwnership hands the owner capability to newOwner in a single step.
func (e *Engine) TransferOwnership(caller, newOwner [20]byte) error {
	sale, err := e.ownerSale(caller)
	if err != nil {
		return err
	}
	if isZeroAddress(newOwner) {
		return ErrInvalidOwner
	}
	previous := sale.Owner
	sale.Owner = newOwner
	if err := e.storeSale(sale); err != nil {
		return err
	}
	e.emit(NewOwnershipTransferredEvent(previous, newOwner))
	return nil
}

// SetupTokenVault binds the token ledger and the vault address holding the
// unsold supply. One-shot: a second call fails regardless of arguments.
func (e *Engine) SetupTokenVault(caller [20]byte, token TokenLedger, vault [20]byte) error {
	sale, err := e.ownerSale(caller)
	if err != nil {
		return err
	}
	if sale.TokenConfigured {
		return ErrAlreadyConfigured
	}
	if token == nil || isZeroAddress(vault) {
		return ErrNotConfigured
	}
	sale.TokenVault = vault
	sale.TokenConfigured = true
	if err := e.storeSale(sale); err != nil {
		return err
	}
	e.token = token
	e.emit(NewVaultConfiguredEvent(vault))
	return nil
}

// UpdateCrowdsaleState manually toggles the closed flag, independent of the
// timing window.
func (e *Engine) UpdateCrowdsaleState(caller [20]byte, close bool) error {
	sale, err := e.ownerSale(caller)
	if err != nil {
		return err
	}
	sale.IsClose = close
	if err := e.storeSale(sale); err != nil {
		return err
	}
	e.emit(NewSaleStateEvent(sale))
	return nil
}

// SetBonusMultiplier updates the scaled bonus multiplier. Parameter updates
// are only permitted while the sale is closed, and zero is rejected.
func (e *Engine) SetBonusMultiplier(caller [20]byte, value *uint256.Int) error {
	return e.updateParameter(caller, value, func(sale *SaleState, v *uint256.Int) {
		sale.BonusMultiplier = v
	})
}

// UpdateRate updates the wei-to-token conversion rate under the same rules
// as SetBonusMultiplier.
func (e *Engine) UpdateRate(caller [20]byte, value *uint256.Int) error {
	return e.updateParameter(caller, value, func(sale *SaleState, v *uint256.Int) {
		sale.Rate = v
	})
}

func (e *Engine) updateParameter(caller [20]byte, value *uint256.Int, apply func(*SaleState, *uint256.Int)) error {
	sale, err := e.ownerSale(caller)
	if err != nil {
		return err
	}
	if !sale.IsClose {
		return ErrSaleNotClosed
	}
	if value == nil || value.IsZero() {
		return ErrInvalidRate
	}
	apply(sale, new(uint256.Int).Set(value))
	if err := e.storeSale(sale); err != nil {
		return err
	}
	e.emit(NewParametersEvent(sale))
	return nil
}
