package crowdsale

import (
	"fmt"

	"github.com/holiman/uint256"

	"salechain/native/escrow"
)

// finalization is the explicit context threaded through the finalization
// steps.
type finalization struct {
	sale   *SaleState
	burned *uint256.Int
	payout *uint256.Int
}

// finalizationSteps run in a fixed, documented order: burn the unsold vault
// balance, then resolve the sale outcome through the refund escrow. The
// isFinalized latch set afterwards is the outer one-shot guard; the escrow's
// own one-shot transitions provide defence in depth against a re-run.
var finalizationSteps = []func(*Engine, *finalization) error{
	(*Engine).burnVaultTokens,
	(*Engine).resolveGoal,
}

// Finalize resolves the sale once the contribution window has elapsed. On
// success the escrow closes and the entire custodied balance is forwarded to
// the wallet; on failure per-depositor refunds open. Either way the unsold
// vault balance is burned. Owner-only and callable exactly once.
func (e *Engine) Finalize(caller [20]byte) error {
	sale, err := e.ownerSale(caller)
	if err != nil {
		return err
	}
	if sale.IsFinalized {
		return ErrAlreadyFinalized
	}
	if !e.window.HasClosed(e.now()) {
		return ErrSaleStillOpen
	}
	ctx := &finalization{
		sale:   sale,
		burned: uint256.NewInt(0),
		payout: uint256.NewInt(0),
	}
	for _, step := range finalizationSteps {
		if err := step(e, ctx); err != nil {
			return err
		}
	}
	sale.IsFinalized = true
	if err := e.storeSale(sale); err != nil {
		return err
	}
	e.emit(NewFinalizedEvent(sale, ctx.burned, ctx.payout))
	return nil
}

// burnVaultTokens reads the vault's current token balance and destroys it.
// The burned amount is whatever the vault holds at finalization time, not a
// pre-committed unsold figure.
func (e *Engine) burnVaultTokens(ctx *finalization) error {
	if e.token == nil || !ctx.sale.TokenConfigured {
		return ErrNotConfigured
	}
	remaining, err := e.token.BalanceOf(ctx.sale.TokenVault)
	if err != nil {
		return err
	}
	if remaining.IsZero() {
		return nil
	}
	if err := e.token.NeedALight(ctx.sale.TokenVault, remaining); err != nil {
		return err
	}
	ctx.burned = remaining
	e.emit(NewBurnEvent(ctx.sale.TokenVault, remaining))
	return nil
}

// resolveGoal settles the binary outcome: goal met closes the escrow and
// pays the beneficiary immediately; goal missed opens refunds. A retry after
// a failed latch write finds the escrow already in the matching terminal
// state and passes through, so finalization can always complete. A terminal
// state contradicting the goal outcome is corruption.
func (e *Engine) resolveGoal(ctx *finalization) error {
	if ctx.sale.GoalReached() {
		switch e.escrow.State() {
		case escrow.StateActive:
			if err := e.escrow.Close(e.moduleAddr); err != nil {
				return err
			}
		case escrow.StateClosed:
		default:
			return fmt.Errorf("crowdsale: escrow %s contradicts met goal: %w", e.escrow.State(), escrow.ErrInvalidState)
		}
		payout, err := e.escrow.BeneficiaryWithdraw(e.moduleAddr)
		if err != nil {
			return err
		}
		ctx.payout = payout
		return nil
	}
	switch e.escrow.State() {
	case escrow.StateActive:
		return e.escrow.EnableRefunds(e.moduleAddr)
	case escrow.StateRefunding:
		return nil
	default:
		return fmt.Errorf("crowdsale: escrow %s contradicts missed goal: %w", e.escrow.State(), escrow.ErrInvalidState)
	}
}
