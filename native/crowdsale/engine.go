package crowdsale

import (
	"fmt"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"salechain/core/events"
	"salechain/core/types"
	"salechain/native/escrow"
	"salechain/native/safemath"
)

// engineState is the persistence backend for the sale. Every mutation the
// engine performs goes through it, including the escrow's custody ledger so
// the whole sale survives a restart together.
type engineState interface {
	SaleGet() (*SaleState, bool)
	SalePut(*SaleState) error
	ReceiptPut(*types.PurchaseReceipt) error
	ReceiptGet(id [32]byte) (*types.PurchaseReceipt, bool)
	ReceiptDelete(id [32]byte) error
	escrow.Store
}

type saleEvent struct {
	evt *types.Event
}

func (e saleEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e saleEvent) Event() *types.Event { return e.evt }

// Engine orchestrates the crowdsale: it validates and settles purchases,
// custodies contributions in the refund escrow, and resolves the sale to one
// of its two terminal outcomes at finalization.
type Engine struct {
	state   engineState
	escrow  *escrow.RefundEscrow
	token   TokenLedger
	window  Window
	emitter events.Emitter
	nowFn   func() int64

	// moduleAddr identifies the engine as the escrow's controller.
	moduleAddr [20]byte
}

// ModuleAddress derives the address under which the engine acts as the
// refund escrow's controller.
func ModuleAddress() [20]byte {
	var addr [20]byte
	hash := ethcrypto.Keccak256([]byte("salechain/crowdsale-module"))
	copy(addr[:], hash[len(hash)-20:])
	return addr
}

// EscrowVaultAddress derives the account that custodies escrowed
// contributions.
func EscrowVaultAddress() [20]byte {
	var addr [20]byte
	hash := ethcrypto.Keccak256([]byte("salechain/escrow-vault"))
	copy(addr[:], hash[len(hash)-20:])
	return addr
}

// NewEngine creates a crowdsale engine with a no-op emitter. The refund
// escrow is created Active, custodying funds in the module's escrow vault
// and paying the success lump sum to wallet; any escrow snapshot persisted
// under state is rehydrated so custody survives a restart.
func NewEngine(state engineState, bank escrow.Bank, window Window, wallet [20]byte) (*Engine, error) {
	moduleAddr := ModuleAddress()
	esc := escrow.NewRefundEscrow(moduleAddr, wallet, EscrowVaultAddress(), bank)
	if state != nil {
		if err := esc.SetStore(state); err != nil {
			return nil, err
		}
	}
	return &Engine{
		state:      state,
		escrow:     esc,
		window:     window,
		emitter:    events.NoopEmitter{},
		nowFn:      func() int64 { return time.Now().Unix() },
		moduleAddr: moduleAddr,
	}, nil
}

// SetEmitter configures the event emitter used by the engine and its escrow.
// Passing nil resets both to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
	e.escrow.SetEmitter(emitter)
}

// BindToken reattaches the token ledger after a restart. The vault address
// and the configured flag persist in the sale state, but the ledger binding
// itself is in-memory only.
func (e *Engine) BindToken(token TokenLedger) {
	e.token = token
}

// SetNowFunc overrides the time source used by the engine. Primarily
// intended for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(saleEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// Window returns the immutable contribution window.
func (e *Engine) Window() Window { return e.window }

// Escrow exposes read-only access to the refund escrow.
func (e *Engine) Escrow() *escrow.RefundEscrow { return e.escrow }

// Sale returns a copy of the current sale state.
func (e *Engine) Sale() (*SaleState, error) {
	sale, err := e.loadSale()
	if err != nil {
		return nil, err
	}
	return sale.Clone(), nil
}

// Receipt returns the purchase receipt stored under id.
func (e *Engine) Receipt(id [32]byte) (*types.PurchaseReceipt, bool) {
	if e == nil || e.state == nil {
		return nil, false
	}
	return e.state.ReceiptGet(id)
}

func (e *Engine) loadSale() (*SaleState, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	sale, ok := e.state.SaleGet()
	if !ok {
		return nil, fmt.Errorf("crowdsale: sale state missing: %w", ErrNilState)
	}
	return sale, nil
}

func (e *Engine) storeSale(sale *SaleState) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	return e.state.SalePut(sale)
}

// purchase is the explicit context threaded through the purchase pipeline.
// Each stage reads and extends it; no stage performs an external call except
// deliverTokens, which runs strictly after every internal ledger update. The
// flags record which effects have been applied so a failed run can be
// unwound in reverse.
type purchase struct {
	purchaser   [20]byte
	beneficiary [20]byte
	value       *uint256.Int
	tokens      *uint256.Int
	sale        *SaleState
	prior       *SaleState
	receipt     *types.PurchaseReceipt
	now         int64

	escrowed      bool
	receiptStored bool
	committed     bool
}

// purchaseStages is the fixed validation/settlement pipeline replacing the
// source's virtual override chain. Order matters: all internal bookkeeping
// (raised total, escrow custody, receipt, goal ratchet) commits before the
// external token delivery so a reentrant token callback observes settled
// state.
var purchaseStages = []func(*Engine, *purchase) error{
	(*Engine).validatePurchase,
	(*Engine).priceTokens,
	(*Engine).reserveTokens,
	(*Engine).recordRaise,
	(*Engine).escrowFunds,
	(*Engine).sealOnGoal,
	(*Engine).storeReceipt,
	(*Engine).commitSale,
	(*Engine).deliverTokens,
}

// BuyTokens settles a single contribution of value wei from purchaser,
// crediting the purchased tokens to beneficiary. The pipeline either
// completes in full or unwinds every effect it had already applied, so a
// failed purchase leaves no trace in any ledger.
func (e *Engine) BuyTokens(purchaser, beneficiary [20]byte, value *uint256.Int) (*types.PurchaseReceipt, error) {
	sale, err := e.loadSale()
	if err != nil {
		return nil, err
	}
	ctx := &purchase{
		purchaser:   purchaser,
		beneficiary: beneficiary,
		value:       cloneAmount(value),
		sale:        sale,
		prior:       sale.Clone(),
		now:         e.now(),
	}
	for _, stage := range purchaseStages {
		if err := stage(e, ctx); err != nil {
			return nil, e.unwindPurchase(ctx, err)
		}
	}
	e.emit(NewPurchaseEvent(ctx.receipt, ctx.sale))
	if ctx.sale.IsClose {
		e.emit(NewGoalReachedEvent(ctx.sale))
	}
	return ctx.receipt.Clone(), nil
}

// unwindPurchase reverses, in reverse order, every effect a failed pipeline
// run had already applied: the committed sale state, the stored receipt and
// the escrowed contribution. A revert that itself fails is an invariant
// breach and takes precedence over the original failure.
func (e *Engine) unwindPurchase(ctx *purchase, cause error) error {
	if ctx.committed {
		if err := e.storeSale(ctx.prior); err != nil {
			return fmt.Errorf("%w: restoring sale state after %v: %v", ErrUnwindFailed, cause, err)
		}
	}
	if ctx.receiptStored {
		if err := e.state.ReceiptDelete(ctx.receipt.ID); err != nil {
			return fmt.Errorf("%w: removing receipt after %v: %v", ErrUnwindFailed, cause, err)
		}
	}
	if ctx.escrowed {
		if err := e.escrow.Reclaim(e.moduleAddr, ctx.purchaser, ctx.value); err != nil {
			return fmt.Errorf("%w: returning escrowed funds after %v: %v", ErrUnwindFailed, cause, err)
		}
	}
	return cause
}

// validatePurchase enforces the three independent "sale still running"
// gates: the timing window, the elapsed-window re-check and the isClose
// ratchet. The flag can close the sale before time elapses; it never reopens
// a sale whose window has passed.
func (e *Engine) validatePurchase(ctx *purchase) error {
	if isZeroAddress(ctx.beneficiary) {
		return ErrInvalidBeneficiary
	}
	if ctx.value.IsZero() {
		return ErrZeroContribution
	}
	if !e.window.IsOpen(ctx.now) {
		return ErrSaleNotOpen
	}
	if ctx.sale.IsClose || e.window.HasClosed(ctx.now) {
		return ErrSaleClosed
	}
	if ctx.sale.IsFinalized {
		return ErrAlreadyFinalized
	}
	if !ctx.sale.TokenConfigured {
		return ErrNotConfigured
	}
	return nil
}

// priceTokens computes tokens = value * rate * bonusMultiplier / 1000 with
// guarded arithmetic throughout.
func (e *Engine) priceTokens(ctx *purchase) error {
	if ctx.sale.Rate.IsZero() || ctx.sale.BonusMultiplier.IsZero() {
		return ErrInvalidRate
	}
	base, err := safemath.Mul(ctx.value, ctx.sale.Rate)
	if err != nil {
		return err
	}
	boosted, err := safemath.Mul(base, ctx.sale.BonusMultiplier)
	if err != nil {
		return err
	}
	tokens, err := safemath.Div(boosted, uint256.NewInt(bonusDenominator))
	if err != nil {
		return err
	}
	ctx.tokens = tokens
	return nil
}

func (e *Engine) recordRaise(ctx *purchase) error {
	raised, err := safemath.Add(ctx.sale.WeiRaised, ctx.value)
	if err != nil {
		return err
	}
	issued, err := safemath.Add(ctx.sale.TokensIssued, ctx.tokens)
	if err != nil {
		return err
	}
	ctx.sale.WeiRaised = raised
	ctx.sale.TokensIssued = issued
	return nil
}

// reserveTokens verifies the vault can cover the purchase before any funds
// move. Delivery re-checks the balance; this guard keeps the common
// underfunded-vault failure out of the settlement stages entirely.
func (e *Engine) reserveTokens(ctx *purchase) error {
	if e.token == nil {
		return ErrNotConfigured
	}
	available, err := e.token.BalanceOf(ctx.sale.TokenVault)
	if err != nil {
		return err
	}
	if available.Lt(ctx.tokens) {
		return ErrVaultUnderfunded
	}
	return nil
}

// escrowFunds moves the contribution from the purchaser into the refund
// escrow, tracked under the purchaser's own address for a potential refund.
func (e *Engine) escrowFunds(ctx *purchase) error {
	if err := e.escrow.Deposit(e.moduleAddr, ctx.purchaser, ctx.value); err != nil {
		return err
	}
	ctx.escrowed = true
	return nil
}

// sealOnGoal trips the isClose ratchet once the raised total meets the goal.
// The flag is never reset by a purchase.
func (e *Engine) sealOnGoal(ctx *purchase) error {
	if ctx.sale.GoalReached() {
		ctx.sale.IsClose = true
	}
	return nil
}

// storeReceipt persists the purchase receipt under its content-derived
// identifier. A storage failure rejects the purchase rather than settling it
// without a queryable record.
func (e *Engine) storeReceipt(ctx *purchase) error {
	preRaise := new(uint256.Int).Sub(ctx.sale.WeiRaised, ctx.value)
	var id [32]byte
	copy(id[:], ethcrypto.Keccak256(ctx.purchaser[:], ctx.beneficiary[:], preRaise.Bytes()))
	receipt := &types.PurchaseReceipt{
		ID:          id,
		Purchaser:   ctx.purchaser,
		Beneficiary: ctx.beneficiary,
		ValueWei:    new(uint256.Int).Set(ctx.value),
		Tokens:      new(uint256.Int).Set(ctx.tokens),
		Timestamp:   ctx.now,
	}
	if err := e.state.ReceiptPut(receipt); err != nil {
		return err
	}
	ctx.receipt = receipt
	ctx.receiptStored = true
	return nil
}

func (e *Engine) commitSale(ctx *purchase) error {
	if err := e.storeSale(ctx.sale); err != nil {
		return err
	}
	ctx.committed = true
	return nil
}

// deliverTokens issues the purchased amount to the beneficiary through the
// privileged issuance path, bypassing any pause on ordinary transfers. All
// internal state is already committed at this point.
func (e *Engine) deliverTokens(ctx *purchase) error {
	if e.token == nil {
		return ErrNotConfigured
	}
	return e.token.TransferToken(ctx.beneficiary, ctx.tokens)
}

// ClaimRefund pays the caller back their full tracked deposit. Refunds are
// only open once the sale is finalized with the goal unmet; the escrow
// zeroes the balance before paying so a second claim fails.
func (e *Engine) ClaimRefund(caller [20]byte) (*uint256.Int, error) {
	sale, err := e.loadSale()
	if err != nil {
		return nil, err
	}
	if !sale.IsFinalized {
		return nil, ErrNotFinalized
	}
	if sale.GoalReached() {
		return nil, ErrGoalReached
	}
	return e.escrow.Withdraw(e.moduleAddr, caller)
}

// DepositsOf returns the refundable balance tracked for depositor.
func (e *Engine) DepositsOf(depositor [20]byte) *uint256.Int {
	return e.escrow.DepositsOf(depositor)
}
