package rpc

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"salechain/crypto"
	"salechain/native/crowdsale"
	"salechain/observability"
	"salechain/state"
)

type addressParams struct {
	Address string `json:"address"`
}

type buyTokensParams struct {
	Purchaser   string `json:"purchaser"`
	Beneficiary string `json:"beneficiary"`
	Value       string `json:"value"`
}

type callerParams struct {
	Caller string `json:"caller"`
}

type transferOwnershipParams struct {
	Caller   string `json:"caller"`
	NewOwner string `json:"newOwner"`
}

type setupVaultParams struct {
	Caller string `json:"caller"`
	Vault  string `json:"vault"`
}

type updateStateParams struct {
	Caller string `json:"caller"`
	Close  bool   `json:"close"`
}

type parameterParams struct {
	Caller string `json:"caller"`
	Value  string `json:"value"`
}

type receiptParams struct {
	ID string `json:"id"`
}

type statusResult struct {
	Owner           string `json:"owner"`
	Wallet          string `json:"wallet"`
	Rate            string `json:"rate"`
	BonusMultiplier string `json:"bonusMultiplier"`
	Goal            string `json:"goal"`
	WeiRaised       string `json:"weiRaised"`
	TokensIssued    string `json:"tokensIssued"`
	IsClose         bool   `json:"isClose"`
	IsFinalized     bool   `json:"isFinalized"`
	GoalReached     bool   `json:"goalReached"`
	EscrowState     string `json:"escrowState"`
	EscrowCustody   string `json:"escrowCustody"`
	OpeningTime     int64  `json:"openingTime"`
	ClosingTime     int64  `json:"closingTime"`
}

type receiptResult struct {
	ID          string `json:"id"`
	Purchaser   string `json:"purchaser"`
	Beneficiary string `json:"beneficiary"`
	ValueWei    string `json:"valueWei"`
	Tokens      string `json:"tokens"`
	Timestamp   int64  `json:"timestamp"`
}

type amountResult struct {
	Amount string `json:"amount"`
}

func decodeParams(raw json.RawMessage, out interface{}) *rpcError {
	if len(raw) == 0 {
		return &rpcError{Code: codeInvalidParams, Message: "params required"}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &rpcError{Code: codeInvalidParams, Message: fmt.Sprintf("invalid params: %v", err)}
	}
	return nil
}

func parseAddr(field, value string) ([20]byte, *rpcError) {
	addr, err := crypto.ParseAddress(value)
	if err != nil {
		return [20]byte{}, &rpcError{Code: codeInvalidParams, Message: fmt.Sprintf("invalid %s: %v", field, err)}
	}
	return addr.Bytes(), nil
}

func parseAmount(field, value string) (*uint256.Int, *rpcError) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, &rpcError{Code: codeInvalidParams, Message: fmt.Sprintf("%s is required", field)}
	}
	amount := new(uint256.Int)
	if err := amount.SetFromDecimal(trimmed); err != nil {
		return nil, &rpcError{Code: codeInvalidParams, Message: fmt.Sprintf("invalid %s: %v", field, err)}
	}
	return amount, nil
}

func (s *Server) handleStatus(_ json.RawMessage) (interface{}, *rpcError) {
	sale, err := s.engine.Sale()
	if err != nil {
		return nil, s.engineError(err)
	}
	esc := s.engine.Escrow()
	window := s.engine.Window()
	return statusResult{
		Owner:           crypto.NewAddress(sale.Owner).String(),
		Wallet:          crypto.NewAddress(sale.Wallet).String(),
		Rate:            sale.Rate.Dec(),
		BonusMultiplier: sale.BonusMultiplier.Dec(),
		Goal:            sale.Goal.Dec(),
		WeiRaised:       sale.WeiRaised.Dec(),
		TokensIssued:    sale.TokensIssued.Dec(),
		IsClose:         sale.IsClose,
		IsFinalized:     sale.IsFinalized,
		GoalReached:     sale.GoalReached(),
		EscrowState:     esc.State().String(),
		EscrowCustody:   esc.Custody().Dec(),
		OpeningTime:     window.Opening(),
		ClosingTime:     window.Closing(),
	}, nil
}

func (s *Server) handleDepositsOf(raw json.RawMessage) (interface{}, *rpcError) {
	var params addressParams
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	addr, rpcErr := parseAddr("address", params.Address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return amountResult{Amount: s.engine.DepositsOf(addr).Dec()}, nil
}

func (s *Server) handleReceipt(raw json.RawMessage) (interface{}, *rpcError) {
	var params receiptParams
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	decoded, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(params.ID), "0x"))
	if err != nil || len(decoded) != 32 {
		return nil, &rpcError{Code: codeInvalidParams, Message: "invalid receipt id"}
	}
	var id [32]byte
	copy(id[:], decoded)
	receipt, ok := s.engine.Receipt(id)
	if !ok {
		return nil, &rpcError{Code: codeSaleState, Message: "receipt not found"}
	}
	return receiptResult{
		ID:          hex.EncodeToString(receipt.ID[:]),
		Purchaser:   crypto.NewAddress(receipt.Purchaser).String(),
		Beneficiary: crypto.NewAddress(receipt.Beneficiary).String(),
		ValueWei:    receipt.ValueWei.Dec(),
		Tokens:      receipt.Tokens.Dec(),
		Timestamp:   receipt.Timestamp,
	}, nil
}

func (s *Server) handleBuyTokens(raw json.RawMessage) (interface{}, *rpcError) {
	var params buyTokensParams
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	purchaser, rpcErr := parseAddr("purchaser", params.Purchaser)
	if rpcErr != nil {
		return nil, rpcErr
	}
	beneficiary := purchaser
	if strings.TrimSpace(params.Beneficiary) != "" {
		beneficiary, rpcErr = parseAddr("beneficiary", params.Beneficiary)
		if rpcErr != nil {
			return nil, rpcErr
		}
	}
	value, rpcErr := parseAmount("value", params.Value)
	if rpcErr != nil {
		return nil, rpcErr
	}
	receipt, err := s.engine.BuyTokens(purchaser, beneficiary, value)
	if err != nil {
		return nil, s.engineError(err)
	}
	observability.Sale().RecordPurchase()
	return receiptResult{
		ID:          hex.EncodeToString(receipt.ID[:]),
		Purchaser:   crypto.NewAddress(receipt.Purchaser).String(),
		Beneficiary: crypto.NewAddress(receipt.Beneficiary).String(),
		ValueWei:    receipt.ValueWei.Dec(),
		Tokens:      receipt.Tokens.Dec(),
		Timestamp:   receipt.Timestamp,
	}, nil
}

func (s *Server) handleClaimRefund(raw json.RawMessage) (interface{}, *rpcError) {
	var params callerParams
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddr("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	amount, err := s.engine.ClaimRefund(caller)
	if err != nil {
		return nil, s.engineError(err)
	}
	observability.Sale().RecordRefund()
	return amountResult{Amount: amount.Dec()}, nil
}

func (s *Server) handleFinalize(raw json.RawMessage) (interface{}, *rpcError) {
	var params callerParams
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddr("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.Finalize(caller); err != nil {
		return nil, s.engineError(err)
	}
	observability.Sale().RecordFinalization()
	return s.handleStatus(nil)
}

func (s *Server) handleTransferOwnership(raw json.RawMessage) (interface{}, *rpcError) {
	var params transferOwnershipParams
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddr("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	newOwner, rpcErr := parseAddr("newOwner", params.NewOwner)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.TransferOwnership(caller, newOwner); err != nil {
		return nil, s.engineError(err)
	}
	return map[string]bool{"ok": true}, nil
}

func (s *Server) handleSetupTokenVault(raw json.RawMessage) (interface{}, *rpcError) {
	var params setupVaultParams
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddr("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	vault, rpcErr := parseAddr("vault", params.Vault)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.SetupTokenVault(caller, state.NewTokenFacade(s.ledger), vault); err != nil {
		return nil, s.engineError(err)
	}
	return map[string]bool{"ok": true}, nil
}

func (s *Server) handleUpdateState(raw json.RawMessage) (interface{}, *rpcError) {
	var params updateStateParams
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddr("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.engine.UpdateCrowdsaleState(caller, params.Close); err != nil {
		return nil, s.engineError(err)
	}
	return map[string]bool{"ok": true}, nil
}

func (s *Server) handleSetBonusMultiplier(raw json.RawMessage) (interface{}, *rpcError) {
	return s.handleParameterUpdate(raw, (*crowdsale.Engine).SetBonusMultiplier)
}

func (s *Server) handleUpdateRate(raw json.RawMessage) (interface{}, *rpcError) {
	return s.handleParameterUpdate(raw, (*crowdsale.Engine).UpdateRate)
}

func (s *Server) handleParameterUpdate(raw json.RawMessage, apply func(*crowdsale.Engine, [20]byte, *uint256.Int) error) (interface{}, *rpcError) {
	var params parameterParams
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	caller, rpcErr := parseAddr("caller", params.Caller)
	if rpcErr != nil {
		return nil, rpcErr
	}
	value, rpcErr := parseAmount("value", params.Value)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if err := apply(s.engine, caller, value); err != nil {
		return nil, s.engineError(err)
	}
	return map[string]bool{"ok": true}, nil
}
