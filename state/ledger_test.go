package state

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"salechain/core/types"
	"salechain/native/common"
	"salechain/native/crowdsale"
	"salechain/native/escrow"
	"salechain/storage"
)

func testAddr(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

var (
	vaultAddr = testAddr(0x01)
	aliceAddr = testAddr(0x0A)
	bobAddr   = testAddr(0x0B)
)

func newTestLedger() *Ledger {
	return NewLedger(storage.NewMemDB(), vaultAddr)
}

func TestTransferMovesBalance(t *testing.T) {
	ledger := newTestLedger()
	if err := ledger.Credit(aliceAddr, uint256.NewInt(100)); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if err := ledger.Transfer(aliceAddr, bobAddr, uint256.NewInt(40)); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	alice, err := ledger.GetAccount(aliceAddr)
	if err != nil {
		t.Fatalf("get account failed: %v", err)
	}
	bob, err := ledger.GetAccount(bobAddr)
	if err != nil {
		t.Fatalf("get account failed: %v", err)
	}
	if !alice.Balance.Eq(uint256.NewInt(60)) || !bob.Balance.Eq(uint256.NewInt(40)) {
		t.Fatalf("unexpected balances: %s / %s", alice.Balance, bob.Balance)
	}
}

func TestTransferInsufficientFunds(t *testing.T) {
	ledger := newTestLedger()
	if err := ledger.Transfer(aliceAddr, bobAddr, uint256.NewInt(1)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}

func TestPrivilegedTransferBypassesPause(t *testing.T) {
	ledger := newTestLedger()
	if err := ledger.MintTokens(vaultAddr, uint256.NewInt(1000)); err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	ledger.SetPaused("token", true)

	if err := ledger.TransferTokens(vaultAddr, aliceAddr, uint256.NewInt(10)); !errors.Is(err, common.ErrModulePaused) {
		t.Fatalf("expected pause to block standard transfer, got %v", err)
	}
	if err := ledger.TransferToken(aliceAddr, uint256.NewInt(10)); err != nil {
		t.Fatalf("privileged transfer failed despite pause: %v", err)
	}
	got, err := ledger.BalanceOf(aliceAddr)
	if err != nil {
		t.Fatalf("balance read failed: %v", err)
	}
	if !got.Eq(uint256.NewInt(10)) {
		t.Fatalf("expected token balance 10, got %s", got)
	}
}

func TestNeedALightBurnsSupply(t *testing.T) {
	ledger := newTestLedger()
	if err := ledger.MintTokens(vaultAddr, uint256.NewInt(500)); err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if err := ledger.NeedALight(vaultAddr, uint256.NewInt(200)); err != nil {
		t.Fatalf("burn failed: %v", err)
	}
	supply, err := ledger.TokenSupply()
	if err != nil {
		t.Fatalf("supply read failed: %v", err)
	}
	if !supply.Eq(uint256.NewInt(300)) {
		t.Fatalf("expected supply 300, got %s", supply)
	}
	if err := ledger.NeedALight(vaultAddr, uint256.NewInt(400)); !errors.Is(err, ErrInsufficientTokens) {
		t.Fatalf("expected burn to fail, got %v", err)
	}
}

func TestSaleStateRoundTrip(t *testing.T) {
	ledger := newTestLedger()
	if _, ok := ledger.SaleGet(); ok {
		t.Fatal("expected no sale state in fresh ledger")
	}
	sale := &crowdsale.SaleState{
		Owner:           aliceAddr,
		Wallet:          bobAddr,
		Rate:            uint256.NewInt(100),
		BonusMultiplier: uint256.NewInt(1000),
		Goal:            uint256.NewInt(5000),
		WeiRaised:       uint256.NewInt(123),
		TokensIssued:    uint256.NewInt(12300),
		IsClose:         true,
	}
	if err := ledger.SalePut(sale); err != nil {
		t.Fatalf("sale put failed: %v", err)
	}
	loaded, ok := ledger.SaleGet()
	if !ok {
		t.Fatal("sale state missing after put")
	}
	if loaded.Owner != aliceAddr || !loaded.WeiRaised.Eq(uint256.NewInt(123)) || !loaded.IsClose {
		t.Fatalf("sale state mismatch: %+v", loaded)
	}
}

func TestEscrowSnapshotRoundTrip(t *testing.T) {
	ledger := newTestLedger()
	if _, ok := ledger.EscrowGet(); ok {
		t.Fatal("expected no escrow snapshot in fresh ledger")
	}
	stored := &escrow.StoredEscrow{
		State:   escrow.StateRefunding,
		Custody: uint256.NewInt(50),
		Deposits: map[string]*uint256.Int{
			hex.EncodeToString(aliceAddr[:]): uint256.NewInt(30),
			hex.EncodeToString(bobAddr[:]):   uint256.NewInt(20),
		},
	}
	if err := ledger.EscrowPut(stored); err != nil {
		t.Fatalf("escrow put failed: %v", err)
	}
	loaded, ok := ledger.EscrowGet()
	if !ok {
		t.Fatal("escrow snapshot missing after put")
	}
	if loaded.State != escrow.StateRefunding || !loaded.Custody.Eq(uint256.NewInt(50)) {
		t.Fatalf("escrow snapshot mismatch: %+v", loaded)
	}
	if got := loaded.Deposits[hex.EncodeToString(aliceAddr[:])]; !got.Eq(uint256.NewInt(30)) {
		t.Fatalf("expected alice deposit 30, got %s", got)
	}
}

func TestReceiptDelete(t *testing.T) {
	ledger := newTestLedger()
	receipt := &types.PurchaseReceipt{
		ID:          [32]byte{0x01},
		Purchaser:   aliceAddr,
		Beneficiary: aliceAddr,
		ValueWei:    uint256.NewInt(10),
		Tokens:      uint256.NewInt(1000),
		Timestamp:   1,
	}
	if err := ledger.ReceiptPut(receipt); err != nil {
		t.Fatalf("receipt put failed: %v", err)
	}
	if _, ok := ledger.ReceiptGet(receipt.ID); !ok {
		t.Fatal("receipt missing after put")
	}
	if err := ledger.ReceiptDelete(receipt.ID); err != nil {
		t.Fatalf("receipt delete failed: %v", err)
	}
	if _, ok := ledger.ReceiptGet(receipt.ID); ok {
		t.Fatal("receipt still present after delete")
	}
}

func TestTokenFacade(t *testing.T) {
	ledger := newTestLedger()
	if err := ledger.MintTokens(vaultAddr, uint256.NewInt(100)); err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	facade := NewTokenFacade(ledger)
	if err := facade.TransferToken(aliceAddr, uint256.NewInt(25)); err != nil {
		t.Fatalf("facade transfer failed: %v", err)
	}
	got, err := facade.BalanceOf(aliceAddr)
	if err != nil {
		t.Fatalf("facade balance failed: %v", err)
	}
	if !got.Eq(uint256.NewInt(25)) {
		t.Fatalf("expected 25, got %s", got)
	}
	if err := facade.NeedALight(aliceAddr, uint256.NewInt(25)); err != nil {
		t.Fatalf("facade burn failed: %v", err)
	}
}
