package rpc

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"salechain/crypto"
	"salechain/native/crowdsale"
	"salechain/state"
	"salechain/storage"
)

const (
	testAuthToken = "test-token"
	openingTime   = int64(1_000_000)
	closingTime   = int64(2_000_000)
)

func testAddr(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

var (
	ownerAddr  = testAddr(0x01)
	walletAddr = testAddr(0x02)
	vaultAddr  = testAddr(0x03)
	aliceAddr  = testAddr(0x0A)
)

type testServer struct {
	srv    *httptest.Server
	engine *crowdsale.Engine
	now    int64
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ledger := state.NewLedger(storage.NewMemDB(), vaultAddr)
	require.NoError(t, ledger.Credit(aliceAddr, uint256.NewInt(10_000)))
	require.NoError(t, ledger.MintTokens(vaultAddr, uint256.NewInt(1_000_000)))
	require.NoError(t, ledger.SalePut(&crowdsale.SaleState{
		Owner:           ownerAddr,
		Wallet:          walletAddr,
		Rate:            uint256.NewInt(100),
		BonusMultiplier: uint256.NewInt(1000),
		Goal:            uint256.NewInt(1000),
		WeiRaised:       uint256.NewInt(0),
		TokensIssued:    uint256.NewInt(0),
	}))

	window, err := crowdsale.NewWindow(openingTime, closingTime, openingTime-1)
	require.NoError(t, err)
	engine, err := crowdsale.NewEngine(ledger, ledger, window, walletAddr)
	require.NoError(t, err)
	ts := &testServer{engine: engine, now: openingTime + 1}
	engine.SetNowFunc(func() int64 { return ts.now })
	require.NoError(t, engine.SetupTokenVault(ownerAddr, state.NewTokenFacade(ledger), vaultAddr))

	server := NewServer(engine, ledger, testAuthToken, nil)
	ts.srv = httptest.NewServer(server.Router())
	t.Cleanup(ts.srv.Close)
	return ts
}

func (ts *testServer) call(t *testing.T, method string, params interface{}, token string) rpcResponse {
	t.Helper()
	payload := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
	}
	if params != nil {
		payload["params"] = params
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, ts.srv.URL+"/rpc", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var decoded rpcResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return decoded
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStatusIsPublic(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.call(t, "sale_status", nil, "")
	require.Nil(t, resp.Error)
	result, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var status statusResult
	require.NoError(t, json.Unmarshal(result, &status))
	require.Equal(t, "0", status.WeiRaised)
	require.Equal(t, "active", status.EscrowState)
	require.Equal(t, openingTime, status.OpeningTime)
}

func TestBuyTokensRequiresAuth(t *testing.T) {
	ts := newTestServer(t)
	params := map[string]string{
		"purchaser": crypto.NewAddress(aliceAddr).String(),
		"value":     "10",
	}
	resp := ts.call(t, "sale_buyTokens", params, "")
	require.NotNil(t, resp.Error)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	resp = ts.call(t, "sale_buyTokens", params, "wrong-token")
	require.NotNil(t, resp.Error)
	require.Equal(t, codeUnauthorized, resp.Error.Code)
}

func TestBuyTokensSettles(t *testing.T) {
	ts := newTestServer(t)
	params := map[string]string{
		"purchaser": crypto.NewAddress(aliceAddr).String(),
		"value":     "10",
	}
	resp := ts.call(t, "sale_buyTokens", params, testAuthToken)
	require.Nil(t, resp.Error)

	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var receipt receiptResult
	require.NoError(t, json.Unmarshal(raw, &receipt))
	require.Equal(t, "1000", receipt.Tokens)
	require.Equal(t, "10", receipt.ValueWei)

	deposits := ts.call(t, "sale_depositsOf", map[string]string{
		"address": crypto.NewAddress(aliceAddr).String(),
	}, "")
	require.Nil(t, deposits.Error)
	raw, err = json.Marshal(deposits.Result)
	require.NoError(t, err)
	var amount amountResult
	require.NoError(t, json.Unmarshal(raw, &amount))
	require.Equal(t, "10", amount.Amount)

	lookup := ts.call(t, "sale_receipt", map[string]string{"id": receipt.ID}, "")
	require.Nil(t, lookup.Error)
}

func TestBusinessErrorsMapToStateCode(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.call(t, "sale_claimRefund", map[string]string{
		"caller": crypto.NewAddress(aliceAddr).String(),
	}, testAuthToken)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeSaleState, resp.Error.Code)
}

func TestFinalizeOverRPC(t *testing.T) {
	ts := newTestServer(t)
	buy := ts.call(t, "sale_buyTokens", map[string]string{
		"purchaser": crypto.NewAddress(aliceAddr).String(),
		"value":     "10",
	}, testAuthToken)
	require.Nil(t, buy.Error)

	ts.now = closingTime + 1
	resp := ts.call(t, "sale_finalize", map[string]string{
		"caller": crypto.NewAddress(ownerAddr).String(),
	}, testAuthToken)
	require.Nil(t, resp.Error)

	refund := ts.call(t, "sale_claimRefund", map[string]string{
		"caller": crypto.NewAddress(aliceAddr).String(),
	}, testAuthToken)
	require.Nil(t, refund.Error)
	raw, err := json.Marshal(refund.Result)
	require.NoError(t, err)
	var amount amountResult
	require.NoError(t, json.Unmarshal(raw, &amount))
	require.Equal(t, "10", amount.Amount)
}

func TestMethodNotFound(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.call(t, "sale_unknown", nil, "")
	require.NotNil(t, resp.Error)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestUnknownAddressRejected(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.call(t, "sale_depositsOf", map[string]string{"address": "garbage"}, "")
	require.NotNil(t, resp.Error)
	require.Equal(t, codeInvalidParams, resp.Error.Code)
}
