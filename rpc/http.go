package rpc

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"salechain/native/crowdsale"
	"salechain/observability"
	"salechain/state"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeUnauthorized   = -32001

	codeSaleValidation = -32030
	codeSaleState      = -32031
	codeSaleForbidden  = -32032
	codeSaleArithmetic = -32033
)

// Server exposes the crowdsale engine over JSON-RPC 2.0, alongside health
// and metrics endpoints.
type Server struct {
	engine    *crowdsale.Engine
	ledger    *state.Ledger
	authToken string
	log       *slog.Logger
}

// NewServer wires the RPC surface. authToken guards mutating methods; an
// empty token disables them entirely.
func NewServer(engine *crowdsale.Engine, ledger *state.Ledger, authToken string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{engine: engine, ledger: ledger, authToken: strings.TrimSpace(authToken), log: log}
}

// Router builds the HTTP handler: /healthz, /metrics and the /rpc endpoint.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/rpc", s.handleRPC)
	return r
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type handlerFunc func(s *Server, params json.RawMessage) (interface{}, *rpcError)

var readMethods = map[string]handlerFunc{
	"sale_status":     (*Server).handleStatus,
	"sale_depositsOf": (*Server).handleDepositsOf,
	"sale_receipt":    (*Server).handleReceipt,
}

var writeMethods = map[string]handlerFunc{
	"sale_buyTokens":          (*Server).handleBuyTokens,
	"sale_claimRefund":        (*Server).handleClaimRefund,
	"sale_finalize":           (*Server).handleFinalize,
	"sale_transferOwnership":  (*Server).handleTransferOwnership,
	"sale_setupTokenVault":    (*Server).handleSetupTokenVault,
	"sale_updateState":        (*Server).handleUpdateState,
	"sale_setBonusMultiplier": (*Server).handleSetBonusMultiplier,
	"sale_updateRate":         (*Server).handleUpdateRate,
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeRPCError(w, nil, codeParseError, "unable to read request body")
		return
	}
	var req rpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeRPCError(w, nil, codeParseError, "invalid JSON payload")
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeRPCError(w, req.ID, codeInvalidRequest, "unsupported jsonrpc version")
		return
	}
	if handler, ok := readMethods[req.Method]; ok {
		s.respond(w, req, handler)
		return
	}
	if handler, ok := writeMethods[req.Method]; ok {
		if !s.authorized(r) {
			writeRPCError(w, req.ID, codeUnauthorized, "unauthorized")
			return
		}
		s.respond(w, req, handler)
		return
	}
	writeRPCError(w, req.ID, codeMethodNotFound, "method not found")
}

func (s *Server) respond(w http.ResponseWriter, req rpcRequest, handler handlerFunc) {
	result, rpcErr := handler(s, req.Params)
	if rpcErr != nil {
		writeRPCError(w, req.ID, rpcErr.Code, rpcErr.Message)
		return
	}
	writeJSON(w, rpcResponse{JSONRPC: jsonRPCVersion, ID: req.ID, Result: result})
}

func (s *Server) authorized(r *http.Request) bool {
	if s.authToken == "" {
		return false
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) == 1
}

// engineError maps an engine failure onto a JSON-RPC error and records it in
// the metrics registry.
func (s *Server) engineError(err error) *rpcError {
	class := crowdsale.Classify(err)
	observability.Sale().RecordRejection(string(class))
	code := codeServerError
	switch class {
	case crowdsale.ClassValidation:
		code = codeSaleValidation
	case crowdsale.ClassState:
		code = codeSaleState
	case crowdsale.ClassAuth:
		code = codeSaleForbidden
	case crowdsale.ClassArithmetic, crowdsale.ClassInvariant:
		code = codeSaleArithmetic
		s.log.Error("arithmetic or invariant failure", slog.String("error", err.Error()))
	}
	return &rpcError{Code: code, Message: err.Error()}
}

func writeRPCError(w http.ResponseWriter, id json.RawMessage, code int, message string) {
	writeJSON(w, rpcResponse{JSONRPC: jsonRPCVersion, ID: id, Error: &rpcError{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, payload rpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
