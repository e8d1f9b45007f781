package rpc

import (
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"magni/core/events"
	"magni/core/types"
	"magni/crypto"
	"magni/native/common"
	"magni/native/delegation"
	"magni/native/token"
	"magni/native/vault"
	"magni/observability"
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
	codeUnauthorized   = -32001
	codeServerError    = -32000

	codeContractPaused         = -32050
	codeNoVault                = -32060
	codeInsufficientCollateral = -32061
	codeLtvExceeded            = -32062
	codeInsufficientDebt       = -32063
	codeInsufficientAllowance  = -32064
	codeInsufficientBalance    = -32065
	codeWithdrawPending        = -32066
	codeNoWithdrawPending      = -32067
	codeUnbondingNotComplete   = -32068
	codeInvalidValidatorKey    = -32069
	codeOverflow               = -32070
	codeBelowMinDeposit        = -32071
)

// ValueAttacher mirrors the host chain's attached-value semantics: the
// deposit handler announces inbound motes to the host before invoking the
// vault, the way value rides along a contract call.
type ValueAttacher interface {
	AttachValue(amount *big.Int)
}

// HostViewer exposes the host chain's account view for recipients credited by
// settled withdrawals.
type HostViewer interface {
	Account(addr crypto.Address) *types.Account
}

// Server exposes the vault and token entrypoints over JSON-RPC 2.0.
type Server struct {
	engine   *vault.Engine
	ledger   *token.Ledger
	log      *events.Log
	attacher ValueAttacher
	host     HostViewer
	// strictMinDeposit rejects deposits below the batching threshold with
	// BelowMinDeposit. The engine itself accepts any positive deposit.
	strictMinDeposit bool
	mux              *http.ServeMux
}

// NewServer wires the RPC surface around the engine and its collaborators.
func NewServer(engine *vault.Engine, ledger *token.Ledger, log *events.Log) *Server {
	s := &Server{engine: engine, ledger: ledger, log: log}
	s.mux = http.NewServeMux()
	s.mux.HandleFunc("/", s.handleRPC)
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.Handle("/metrics", promhttp.Handler())
	return s
}

// SetValueAttacher installs the host hook that receives attached deposit
// value.
func (s *Server) SetValueAttacher(a ValueAttacher) { s.attacher = a }

// SetHostViewer installs the host account view backing host_account.
func (s *Server) SetHostViewer(h HostViewer) { s.host = h }

// SetStrictMinDeposit toggles the wrapper-level minimum deposit check.
func (s *Server) SetStrictMinDeposit(strict bool) { s.strictMinDeposit = strict }

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe serves the RPC surface on the given address.
func (s *Server) ListenAndServe(addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

type handlerFunc func(w http.ResponseWriter, req *RPCRequest)

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, nil, codeInvalidRequest, "POST required", nil)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "unable to read request", err.Error())
		return
	}
	var req RPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", nil)
		return
	}

	module := "vault"
	if strings.HasPrefix(req.Method, "token_") {
		module = "token"
	}
	handler, ok := s.handlers()[req.Method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method not found", req.Method)
		return
	}
	start := time.Now()
	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	handler(recorder, &req)
	observability.ModuleMetrics().Observe(module, req.Method, recorder.status, time.Since(start))
}

func (s *Server) handlers() map[string]handlerFunc {
	return map[string]handlerFunc{
		"vault_deposit":          s.handleDeposit,
		"vault_addCollateral":    s.handleDeposit,
		"vault_borrow":           s.handleBorrow,
		"vault_repay":            s.handleRepay,
		"vault_repayAll":         s.handleRepayAll,
		"vault_requestWithdraw":  s.handleRequestWithdraw,
		"vault_withdrawMax":      s.handleWithdrawMax,
		"vault_finalizeWithdraw": s.handleFinalizeWithdraw,
		"vault_getPosition":      s.handleGetPosition,
		"vault_getGlobal":        s.handleGetGlobal,
		"vault_events":           s.handleEvents,
		"vault_setValidator":     s.handleSetValidator,
		"vault_pause":            s.handlePause,
		"vault_unpause":          s.handleUnpause,
		"token_balanceOf":        s.handleTokenBalanceOf,
		"token_totalSupply":      s.handleTokenTotalSupply,
		"token_allowance":        s.handleTokenAllowance,
		"token_approve":          s.handleTokenApprove,
		"token_transfer":         s.handleTokenTransfer,
		"host_account":           s.handleHostAccount,
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(RPCResponse{
		JSONRPC: jsonRPCVersion,
		ID:      id,
		Error:   &RPCError{Code: code, Message: message, Data: data},
	})
}

// writeDomainError maps engine errors onto stable RPC codes so clients can
// branch on the variant rather than the message text.
func writeDomainError(w http.ResponseWriter, id interface{}, err error) {
	status := http.StatusBadRequest
	code := codeServerError
	switch {
	case errors.Is(err, vault.ErrContractPaused), errors.Is(err, common.ErrModulePaused):
		code = codeContractPaused
	case errors.Is(err, vault.ErrUnauthorized):
		status = http.StatusUnauthorized
		code = codeUnauthorized
	case errors.Is(err, vault.ErrNoVault):
		code = codeNoVault
	case errors.Is(err, vault.ErrZeroAmount), errors.Is(err, token.ErrInvalidAmount):
		code = codeInvalidParams
	case errors.Is(err, vault.ErrInsufficientCollateral):
		code = codeInsufficientCollateral
	case errors.Is(err, vault.ErrLtvExceeded):
		code = codeLtvExceeded
	case errors.Is(err, vault.ErrInsufficientDebt):
		code = codeInsufficientDebt
	case errors.Is(err, token.ErrInsufficientAllowance):
		code = codeInsufficientAllowance
	case errors.Is(err, token.ErrInsufficientBalance):
		code = codeInsufficientBalance
	case errors.Is(err, vault.ErrWithdrawPending):
		code = codeWithdrawPending
	case errors.Is(err, vault.ErrNoWithdrawPending):
		code = codeNoWithdrawPending
	case errors.Is(err, delegation.ErrUnbondingNotComplete):
		code = codeUnbondingNotComplete
	case errors.Is(err, vault.ErrInvalidValidatorKey):
		code = codeInvalidValidatorKey
	case errors.Is(err, vault.ErrOverflow), errors.Is(err, token.ErrOverflow):
		code = codeOverflow
	case errors.Is(err, vault.ErrBelowMinDeposit):
		code = codeBelowMinDeposit
	default:
		status = http.StatusInternalServerError
	}
	writeError(w, status, id, code, err.Error(), nil)
}
