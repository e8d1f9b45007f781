package rpc

import (
	"encoding/json"
	"math/big"
	"net/http"
	"strings"

	"github.com/holiman/uint256"

	"magni/crypto"
	"magni/native/vault"
)

type callerParams struct {
	From string `json:"from"`
}

type motesAmountParams struct {
	From   string `json:"from"`
	Amount string `json:"amount"`
}

type wadAmountParams struct {
	From   string `json:"from"`
	Amount string `json:"amount"`
}

type addressParams struct {
	Address string `json:"address"`
}

type setValidatorParams struct {
	From      string `json:"from"`
	Validator string `json:"validator"`
}

type eventsParams struct {
	FromSequence uint64 `json:"fromSequence"`
}

func decodeParams(w http.ResponseWriter, req *RPCRequest, out interface{}) bool {
	if len(req.Params) == 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "missing parameters", nil)
		return false
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
		return false
	}
	return true
}

func parseAddress(w http.ResponseWriter, req *RPCRequest, raw string) (crypto.Address, bool) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(raw))
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid address", err.Error())
		return crypto.Address{}, false
	}
	return addr, true
}

func parseMotes(w http.ResponseWriter, req *RPCRequest, raw string) (*big.Int, bool) {
	amount, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok || amount.Sign() < 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid motes amount", raw)
		return nil, false
	}
	return amount, true
}

func parseWad(w http.ResponseWriter, req *RPCRequest, raw string) (*uint256.Int, bool) {
	amount, err := uint256.FromDecimal(strings.TrimSpace(raw))
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid wad amount", raw)
		return nil, false
	}
	return amount, true
}

func (s *Server) handleDeposit(w http.ResponseWriter, req *RPCRequest) {
	var params motesAmountParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, ok := parseAddress(w, req, params.From)
	if !ok {
		return
	}
	amount, ok := parseMotes(w, req, params.Amount)
	if !ok {
		return
	}
	if s.strictMinDeposit && amount.Cmp(vault.MinDepositMotes) < 0 {
		writeDomainError(w, req.ID, vault.ErrBelowMinDeposit)
		return
	}
	if s.attacher != nil && amount.Sign() > 0 {
		s.attacher.AttachValue(amount)
	}
	if err := s.engine.Deposit(caller, amount); err != nil {
		writeDomainError(w, req.ID, err)
		return
	}
	collateral, err := s.engine.CollateralOf(caller)
	if err != nil {
		writeDomainError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"newCollateral": collateral.String()})
}

func (s *Server) handleBorrow(w http.ResponseWriter, req *RPCRequest) {
	var params wadAmountParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, ok := parseAddress(w, req, params.From)
	if !ok {
		return
	}
	amount, ok := parseWad(w, req, params.Amount)
	if !ok {
		return
	}
	if err := s.engine.Borrow(caller, amount); err != nil {
		writeDomainError(w, req.ID, err)
		return
	}
	debt, err := s.engine.DebtOf(caller)
	if err != nil {
		writeDomainError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"newDebt": debt.Dec()})
}

func (s *Server) handleRepay(w http.ResponseWriter, req *RPCRequest) {
	var params wadAmountParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, ok := parseAddress(w, req, params.From)
	if !ok {
		return
	}
	amount, ok := parseWad(w, req, params.Amount)
	if !ok {
		return
	}
	applied, err := s.engine.Repay(caller, amount)
	if err != nil {
		writeDomainError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"applied": applied.Dec()})
}

func (s *Server) handleRepayAll(w http.ResponseWriter, req *RPCRequest) {
	var params callerParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, ok := parseAddress(w, req, params.From)
	if !ok {
		return
	}
	applied, err := s.engine.RepayAll(caller)
	if err != nil {
		writeDomainError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"applied": applied.Dec()})
}

func (s *Server) handleRequestWithdraw(w http.ResponseWriter, req *RPCRequest) {
	var params motesAmountParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, ok := parseAddress(w, req, params.From)
	if !ok {
		return
	}
	amount, ok := parseMotes(w, req, params.Amount)
	if !ok {
		return
	}
	if err := s.engine.RequestWithdraw(caller, amount); err != nil {
		writeDomainError(w, req.ID, err)
		return
	}
	status, err := s.engine.StatusOf(caller)
	if err != nil {
		writeDomainError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"status": status.String()})
}

func (s *Server) handleWithdrawMax(w http.ResponseWriter, req *RPCRequest) {
	var params callerParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, ok := parseAddress(w, req, params.From)
	if !ok {
		return
	}
	amount, err := s.engine.WithdrawMax(caller)
	if err != nil {
		writeDomainError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"amount": amount.String()})
}

func (s *Server) handleFinalizeWithdraw(w http.ResponseWriter, req *RPCRequest) {
	var params callerParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, ok := parseAddress(w, req, params.From)
	if !ok {
		return
	}
	if err := s.engine.FinalizeWithdraw(caller); err != nil {
		writeDomainError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"status": "finalized"})
}

type positionResult struct {
	Address         string `json:"address"`
	Collateral      string `json:"collateralMotes"`
	Debt            string `json:"debtWad"`
	LtvBps          uint64 `json:"ltvBps"`
	HealthFactor    string `json:"healthFactorWad,omitempty"`
	PendingWithdraw string `json:"pendingWithdrawMotes"`
	Status          string `json:"status"`
}

func (s *Server) handleGetPosition(w http.ResponseWriter, req *RPCRequest) {
	var params addressParams
	if !decodeParams(w, req, &params) {
		return
	}
	addr, ok := parseAddress(w, req, params.Address)
	if !ok {
		return
	}
	view, err := s.engine.GetPosition(addr)
	if err != nil {
		writeDomainError(w, req.ID, err)
		return
	}
	result := positionResult{
		Address:         view.Address.String(),
		Collateral:      view.CollateralMotes.String(),
		Debt:            view.DebtWad.Dec(),
		LtvBps:          view.LtvBps,
		PendingWithdraw: view.PendingWithdrawMotes.String(),
		Status:          view.Status.String(),
	}
	if view.HealthFactorBounded {
		result.HealthFactor = view.HealthFactorWad.Dec()
	}
	writeResult(w, req.ID, result)
}

func (s *Server) handleGetGlobal(w http.ResponseWriter, req *RPCRequest) {
	g, err := s.engine.Global()
	if err != nil {
		writeDomainError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]interface{}{
		"owner":           g.Owner.String(),
		"validator":       g.Validator.String(),
		"paused":          g.Paused,
		"totalCollateral": g.TotalCollateralMotes.String(),
		"totalDebt":       g.TotalDebtPrincipal.Dec(),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, req *RPCRequest) {
	var params eventsParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params[0], &params); err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameters", err.Error())
			return
		}
	}
	writeResult(w, req.ID, s.log.Records(params.FromSequence))
}

func (s *Server) handleSetValidator(w http.ResponseWriter, req *RPCRequest) {
	var params setValidatorParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, ok := parseAddress(w, req, params.From)
	if !ok {
		return
	}
	if err := s.engine.SetValidator(caller, params.Validator); err != nil {
		writeDomainError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"validator": params.Validator})
}

func (s *Server) handlePause(w http.ResponseWriter, req *RPCRequest) {
	s.handleSetPaused(w, req, true)
}

func (s *Server) handleUnpause(w http.ResponseWriter, req *RPCRequest) {
	s.handleSetPaused(w, req, false)
}

func (s *Server) handleHostAccount(w http.ResponseWriter, req *RPCRequest) {
	var params addressParams
	if !decodeParams(w, req, &params) {
		return
	}
	addr, ok := parseAddress(w, req, params.Address)
	if !ok {
		return
	}
	if s.host == nil {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "host view not available", nil)
		return
	}
	account := s.host.Account(addr)
	writeResult(w, req.ID, map[string]interface{}{
		"nonce":        account.Nonce,
		"balanceMotes": account.BalanceMotes.String(),
	})
}

func (s *Server) handleSetPaused(w http.ResponseWriter, req *RPCRequest, paused bool) {
	var params callerParams
	if !decodeParams(w, req, &params) {
		return
	}
	caller, ok := parseAddress(w, req, params.From)
	if !ok {
		return
	}
	var err error
	if paused {
		err = s.engine.Pause(caller)
	} else {
		err = s.engine.Unpause(caller)
	}
	if err != nil {
		writeDomainError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"paused": paused})
}
