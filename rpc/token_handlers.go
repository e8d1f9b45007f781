package rpc

import (
	"net/http"
)

type allowanceParams struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
}

type approveParams struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

type transferParams struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

func (s *Server) handleTokenBalanceOf(w http.ResponseWriter, req *RPCRequest) {
	var params addressParams
	if !decodeParams(w, req, &params) {
		return
	}
	addr, ok := parseAddress(w, req, params.Address)
	if !ok {
		return
	}
	balance, err := s.ledger.BalanceOf(addr)
	if err != nil {
		writeDomainError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"balance": balance.Dec()})
}

func (s *Server) handleTokenTotalSupply(w http.ResponseWriter, req *RPCRequest) {
	supply, err := s.ledger.TotalSupply()
	if err != nil {
		writeDomainError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"totalSupply": supply.Dec()})
}

func (s *Server) handleTokenAllowance(w http.ResponseWriter, req *RPCRequest) {
	var params allowanceParams
	if !decodeParams(w, req, &params) {
		return
	}
	owner, ok := parseAddress(w, req, params.Owner)
	if !ok {
		return
	}
	spender, ok := parseAddress(w, req, params.Spender)
	if !ok {
		return
	}
	allowance, err := s.ledger.Allowance(owner, spender)
	if err != nil {
		writeDomainError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"allowance": allowance.Dec()})
}

func (s *Server) handleTokenApprove(w http.ResponseWriter, req *RPCRequest) {
	var params approveParams
	if !decodeParams(w, req, &params) {
		return
	}
	owner, ok := parseAddress(w, req, params.Owner)
	if !ok {
		return
	}
	spender, ok := parseAddress(w, req, params.Spender)
	if !ok {
		return
	}
	amount, ok := parseWad(w, req, params.Amount)
	if !ok {
		return
	}
	if err := s.ledger.Approve(owner, spender, amount); err != nil {
		writeDomainError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"allowance": amount.Dec()})
}

func (s *Server) handleTokenTransfer(w http.ResponseWriter, req *RPCRequest) {
	var params transferParams
	if !decodeParams(w, req, &params) {
		return
	}
	from, ok := parseAddress(w, req, params.From)
	if !ok {
		return
	}
	to, ok := parseAddress(w, req, params.To)
	if !ok {
		return
	}
	amount, ok := parseWad(w, req, params.Amount)
	if !ok {
		return
	}
	if err := s.ledger.Transfer(from, to, amount); err != nil {
		writeDomainError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"transferred": amount.Dec()})
}
