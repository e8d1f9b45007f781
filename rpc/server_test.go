package rpc

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"magni/core/events"
	"magni/core/state"
	"magni/crypto"
	"magni/native/delegation"
	"magni/native/token"
	"magni/native/vault"
	"magni/storage"
)

type rpcHost struct {
	liquid *big.Int
	staged *big.Int
}

func newRPCHost() *rpcHost { return &rpcHost{liquid: big.NewInt(0), staged: big.NewInt(0)} }

func (h *rpcHost) AttachValue(amount *big.Int) { h.staged = new(big.Int).Add(h.staged, amount) }

func (h *rpcHost) Delegate(_ crypto.ValidatorKey, amount *big.Int) error {
	h.staged = new(big.Int).Sub(h.staged, amount)
	return nil
}

func (h *rpcHost) Undelegate(crypto.ValidatorKey, *big.Int) error { return nil }

func (h *rpcHost) DelegatedAmount(crypto.ValidatorKey) (*big.Int, error) { return big.NewInt(0), nil }

func (h *rpcHost) LiquidBalance() (*big.Int, error) { return new(big.Int).Set(h.liquid), nil }

func (h *rpcHost) TransferTo(crypto.Address, *big.Int) error { return nil }

func testAddr(suffix byte) crypto.Address {
	raw := make([]byte, 20)
	raw[len(raw)-1] = suffix
	return crypto.MustNewAddress(crypto.MGNPrefix, raw)
}

func newTestServer(t *testing.T) (*httptest.Server, crypto.Address) {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())
	log := events.NewLog()
	host := newRPCHost()
	moduleAddr := testAddr(0x01)
	owner := testAddr(0x02)

	ledger := token.NewLedger(moduleAddr)
	ledger.SetState(manager)
	ledger.SetEmitter(log)

	adapter := delegation.NewAdapter(host, vault.MinDepositMotes)
	adapter.SetState(manager)

	engine := vault.NewEngine(moduleAddr)
	engine.SetState(manager)
	engine.SetToken(ledger)
	engine.SetAdapter(adapter)
	engine.SetEmitter(log)
	engine.SetClock(func() uint64 { return 1_700_000_000 })
	adapter.SetEmitter(engine.Recorder())
	ledger.SetMinterEmitter(engine.Recorder())

	validator := crypto.MustNewAddress(crypto.ValidatorPrefix, testAddr(0x03).Bytes())
	validatorKey, err := crypto.ParseValidatorKey(validator.String())
	require.NoError(t, err)
	require.NoError(t, engine.Initialize(owner, validatorKey))

	server := NewServer(engine, ledger, log)
	server.SetValueAttacher(host)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts, owner
}

func call(t *testing.T, ts *httptest.Server, method string, params interface{}) (*RPCResponse, int) {
	t.Helper()
	var raw []json.RawMessage
	if params != nil {
		encoded, err := json.Marshal(params)
		require.NoError(t, err)
		raw = []json.RawMessage{encoded}
	}
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  raw,
	})
	require.NoError(t, err)

	resp, err := http.Post(ts.URL, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded RPCResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return &decoded, resp.StatusCode
}

func cspr(n int64) string {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(vault.MotesPerBase)).String()
}

func debtWad(n int64) string {
	one := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	return new(big.Int).Mul(big.NewInt(n), one).String()
}

func TestDepositBorrowOverRPC(t *testing.T) {
	ts, _ := newTestServer(t)
	user := testAddr(0x10)

	resp, status := call(t, ts, "vault_deposit", map[string]string{
		"from":   user.String(),
		"amount": cspr(500),
	})
	require.Equal(t, http.StatusOK, status)
	require.Nil(t, resp.Error)

	resp, status = call(t, ts, "vault_borrow", map[string]string{
		"from":   user.String(),
		"amount": debtWad(200),
	})
	require.Equal(t, http.StatusOK, status)
	require.Nil(t, resp.Error)

	resp, status = call(t, ts, "vault_getPosition", map[string]string{
		"address": user.String(),
	})
	require.Equal(t, http.StatusOK, status)
	require.Nil(t, resp.Error)
	result, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var view positionResult
	require.NoError(t, json.Unmarshal(result, &view))
	require.Equal(t, "active", view.Status)
	require.EqualValues(t, 4000, view.LtvBps)
	require.Equal(t, debtWad(200), view.Debt)
}

func TestBorrowBeyondCapMapsToLtvCode(t *testing.T) {
	ts, _ := newTestServer(t)
	user := testAddr(0x11)

	resp, _ := call(t, ts, "vault_deposit", map[string]string{
		"from":   user.String(),
		"amount": cspr(100),
	})
	require.Nil(t, resp.Error)

	resp, status := call(t, ts, "vault_borrow", map[string]string{
		"from":   user.String(),
		"amount": debtWad(81),
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeLtvExceeded, resp.Error.Code)
}

func TestPauseRequiresOwner(t *testing.T) {
	ts, owner := newTestServer(t)
	user := testAddr(0x12)

	resp, status := call(t, ts, "vault_pause", map[string]string{"from": user.String()})
	require.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	resp, status = call(t, ts, "vault_pause", map[string]string{"from": owner.String()})
	require.Equal(t, http.StatusOK, status)
	require.Nil(t, resp.Error)

	resp, status = call(t, ts, "vault_deposit", map[string]string{
		"from":   user.String(),
		"amount": cspr(1),
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeContractPaused, resp.Error.Code)
}

func TestTokenApproveAndAllowance(t *testing.T) {
	ts, _ := newTestServer(t)
	owner := testAddr(0x13)
	spender := testAddr(0x14)

	resp, status := call(t, ts, "token_approve", map[string]string{
		"owner":   owner.String(),
		"spender": spender.String(),
		"amount":  debtWad(50),
	})
	require.Equal(t, http.StatusOK, status)
	require.Nil(t, resp.Error)

	resp, status = call(t, ts, "token_allowance", map[string]string{
		"owner":   owner.String(),
		"spender": spender.String(),
	})
	require.Equal(t, http.StatusOK, status)
	require.Nil(t, resp.Error)
	result, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	require.Contains(t, string(result), debtWad(50))
}

func TestStrictMinDeposit(t *testing.T) {
	manager := state.NewManager(storage.NewMemDB())
	log := events.NewLog()
	host := newRPCHost()
	moduleAddr := testAddr(0x01)

	ledger := token.NewLedger(moduleAddr)
	ledger.SetState(manager)
	adapter := delegation.NewAdapter(host, vault.MinDepositMotes)
	adapter.SetState(manager)
	engine := vault.NewEngine(moduleAddr)
	engine.SetState(manager)
	engine.SetToken(ledger)
	engine.SetAdapter(adapter)
	engine.SetEmitter(log)
	adapter.SetEmitter(engine.Recorder())
	ledger.SetMinterEmitter(engine.Recorder())

	validator := crypto.MustNewAddress(crypto.ValidatorPrefix, testAddr(0x03).Bytes())
	validatorKey, err := crypto.ParseValidatorKey(validator.String())
	require.NoError(t, err)
	require.NoError(t, engine.Initialize(testAddr(0x02), validatorKey))

	server := NewServer(engine, ledger, log)
	server.SetValueAttacher(host)
	server.SetStrictMinDeposit(true)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	user := testAddr(0x15)
	resp, status := call(t, ts, "vault_deposit", map[string]string{
		"from":   user.String(),
		"amount": cspr(499),
	})
	require.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeBelowMinDeposit, resp.Error.Code)

	resp, status = call(t, ts, "vault_deposit", map[string]string{
		"from":   user.String(),
		"amount": cspr(500),
	})
	require.Equal(t, http.StatusOK, status)
	require.Nil(t, resp.Error)
}

func TestUnknownMethod(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, status := call(t, ts, "vault_unknown", map[string]string{})
	require.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)
}
