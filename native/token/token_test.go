package token

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"magni/crypto"
)

type mockLedgerState struct {
	balances   map[string]*uint256.Int
	allowances map[string]*uint256.Int
	supply     *uint256.Int
}

func newMockLedgerState() *mockLedgerState {
	return &mockLedgerState{
		balances:   make(map[string]*uint256.Int),
		allowances: make(map[string]*uint256.Int),
	}
}

func (m *mockLedgerState) key(addr crypto.Address) string { return string(addr.Bytes()) }

func (m *mockLedgerState) TokenGetBalance(addr crypto.Address) (*uint256.Int, error) {
	return m.balances[m.key(addr)], nil
}

func (m *mockLedgerState) TokenPutBalance(addr crypto.Address, amount *uint256.Int) error {
	m.balances[m.key(addr)] = amount
	return nil
}

func (m *mockLedgerState) TokenGetAllowance(owner, spender crypto.Address) (*uint256.Int, error) {
	return m.allowances[m.key(owner)+m.key(spender)], nil
}

func (m *mockLedgerState) TokenPutAllowance(owner, spender crypto.Address, amount *uint256.Int) error {
	m.allowances[m.key(owner)+m.key(spender)] = amount
	return nil
}

func (m *mockLedgerState) TokenGetSupply() (*uint256.Int, error) { return m.supply, nil }

func (m *mockLedgerState) TokenPutSupply(amount *uint256.Int) error {
	m.supply = amount
	return nil
}

func makeAddress(suffix byte) crypto.Address {
	raw := make([]byte, 20)
	raw[len(raw)-1] = suffix
	return crypto.MustNewAddress(crypto.MGNPrefix, raw)
}

func newTestLedger() (*Ledger, *mockLedgerState, crypto.Address) {
	minter := makeAddress(0x01)
	state := newMockLedgerState()
	ledger := NewLedger(minter)
	ledger.SetState(state)
	return ledger, state, minter
}

func TestMintRestrictedToMinter(t *testing.T) {
	ledger, _, minter := newTestLedger()
	user := makeAddress(0x10)

	if err := ledger.Mint(user, user, uint256.NewInt(100)); !errors.Is(err, ErrNotMinter) {
		t.Fatalf("expected ErrNotMinter, got %v", err)
	}
	if err := ledger.Mint(minter, user, uint256.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	balance, err := ledger.BalanceOf(user)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Eq(uint256.NewInt(100)) {
		t.Fatalf("unexpected balance: %s", balance.Dec())
	}
	supply, err := ledger.TotalSupply()
	if err != nil {
		t.Fatalf("supply: %v", err)
	}
	if !supply.Eq(uint256.NewInt(100)) {
		t.Fatalf("unexpected supply: %s", supply.Dec())
	}

	if err := ledger.Burn(user, user, uint256.NewInt(50)); !errors.Is(err, ErrNotMinter) {
		t.Fatalf("expected ErrNotMinter on burn, got %v", err)
	}
	if err := ledger.Burn(minter, user, uint256.NewInt(50)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	supply, _ = ledger.TotalSupply()
	if !supply.Eq(uint256.NewInt(50)) {
		t.Fatalf("unexpected supply after burn: %s", supply.Dec())
	}
}

func TestTransferFromDebitsAllowance(t *testing.T) {
	ledger, _, minter := newTestLedger()
	owner := makeAddress(0x11)
	spender := makeAddress(0x12)

	if err := ledger.Mint(minter, owner, uint256.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Approve(owner, spender, uint256.NewInt(60)); err != nil {
		t.Fatalf("approve: %v", err)
	}

	if err := ledger.TransferFrom(spender, owner, spender, uint256.NewInt(70)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}
	if err := ledger.TransferFrom(spender, owner, spender, uint256.NewInt(40)); err != nil {
		t.Fatalf("transfer from: %v", err)
	}
	allowance, err := ledger.Allowance(owner, spender)
	if err != nil {
		t.Fatalf("allowance: %v", err)
	}
	if !allowance.Eq(uint256.NewInt(20)) {
		t.Fatalf("expected allowance 20, got %s", allowance.Dec())
	}
	balance, _ := ledger.BalanceOf(spender)
	if !balance.Eq(uint256.NewInt(40)) {
		t.Fatalf("expected spender balance 40, got %s", balance.Dec())
	}
}

func TestTransferInsufficientBalance(t *testing.T) {
	ledger, _, minter := newTestLedger()
	owner := makeAddress(0x13)
	other := makeAddress(0x14)

	if err := ledger.Mint(minter, owner, uint256.NewInt(10)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Transfer(owner, other, uint256.NewInt(11)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if err := ledger.Transfer(owner, other, uint256.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	balance, _ := ledger.BalanceOf(owner)
	if !balance.Eq(uint256.NewInt(10)) {
		t.Fatalf("failed transfer mutated balance: %s", balance.Dec())
	}
}
