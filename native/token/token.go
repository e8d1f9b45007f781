package token

import (
	"errors"
	"sync"

	"github.com/holiman/uint256"

	"magni/core/events"
	"magni/crypto"
)

var (
	// ErrNotMinter rejects mint/burn calls from any account other than the
	// vault configured at init.
	ErrNotMinter = errors.New("debt token: mint and burn are restricted to the vault")
	// ErrInsufficientBalance rejects transfers and burns exceeding the
	// source balance.
	ErrInsufficientBalance = errors.New("debt token: insufficient balance")
	// ErrInsufficientAllowance rejects transfer_from beyond the approved
	// allowance.
	ErrInsufficientAllowance = errors.New("debt token: insufficient allowance")
	// ErrInvalidAmount rejects zero or missing transfer amounts.
	ErrInvalidAmount = errors.New("debt token: amount must be positive")
	// ErrOverflow signals that a balance or the total supply left the wad
	// domain.
	ErrOverflow = errors.New("debt token: arithmetic overflow")

	errNilState = errors.New("debt token: state not configured")
)

type ledgerState interface {
	TokenGetBalance(addr crypto.Address) (*uint256.Int, error)
	TokenPutBalance(addr crypto.Address, amount *uint256.Int) error
	TokenGetAllowance(owner, spender crypto.Address) (*uint256.Int, error)
	TokenPutAllowance(owner, spender crypto.Address, amount *uint256.Int) error
	TokenGetSupply() (*uint256.Int, error)
	TokenPutSupply(amount *uint256.Int) error
}

// Ledger is the DEBT fungible-token ledger. Only the minter configured at
// init may mint or burn; everything else is standard approve/transfer
// accounting over 18-decimal wad amounts.
type Ledger struct {
	mu            sync.Mutex
	state         ledgerState
	minter        crypto.Address
	emitter       events.Emitter
	minterEmitter events.Emitter
}

// NewLedger constructs a ledger whose mint/burn authority is the vault
// module address.
func NewLedger(minter crypto.Address) *Ledger {
	return &Ledger{minter: minter, emitter: events.NoopEmitter{}}
}

// SetState wires the ledger to the external persistence layer.
func (l *Ledger) SetState(state ledgerState) { l.state = state }

// SetEmitter routes the events of public entrypoints (Approve, Transfer).
func (l *Ledger) SetEmitter(em events.Emitter) {
	if em == nil {
		em = events.NoopEmitter{}
	}
	l.emitter = em
}

// SetMinterEmitter routes the events of minter-driven flows (Mint, Burn, and
// TransferFrom on the minter's authority). The vault installs its
// per-entrypoint recorder here so these events flush with the entrypoint's
// own, and only when it succeeds. Unset, minter flows fall back to the
// public emitter.
func (l *Ledger) SetMinterEmitter(em events.Emitter) {
	l.minterEmitter = em
}

func (l *Ledger) minterEmit(ev events.Event) {
	if l.minterEmitter != nil {
		l.minterEmitter.Emit(ev)
		return
	}
	l.emitter.Emit(ev)
}

// Minter returns the configured mint/burn authority.
func (l *Ledger) Minter() crypto.Address { return l.minter }

// BalanceOf reports the holder's DEBT balance.
func (l *Ledger) BalanceOf(addr crypto.Address) (*uint256.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	balance, err := l.state.TokenGetBalance(addr)
	if err != nil {
		return nil, err
	}
	if balance == nil {
		return uint256.NewInt(0), nil
	}
	return balance, nil
}

// Allowance reports how much the spender may still pull from the owner.
func (l *Ledger) Allowance(owner, spender crypto.Address) (*uint256.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	allowance, err := l.state.TokenGetAllowance(owner, spender)
	if err != nil {
		return nil, err
	}
	if allowance == nil {
		return uint256.NewInt(0), nil
	}
	return allowance, nil
}

// TotalSupply reports the outstanding DEBT supply.
func (l *Ledger) TotalSupply() (*uint256.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	supply, err := l.state.TokenGetSupply()
	if err != nil {
		return nil, err
	}
	if supply == nil {
		return uint256.NewInt(0), nil
	}
	return supply, nil
}

// Approve sets the spender's allowance over the caller's balance. A zero
// amount clears the approval.
func (l *Ledger) Approve(owner, spender crypto.Address, amount *uint256.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if amount == nil {
		amount = uint256.NewInt(0)
	}
	if err := l.state.TokenPutAllowance(owner, spender, amount.Clone()); err != nil {
		return err
	}
	l.emitter.Emit(events.Approval{Owner: owner, Spender: spender, AmountWad: amount.Clone()})
	return nil
}

// Transfer moves DEBT from the caller to the recipient.
func (l *Ledger) Transfer(from, to crypto.Address, amount *uint256.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.move(from, to, amount); err != nil {
		return err
	}
	l.emitter.Emit(events.Transfer{From: from, To: to, AmountWad: amount.Clone()})
	return nil
}

// TransferFrom moves DEBT from the owner to the recipient on the spender's
// authority, debiting the allowance by the amount.
func (l *Ledger) TransferFrom(spender, from, to crypto.Address, amount *uint256.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	allowance, err := l.state.TokenGetAllowance(from, spender)
	if err != nil {
		return err
	}
	if allowance == nil {
		allowance = uint256.NewInt(0)
	}
	if allowance.Lt(amount) {
		return ErrInsufficientAllowance
	}
	if err := l.move(from, to, amount); err != nil {
		return err
	}
	remaining := new(uint256.Int).Sub(allowance, amount)
	if err := l.state.TokenPutAllowance(from, spender, remaining); err != nil {
		return err
	}
	ev := events.Transfer{From: from, To: to, AmountWad: amount.Clone()}
	if spender.String() == l.minter.String() {
		l.minterEmit(ev)
	} else {
		l.emitter.Emit(ev)
	}
	return nil
}

// Mint credits newly issued DEBT to the recipient. Minter only.
func (l *Ledger) Mint(caller, to crypto.Address, amount *uint256.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if caller.String() != l.minter.String() {
		return ErrNotMinter
	}
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	supply, err := l.TotalSupply()
	if err != nil {
		return err
	}
	newSupply, overflow := new(uint256.Int).AddOverflow(supply, amount)
	if overflow {
		return ErrOverflow
	}
	balance, err := l.BalanceOf(to)
	if err != nil {
		return err
	}
	newBalance, overflow := new(uint256.Int).AddOverflow(balance, amount)
	if overflow {
		return ErrOverflow
	}
	if err := l.state.TokenPutBalance(to, newBalance); err != nil {
		return err
	}
	if err := l.state.TokenPutSupply(newSupply); err != nil {
		return err
	}
	l.minterEmit(events.Transfer{To: to, AmountWad: amount.Clone()})
	return nil
}

// Burn destroys DEBT held by the source account. Minter only.
func (l *Ledger) Burn(caller, from crypto.Address, amount *uint256.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if caller.String() != l.minter.String() {
		return ErrNotMinter
	}
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	balance, err := l.BalanceOf(from)
	if err != nil {
		return err
	}
	if balance.Lt(amount) {
		return ErrInsufficientBalance
	}
	supply, err := l.TotalSupply()
	if err != nil {
		return err
	}
	if supply.Lt(amount) {
		return ErrInsufficientBalance
	}
	if err := l.state.TokenPutBalance(from, new(uint256.Int).Sub(balance, amount)); err != nil {
		return err
	}
	if err := l.state.TokenPutSupply(new(uint256.Int).Sub(supply, amount)); err != nil {
		return err
	}
	l.minterEmit(events.Transfer{From: from, AmountWad: amount.Clone()})
	return nil
}

func (l *Ledger) move(from, to crypto.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	fromBalance, err := l.BalanceOf(from)
	if err != nil {
		return err
	}
	if fromBalance.Lt(amount) {
		return ErrInsufficientBalance
	}
	toBalance, err := l.BalanceOf(to)
	if err != nil {
		return err
	}
	newTo, overflow := new(uint256.Int).AddOverflow(toBalance, amount)
	if overflow {
		return ErrOverflow
	}
	if err := l.state.TokenPutBalance(from, new(uint256.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	return l.state.TokenPutBalance(to, newTo)
}
