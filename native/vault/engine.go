package vault

import (
	"math/big"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"magni/core/events"
	"magni/crypto"
	nativecommon "magni/native/common"
	"magni/native/delegation"
	debttoken "magni/native/token"
)

type engineState interface {
	VaultGetPosition(addr crypto.Address) (*Position, error)
	VaultPutPosition(pos *Position) error
	VaultGetGlobal() (*GlobalState, error)
	VaultPutGlobal(g *GlobalState) error
}

type debtToken interface {
	Mint(caller, to crypto.Address, amount *uint256.Int) error
	Burn(caller, from crypto.Address, amount *uint256.Int) error
	TransferFrom(spender, from, to crypto.Address, amount *uint256.Int) error
	BalanceOf(addr crypto.Address) (*uint256.Int, error)
	Allowance(owner, spender crypto.Address) (*uint256.Int, error)
	TotalSupply() (*uint256.Int, error)
}

type delegationAdapter interface {
	RecordInbound(validator crypto.ValidatorKey, amount *big.Int) error
	RequestOutbound(validator crypto.ValidatorKey, amount *big.Int) (*delegation.Ticket, error)
	TrySettle(ticket *delegation.Ticket, recipient crypto.Address) error
}

// Engine orchestrates the vault's state transitions: the per-user position
// state machine, the loan-to-value invariant, interest accrual ordering, and
// event emission. Entrypoints buffer their mutations on cloned records and
// persist only after every check passed, so a failed call leaves state
// untouched. Events flush after persistence; failed calls emit nothing.
type Engine struct {
	mu            sync.Mutex
	state         engineState
	token         debtToken
	adapter       delegationAdapter
	moduleAddress crypto.Address
	emitter       events.Emitter
	pauses        nativecommon.PauseView
	nowFn         func() uint64
	pending       []events.Event
}

// NewEngine constructs a vault engine whose own token account is the module
// address. Interest mints land there and are burned on repay.
func NewEngine(moduleAddr crypto.Address) *Engine {
	return &Engine{
		moduleAddress: moduleAddr,
		emitter:       events.NoopEmitter{},
		nowFn:         func() uint64 { return uint64(time.Now().Unix()) },
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetToken wires the DEBT ledger collaborator.
func (e *Engine) SetToken(token debtToken) { e.token = token }

// SetAdapter wires the delegation adapter collaborator.
func (e *Engine) SetAdapter(adapter delegationAdapter) { e.adapter = adapter }

// SetEmitter routes the engine's events, typically to the append-only log.
func (e *Engine) SetEmitter(em events.Emitter) {
	if em == nil {
		em = events.NoopEmitter{}
	}
	e.emitter = em
}

// SetPauses installs the operations-level pause view consulted ahead of the
// contract's own pause flag.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetClock overrides the wall clock. The clock must be monotonic at second
// granularity; accrual clamps regressions rather than moving timestamps
// backward.
func (e *Engine) SetClock(now func() uint64) {
	if now != nil {
		e.nowFn = now
	}
}

// ModuleAddress returns the vault's own token account.
func (e *Engine) ModuleAddress() crypto.Address { return e.moduleAddress }

// Recorder returns an emitter that appends into the engine's per-entrypoint
// event buffer. Collaborators invoked inside an entrypoint emit through it so
// their events flush in order and only on success.
func (e *Engine) Recorder() events.Emitter { return recorder{engine: e} }

type recorder struct{ engine *Engine }

func (r recorder) Emit(ev events.Event) { r.engine.emit(ev) }

func (e *Engine) emit(ev events.Event) { e.pending = append(e.pending, ev) }

func (e *Engine) flush() {
	for _, ev := range e.pending {
		e.emitter.Emit(ev)
	}
	e.pending = e.pending[:0]
}

// Initialize writes the global record on first boot. It is a no-op when the
// vault is already initialised.
func (e *Engine) Initialize(owner crypto.Address, validator crypto.ValidatorKey) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	existing, err := e.state.VaultGetGlobal()
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	g := &GlobalState{Owner: owner, Validator: validator}
	g.normalize()
	return e.state.VaultPutGlobal(g)
}

func (e *Engine) ensureGlobal() (*GlobalState, error) {
	g, err := e.state.VaultGetGlobal()
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, errNotInitialised
	}
	g = g.Clone()
	g.normalize()
	return g, nil
}

func (e *Engine) ensurePosition(addr crypto.Address) (*Position, error) {
	pos, err := e.state.VaultGetPosition(addr)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		pos = &Position{Address: addr, LastAccrualTs: e.nowFn()}
	} else {
		pos = pos.Clone()
	}
	pos.normalize()
	return pos, nil
}

// accrue folds simple interest into the position's principal and the global
// debt total. It runs exactly once per entrypoint, before any other
// side-effectful step, and only ever moves the accrual timestamp forward.
// The matching interest mint is applied by realizeInterest during the
// persist phase.
func (e *Engine) accrue(pos *Position, g *GlobalState) (*uint256.Int, error) {
	now := e.nowFn()
	if now < pos.LastAccrualTs {
		now = pos.LastAccrualTs
	}
	if pos.DebtPrincipal.IsZero() {
		pos.LastAccrualTs = now
		return uint256.NewInt(0), nil
	}
	elapsed := now - pos.LastAccrualTs
	if elapsed == 0 {
		return uint256.NewInt(0), nil
	}
	interest, err := AccrualAmount(pos.DebtPrincipal, InterestRateBps, elapsed)
	if err != nil {
		return nil, err
	}
	pos.LastAccrualTs = now
	if interest.IsZero() {
		return interest, nil
	}
	newPrincipal, overflow := new(uint256.Int).AddOverflow(pos.DebtPrincipal, interest)
	if overflow {
		return nil, ErrOverflow
	}
	newTotal, overflow := new(uint256.Int).AddOverflow(g.TotalDebtPrincipal, interest)
	if overflow {
		return nil, ErrOverflow
	}
	pos.DebtPrincipal = newPrincipal
	g.TotalDebtPrincipal = newTotal
	e.emit(events.InterestAccrued{User: pos.Address, AmountWad: interest.Clone()})
	return interest, nil
}

// realizeInterest mints accrued interest to the vault's own account, keeping
// the DEBT supply equal to the global debt principal.
func (e *Engine) realizeInterest(interest *uint256.Int) error {
	if interest == nil || interest.IsZero() {
		return nil
	}
	return e.token.Mint(e.moduleAddress, e.moduleAddress, interest)
}

func (e *Engine) guard(g *GlobalState) error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if g.Paused {
		return ErrContractPaused
	}
	return nil
}

func (e *Engine) checkWired() error {
	if e == nil || e.state == nil || e.token == nil || e.adapter == nil {
		return errNilState
	}
	return nil
}

// Deposit credits the attached motes to the caller's collateral and routes
// them into the pooled delegation batch.
func (e *Engine) Deposit(caller crypto.Address, attached *big.Int) error {
	if err := e.checkWired(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = e.pending[:0]

	g, err := e.ensureGlobal()
	if err != nil {
		return err
	}
	if err := e.guard(g); err != nil {
		return err
	}
	pos, err := e.ensurePosition(caller)
	if err != nil {
		return err
	}
	if pos.Status == StatusWithdrawing {
		return ErrWithdrawPending
	}
	if attached == nil || attached.Sign() <= 0 {
		return ErrZeroAmount
	}
	interest, err := e.accrue(pos, g)
	if err != nil {
		return err
	}

	pos.CollateralMotes = new(big.Int).Add(pos.CollateralMotes, attached)
	pos.Status = StatusActive
	g.TotalCollateralMotes = new(big.Int).Add(g.TotalCollateralMotes, attached)

	if err := e.adapter.RecordInbound(g.Validator, attached); err != nil {
		return err
	}
	if err := e.realizeInterest(interest); err != nil {
		return err
	}
	if err := e.state.VaultPutPosition(pos); err != nil {
		return err
	}
	if err := e.state.VaultPutGlobal(g); err != nil {
		return err
	}
	e.emit(events.Deposited{
		User:          caller,
		AmountMotes:   new(big.Int).Set(attached),
		NewCollateral: new(big.Int).Set(pos.CollateralMotes),
	})
	e.flush()
	return nil
}

// AddCollateral is an exact alias of Deposit.
func (e *Engine) AddCollateral(caller crypto.Address, attached *big.Int) error {
	return e.Deposit(caller, attached)
}

// Borrow mints DEBT to the caller against their collateral, up to the
// loan-to-value limit.
func (e *Engine) Borrow(caller crypto.Address, amount *uint256.Int) error {
	if err := e.checkWired(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = e.pending[:0]

	g, err := e.ensureGlobal()
	if err != nil {
		return err
	}
	if err := e.guard(g); err != nil {
		return err
	}
	pos, err := e.ensurePosition(caller)
	if err != nil {
		return err
	}
	switch pos.Status {
	case StatusActive:
	case StatusWithdrawing:
		return ErrWithdrawPending
	default:
		return ErrNoVault
	}
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}
	interest, err := e.accrue(pos, g)
	if err != nil {
		return err
	}

	newDebt, overflow := new(uint256.Int).AddOverflow(pos.DebtPrincipal, amount)
	if overflow {
		return ErrOverflow
	}
	if !WithinLtv(newDebt, pos.CollateralMotes) {
		return ErrLtvExceeded
	}
	newTotal, overflow := new(uint256.Int).AddOverflow(g.TotalDebtPrincipal, amount)
	if overflow {
		return ErrOverflow
	}
	// Both mint legs must be proven in-domain before either executes: the
	// caller's wallet balance is not bounded by their own debt, so the
	// position-level checks above do not cover it.
	balance, err := e.token.BalanceOf(caller)
	if err != nil {
		return err
	}
	projected, overflow := new(uint256.Int).AddOverflow(balance, amount)
	if overflow {
		return ErrOverflow
	}
	if caller.String() == e.moduleAddress.String() {
		if _, overflow = new(uint256.Int).AddOverflow(projected, interest); overflow {
			return ErrOverflow
		}
	}
	pos.DebtPrincipal = newDebt
	g.TotalDebtPrincipal = newTotal

	if err := e.realizeInterest(interest); err != nil {
		return err
	}
	if err := e.token.Mint(e.moduleAddress, caller, amount); err != nil {
		return err
	}
	if err := e.state.VaultPutPosition(pos); err != nil {
		return err
	}
	if err := e.state.VaultPutGlobal(g); err != nil {
		return err
	}
	e.emit(events.Borrowed{
		User:      caller,
		AmountWad: amount.Clone(),
		NewDebt:   pos.DebtPrincipal.Clone(),
	})
	e.flush()
	return nil
}

// Repay pulls up to the outstanding debt from the caller and burns it. The
// applied amount is capped at the current debt and returned.
func (e *Engine) Repay(caller crypto.Address, amount *uint256.Int) (*uint256.Int, error) {
	if err := e.checkWired(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.repayLocked(caller, amount, false)
}

// RepayAll repays the caller's entire post-accrual debt. The approved
// allowance must cover all of it.
func (e *Engine) RepayAll(caller crypto.Address) (*uint256.Int, error) {
	if err := e.checkWired(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.repayLocked(caller, nil, true)
}

func (e *Engine) repayLocked(caller crypto.Address, amount *uint256.Int, all bool) (*uint256.Int, error) {
	e.pending = e.pending[:0]

	g, err := e.ensureGlobal()
	if err != nil {
		return nil, err
	}
	if err := e.guard(g); err != nil {
		return nil, err
	}
	if !all && (amount == nil || amount.IsZero()) {
		return nil, ErrZeroAmount
	}
	pos, err := e.ensurePosition(caller)
	if err != nil {
		return nil, err
	}
	interest, err := e.accrue(pos, g)
	if err != nil {
		return nil, err
	}
	if pos.DebtPrincipal.IsZero() {
		return nil, ErrInsufficientDebt
	}

	applied := pos.DebtPrincipal.Clone()
	if !all && amount.Lt(applied) {
		applied = amount.Clone()
	}

	allowance, err := e.token.Allowance(caller, e.moduleAddress)
	if err != nil {
		return nil, err
	}
	if allowance.Lt(applied) {
		return nil, debttoken.ErrInsufficientAllowance
	}
	balance, err := e.token.BalanceOf(caller)
	if err != nil {
		return nil, err
	}
	if balance.Lt(applied) {
		return nil, debttoken.ErrInsufficientBalance
	}

	pos.DebtPrincipal = new(uint256.Int).Sub(pos.DebtPrincipal, applied)
	g.TotalDebtPrincipal = new(uint256.Int).Sub(g.TotalDebtPrincipal, applied)

	if err := e.realizeInterest(interest); err != nil {
		return nil, err
	}
	if err := e.token.TransferFrom(e.moduleAddress, caller, e.moduleAddress, applied); err != nil {
		return nil, err
	}
	if err := e.token.Burn(e.moduleAddress, e.moduleAddress, applied); err != nil {
		return nil, err
	}
	if err := e.state.VaultPutPosition(pos); err != nil {
		return nil, err
	}
	if err := e.state.VaultPutGlobal(g); err != nil {
		return nil, err
	}
	e.emit(events.Repaid{
		User:      caller,
		AmountWad: applied.Clone(),
		NewDebt:   pos.DebtPrincipal.Clone(),
	})
	e.flush()
	return applied, nil
}

// RequestWithdraw deducts collateral and either settles immediately from
// liquid reserves or commits the position to an unbonding withdrawal.
func (e *Engine) RequestWithdraw(caller crypto.Address, amount *big.Int) error {
	if err := e.checkWired(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = e.pending[:0]

	g, err := e.ensureGlobal()
	if err != nil {
		return err
	}
	if err := e.guard(g); err != nil {
		return err
	}
	pos, err := e.ensurePosition(caller)
	if err != nil {
		return err
	}
	if pos.Status == StatusWithdrawing {
		return ErrWithdrawPending
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	if amount.Cmp(pos.CollateralMotes) > 0 {
		return ErrInsufficientCollateral
	}
	interest, err := e.accrue(pos, g)
	if err != nil {
		return err
	}
	return e.withdrawTail(g, pos, amount, interest)
}

// WithdrawMax withdraws the most collateral the position's debt allows,
// using rounding that never lands the user above the loan-to-value cap. The
// withdrawn amount is returned.
func (e *Engine) WithdrawMax(caller crypto.Address) (*big.Int, error) {
	if err := e.checkWired(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = e.pending[:0]

	g, err := e.ensureGlobal()
	if err != nil {
		return nil, err
	}
	if err := e.guard(g); err != nil {
		return nil, err
	}
	pos, err := e.ensurePosition(caller)
	if err != nil {
		return nil, err
	}
	if pos.Status == StatusWithdrawing {
		return nil, ErrWithdrawPending
	}
	interest, err := e.accrue(pos, g)
	if err != nil {
		return nil, err
	}
	amount := new(big.Int).Sub(pos.CollateralMotes, MinCollateralForDebt(pos.DebtPrincipal))
	if amount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	if err := e.withdrawTail(g, pos, amount, interest); err != nil {
		return nil, err
	}
	return amount, nil
}

// withdrawTail applies the shared second half of a withdrawal request: the
// LTV check, collateral deduction, and ticket settlement. The caller has
// already validated status and amount bounds and run accrual.
func (e *Engine) withdrawTail(g *GlobalState, pos *Position, amount *big.Int, interest *uint256.Int) error {
	newCollateral := new(big.Int).Sub(pos.CollateralMotes, amount)
	if !WithinLtv(pos.DebtPrincipal, newCollateral) {
		return ErrLtvExceeded
	}
	pos.CollateralMotes = newCollateral
	g.TotalCollateralMotes = new(big.Int).Sub(g.TotalCollateralMotes, amount)

	ticket, err := e.adapter.RequestOutbound(g.Validator, amount)
	if err != nil {
		return err
	}
	if ticket.IsLiquid() {
		if err := e.adapter.TrySettle(ticket, pos.Address); err != nil {
			return err
		}
		pos.PendingWithdrawMotes = big.NewInt(0)
		if pos.CollateralMotes.Sign() > 0 || !pos.DebtPrincipal.IsZero() {
			pos.Status = StatusActive
		} else {
			pos.Status = StatusNone
		}
	} else {
		pos.PendingWithdrawMotes = new(big.Int).Set(amount)
		pos.Status = StatusWithdrawing
	}

	if err := e.realizeInterest(interest); err != nil {
		return err
	}
	if err := e.state.VaultPutPosition(pos); err != nil {
		return err
	}
	if err := e.state.VaultPutGlobal(g); err != nil {
		return err
	}
	e.emit(events.WithdrawRequested{User: pos.Address, AmountMotes: new(big.Int).Set(amount)})
	if ticket.IsLiquid() {
		e.emit(events.WithdrawFinalized{User: pos.Address, AmountMotes: new(big.Int).Set(amount)})
	}
	e.flush()
	return nil
}

// FinalizeWithdraw retries settlement of the caller's pending withdrawal. It
// fails with the adapter's ErrUnbondingNotComplete, changing nothing, until
// the host has released enough liquidity.
func (e *Engine) FinalizeWithdraw(caller crypto.Address) error {
	if err := e.checkWired(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = e.pending[:0]

	g, err := e.ensureGlobal()
	if err != nil {
		return err
	}
	if err := e.guard(g); err != nil {
		return err
	}
	pos, err := e.ensurePosition(caller)
	if err != nil {
		return err
	}
	if pos.Status != StatusWithdrawing {
		return ErrNoWithdrawPending
	}
	amount := new(big.Int).Set(pos.PendingWithdrawMotes)
	if err := e.adapter.TrySettle(delegation.UnbondingTicket(amount), caller); err != nil {
		return err
	}
	pos.PendingWithdrawMotes = big.NewInt(0)
	if pos.CollateralMotes.Sign() > 0 || !pos.DebtPrincipal.IsZero() {
		pos.Status = StatusActive
	} else {
		pos.Status = StatusNone
	}
	if err := e.state.VaultPutPosition(pos); err != nil {
		return err
	}
	e.emit(events.WithdrawFinalized{User: caller, AmountMotes: amount})
	e.flush()
	return nil
}

// --- Admin entrypoints ---

// SetValidator rotates the delegation target. Owner only. Existing
// delegation is not migrated; subsequent batches target the new key.
func (e *Engine) SetValidator(caller crypto.Address, rawKey string) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = e.pending[:0]

	g, err := e.ensureGlobal()
	if err != nil {
		return err
	}
	if caller.String() != g.Owner.String() {
		return ErrUnauthorized
	}
	key, err := crypto.ParseValidatorKey(rawKey)
	if err != nil {
		return ErrInvalidValidatorKey
	}
	g.Validator = key
	if err := e.state.VaultPutGlobal(g); err != nil {
		return err
	}
	e.emit(events.ValidatorSet{NewValidator: key})
	e.flush()
	return nil
}

// Pause halts all user state-mutating entrypoints. Owner only.
func (e *Engine) Pause(caller crypto.Address) error {
	return e.setPaused(caller, true)
}

// Unpause resumes user entrypoints. Owner only.
func (e *Engine) Unpause(caller crypto.Address) error {
	return e.setPaused(caller, false)
}

func (e *Engine) setPaused(caller crypto.Address, paused bool) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := e.ensureGlobal()
	if err != nil {
		return err
	}
	if caller.String() != g.Owner.String() {
		return ErrUnauthorized
	}
	g.Paused = paused
	return e.state.VaultPutGlobal(g)
}
