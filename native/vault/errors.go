package vault

import "errors"

var (
	// ErrContractPaused rejects user state-mutating entrypoints while the
	// owner-controlled pause flag is set.
	ErrContractPaused = errors.New("vault engine: contract paused")
	// ErrUnauthorized rejects admin entrypoints from non-owner callers.
	ErrUnauthorized = errors.New("vault engine: caller is not the owner")
	// ErrNoVault is returned by strict views, and by Borrow, for users without
	// a position.
	ErrNoVault = errors.New("vault engine: no position for user")
	// ErrZeroAmount rejects amount arguments that must be positive.
	ErrZeroAmount = errors.New("vault engine: amount must be positive")
	// ErrInsufficientCollateral rejects withdrawals exceeding the user's
	// collateral.
	ErrInsufficientCollateral = errors.New("vault engine: amount exceeds collateral")
	// ErrLtvExceeded rejects actions that would leave the position above the
	// maximum loan-to-value ratio.
	ErrLtvExceeded = errors.New("vault engine: loan-to-value limit exceeded")
	// ErrInsufficientDebt rejects repayments against a zero-debt position.
	ErrInsufficientDebt = errors.New("vault engine: no outstanding debt to repay")
	// ErrWithdrawPending rejects actions that require an Active position while
	// a withdrawal is unbonding.
	ErrWithdrawPending = errors.New("vault engine: withdrawal pending")
	// ErrNoWithdrawPending rejects finalize_withdraw without a pending
	// withdrawal.
	ErrNoWithdrawPending = errors.New("vault engine: no withdrawal pending")
	// ErrBelowMinDeposit is published for wrappers that enforce a minimum
	// per-call deposit. The engine itself accepts any positive deposit.
	ErrBelowMinDeposit = errors.New("vault engine: deposit below minimum")
	// ErrInvalidValidatorKey rejects empty or malformed validator keys.
	ErrInvalidValidatorKey = errors.New("vault engine: invalid validator key")
	// ErrOverflow signals that an arithmetic result exceeds its integer
	// domain.
	ErrOverflow = errors.New("vault engine: arithmetic overflow")

	errNilState       = errors.New("vault engine: state not configured")
	errNotInitialised = errors.New("vault engine: global state not initialised")
)
