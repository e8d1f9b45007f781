package events

import (
	"math/big"

	"github.com/holiman/uint256"

	"magni/core/types"
	"magni/crypto"
)

const (
	// TypeVaultDeposited captures collateral added to a position.
	TypeVaultDeposited = "vault.deposited"
	// TypeVaultBorrowed captures DEBT minted against collateral.
	TypeVaultBorrowed = "vault.borrowed"
	// TypeVaultRepaid captures DEBT returned and burned.
	TypeVaultRepaid = "vault.repaid"
	// TypeVaultWithdrawRequested captures a withdrawal leaving the collateral ledger.
	TypeVaultWithdrawRequested = "vault.withdrawRequested"
	// TypeVaultWithdrawFinalized captures motes settled back to the user.
	TypeVaultWithdrawFinalized = "vault.withdrawFinalized"
	// TypeVaultInterestAccrued captures interest folded into a position's principal.
	TypeVaultInterestAccrued = "vault.interestAccrued"
	// TypeVaultDelegationBatched captures a pooled delegation reaching the validator.
	TypeVaultDelegationBatched = "vault.delegationBatched"
	// TypeVaultUndelegationRequested captures an undelegation entering unbonding.
	TypeVaultUndelegationRequested = "vault.undelegationRequested"
	// TypeVaultValidatorSet captures an owner rotating the delegation target.
	TypeVaultValidatorSet = "vault.validatorSet"
)

func formatWad(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

// Deposited captures collateral credited to a position.
type Deposited struct {
	User          crypto.Address
	AmountMotes   *big.Int
	NewCollateral *big.Int
}

// EventType satisfies the Event interface.
func (Deposited) EventType() string { return TypeVaultDeposited }

// Event converts the structured payload into a broadcastable event.
func (e Deposited) Event() *types.Event {
	return &types.Event{Type: TypeVaultDeposited, Attributes: map[string]string{
		"user":          e.User.String(),
		"amount":        formatAmount(e.AmountMotes),
		"newCollateral": formatAmount(e.NewCollateral),
	}}
}

// Borrowed captures DEBT minted to a borrower.
type Borrowed struct {
	User      crypto.Address
	AmountWad *uint256.Int
	NewDebt   *uint256.Int
}

// EventType satisfies the Event interface.
func (Borrowed) EventType() string { return TypeVaultBorrowed }

// Event converts the structured payload into a broadcastable event.
func (e Borrowed) Event() *types.Event {
	return &types.Event{Type: TypeVaultBorrowed, Attributes: map[string]string{
		"user":    e.User.String(),
		"amount":  formatWad(e.AmountWad),
		"newDebt": formatWad(e.NewDebt),
	}}
}

// Repaid captures DEBT applied against a position's principal.
type Repaid struct {
	User      crypto.Address
	AmountWad *uint256.Int
	NewDebt   *uint256.Int
}

// EventType satisfies the Event interface.
func (Repaid) EventType() string { return TypeVaultRepaid }

// Event converts the structured payload into a broadcastable event.
func (e Repaid) Event() *types.Event {
	return &types.Event{Type: TypeVaultRepaid, Attributes: map[string]string{
		"user":    e.User.String(),
		"amount":  formatWad(e.AmountWad),
		"newDebt": formatWad(e.NewDebt),
	}}
}

// WithdrawRequested captures collateral leaving a position.
type WithdrawRequested struct {
	User        crypto.Address
	AmountMotes *big.Int
}

// EventType satisfies the Event interface.
func (WithdrawRequested) EventType() string { return TypeVaultWithdrawRequested }

// Event converts the structured payload into a broadcastable event.
func (e WithdrawRequested) Event() *types.Event {
	return &types.Event{Type: TypeVaultWithdrawRequested, Attributes: map[string]string{
		"user":   e.User.String(),
		"amount": formatAmount(e.AmountMotes),
	}}
}

// WithdrawFinalized captures motes transferred back to the user.
type WithdrawFinalized struct {
	User        crypto.Address
	AmountMotes *big.Int
}

// EventType satisfies the Event interface.
func (WithdrawFinalized) EventType() string { return TypeVaultWithdrawFinalized }

// Event converts the structured payload into a broadcastable event.
func (e WithdrawFinalized) Event() *types.Event {
	return &types.Event{Type: TypeVaultWithdrawFinalized, Attributes: map[string]string{
		"user":   e.User.String(),
		"amount": formatAmount(e.AmountMotes),
	}}
}

// InterestAccrued captures interest folded into a position's principal.
type InterestAccrued struct {
	User      crypto.Address
	AmountWad *uint256.Int
}

// EventType satisfies the Event interface.
func (InterestAccrued) EventType() string { return TypeVaultInterestAccrued }

// Event converts the structured payload into a broadcastable event.
func (e InterestAccrued) Event() *types.Event {
	return &types.Event{Type: TypeVaultInterestAccrued, Attributes: map[string]string{
		"user":   e.User.String(),
		"amount": formatWad(e.AmountWad),
	}}
}

// DelegationBatched captures pooled inbound motes reaching the validator.
type DelegationBatched struct {
	AmountMotes *big.Int
}

// EventType satisfies the Event interface.
func (DelegationBatched) EventType() string { return TypeVaultDelegationBatched }

// Event converts the structured payload into a broadcastable event.
func (e DelegationBatched) Event() *types.Event {
	return &types.Event{Type: TypeVaultDelegationBatched, Attributes: map[string]string{
		"amount": formatAmount(e.AmountMotes),
	}}
}

// UndelegationRequested captures a shortfall entering the unbonding queue.
type UndelegationRequested struct {
	AmountMotes *big.Int
}

// EventType satisfies the Event interface.
func (UndelegationRequested) EventType() string { return TypeVaultUndelegationRequested }

// Event converts the structured payload into a broadcastable event.
func (e UndelegationRequested) Event() *types.Event {
	return &types.Event{Type: TypeVaultUndelegationRequested, Attributes: map[string]string{
		"amount": formatAmount(e.AmountMotes),
	}}
}

// ValidatorSet captures the owner rotating the delegation target.
type ValidatorSet struct {
	NewValidator crypto.ValidatorKey
}

// EventType satisfies the Event interface.
func (ValidatorSet) EventType() string { return TypeVaultValidatorSet }

// Event converts the structured payload into a broadcastable event.
func (e ValidatorSet) Event() *types.Event {
	return &types.Event{Type: TypeVaultValidatorSet, Attributes: map[string]string{
		"validator": e.NewValidator.String(),
	}}
}
