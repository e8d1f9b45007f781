package vault

import (
	"math/big"

	"github.com/holiman/uint256"

	"magni/crypto"
)

// Status tracks the lifecycle of a user position.
type Status uint8

const (
	// StatusNone marks an address that never deposited or fully exited.
	StatusNone Status = iota
	// StatusActive marks a position with collateral or debt.
	StatusActive
	// StatusWithdrawing marks a position committed to an unbonding
	// withdrawal that has not settled yet.
	StatusWithdrawing
)

func (s Status) String() string {
	switch s {
	case StatusNone:
		return "none"
	case StatusActive:
		return "active"
	case StatusWithdrawing:
		return "withdrawing"
	default:
		return "unknown"
	}
}

// Position maintains the vault ledger entry for an individual user.
type Position struct {
	// Address is the account the position belongs to.
	Address crypto.Address
	// CollateralMotes is the deposited and not yet withdrawn collateral.
	CollateralMotes *big.Int
	// DebtPrincipal is the DEBT owed, including all interest realised up to
	// LastAccrualTs.
	DebtPrincipal *uint256.Int
	// LastAccrualTs is the unix second interest was last folded into the
	// principal. It never moves backward.
	LastAccrualTs uint64
	// PendingWithdrawMotes is the amount of a submitted but unfinalised
	// withdrawal. Non-zero exactly while Status is StatusWithdrawing.
	PendingWithdrawMotes *big.Int
	// Status is the lifecycle state.
	Status Status
}

// Clone produces a deep copy so engine entrypoints can mutate freely and
// persist only on success.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	clone := &Position{
		Address:       p.Address,
		LastAccrualTs: p.LastAccrualTs,
		Status:        p.Status,
	}
	if p.CollateralMotes != nil {
		clone.CollateralMotes = new(big.Int).Set(p.CollateralMotes)
	}
	if p.DebtPrincipal != nil {
		clone.DebtPrincipal = p.DebtPrincipal.Clone()
	}
	if p.PendingWithdrawMotes != nil {
		clone.PendingWithdrawMotes = new(big.Int).Set(p.PendingWithdrawMotes)
	}
	return clone
}

func (p *Position) normalize() {
	if p.CollateralMotes == nil {
		p.CollateralMotes = big.NewInt(0)
	}
	if p.DebtPrincipal == nil {
		p.DebtPrincipal = uint256.NewInt(0)
	}
	if p.PendingWithdrawMotes == nil {
		p.PendingWithdrawMotes = big.NewInt(0)
	}
}

// GlobalState captures the vault-wide scalars shared across all positions.
type GlobalState struct {
	// Owner is the administrator fixed at init.
	Owner crypto.Address
	// Validator is the delegation target for pooled collateral.
	Validator crypto.ValidatorKey
	// Paused halts all user state-mutating entrypoints when true.
	Paused bool
	// TotalCollateralMotes is the sum of all positions' collateral.
	TotalCollateralMotes *big.Int
	// TotalDebtPrincipal is the sum of all positions' debt principal.
	TotalDebtPrincipal *uint256.Int
}

// Clone produces a deep copy of the global state.
func (g *GlobalState) Clone() *GlobalState {
	if g == nil {
		return nil
	}
	clone := &GlobalState{
		Owner:     g.Owner,
		Validator: g.Validator,
		Paused:    g.Paused,
	}
	if g.TotalCollateralMotes != nil {
		clone.TotalCollateralMotes = new(big.Int).Set(g.TotalCollateralMotes)
	}
	if g.TotalDebtPrincipal != nil {
		clone.TotalDebtPrincipal = g.TotalDebtPrincipal.Clone()
	}
	return clone
}

func (g *GlobalState) normalize() {
	if g.TotalCollateralMotes == nil {
		g.TotalCollateralMotes = big.NewInt(0)
	}
	if g.TotalDebtPrincipal == nil {
		g.TotalDebtPrincipal = uint256.NewInt(0)
	}
}
