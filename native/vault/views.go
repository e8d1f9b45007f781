package vault

import (
	"math/big"

	"github.com/holiman/uint256"

	"magni/crypto"
)

// PositionView is the read-only snapshot returned by GetPosition. Debt and
// the ratios derived from it are projected forward to the current time
// without mutating the stored position.
type PositionView struct {
	Address              crypto.Address
	CollateralMotes      *big.Int
	DebtWad              *uint256.Int
	LtvBps               uint64
	HealthFactorWad      *uint256.Int
	HealthFactorBounded  bool
	PendingWithdrawMotes *big.Int
	Status               Status
}

func (e *Engine) loadPosition(addr crypto.Address) (*Position, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	pos, err := e.state.VaultGetPosition(addr)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		return nil, nil
	}
	pos = pos.Clone()
	pos.normalize()
	return pos, nil
}

// CollateralOf reports the user's collateral. Users without a position
// report zero.
func (e *Engine) CollateralOf(addr crypto.Address) (*big.Int, error) {
	pos, err := e.loadPosition(addr)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		return big.NewInt(0), nil
	}
	return pos.CollateralMotes, nil
}

// DebtOf reports the user's debt projected to now. The projection is pure;
// the stored principal and accrual timestamp are untouched.
func (e *Engine) DebtOf(addr crypto.Address) (*uint256.Int, error) {
	pos, err := e.loadPosition(addr)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		return uint256.NewInt(0), nil
	}
	return ProjectDebt(pos.DebtPrincipal, pos.LastAccrualTs, e.nowFn())
}

// LtvOf reports the projected loan-to-value ratio in basis points.
func (e *Engine) LtvOf(addr crypto.Address) (uint64, error) {
	pos, err := e.loadPosition(addr)
	if err != nil {
		return 0, err
	}
	if pos == nil {
		return 0, nil
	}
	debt, err := ProjectDebt(pos.DebtPrincipal, pos.LastAccrualTs, e.nowFn())
	if err != nil {
		return 0, err
	}
	return LtvBps(debt, pos.CollateralMotes), nil
}

// HealthFactorOf reports max_borrow/debt scaled by 1e18. The boolean is
// false when the position carries no debt and the factor is unbounded.
func (e *Engine) HealthFactorOf(addr crypto.Address) (*uint256.Int, bool, error) {
	pos, err := e.loadPosition(addr)
	if err != nil {
		return nil, false, err
	}
	if pos == nil {
		return nil, false, nil
	}
	debt, err := ProjectDebt(pos.DebtPrincipal, pos.LastAccrualTs, e.nowFn())
	if err != nil {
		return nil, false, err
	}
	hf, bounded := HealthFactorWad(debt, pos.CollateralMotes)
	return hf, bounded, nil
}

// PendingWithdrawOf reports the unfinalised withdrawal amount.
func (e *Engine) PendingWithdrawOf(addr crypto.Address) (*big.Int, error) {
	pos, err := e.loadPosition(addr)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		return big.NewInt(0), nil
	}
	return pos.PendingWithdrawMotes, nil
}

// StatusOf reports the position's lifecycle state.
func (e *Engine) StatusOf(addr crypto.Address) (Status, error) {
	pos, err := e.loadPosition(addr)
	if err != nil {
		return StatusNone, err
	}
	if pos == nil {
		return StatusNone, nil
	}
	return pos.Status, nil
}

// GetPosition returns the full projected snapshot. It is strict: users
// without a position fail with ErrNoVault.
func (e *Engine) GetPosition(addr crypto.Address) (*PositionView, error) {
	pos, err := e.loadPosition(addr)
	if err != nil {
		return nil, err
	}
	if pos == nil || pos.Status == StatusNone {
		return nil, ErrNoVault
	}
	debt, err := ProjectDebt(pos.DebtPrincipal, pos.LastAccrualTs, e.nowFn())
	if err != nil {
		return nil, err
	}
	hf, bounded := HealthFactorWad(debt, pos.CollateralMotes)
	return &PositionView{
		Address:              pos.Address,
		CollateralMotes:      pos.CollateralMotes,
		DebtWad:              debt,
		LtvBps:               LtvBps(debt, pos.CollateralMotes),
		HealthFactorWad:      hf,
		HealthFactorBounded:  bounded,
		PendingWithdrawMotes: pos.PendingWithdrawMotes,
		Status:               pos.Status,
	}, nil
}

// Global returns a copy of the vault-wide scalars.
func (e *Engine) Global() (*GlobalState, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
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
