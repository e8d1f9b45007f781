package vault

import (
	"math/big"

	"github.com/holiman/uint256"
)

// The vault mixes two integer scales: motes (9 implied decimals, *big.Int)
// and wad (18 implied decimals, *uint256.Int). Keeping the scales on distinct
// types forces every crossing through the helpers below. Rounding never
// decreases a user's debt below its nominal value and never credits the user
// more collateral than nominal: interest rounds up, returned collateral and
// minted debt round down, required collateral rounds up.

// MotesToWad converts motes to wad exactly. The conversion fails with
// ErrOverflow when the result does not fit the wad domain.
func MotesToWad(m *big.Int) (*uint256.Int, error) {
	if m == nil || m.Sign() == 0 {
		return uint256.NewInt(0), nil
	}
	if m.Sign() < 0 {
		return nil, ErrOverflow
	}
	scaled := new(big.Int).Mul(m, wadFactor)
	w, overflow := uint256.FromBig(scaled)
	if overflow {
		return nil, ErrOverflow
	}
	return w, nil
}

// WadToMotes converts wad to motes, truncating toward zero.
func WadToMotes(w *uint256.Int) *big.Int {
	if w == nil || w.IsZero() {
		return big.NewInt(0)
	}
	return new(big.Int).Quo(w.ToBig(), wadFactor)
}

// WadToMotesCeil converts wad to motes, rounding any remainder up.
func WadToMotesCeil(w *uint256.Int) *big.Int {
	if w == nil || w.IsZero() {
		return big.NewInt(0)
	}
	return ceilDiv(w.ToBig(), wadFactor)
}

// MaxBorrowWad returns the largest debt the collateral supports, truncated.
func MaxBorrowWad(collateralMotes *big.Int) (*uint256.Int, error) {
	collateralWad, err := MotesToWad(collateralMotes)
	if err != nil {
		return nil, err
	}
	max := new(big.Int).Mul(collateralWad.ToBig(), big.NewInt(LTVMaxBps))
	max.Quo(max, basisPoints)
	out, overflow := uint256.FromBig(max)
	if overflow {
		return nil, ErrOverflow
	}
	return out, nil
}

// MinCollateralForDebt returns the smallest collateral, in motes, that keeps
// the given debt within the loan-to-value limit. Both the basis-point division
// and the wad-to-motes conversion round up.
func MinCollateralForDebt(debtWad *uint256.Int) *big.Int {
	if debtWad == nil || debtWad.IsZero() {
		return big.NewInt(0)
	}
	needWad := new(big.Int).Mul(debtWad.ToBig(), basisPoints)
	needWad = ceilDiv(needWad, big.NewInt(LTVMaxBps))
	return ceilDiv(needWad, wadFactor)
}

// WithinLtv reports whether the debt stays inside the loan-to-value limit for
// the given collateral. The comparison is exact: it runs on wide integers and
// never rounds.
func WithinLtv(debtWad *uint256.Int, collateralMotes *big.Int) bool {
	if debtWad == nil || debtWad.IsZero() {
		return true
	}
	if collateralMotes == nil || collateralMotes.Sign() <= 0 {
		return false
	}
	lhs := new(big.Int).Mul(debtWad.ToBig(), basisPoints)
	rhs := new(big.Int).Mul(collateralMotes, wadFactor)
	rhs.Mul(rhs, big.NewInt(LTVMaxBps))
	return lhs.Cmp(rhs) <= 0
}

// LtvBps returns the position's current loan-to-value ratio in basis points,
// truncated. A zero-debt or zero-collateral position reports zero.
func LtvBps(debtWad *uint256.Int, collateralMotes *big.Int) uint64 {
	if debtWad == nil || debtWad.IsZero() {
		return 0
	}
	if collateralMotes == nil || collateralMotes.Sign() <= 0 {
		return 0
	}
	num := new(big.Int).Mul(debtWad.ToBig(), basisPoints)
	den := new(big.Int).Mul(collateralMotes, wadFactor)
	num.Quo(num, den)
	if !num.IsUint64() {
		return ^uint64(0)
	}
	return num.Uint64()
}

// HealthFactorWad returns max_borrow / debt scaled by 1e18, truncated. The
// second return is false when the position carries no debt and the factor is
// unbounded.
func HealthFactorWad(debtWad *uint256.Int, collateralMotes *big.Int) (*uint256.Int, bool) {
	if debtWad == nil || debtWad.IsZero() {
		return nil, false
	}
	maxBorrow, err := MaxBorrowWad(collateralMotes)
	if err != nil {
		return uint256.NewInt(0), true
	}
	scaled := new(big.Int).Mul(maxBorrow.ToBig(), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	scaled.Quo(scaled, debtWad.ToBig())
	out, overflow := uint256.FromBig(scaled)
	if overflow {
		return new(uint256.Int).SetAllOne(), true
	}
	return out, true
}

func ceilDiv(a, b *big.Int) *big.Int {
	if a == nil || a.Sign() <= 0 || b == nil || b.Sign() <= 0 {
		return big.NewInt(0)
	}
	sum := new(big.Int).Add(a, new(big.Int).Sub(b, big.NewInt(1)))
	return sum.Quo(sum, b)
}
