package vault

import (
	"math/big"

	"github.com/holiman/uint256"
)

// AccrualAmount computes simple interest on the principal over the elapsed
// seconds:
//
//	interest = principal * rateBps * elapsed / (SecondsPerYear * BpsDivisor)
//
// Any non-zero remainder rounds up, so a position with debt always accrues at
// least one wad unit per accrual window. The computation runs on wide
// integers; the result fails with ErrOverflow only when it leaves the wad
// domain.
func AccrualAmount(principal *uint256.Int, rateBps uint64, elapsedSeconds uint64) (*uint256.Int, error) {
	if principal == nil || principal.IsZero() || rateBps == 0 || elapsedSeconds == 0 {
		return uint256.NewInt(0), nil
	}
	num := new(big.Int).Mul(principal.ToBig(), new(big.Int).SetUint64(rateBps))
	num.Mul(num, new(big.Int).SetUint64(elapsedSeconds))
	den := new(big.Int).Mul(big.NewInt(SecondsPerYear), basisPoints)
	interest := ceilDiv(num, den)
	out, overflow := uint256.FromBig(interest)
	if overflow {
		return nil, ErrOverflow
	}
	return out, nil
}

// ProjectDebt returns the debt the principal would carry after accruing up to
// now. It is a pure forward projection used by views; it never mutates a
// position.
func ProjectDebt(principal *uint256.Int, lastAccrualTs, now uint64) (*uint256.Int, error) {
	if principal == nil || principal.IsZero() {
		return uint256.NewInt(0), nil
	}
	if now <= lastAccrualTs {
		return principal.Clone(), nil
	}
	interest, err := AccrualAmount(principal, InterestRateBps, now-lastAccrualTs)
	if err != nil {
		return nil, err
	}
	projected, overflow := new(uint256.Int).AddOverflow(principal, interest)
	if overflow {
		return nil, ErrOverflow
	}
	return projected, nil
}
