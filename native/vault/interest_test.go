package vault

import (
	"testing"

	"github.com/holiman/uint256"
)

func wad(n uint64) *uint256.Int {
	one := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(18))
	return new(uint256.Int).Mul(uint256.NewInt(n), one)
}

func TestAccrualExactYear(t *testing.T) {
	// 500 DEBT at 200 bps over one year accrues exactly 10 DEBT.
	interest, err := AccrualAmount(wad(500), InterestRateBps, SecondsPerYear)
	if err != nil {
		t.Fatalf("accrual: %v", err)
	}
	if interest.Cmp(wad(10)) != 0 {
		t.Fatalf("expected 10e18, got %s", interest.Dec())
	}
}

func TestAccrualRoundsUp(t *testing.T) {
	// One wad unit of principal for one second leaves a tiny remainder that
	// must round up to a single unit.
	interest, err := AccrualAmount(uint256.NewInt(1), InterestRateBps, 1)
	if err != nil {
		t.Fatalf("accrual: %v", err)
	}
	if !interest.Eq(uint256.NewInt(1)) {
		t.Fatalf("expected round-up to 1, got %s", interest.Dec())
	}
}

func TestAccrualZeroInputs(t *testing.T) {
	if interest, _ := AccrualAmount(uint256.NewInt(0), InterestRateBps, SecondsPerYear); !interest.IsZero() {
		t.Fatalf("zero principal must accrue nothing")
	}
	if interest, _ := AccrualAmount(wad(100), InterestRateBps, 0); !interest.IsZero() {
		t.Fatalf("zero elapsed must accrue nothing")
	}
}

func TestProjectDebt(t *testing.T) {
	projected, err := ProjectDebt(wad(500), 0, SecondsPerYear)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if projected.Cmp(wad(510)) != 0 {
		t.Fatalf("expected 510e18, got %s", projected.Dec())
	}

	// Clock regressions project nothing.
	same, err := ProjectDebt(wad(500), 100, 50)
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if same.Cmp(wad(500)) != 0 {
		t.Fatalf("expected unchanged principal, got %s", same.Dec())
	}
}
