package vault

import "math/big"

const moduleName = "vault"

// Protocol constants, fixed at init and never reconfigurable.
const (
	// MotesPerBase is the number of motes in one unit of the base asset.
	MotesPerBase = 1_000_000_000
	// MotesToWadFactor converts the 9-decimal motes scale to the 18-decimal
	// wad scale.
	MotesToWadFactor = 1_000_000_000
	// LTVMaxBps is the maximum loan-to-value ratio in basis points.
	LTVMaxBps = 8_000
	// BpsDivisor is the basis-point denominator.
	BpsDivisor = 10_000
	// InterestRateBps is the fixed annual simple-interest rate in basis points.
	InterestRateBps = 200
	// SecondsPerYear is the accrual year used by the interest formula.
	SecondsPerYear = 31_536_000
)

var (
	basisPoints = big.NewInt(BpsDivisor)
	wadFactor   = big.NewInt(MotesToWadFactor)

	// MinDepositMotes is the pooled-delegation batching threshold. Deposits
	// below it are accepted; batching simply waits for the pool to reach it.
	MinDepositMotes = new(big.Int).Mul(big.NewInt(500), big.NewInt(MotesPerBase))
)
