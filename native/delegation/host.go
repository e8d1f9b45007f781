package delegation

import (
	"math/big"

	"magni/crypto"
)

// Host abstracts the base-chain staking operations the adapter consumes. The
// adapter never models unbonding time itself; it only observes the liquidity
// the host reports.
type Host interface {
	// Delegate moves motes from the vault's balance to the validator.
	Delegate(validator crypto.ValidatorKey, amount *big.Int) error
	// Undelegate requests motes back from the validator. The returned motes
	// become liquid only after the host's unbonding delay elapses; the call
	// does not wait for it.
	Undelegate(validator crypto.ValidatorKey, amount *big.Int) error
	// DelegatedAmount reports the motes currently delegated to the validator.
	DelegatedAmount(validator crypto.ValidatorKey) (*big.Int, error)
	// LiquidBalance reports the vault's settled, un-delegated balance. It
	// excludes inbound value the adapter has recorded but not yet batched;
	// that earmark is tracked by the adapter as pending delegation.
	LiquidBalance() (*big.Int, error)
	// TransferTo moves motes from the vault's balance to the recipient. The
	// host may draw on both the settled balance and unbatched inbound value.
	TransferTo(recipient crypto.Address, amount *big.Int) error
}
