package main

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"magni/core/types"
	"magni/crypto"
)

// simHost is a local stand-in for the base chain's staking surface. It keeps
// the vault's liquid balance, the per-validator delegation totals, recipient
// accounts, and an unbonding queue gated by a configurable delay. The vault
// core never reads the delay; it only observes the liquidity this host
// reports.
type simHost struct {
	mu        sync.Mutex
	liquid    *big.Int
	staged    *big.Int
	delegated map[string]*big.Int
	accounts  map[string]*types.Account
	unbonding []unbondingEntry
	delay     uint64
	nowFn     func() uint64
}

type unbondingEntry struct {
	amount    *big.Int
	releaseAt uint64
}

func newSimHost(unbondingDelay uint64) *simHost {
	return &simHost{
		liquid:    big.NewInt(0),
		staged:    big.NewInt(0),
		delegated: make(map[string]*big.Int),
		accounts:  make(map[string]*types.Account),
		delay:     unbondingDelay,
		nowFn:     func() uint64 { return uint64(time.Now().Unix()) },
	}
}

// AttachValue records inbound motes riding along a deposit call. They stay
// staged until the adapter batches them into a delegation.
func (h *simHost) AttachValue(amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.staged = new(big.Int).Add(h.staged, amount)
}

func (h *simHost) releaseMaturedLocked() {
	now := h.nowFn()
	remaining := h.unbonding[:0]
	for _, entry := range h.unbonding {
		if entry.releaseAt <= now {
			h.liquid = new(big.Int).Add(h.liquid, entry.amount)
		} else {
			remaining = append(remaining, entry)
		}
	}
	h.unbonding = remaining
}

func (h *simHost) Delegate(validator crypto.ValidatorKey, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("host: delegate amount must be positive")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	available := new(big.Int).Add(h.staged, h.liquid)
	if available.Cmp(amount) < 0 {
		return fmt.Errorf("host: insufficient balance to delegate")
	}
	fromStaged := new(big.Int).Set(amount)
	if fromStaged.Cmp(h.staged) > 0 {
		fromStaged.Set(h.staged)
	}
	h.staged = new(big.Int).Sub(h.staged, fromStaged)
	h.liquid = new(big.Int).Sub(h.liquid, new(big.Int).Sub(amount, fromStaged))
	total, ok := h.delegated[validator.String()]
	if !ok {
		total = big.NewInt(0)
	}
	h.delegated[validator.String()] = new(big.Int).Add(total, amount)
	return nil
}

func (h *simHost) Undelegate(validator crypto.ValidatorKey, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("host: undelegate amount must be positive")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	total, ok := h.delegated[validator.String()]
	if !ok || total.Cmp(amount) < 0 {
		return fmt.Errorf("host: insufficient delegation to undelegate")
	}
	h.delegated[validator.String()] = new(big.Int).Sub(total, amount)
	h.unbonding = append(h.unbonding, unbondingEntry{
		amount:    new(big.Int).Set(amount),
		releaseAt: h.nowFn() + h.delay,
	})
	return nil
}

func (h *simHost) DelegatedAmount(validator crypto.ValidatorKey) (*big.Int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	total, ok := h.delegated[validator.String()]
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(total), nil
}

func (h *simHost) LiquidBalance() (*big.Int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.releaseMaturedLocked()
	return new(big.Int).Set(h.liquid), nil
}

func (h *simHost) TransferTo(recipient crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("host: transfer amount must be positive")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.releaseMaturedLocked()
	available := new(big.Int).Add(h.liquid, h.staged)
	if available.Cmp(amount) < 0 {
		return fmt.Errorf("host: insufficient balance to transfer to %s", recipient.String())
	}
	fromLiquid := new(big.Int).Set(amount)
	if fromLiquid.Cmp(h.liquid) > 0 {
		fromLiquid.Set(h.liquid)
	}
	h.liquid = new(big.Int).Sub(h.liquid, fromLiquid)
	h.staged = new(big.Int).Sub(h.staged, new(big.Int).Sub(amount, fromLiquid))

	account, ok := h.accounts[recipient.String()]
	if !ok {
		account = &types.Account{BalanceMotes: big.NewInt(0)}
		h.accounts[recipient.String()] = account
	}
	account.BalanceMotes = new(big.Int).Add(account.BalanceMotes, amount)
	account.Nonce++
	return nil
}

// Account reports the host-side view of a recipient credited by settled
// withdrawals.
func (h *simHost) Account(addr crypto.Address) *types.Account {
	h.mu.Lock()
	defer h.mu.Unlock()
	account, ok := h.accounts[addr.String()]
	if !ok {
		return &types.Account{BalanceMotes: big.NewInt(0)}
	}
	return &types.Account{Nonce: account.Nonce, BalanceMotes: new(big.Int).Set(account.BalanceMotes)}
}
