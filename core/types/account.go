package types

import "math/big"

// Account captures the host-chain view of an address: a nonce and its liquid
// balance in motes. Delegated stake is tracked by the host, not here.
type Account struct {
	Nonce        uint64   `json:"nonce"`
	BalanceMotes *big.Int `json:"balanceMotes"`
}
