package state

import (
	"errors"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"magni/crypto"
	"magni/native/vault"
	"magni/storage"
)

var (
	vaultPositionPrefix       = []byte("vault/position/")
	vaultGlobalKeyBytes       = ethcrypto.Keccak256([]byte("vault/global"))
	tokenBalancePrefix        = []byte("token/balance/")
	tokenAllowancePrefix      = []byte("token/allowance/")
	tokenSupplyKeyBytes       = ethcrypto.Keccak256([]byte("token/supply"))
	delegationPendingKeyBytes = ethcrypto.Keccak256([]byte("delegation/pending"))
)

// Manager provides typed reads and writes of vault, token, and delegation
// records over a raw key-value database. Values are RLP encoded; keys are
// keccak hashes of stable string prefixes plus the raw account bytes, so the
// layout survives host-runtime differences in key escaping.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func kvKey(raw []byte) []byte {
	return ethcrypto.Keccak256(raw)
}

func prefixedKey(prefix, suffix []byte) []byte {
	buf := make([]byte, 0, len(prefix)+len(suffix))
	buf = append(buf, prefix...)
	buf = append(buf, suffix...)
	return kvKey(buf)
}

// KVPut RLP-encodes the value under the key.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if m == nil || m.db == nil {
		return fmt.Errorf("state manager unavailable")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.db.Put(key, encoded)
}

// KVGet decodes the stored value into out, reporting whether the key exists.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if m == nil || m.db == nil {
		return false, fmt.Errorf("state manager unavailable")
	}
	raw, err := m.db.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

// --- Vault ---

type storedPosition struct {
	Addr            []byte
	Collateral      *big.Int
	DebtPrincipal   *big.Int
	LastAccrualTs   uint64
	PendingWithdraw *big.Int
	Status          uint8
}

func newStoredPosition(pos *vault.Position) *storedPosition {
	stored := &storedPosition{
		Addr:            pos.Address.Bytes(),
		Collateral:      big.NewInt(0),
		DebtPrincipal:   big.NewInt(0),
		LastAccrualTs:   pos.LastAccrualTs,
		PendingWithdraw: big.NewInt(0),
		Status:          uint8(pos.Status),
	}
	if pos.CollateralMotes != nil {
		stored.Collateral = new(big.Int).Set(pos.CollateralMotes)
	}
	if pos.DebtPrincipal != nil {
		stored.DebtPrincipal = pos.DebtPrincipal.ToBig()
	}
	if pos.PendingWithdrawMotes != nil {
		stored.PendingWithdraw = new(big.Int).Set(pos.PendingWithdrawMotes)
	}
	return stored
}

func (s *storedPosition) toPosition() (*vault.Position, error) {
	addr, err := crypto.NewAddress(crypto.MGNPrefix, s.Addr)
	if err != nil {
		return nil, err
	}
	debt, overflow := uint256.FromBig(bigOrZero(s.DebtPrincipal))
	if overflow {
		return nil, fmt.Errorf("state: stored debt exceeds wad domain")
	}
	return &vault.Position{
		Address:              addr,
		CollateralMotes:      bigOrZero(s.Collateral),
		DebtPrincipal:        debt,
		LastAccrualTs:        s.LastAccrualTs,
		PendingWithdrawMotes: bigOrZero(s.PendingWithdraw),
		Status:               vault.Status(s.Status),
	}, nil
}

// VaultGetPosition loads the position tracked for the address, or nil when
// the user never deposited.
func (m *Manager) VaultGetPosition(addr crypto.Address) (*vault.Position, error) {
	var stored storedPosition
	ok, err := m.KVGet(prefixedKey(vaultPositionPrefix, addr.Bytes()), &stored)
	if err != nil || !ok {
		return nil, err
	}
	return stored.toPosition()
}

// VaultPutPosition persists the position under the owner's account bytes.
func (m *Manager) VaultPutPosition(pos *vault.Position) error {
	if pos == nil {
		return fmt.Errorf("state: position must not be nil")
	}
	addrBytes := pos.Address.Bytes()
	if len(addrBytes) == 0 {
		return fmt.Errorf("state: position address must be set")
	}
	return m.KVPut(prefixedKey(vaultPositionPrefix, addrBytes), newStoredPosition(pos))
}

type storedGlobal struct {
	Owner           []byte
	Validator       string
	Paused          bool
	TotalCollateral *big.Int
	TotalDebt       *big.Int
}

// VaultGetGlobal loads the vault-wide scalars, or nil before initialisation.
func (m *Manager) VaultGetGlobal() (*vault.GlobalState, error) {
	var stored storedGlobal
	ok, err := m.KVGet(vaultGlobalKeyBytes, &stored)
	if err != nil || !ok {
		return nil, err
	}
	owner, err := crypto.NewAddress(crypto.MGNPrefix, stored.Owner)
	if err != nil {
		return nil, err
	}
	totalDebt, overflow := uint256.FromBig(bigOrZero(stored.TotalDebt))
	if overflow {
		return nil, fmt.Errorf("state: stored debt total exceeds wad domain")
	}
	return &vault.GlobalState{
		Owner:                owner,
		Validator:            crypto.ValidatorKey(stored.Validator),
		Paused:               stored.Paused,
		TotalCollateralMotes: bigOrZero(stored.TotalCollateral),
		TotalDebtPrincipal:   totalDebt,
	}, nil
}

// VaultPutGlobal persists the vault-wide scalars.
func (m *Manager) VaultPutGlobal(g *vault.GlobalState) error {
	if g == nil {
		return fmt.Errorf("state: global state must not be nil")
	}
	stored := &storedGlobal{
		Owner:           g.Owner.Bytes(),
		Validator:       g.Validator.String(),
		Paused:          g.Paused,
		TotalCollateral: big.NewInt(0),
		TotalDebt:       big.NewInt(0),
	}
	if g.TotalCollateralMotes != nil {
		stored.TotalCollateral = new(big.Int).Set(g.TotalCollateralMotes)
	}
	if g.TotalDebtPrincipal != nil {
		stored.TotalDebt = g.TotalDebtPrincipal.ToBig()
	}
	return m.KVPut(vaultGlobalKeyBytes, stored)
}

// --- Token ---

// TokenGetBalance loads the DEBT balance for the address, or nil when unset.
func (m *Manager) TokenGetBalance(addr crypto.Address) (*uint256.Int, error) {
	var stored big.Int
	ok, err := m.KVGet(prefixedKey(tokenBalancePrefix, addr.Bytes()), &stored)
	if err != nil || !ok {
		return nil, err
	}
	return wadFromStored(&stored)
}

// TokenPutBalance persists the DEBT balance for the address.
func (m *Manager) TokenPutBalance(addr crypto.Address, amount *uint256.Int) error {
	return m.KVPut(prefixedKey(tokenBalancePrefix, addr.Bytes()), wadToStored(amount))
}

func allowanceSuffix(owner, spender crypto.Address) []byte {
	buf := append([]byte(nil), owner.Bytes()...)
	return append(buf, spender.Bytes()...)
}

// TokenGetAllowance loads the spender's allowance over the owner's balance.
func (m *Manager) TokenGetAllowance(owner, spender crypto.Address) (*uint256.Int, error) {
	var stored big.Int
	ok, err := m.KVGet(prefixedKey(tokenAllowancePrefix, allowanceSuffix(owner, spender)), &stored)
	if err != nil || !ok {
		return nil, err
	}
	return wadFromStored(&stored)
}

// TokenPutAllowance persists the spender's allowance.
func (m *Manager) TokenPutAllowance(owner, spender crypto.Address, amount *uint256.Int) error {
	return m.KVPut(prefixedKey(tokenAllowancePrefix, allowanceSuffix(owner, spender)), wadToStored(amount))
}

// TokenGetSupply loads the outstanding DEBT supply, or nil when unset.
func (m *Manager) TokenGetSupply() (*uint256.Int, error) {
	var stored big.Int
	ok, err := m.KVGet(tokenSupplyKeyBytes, &stored)
	if err != nil || !ok {
		return nil, err
	}
	return wadFromStored(&stored)
}

// TokenPutSupply persists the outstanding DEBT supply.
func (m *Manager) TokenPutSupply(amount *uint256.Int) error {
	return m.KVPut(tokenSupplyKeyBytes, wadToStored(amount))
}

// --- Delegation ---

// DelegationGetPending loads the motes awaiting the next batch delegation.
func (m *Manager) DelegationGetPending() (*big.Int, error) {
	var stored big.Int
	ok, err := m.KVGet(delegationPendingKeyBytes, &stored)
	if err != nil || !ok {
		return nil, err
	}
	return &stored, nil
}

// DelegationPutPending persists the pending delegation counter.
func (m *Manager) DelegationPutPending(amount *big.Int) error {
	return m.KVPut(delegationPendingKeyBytes, bigOrZero(amount))
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}

func wadToStored(amount *uint256.Int) *big.Int {
	if amount == nil {
		return big.NewInt(0)
	}
	return amount.ToBig()
}

func wadFromStored(v *big.Int) (*uint256.Int, error) {
	out, overflow := uint256.FromBig(bigOrZero(v))
	if overflow {
		return nil, fmt.Errorf("state: stored amount exceeds wad domain")
	}
	return out, nil
}
