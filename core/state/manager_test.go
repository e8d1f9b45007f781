package state

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"magni/crypto"
	"magni/native/vault"
	"magni/storage"
)

func makeAddress(t *testing.T, suffix byte) crypto.Address {
	t.Helper()
	raw := make([]byte, 20)
	raw[len(raw)-1] = suffix
	return crypto.MustNewAddress(crypto.MGNPrefix, raw)
}

func TestPositionRoundTrip(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	addr := makeAddress(t, 0x01)

	missing, err := manager.VaultGetPosition(addr)
	require.NoError(t, err)
	require.Nil(t, missing)

	pos := &vault.Position{
		Address:              addr,
		CollateralMotes:      big.NewInt(1_000_000_000),
		DebtPrincipal:        uint256.NewInt(42),
		LastAccrualTs:        1_700_000_000,
		PendingWithdrawMotes: big.NewInt(7),
		Status:               vault.StatusWithdrawing,
	}
	require.NoError(t, manager.VaultPutPosition(pos))

	loaded, err := manager.VaultGetPosition(addr)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, addr.String(), loaded.Address.String())
	require.Zero(t, loaded.CollateralMotes.Cmp(pos.CollateralMotes))
	require.Zero(t, loaded.DebtPrincipal.Cmp(pos.DebtPrincipal))
	require.Equal(t, pos.LastAccrualTs, loaded.LastAccrualTs)
	require.Zero(t, loaded.PendingWithdrawMotes.Cmp(pos.PendingWithdrawMotes))
	require.Equal(t, vault.StatusWithdrawing, loaded.Status)
}

func TestGlobalRoundTrip(t *testing.T) {
	manager := NewManager(storage.NewMemDB())

	missing, err := manager.VaultGetGlobal()
	require.NoError(t, err)
	require.Nil(t, missing)

	owner := makeAddress(t, 0x02)
	validatorAddr := crypto.MustNewAddress(crypto.ValidatorPrefix, owner.Bytes())
	g := &vault.GlobalState{
		Owner:                owner,
		Validator:            crypto.ValidatorKey(validatorAddr.String()),
		Paused:               true,
		TotalCollateralMotes: big.NewInt(123),
		TotalDebtPrincipal:   uint256.NewInt(456),
	}
	require.NoError(t, manager.VaultPutGlobal(g))

	loaded, err := manager.VaultGetGlobal()
	require.NoError(t, err)
	require.Equal(t, owner.String(), loaded.Owner.String())
	require.Equal(t, g.Validator, loaded.Validator)
	require.True(t, loaded.Paused)
	require.Zero(t, loaded.TotalCollateralMotes.Cmp(g.TotalCollateralMotes))
	require.Zero(t, loaded.TotalDebtPrincipal.Cmp(g.TotalDebtPrincipal))
}

func TestTokenRoundTrip(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	owner := makeAddress(t, 0x03)
	spender := makeAddress(t, 0x04)

	balance, err := manager.TokenGetBalance(owner)
	require.NoError(t, err)
	require.Nil(t, balance)

	require.NoError(t, manager.TokenPutBalance(owner, uint256.NewInt(99)))
	balance, err = manager.TokenGetBalance(owner)
	require.NoError(t, err)
	require.True(t, balance.Eq(uint256.NewInt(99)))

	require.NoError(t, manager.TokenPutAllowance(owner, spender, uint256.NewInt(55)))
	allowance, err := manager.TokenGetAllowance(owner, spender)
	require.NoError(t, err)
	require.True(t, allowance.Eq(uint256.NewInt(55)))

	// The reverse pair is a distinct key.
	reverse, err := manager.TokenGetAllowance(spender, owner)
	require.NoError(t, err)
	require.Nil(t, reverse)

	require.NoError(t, manager.TokenPutSupply(uint256.NewInt(154)))
	supply, err := manager.TokenGetSupply()
	require.NoError(t, err)
	require.True(t, supply.Eq(uint256.NewInt(154)))
}

func TestDelegationPendingRoundTrip(t *testing.T) {
	manager := NewManager(storage.NewMemDB())

	pending, err := manager.DelegationGetPending()
	require.NoError(t, err)
	require.Nil(t, pending)

	require.NoError(t, manager.DelegationPutPending(big.NewInt(700)))
	pending, err = manager.DelegationGetPending()
	require.NoError(t, err)
	require.Zero(t, pending.Cmp(big.NewInt(700)))

	require.NoError(t, manager.DelegationPutPending(big.NewInt(0)))
	pending, err = manager.DelegationGetPending()
	require.NoError(t, err)
	require.Zero(t, pending.Sign())
}
