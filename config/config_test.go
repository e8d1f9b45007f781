package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"magni/crypto"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.RPCAddress)
	require.NotEmpty(t, cfg.DataDir)
	require.EqualValues(t, 7*24*60*60, cfg.UnbondingSeconds)

	// The default file must be written and loadable.
	_, err = os.Stat(path)
	require.NoError(t, err)
	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.RPCAddress, reloaded.RPCAddress)
}

func TestValidateRejectsBadAddresses(t *testing.T) {
	base := &Config{RPCAddress: ":8080", DataDir: "./data"}
	require.NoError(t, Validate(base))

	bad := *base
	bad.OwnerAddress = "not-bech32"
	require.Error(t, Validate(&bad))

	raw := make([]byte, 20)
	owner := crypto.MustNewAddress(crypto.MGNPrefix, raw)
	good := *base
	good.OwnerAddress = owner.String()
	require.NoError(t, Validate(&good))

	badValidator := *base
	badValidator.ValidatorKey = owner.String() // wrong prefix
	require.Error(t, Validate(&badValidator))

	goodValidator := *base
	goodValidator.ValidatorKey = crypto.MustNewAddress(crypto.ValidatorPrefix, raw).String()
	require.NoError(t, Validate(&goodValidator))
}

func TestValidateRejectsEmptyDirs(t *testing.T) {
	require.Error(t, Validate(&Config{RPCAddress: ":8080"}))
	require.Error(t, Validate(&Config{DataDir: "./data"}))
	require.Error(t, Validate(nil))
}
