package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

type Config struct {
	RPCAddress   string `toml:"RPCAddress"`
	DataDir      string `toml:"DataDir"`
	LogFile      string `toml:"LogFile"`
	Env          string `toml:"Env"`
	OwnerAddress string `toml:"OwnerAddress"`
	ValidatorKey string `toml:"ValidatorKey"`
	// StrictMinDeposit makes the RPC layer reject deposits below the
	// batching threshold. The engine itself accepts any positive deposit.
	StrictMinDeposit bool `toml:"StrictMinDeposit"`
	// UnbondingSeconds configures the simulated host's unbonding delay. The
	// vault core never reads it.
	UnbondingSeconds uint64 `toml:"UnbondingSeconds"`
}

// Load loads the configuration from the given path, writing a default file
// on first run.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		RPCAddress:       ":8080",
		DataDir:          "./magni-data",
		UnbondingSeconds: 7 * 24 * 60 * 60,
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
