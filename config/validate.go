package config

import (
	"fmt"
	"strings"

	"magni/crypto"
)

// Validate rejects configurations the daemon cannot start with. Owner and
// validator identities are optional in the file (the daemon can generate a
// throwaway owner for development) but must parse when present.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: missing configuration")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("config: data_dir must not be empty")
	}
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		return fmt.Errorf("config: rpc_address must not be empty")
	}
	if owner := strings.TrimSpace(cfg.OwnerAddress); owner != "" {
		if _, err := crypto.DecodeAddress(owner); err != nil {
			return fmt.Errorf("config: owner_address: %w", err)
		}
	}
	if validator := strings.TrimSpace(cfg.ValidatorKey); validator != "" {
		if _, err := crypto.ParseValidatorKey(validator); err != nil {
			return fmt.Errorf("config: validator_key: %w", err)
		}
	}
	return nil
}
