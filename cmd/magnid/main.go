package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"magni/config"
	"magni/core/events"
	"magni/core/state"
	"magni/crypto"
	"magni/native/delegation"
	"magni/native/token"
	"magni/native/vault"
	"magni/observability/logging"
	"magni/rpc"
	"magni/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup("magnid", cfg.Env, cfg.LogFile)

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.DataDir, "err", err)
		os.Exit(1)
	}
	defer db.Close()

	manager := state.NewManager(db)
	log := events.NewLog()

	moduleAddr := moduleAddress()
	owner, err := resolveOwner(cfg)
	if err != nil {
		logger.Error("failed to resolve owner", "err", err)
		os.Exit(1)
	}
	validator, err := resolveValidator(cfg)
	if err != nil {
		logger.Error("failed to resolve validator", "err", err)
		os.Exit(1)
	}

	host := newSimHost(cfg.UnbondingSeconds)

	ledger := token.NewLedger(moduleAddr)
	ledger.SetState(manager)
	ledger.SetEmitter(log)

	adapter := delegation.NewAdapter(host, vault.MinDepositMotes)
	adapter.SetState(manager)

	engine := vault.NewEngine(moduleAddr)
	engine.SetState(manager)
	engine.SetToken(ledger)
	engine.SetAdapter(adapter)
	engine.SetEmitter(log)
	adapter.SetEmitter(engine.Recorder())
	ledger.SetMinterEmitter(engine.Recorder())

	if err := engine.Initialize(owner, validator); err != nil {
		logger.Error("failed to initialise vault", "err", err)
		os.Exit(1)
	}

	server := rpc.NewServer(engine, ledger, log)
	server.SetValueAttacher(host)
	server.SetHostViewer(host)
	server.SetStrictMinDeposit(cfg.StrictMinDeposit)

	logger.Info("magnid started",
		"rpc", cfg.RPCAddress,
		"owner", owner.String(),
		"validator", validator.String(),
	)
	if err := server.ListenAndServe(cfg.RPCAddress); err != nil {
		logger.Error("rpc server stopped", "err", err)
		os.Exit(1)
	}
}

// moduleAddress derives the vault's own account from the keccak hash of a
// stable seed string.
func moduleAddress() crypto.Address {
	seed := ethcrypto.Keccak256([]byte("magni/module/vault"))
	return crypto.MustNewAddress(crypto.MGNPrefix, seed[12:])
}

func resolveOwner(cfg *config.Config) (crypto.Address, error) {
	if raw := strings.TrimSpace(cfg.OwnerAddress); raw != "" {
		return crypto.DecodeAddress(raw)
	}
	// DEV ONLY: generate a throwaway owner so the daemon can boot without a
	// configured administrator.
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return crypto.Address{}, err
	}
	return key.PubKey().Address(), nil
}

func resolveValidator(cfg *config.Config) (crypto.ValidatorKey, error) {
	if raw := strings.TrimSpace(cfg.ValidatorKey); raw != "" {
		return crypto.ParseValidatorKey(raw)
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return "", err
	}
	raw := ethcrypto.PubkeyToAddress(*key.PubKey().PublicKey).Bytes()
	encoded := crypto.MustNewAddress(crypto.ValidatorPrefix, raw)
	return crypto.ParseValidatorKey(encoded.String())
}
