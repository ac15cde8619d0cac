package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	walletgate "github.com/scholarchain/walletgate"
	"github.com/scholarchain/walletgate/backend"
	"github.com/scholarchain/walletgate/chain"
	"github.com/scholarchain/walletgate/kv"
	"github.com/scholarchain/walletgate/wallet"
)

var (
	flagBridgeURL string
	flagChainURL  string
	flagAPIURL    string
	flagDataDir   string
	flagVerify    bool
)

var rootCmd = &cobra.Command{
	Use:           "walletgatectl",
	Short:         "Inspect and drive the wallet session reconciler",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagBridgeURL, "bridge", envOr("WALLETGATE_BRIDGE_URL", "http://127.0.0.1:8575"), "wallet bridge endpoint")
	flags.StringVar(&flagChainURL, "chain", envOr("WALLETGATE_CHAIN_URL", "http://127.0.0.1:8545"), "registry node endpoint")
	flags.StringVar(&flagAPIURL, "api", envOr("WALLETGATE_API_URL", "http://127.0.0.1:3000"), "auth API base URL")
	flags.StringVar(&flagDataDir, "data-dir", envOr("WALLETGATE_DATA_DIR", defaultDataDir()), "local session store directory")
	flags.BoolVar(&flagVerify, "verify", false, "verify the cached token with the backend on every check")

	rootCmd.AddCommand(loginCmd, logoutCmd, statusCmd, whoamiCmd, registerCmd)
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".walletgate"
	}
	return filepath.Join(home, ".walletgate")
}

// openReconciler wires a reconciler over the local badger store. The caller
// must Close both.
func openReconciler() (*walletgate.Reconciler, *kv.Badger, error) {
	store, err := kv.OpenBadger(flagDataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open session store: %w", err)
	}

	cfg := walletgate.DefaultConfig()
	cfg.Reconcile.VerifyWithBackend = flagVerify

	r, err := walletgate.New().
		WithConfig(cfg).
		WithStorage(store).
		WithWallet(wallet.NewRPCProvider(flagBridgeURL, nil)).
		WithChain(chain.NewRPCAuthority(flagChainURL, nil)).
		WithBackend(backend.New(flagAPIURL, nil)).
		Build()
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return r, store, nil
}
