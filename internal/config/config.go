// Package config defines all configuration for the ladder market maker.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// sensitive fields overridable via LADDER_* environment variables.
package config

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	DryRun    bool            `mapstructure:"dry_run"`
	Wallet    WalletConfig    `mapstructure:"wallet"`
	Exchange  ExchangeConfig  `mapstructure:"exchange"`
	Strategy  StrategyConfig  `mapstructure:"strategy"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Audit     AuditConfig     `mapstructure:"audit"`
	StatusAPI StatusAPIConfig `mapstructure:"status_api"`
}

// WalletConfig holds the signing identity used to authenticate with the
// exchange. PrivateKey signs the L1 challenge that derives API credentials;
// FunderAddress is the on-chain address that funds orders when it differs
// from the signer (proxy/smart-contract wallets).
type WalletConfig struct {
	PrivateKey    string `mapstructure:"private_key"`
	SignatureType int    `mapstructure:"signature_type"`
	FunderAddress string `mapstructure:"funder_address"`
	ChainID       int    `mapstructure:"chain_id"`
}

// ExchangeConfig holds the venue endpoints, the instrument to quote, and
// the API credentials. If APIKey/APISecret/APIPassphrase are empty, the adapter
// derives them via the wallet's L1 signature on startup.
type ExchangeConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	WSURL         string `mapstructure:"ws_url"`
	AccountID     string `mapstructure:"account_id"`
	MarketID      string `mapstructure:"market_id"`
	APIKey        string `mapstructure:"api_key"`
	APISecret     string `mapstructure:"api_secret"`
	APIPassphrase string `mapstructure:"api_passphrase"`
}

// StrategyConfig parameterizes the ladder builder and reconciler. All
// prices and amounts are unsigned fixed-point integers in the exchange
// adapter's scale; the core never interprets that scale.
//
//   - Increment: the grid spacing every quoted price is a multiple of.
//   - OrderSize: the size placed at every ladder price.
//   - MinOrderSize: orders whose remaining target amount would fall below
//     this after reconciliation are dropped rather than resized.
//   - MaxBuyPrice / MinSellPrice: per-side circuit breakers. See
//     internal/ladder.Build's doc comment for why these can only ever
//     disable a whole side, never truncate it partway.
//   - MaxOrdersPerDirection: ladder depth per side.
//   - MaxOrdersToMakePerIteration / MaxOrdersToCancelPerIteration: caps the
//     reconciler applies to bound the work dispatched in a single iteration.
//   - IterationInterval: sleep between control loop iterations.
type StrategyConfig struct {
	Increment                     uint64        `mapstructure:"increment"`
	OrderSize                     uint64        `mapstructure:"order_size"`
	MinOrderSize                  uint64        `mapstructure:"min_order_size"`
	MaxBuyPrice                   uint64        `mapstructure:"max_buy_price"`
	MinSellPrice                  uint64        `mapstructure:"min_sell_price"`
	MaxOrdersPerDirection         uint64        `mapstructure:"max_orders_per_direction"`
	MaxOrdersToMakePerIteration   int           `mapstructure:"max_orders_to_make_per_iteration"`
	MaxOrdersToCancelPerIteration int           `mapstructure:"max_orders_to_cancel_per_iteration"`
	IterationInterval             time.Duration `mapstructure:"iteration_interval"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AuditConfig controls the write-only per-iteration audit trail.
type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DataDir string `mapstructure:"data_dir"`
}

// StatusAPIConfig controls the read-only operator status server.
type StatusAPIConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads config from a YAML file with env var overrides. A .env file
// next to the working directory is loaded first, if present, so
// LADDER_PRIVATE_KEY and friends can live outside the YAML file and
// outside the shell's persistent environment.
//
// Sensitive fields use env vars: LADDER_PRIVATE_KEY, LADDER_API_KEY,
// LADDER_API_SECRET, LADDER_API_PASSPHRASE, LADDER_ACCOUNT_ID,
// LADDER_MARKET_ID, LADDER_DRY_RUN.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("LADDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if key := os.Getenv("LADDER_PRIVATE_KEY"); key != "" {
		cfg.Wallet.PrivateKey = key
	}
	if id := os.Getenv("LADDER_ACCOUNT_ID"); id != "" {
		cfg.Exchange.AccountID = id
	}
	if id := os.Getenv("LADDER_MARKET_ID"); id != "" {
		cfg.Exchange.MarketID = id
	}
	if key := os.Getenv("LADDER_API_KEY"); key != "" {
		cfg.Exchange.APIKey = key
	}
	if secret := os.Getenv("LADDER_API_SECRET"); secret != "" {
		cfg.Exchange.APISecret = secret
	}
	if pass := os.Getenv("LADDER_API_PASSPHRASE"); pass != "" {
		cfg.Exchange.APIPassphrase = pass
	}
	if dr := os.Getenv("LADDER_DRY_RUN"); dr == "true" || dr == "1" {
		cfg.DryRun = true
	}

	if cfg.Strategy.MinSellPrice == 0 {
		cfg.Strategy.MinSellPrice = math.MaxUint64
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.Wallet.PrivateKey == "" {
		return fmt.Errorf("wallet.private_key is required (set LADDER_PRIVATE_KEY)")
	}
	if c.Wallet.ChainID == 0 {
		return fmt.Errorf("wallet.chain_id is required")
	}
	switch c.Wallet.SignatureType {
	case 0, 1, 2:
	default:
		return fmt.Errorf("wallet.signature_type must be one of: 0 (EOA), 1 (PROXY), 2 (GNOSIS_SAFE)")
	}
	if c.Wallet.SignatureType != 0 && c.Wallet.FunderAddress == "" {
		return fmt.Errorf("wallet.funder_address is required when wallet.signature_type is 1 or 2")
	}
	if c.Exchange.BaseURL == "" {
		return fmt.Errorf("exchange.base_url is required")
	}
	if c.Exchange.MarketID == "" {
		return fmt.Errorf("exchange.market_id is required")
	}
	if c.Strategy.Increment == 0 {
		return fmt.Errorf("strategy.increment must be > 0")
	}
	if c.Strategy.OrderSize == 0 {
		return fmt.Errorf("strategy.order_size must be > 0")
	}
	if c.Strategy.MinOrderSize == 0 {
		return fmt.Errorf("strategy.min_order_size must be > 0")
	}
	if c.Strategy.MaxBuyPrice >= c.Strategy.MinSellPrice {
		return fmt.Errorf("strategy.max_buy_price must be < strategy.min_sell_price")
	}
	if c.Strategy.MaxOrdersPerDirection == 0 {
		return fmt.Errorf("strategy.max_orders_per_direction must be > 0")
	}
	if c.Strategy.IterationInterval <= 0 {
		return fmt.Errorf("strategy.iteration_interval must be > 0")
	}
	return nil
}
