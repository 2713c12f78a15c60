// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Ethereum  EthereumConfig  `mapstructure:"ethereum"`
	Tokens    []TokenConfig   `mapstructure:"tokens"`
	Venues    []VenueConfig   `mapstructure:"venues"`
	Routing   RoutingConfig   `mapstructure:"routing"`
	Arbitrage ArbitrageConfig `mapstructure:"arbitrage"`
	Oracle    OracleConfig    `mapstructure:"oracle"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// EthereumConfig holds node and signer configuration.
type EthereumConfig struct {
	HTTPURL         string        `mapstructure:"http_url"`
	ChainID         uint64        `mapstructure:"chain_id"`
	PrivateKey      string        `mapstructure:"private_key"`
	MaxGasPriceGwei float64       `mapstructure:"max_gas_price_gwei"`
	ReceiptTimeout  time.Duration `mapstructure:"receipt_timeout"`
}

// TokenConfig describes one tradable token.
type TokenConfig struct {
	Symbol   string `mapstructure:"symbol"`
	Address  string `mapstructure:"address"`
	Decimals uint8  `mapstructure:"decimals"`
	Stable   bool   `mapstructure:"stable"`
	// Secondary tokens are eligible as route intermediaries, ordered by
	// their position in the list.
	Secondary bool `mapstructure:"secondary"`
}

// AddressHex returns the token address as common.Address.
func (c *TokenConfig) AddressHex() common.Address {
	return common.HexToAddress(c.Address)
}

// VenueConfig describes one DEX venue adapter.
type VenueConfig struct {
	Name    string  `mapstructure:"name"`
	Kind    string  `mapstructure:"kind"` // "v2" or "concentrated"
	Router  string  `mapstructure:"router"`
	Factory string  `mapstructure:"factory"`
	Fee     float64 `mapstructure:"fee"` // per-hop fee fraction, e.g. 0.003

	// Concentrated-liquidity venues only.
	QueryAddress string `mapstructure:"query_address"`
	PoolIdx      int64  `mapstructure:"pool_idx"`
}

// RouterHex returns the router address as common.Address.
func (c *VenueConfig) RouterHex() common.Address {
	return common.HexToAddress(c.Router)
}

// FactoryHex returns the factory address as common.Address.
func (c *VenueConfig) FactoryHex() common.Address {
	return common.HexToAddress(c.Factory)
}

// QueryAddressHex returns the query contract address as common.Address.
func (c *VenueConfig) QueryAddressHex() common.Address {
	return common.HexToAddress(c.QueryAddress)
}

// FeeDecimal returns the per-hop fee as decimal.Decimal.
func (c *VenueConfig) FeeDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.Fee)
}

// RoutingConfig bounds the route catalog.
type RoutingConfig struct {
	MaxHops            int `mapstructure:"max_hops"`
	MaxIntermediaries  int `mapstructure:"max_intermediaries"`
	TopSecondaryTokens int `mapstructure:"top_secondary_tokens"`
	MaxPaths           int `mapstructure:"max_paths"`
}

// ArbitrageConfig holds opportunity evaluation thresholds.
type ArbitrageConfig struct {
	TradeSizes        []float64     `mapstructure:"trade_sizes"`
	MinProfitUSD      float64       `mapstructure:"min_profit_usd"`
	MinProfitPct      float64       `mapstructure:"min_profit_pct"`
	SlippageTolerance float64       `mapstructure:"slippage_tolerance"`
	MinLiquidityUSD   float64       `mapstructure:"min_liquidity_usd"`
	FinancingFeeBps   int64         `mapstructure:"financing_fee_bps"`
	ScanInterval      time.Duration `mapstructure:"scan_interval"`
	ScanWorkers       int           `mapstructure:"scan_workers"`
}

// TradeSizesDecimal returns trade sizes as decimal.Decimal slice.
func (c *ArbitrageConfig) TradeSizesDecimal() []decimal.Decimal {
	result := make([]decimal.Decimal, len(c.TradeSizes))
	for i, s := range c.TradeSizes {
		result[i] = decimal.NewFromFloat(s)
	}
	return result
}

// MinProfitUSDDecimal returns min profit USD as decimal.Decimal.
func (c *ArbitrageConfig) MinProfitUSDDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinProfitUSD)
}

// MinProfitPctDecimal returns min profit percent as decimal.Decimal.
func (c *ArbitrageConfig) MinProfitPctDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinProfitPct)
}

// SlippageToleranceDecimal returns the slippage tolerance as decimal.Decimal.
func (c *ArbitrageConfig) SlippageToleranceDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.SlippageTolerance)
}

// OracleConfig holds gas and reference price oracle tuning.
type OracleConfig struct {
	GasCacheTTL        time.Duration `mapstructure:"gas_cache_ttl"`
	GasStaleMaxAge     time.Duration `mapstructure:"gas_stale_max_age"`
	GasFallbackGwei    float64       `mapstructure:"gas_fallback_gwei"`
	EthUsdPool         string        `mapstructure:"eth_usd_pool"`
	EthUsdCacheTTL     time.Duration `mapstructure:"eth_usd_cache_ttl"`
	EthUsdStaleMaxAge  time.Duration `mapstructure:"eth_usd_stale_max_age"`
	EthUsdFallback     float64       `mapstructure:"eth_usd_fallback"`
	EthUsdMinPlausible float64       `mapstructure:"eth_usd_min_plausible"`
	EthUsdMaxPlausible float64       `mapstructure:"eth_usd_max_plausible"`
	RefreshInterval    time.Duration `mapstructure:"refresh_interval"`
}

// EthUsdPoolHex returns the reference pool address as common.Address.
func (c *OracleConfig) EthUsdPoolHex() common.Address {
	return common.HexToAddress(c.EthUsdPool)
}

// ExecutionConfig holds settlement and transmission configuration.
type ExecutionConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	SettlementContract string        `mapstructure:"settlement_contract"`
	SimulationDeadline time.Duration `mapstructure:"simulation_deadline"`
	MinProfitRatio     float64       `mapstructure:"min_profit_ratio"`

	BreakerMaxFailures int           `mapstructure:"breaker_max_failures"`
	BreakerWindow      time.Duration `mapstructure:"breaker_window"`
	BreakerCooldown    time.Duration `mapstructure:"breaker_cooldown"`

	PrivateRelayURL string `mapstructure:"private_relay_url"`
	PrivateRPCURL   string `mapstructure:"private_rpc_url"`
}

// SettlementContractHex returns the settlement contract as common.Address.
func (c *ExecutionConfig) SettlementContractHex() common.Address {
	return common.HexToAddress(c.SettlementContract)
}

// TelegramConfig holds alerting configuration.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("ARB")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "ARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "ARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "ARB_LOG_LEVEL", "LOG_LEVEL")

	// Ethereum
	v.BindEnv("ethereum.http_url", "ARB_ETH_HTTP_URL", "SCROLL_RPC_URL")
	v.BindEnv("ethereum.chain_id", "ARB_ETH_CHAIN_ID", "SCROLL_CHAIN_ID")
	v.BindEnv("ethereum.private_key", "ARB_PRIVATE_KEY", "PRIVATE_KEY")

	// Arbitrage
	v.BindEnv("arbitrage.min_profit_usd", "ARB_MIN_PROFIT_USD")
	v.BindEnv("arbitrage.min_profit_pct", "ARB_MIN_PROFIT_PCT", "PROFIT_THRESHOLD")
	v.BindEnv("arbitrage.slippage_tolerance", "ARB_SLIPPAGE_TOLERANCE", "SLIPPAGE_TOLERANCE")
	v.BindEnv("arbitrage.min_liquidity_usd", "ARB_MIN_LIQUIDITY_USD", "MIN_LIQUIDITY_USD")

	// Execution
	v.BindEnv("execution.enabled", "ARB_EXECUTION_ENABLED")
	v.BindEnv("execution.settlement_contract", "ARB_SETTLEMENT_CONTRACT", "FLASHLOAN_CONTRACT")
	v.BindEnv("execution.private_relay_url", "ARB_PRIVATE_RELAY_URL")
	v.BindEnv("execution.private_rpc_url", "ARB_PRIVATE_RPC_URL")

	// Telegram
	v.BindEnv("telegram.enabled", "ARB_TELEGRAM_ENABLED", "ENABLE_TELEGRAM_ALERTS")
	v.BindEnv("telegram.bot_token", "ARB_TELEGRAM_BOT_TOKEN", "TELEGRAM_BOT_TOKEN")
	v.BindEnv("telegram.chat_id", "ARB_TELEGRAM_CHAT_ID", "TELEGRAM_CHAT_ID")

	// Telemetry
	v.BindEnv("telemetry.enabled", "ARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "ARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "ARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "sonicarbi")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Ethereum defaults (Scroll mainnet)
	v.SetDefault("ethereum.chain_id", 534352)
	v.SetDefault("ethereum.max_gas_price_gwei", 0.1)
	v.SetDefault("ethereum.receipt_timeout", "300s")

	// Routing defaults
	v.SetDefault("routing.max_hops", 3)
	v.SetDefault("routing.max_intermediaries", 8)
	v.SetDefault("routing.top_secondary_tokens", 3)
	v.SetDefault("routing.max_paths", 150)

	// Arbitrage defaults
	v.SetDefault("arbitrage.trade_sizes", []float64{0.1, 0.5, 1.0})
	v.SetDefault("arbitrage.min_profit_usd", 5)
	v.SetDefault("arbitrage.min_profit_pct", 0.005)
	v.SetDefault("arbitrage.slippage_tolerance", 0.02)
	v.SetDefault("arbitrage.min_liquidity_usd", 5000)
	v.SetDefault("arbitrage.financing_fee_bps", 9)
	v.SetDefault("arbitrage.scan_interval", "3s")
	v.SetDefault("arbitrage.scan_workers", 4)

	// Oracle defaults
	v.SetDefault("oracle.gas_cache_ttl", "60s")
	v.SetDefault("oracle.gas_stale_max_age", "300s")
	v.SetDefault("oracle.gas_fallback_gwei", 0.02)
	v.SetDefault("oracle.eth_usd_cache_ttl", "300s")
	v.SetDefault("oracle.eth_usd_stale_max_age", "1800s")
	v.SetDefault("oracle.eth_usd_fallback", 3500.0)
	v.SetDefault("oracle.eth_usd_min_plausible", 100.0)
	v.SetDefault("oracle.eth_usd_max_plausible", 20000.0)
	v.SetDefault("oracle.refresh_interval", "30s")

	// Execution defaults
	v.SetDefault("execution.enabled", false)
	v.SetDefault("execution.simulation_deadline", "300s")
	v.SetDefault("execution.min_profit_ratio", 0.8)
	v.SetDefault("execution.breaker_max_failures", 5)
	v.SetDefault("execution.breaker_window", "300s")
	v.SetDefault("execution.breaker_cooldown", "600s")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "sonicarbi")
	v.SetDefault("telemetry.prometheus_port", 2223)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Ethereum.HTTPURL == "" {
		return fmt.Errorf("ethereum.http_url is required")
	}
	if len(c.Tokens) < 2 {
		return fmt.Errorf("at least two tokens are required")
	}
	for _, t := range c.Tokens {
		if !common.IsHexAddress(t.Address) {
			return fmt.Errorf("invalid token address for %s: %s", t.Symbol, t.Address)
		}
	}
	if len(c.Venues) == 0 {
		return fmt.Errorf("at least one venue is required")
	}
	for _, d := range c.Venues {
		switch d.Kind {
		case "v2":
			if !common.IsHexAddress(d.Factory) {
				return fmt.Errorf("invalid factory for venue %s: %s", d.Name, d.Factory)
			}
		case "concentrated":
			if !common.IsHexAddress(d.QueryAddress) {
				return fmt.Errorf("invalid query_address for venue %s: %s", d.Name, d.QueryAddress)
			}
		default:
			return fmt.Errorf("unknown venue kind for %s: %s", d.Name, d.Kind)
		}
		if d.Fee < 0 || d.Fee >= 1 {
			return fmt.Errorf("venue %s fee out of range: %f", d.Name, d.Fee)
		}
	}
	if c.Routing.MaxHops < 2 {
		return fmt.Errorf("routing.max_hops must be at least 2")
	}
	if c.Routing.MaxIntermediaries <= 0 {
		return fmt.Errorf("routing.max_intermediaries must be positive")
	}
	if c.Execution.Enabled {
		if !common.IsHexAddress(c.Execution.SettlementContract) {
			return fmt.Errorf("invalid execution.settlement_contract: %s", c.Execution.SettlementContract)
		}
		if c.Ethereum.PrivateKey == "" {
			return fmt.Errorf("ethereum.private_key is required when execution is enabled")
		}
	}
	return nil
}
