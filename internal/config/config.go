package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

const (
	MainnetURL   = "https://api.hyperliquid.xyz"
	MainnetWSURL = "wss://api.hyperliquid.xyz/ws"
	TestnetURL   = "https://api.hyperliquid-testnet.xyz"
	TestnetWSURL = "wss://api.hyperliquid-testnet.xyz/ws"
)

// Config holds all configuration for the trading client and its HTTP surface
type Config struct {
	Server   ServerConfig   `json:"server"`
	Exchange ExchangeConfig `json:"exchange"`
	Trading  TradingConfig  `json:"trading"`
	Logging  LoggingConfig  `json:"logging"`
	Markets  *MarketTable   `json:"markets"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `json:"port"`
	APIKey          string        `json:"-"`
	Version         string        `json:"version"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	RateLimit       int           `json:"rate_limit"` // requests per second per client, 0 disables
	CORSOrigins     []string      `json:"cors_origins"`
}

// ExchangeConfig holds Hyperliquid API configuration
type ExchangeConfig struct {
	BaseURL     string        `json:"base_url"`
	WSURL       string        `json:"ws_url"`
	Testnet     bool          `json:"testnet"`
	Timeout     time.Duration `json:"timeout"`
	MaxRetries  int           `json:"max_retries"` // read-only info requests only
	RateLimit   float64       `json:"rate_limit"`  // requests per second
	RateBurst   int           `json:"rate_burst"`
	QuoteSource string        `json:"quote_source"` // rest or ws

	VaultAddress string `json:"vault_address"`

	// Asset universe cache
	UniverseCacheTTL time.Duration `json:"universe_cache_ttl"`
}

// TradingConfig holds order construction settings
type TradingConfig struct {
	PrivateKey      string `json:"-"`
	SwapAsset       string `json:"swap_asset"`
	SwapTimeInForce string `json:"swap_time_in_force"`
	Slippage        string `json:"slippage"`
	// EventsURL receives order updates as JSON; empty logs them instead
	EventsURL string `json:"events_url"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"` // console or json
}

// Load loads configuration from environment variables and the market table
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			APIKey:          getEnv("SERVER_API_KEY", ""),
			Version:         getEnv("VERSION", "1.0.0"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", "30s"),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", "30s"),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", "60s"),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", "10s"),
			RateLimit:       getEnvAsInt("SERVER_RATE_LIMIT", 20),
			CORSOrigins:     getEnvAsList("SERVER_CORS_ORIGINS"),
		},
		Exchange: ExchangeConfig{
			BaseURL:          getEnv("HL_BASE_URL", MainnetURL),
			WSURL:            getEnv("HL_WS_URL", MainnetWSURL),
			Testnet:          getEnvAsBool("HL_TESTNET", false),
			Timeout:          getEnvAsDuration("HL_TIMEOUT", "10s"),
			MaxRetries:       getEnvAsInt("HL_MAX_RETRIES", 2),
			RateLimit:        getEnvAsFloat("HL_RATE_LIMIT", 10),
			RateBurst:        getEnvAsInt("HL_RATE_BURST", 5),
			QuoteSource:      strings.ToLower(getEnv("HL_QUOTE_SOURCE", "rest")),
			VaultAddress:     getEnv("HL_VAULT_ADDRESS", ""),
			UniverseCacheTTL: getEnvAsDuration("HL_UNIVERSE_CACHE_TTL", "5m"),
		},
		Trading: TradingConfig{
			PrivateKey:      getEnv("HL_PRIVATE_KEY", ""),
			SwapAsset:       strings.ToUpper(getEnv("HL_SWAP_ASSET", "BTC")),
			SwapTimeInForce: getEnv("HL_SWAP_TIF", "Ioc"),
			Slippage:        getEnv("HL_SLIPPAGE", "0.01"),
			EventsURL:       getEnv("HL_EVENTS_URL", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
	}

	config.ApplyTestnetURLs()

	markets, err := LoadMarketTable(getEnv("HL_MARKETS_FILE", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	config.Markets = markets

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate reports every configuration problem at once
func (c *Config) Validate() error {
	var err error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		err = multierr.Append(err, fmt.Errorf("invalid server port: %d", c.Server.Port))
	}
	if c.Server.RateLimit < 0 {
		err = multierr.Append(err, fmt.Errorf("SERVER_RATE_LIMIT must be non-negative"))
	}
	if c.Exchange.BaseURL == "" {
		err = multierr.Append(err, fmt.Errorf("HL_BASE_URL is required"))
	}
	if c.Exchange.Timeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("HL_TIMEOUT must be positive"))
	}
	if c.Exchange.MaxRetries < 0 {
		err = multierr.Append(err, fmt.Errorf("HL_MAX_RETRIES must be non-negative"))
	}
	if c.Exchange.QuoteSource != "rest" && c.Exchange.QuoteSource != "ws" {
		err = multierr.Append(err, fmt.Errorf("invalid quote source: %s", c.Exchange.QuoteSource))
	}

	slippage, parseErr := decimal.NewFromString(c.Trading.Slippage)
	if parseErr != nil {
		err = multierr.Append(err, fmt.Errorf("invalid slippage %q: %w", c.Trading.Slippage, parseErr))
	} else if slippage.IsNegative() || slippage.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		err = multierr.Append(err, fmt.Errorf("slippage must be in [0, 1): %s", c.Trading.Slippage))
	}

	if c.Markets == nil {
		err = multierr.Append(err, fmt.Errorf("market table is required"))
	} else {
		err = multierr.Append(err, c.Markets.Validate())
		if _, ok := c.Markets.Asset(c.Trading.SwapAsset); !ok {
			err = multierr.Append(err, fmt.Errorf("swap asset %s has no alias list", c.Trading.SwapAsset))
		}
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		err = multierr.Append(err, fmt.Errorf("invalid log level: %s", c.Logging.Level))
	}

	return err
}

// ApplyTestnetURLs switches to testnet endpoints unless URLs were overridden
func (c *Config) ApplyTestnetURLs() {
	if !c.Exchange.Testnet {
		return
	}
	if c.Exchange.BaseURL == MainnetURL {
		c.Exchange.BaseURL = TestnetURL
	}
	if c.Exchange.WSURL == MainnetWSURL {
		c.Exchange.WSURL = TestnetWSURL
	}
}

// IsMainnet reports whether orders are signed for mainnet
func (c *Config) IsMainnet() bool {
	return !c.Exchange.Testnet && !strings.Contains(strings.ToLower(c.Exchange.BaseURL), "testnet")
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

func getEnvAsList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
