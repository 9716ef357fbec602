package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Finflow   FinflowConfig   `yaml:"finflow"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Source    SourceConfig    `yaml:"source"`
}

type FinflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type MetricsConfig struct {
	Enabled               bool   `yaml:"enabled"`
	Region                string `yaml:"region"`
	Namespace             string `yaml:"namespace"`
	ReportIntervalSeconds int    `yaml:"report_interval_seconds"`
}

type DashboardConfig struct {
	Enabled                bool   `yaml:"enabled"`
	Address                string `yaml:"address"`
	RefreshIntervalSeconds int    `yaml:"refresh_interval_seconds"`
}

type SourceConfig struct {
	Bank     BankSourceConfig     `yaml:"bank"`
	Exchange ExchangeSourceConfig `yaml:"exchange"`
	Pool     PoolSourceConfig     `yaml:"pool"`
}

// BankSourceConfig points at the central bank endpoints: windows-1251 encoded
// XML for daily and date-range rate queries and an HTML page for the key rate
// table.
type BankSourceConfig struct {
	DailyURL       string `yaml:"daily_url"`
	DynamicURL     string `yaml:"dynamic_url"`
	KeyRateURL     string `yaml:"key_rate_url"`
	Currency       string `yaml:"currency"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// ExchangeSourceConfig covers both the public and the signed exchange APIs.
// Credentials are never read from the yaml file; they come from the
// environment only.
type ExchangeSourceConfig struct {
	BaseURL        string `yaml:"base_url"`
	Symbol         string `yaml:"symbol"`
	RecvWindowMs   int64  `yaml:"recv_window_ms"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	APIKey         string `yaml:"-"`
	APISecret      string `yaml:"-"`
}

type PoolSourceConfig struct {
	BaseURL        string `yaml:"base_url"`
	Wallet         string `yaml:"wallet"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

const (
	defaultConfigPath = "config.yml"

	defaultBankDailyURL   = "https://www.cbr.ru/scripts/XML_daily.asp"
	defaultBankDynamicURL = "https://www.cbr.ru/scripts/XML_dynamic.asp"
	defaultBankKeyRateURL = "https://www.cbr.ru/hd_base/KeyRate/"
	defaultExchangeURL    = "https://api.binance.com"
	defaultPoolURL        = "https://api.emcd.io/v1/doge"
)

var envConfigPaths = map[string]string{
	environmentProduction: "config.production.yml",
	environmentStaging:    "config.staging.yml",
}

// LoadConfig reads the yaml configuration from path, applies environment
// variable overrides for secrets and validates the result. An empty path
// resolves to the environment specific default file.
func LoadConfig(path string) (*Config, error) {
	path = resolveEnvSpecificPath(path, defaultConfigPath, envConfigPaths)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Metrics: MetricsConfig{ReportIntervalSeconds: 60},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&config)
	applyEnvOverrides(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Source.Bank.DailyURL == "" {
		cfg.Source.Bank.DailyURL = defaultBankDailyURL
	}
	if cfg.Source.Bank.DynamicURL == "" {
		cfg.Source.Bank.DynamicURL = defaultBankDynamicURL
	}
	if cfg.Source.Bank.KeyRateURL == "" {
		cfg.Source.Bank.KeyRateURL = defaultBankKeyRateURL
	}
	if cfg.Source.Bank.Currency == "" {
		cfg.Source.Bank.Currency = "USD"
	}
	if cfg.Source.Exchange.BaseURL == "" {
		cfg.Source.Exchange.BaseURL = defaultExchangeURL
	}
	if cfg.Source.Exchange.Symbol == "" {
		cfg.Source.Exchange.Symbol = "BTCUSDT"
	}
	if cfg.Source.Exchange.RecvWindowMs <= 0 {
		cfg.Source.Exchange.RecvWindowMs = 60000
	}
	if cfg.Source.Pool.BaseURL == "" {
		cfg.Source.Pool.BaseURL = defaultPoolURL
	}
	if cfg.Dashboard.RefreshIntervalSeconds <= 0 {
		cfg.Dashboard.RefreshIntervalSeconds = 30
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		cfg.Source.Exchange.APIKey = strings.TrimSpace(v)
	}
	if v := os.Getenv("BINANCE_API_SECRET"); v != "" {
		cfg.Source.Exchange.APISecret = strings.TrimSpace(v)
	}
	if v := os.Getenv("POOL_WALLET"); v != "" {
		cfg.Source.Pool.Wallet = strings.TrimSpace(v)
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Finflow.Name == "" {
		return fmt.Errorf("finflow.name is required")
	}

	if cfg.Finflow.Version == "" {
		return fmt.Errorf("finflow.version is required")
	}

	if cfg.Dashboard.Enabled && cfg.Dashboard.Address == "" {
		return fmt.Errorf("dashboard.address is required when the dashboard is enabled")
	}

	if cfg.Metrics.ReportIntervalSeconds <= 0 {
		return fmt.Errorf("metrics.report_interval_seconds must be greater than 0")
	}

	return nil
}
