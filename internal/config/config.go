package config

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Credentials come from the environment (or a .env file loaded by the
// caller), never from the config file checked into a repo or from flags.
const (
	EnvAPIKey    = "MEXC_API_KEY"
	EnvAPISecret = "MEXC_API_SECRET"
)

type Config struct {
	Exchange      ExchangeConfig      `yaml:"exchange"`
	Trade         TradeConfig         `yaml:"trade"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type ExchangeConfig struct {
	APIKey         string `yaml:"-"`
	APISecret      string `yaml:"-"`
	RestBaseURL    string `yaml:"rest_base_url"`
	WSBaseURL      string `yaml:"ws_base_url"`
	RecvWindowMs   int64  `yaml:"recv_window_ms"`
	HTTPTimeoutSec int64  `yaml:"http_timeout_sec"`
}

type TradeConfig struct {
	// PriceRetryDelayMs paces the price-discovery poll loop. The CLI -delay
	// flag overrides it per run.
	PriceRetryDelayMs   int64 `yaml:"price_retry_delay_ms"`
	FillPollIntervalSec int64 `yaml:"fill_poll_interval_sec"`
	// MaxPriceWaitSec / MaxFillWaitSec of 0 keep the original wait-forever
	// behavior; positive values turn the poll loops into bounded waits.
	MaxPriceWaitSec int64 `yaml:"max_price_wait_sec"`
	MaxFillWaitSec  int64 `yaml:"max_fill_wait_sec"`
	// MaxBudget of 0 disables the spend cap.
	MaxBudget Decimal `yaml:"max_budget"`
}

type ObservabilityConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

type TelegramConfig struct {
	Enabled    bool   `yaml:"enabled"`
	BotToken   string `yaml:"bot_token"`
	ChatID     string `yaml:"chat_id"`
	APIBaseURL string `yaml:"api_base_url"`
	TimeoutSec int64  `yaml:"timeout_sec"`
}

// Default returns the configuration used when no config file is given:
// production MEXC endpoints and the original bot's polling cadence.
func Default() Config {
	var cfg Config
	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg
}

func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return Config{}, fmt.Errorf("config must contain a single YAML document")
		}
		return Config{}, err
	}
	cfg.normalize()
	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Exchange.RestBaseURL = strings.TrimSpace(c.Exchange.RestBaseURL)
	c.Exchange.WSBaseURL = strings.TrimSpace(c.Exchange.WSBaseURL)
	c.Observability.Telegram.BotToken = strings.TrimSpace(c.Observability.Telegram.BotToken)
	c.Observability.Telegram.ChatID = strings.TrimSpace(c.Observability.Telegram.ChatID)
	c.Observability.Telegram.APIBaseURL = strings.TrimSpace(c.Observability.Telegram.APIBaseURL)
}

func (c *Config) applyDefaults() {
	if c.Exchange.RestBaseURL == "" {
		c.Exchange.RestBaseURL = "https://api.mexc.com"
	}
	if c.Exchange.WSBaseURL == "" {
		c.Exchange.WSBaseURL = "wss://wbs.mexc.com/ws"
	}
	if c.Exchange.RecvWindowMs == 0 {
		c.Exchange.RecvWindowMs = 5000
	}
	if c.Exchange.HTTPTimeoutSec == 0 {
		c.Exchange.HTTPTimeoutSec = 10
	}
	if c.Trade.PriceRetryDelayMs == 0 {
		c.Trade.PriceRetryDelayMs = 100
	}
	if c.Trade.FillPollIntervalSec == 0 {
		c.Trade.FillPollIntervalSec = 1
	}
	if c.Observability.Telegram.APIBaseURL == "" {
		c.Observability.Telegram.APIBaseURL = "https://api.telegram.org"
	}
	if c.Observability.Telegram.TimeoutSec == 0 {
		c.Observability.Telegram.TimeoutSec = 10
	}
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvAPIKey)); v != "" {
		c.Exchange.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAPISecret)); v != "" {
		c.Exchange.APISecret = v
	}
}

func (c Config) Validate() error {
	if err := validateURL(c.Exchange.RestBaseURL, "http", "https"); err != nil {
		return fmt.Errorf("exchange rest_base_url %v", err)
	}
	if err := validateURL(c.Exchange.WSBaseURL, "ws", "wss"); err != nil {
		return fmt.Errorf("exchange ws_base_url %v", err)
	}
	if c.Exchange.RecvWindowMs < 1 || c.Exchange.RecvWindowMs > 60000 {
		return fmt.Errorf("exchange recv_window_ms must be between 1 and 60000")
	}
	if c.Exchange.HTTPTimeoutSec < 1 || c.Exchange.HTTPTimeoutSec > 120 {
		return fmt.Errorf("exchange http_timeout_sec must be between 1 and 120")
	}
	if c.Trade.PriceRetryDelayMs < 1 || c.Trade.PriceRetryDelayMs > 60000 {
		return fmt.Errorf("trade price_retry_delay_ms must be between 1 and 60000")
	}
	if c.Trade.FillPollIntervalSec < 1 || c.Trade.FillPollIntervalSec > 3600 {
		return fmt.Errorf("trade fill_poll_interval_sec must be between 1 and 3600")
	}
	if c.Trade.MaxPriceWaitSec < 0 {
		return fmt.Errorf("trade max_price_wait_sec must be >= 0")
	}
	if c.Trade.MaxFillWaitSec < 0 {
		return fmt.Errorf("trade max_fill_wait_sec must be >= 0")
	}
	if c.Trade.MaxBudget.Cmp(decimal.Zero) < 0 {
		return fmt.Errorf("trade max_budget must be >= 0")
	}
	if c.Observability.Telegram.Enabled {
		if c.Observability.Telegram.BotToken == "" {
			return fmt.Errorf("observability.telegram.bot_token is required when telegram enabled")
		}
		if c.Observability.Telegram.ChatID == "" {
			return fmt.Errorf("observability.telegram.chat_id is required when telegram enabled")
		}
		if c.Observability.Telegram.TimeoutSec < 1 || c.Observability.Telegram.TimeoutSec > 120 {
			return fmt.Errorf("observability.telegram.timeout_sec must be between 1 and 120")
		}
		if err := validateURL(c.Observability.Telegram.APIBaseURL, "http", "https"); err != nil {
			return fmt.Errorf("observability.telegram.api_base_url %v", err)
		}
	}
	return nil
}

func validateURL(raw string, schemes ...string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("must be a valid URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("must include scheme and host")
	}
	for _, s := range schemes {
		if parsed.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("scheme must be %s", strings.Join(schemes, " or "))
}
