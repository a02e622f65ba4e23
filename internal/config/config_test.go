package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultUsesProductionEndpoints(t *testing.T) {
	cfg := Default()
	if cfg.Exchange.RestBaseURL != "https://api.mexc.com" {
		t.Fatalf("rest_base_url = %q, want https://api.mexc.com", cfg.Exchange.RestBaseURL)
	}
	if cfg.Exchange.WSBaseURL != "wss://wbs.mexc.com/ws" {
		t.Fatalf("ws_base_url = %q, want wss://wbs.mexc.com/ws", cfg.Exchange.WSBaseURL)
	}
	if cfg.Trade.PriceRetryDelayMs != 100 {
		t.Fatalf("price_retry_delay_ms = %d, want 100", cfg.Trade.PriceRetryDelayMs)
	}
	if cfg.Trade.FillPollIntervalSec != 1 {
		t.Fatalf("fill_poll_interval_sec = %d, want 1", cfg.Trade.FillPollIntervalSec)
	}
	if cfg.Trade.MaxPriceWaitSec != 0 || cfg.Trade.MaxFillWaitSec != 0 {
		t.Fatalf("max waits = %d/%d, want 0/0 (wait forever)", cfg.Trade.MaxPriceWaitSec, cfg.Trade.MaxFillWaitSec)
	}
}

func TestLoadAppliesDefaultsAndOverrides(t *testing.T) {
	path := writeTempConfig(t, `
exchange:
  rest_base_url: https://example.test
trade:
  max_price_wait_sec: 300
  max_budget: "250.50"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Exchange.RestBaseURL != "https://example.test" {
		t.Fatalf("rest_base_url = %q, want override", cfg.Exchange.RestBaseURL)
	}
	if cfg.Exchange.RecvWindowMs != 5000 {
		t.Fatalf("recv_window_ms = %d, want default 5000", cfg.Exchange.RecvWindowMs)
	}
	if cfg.Trade.MaxPriceWaitSec != 300 {
		t.Fatalf("max_price_wait_sec = %d, want 300", cfg.Trade.MaxPriceWaitSec)
	}
	if !cfg.Trade.MaxBudget.Equal(decimal.RequireFromString("250.50")) {
		t.Fatalf("max_budget = %s, want 250.50", cfg.Trade.MaxBudget)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeTempConfig(t, `
trade:
  fil_poll_interval_sec: 2
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("Load() error = nil, want unknown field error")
	}
}

func TestLoadRejectsInvalidDecimal(t *testing.T) {
	path := writeTempConfig(t, `
trade:
  max_budget: "not-a-number"
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "invalid decimal") {
		t.Fatalf("Load() error = %v, want invalid decimal", err)
	}
}

func TestLoadRejectsBadURLScheme(t *testing.T) {
	path := writeTempConfig(t, `
exchange:
  ws_base_url: https://not-a-ws-url
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("Load() error = nil, want ws scheme error")
	}
}

func TestCredentialsComeFromEnvironment(t *testing.T) {
	t.Setenv(EnvAPIKey, "env-key")
	t.Setenv(EnvAPISecret, "env-secret")
	cfg := Default()
	if cfg.Exchange.APIKey != "env-key" {
		t.Fatalf("api key = %q, want env-key", cfg.Exchange.APIKey)
	}
	if cfg.Exchange.APISecret != "env-secret" {
		t.Fatalf("api secret = %q, want env-secret", cfg.Exchange.APISecret)
	}
}

func TestValidateTelegramRequiresToken(t *testing.T) {
	cfg := Default()
	cfg.Observability.Telegram.Enabled = true
	cfg.Observability.Telegram.ChatID = "123"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("Validate() error = nil, want missing bot_token error")
	}
}
