package config

import (
	"testing"
	"time"
)

func TestEnvOr(t *testing.T) {
	t.Setenv("TEST_ENVOR_KEY", "")
	if got := envOr("TEST_ENVOR_KEY", "fallback"); got != "fallback" {
		t.Errorf("envOr empty key = %q, want %q", got, "fallback")
	}

	t.Setenv("TEST_ENVOR_KEY", "custom")
	if got := envOr("TEST_ENVOR_KEY", "default"); got != "custom" {
		t.Errorf("envOr set key = %q, want %q", got, "custom")
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"", 5 * time.Second},
		{"90s", 90 * time.Second},
		{"2m", 2 * time.Minute},
		{"30", 30 * time.Second},
		{"soon", 5 * time.Second},
	}
	for _, tt := range tests {
		t.Setenv("TEST_DURATION", tt.value)
		if got := getEnvDuration("TEST_DURATION", 5*time.Second); got != tt.want {
			t.Errorf("getEnvDuration(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestGetEnvNumbers(t *testing.T) {
	t.Setenv("TEST_INT", "x")
	if got := getEnvInt("TEST_INT", 3); got != 3 {
		t.Errorf("getEnvInt invalid = %d, want 3", got)
	}
	t.Setenv("TEST_FLOAT", "0.7")
	if got := getEnvFloat("TEST_FLOAT", 0.2); got != 0.7 {
		t.Errorf("getEnvFloat = %v, want 0.7", got)
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "FRONTEND_ORIGIN", "DATABASE_URL", "REDIS_URL", "LLM_TEMPERATURE",
		"RETRY_ATTEMPTS", "RETRY_BASE_DELAY", "POLL_INTERVAL", "CACHE_TTL_NEWS",
		"BALANCED_THRESHOLD_USD", "ANTHROPIC_API_KEY", "INFISICAL_CLIENT_ID", "INFISICAL_CLIENT_SECRET",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
	if cfg.FrontendOrigin != "*" {
		t.Errorf("FrontendOrigin = %q, want %q", cfg.FrontendOrigin, "*")
	}
	if cfg.DatabaseURL != "" || cfg.RedisURL != "" {
		t.Errorf("DatabaseURL = %q, RedisURL = %q, want empty", cfg.DatabaseURL, cfg.RedisURL)
	}
	if cfg.LLMTemperature != 0.2 {
		t.Errorf("LLMTemperature = %v, want 0.2", cfg.LLMTemperature)
	}
	if cfg.RetryAttempts != 3 || cfg.RetryBaseDelay != time.Second {
		t.Errorf("retry = %d/%v, want 3/1s", cfg.RetryAttempts, cfg.RetryBaseDelay)
	}
	if cfg.PollInterval != time.Minute || cfg.CacheTTLNews != 2*time.Minute {
		t.Errorf("PollInterval = %v, CacheTTLNews = %v", cfg.PollInterval, cfg.CacheTTLNews)
	}
	if cfg.ConservativeThresholdUSD != 1000 || cfg.BalancedThresholdUSD != 10000 || cfg.AggressiveThresholdUSD != 50000 {
		t.Errorf("thresholds = %v/%v/%v", cfg.ConservativeThresholdUSD, cfg.BalancedThresholdUSD, cfg.AggressiveThresholdUSD)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://test")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("POLL_INTERVAL", "5m")
	t.Setenv("BALANCED_THRESHOLD_USD", "25000")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want %q", cfg.Port, "9090")
	}
	if cfg.DatabaseURL != "postgres://test" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.AnthropicAPIKey != "sk-test" {
		t.Errorf("AnthropicAPIKey = %q", cfg.AnthropicAPIKey)
	}
	if cfg.PollInterval != 5*time.Minute {
		t.Errorf("PollInterval = %v, want 5m", cfg.PollInterval)
	}
	if cfg.BalancedThresholdUSD != 25000 {
		t.Errorf("BalancedThresholdUSD = %v", cfg.BalancedThresholdUSD)
	}
}

func TestSecretTargetsCoverAPIKeys(t *testing.T) {
	var cfg Config
	targets := secretTargets(&cfg)
	for _, key := range []string{"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "COINMARKETCAP_API_KEY", "CRYPTOPANIC_API_KEY", "REDIS_PASSWORD"} {
		if targets[key] == nil {
			t.Errorf("secret %s not mapped", key)
		}
	}
	*targets["OPENAI_API_KEY"] = "x"
	if cfg.OpenAIAPIKey != "x" {
		t.Error("target does not point into cfg")
	}
}
