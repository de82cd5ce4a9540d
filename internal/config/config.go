package config

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	infisical "github.com/infisical/go-sdk"
)

type Config struct {
	Port           string
	FrontendOrigin string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	RedisPassword  string

	AptosNodeURL    string
	AptosIndexerURL string
	AptosAPIKey     string

	CoinGeckoBaseURL     string
	CoinGeckoAPIKey      string
	CoinMarketCapBaseURL string
	CoinMarketCapAPIKey  string
	CryptoPanicBaseURL   string
	CryptoPanicAPIKey    string

	AnthropicAPIKey string
	AnthropicModel  string
	OpenAIAPIKey    string
	OpenAIModel     string
	OpenAIBaseURL   string
	LLMTemperature  float64

	RetryAttempts  int
	RetryBaseDelay time.Duration
	PollInterval   time.Duration

	CacheTTLStaking time.Duration
	CacheTTLTokens  time.Duration
	CacheTTLNews    time.Duration

	ConservativeThresholdUSD float64
	BalancedThresholdUSD     float64
	AggressiveThresholdUSD   float64

	// StrategyCatalogPath overrides the embedded strategy catalog.
	StrategyCatalogPath string
}

func Load() Config {
	cfg := Config{
		Port:           envOr("PORT", "8080"),
		FrontendOrigin: envOr("FRONTEND_ORIGIN", "*"),
		LogLevel:       envOr("LOG_LEVEL", "info"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),

		AptosNodeURL:    os.Getenv("APTOS_NODE_URL"),
		AptosIndexerURL: os.Getenv("APTOS_INDEXER_URL"),
		AptosAPIKey:     os.Getenv("APTOS_API_KEY"),

		CoinGeckoBaseURL:     os.Getenv("COINGECKO_BASE_URL"),
		CoinGeckoAPIKey:      os.Getenv("COINGECKO_API_KEY"),
		CoinMarketCapBaseURL: os.Getenv("COINMARKETCAP_BASE_URL"),
		CoinMarketCapAPIKey:  os.Getenv("COINMARKETCAP_API_KEY"),
		CryptoPanicBaseURL:   os.Getenv("CRYPTOPANIC_BASE_URL"),
		CryptoPanicAPIKey:    os.Getenv("CRYPTOPANIC_API_KEY"),

		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  os.Getenv("ANTHROPIC_MODEL"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     os.Getenv("OPENAI_MODEL"),
		OpenAIBaseURL:   os.Getenv("OPENAI_BASE_URL"),
		LLMTemperature:  getEnvFloat("LLM_TEMPERATURE", 0.2),

		RetryAttempts:  getEnvInt("RETRY_ATTEMPTS", 3),
		RetryBaseDelay: getEnvDuration("RETRY_BASE_DELAY", time.Second),
		PollInterval:   getEnvDuration("POLL_INTERVAL", 60*time.Second),

		CacheTTLStaking: getEnvDuration("CACHE_TTL_STAKING", 60*time.Second),
		CacheTTLTokens:  getEnvDuration("CACHE_TTL_TOKENS", 60*time.Second),
		CacheTTLNews:    getEnvDuration("CACHE_TTL_NEWS", 120*time.Second),

		ConservativeThresholdUSD: getEnvFloat("CONSERVATIVE_THRESHOLD_USD", 1000),
		BalancedThresholdUSD:     getEnvFloat("BALANCED_THRESHOLD_USD", 10000),
		AggressiveThresholdUSD:   getEnvFloat("AGGRESSIVE_THRESHOLD_USD", 50000),

		StrategyCatalogPath: os.Getenv("STRATEGY_CATALOG_PATH"),
	}

	// If Infisical credentials are available, fetch secrets from Infisical
	clientID := os.Getenv("INFISICAL_CLIENT_ID")
	clientSecret := os.Getenv("INFISICAL_CLIENT_SECRET")
	if clientID != "" && clientSecret != "" {
		loadFromInfisical(&cfg, clientID, clientSecret)
	}

	return cfg
}

// secretTargets maps Infisical secret keys onto cfg fields.
func secretTargets(cfg *Config) map[string]*string {
	return map[string]*string{
		"ANTHROPIC_API_KEY":     &cfg.AnthropicAPIKey,
		"OPENAI_API_KEY":        &cfg.OpenAIAPIKey,
		"COINMARKETCAP_API_KEY": &cfg.CoinMarketCapAPIKey,
		"CRYPTOPANIC_API_KEY":   &cfg.CryptoPanicAPIKey,
		"COINGECKO_API_KEY":     &cfg.CoinGeckoAPIKey,
		"APTOS_API_KEY":         &cfg.AptosAPIKey,
		"REDIS_PASSWORD":        &cfg.RedisPassword,
	}
}

func loadFromInfisical(cfg *Config, clientID, clientSecret string) {
	siteURL := envOr("INFISICAL_SITE_URL",
		"http://infisical-infisical-standalone-infisical.infisical.svc.cluster.local:8080")
	projectID := os.Getenv("INFISICAL_PROJECT_ID")
	envSlug := envOr("INFISICAL_ENV", "prod")

	if projectID == "" {
		slog.Warn("INFISICAL_PROJECT_ID not set, skipping Infisical")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := infisical.NewInfisicalClient(ctx, infisical.Config{
		SiteUrl:          siteURL,
		AutoTokenRefresh: false,
	})

	_, err := client.Auth().UniversalAuthLogin(clientID, clientSecret)
	if err != nil {
		slog.Error("infisical auth failed", "error", err)
		return
	}

	for key, target := range secretTargets(cfg) {
		if *target != "" {
			continue // env var already set, skip
		}
		secret, err := client.Secrets().Retrieve(infisical.RetrieveSecretOptions{
			SecretKey:   key,
			Environment: envSlug,
			ProjectID:   projectID,
			SecretPath:  "/",
		})
		if err != nil {
			slog.Warn("failed to retrieve secret from infisical", "key", key, "error", err)
			continue
		}
		*target = secret.SecretValue
		slog.Info("loaded secret from infisical", "key", key)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// getEnvDuration accepts Go durations ("90s") or bare seconds ("90").
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return time.Duration(i) * time.Second
}
