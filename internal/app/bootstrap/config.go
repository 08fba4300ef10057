package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for the deal service.
// It merges file defaults and environment overrides to support both local
// and deployed runs.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	RedisURL    string

	KafkaBrokers      []string
	KafkaDefaultTopic string

	JWTSecret         string
	AllowInsecureAuth bool

	PaymentRailURL     string
	PaymentRailToken   string
	PaymentHTTPTimeout time.Duration

	DefaultCurrency     string
	IdempotencyTTL      time.Duration
	IntentTTL           time.Duration
	SubmitRateThreshold int
	SubmitRateWindow    time.Duration
	HistoryFeedLimit    int

	MaxDBConns         int32
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxClaimTTL     time.Duration
	OutboxMaxRetries   int
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL  string   `yaml:"postgres_url"`
		RedisURL     string   `yaml:"redis_url"`
		KafkaBrokers []string `yaml:"kafka_brokers"`
		KafkaTopic   string   `yaml:"kafka_topic"`
	} `yaml:"dependencies"`
	Payments struct {
		RailURL string `yaml:"rail_url"`
	} `yaml:"payments"`
	Deals struct {
		DefaultCurrency string `yaml:"default_currency"`
	} `yaml:"deals"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// This order keeps local bootstrap simple while allowing environment-specific overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:           "Deal-Service",
		HTTPPort:            8080,
		GRPCPort:            9090,
		KafkaDefaultTopic:   "deal.lifecycle.v1",
		AllowInsecureAuth:   true,
		PaymentHTTPTimeout:  8 * time.Second,
		DefaultCurrency:     "USD",
		IdempotencyTTL:      7 * 24 * time.Hour,
		IntentTTL:           30 * time.Minute,
		SubmitRateThreshold: 20,
		SubmitRateWindow:    time.Minute,
		HistoryFeedLimit:    200,
		MaxDBConns:          20,
		OutboxPollInterval:  2 * time.Second,
		OutboxBatchSize:     100,
		OutboxClaimTTL:      30 * time.Second,
		OutboxMaxRetries:    5,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = f.Dependencies.KafkaBrokers
		}
		if f.Dependencies.KafkaTopic != "" {
			cfg.KafkaDefaultTopic = f.Dependencies.KafkaTopic
		}
		if f.Payments.RailURL != "" {
			cfg.PaymentRailURL = f.Payments.RailURL
		}
		if f.Deals.DefaultCurrency != "" {
			cfg.DefaultCurrency = f.Deals.DefaultCurrency
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaDefaultTopic = envOrDefault("KAFKA_TOPIC", cfg.KafkaDefaultTopic)
	cfg.JWTSecret = envOrDefault("JWT_SECRET", cfg.JWTSecret)
	cfg.AllowInsecureAuth = envBool("AUTH_ALLOW_INSECURE", cfg.AllowInsecureAuth)
	cfg.PaymentRailURL = envOrDefault("PAYMENT_RAIL_URL", cfg.PaymentRailURL)
	cfg.PaymentRailToken = envOrDefault("PAYMENT_RAIL_TOKEN", cfg.PaymentRailToken)
	cfg.DefaultCurrency = envOrDefault("DEAL_DEFAULT_CURRENCY", cfg.DefaultCurrency)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.SubmitRateThreshold = envInt("SUBMIT_RATE_LIMIT_THRESHOLD", cfg.SubmitRateThreshold)
	cfg.HistoryFeedLimit = envInt("HISTORY_FEED_LIMIT", cfg.HistoryFeedLimit)

	cfg.PaymentHTTPTimeout = time.Duration(envInt("PAYMENT_HTTP_TIMEOUT_SECONDS", int(cfg.PaymentHTTPTimeout.Seconds()))) * time.Second
	cfg.IdempotencyTTL = time.Duration(envInt("IDEMPOTENCY_TTL_HOURS", int(cfg.IdempotencyTTL.Hours()))) * time.Hour
	cfg.IntentTTL = time.Duration(envInt("NDA_INTENT_TTL_MINUTES", int(cfg.IntentTTL.Minutes()))) * time.Minute
	cfg.SubmitRateWindow = time.Duration(envInt("SUBMIT_RATE_LIMIT_WINDOW_SECONDS", int(cfg.SubmitRateWindow.Seconds()))) * time.Second
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxClaimTTL = time.Duration(envInt("OUTBOX_CLAIM_TTL_SECONDS", int(cfg.OutboxClaimTTL.Seconds()))) * time.Second
	cfg.OutboxMaxRetries = envInt("OUTBOX_MAX_RETRIES", cfg.OutboxMaxRetries)

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if cfg.JWTSecret == "" && !cfg.AllowInsecureAuth {
		return Config{}, fmt.Errorf("missing JWT_SECRET")
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envBool parses common boolean env forms while keeping a deterministic fallback.
func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
