// Package config provides environment configuration for the API server.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// Store settings
	StoreBackend string // "sqlite" or "memory"
	SQLitePath   string

	// Identity settings. The OAuth2/OIDC dance is handled by the identity
	// provider; this service only validates the bearer tokens it issues.
	JWTSecret     string
	OIDCIssuerURL string
	OIDCClientID  string

	// Provider credentials, one per backend
	OpenAIAPIKey    string
	AnthropicAPIKey string
	NVIDIAAPIKey    string
	XAIAPIKey       string
	DeepSeekAPIKey  string

	// Provider behavior
	DefaultModel    string
	VisionModel     string
	ProviderTimeout time.Duration
	RetryAttempts   int
	RetryBackoff    time.Duration

	// Context assembly
	ContextWindowSize  int
	ContextTokenBudget int

	// Input bounds
	MaxMessageChars   int
	MaxUploadBytes    int64
	AllowedExtensions []string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// NATS turn journal (disabled when URL is empty)
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 300*time.Second),

		// Store
		StoreBackend: getEnv("STORE_BACKEND", "sqlite"),
		SQLitePath:   getEnv("SQLITE_PATH", "chat_history.db"),

		// Identity
		JWTSecret:     getEnv("JWT_SECRET", "development-secret-change-in-production"),
		OIDCIssuerURL: getEnv("OIDC_ISSUER_URL", ""),
		OIDCClientID:  getEnv("OIDC_CLIENT_ID", ""),

		// Providers
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		NVIDIAAPIKey:    getEnv("NVIDIA_API_KEY", ""),
		XAIAPIKey:       getEnv("XAI_API_KEY", ""),
		DeepSeekAPIKey:  getEnv("DEEPSEEK_API_KEY", ""),

		DefaultModel:    getEnv("DEFAULT_MODEL", "meta/llama-3.2-3b-instruct"),
		VisionModel:     getEnv("VISION_MODEL", "nvidia/llama-3.1-nemotron-nano-vl-8b-v1"),
		ProviderTimeout: getDurationEnv("PROVIDER_TIMEOUT", 120*time.Second),
		RetryAttempts:   getIntEnv("RETRY_ATTEMPTS", 3),
		RetryBackoff:    getDurationEnv("RETRY_BACKOFF", 2*time.Second),

		// Context
		ContextWindowSize:  getIntEnv("CONTEXT_WINDOW_SIZE", 5),
		ContextTokenBudget: getIntEnv("CONTEXT_TOKEN_BUDGET", 8000),

		// Input bounds
		MaxMessageChars:   getIntEnv("MAX_MESSAGE_CHARS", 4000),
		MaxUploadBytes:    getInt64Env("MAX_UPLOAD_BYTES", 16*1024*1024),
		AllowedExtensions: getListEnv("ALLOWED_EXTENSIONS", []string{"txt", "pdf", "png", "jpg", "jpeg"}),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 10),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// NATS
		NATSURL:      getEnv("NATS_URL", ""),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
