package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv         string
	Port           string
	DatabaseURL    string
	RedisAddr      string
	RedisDB        int
	StoragePath    string
	StorageBaseURL string

	InferenceBaseURL  string
	InferenceAPIKey   string
	InferenceCallback string

	MaxImageDimension int
	PollInterval      time.Duration
	CacheHitDelay     time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	AllowedOrigins   []string
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. DatabaseURL and RedisAddr are optional: when unset
// the service falls back to in-memory cache backends.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		Port:              getEnv("PORT", "8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		StoragePath:       getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL:    getEnv("STORAGE_BASE_URL", "http://localhost:8080/static"),
		InferenceBaseURL:  getEnv("INFERENCE_BASE_URL", "https://api.inference.example.com/v1"),
		InferenceAPIKey:   os.Getenv("INFERENCE_API_KEY"),
		InferenceCallback: os.Getenv("INFERENCE_CALLBACK_URL"),
		MaxImageDimension: getEnvInt("MAX_IMAGE_DIMENSION", 2048),
		PollInterval:      time.Second * time.Duration(getEnvInt("JOB_POLL_INTERVAL_SECONDS", 3)),
		CacheHitDelay:     time.Millisecond * time.Duration(getEnvInt("CACHE_HIT_DELAY_MS", 400)),
		HTTPReadTimeout:   time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:  time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:   time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:   getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		AllowedOrigins:    splitEnv("ALLOWED_ORIGINS"),
	}

	if cfg.MaxImageDimension <= 0 {
		return nil, fmt.Errorf("MAX_IMAGE_DIMENSION must be positive")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("JOB_POLL_INTERVAL_SECONDS must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitEnv(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
