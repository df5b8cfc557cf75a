package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("unexpected port: %s", cfg.Port)
	}
	if cfg.MaxImageDimension != 2048 {
		t.Fatalf("unexpected max dimension: %d", cfg.MaxImageDimension)
	}
	if cfg.PollInterval != 3*time.Second {
		t.Fatalf("unexpected poll interval: %s", cfg.PollInterval)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("MAX_IMAGE_DIMENSION", "1024")
	t.Setenv("CACHE_HIT_DELAY_MS", "50")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.MaxImageDimension != 1024 {
		t.Fatalf("unexpected max dimension: %d", cfg.MaxImageDimension)
	}
	if cfg.CacheHitDelay != 50*time.Millisecond {
		t.Fatalf("unexpected cache hit delay: %s", cfg.CacheHitDelay)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
}

func TestLoadConfigRejectsNonPositiveDimension(t *testing.T) {
	t.Setenv("MAX_IMAGE_DIMENSION", "-1")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for non-positive dimension")
	}
}
