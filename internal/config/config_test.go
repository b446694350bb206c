package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Port)
	}
	if cfg.DBPath != "./data/hub.db" {
		t.Errorf("Expected default db path, got %s", cfg.DBPath)
	}
	if cfg.TokenTTL != 24*time.Hour {
		t.Errorf("Expected default token ttl 24h, got %s", cfg.TokenTTL)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Errorf("Expected default allowed origins [*], got %v", cfg.AllowedOrigins)
	}
	if !cfg.IsDevelopment() {
		t.Error("Expected development mode")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("PORT", "9999")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("RATE_LIMIT_REQUESTS", "10")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "9999" {
		t.Errorf("Expected port 9999, got %s", cfg.Port)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("Expected trimmed origin list, got %v", cfg.AllowedOrigins)
	}
	if cfg.RateLimit != 10 {
		t.Errorf("Expected rate limit 10, got %d", cfg.RateLimit)
	}
}

func TestLoad_GeneratesDevJWTSecret(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.JWTSecret == "" {
		t.Error("Expected a generated secret when JWT_SECRET is unset in development")
	}

	other, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if other.JWTSecret == cfg.JWTSecret {
		t.Error("Expected generated secrets to be random")
	}
}

func TestLoad_RequiresJWTSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Error("Expected load to fail without JWT_SECRET in production")
	}

	t.Setenv("JWT_SECRET", "s3cret")
	if _, err := Load(); err != nil {
		t.Errorf("Expected load to succeed with JWT_SECRET, got %v", err)
	}
}

func TestValidate_Bounds(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	cfg := &Config{Port: "8080", DBPath: "x", TokenTTL: time.Hour, RateLimit: 1, RateLimitWindow: time.Minute}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}

	cfg.RateLimit = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation failure for zero rate limit")
	}

	cfg.RateLimit = 1
	cfg.TokenTTL = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation failure for zero token ttl")
	}
}
