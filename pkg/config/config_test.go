package config

import (
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("HTTP_PROXY_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "8089" {
		t.Errorf("Expected Port to be 8089, got %s", cfg.Port)
	}

	if cfg.Env != "development" {
		t.Errorf("Expected Env to be development, got %s", cfg.Env)
	}

	if cfg.Valuation.MinCoverage != 35.0 {
		t.Errorf("Expected MinCoverage to be 35, got %v", cfg.Valuation.MinCoverage)
	}

	if cfg.Valuation.TopN != 10 {
		t.Errorf("Expected TopN to be 10, got %d", cfg.Valuation.TopN)
	}

	if cfg.HTTP.Timeout != 12*time.Second {
		t.Errorf("Expected HTTP timeout 12s, got %v", cfg.HTTP.Timeout)
	}

	if cfg.Database.Enabled() {
		t.Error("Expected database to be disabled without DATABASE_URL")
	}
}

func TestLoadWithCustomValues(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ENV", "production")
	t.Setenv("VALUATION_MIN_COVERAGE", "50")
	t.Setenv("VALUATION_MAX_WORKERS", "16")
	t.Setenv("HTTP_PROXY_URL", "http://127.0.0.1:7890")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "9000" {
		t.Errorf("Expected Port to be 9000, got %s", cfg.Port)
	}

	if cfg.Env != "production" {
		t.Errorf("Expected Env to be production, got %s", cfg.Env)
	}

	if cfg.Valuation.MinCoverage != 50 {
		t.Errorf("Expected MinCoverage 50, got %v", cfg.Valuation.MinCoverage)
	}

	if cfg.Valuation.MaxWorkers != 16 {
		t.Errorf("Expected MaxWorkers 16, got %d", cfg.Valuation.MaxWorkers)
	}

	if cfg.HTTP.ProxyURL != "http://127.0.0.1:7890" {
		t.Errorf("Expected proxy to be kept, got %s", cfg.HTTP.ProxyURL)
	}
}

func TestValidateInvalidEnv(t *testing.T) {
	t.Setenv("ENV", "invalid")

	_, err := Load()
	if err == nil {
		t.Error("Expected error when ENV is invalid, got nil")
	}
}

func TestValidateInvalidProxy(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("HTTP_PROXY_URL", "127.0.0.1:7890")

	_, err := Load()
	if err == nil {
		t.Error("Expected error for proxy without scheme, got nil")
	}
}

func TestValidateCoverageRange(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("HTTP_PROXY_URL", "")
	t.Setenv("VALUATION_MIN_COVERAGE", "120")

	_, err := Load()
	if err == nil {
		t.Error("Expected error for coverage above 100, got nil")
	}
}

func TestValidateProxyURL(t *testing.T) {
	tests := []struct {
		raw     string
		wantErr bool
	}{
		{"", false},
		{"http://127.0.0.1:7890", false},
		{"socks5://127.0.0.1:1080", false},
		{"127.0.0.1:7890", true},
		{"http://", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			err := ValidateProxyURL(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateProxyURL(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "2h")

	duration := getEnvAsDuration("TEST_DURATION", "1h")
	expected := 2 * time.Hour

	if duration != expected {
		t.Errorf("Expected duration to be %v, got %v", expected, duration)
	}
}

func TestGetEnvAsFloat(t *testing.T) {
	t.Setenv("TEST_FLOAT", "12.5")

	if v := getEnvAsFloat("TEST_FLOAT", 1); v != 12.5 {
		t.Errorf("Expected value to be 12.5, got %v", v)
	}

	t.Setenv("TEST_FLOAT", "abc")
	if v := getEnvAsFloat("TEST_FLOAT", 1); v != 1 {
		t.Errorf("Expected fallback 1, got %v", v)
	}
}

func TestGetEnvAsBool(t *testing.T) {
	t.Setenv("TEST_BOOL", "true")

	value := getEnvAsBool("TEST_BOOL", false)
	if value != true {
		t.Errorf("Expected value to be true, got %v", value)
	}
}
