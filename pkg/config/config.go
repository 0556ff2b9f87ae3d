package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (optional, enables the Postgres estimate store)
	Database DatabaseConfig

	// Redis (optional, quote cache + shared rate limit)
	Redis RedisConfig

	// Outbound HTTP
	HTTP HTTPConfig

	// Vendor endpoints
	Eastmoney EastmoneyConfig
	Sina      SinaConfig

	// Estimation
	Valuation ValuationConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether a database URL was configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// HTTPConfig holds outbound HTTP settings shared by every vendor client
type HTTPConfig struct {
	ProxyURL   string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	RatePerSec int
	UserAgent  string
}

// EastmoneyConfig holds Eastmoney (天天基金) endpoints
type EastmoneyConfig struct {
	FundGZURL string // last NAV (jsonp)
	F10URL    string // holdings + profile pages
}

// SinaConfig holds Sina real-time quote endpoint
type SinaConfig struct {
	HQURL   string
	Referer string
}

// ValuationConfig holds estimator tuning
type ValuationConfig struct {
	MinCoverage float64       // percent, holdings path acceptance threshold
	TopN        int           // holdings requested per fund
	MaxWorkers  int           // batch parallelism upper bound
	Interval    time.Duration // refresh period for the run loop
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		HTTP: HTTPConfig{
			ProxyURL:   getEnv("HTTP_PROXY_URL", ""),
			Timeout:    getEnvAsDuration("HTTP_TIMEOUT", "12s"),
			MaxRetries: getEnvAsInt("HTTP_MAX_RETRIES", 2),
			RetryDelay: getEnvAsDuration("HTTP_RETRY_DELAY", "500ms"),
			RatePerSec: getEnvAsInt("HTTP_RATE_PER_SEC", 20),
			UserAgent:  getEnv("HTTP_USER_AGENT", defaultUserAgent),
		},

		Eastmoney: EastmoneyConfig{
			FundGZURL: getEnv("EASTMONEY_FUNDGZ_URL", "https://fundgz.1234567.com.cn"),
			F10URL:    getEnv("EASTMONEY_F10_URL", "https://fundf10.eastmoney.com"),
		},

		Sina: SinaConfig{
			HQURL:   getEnv("SINA_HQ_URL", "https://hq.sinajs.cn"),
			Referer: getEnv("SINA_REFERER", "https://finance.sina.com.cn"),
		},

		Valuation: ValuationConfig{
			MinCoverage: getEnvAsFloat("VALUATION_MIN_COVERAGE", 35.0),
			TopN:        getEnvAsInt("VALUATION_TOP_N", 10),
			MaxWorkers:  getEnvAsInt("VALUATION_MAX_WORKERS", 8),
			Interval:    getEnvAsDuration("VALUATION_INTERVAL", "60s"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration values that would otherwise fail late
func (c *Config) Validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if err := ValidateProxyURL(c.HTTP.ProxyURL); err != nil {
		return err
	}

	if c.Valuation.MinCoverage < 0 || c.Valuation.MinCoverage > 100 {
		return fmt.Errorf("VALUATION_MIN_COVERAGE must be within [0, 100], got %v", c.Valuation.MinCoverage)
	}

	if c.Valuation.MaxWorkers < 1 {
		return fmt.Errorf("VALUATION_MAX_WORKERS must be >= 1, got %d", c.Valuation.MaxWorkers)
	}

	if c.Valuation.TopN < 1 {
		return fmt.Errorf("VALUATION_TOP_N must be >= 1, got %d", c.Valuation.TopN)
	}

	return nil
}

// ValidateProxyURL accepts an empty string (no proxy) or an absolute URL with scheme and host.
// e.g. http://127.0.0.1:7890, socks5://127.0.0.1:1080
func ValidateProxyURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid proxy url: %q", raw)
	}
	return nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
