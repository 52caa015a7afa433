package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the scanner.
// Every environment variable is read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External providers
	Finnhub      FinnhubConfig
	AlphaVantage AlphaVantageConfig
	Yahoo        YahooConfig

	// Scoring thresholds
	Thresholds Thresholds

	// Scan tuning
	Scan ScanConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL string

	// Connection pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration. Redis is optional; when disabled
// provider responses are simply not cached.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// FinnhubConfig holds Finnhub API configuration. Free tier allows 60
// calls/minute, so the client is rate limited to 1 req/s.
type FinnhubConfig struct {
	APIKey  string
	BaseURL string
}

// AlphaVantageConfig holds Alpha Vantage API configuration.
type AlphaVantageConfig struct {
	APIKey  string
	BaseURL string
}

// YahooConfig holds the Yahoo Finance chart endpoint configuration.
type YahooConfig struct {
	BaseURL string
}

// Thresholds holds the screening criteria shared by the gate and detectors.
type Thresholds struct {
	MaxPERatio      float64 // maximum price/earnings
	MaxDebtToEquity float64 // maximum debt/equity (as a ratio, not %)
	MinROE          float64 // minimum return on equity
	RVOL            float64 // relative volume considered "high"
	MFIOversold     float64 // money flow index oversold level
}

// ScanConfig holds batch/full-scan tuning knobs.
type ScanConfig struct {
	ChunkSize           int           // symbols per bulk history request
	ChunkPause          time.Duration // pause between chunks
	DeepPeriod          string        // history period for single-symbol scans
	BatchPeriod         string        // history period for batch scans
	Interval            string        // bar interval
	InsiderLookbackDays int           // insider transaction window
	StrongDipScore      int           // dip score considered "strong"
	Watchlist           []string      // always-scanned symbols
}

// Load reads configuration from environment variables. Only this function
// calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8000"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
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

		Finnhub: FinnhubConfig{
			APIKey:  getEnv("FINNHUB_API_KEY", ""),
			BaseURL: getEnv("FINNHUB_BASE_URL", "https://finnhub.io/api/v1"),
		},

		AlphaVantage: AlphaVantageConfig{
			APIKey:  getEnv("ALPHAVANTAGE_API_KEY", ""),
			BaseURL: getEnv("ALPHAVANTAGE_BASE_URL", "https://www.alphavantage.co"),
		},

		Yahoo: YahooConfig{
			BaseURL: getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
		},

		Thresholds: Thresholds{
			MaxPERatio:      getEnvAsFloat("MAX_PE_RATIO", 35.0),
			MaxDebtToEquity: getEnvAsFloat("MAX_DEBT_TO_EQUITY", 2.0),
			MinROE:          getEnvAsFloat("MIN_ROE", 0.08),
			RVOL:            getEnvAsFloat("RVOL_THRESHOLD", 1.5),
			MFIOversold:     getEnvAsFloat("MFI_OVERSOLD", 30.0),
		},

		Scan: ScanConfig{
			ChunkSize:           getEnvAsInt("SCAN_CHUNK_SIZE", 100),
			ChunkPause:          getEnvAsDuration("SCAN_CHUNK_PAUSE", "1s"),
			DeepPeriod:          getEnv("SCAN_DEEP_PERIOD", "6mo"),
			BatchPeriod:         getEnv("SCAN_BATCH_PERIOD", "3mo"),
			Interval:            getEnv("SCAN_INTERVAL", "1d"),
			InsiderLookbackDays: getEnvAsInt("INSIDER_LOOKBACK_DAYS", 30),
			StrongDipScore:      getEnvAsInt("STRONG_DIP_SCORE", 70),
			Watchlist:           getEnvAsList("WATCHLIST", defaultWatchlist),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// defaultWatchlist is scanned even when universe discovery fails.
var defaultWatchlist = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA", "NVDA", "AMD", "META",
	"NFLX", "INTC", "CSCO", "PEP", "KO", "JPM", "BAC",
	"PLTR", "SOFI", "F", "GM", "XOM", "CVX", "NIO", "BABA",
}

// validate checks if required configuration values are set.
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Scan.ChunkSize <= 0 {
		return fmt.Errorf("SCAN_CHUNK_SIZE must be positive")
	}

	return nil
}

// loadEnvFile tries to load .env from the usual locations.
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

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.ToUpper(strings.TrimSpace(p)); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
