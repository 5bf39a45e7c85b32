package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ストレージドライバ
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// トレンド取得元
const (
	TrendSourceStatic = "static"
	TrendSourceRSS    = "rss"
)

// DefaultTrendFeedURL はGoogle TrendsのデイリートレンドRSS。%sに国コードが入る。
const DefaultTrendFeedURL = "https://trends.google.com/trending/rss?geo=%s"

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Storage
	StorageDriver  string
	DatabaseURL    string
	DBMaxOpenConns int
	TenantID       string

	// Logging
	LogLevel slog.Level

	// Server
	ServerPort        string
	CORSAllowedOrigin string
	APIToken          string

	// Scheduler
	TickInterval   time.Duration
	DriftTolerance time.Duration

	// Rate Limit
	RateLimitGeneral  int
	RateLimitGenerate int

	// Trend source
	TrendSource       string
	TrendFeedURL      string
	TrendFetchTimeout time.Duration

	// LLM
	LLMProvider string
	LLMModel    string
	LLMAPIKey   string
	LLMAPIURL   string
	LLMTimeout  time.Duration

	// Automation defaults
	AutomationDefaultsFile string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envが存在する場合は先に読み込む（既存の環境変数は上書きしない）。
// 必須環境変数が未設定、または値が不正な場合はエラーを返す。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}

	cfg.StorageDriver = getEnvString("STORAGE_DRIVER", StorageDriverPostgres)
	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("required environment variables are not set: %v", []string{"DATABASE_URL"})
		}
	case StorageDriverMemory:
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER: %q", cfg.StorageDriver)
	}

	cfg.TrendSource = getEnvString("TREND_SOURCE", TrendSourceStatic)
	if cfg.TrendSource != TrendSourceStatic && cfg.TrendSource != TrendSourceRSS {
		return nil, fmt.Errorf("unsupported TREND_SOURCE: %q", cfg.TrendSource)
	}

	// Optional fields with defaults
	cfg.DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 5)
	if cfg.DBMaxOpenConns < 1 {
		cfg.DBMaxOpenConns = 1
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(getEnvString("LOG_LEVEL", "INFO"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	cfg.TenantID = getEnvString("TENANT_ID", "default")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
	cfg.APIToken = os.Getenv("API_TOKEN")

	cfg.TickInterval = getEnvDuration("TICK_INTERVAL", time.Hour)
	if cfg.TickInterval <= 0 {
		return nil, fmt.Errorf("TICK_INTERVAL must be positive: %v", cfg.TickInterval)
	}
	cfg.DriftTolerance = getEnvDuration("DRIFT_TOLERANCE", cfg.TickInterval)
	if cfg.DriftTolerance < 0 {
		cfg.DriftTolerance = 0
	}

	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitGenerate = getEnvInt("RATE_LIMIT_GENERATE", 10)

	cfg.TrendFeedURL = getEnvString("TREND_FEED_URL", DefaultTrendFeedURL)
	cfg.TrendFetchTimeout = getEnvDuration("TREND_FETCH_TIMEOUT", 10*time.Second)

	cfg.LLMProvider = getEnvString("LLM_PROVIDER", "openai")
	cfg.LLMModel = getEnvString("LLM_MODEL", "gpt-4o-mini")
	cfg.LLMAPIKey = os.Getenv("LLM_API_KEY")
	cfg.LLMAPIURL = getEnvString("LLM_API_URL", "https://api.openai.com/v1")
	cfg.LLMTimeout = getEnvDuration("LLM_TIMEOUT", 60*time.Second)

	cfg.AutomationDefaultsFile = os.Getenv("AUTOMATION_DEFAULTS_FILE")

	return cfg, nil
}

// LLMEnabled はLLMによる記事生成が利用可能かを返す。
func (c *Config) LLMEnabled() bool {
	return c.LLMAPIKey != ""
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
