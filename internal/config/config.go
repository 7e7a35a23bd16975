package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	S3         S3Config
	Extraction ExtractionConfig
	Batch      BatchConfig
	Progress   ProgressConfig
	CORS       CORSConfig
	Log        LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds object storage settings for staged invoice PDFs.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb"`
}

// ExtractionConfig holds settings for the external extraction service.
type ExtractionConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	APIKey      string `mapstructure:"api_key"`
	Model       string `mapstructure:"model"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
	// RateLimitMarkers are substrings of error bodies treated as transient
	// rate-limit/quota signals in addition to HTTP 429.
	RateLimitMarkers []string `mapstructure:"rate_limit_markers"`
}

// BatchConfig holds ingestion pipeline settings.
type BatchConfig struct {
	// ChunkSize bounds how many files go into one physical dispatch, so no
	// single upload request exceeds the service's payload ceiling.
	ChunkSize           int     `mapstructure:"chunk_size"`
	PollIntervalSecs    int     `mapstructure:"poll_interval_secs"`
	PollConcurrency     int     `mapstructure:"poll_concurrency"`
	MaxDispatchRetries  int     `mapstructure:"max_dispatch_retries"`
	DispatchBackoffSecs int     `mapstructure:"dispatch_backoff_secs"`
	// TotalsTolerance is the allowed absolute difference, in currency units,
	// between an invoice's declared total and the recomputed item total
	// before the mismatch flag is raised.
	TotalsTolerance     float64 `mapstructure:"totals_tolerance"`
}

// ProgressConfig holds progress bridge settings.
type ProgressConfig struct {
	// ReadyTimeoutSecs bounds how long an observer waits for a submission to
	// reach its expected file count before giving up on the optimistic
	// indicator. The batch itself is unaffected.
	ReadyTimeoutSecs int `mapstructure:"ready_timeout_secs"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from environment variables with the FACTURAS_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FACTURAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "facturas")
	v.SetDefault("db.password", "facturas_secret")
	v.SetDefault("db.name", "facturas_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// S3 defaults
	v.SetDefault("s3.region", "eu-west-1")
	v.SetDefault("s3.bucket", "facturas-uploads")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.max_file_size_mb", 25)

	// Extraction service defaults
	v.SetDefault("extraction.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("extraction.api_key", "")
	v.SetDefault("extraction.model", "gemini-2.0-flash")
	v.SetDefault("extraction.timeout_secs", 120)
	v.SetDefault("extraction.rate_limit_markers", "quota,429,RESOURCE_EXHAUSTED")

	// Batch defaults
	v.SetDefault("batch.chunk_size", 50)
	v.SetDefault("batch.poll_interval_secs", 10)
	v.SetDefault("batch.poll_concurrency", 5)
	v.SetDefault("batch.max_dispatch_retries", 3)
	v.SetDefault("batch.dispatch_backoff_secs", 5)
	v.SetDefault("batch.totals_tolerance", 0.5)

	// Progress defaults
	v.SetDefault("progress.ready_timeout_secs", 300)

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Log defaults
	v.SetDefault("log.level", "debug")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                   "FACTURAS_SERVER_PORT",
		"server.read_timeout":           "FACTURAS_SERVER_READ_TIMEOUT",
		"server.write_timeout":          "FACTURAS_SERVER_WRITE_TIMEOUT",
		"server.environment":            "FACTURAS_SERVER_ENVIRONMENT",
		"db.host":                       "FACTURAS_DB_HOST",
		"db.port":                       "FACTURAS_DB_PORT",
		"db.user":                       "FACTURAS_DB_USER",
		"db.password":                   "FACTURAS_DB_PASSWORD",
		"db.name":                       "FACTURAS_DB_NAME",
		"db.sslmode":                    "FACTURAS_DB_SSLMODE",
		"db.max_open":                   "FACTURAS_DB_MAX_OPEN",
		"db.max_idle":                   "FACTURAS_DB_MAX_IDLE",
		"s3.region":                     "FACTURAS_S3_REGION",
		"s3.bucket":                     "FACTURAS_S3_BUCKET",
		"s3.endpoint":                   "FACTURAS_S3_ENDPOINT",
		"s3.access_key":                 "FACTURAS_S3_ACCESS_KEY",
		"s3.secret_key":                 "FACTURAS_S3_SECRET_KEY",
		"s3.max_file_size_mb":           "FACTURAS_S3_MAX_FILE_SIZE_MB",
		"extraction.base_url":           "FACTURAS_EXTRACTION_BASE_URL",
		"extraction.api_key":            "FACTURAS_EXTRACTION_API_KEY",
		"extraction.model":              "FACTURAS_EXTRACTION_MODEL",
		"extraction.timeout_secs":       "FACTURAS_EXTRACTION_TIMEOUT_SECS",
		"extraction.rate_limit_markers": "FACTURAS_EXTRACTION_RATE_LIMIT_MARKERS",
		"batch.chunk_size":              "FACTURAS_BATCH_CHUNK_SIZE",
		"batch.poll_interval_secs":      "FACTURAS_BATCH_POLL_INTERVAL_SECS",
		"batch.poll_concurrency":        "FACTURAS_BATCH_POLL_CONCURRENCY",
		"batch.max_dispatch_retries":    "FACTURAS_BATCH_MAX_DISPATCH_RETRIES",
		"batch.dispatch_backoff_secs":   "FACTURAS_BATCH_DISPATCH_BACKOFF_SECS",
		"batch.totals_tolerance":        "FACTURAS_BATCH_TOTALS_TOLERANCE",
		"progress.ready_timeout_secs":   "FACTURAS_PROGRESS_READY_TIMEOUT_SECS",
		"cors.allowed_origins":          "FACTURAS_CORS_ALLOWED_ORIGINS",
		"log.level":                     "FACTURAS_LOG_LEVEL",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if FACTURAS_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("FACTURAS_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		MaxFileSizeMB: v.GetInt64("s3.max_file_size_mb"),
	}
	cfg.Extraction = ExtractionConfig{
		BaseURL:          v.GetString("extraction.base_url"),
		APIKey:           v.GetString("extraction.api_key"),
		Model:            v.GetString("extraction.model"),
		TimeoutSecs:      v.GetInt("extraction.timeout_secs"),
		RateLimitMarkers: splitCSV(v.GetString("extraction.rate_limit_markers")),
	}
	cfg.Batch = BatchConfig{
		ChunkSize:           v.GetInt("batch.chunk_size"),
		PollIntervalSecs:    v.GetInt("batch.poll_interval_secs"),
		PollConcurrency:     v.GetInt("batch.poll_concurrency"),
		MaxDispatchRetries:  v.GetInt("batch.max_dispatch_retries"),
		DispatchBackoffSecs: v.GetInt("batch.dispatch_backoff_secs"),
		TotalsTolerance:     v.GetFloat64("batch.totals_tolerance"),
	}
	cfg.Progress = ProgressConfig{
		ReadyTimeoutSecs: v.GetInt("progress.ready_timeout_secs"),
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: splitCSV(v.GetString("cors.allowed_origins")),
	}
	cfg.Log = LogConfig{
		Level: v.GetString("log.level"),
	}

	return cfg, nil
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
