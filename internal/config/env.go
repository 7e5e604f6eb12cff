package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// ServerConfig defines the HTTP listener.
type ServerConfig struct {
	Addr            string
	MaxUploadBytes  int64
	UploadDir       string
	AssetDir        string
	ShutdownTimeout time.Duration
}

// ExtractConfig tunes the extraction pipeline.
type ExtractConfig struct {
	BaseDPI       int
	LowDPI        int
	LargeDocPages int
	BatchSize     int
	JPEGQuality   int
}

// StoreConfig selects and configures the document store backend.
type StoreConfig struct {
	Backend       string // "fs" or "s3"
	Dir           string
	EncryptionKey string // empty disables at-rest encryption

	S3Bucket    string
	S3Region    string
	S3Prefix    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
}

// SessionConfig defines session state connectivity.
type SessionConfig struct {
	RedisURL string
	TTL      time.Duration
}

// Config is the top-level configuration.
type Config struct {
	Logging LoggingConfig
	Axiom   AxiomConfig
	Server  ServerConfig
	Extract ExtractConfig
	Store   StoreConfig
	Session SessionConfig
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/pdfviewer.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_pdfviewer",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.Server = ServerConfig{
		Addr:            getEnv("HTTP_ADDR", ":8080"),
		MaxUploadBytes:  parseInt64(getEnv("MAX_UPLOAD_BYTES", "524288000"), 524288000),
		UploadDir:       getEnv("UPLOAD_DIR", "data/uploads"),
		AssetDir:        getEnv("ASSET_DIR", "data/assets"),
		ShutdownTimeout: parseDuration(getEnv("SHUTDOWN_TIMEOUT", "10s"), 10*time.Second),
	}

	cfg.Extract = ExtractConfig{
		BaseDPI:       parseInt(getEnv("RENDER_DPI", "150"), 150),
		LowDPI:        parseInt(getEnv("RENDER_DPI_LARGE", "96"), 96),
		LargeDocPages: parseInt(getEnv("LARGE_DOC_PAGES", "200"), 200),
		BatchSize:     parseInt(getEnv("RENDER_BATCH_SIZE", "64"), 64),
		JPEGQuality:   parseInt(getEnv("RENDER_JPEG_QUALITY", "85"), 85),
	}

	cfg.Store = StoreConfig{
		Backend:       getEnv("STORE_BACKEND", "fs"),
		Dir:           getEnv("STORE_DIR", "data/documents"),
		EncryptionKey: getEnv("STORE_ENCRYPTION_KEY", ""),
		S3Bucket:      getEnv("S3_BUCKET", ""),
		S3Region:      getEnv("S3_REGION", ""),
		S3Prefix:      getEnv("S3_PREFIX", "documents/"),
		S3Endpoint:    getEnv("S3_ENDPOINT", ""),
		S3AccessKey:   getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:   getEnv("S3_SECRET_KEY", ""),
	}

	cfg.Session = SessionConfig{
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),
		TTL:      parseDuration(getEnv("SESSION_TTL", "24h"), 24*time.Hour),
	}

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseInt64(s string, def int64) int64 {
	if s == "" {
		return def
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
