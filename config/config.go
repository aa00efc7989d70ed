// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"webstories/media"
)

type Config struct {
	Port      int    `env:"PORT" envDefault:"5000"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	DatabaseURL  string `env:"DATABASE_URL,required,notEmpty"`
	DatabaseName string `env:"DATABASE_NAME" envDefault:"webstories"`

	JWTSecret string `env:"JWT_SECRET,required,notEmpty"`
	// WriteRole, when set, is the token role needed to create, update or
	// delete stories.
	WriteRole string `env:"WRITE_ROLE"`

	MaxUploadBytes    int64 `env:"MAX_UPLOAD_BYTES" envDefault:"104857600"`
	UploadConcurrency int   `env:"UPLOAD_CONCURRENCY" envDefault:"4"`

	CacheSize int           `env:"CACHE_SIZE" envDefault:"256"`
	CacheTTL  time.Duration `env:"CACHE_TTL" envDefault:"30s"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	MinIO       MinIO
	MediaFolder string `env:"MEDIA_FOLDER" envDefault:"web-stories"`
}

type MinIO struct {
	Endpoint  string `env:"MINIO_ENDPOINT" envDefault:"localhost:9000"`
	AccessKey string `env:"MINIO_ACCESS_KEY"`
	SecretKey string `env:"MINIO_SECRET_KEY"`
	Bucket    string `env:"MINIO_BUCKET" envDefault:"web-stories"`
	UseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`
	// PublicURL prefixes object keys in slide URLs.
	PublicURL string `env:"MEDIA_PUBLIC_URL"`
}

// Load parses and validates the environment.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if _, err := ParseLogLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("LOG_FORMAT: invalid format %q, want json or text", cfg.LogFormat)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("PORT: %d out of range", cfg.Port)
	}
	if cfg.UploadConcurrency < 1 {
		return nil, fmt.Errorf("UPLOAD_CONCURRENCY: must be positive, got %d", cfg.UploadConcurrency)
	}
	if cfg.MaxUploadBytes < 1 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES: must be positive, got %d", cfg.MaxUploadBytes)
	}
	if cfg.CacheSize < 1 {
		return nil, fmt.Errorf("CACHE_SIZE: must be positive, got %d", cfg.CacheSize)
	}

	return &cfg, nil
}

// MediaConfig is the MinIO section in the form media.NewMinIO takes.
func (c *Config) MediaConfig() media.MinIOConfig {
	return media.MinIOConfig{
		Endpoint:  c.MinIO.Endpoint,
		AccessKey: c.MinIO.AccessKey,
		SecretKey: c.MinIO.SecretKey,
		Bucket:    c.MinIO.Bucket,
		UseSSL:    c.MinIO.UseSSL,
		PublicURL: c.MinIO.PublicURL,
	}
}

// SetupLogger builds the process logger and installs it as the slog default.
func SetupLogger(cfg *Config) *slog.Logger {
	level, _ := ParseLogLevel(cfg.LogLevel)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid level %q, want debug, info, warn or error", level)
	}
}
