package config

import (
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"
)

func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

func minimalEnvs() map[string]string {
	return map[string]string{
		"DATABASE_URL": "mongodb://localhost:27017",
		"JWT_SECRET":   "secret",
	}
}

func TestLoad_Defaults(t *testing.T) {
	setEnvs(t, minimalEnvs())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != 5000 {
		t.Errorf("Port = %d, want 5000", cfg.Port)
	}
	if cfg.DatabaseName != "webstories" {
		t.Errorf("DatabaseName = %q", cfg.DatabaseName)
	}
	if cfg.MaxUploadBytes != 100<<20 {
		t.Errorf("MaxUploadBytes = %d, want 100 MiB", cfg.MaxUploadBytes)
	}
	if cfg.UploadConcurrency != 4 {
		t.Errorf("UploadConcurrency = %d, want 4", cfg.UploadConcurrency)
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Errorf("CacheTTL = %v", cfg.CacheTTL)
	}
	if cfg.MinIO.Bucket != "web-stories" || cfg.MediaFolder != "web-stories" {
		t.Errorf("bucket/folder = %q/%q", cfg.MinIO.Bucket, cfg.MediaFolder)
	}
	if cfg.WriteRole != "" {
		t.Errorf("WriteRole = %q, want empty", cfg.WriteRole)
	}
}

func TestLoad_Overrides(t *testing.T) {
	envs := minimalEnvs()
	envs["PORT"] = "8080"
	envs["LOG_LEVEL"] = "debug"
	envs["LOG_FORMAT"] = "text"
	envs["WRITE_ROLE"] = "admin"
	envs["MINIO_USE_SSL"] = "true"
	envs["MEDIA_PUBLIC_URL"] = "https://cdn.example.com/media"
	envs["SHUTDOWN_TIMEOUT"] = "3s"
	setEnvs(t, envs)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8080 || cfg.LogFormat != "text" || cfg.WriteRole != "admin" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.ShutdownTimeout != 3*time.Second {
		t.Errorf("ShutdownTimeout = %v", cfg.ShutdownTimeout)
	}

	mc := cfg.MediaConfig()
	if !mc.UseSSL || mc.PublicURL != "https://cdn.example.com/media" {
		t.Errorf("media config = %+v", mc)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		set     map[string]string
		drop    string
		wantErr string
	}{
		{"missing database url", nil, "DATABASE_URL", "DATABASE_URL"},
		{"missing jwt secret", nil, "JWT_SECRET", "JWT_SECRET"},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}, "", "LOG_LEVEL"},
		{"bad log format", map[string]string{"LOG_FORMAT": "xml"}, "", "LOG_FORMAT"},
		{"bad port", map[string]string{"PORT": "70000"}, "", "PORT"},
		{"zero concurrency", map[string]string{"UPLOAD_CONCURRENCY": "0"}, "", "UPLOAD_CONCURRENCY"},
		{"port not a number", map[string]string{"PORT": "abc"}, "", "PORT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envs := minimalEnvs()
			for k, v := range tt.set {
				envs[k] = v
			}
			setEnvs(t, envs)
			if tt.drop != "" {
				t.Setenv(tt.drop, "")
				os.Unsetenv(tt.drop)
			}

			_, err := Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(strings.ToUpper(err.Error()), tt.wantErr) {
				t.Errorf("err = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLogLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLogLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}
