package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := Default()
	if cfg.Address() != "localhost:8084" {
		t.Errorf("address = %s", cfg.Address())
	}
	if cfg.Dataset != want.Dataset {
		t.Errorf("dataset = %+v, want %+v", cfg.Dataset, want.Dataset)
	}
	if cfg.Analytics != want.Analytics {
		t.Errorf("analytics = %+v, want %+v", cfg.Analytics, want.Analytics)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("CSV_FILE", "/data/orders.csv")
	t.Setenv("CSV_LOAD_TIMEOUT", "5s")
	t.Setenv("ANALYTICS_PARETO_TARGET", "70")
	t.Setenv("ANALYTICS_VOLATILITY_THRESHOLD", "40.5")
	t.Setenv("SECURITY_ALLOWED_ORIGINS", "http://a,http://b")
	t.Setenv("SECURITY_RATE_LIMIT_ENABLED", "false")
	t.Setenv("SERVER_IDLE_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Dataset.CSVFile != "/data/orders.csv" || cfg.Dataset.LoadTimeout != 5*time.Second {
		t.Errorf("dataset = %+v", cfg.Dataset)
	}
	if cfg.Analytics.ParetoTarget != 70 || cfg.Analytics.VolatilityThreshold != 40.5 {
		t.Errorf("analytics = %+v", cfg.Analytics)
	}
	if len(cfg.Security.AllowedOrigins) != 2 || cfg.Security.EnableRateLimit {
		t.Errorf("security = %+v", cfg.Security)
	}
	if cfg.Server.IdleTimeout != Default().Server.IdleTimeout {
		t.Errorf("unparsable duration should keep the default, got %v", cfg.Server.IdleTimeout)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
dataset:
  csv_file: exports/orders.csv
analytics:
  seasonality_threshold: 25
logger:
  format: text
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Dataset.CSVFile != "exports/orders.csv" {
		t.Errorf("csv file = %s", cfg.Dataset.CSVFile)
	}
	if cfg.Dataset.CacheDir != Default().Dataset.CacheDir {
		t.Errorf("keys missing from the file should keep defaults, got %q", cfg.Dataset.CacheDir)
	}
	if cfg.Analytics.SeasonalityThreshold != 25 || cfg.Analytics.ParetoTarget != 80 {
		t.Errorf("analytics = %+v", cfg.Analytics)
	}
	if cfg.Logger.Format != "json" {
		t.Errorf("environment should win over the file, got %s", cfg.Logger.Format)
	}
}

func TestLoad_ConfigFileErrors(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Error("missing config file should fail")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	if _, err := Load(); err == nil {
		t.Error("malformed config file should fail")
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		env  string
		val  string
		want string
	}{
		{"SERVER_PORT", "70000", "server port"},
		{"ANALYTICS_PARETO_TARGET", "0", "pareto target"},
		{"ANALYTICS_PARETO_TARGET", "101", "pareto target"},
		{"ANALYTICS_SEASONALITY_THRESHOLD", "-1", "thresholds"},
		{"CSV_LOAD_TIMEOUT", "-5s", "load timeout"},
		{"LOG_LEVEL", "verbose", "log level"},
		{"LOG_FORMAT", "xml", "log format"},
		{"SECURITY_RATE_LIMIT_RPS", "0", "RPS"},
	}

	for _, tt := range tests {
		t.Run(tt.env+"="+tt.val, func(t *testing.T) {
			t.Setenv("CONFIG_FILE", "")
			t.Setenv(tt.env, tt.val)
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
