package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Dataset   DatasetConfig   `yaml:"dataset"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logger    LoggerConfig    `yaml:"logger"`
	Security  SecurityConfig  `yaml:"security"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatasetConfig struct {
	CSVFile     string        `yaml:"csv_file"`
	CacheDir    string        `yaml:"cache_dir"`
	LoadTimeout time.Duration `yaml:"load_timeout"`
}

// AnalyticsConfig holds the thresholds that turn metrics into flags.
type AnalyticsConfig struct {
	VolatilityThreshold  float64 `yaml:"volatility_threshold"`
	SeasonalityThreshold float64 `yaml:"seasonality_threshold"`
	ParetoTarget         float64 `yaml:"pareto_target"`
}

type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type SecurityConfig struct {
	EnableRateLimit bool     `yaml:"rate_limit_enabled"`
	RateLimitRPS    int      `yaml:"rate_limit_rps"`
	RateLimitBurst  int      `yaml:"rate_limit_burst"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	TrustedProxies  []string `yaml:"trusted_proxies"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8084,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Dataset: DatasetConfig{
			CSVFile:     "ecommerce_orders_revenue.csv",
			CacheDir:    ".cache",
			LoadTimeout: 30 * time.Second,
		},
		Analytics: AnalyticsConfig{
			VolatilityThreshold:  50,
			SeasonalityThreshold: 30,
			ParetoTarget:         80,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "json",
		},
		Security: SecurityConfig{
			EnableRateLimit: true,
			RateLimitRPS:    100,
			RateLimitBurst:  10,
			AllowedOrigins:  []string{"http://localhost:8084"},
			TrustedProxies:  []string{"127.0.0.1"},
		},
	}
}

// Load starts from defaults, applies the YAML file named by CONFIG_FILE when
// set, then lets environment variables override individual fields.
func Load() (*Config, error) {
	base := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := base.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", base.Server.Host),
			Port:            getEnvInt("SERVER_PORT", base.Server.Port),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", base.Server.ReadTimeout),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", base.Server.WriteTimeout),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", base.Server.IdleTimeout),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", base.Server.ShutdownTimeout),
		},
		Dataset: DatasetConfig{
			CSVFile:     getEnvString("CSV_FILE", base.Dataset.CSVFile),
			CacheDir:    getEnvString("CACHE_DIR", base.Dataset.CacheDir),
			LoadTimeout: getEnvDuration("CSV_LOAD_TIMEOUT", base.Dataset.LoadTimeout),
		},
		Analytics: AnalyticsConfig{
			VolatilityThreshold:  getEnvFloat("ANALYTICS_VOLATILITY_THRESHOLD", base.Analytics.VolatilityThreshold),
			SeasonalityThreshold: getEnvFloat("ANALYTICS_SEASONALITY_THRESHOLD", base.Analytics.SeasonalityThreshold),
			ParetoTarget:         getEnvFloat("ANALYTICS_PARETO_TARGET", base.Analytics.ParetoTarget),
		},
		Logger: LoggerConfig{
			Level:  getEnvString("LOG_LEVEL", base.Logger.Level),
			Format: getEnvString("LOG_FORMAT", base.Logger.Format),
		},
		Security: SecurityConfig{
			EnableRateLimit: getEnvBool("SECURITY_RATE_LIMIT_ENABLED", base.Security.EnableRateLimit),
			RateLimitRPS:    getEnvInt("SECURITY_RATE_LIMIT_RPS", base.Security.RateLimitRPS),
			RateLimitBurst:  getEnvInt("SECURITY_RATE_LIMIT_BURST", base.Security.RateLimitBurst),
			AllowedOrigins:  getEnvStringSlice("SECURITY_ALLOWED_ORIGINS", base.Security.AllowedOrigins),
			TrustedProxies:  getEnvStringSlice("SECURITY_TRUSTED_PROXIES", base.Security.TrustedProxies),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// mergeFile decodes a YAML file over c. Keys absent from the file keep their
// current values.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Dataset.CSVFile == "" {
		return fmt.Errorf("CSV file path cannot be empty")
	}

	if c.Dataset.LoadTimeout <= 0 {
		return fmt.Errorf("CSV load timeout must be positive")
	}

	if c.Analytics.ParetoTarget <= 0 || c.Analytics.ParetoTarget > 100 {
		return fmt.Errorf("pareto target must be in (0, 100], got %g", c.Analytics.ParetoTarget)
	}

	if c.Analytics.VolatilityThreshold < 0 || c.Analytics.SeasonalityThreshold < 0 {
		return fmt.Errorf("volatility thresholds cannot be negative")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
