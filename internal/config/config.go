package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/abdul-hamid-achik/s3drop/internal/storage"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	AccessKeyID      string `json:"access_key_id,omitempty" yaml:"access_key_id,omitempty"`
	SecretAccessKey  string `json:"secret_access_key,omitempty" yaml:"secret_access_key,omitempty"`
	Region           string `json:"region,omitempty" yaml:"region,omitempty"`
	Bucket           string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
	Folder           string `json:"folder,omitempty" yaml:"folder,omitempty"`
	ACL              string `json:"acl,omitempty" yaml:"acl,omitempty"`
	ExpiresInMinutes int    `json:"expires_in_minutes,omitempty" yaml:"expires_in_minutes,omitempty"`
	Endpoint         string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	UseSSL           bool   `json:"use_ssl,omitempty" yaml:"use_ssl,omitempty"`

	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"`

	Environment string `json:"environment,omitempty" yaml:"environment,omitempty"`
	LogLevel    string `json:"log_level,omitempty" yaml:"log_level,omitempty"`

	// Server
	Port          int   `json:"port,omitempty" yaml:"port,omitempty"`
	MaxUploadSize int64 `json:"max_upload_size,omitempty" yaml:"max_upload_size,omitempty"`
	RateLimit     int   `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
	RateBurst     int   `json:"rate_burst,omitempty" yaml:"rate_burst,omitempty"`

	// Tracing
	TracingEnabled  bool    `json:"tracing_enabled,omitempty" yaml:"tracing_enabled,omitempty"`
	OTLPEndpoint    string  `json:"otlp_endpoint,omitempty" yaml:"otlp_endpoint,omitempty"`
	TraceSampleRate float64 `json:"trace_sample_rate,omitempty" yaml:"trace_sample_rate,omitempty"`
}

const (
	DefaultPort          = 8080
	DefaultMaxUploadSize = 25 * 1024 * 1024
	DefaultRateLimit     = 100
	DefaultRateBurst     = 200
	DefaultLogLevel      = "info"
	DefaultEnvironment   = "development"
	DefaultOTLPEndpoint  = "localhost:4317"
	DefaultSampleRate    = 1.0

	// Environment variable names for configuration overrides
	EnvPrefix          = "S3DROP_"
	EnvAccessKeyID     = EnvPrefix + "ACCESS_KEY_ID"
	EnvSecretAccessKey = EnvPrefix + "SECRET_ACCESS_KEY"
	EnvRegion          = EnvPrefix + "REGION"
	EnvBucket          = EnvPrefix + "BUCKET"
	EnvFolder          = EnvPrefix + "FOLDER"
	EnvACL             = EnvPrefix + "ACL"
	EnvExpiresInMin    = EnvPrefix + "EXPIRES_IN_MINUTES"
	EnvEndpoint        = EnvPrefix + "ENDPOINT"
	EnvUseSSL          = EnvPrefix + "USE_SSL"
	EnvProvider        = EnvPrefix + "PROVIDER"
	EnvEnvironment     = EnvPrefix + "ENVIRONMENT"
	EnvLogLevel        = EnvPrefix + "LOG_LEVEL"
	EnvPort            = EnvPrefix + "PORT"
	EnvMaxUploadSize   = EnvPrefix + "MAX_UPLOAD_SIZE"
	EnvRateLimit       = EnvPrefix + "RATE_LIMIT"
	EnvRateBurst       = EnvPrefix + "RATE_BURST"
	EnvTracingEnabled  = EnvPrefix + "TRACING_ENABLED"
	EnvOTLPEndpoint    = EnvPrefix + "OTLP_ENDPOINT"
	EnvTraceSampleRate = EnvPrefix + "TRACE_SAMPLE_RATE"
)

func Default() *Config {
	return &Config{
		Provider:        storage.ProviderMinIO,
		Environment:     DefaultEnvironment,
		LogLevel:        DefaultLogLevel,
		Port:            DefaultPort,
		MaxUploadSize:   DefaultMaxUploadSize,
		RateLimit:       DefaultRateLimit,
		RateBurst:       DefaultRateBurst,
		OTLPEndpoint:    DefaultOTLPEndpoint,
		TraceSampleRate: DefaultSampleRate,
	}
}

func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "s3drop"), nil
}

func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the user config file and a .env file in the working directory,
// then applies S3DROP_* environment overrides.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		path = ""
	}
	return LoadFrom(path, ".env")
}

// LoadFrom is Load with explicit file locations. Missing files are skipped;
// an empty path skips that source.
func LoadFrom(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return nil, err
		}
	}

	// godotenv never overrides variables already set in the environment.
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg.AccessKeyID = getEnvString(EnvAccessKeyID, cfg.AccessKeyID)
	cfg.SecretAccessKey = getEnvString(EnvSecretAccessKey, cfg.SecretAccessKey)
	cfg.Region = getEnvString(EnvRegion, cfg.Region)
	cfg.Bucket = getEnvString(EnvBucket, cfg.Bucket)
	cfg.Folder = getEnvString(EnvFolder, cfg.Folder)
	cfg.ACL = getEnvString(EnvACL, cfg.ACL)
	cfg.ExpiresInMinutes = getEnvInt(EnvExpiresInMin, cfg.ExpiresInMinutes)
	cfg.Endpoint = getEnvString(EnvEndpoint, cfg.Endpoint)
	cfg.UseSSL = getEnvBool(EnvUseSSL, cfg.UseSSL)

	cfg.Provider = strings.ToLower(getEnvString(EnvProvider, cfg.Provider))
	cfg.Environment = getEnvString(EnvEnvironment, cfg.Environment)
	cfg.LogLevel = getEnvString(EnvLogLevel, cfg.LogLevel)

	cfg.Port = getEnvInt(EnvPort, cfg.Port)
	cfg.MaxUploadSize = getEnvInt64(EnvMaxUploadSize, cfg.MaxUploadSize)
	cfg.RateLimit = getEnvInt(EnvRateLimit, cfg.RateLimit)
	cfg.RateBurst = getEnvInt(EnvRateBurst, cfg.RateBurst)

	cfg.TracingEnabled = getEnvBool(EnvTracingEnabled, cfg.TracingEnabled)
	cfg.OTLPEndpoint = getEnvString(EnvOTLPEndpoint, cfg.OTLPEndpoint)
	cfg.TraceSampleRate = getEnvFloat(EnvTraceSampleRate, cfg.TraceSampleRate)

	return cfg, nil
}

// LoadFile reads only the YAML file on top of the defaults, without any
// environment overrides. A missing file yields the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config file readable only by the current user, since it
// may hold the secret access key.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Storage returns the per-call storage configuration. Credentials are not
// checked here.
func (c *Config) Storage() *storage.Config {
	return &storage.Config{
		AccessKeyID:      c.AccessKeyID,
		SecretAccessKey:  c.SecretAccessKey,
		Region:           c.Region,
		Bucket:           c.Bucket,
		Folder:           c.Folder,
		ACL:              c.ACL,
		ExpiresInMinutes: c.ExpiresInMinutes,
		Endpoint:         c.Endpoint,
		UseSSL:           c.UseSSL,
	}
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	if c.MaxUploadSize < 1 {
		return fmt.Errorf("invalid max upload size: %d", c.MaxUploadSize)
	}

	if c.RateLimit < 0 || c.RateBurst < 0 {
		return fmt.Errorf("invalid rate limit: %d/s burst %d", c.RateLimit, c.RateBurst)
	}

	if _, err := storage.New(c.Provider); err != nil {
		return fmt.Errorf("invalid provider %q: %w", c.Provider, err)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	if c.TraceSampleRate < 0 || c.TraceSampleRate > 1 {
		return fmt.Errorf("invalid trace sample rate: %v", c.TraceSampleRate)
	}

	return nil
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() *Config {
	r := *c
	r.SecretAccessKey = mask(c.SecretAccessKey)
	r.AccessKeyID = mask(c.AccessKeyID)
	return &r
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + strings.Repeat("*", len(s)-4)
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
