// Package config loads the progression layer configuration from YAML with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	ReadTimeoutSec  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSec int    `yaml:"write_timeout_seconds"`
	IdleTimeoutSec  int    `yaml:"idle_timeout_seconds"`
}

// DatabaseConfig controls the PostgreSQL connection. When DSN is empty the
// application falls back to the in-memory stores.
type DatabaseConfig struct {
	Driver          string `yaml:"driver"`
	DSN             string `yaml:"dsn"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_seconds"`
	Migrate         bool   `yaml:"migrate"`
}

// RedisConfig controls the OTP code store. When Addr is empty OTP codes are
// kept in process memory.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AuthConfig controls token issuance and OTP behaviour.
type AuthConfig struct {
	JWTSecret   string `yaml:"jwt_secret"`
	TokenTTLMin int    `yaml:"token_ttl_minutes"`
	OTPTTLSec   int    `yaml:"otp_ttl_seconds"`
}

// RateLimitConfig controls per-caller request throttling.
type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	Burst             int `yaml:"burst"`
}

// LoggingConfig mirrors pkg/logger.LoggingConfig.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	FilePrefix string `yaml:"file_prefix"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeoutSec:  30,
			WriteTimeoutSec: 30,
			IdleTimeoutSec:  120,
		},
		Database: DatabaseConfig{
			Driver:  "postgres",
			Migrate: true,
		},
		Auth: AuthConfig{
			TokenTTLMin: 60,
			OTPTTLSec:   300,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
		},
		Logging: LoggingConfig{Level: "info", Format: "text", Output: "stdout"},
	}
}

// Load reads CONFIG_PATH (or config/progression.yaml) when present, then
// applies environment overrides.
func Load() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/progression.yaml"
	}
	cfg, err := LoadFromPath(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg = Default()
	}
	applyEnv(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath reads and parses a configuration file.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Auth.TokenTTLMin <= 0 {
		return fmt.Errorf("token_ttl_minutes must be positive")
	}
	if c.Auth.OTPTTLSec <= 0 {
		return fmt.Errorf("otp_ttl_seconds must be positive")
	}
	return nil
}

// TokenTTL returns the bearer token lifetime.
func (c AuthConfig) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMin) * time.Minute
}

// OTPTTL returns the one-time code lifetime.
func (c AuthConfig) OTPTTL() time.Duration {
	return time.Duration(c.OTPTTLSec) * time.Second
}
