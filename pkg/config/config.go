package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Environment       string
	LogLevel          string
	LogFormat         string
	DatabaseURL       string
	JWTAlgorithm      string
	JWTSecret         string
	JWTPrivateKeyFile string
	JWTPublicKeyFile  string
	TokenTTL          time.Duration
	SessionFile       string
	RedisURL          string
	ServerPort        int
	LoginRateLimit    int
	OTLPEndpoint      string
}

// fileConfig is the optional YAML overlay. Environment variables win over it.
type fileConfig struct {
	Environment    string `yaml:"environment"`
	LogLevel       string `yaml:"log_level"`
	LogFormat      string `yaml:"log_format"`
	DatabaseURL    string `yaml:"database_url"`
	SessionFile    string `yaml:"session_file"`
	RedisURL       string `yaml:"redis_url"`
	ServerPort     int    `yaml:"server_port"`
	LoginRateLimit int    `yaml:"login_rate_limit"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	JWT            struct {
		Algorithm      string `yaml:"algorithm"`
		Secret         string `yaml:"secret"`
		PrivateKeyFile string `yaml:"private_key_file"`
		PublicKeyFile  string `yaml:"public_key_file"`
		TTLHours       int    `yaml:"ttl_hours"`
	} `yaml:"jwt"`
}

// Load reads configuration from the optional EVENTCRM_CONFIG YAML file and environment variables
func Load() (*Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (*Config, error) {
	var fc fileConfig
	if path := getenv("EVENTCRM_CONFIG"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &fc); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", path, err)
		}
	}

	env := func(key, fromFile, defaultValue string) string {
		if value := getenv(key); value != "" {
			return value
		}
		if fromFile != "" {
			return fromFile
		}
		return defaultValue
	}
	envInt := func(key string, fromFile, defaultValue int) (int, error) {
		if value := getenv(key); value != "" {
			n, err := strconv.Atoi(value)
			if err != nil {
				return 0, fmt.Errorf("invalid %s: %w", key, err)
			}
			return n, nil
		}
		if fromFile != 0 {
			return fromFile, nil
		}
		return defaultValue, nil
	}

	home := defaultHome()

	port, err := envInt("SERVER_PORT", fc.ServerPort, 8080)
	if err != nil {
		return nil, err
	}
	ttlHours, err := envInt("TOKEN_TTL_HOURS", fc.JWT.TTLHours, 24)
	if err != nil {
		return nil, err
	}
	if ttlHours <= 0 {
		return nil, fmt.Errorf("invalid TOKEN_TTL_HOURS: must be positive")
	}
	loginLimit, err := envInt("LOGIN_RATE_LIMIT", fc.LoginRateLimit, 10)
	if err != nil {
		return nil, err
	}

	return &Config{
		Environment:       env("ENVIRONMENT", fc.Environment, "development"),
		LogLevel:          env("LOG_LEVEL", fc.LogLevel, "warn"),
		LogFormat:         env("LOG_FORMAT", fc.LogFormat, "json"),
		DatabaseURL:       env("DATABASE_URL", fc.DatabaseURL, filepath.Join(home, "crm.db")),
		JWTAlgorithm:      strings.ToUpper(env("JWT_ALGORITHM", fc.JWT.Algorithm, "HS256")),
		JWTSecret:         env("JWT_SECRET", fc.JWT.Secret, ""),
		JWTPrivateKeyFile: env("JWT_PRIVATE_KEY_FILE", fc.JWT.PrivateKeyFile, ""),
		JWTPublicKeyFile:  env("JWT_PUBLIC_KEY_FILE", fc.JWT.PublicKeyFile, ""),
		TokenTTL:          time.Duration(ttlHours) * time.Hour,
		SessionFile:       env("SESSION_FILE", fc.SessionFile, filepath.Join(home, "session.json")),
		RedisURL:          env("REDIS_URL", fc.RedisURL, ""),
		ServerPort:        port,
		LoginRateLimit:    loginLimit,
		OTLPEndpoint:      env("OTEL_EXPORTER_OTLP_ENDPOINT", fc.OTLPEndpoint, ""),
	}, nil
}

// ReadKeys loads the PEM key files named in the configuration. Missing names yield nil slices.
func (c *Config) ReadKeys() (private, public []byte, err error) {
	if c.JWTPrivateKeyFile != "" {
		if private, err = os.ReadFile(c.JWTPrivateKeyFile); err != nil {
			return nil, nil, fmt.Errorf("failed to read JWT private key: %w", err)
		}
	}
	if c.JWTPublicKeyFile != "" {
		if public, err = os.ReadFile(c.JWTPublicKeyFile); err != nil {
			return nil, nil, fmt.Errorf("failed to read JWT public key: %w", err)
		}
	}
	return private, public, nil
}

// IsDevelopment reports whether the environment is development.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// defaultHome is ~/.eventcrm, or ./.eventcrm when the home directory is unknown.
func defaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".eventcrm"
	}
	return filepath.Join(home, ".eventcrm")
}
