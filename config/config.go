package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigFileEnvVar names the environment variable pointing at an optional YAML config file.
const ConfigFileEnvVar = "CONFIG_FILE"

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	ServerPort  string   `koanf:"server_port"`
	ServerHost  string   `koanf:"server_host"`
	CORSOrigins []string `koanf:"cors_origins"`
	LogLevel    string   `koanf:"log_level"`

	// Database configuration
	DBDriver   string `koanf:"db_driver"`
	DBHost     string `koanf:"db_host"`
	DBPort     string `koanf:"db_port"`
	DBUser     string `koanf:"db_user"`
	DBPassword string `koanf:"db_password"`
	DBName     string `koanf:"db_name"`
	DBSSLMode  string `koanf:"db_ssl_mode"`
	SQLitePath string `koanf:"sqlite_path"`

	// Redis configuration
	RedisURL      string `koanf:"redis_url"`
	RedisHost     string `koanf:"redis_host"`
	RedisPort     string `koanf:"redis_port"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// JWT configuration
	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`

	// Image storage
	S3BucketName string `koanf:"s3_bucket_name"`
	AWSRegion    string `koanf:"aws_region"`
	MediaRoot    string `koanf:"media_root"`
	MediaURL     string `koanf:"media_url"`

	// API behaviour
	PageSize              int `koanf:"page_size"`
	RecipeCreationPerHour int `koanf:"recipe_creation_per_hour"`
}

func defaultConfig() *Config {
	return &Config{
		ServerPort:            "8080",
		ServerHost:            "0.0.0.0",
		CORSOrigins:           []string{"http://localhost:3000", "http://localhost:5173"},
		LogLevel:              "info",
		DBDriver:              "postgres",
		DBHost:                "localhost",
		DBPort:                "5432",
		DBUser:                "postgres",
		DBName:                "foodgram",
		DBSSLMode:             "disable",
		SQLitePath:            "foodgram.db",
		RedisPort:             "6379",
		TokenTTL:              24 * time.Hour,
		MediaRoot:             "media",
		MediaURL:              "/media",
		PageSize:              6,
		RecipeCreationPerHour: 30,
	}
}

// LoadConfig builds the configuration from defaults, an optional YAML file, the
// environment, and finally Docker secrets for sensitive values left empty.
func LoadConfig() (*Config, error) {
	envName := GetEnvironment()
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := os.Getenv(ConfigFileEnvVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := splitList(k, "cors_origins"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	loadSecrets(cfg)

	if err := ValidateConfig(cfg, envName); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// DSN returns the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

// splitList turns a comma separated env value into a slice.
func splitList(k *koanf.Koanf, path string) error {
	raw, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if err := k.Set(path, out); err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	return nil
}

// loadSecrets fills sensitive values from Docker secrets when the environment left them empty
func loadSecrets(cfg *Config) {
	if cfg.DBPassword == "" {
		cfg.DBPassword = readSecret("db_password")
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = readSecret("jwt_secret")
	}
	if cfg.RedisPassword == "" {
		cfg.RedisPassword = readSecret("redis_password")
	}
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	secretPath := filepath.Join(secretsDir, name)
	if data, err := os.ReadFile(secretPath); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}
