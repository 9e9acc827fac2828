package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("CI", "false")
	t.Setenv("SECRETS_DIR", t.TempDir())
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_USER", "foodgram")
	t.Setenv("DB_PASSWORD", "postgres")
	t.Setenv("DB_NAME", "foodgram_test")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("CORS_ORIGINS", "http://a.example, http://b.example")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("PAGE_SIZE", "10")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "db", cfg.DBHost)
	assert.Equal(t, "5433", cfg.DBPort)
	assert.Equal(t, "foodgram", cfg.DBUser)
	assert.Equal(t, "postgres", cfg.DBPassword)
	assert.Equal(t, "foodgram_test", cfg.DBName)
	assert.Equal(t, "test-secret", cfg.JWTSecret)
	assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 10, cfg.PageSize)
}

func TestLoadConfigWithDefaults(t *testing.T) {
	t.Setenv("ENV", "test")
	t.Setenv("CI", "false")
	t.Setenv("SECRETS_DIR", t.TempDir())
	for _, key := range []string{"DB_HOST", "DB_PORT", "DB_NAME", "DB_DRIVER", "JWT_SECRET", "PAGE_SIZE", "TOKEN_TTL", "CORS_ORIGINS"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "localhost", cfg.DBHost)
	assert.Equal(t, "5432", cfg.DBPort)
	assert.Equal(t, "foodgram", cfg.DBName)
	assert.Equal(t, 6, cfg.PageSize)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, devJWTSecret, cfg.JWTSecret)
}

func TestLoadConfigReadsSecrets(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jwt_secret"), []byte("from-secret\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "db_password"), []byte("pg-secret"), 0o600))

	t.Setenv("ENV", "test")
	t.Setenv("CI", "false")
	t.Setenv("SECRETS_DIR", dir)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_PASSWORD", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-secret", cfg.JWTSecret)
	assert.Equal(t, "pg-secret", cfg.DBPassword)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db_driver: sqlite\nsqlite_path: /tmp/fg.db\npage_size: 3\n"), 0o600))

	t.Setenv("ENV", "test")
	t.Setenv("CI", "false")
	t.Setenv("SECRETS_DIR", t.TempDir())
	t.Setenv(ConfigFileEnvVar, path)
	t.Setenv("DB_DRIVER", "")
	os.Unsetenv("DB_DRIVER")
	t.Setenv("PAGE_SIZE", "")
	os.Unsetenv("PAGE_SIZE")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "/tmp/fg.db", cfg.SQLitePath)
	assert.Equal(t, 3, cfg.PageSize)
}

func TestValidateConfigProductionRequiresSecrets(t *testing.T) {
	cfg := defaultConfig()
	err := ValidateConfig(cfg, Production)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
	assert.Contains(t, err.Error(), "db_password")

	cfg.JWTSecret = "prod-secret"
	cfg.DBPassword = "pw"
	assert.NoError(t, ValidateConfig(cfg, Production))
}

func TestValidateConfigRejectsUnknownDriver(t *testing.T) {
	cfg := defaultConfig()
	cfg.DBDriver = "mysql"
	err := ValidateConfig(cfg, Development)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db_driver")
}
