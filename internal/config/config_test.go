package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aldoetobex/legal-office-backend/pkg/database"
)

func TestDefaults(t *testing.T) {
	cfg, err := FromViper(newViper())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, database.DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "local", cfg.Storage.Driver)
	assert.Equal(t, int64(10<<20), cfg.UploadMaxBytes)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.True(t, cfg.UsesDevSecret())
	assert.False(t, cfg.IsProduction())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("DB_PATH", "/tmp/office.db")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("UPLOAD_MAX_BYTES", "2048")

	cfg, err := FromViper(newViper())
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, database.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "/tmp/office.db", cfg.Database.Path)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.False(t, cfg.UsesDevSecret())
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, int64(2048), cfg.UploadMaxBytes)
}

func TestSecretRequiredOutsideDevelopment(t *testing.T) {
	for _, env := range []string{"staging", "test", "Production"} {
		t.Setenv("APP_ENV", env)
		_, err := FromViper(newViper())
		assert.ErrorContains(t, err, "JWT_SECRET", env)
	}

	t.Setenv("APP_ENV", "Development")
	cfg, err := FromViper(newViper())
	require.NoError(t, err)
	assert.True(t, cfg.UsesDevSecret())
}

func TestProductionRequiresSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	_, err := FromViper(newViper())
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "prod-secret")
	cfg, err := FromViper(newViper())
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestStorageDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "s3")
	_, err := FromViper(newViper())
	assert.ErrorContains(t, err, "S3_BUCKET")

	t.Setenv("S3_BUCKET", "office-docs")
	cfg, err := FromViper(newViper())
	require.NoError(t, err)
	assert.Equal(t, "s3", cfg.Storage.Driver)
	assert.Equal(t, "us-east-1", cfg.Storage.Region)

	t.Setenv("STORAGE_DRIVER", "ftp")
	_, err = FromViper(newViper())
	assert.Error(t, err)
}
