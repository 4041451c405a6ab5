package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/aldoetobex/legal-office-backend/pkg/database"
)

const devJWTSecret = "dev-only-change-me"

type Config struct {
	Env      string
	Port     string
	LogLevel string
	LogFmt   string

	Database database.Config

	JWTSecret string

	UploadDir      string
	UploadMaxBytes int64
	Storage        StorageConfig

	RedisURL string
	CacheTTL time.Duration
}

type StorageConfig struct {
	Driver          string // local | s3
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// IsProduction reports whether cookies should be marked Secure.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// IsDevelopment reports whether the development fallbacks may be used.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "3000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")

	v.SetDefault("DB_DRIVER", database.DriverPostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 0)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "legal_office")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_PATH", "legal_office.db")
	v.SetDefault("DB_POOL_SIZE", 10)
	v.SetDefault("DATABASE_URL", "")

	v.SetDefault("JWT_SECRET", "")

	v.SetDefault("UPLOAD_DIR", "public/uploads")
	v.SetDefault("UPLOAD_MAX_BYTES", 10<<20)
	v.SetDefault("STORAGE_DRIVER", "local")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_ACCESS_KEY_ID", "")
	v.SetDefault("S3_SECRET_ACCESS_KEY", "")

	v.SetDefault("REDIS_URL", "")
	v.SetDefault("CACHE_TTL", "5m")
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env:      v.GetString("APP_ENV"),
		Port:     v.GetString("PORT"),
		LogLevel: v.GetString("LOG_LEVEL"),
		LogFmt:   v.GetString("LOG_FORMAT"),
		Database: database.Config{
			Driver:   strings.ToLower(v.GetString("DB_DRIVER")),
			URL:      v.GetString("DATABASE_URL"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
			Path:     v.GetString("DB_PATH"),
			PoolSize: v.GetInt("DB_POOL_SIZE"),
		},
		JWTSecret:      v.GetString("JWT_SECRET"),
		UploadDir:      v.GetString("UPLOAD_DIR"),
		UploadMaxBytes: v.GetInt64("UPLOAD_MAX_BYTES"),
		Storage: StorageConfig{
			Driver:          strings.ToLower(v.GetString("STORAGE_DRIVER")),
			Bucket:          v.GetString("S3_BUCKET"),
			Region:          v.GetString("S3_REGION"),
			Endpoint:        v.GetString("S3_ENDPOINT"),
			AccessKeyID:     v.GetString("S3_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("S3_SECRET_ACCESS_KEY"),
		},
		RedisURL: v.GetString("REDIS_URL"),
		CacheTTL: v.GetDuration("CACHE_TTL"),
	}

	if cfg.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			return nil, fmt.Errorf("JWT_SECRET is required when APP_ENV=%s", cfg.Env)
		}
		cfg.JWTSecret = devJWTSecret
	}
	switch cfg.Storage.Driver {
	case "local", "":
		cfg.Storage.Driver = "local"
	case "s3":
		if cfg.Storage.Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required when STORAGE_DRIVER=s3")
		}
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.Storage.Driver)
	}
	if cfg.UploadMaxBytes <= 0 {
		cfg.UploadMaxBytes = 10 << 20
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return cfg, nil
}

// UsesDevSecret reports whether the built-in development JWT secret is active.
func (c *Config) UsesDevSecret() bool { return c.JWTSecret == devJWTSecret }
