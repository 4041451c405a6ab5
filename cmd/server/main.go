// @title           Legal Office API
// @version         1.0
// @description     API for a law office: lawyers manage clients, cases, appointments, documents, contracts and invoices.
// @contact.name    Aldo Rifki Putra
// @contact.email   aldoetobex@gmail.com
// @BasePath        /api
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
// @description     Format: Bearer <token>
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	_ "github.com/aldoetobex/legal-office-backend/docs"
	"github.com/aldoetobex/legal-office-backend/internal/cache"
	"github.com/aldoetobex/legal-office-backend/internal/config"
	"github.com/aldoetobex/legal-office-backend/internal/logger"
	"github.com/aldoetobex/legal-office-backend/internal/server"
	"github.com/aldoetobex/legal-office-backend/internal/storage"
	"github.com/aldoetobex/legal-office-backend/pkg/database"
)

const (
	shutdownTimeout = 10 * time.Second
	cacheKeyPrefix  = "legal-office:"
	objectKeyPrefix = "uploads"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "legal-office",
	Short: "Legal office backend",
	Long: `HTTP API for a law office.

Run without a subcommand to start the server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		logger.Init(cfg.LogLevel, cfg.LogFmt)
		return nil
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run migrations and start the HTTP server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database schema migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPool(cmd.Context(), func(ctx context.Context, pool *database.Pool) error {
			return pool.Migrate(ctx)
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPool(cmd.Context(), func(ctx context.Context, pool *database.Pool) error {
			return pool.MigrationStatus(ctx)
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print table row counts as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPool(cmd.Context(), func(ctx context.Context, pool *database.Pool) error {
			s, err := pool.Stats(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		})
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateStatusCmd)
	rootCmd.AddCommand(serveCmd, migrateCmd, statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withPool opens the database for a one-shot command.
func withPool(ctx context.Context, fn func(context.Context, *database.Pool) error) error {
	pool, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()
	pool.CloseOnSignal(ctx)
	return fn(ctx, pool)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.With("main")
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.UsesDevSecret() {
		log.Warn("JWT_SECRET is not set, using the development secret")
	}

	pool, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer pool.Close()
	if err := pool.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	var c cache.Cache = cache.Noop{}
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisURL, cacheKeyPrefix)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rc.Close()
		c = rc
		log.Info("redis cache enabled")
	}

	deps := server.Deps{Config: cfg, Pool: pool, Cache: c}
	switch cfg.Storage.Driver {
	case "s3":
		deps.Store = storage.NewS3(storage.S3Config{
			Bucket:          cfg.Storage.Bucket,
			Region:          cfg.Storage.Region,
			Endpoint:        cfg.Storage.Endpoint,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
		})
		deps.KeyPrefix = objectKeyPrefix
	default:
		local, err := storage.NewLocal(cfg.UploadDir, "/uploads")
		if err != nil {
			return fmt.Errorf("upload dir: %w", err)
		}
		deps.Store = local
		deps.StaticDir = local.Root()
	}

	app := server.New(deps)
	errc := make(chan error, 1)
	go func() {
		log.Info("server listening", "port", cfg.Port, "env", cfg.Env, "db", pool.Dialect(), "storage", cfg.Storage.Driver)
		errc <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(sctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
