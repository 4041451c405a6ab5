package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/aldoetobex/legal-office-backend/internal/logger"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// Config describes how to reach the database. URL, when set, is used as-is
// instead of composing a DSN from the individual fields.
type Config struct {
	Driver   string
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	Path     string // sqlite file
	PoolSize int
}

// DSN renders the driver-specific connection string.
func (c Config) DSN() (string, error) {
	if c.URL != "" {
		return c.URL, nil
	}
	switch c.Driver {
	case DriverPostgres, "":
		port := c.Port
		if port == 0 {
			port = 5432
		}
		ssl := c.SSLMode
		if ssl == "" {
			ssl = "disable"
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			c.Host, port, c.User, c.Password, c.Name, ssl), nil
	case DriverMySQL:
		port := c.Port
		if port == 0 {
			port = 3306
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
			c.User, c.Password, c.Host, port, c.Name), nil
	case DriverSQLite:
		if c.Path == "" {
			return "", fmt.Errorf("sqlite requires a database path")
		}
		return c.Path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", c.Driver)
	}
}

// Pool is the process-wide connection pool. Every query and transaction
// helper acquires a connection from it and returns it when done.
type Pool struct {
	db     *gorm.DB
	driver string
	log    *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// Open connects, sizes the pool and verifies the connection with a ping.
func Open(ctx context.Context, cfg Config) (*Pool, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	driver := cfg.Driver
	if driver == "" {
		driver = DriverPostgres
	}

	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverMySQL:
		dialector = mysql.New(mysql.Config{DSN: dsn, SkipInitializeWithVersion: true})
	case DriverSQLite:
		dialector = sqlite.Dialector{DriverName: "sqlite", DSN: dsn}
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	size := cfg.PoolSize
	if size <= 0 {
		size = 10
	}
	if driver == DriverSQLite {
		// a single writer avoids SQLITE_BUSY under concurrent handlers
		size = 1
	}
	sqlDB.SetMaxOpenConns(size)
	sqlDB.SetMaxIdleConns(min(size, 5))
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	p := New(db, driver)
	if err := p.Ping(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	p.log.Info("database connection established", "driver", driver, "pool_size", size)
	return p, nil
}

// New wraps an already opened gorm handle.
func New(db *gorm.DB, driver string) *Pool {
	return &Pool{db: db, driver: driver, log: logger.With("database")}
}

// Dialect returns the driver name (postgres, mysql, sqlite).
func (p *Pool) Dialect() string { return p.driver }

// ForUpdate is the row-lock suffix for a SELECT inside InTx. SQLite locks
// the whole database on write, so it gets none.
func (p *Pool) ForUpdate() string {
	if p.driver == DriverSQLite {
		return ""
	}
	return " FOR UPDATE"
}

// Ping checks that a connection can be acquired and used.
func (p *Pool) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// SQLStats reports database/sql pool counters.
func (p *Pool) SQLStats() sql.DBStats {
	sqlDB, err := p.db.DB()
	if err != nil {
		return sql.DBStats{}
	}
	return sqlDB.Stats()
}

// Close drains and closes the pool. Safe to call more than once.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() {
		sqlDB, err := p.db.DB()
		if err != nil {
			p.closeErr = err
			return
		}
		p.closeErr = sqlDB.Close()
		p.log.Info("database pool closed")
	})
	return p.closeErr
}

// CloseOnSignal closes the pool when the process receives SIGINT or SIGTERM,
// or when ctx is done.
func (p *Pool) CloseOnSignal(ctx context.Context) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigs)
		select {
		case s := <-sigs:
			p.log.Info("signal received, closing database pool", "signal", s.String())
		case <-ctx.Done():
		}
		_ = p.Close()
	}()
}
