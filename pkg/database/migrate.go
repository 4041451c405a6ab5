package database

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// goose keeps dialect and base FS in package globals.
var gooseMu sync.Mutex

func (p *Pool) gooseDialect() string {
	switch p.driver {
	case DriverMySQL:
		return "mysql"
	case DriverSQLite:
		return "sqlite3"
	default:
		return "postgres"
	}
}

func (p *Pool) prepareGoose() error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(gooseLogger{log: p.log})
	return goose.SetDialect(p.gooseDialect())
}

// Migrate applies every pending migration.
func (p *Pool) Migrate(ctx context.Context) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	if err := p.prepareGoose(); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, sqlDB, "migrations"); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// MigrationVersion returns the currently applied schema version.
func (p *Pool) MigrationVersion(ctx context.Context) (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	sqlDB, err := p.db.DB()
	if err != nil {
		return 0, err
	}
	if err := p.prepareGoose(); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, sqlDB)
}

// MigrationStatus logs applied and pending migrations.
func (p *Pool) MigrationStatus(ctx context.Context) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	if err := p.prepareGoose(); err != nil {
		return err
	}
	return goose.StatusContext(ctx, sqlDB, "migrations")
}

type gooseLogger struct{ log *slog.Logger }

func (l gooseLogger) Printf(format string, v ...any) {
	l.log.Info(strings.TrimSpace(fmt.Sprintf(format, v...)), "source", "goose")
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.log.Error(fmt.Sprintf(format, v...), "source", "goose")
	panic(fmt.Sprintf(format, v...))
}
