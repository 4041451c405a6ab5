package database_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/aldoetobex/legal-office-backend/pkg/database"
	"github.com/aldoetobex/legal-office-backend/pkg/database/databasetest"
)

const insertClient = `INSERT INTO clients (id, name, email, phone, notes, created_at, updated_at)
VALUES (?, ?, ?, ?, '', ?, ?)`

func clientStmt(name, email string) database.Statement {
	now := time.Now().UTC()
	return database.Stmt(insertClient, uuid.NewString(), name, email, "555", now, now)
}

type clientRow struct {
	ID     string
	Name   string
	Email  string
	Status string
}

func countClients(t *testing.T, pool *database.Pool) int64 {
	t.Helper()
	var n int64
	require.NoError(t, pool.Query(context.Background(), &n, "SELECT COUNT(*) FROM clients"))
	return n
}

func TestConfig_DSN(t *testing.T) {
	t.Run("postgres default port", func(t *testing.T) {
		dsn, err := database.Config{Driver: "postgres", Host: "db", User: "u", Password: "p", Name: "n"}.DSN()
		require.NoError(t, err)
		assert.Contains(t, dsn, "host=db port=5432 user=u password=p dbname=n sslmode=disable")
	})
	t.Run("mysql parses time", func(t *testing.T) {
		dsn, err := database.Config{Driver: "mysql", Host: "db", User: "u", Password: "p", Name: "n"}.DSN()
		require.NoError(t, err)
		assert.Equal(t, "u:p@tcp(db:3306)/n?charset=utf8mb4&parseTime=true&loc=UTC", dsn)
	})
	t.Run("url wins", func(t *testing.T) {
		dsn, err := database.Config{Driver: "postgres", URL: "postgres://x", Host: "ignored"}.DSN()
		require.NoError(t, err)
		assert.Equal(t, "postgres://x", dsn)
	})
	t.Run("sqlite needs path", func(t *testing.T) {
		_, err := database.Config{Driver: "sqlite"}.DSN()
		assert.Error(t, err)
	})
	t.Run("unknown driver", func(t *testing.T) {
		_, err := database.Config{Driver: "oracle"}.DSN()
		assert.Error(t, err)
	})
}

func TestPool_MigratesSchema(t *testing.T) {
	pool := databasetest.New(t)

	v, err := pool.MigrationVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	assert.Equal(t, database.DriverSQLite, pool.Dialect())

	// running again is a no-op
	require.NoError(t, pool.Migrate(context.Background()))
}

func TestQueryAndExec(t *testing.T) {
	pool := databasetest.New(t)
	ctx := context.Background()

	s := clientStmt("Alice", "alice@x.com")
	res, err := pool.Exec(ctx, s.SQL, s.Args...)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.RowsAffected)

	var rows []clientRow
	require.NoError(t, pool.Query(ctx, &rows, "SELECT id, name, email, status FROM clients WHERE email = ?", "alice@x.com"))
	require.Len(t, rows, 1)
	assert.Equal(t, "Alice", rows[0].Name)
	assert.Equal(t, "ACTIVE", rows[0].Status)

	var one clientRow
	require.NoError(t, pool.Get(ctx, &one, "SELECT id, name, email, status FROM clients WHERE id = ?", rows[0].ID))
	assert.Equal(t, rows[0].ID, one.ID)

	err = pool.Get(ctx, &one, "SELECT id FROM clients WHERE id = ?", "missing")
	assert.True(t, database.IsNotFound(err))

	ok, err := pool.Exists(ctx, "SELECT id FROM clients WHERE email = ?", "alice@x.com")
	require.NoError(t, err)
	assert.True(t, ok)

	res, err = pool.Exec(ctx, "DELETE FROM clients WHERE id = ?", "missing")
	require.NoError(t, err)
	assert.Zero(t, res.RowsAffected)
}

func TestExec_UniqueViolation(t *testing.T) {
	pool := databasetest.New(t)
	ctx := context.Background()

	first := clientStmt("A", "dup@x.com")
	_, err := pool.Exec(ctx, first.SQL, first.Args...)
	require.NoError(t, err)

	second := clientStmt("B", "dup@x.com")
	_, err = pool.Exec(ctx, second.SQL, second.Args...)
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err))
}

func TestTransaction(t *testing.T) {
	t.Run("commits every statement", func(t *testing.T) {
		pool := databasetest.New(t)

		results, err := pool.Transaction(context.Background(),
			clientStmt("A", "a@x.com"),
			clientStmt("B", "b@x.com"),
			database.Stmt("UPDATE clients SET status = ? WHERE email = ?", "INACTIVE", "b@x.com"),
		)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, int64(1), results[2].RowsAffected)
		assert.Equal(t, int64(2), countClients(t, pool))
	})

	t.Run("rolls back and returns the original error", func(t *testing.T) {
		pool := databasetest.New(t)

		results, err := pool.Transaction(context.Background(),
			clientStmt("A", "same@x.com"),
			clientStmt("B", "same@x.com"),
		)
		require.Error(t, err)
		assert.Nil(t, results)

		var stmtErr *database.StatementError
		require.True(t, errors.As(err, &stmtErr))
		assert.Equal(t, 1, stmtErr.Index)
		assert.True(t, database.IsUniqueViolation(err))
		assert.Zero(t, countClients(t, pool))
	})
}

func TestInTx(t *testing.T) {
	pool := databasetest.New(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := pool.InTx(ctx, func(tx *database.Pool) error {
		s := clientStmt("A", "a@x.com")
		if _, err := tx.Exec(ctx, s.SQL, s.Args...); err != nil {
			return err
		}
		var n int64
		if err := tx.Query(ctx, &n, "SELECT COUNT(*) FROM clients"); err != nil {
			return err
		}
		if n != 1 {
			return fmt.Errorf("expected row visible inside tx, got %d", n)
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, countClients(t, pool))

	err = pool.InTx(ctx, func(tx *database.Pool) error {
		s := clientStmt("A", "a@x.com")
		_, err := tx.Exec(ctx, s.SQL, s.Args...)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), countClients(t, pool))
}

func TestStats(t *testing.T) {
	pool := databasetest.New(t)
	ctx := context.Background()

	_, err := pool.Transaction(ctx, clientStmt("A", "a@x.com"), clientStmt("B", "b@x.com"))
	require.NoError(t, err)

	stats, err := pool.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Clients)
	assert.Zero(t, stats.Cases)
	assert.Zero(t, stats.Lawyers)
}

func TestClose_Idempotent(t *testing.T) {
	pool := databasetest.New(t)
	require.NoError(t, pool.Close())
	require.NoError(t, pool.Close())
	assert.Error(t, pool.Ping(context.Background()))
}

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm translated", gorm.ErrDuplicatedKey, true},
		{"postgres", &pgconn.PgError{Code: "23505"}, true},
		{"postgres other", &pgconn.PgError{Code: "23503"}, false},
		{"mysql", &mysql.MySQLError{Number: 1062}, true},
		{"mysql other", &mysql.MySQLError{Number: 1452}, false},
		{"sqlite text", errors.New("constraint failed: UNIQUE constraint failed: clients.email (2067)"), true},
		{"wrapped", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"other", errors.New("connection reset"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, database.IsUniqueViolation(tc.err))
		})
	}
}
