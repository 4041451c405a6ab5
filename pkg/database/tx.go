package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Statement is one parameterized write inside a transaction.
type Statement struct {
	SQL  string
	Args []any
}

// Stmt is a shorthand constructor for Statement.
func Stmt(sql string, args ...any) Statement {
	return Statement{SQL: sql, Args: args}
}

// StatementError wraps the original failure with the position of the
// statement that caused the rollback.
type StatementError struct {
	Index int
	SQL   string
	Err   error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("statement %d failed: %v", e.Index, e.Err)
}

func (e *StatementError) Unwrap() error { return e.Err }

// Transaction executes stmts in order on a single connection. It commits
// when all succeed; otherwise it rolls back and returns the first error.
// No partial results are returned on failure.
func (p *Pool) Transaction(ctx context.Context, stmts ...Statement) ([]Result, error) {
	results := make([]Result, 0, len(stmts))
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, s := range stmts {
			res := tx.Exec(s.SQL, s.Args...)
			if res.Error != nil {
				return &StatementError{Index: i, SQL: s.SQL, Err: res.Error}
			}
			results = append(results, Result{RowsAffected: res.RowsAffected})
		}
		return nil
	})
	if err != nil {
		p.log.Error("transaction rolled back", "error", err)
		return nil, err
	}
	return results, nil
}

// InTx runs fn with a Pool bound to one transaction. Returning an error
// from fn rolls back; the error is returned unchanged. fn must only use the
// Pool it is given.
func (p *Pool) InTx(ctx context.Context, fn func(tx *Pool) error) error {
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Pool{db: tx, driver: p.driver, log: p.log})
	})
	if err != nil {
		p.log.Debug("transaction rolled back", "error", err)
	}
	return err
}
