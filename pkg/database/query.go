package database

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the statement yields no row.
var ErrNotFound = errors.New("record not found")

// Result reports the effect of a write statement.
type Result struct {
	RowsAffected int64
}

// Query runs a parameterized SELECT and scans every row into dest, which
// must be a pointer to a slice, struct or scalar. Placeholders are written
// as ? and rebound for the active dialect.
func (p *Pool) Query(ctx context.Context, dest any, sql string, args ...any) error {
	if err := p.db.WithContext(ctx).Raw(sql, args...).Scan(dest).Error; err != nil {
		p.log.Error("query failed", "sql", sql, "error", err)
		return err
	}
	return nil
}

// Get is Query for a single row. It returns ErrNotFound when nothing matched.
func (p *Pool) Get(ctx context.Context, dest any, sql string, args ...any) error {
	res := p.db.WithContext(ctx).Raw(sql, args...).Scan(dest)
	if res.Error != nil {
		p.log.Error("query failed", "sql", sql, "error", res.Error)
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Exists reports whether the statement returns at least one row.
func (p *Pool) Exists(ctx context.Context, sql string, args ...any) (bool, error) {
	var n int64
	if err := p.Query(ctx, &n, "SELECT COUNT(*) FROM ("+sql+") AS sub", args...); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Exec runs a write statement.
func (p *Pool) Exec(ctx context.Context, sql string, args ...any) (Result, error) {
	res := p.db.WithContext(ctx).Exec(sql, args...)
	if res.Error != nil {
		p.log.Error("statement failed", "sql", sql, "error", res.Error)
		return Result{}, res.Error
	}
	return Result{RowsAffected: res.RowsAffected}, nil
}
