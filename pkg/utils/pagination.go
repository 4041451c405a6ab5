package utils

import (
	"context"
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"

	"github.com/aldoetobex/legal-office-backend/pkg/database"
	"github.com/aldoetobex/legal-office-backend/pkg/models"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Page is a 1-based page number and a page size.
type Page struct {
	Page  int
	Limit int
}

// ParsePage reads ?page and ?limit. Out-of-range values fall back to defaults.
func ParsePage(c *fiber.Ctx) Page {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", strconv.Itoa(DefaultLimit)))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > MaxLimit {
		limit = DefaultLimit
	}
	return Page{Page: page, Limit: limit}
}

func (p Page) Offset() int { return (p.Page - 1) * p.Limit }

// Meta builds the pagination block for a response.
func (p Page) Meta(total int64) *models.Pagination {
	return &models.Pagination{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: TotalPages(total, p.Limit),
	}
}

// TotalPages is ceil(total/limit), 0 when there is nothing to show.
func TotalPages(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(limit)))
}

// ListQuery describes a paginated list: the SELECT and COUNT prefixes share
// one predicate set.
type ListQuery struct {
	Select  string // e.g. "SELECT c.* FROM clients c"
	Count   string // e.g. "SELECT COUNT(*) FROM clients c"
	Where   *Where
	OrderBy string
}

// Paginate runs the page query and its COUNT concurrently. The returned
// slice is never nil.
func Paginate[T any](ctx context.Context, pool *database.Pool, q ListQuery, p Page) ([]T, int64, error) {
	w := q.Where
	if w == nil {
		w = NewWhere()
	}

	rows := make([]T, 0, p.Limit)
	var total int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sql := q.Select + w.SQL()
		if q.OrderBy != "" {
			sql += " ORDER BY " + q.OrderBy
		}
		sql += " LIMIT ? OFFSET ?"
		return pool.Query(gctx, &rows, sql, append(w.Args(), p.Limit, p.Offset())...)
	})
	g.Go(func() error {
		return pool.Query(gctx, &total, q.Count+w.SQL(), w.Args()...)
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	if rows == nil {
		rows = []T{}
	}
	return rows, total, nil
}
