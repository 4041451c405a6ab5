package database

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Stats holds row counts for the main tables.
type Stats struct {
	Lawyers      int64 `json:"lawyers"`
	Clients      int64 `json:"clients"`
	Cases        int64 `json:"cases"`
	Appointments int64 `json:"appointments"`
	Contracts    int64 `json:"contracts"`
	Invoices     int64 `json:"invoices"`
	Documents    int64 `json:"documents"`
}

// Stats counts rows in every main table concurrently.
func (p *Pool) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	counts := []struct {
		table string
		dst   *int64
	}{
		{"lawyers", &s.Lawyers},
		{"clients", &s.Clients},
		{"cases", &s.Cases},
		{"appointments", &s.Appointments},
		{"contracts", &s.Contracts},
		{"invoices", &s.Invoices},
		{"documents", &s.Documents},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range counts {
		g.Go(func() error {
			return p.Query(gctx, c.dst, "SELECT COUNT(*) FROM "+c.table)
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	return s, nil
}
