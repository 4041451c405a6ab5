package utils

import (
	"strings"
)

// Where accumulates optional predicates and their bound parameters for a
// list query. Filters with an empty value are skipped.
type Where struct {
	clauses []string
	args    []any
}

// NewWhere returns an empty predicate set.
func NewWhere() *Where { return &Where{} }

// Add appends a raw predicate with its parameters.
func (w *Where) Add(clause string, args ...any) *Where {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
	return w
}

// Eq adds "col = ?" unless val is empty or "all".
func (w *Where) Eq(col, val string) *Where {
	val = strings.TrimSpace(val)
	if val == "" || strings.EqualFold(val, "all") {
		return w
	}
	return w.Add(col+" = ?", val)
}

// Search adds a case-insensitive substring match over cols, OR-ed together.
func (w *Where) Search(term string, cols ...string) *Where {
	term = strings.TrimSpace(term)
	if term == "" || len(cols) == 0 {
		return w
	}
	pattern := LikePattern(term)
	parts := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		parts[i] = "LOWER(" + col + ") LIKE ? ESCAPE '!'"
		args[i] = pattern
	}
	return w.Add("("+strings.Join(parts, " OR ")+")", args...)
}

// SQL renders " WHERE ..." or an empty string.
func (w *Where) SQL() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// Args returns the bound parameters in clause order.
func (w *Where) Args() []any {
	out := make([]any, len(w.args))
	copy(out, w.args)
	return out
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// LikePattern lowercases term, escapes LIKE wildcards with '!' and wraps it
// in % for a substring match.
func LikePattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}
