// Package listquery filters, sorts and paginates in-memory record lists for
// the admin tables. A query is a pure function of its inputs: it never
// mutates the records it is given and keeps no state between calls, so the
// same engine serves any number of concurrent requests.
package listquery

import (
	"cmp"
	"math"
	"slices"
	"strconv"
	"strings"
)

// DefaultPageSize is used when Params.PageSize is not positive.
const DefaultPageSize = 10

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection parses "asc" or "desc" (case-insensitive).
func ParseDirection(s string) (Direction, bool) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Asc:
		return Asc, true
	case Desc:
		return Desc, true
	default:
		return "", false
	}
}

// Params is the caller-owned query state for one request.
type Params struct {
	Search   string
	Sort     string
	Dir      Direction
	PageSize int
	Page     int // 1-based
}

// Result is one rendered page plus pagination metadata.
type Result[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// HasPrev reports whether a previous page exists.
func (r Result[T]) HasPrev() bool { return r.Page > 1 }

// HasNext reports whether a next page exists.
func (r Result[T]) HasNext() bool { return r.Page < r.TotalPages }

// Query runs filter, sort and paginate over records. It always returns a
// result: an out-of-range page yields an empty Items slice, and an empty
// match set still reports one page.
func Query[T any](records []T, schema Schema[T], p Params) Result[T] {
	size := p.PageSize
	if size < 1 {
		size = DefaultPageSize
	}

	matched := Filter(records, schema, p.Search)
	Sort(matched, schema, p.Sort, p.Dir)

	return Result[T]{
		Items:      pageOf(matched, p.Page, size),
		Total:      len(matched),
		Page:       p.Page,
		PageSize:   size,
		TotalPages: totalPages(len(matched), size),
	}
}

// Filter returns a new slice holding the records that match term.
//
// An empty or blank term matches everything. A term equal to one of the
// schema keywords applies that keyword's predicate and nothing else; any
// other term is a case-insensitive substring match against the record's
// searchable fields joined by single spaces.
func Filter[T any](records []T, schema Schema[T], term string) []T {
	term = normalize(term)
	out := make([]T, 0, len(records))

	if term == "" {
		return append(out, records...)
	}

	if keep, ok := schema.Keywords[term]; ok {
		for _, r := range records {
			if keep(r) {
				out = append(out, r)
			}
		}
		return out
	}

	for _, r := range records {
		if strings.Contains(schema.haystack(r), term) {
			out = append(out, r)
		}
	}
	return out
}

// Sort orders records in place by the named field. The sort is stable in both
// directions. An unknown field leaves the order untouched.
func Sort[T any](records []T, schema Schema[T], field string, dir Direction) {
	f, ok := schema.Field(field)
	if !ok {
		return
	}

	compare := func(a, b T) int {
		if f.Numeric {
			return cmp.Compare(number(f.Value(a)), number(f.Value(b)))
		}
		return strings.Compare(strings.ToLower(f.Value(a)), strings.ToLower(f.Value(b)))
	}
	if dir == Desc {
		slices.SortStableFunc(records, func(a, b T) int { return -compare(a, b) })
		return
	}
	slices.SortStableFunc(records, compare)
}

func pageOf[T any](records []T, page, size int) []T {
	if page < 1 || page > (len(records)+size-1)/size {
		return []T{}
	}
	start := (page - 1) * size
	end := min(start+size, len(records))
	return slices.Clip(records[start:end])
}

func totalPages(n, size int) int {
	if n == 0 {
		return 1
	}
	return (n + size - 1) / size
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// number parses numeric field text; blank or malformed text counts as 0.
func number(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) {
		return 0
	}
	return f
}
