package pkg

import (
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/simp-lee/qrpromo/internal/listquery"
)

const (
	defaultPage     = 1
	defaultPageSize = listquery.DefaultPageSize
	maxPageSize     = 100
)

// validFieldName matches only alphanumeric characters and underscores.
var validFieldName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PageLimits bounds the page_size query parameter. Zero values fall back to
// the package defaults.
type PageLimits struct {
	Default int
	Max     int
}

func (l PageLimits) normalized() PageLimits {
	if l.Default < 1 {
		l.Default = defaultPageSize
	}
	if l.Max < 1 {
		l.Max = maxPageSize
	}
	if l.Default > l.Max {
		l.Default = l.Max
	}
	return l
}

// ParseQueryParams reads q, sort, dir, page and page_size from the query
// string. sort is either "field" or "field:dir"; a separate dir parameter
// overrides the direction. Sort fields outside sortable fall back to
// defaultSort.
func ParseQueryParams(c *gin.Context, sortable []string, defaultSort string, defaultDir listquery.Direction, limits PageLimits) listquery.Params {
	limits = limits.normalized()

	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(defaultPage)))
	if page < 1 {
		page = defaultPage
	}

	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(limits.Default)))
	if pageSize < 1 {
		pageSize = limits.Default
	}
	if pageSize > limits.Max {
		pageSize = limits.Max
	}

	field, dir := defaultSort, defaultDir
	if raw := strings.TrimSpace(c.Query("sort")); raw != "" {
		name, rawDir, hasDir := strings.Cut(raw, ":")
		name = strings.TrimSpace(name)
		if validFieldName.MatchString(name) && isAllowed(name, sortable) {
			field = name
			if hasDir {
				if d, ok := listquery.ParseDirection(rawDir); ok {
					dir = d
				}
			}
		}
	}
	if d, ok := listquery.ParseDirection(c.Query("dir")); ok {
		dir = d
	}

	return listquery.Params{
		Search:   strings.TrimSpace(c.Query("q")),
		Sort:     field,
		Dir:      dir,
		PageSize: pageSize,
		Page:     page,
	}
}

// EncodeQueryParams is the inverse of ParseQueryParams. Empty search terms
// are omitted.
func EncodeQueryParams(p listquery.Params) url.Values {
	v := url.Values{}
	if p.Search != "" {
		v.Set("q", p.Search)
	}
	if p.Sort != "" {
		v.Set("sort", p.Sort+":"+string(p.Dir))
	}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(p.PageSize))
	}
	return v
}

// Paginate returns a GORM scope that applies LIMIT and OFFSET based on p.
func Paginate(p listquery.Params) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		page, size := p.Page, p.PageSize
		if page < 1 {
			page = defaultPage
		}
		if size < 1 {
			size = defaultPageSize
		}
		return db.Offset((page - 1) * size).Limit(size)
	}
}

// Sort returns a GORM scope that applies ORDER BY based on p.
// Only field names present in the allowed list are accepted; others are silently ignored.
// Field names are validated against a strict pattern to prevent SQL injection.
func Sort(p listquery.Params, allowed []string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		field := strings.TrimSpace(p.Sort)
		dir, ok := listquery.ParseDirection(string(p.Dir))
		if !ok {
			return db
		}
		if !validFieldName.MatchString(field) || !isAllowed(field, allowed) {
			return db
		}
		return db.Order(field + " " + string(dir))
	}
}

// NewResult wraps one database page in a listquery.Result so SQL-backed and
// in-memory lists render through the same templates.
func NewResult[T any](items []T, total int64, p listquery.Params) listquery.Result[T] {
	if items == nil {
		items = []T{}
	}
	size := p.PageSize
	if size < 1 {
		size = defaultPageSize
	}
	pages := 1
	if total > 0 {
		pages = int((total + int64(size) - 1) / int64(size))
	}
	return listquery.Result[T]{
		Items:      items,
		Total:      int(total),
		Page:       p.Page,
		PageSize:   size,
		TotalPages: pages,
	}
}

// isAllowed checks if a field name is in the allowed list.
func isAllowed(field string, allowed []string) bool {
	return slices.Contains(allowed, field)
}
