package pkg

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	dbtest "gorm.io/gorm/utils/tests"

	"github.com/simp-lee/qrpromo/internal/listquery"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testSortable = []string{"name", "claimed_at", "total_scans"}

func newTestContext(queryParams url.Values) *gin.Context {
	req := httptest.NewRequest(http.MethodGet, "/?"+queryParams.Encode(), nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c
}

func parse(q url.Values, limits PageLimits) listquery.Params {
	return ParseQueryParams(newTestContext(q), testSortable, "claimed_at", listquery.Desc, limits)
}

func TestParseQueryParams_Defaults(t *testing.T) {
	p := parse(url.Values{}, PageLimits{})

	if p.Page != 1 {
		t.Errorf("expected Page=1, got %d", p.Page)
	}
	if p.PageSize != 10 {
		t.Errorf("expected PageSize=10, got %d", p.PageSize)
	}
	if p.Sort != "claimed_at" || p.Dir != listquery.Desc {
		t.Errorf("expected claimed_at desc, got %s %s", p.Sort, p.Dir)
	}
	if p.Search != "" {
		t.Errorf("expected empty Search, got %q", p.Search)
	}
}

func TestParseQueryParams_CustomValues(t *testing.T) {
	p := parse(url.Values{
		"q":         {"  Maria "},
		"page":      {"3"},
		"page_size": {"50"},
		"sort":      {"name:asc"},
	}, PageLimits{})

	if p.Search != "Maria" {
		t.Errorf("expected Search=Maria, got %q", p.Search)
	}
	if p.Page != 3 {
		t.Errorf("expected Page=3, got %d", p.Page)
	}
	if p.PageSize != 50 {
		t.Errorf("expected PageSize=50, got %d", p.PageSize)
	}
	if p.Sort != "name" || p.Dir != listquery.Asc {
		t.Errorf("expected name asc, got %s %s", p.Sort, p.Dir)
	}
}

func TestParseQueryParams_Sort(t *testing.T) {
	tests := []struct {
		name     string
		query    url.Values
		wantSort string
		wantDir  listquery.Direction
	}{
		{"field only keeps default dir", url.Values{"sort": {"name"}}, "name", listquery.Desc},
		{"dir param", url.Values{"sort": {"name"}, "dir": {"asc"}}, "name", listquery.Asc},
		{"dir param overrides suffix", url.Values{"sort": {"name:asc"}, "dir": {"desc"}}, "name", listquery.Desc},
		{"dir param alone", url.Values{"dir": {"ASC"}}, "claimed_at", listquery.Asc},
		{"unknown field", url.Values{"sort": {"password:asc"}}, "claimed_at", listquery.Desc},
		{"invalid direction", url.Values{"sort": {"name:up"}}, "name", listquery.Desc},
		{"sql injection", url.Values{"sort": {"name;DROP TABLE--:asc"}}, "claimed_at", listquery.Desc},
		{"empty field", url.Values{"sort": {":asc"}}, "claimed_at", listquery.Desc},
		{"invalid dir param ignored", url.Values{"sort": {"total_scans:asc"}, "dir": {"sideways"}}, "total_scans", listquery.Asc},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := parse(tt.query, PageLimits{})
			if p.Sort != tt.wantSort || p.Dir != tt.wantDir {
				t.Errorf("got %s %s; want %s %s", p.Sort, p.Dir, tt.wantSort, tt.wantDir)
			}
		})
	}
}

func TestParseQueryParams_Clamping(t *testing.T) {
	limits := PageLimits{Default: 20, Max: 50}

	tests := []struct {
		name     string
		query    url.Values
		wantPage int
		wantSize int
	}{
		{"page below minimum", url.Values{"page": {"0"}}, 1, 20},
		{"negative page", url.Values{"page": {"-5"}}, 1, 20},
		{"invalid page", url.Values{"page": {"two"}}, 1, 20},
		{"page_size below minimum", url.Values{"page_size": {"0"}}, 1, 20},
		{"negative page_size", url.Values{"page_size": {"-5"}}, 1, 20},
		{"page_size above maximum", url.Values{"page_size": {"200"}}, 1, 50},
		{"invalid page_size defaults", url.Values{"page_size": {"abc"}}, 1, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := parse(tt.query, limits)
			if p.Page != tt.wantPage {
				t.Errorf("expected Page=%d, got %d", tt.wantPage, p.Page)
			}
			if p.PageSize != tt.wantSize {
				t.Errorf("expected PageSize=%d, got %d", tt.wantSize, p.PageSize)
			}
		})
	}
}

func TestPageLimits_Normalized(t *testing.T) {
	tests := []struct {
		in   PageLimits
		want PageLimits
	}{
		{PageLimits{}, PageLimits{Default: 10, Max: 100}},
		{PageLimits{Default: 25, Max: 10}, PageLimits{Default: 10, Max: 10}},
		{PageLimits{Default: 5, Max: 0}, PageLimits{Default: 5, Max: 100}},
	}
	for _, tt := range tests {
		if got := tt.in.normalized(); got != tt.want {
			t.Errorf("%+v.normalized() = %+v; want %+v", tt.in, got, tt.want)
		}
	}
}

func TestEncodeQueryParams_RoundTrip(t *testing.T) {
	in := listquery.Params{Search: "lopez", Sort: "name", Dir: listquery.Asc, Page: 2, PageSize: 25}
	v := EncodeQueryParams(in)

	if v.Get("sort") != "name:asc" {
		t.Errorf("sort = %q; want name:asc", v.Get("sort"))
	}

	out := parse(v, PageLimits{})
	if out != in {
		t.Errorf("round trip = %+v; want %+v", out, in)
	}
}

func TestEncodeQueryParams_OmitsEmptySearch(t *testing.T) {
	v := EncodeQueryParams(listquery.Params{Sort: "name", Dir: listquery.Desc, Page: 1, PageSize: 10})
	if v.Has("q") {
		t.Error("expected q to be omitted")
	}
}

func TestNewResult(t *testing.T) {
	tests := []struct {
		name      string
		items     []string
		total     int64
		page      int
		pageSize  int
		wantPages int
		wantSize  int
	}{
		{"exact division", []string{"a", "b"}, 10, 1, 5, 2, 5},
		{"with remainder", []string{"a"}, 11, 3, 5, 3, 5},
		{"zero total is one page", nil, 0, 1, 20, 1, 20},
		{"single page", []string{"a", "b", "c"}, 3, 1, 20, 1, 20},
		{"zero page size uses default", []string{"a"}, 25, 1, 0, 3, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := listquery.Params{Page: tt.page, PageSize: tt.pageSize}
			result := NewResult(tt.items, tt.total, p)

			if result.TotalPages != tt.wantPages {
				t.Errorf("TotalPages: want %d, got %d", tt.wantPages, result.TotalPages)
			}
			if result.PageSize != tt.wantSize {
				t.Errorf("PageSize: want %d, got %d", tt.wantSize, result.PageSize)
			}
			if result.Total != int(tt.total) {
				t.Errorf("Total: want %d, got %d", tt.total, result.Total)
			}
			if result.Items == nil {
				t.Error("expected non-nil Items slice")
			}
		})
	}
}

func TestValidFieldName(t *testing.T) {
	valid := []string{"id", "name", "created_at", "user_name", "_private"}
	invalid := []string{"", "1field", "name;DROP", "field name", "a.b", "a-b"}

	for _, f := range valid {
		if !validFieldName.MatchString(f) {
			t.Errorf("expected %q to be valid", f)
		}
	}
	for _, f := range invalid {
		if validFieldName.MatchString(f) {
			t.Errorf("expected %q to be invalid", f)
		}
	}
}

// --------------- GORM scopes ---------------

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(dbtest.DummyDialector{}, &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	return db
}

func TestSort(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		dir     listquery.Direction
		allowed []string
		applied bool
	}{
		{"valid field asc", "name", listquery.Asc, []string{"name", "email"}, true},
		{"valid field desc", "created_at", listquery.Desc, []string{"created_at"}, true},
		{"field not in allowed list", "password", listquery.Asc, []string{"name"}, false},
		{"empty direction", "name", "", []string{"name"}, false},
		{"invalid direction", "name", "up", []string{"name"}, false},
		{"sql injection in field", "name;DROP TABLE users--", listquery.Asc, []string{"name;DROP TABLE users--"}, false},
		{"empty field", "", listquery.Asc, []string{""}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope := Sort(listquery.Params{Sort: tt.field, Dir: tt.dir}, tt.allowed)
			result := scope(newTestDB(t))
			_, hasOrder := result.Statement.Clauses["ORDER BY"]
			if hasOrder != tt.applied {
				t.Errorf("Order clause applied=%v, want %v", hasOrder, tt.applied)
			}
		})
	}
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name     string
		page     int
		pageSize int
	}{
		{"first page", 1, 10},
		{"second page", 2, 20},
		{"zero values", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope := Paginate(listquery.Params{Page: tt.page, PageSize: tt.pageSize})
			result := scope(newTestDB(t))
			if _, hasLimit := result.Statement.Clauses["LIMIT"]; !hasLimit {
				t.Error("expected LIMIT clause to be applied")
			}
		})
	}
}

func TestIsAllowed(t *testing.T) {
	allowed := []string{"name", "email", "status"}

	if !isAllowed("name", allowed) {
		t.Error("expected 'name' to be allowed")
	}
	if isAllowed("password", allowed) {
		t.Error("expected 'password' to not be allowed")
	}
	if isAllowed("", allowed) {
		t.Error("expected empty string to not be allowed")
	}
}
