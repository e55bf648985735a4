package activity

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/simp-lee/qrpromo/internal/pkg"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(t *testing.T, guard gin.HandlerFunc) *gin.Engine {
	t.Helper()
	repo := NewRepository(setupTestDB(t))
	seed(t, repo, 7)

	svc := NewService(repo, 0, nil)
	m := NewModule(NewHandler(svc, pkg.PageLimits{Default: 5, Max: 20}), guard)

	r := gin.New()
	m.RegisterRoutes(r.Group("/api/v1"), r.Group(""))
	return r
}

func allow(c *gin.Context) { c.Next() }

func TestHandler_List(t *testing.T) {
	r := setupRouter(t, allow)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/activity?page=2&sort=created_at:asc", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", w.Code, w.Body.String())
	}
	var body struct {
		Code int `json:"code"`
		Data struct {
			Items []struct {
				ID string `json:"id"`
			} `json:"items"`
			Total      int `json:"total"`
			Page       int `json:"page"`
			PageSize   int `json:"page_size"`
			TotalPages int `json:"total_pages"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	d := body.Data
	if d.Total != 7 || d.Page != 2 || d.PageSize != 5 || d.TotalPages != 2 || len(d.Items) != 2 {
		t.Fatalf("data = %+v", d)
	}
	if d.Items[0].ID != "id-005" {
		t.Errorf("first item = %s; want id-005", d.Items[0].ID)
	}
}

func TestHandler_Guarded(t *testing.T) {
	deny := func(c *gin.Context) { c.AbortWithStatus(http.StatusUnauthorized) }
	r := setupRouter(t, deny)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/activity", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d; want 401", w.Code)
	}
}

func TestNewModule_PanicsOnNil(t *testing.T) {
	tests := []struct {
		name  string
		h     *Handler
		guard gin.HandlerFunc
	}{
		{"nil handler", nil, allow},
		{"nil guard", &Handler{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			NewModule(tt.h, tt.guard)
		})
	}
}
