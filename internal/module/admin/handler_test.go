package admin

import (
	"encoding/json"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/simp-lee/qrpromo/internal/domain"
	"github.com/simp-lee/qrpromo/internal/middleware"
	"github.com/simp-lee/qrpromo/internal/pkg"
	"github.com/simp-lee/qrpromo/internal/session"
)

var fixedNow = time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)

const testTemplates = `{{define "admin/dashboard.html"}}dash|{{.Dashboard.Panel}}|{{with .Dashboard.Reports}}{{.WinnersTotal}}{{end}}|{{with .Dashboard.Winners}}{{len .Items}}/{{.Total}}{{end}}{{with .Dashboard.QRCodes}}{{len .Items}}/{{.Total}}{{end}}|{{len .Dashboard.Activity}}|{{.Error}}|{{.Admin}}{{end}}` +
	`{{define "admin/winners_table.html"}}winners|{{range .Winners.Items}}{{.WinnerID}},{{end}}|{{.Params.Sort}}:{{.Params.Dir}}{{end}}` +
	`{{define "admin/qrcodes_table.html"}}codes|{{range .QRCodes.Items}}{{.QRCodeID}},{{end}}{{end}}` +
	`{{define "admin/create.html"}}create|{{.Form.PrizeType}}|{{.Form.Count}}|{{.Message}}|{{.Error}}{{end}}` +
	`{{define "admin/update.html"}}update|{{.Form.QRCodeID}}|{{.Form.PrizeType}}|{{.Message}}|{{.Error}}{{end}}`

type testEnv struct {
	router   *gin.Engine
	sessions *session.Manager
	backend  *fakeBackend
	feed     *fakeFeed
	cookie   *http.Cookie
}

func setupTestEnv(t *testing.T, fb *fakeBackend) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sessions, err := session.NewManager("0123456789abcdef0123456789abcdef", "sid", time.Hour,
		session.WithClock(func() time.Time { return fixedNow }))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	value, err := sessions.Seal(&session.Session{Token: "tok", Email: "ops@example.com", ExpiresAt: fixedNow.Add(time.Hour)})
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	feed := &fakeFeed{entries: []domain.Activity{{ID: "a1", Action: domain.ActionLogin}}}
	svc := NewService(fb, feed, 0)
	limits := pkg.PageLimits{Default: 10, Max: 50}

	r := gin.New()
	r.SetHTMLTemplate(template.Must(template.New("").Parse(testTemplates)))
	NewModule(
		NewHandler(svc, sessions, limits),
		NewPageHandler(svc, sessions, limits, time.FixedZone("CST", -6*3600)),
		middleware.RequireSession(sessions, true),
		middleware.RequireSession(sessions, false),
	).RegisterRoutes(r.Group("/api/v1"), r.Group(""))

	return &testEnv{
		router:   r,
		sessions: sessions,
		backend:  fb,
		feed:     feed,
		cookie:   &http.Cookie{Name: "sid", Value: value},
	}
}

func (e *testEnv) do(method, target, body string, signedIn bool, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		if strings.HasPrefix(body, "{") {
			req.Header.Set("Content-Type", "application/json")
		} else {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if signedIn {
		req.AddCookie(e.cookie)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func sessionCleared(w *httptest.ResponseRecorder) bool {
	for _, ck := range w.Result().Cookies() {
		if ck.Name == "sid" && ck.MaxAge < 0 {
			return true
		}
	}
	return false
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return env
}

func TestAPI_RequiresSession(t *testing.T) {
	env := setupTestEnv(t, &fakeBackend{})
	w := env.do(http.MethodGet, "/api/v1/admin/reports", "", false, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d; want 401", w.Code)
	}
}

func TestAPI_Reports(t *testing.T) {
	env := setupTestEnv(t, &fakeBackend{reports: domain.Reports{QRCodesTotal: "100", ScansTotal: "40", WinnersTotal: "3"}})
	w := env.do(http.MethodGet, "/api/v1/admin/reports", "", true, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	var reports domain.Reports
	if err := json.Unmarshal(decode(t, w).Data, &reports); err != nil {
		t.Fatal(err)
	}
	if reports.ScansTotal.Int() != 40 {
		t.Errorf("reports = %+v", reports)
	}
}

func TestAPI_Lists(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		wantTotal int
		wantFirst string
	}{
		{"winners default sort", "/api/v1/admin/winners", 3, "CHS-AAAAAAAAA2"},
		{"winners keyword", "/api/v1/admin/winners?q=delivered", 1, "CHS-AAAAAAAAA2"},
		{"winners sort by name", "/api/v1/admin/winners?sort=name&dir=asc&page_size=2", 3, "CHS-AAAAAAAAA1"},
		{"codes by scans desc", "/api/v1/admin/qr-codes?sort=total_scans:desc", 2, "CHS-AAAAAAAAA1"},
		{"codes keyword", "/api/v1/admin/qr-codes?q=not%20claimed", 1, "CHS-AAAAAAAAA9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t, &fakeBackend{winners: sampleWinners(), codes: sampleCodes()})
			w := env.do(http.MethodGet, tt.target, "", true, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
			}
			var page struct {
				Items []struct {
					QRCodeID string `json:"qr_code_id"`
				} `json:"items"`
				Total int `json:"total"`
			}
			if err := json.Unmarshal(decode(t, w).Data, &page); err != nil {
				t.Fatal(err)
			}
			if page.Total != tt.wantTotal || len(page.Items) == 0 || page.Items[0].QRCodeID != tt.wantFirst {
				t.Errorf("page = %+v", page)
			}
		})
	}
}

func TestAPI_BackendUnauthorizedClearsSession(t *testing.T) {
	env := setupTestEnv(t, &fakeBackend{reportsErr: domain.NewAppError(domain.CodeUnauthorized, "Your session has expired. Please sign in again.", nil)})
	w := env.do(http.MethodGet, "/api/v1/admin/reports", "", true, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d; want 401", w.Code)
	}
	if !sessionCleared(w) {
		t.Error("session cookie not cleared")
	}
}

func TestAPI_MarkDelivered(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		wantStatus int
	}{
		{"pending", "1", http.StatusOK},
		{"already delivered", "2", http.StatusConflict},
		{"unknown", "42", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t, &fakeBackend{winners: sampleWinners()})
			w := env.do(http.MethodPost, "/api/v1/admin/winners/"+tt.id+"/delivery", "", true, nil)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d; want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestAPI_GenerateAndUpdate(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
	}{
		{"generate", http.MethodPost, "/api/v1/admin/qr-codes", `{"prize_type":"Cap","count":5}`, http.StatusOK},
		{"generate zero", http.MethodPost, "/api/v1/admin/qr-codes", `{"prize_type":"Cap","count":0}`, http.StatusBadRequest},
		{"generate no prize", http.MethodPost, "/api/v1/admin/qr-codes", `{"count":3}`, http.StatusBadRequest},
		{"update", http.MethodPut, "/api/v1/admin/qr-codes/CHS-AAAAAAAAA9", `{"prize_type":"Cap"}`, http.StatusOK},
		{"update no prize", http.MethodPut, "/api/v1/admin/qr-codes/CHS-AAAAAAAAA9", `{}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t, &fakeBackend{})
			w := env.do(tt.method, tt.target, tt.body, true, nil)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d; want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus == http.StatusOK && len(env.feed.records) != 1 {
				t.Errorf("activity records = %+v", env.feed.records)
			}
		})
	}
}

func TestAPI_BearerToken(t *testing.T) {
	env := setupTestEnv(t, &fakeBackend{reports: domain.Reports{WinnersTotal: "1"}})
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"email": "ops@example.com"}).SignedString([]byte("issuer-key"))
	if err != nil {
		t.Fatal(err)
	}
	w := env.do(http.MethodGet, "/api/v1/admin/reports", "", false, map[string]string{"Authorization": "Bearer " + token})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	if env.backend.gotToken != token {
		t.Errorf("token forwarded = %q", env.backend.gotToken)
	}
}

func TestNewModule_PanicsOnNil(t *testing.T) {
	guard := func(c *gin.Context) { c.Next() }
	tests := []struct {
		name string
		fn   func()
	}{
		{"nil handler", func() { NewModule(nil, &PageHandler{}, guard, guard) }},
		{"nil page handler", func() { NewModule(&Handler{}, nil, guard, guard) }},
		{"nil guard", func() { NewModule(&Handler{}, &PageHandler{}, nil, guard) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			tt.fn()
		})
	}
}
