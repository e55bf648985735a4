package pkg

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestBindAndValidate_CustomRules(t *testing.T) {
	if err := RegisterValidators("CHS-", 14); err != nil {
		t.Fatalf("RegisterValidators: %v", err)
	}

	type claimInput struct {
		QRCodeID string `json:"qr_code_id" binding:"required,promocode"`
		Name     string `json:"name" binding:"required,personname,max=100"`
		Phone    Phone  `json:"phone" binding:"required,usphone"`
	}

	tests := []struct {
		name       string
		body       string
		wantOK     bool
		wantFields []string
	}{
		{
			name:   "valid",
			body:   `{"qr_code_id":"CHS-AB12CD34EF","name":"María López","phone":"555-123-4567"}`,
			wantOK: true,
		},
		{
			name:       "bad code",
			body:       `{"qr_code_id":"chs-ab12cd34ef","name":"Maria","phone":"555-123-4567"}`,
			wantFields: []string{"qr_code_id"},
		},
		{
			name:   "raw phone digits reformatted",
			body:   `{"qr_code_id":"CHS-AB12CD34EF","name":"Maria","phone":"(555) 123 4567"}`,
			wantOK: true,
		},
		{
			name:       "digits in name and short phone",
			body:       `{"qr_code_id":"CHS-AB12CD34EF","name":"R2D2","phone":"555-1234"}`,
			wantFields: []string{"name", "phone"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newResponseTestContextWithBody(tt.body)
			var input claimInput
			ok := BindAndValidate(c, &input)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v; want %v (body %s)", ok, tt.wantOK, w.Body.String())
			}
			if ok {
				if input.Phone != "555-123-4567" {
					t.Errorf("Phone = %q; want 555-123-4567", input.Phone)
				}
				return
			}
			var resp ValidationErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			for _, f := range tt.wantFields {
				if _, ok := resp.Errors[f]; !ok {
					t.Errorf("expected error for field %q, got %v", f, resp.Errors)
				}
			}
			if len(resp.Errors) != len(tt.wantFields) {
				t.Errorf("expected %d field errors, got %v", len(tt.wantFields), resp.Errors)
			}
		})
	}
}

func TestValidPromoCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"CHS-0000000001", true},
		{"CHS-ABCDEFGHIJ", true},
		{"CHS-000000001", false},
		{"CHS-00000000011", false},
		{"XYZ-0000000001", false},
		{"CHS-00000000a1", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidPromoCode(tt.code, "CHS-", 14); got != tt.want {
			t.Errorf("ValidPromoCode(%q) = %v; want %v", tt.code, got, tt.want)
		}
	}
}

func TestValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"a@b.co", true},
		{"first.last@sub.example.com", true},
		{"maria+promo@example.com", true},
		{"maria@example", false},
		{"ma ria@example.com", false},
		{"a@.b", false},
		{"@b.co", false},
		{"a@@b.co", false},
		{"a@b@c.co", false},
		{"ab.co", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidEmail(tt.email); got != tt.want {
			t.Errorf("ValidEmail(%q) = %v; want %v", tt.email, got, tt.want)
		}
	}
}

// The service-level check and the binding tag must agree on every address.
func TestValidEmail_MatchesBindingRule(t *testing.T) {
	type form struct {
		Email string `json:"email" binding:"required,email"`
	}
	for _, email := range []string{"a@b.co", "maria@example", "a@b.", "ana@example.com", "x@y"} {
		c, _ := newResponseTestContextWithBody(`{"email":"` + email + `"}`)
		var f form
		bound := c.ShouldBind(&f) == nil
		if got := ValidEmail(email); got != bound {
			t.Errorf("ValidEmail(%q) = %v; binding accepted = %v", email, got, bound)
		}
	}
}

func TestFormatPhone(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"5551234567", "555-123-4567"},
		{"555-123-4567", "555-123-4567"},
		{" (555) 123.4567 ", "555-123-4567"},
		{"555-1234", "555-1234"},
		{"15551234567", "15551234567"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := FormatPhone(tt.raw); got != tt.want {
			t.Errorf("FormatPhone(%q) = %q; want %q", tt.raw, got, tt.want)
		}
		if got := ValidUSPhone(FormatPhone(tt.raw)); got != (len(tt.want) == 12) {
			t.Errorf("ValidUSPhone(FormatPhone(%q)) = %v", tt.raw, got)
		}
	}
}

func TestPhone_FormBinding(t *testing.T) {
	type form struct {
		Phone Phone `form:"phone" binding:"required,usphone"`
	}
	if err := RegisterValidators("CHS-", 14); err != nil {
		t.Fatalf("RegisterValidators: %v", err)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/claim", strings.NewReader("phone=555.123.4567"))
	c.Request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var f form
	if !BindAndValidate(c, &f) {
		t.Fatalf("BindAndValidate failed: %s", w.Body.String())
	}
	if f.Phone != "555-123-4567" {
		t.Errorf("Phone = %q; want 555-123-4567", f.Phone)
	}
}
