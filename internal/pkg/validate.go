package pkg

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

var usPhonePattern = regexp.MustCompile(`^\d{3}-\d{3}-\d{4}$`)

// RegisterValidators installs the custom rules used by request DTOs on gin's
// default validator:
//
//	usphone    XXX-XXX-XXXX
//	promocode  codePrefix followed by upper-case letters or digits, codeLength runes in total
//	personname letters and spaces only
func RegisterValidators(codePrefix string, codeLength int) error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	return registerOn(v, codePrefix, codeLength)
}

func registerOn(v *validator.Validate, codePrefix string, codeLength int) error {
	rules := map[string]validator.Func{
		"usphone": func(fl validator.FieldLevel) bool {
			return ValidUSPhone(fl.Field().String())
		},
		"promocode": func(fl validator.FieldLevel) bool {
			return ValidPromoCode(fl.Field().String(), codePrefix, codeLength)
		},
		"personname": func(fl validator.FieldLevel) bool {
			return ValidPersonName(fl.Field().String())
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %s: %w", tag, err)
		}
	}
	return nil
}

// ValidPromoCode reports whether code has the printed flyer format.
func ValidPromoCode(code, prefix string, length int) bool {
	if len(code) != length || !strings.HasPrefix(code, prefix) {
		return false
	}
	for _, r := range code[len(prefix):] {
		if !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// ValidEmail reports whether s passes the same "email" rule that request
// binding applies, so service checks and bound DTOs never disagree.
func ValidEmail(s string) bool {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return false
	}
	return v.Var(s, "required,email") == nil
}

// ValidPersonName reports whether s is a non-blank run of letters and spaces.
func ValidPersonName(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && r != ' ' {
			return false
		}
	}
	return true
}

// Phone is a US phone number request field. Binding from a form or JSON body
// reformats ten digits typed in any layout as XXX-XXX-XXXX, so the usphone
// rule sees the normalized value.
type Phone string

// UnmarshalParam implements binding.BindUnmarshaler for form binding.
func (p *Phone) UnmarshalParam(param string) error {
	*p = Phone(FormatPhone(param))
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Phone) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*p = Phone(FormatPhone(s))
	return nil
}

// FormatPhone strips everything but digits from raw and groups exactly ten
// digits as XXX-XXX-XXXX. Any other digit count is returned trimmed and
// unchanged so validation can reject it.
func FormatPhone(raw string) string {
	digits := make([]byte, 0, 10)
	for i := 0; i < len(raw); i++ {
		if raw[i] >= '0' && raw[i] <= '9' {
			digits = append(digits, raw[i])
		}
	}
	if len(digits) != 10 {
		return strings.TrimSpace(raw)
	}
	return string(digits[:3]) + "-" + string(digits[3:6]) + "-" + string(digits[6:])
}

// ValidUSPhone reports whether s is formatted as XXX-XXX-XXXX.
func ValidUSPhone(s string) bool {
	return usPhonePattern.MatchString(s)
}
