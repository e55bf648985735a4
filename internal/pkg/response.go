package pkg

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/simp-lee/qrpromo/internal/domain"
)

// Response is the JSON envelope every API endpoint answers with.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// ValidationErrorResponse carries per-field messages for a rejected body.
type ValidationErrorResponse struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

const (
	msgSuccess    = "success"
	msgBadRequest = "bad request"
	msgValidation = "validation error"
	msgInternal   = "internal error"
)

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Response{Code: status, Message: message, Data: data})
}

// Success answers 200 with data.
func Success(c *gin.Context, data any) {
	respond(c, http.StatusOK, msgSuccess, data)
}

// List answers 200 with one page of records, normally a listquery.Result.
func List(c *gin.Context, result any) {
	respond(c, http.StatusOK, msgSuccess, result)
}

// Error answers with the status mapped from err. Only AppError messages reach
// the client; anything else reads "internal error".
func Error(c *gin.Context, err error) {
	respond(c, domain.HTTPStatusCode(err), domain.UserMessage(err, msgInternal), nil)
}

// ValidationError answers 400, listing field messages when err came from the
// validator.
func ValidationError(c *gin.Context, err error) {
	rejectBody(c, err, nil)
}

// BindAndValidate binds the request into obj. On failure the 400 has already
// been written, keyed by obj's json names, and it returns false:
//
//	if !pkg.BindAndValidate(c, &req) { return }
func BindAndValidate(c *gin.Context, obj any) bool {
	err := c.ShouldBind(obj)
	if err != nil {
		rejectBody(c, err, obj)
	}
	return err == nil
}

func rejectBody(c *gin.Context, err error, obj any) {
	fields, ok := FieldErrors(err, obj)
	if !ok {
		respond(c, http.StatusBadRequest, msgBadRequest, nil)
		return
	}
	c.JSON(http.StatusBadRequest, ValidationErrorResponse{
		Code:    http.StatusBadRequest,
		Message: msgValidation,
		Errors:  fields,
	})
}

// FieldErrors converts validator errors into a field -> message map. Fields
// are named by obj's json tags when obj is given. ok is false when err is not
// a validator.ValidationErrors (malformed body, wrong content type).
func FieldErrors(err error, obj any) (map[string]string, bool) {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil, false
	}

	t := structType(obj)
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[wireName(t, fe)] = fieldMessage(fe)
	}
	return fields, true
}

// wireName is the json name of the failing field, or its lower-cased Go name.
func wireName(t reflect.Type, fe validator.FieldError) string {
	if t != nil {
		if f, ok := t.FieldByName(fe.StructField()); ok {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name != "" && name != "-" {
				return name
			}
		}
	}
	return strings.ToLower(fe.Field())
}

func structType(obj any) reflect.Type {
	if obj == nil {
		return nil
	}
	t := reflect.TypeOf(obj)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	return t
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Must be a valid email address"
	case "min":
		return "Must be at least " + fe.Param() + " characters"
	case "max":
		return "Must be at most " + fe.Param() + " characters"
	case "gt":
		return "Must be greater than " + fe.Param()
	case "numeric", "number":
		return "Must contain digits only"
	case "usphone":
		return "Must be in the format XXX-XXX-XXXX"
	case "promocode":
		return "Must be a valid promo code"
	case "personname":
		return "Must contain letters and spaces only"
	}
	msg := fe.Tag()
	if fe.Param() != "" {
		msg += "=" + fe.Param()
	}
	return msg
}
