package domain

import (
	"errors"
	"net/http"
)

// Error codes for business and upstream failures.
const (
	CodeNotFound      = 1
	CodeAlreadyExists = 2
	CodeValidation    = 3
	CodeInternal      = 4
	CodeUnauthorized  = 5
	CodeUpstream      = 6
)

// codeStatus maps each code to its HTTP status. Anything else is a 500.
var codeStatus = map[int]int{
	CodeNotFound:      http.StatusNotFound,
	CodeAlreadyExists: http.StatusConflict,
	CodeValidation:    http.StatusBadRequest,
	CodeInternal:      http.StatusInternalServerError,
	CodeUnauthorized:  http.StatusUnauthorized,
	CodeUpstream:      http.StatusBadGateway,
}

// AppError is a failure with a code and a message written for whoever caused
// it: a participant at the claim form or an admin on the dashboard. Err keeps
// the cause for logs.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Sentinels. Compare with the Is* helpers rather than errors.Is: they match
// on code, so errors built by NewAppError match too.
var (
	ErrNotFound      = &AppError{Code: CodeNotFound, Message: "not found"}
	ErrAlreadyExists = &AppError{Code: CodeAlreadyExists, Message: "already exists"}
	ErrValidation    = &AppError{Code: CodeValidation, Message: "validation error"}
	ErrInternal      = &AppError{Code: CodeInternal, Message: "internal error"}
	ErrUnauthorized  = &AppError{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrUpstream      = &AppError{Code: CodeUpstream, Message: "backend unavailable"}
)

func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the first AppError in err's chain, or 0.
func CodeOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return 0
}

func IsNotFound(err error) bool      { return CodeOf(err) == CodeNotFound }
func IsAlreadyExists(err error) bool { return CodeOf(err) == CodeAlreadyExists }
func IsValidation(err error) bool    { return CodeOf(err) == CodeValidation }
func IsInternal(err error) bool      { return CodeOf(err) == CodeInternal }

// IsUnauthorized is how admin handlers learn the backend rejected the
// session token: they drop the cookie and send the admin back to login.
func IsUnauthorized(err error) bool { return CodeOf(err) == CodeUnauthorized }

// IsUpstream reports a backend or identity provider that could not be
// reached or answered 5xx.
func IsUpstream(err error) bool { return CodeOf(err) == CodeUpstream }

// HTTPStatusCode maps err to a status; non-AppErrors and nil are 500.
func HTTPStatusCode(err error) int {
	if status, ok := codeStatus[CodeOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// UserMessage returns the AppError message when it is safe to show, otherwise
// fallback. Internal errors and unknown codes never leak their text.
func UserMessage(err error, fallback string) string {
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Message == "" || appErr.Code == CodeInternal {
		return fallback
	}
	if _, known := codeStatus[appErr.Code]; !known {
		return fallback
	}
	return appErr.Message
}
