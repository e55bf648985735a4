package auth

import "time"

// LoginRequest is the sign-in form. Both fields are checked by the service so
// the form can show a single combined message.
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
	Next     string `json:"-" form:"next"`
}

// TokenResponse is returned by the JSON login endpoint.
type TokenResponse struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}
