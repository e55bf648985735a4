package campaign

import "github.com/simp-lee/qrpromo/internal/pkg"

// ScanRequest is the code a participant types from the flyer. The form field
// is "code"; the JSON API uses the backend's qr_code_id name.
type ScanRequest struct {
	Code string `form:"code" json:"qr_code_id" binding:"required"`
}

// ClaimRequest holds the contact details a winner submits.
type ClaimRequest struct {
	QRCodeID string    `form:"qr_code_id" json:"qr_code_id" binding:"required,promocode"`
	Name     string    `form:"name" json:"name" binding:"required,personname,max=100"`
	Phone    pkg.Phone `form:"phone" json:"phone" binding:"required,usphone"`
	Email    string    `form:"email" json:"email" binding:"required,email,max=254"`
}

// ScanResponse is the JSON reply to a scan.
type ScanResponse struct {
	QRCodeID string `json:"qr_code_id"`
	Message  string `json:"message"`
	Outcome  string `json:"outcome"`
}
