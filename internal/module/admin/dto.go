package admin

// GenerateForm is the create page form. Count stays text so the service can
// reject anything but digits.
type GenerateForm struct {
	PrizeType string `form:"prize_type"`
	Count     string `form:"count"`
}

// UpdateForm is the update page form.
type UpdateForm struct {
	QRCodeID  string `form:"qr_code_id"`
	PrizeType string `form:"prize_type"`
}

// GenerateQRCodesRequest is the body of POST /api/v1/admin/qr-codes.
type GenerateQRCodesRequest struct {
	PrizeType string `json:"prize_type" binding:"required,max=100"`
	Count     int    `json:"count" binding:"required,gt=0"`
}

// UpdatePrizeRequest is the body of PUT /api/v1/admin/qr-codes/:id.
type UpdatePrizeRequest struct {
	PrizeType string `json:"prize_type" binding:"required,max=100"`
}
