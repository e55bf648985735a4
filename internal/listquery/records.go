package listquery

import (
	"github.com/simp-lee/qrpromo/internal/domain"
)

// Status labels. They double as exact-match search keywords.
const (
	LabelDelivered    = "delivered"
	LabelNotDelivered = "not delivered"
	LabelClaimed      = "claimed"
	LabelNotClaimed   = "not claimed"
	LabelValid        = "valid"
	LabelInvalid      = "invalid"
)

// DeliveryLabel returns the delivery status text of a winner.
func DeliveryLabel(w domain.Winner) string {
	if w.Delivered() {
		return LabelDelivered
	}
	return LabelNotDelivered
}

// ClaimLabel returns the claim status text of a code.
func ClaimLabel(q domain.QRCode) string {
	if q.Claimed {
		return LabelClaimed
	}
	return LabelNotClaimed
}

// ValidityLabel returns the validity text of a code.
func ValidityLabel(q domain.QRCode) string {
	if q.IsValid {
		return LabelValid
	}
	return LabelInvalid
}

// Winners is the schema of the winners table.
var Winners = Schema[domain.Winner]{
	Fields: []Field[domain.Winner]{
		{Name: "qr_code_id", Value: func(w domain.Winner) string { return w.QRCodeID.String() }, Searchable: true},
		{Name: "name", Value: func(w domain.Winner) string { return w.Name }, Searchable: true},
		{Name: "email", Value: func(w domain.Winner) string { return w.Email }, Searchable: true},
		{Name: "phone", Value: func(w domain.Winner) string { return w.Phone }, Searchable: true},
		{Name: "prize_type", Value: func(w domain.Winner) string { return w.PrizeType }, Searchable: true},
		{Name: "delivered", Value: DeliveryLabel, Searchable: true},
		{Name: "winner_id", Value: func(w domain.Winner) string { return w.WinnerID.String() }},
		{Name: "claimed_at", Value: func(w domain.Winner) string { return w.ClaimedAt }},
		{Name: "delivery_date", Value: domain.Winner.DeliveredAt},
	},
	Keywords: map[string]func(domain.Winner) bool{
		LabelDelivered:    domain.Winner.Delivered,
		LabelNotDelivered: func(w domain.Winner) bool { return !w.Delivered() },
	},
	DefaultSort: "claimed_at",
	DefaultDir:  Desc,
}

// QRCodes is the schema of the QR codes table.
var QRCodes = Schema[domain.QRCode]{
	Fields: []Field[domain.QRCode]{
		{Name: "qr_code_id", Value: func(q domain.QRCode) string { return q.QRCodeID.String() }, Searchable: true},
		{Name: "prize_type", Value: func(q domain.QRCode) string { return q.PrizeType }, Searchable: true},
		{Name: "total_scans", Value: func(q domain.QRCode) string { return q.TotalScans.String() }, Numeric: true, Searchable: true},
		{Name: "claimed", Value: ClaimLabel, Searchable: true},
		{Name: "is_valid", Value: ValidityLabel, Searchable: true},
	},
	Keywords: map[string]func(domain.QRCode) bool{
		LabelClaimed:    func(q domain.QRCode) bool { return q.Claimed },
		LabelNotClaimed: func(q domain.QRCode) bool { return !q.Claimed },
		LabelValid:      func(q domain.QRCode) bool { return q.IsValid },
		LabelInvalid:    func(q domain.QRCode) bool { return !q.IsValid },
	},
	DefaultSort: "qr_code_id",
	DefaultDir:  Asc,
}
