package registration

import (
	"errors"
	"strings"
	"time"
)

type Registration struct {
	ID                   int64     `json:"id"`
	Name                 string    `json:"name"`
	Email                string    `json:"email"`
	Phone                string    `json:"phone"`
	Age                  int       `json:"age"`
	City                 string    `json:"city"`
	InstagramUsername    string    `json:"instagramUsername"`
	ParticipationHistory string    `json:"participationHistory"` // "yes" | "no"
	VestSize             string    `json:"vestSize"`
	PaymentProofURL      *string   `json:"paymentProofUrl,omitempty"`
	TiktokProofURL       *string   `json:"tiktokProofUrl,omitempty"`
	InstagramProofURL    *string   `json:"instagramProofUrl,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
}

var ErrNotFound = errors.New("registration not found")

// FirstName returns the first whitespace-separated token of the name.
func (r Registration) FirstName() string {
	fields := strings.Fields(strings.TrimSpace(r.Name))

	if len(fields) == 0 {
		return r.Name
	}
	return fields[0]
}

// HistoryLabel maps the stored yes/no flag to the label used in the
// spreadsheet and notification.
func (r Registration) HistoryLabel() string {
	if r.ParticipationHistory == "yes" {
		return "Sudah Pernah"
	}
	return "Belum Pernah"
}
