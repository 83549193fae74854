package notifications

import "context"

// RegistrationNotice carries everything the group-channel message needs.
type RegistrationNotice struct {
	Name                 string
	Email                string
	Phone                string
	Age                  int
	City                 string
	InstagramUsername    string
	ParticipationHistory string
	VestSize             string
	PaymentProofURL      string
	RegistrationNumber   int
	MaxQuota             int
}

type Notifier interface {
	SendRegistrationNotice(ctx context.Context, notice RegistrationNotice) error

	// SendAlert informs the admin channel about a worker-level failure.
	SendAlert(ctx context.Context, subject string, cause error) error
}
