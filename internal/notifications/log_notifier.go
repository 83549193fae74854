package notifications

import (
	"context"
	"log"
)

// LogNotifier stands in when no bot token is configured (local dev).
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) SendRegistrationNotice(ctx context.Context, notice RegistrationNotice) error {
	log.Printf("notification.registration name=%s email=%s city=%s number=%d/%d",
		notice.Name, notice.Email, notice.City, notice.RegistrationNumber, notice.MaxQuota,
	)
	return nil
}

func (n *LogNotifier) SendAlert(ctx context.Context, subject string, cause error) error {
	log.Printf("notification.alert subject=%s error=%v", subject, cause)
	return nil
}
