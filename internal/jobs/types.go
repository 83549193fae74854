package jobs

import (
	"time"

	"github.com/google/uuid"
)

type ProofKind string

const (
	ProofPayment   ProofKind = "payment_proof"
	ProofTiktok    ProofKind = "tiktok_proof"
	ProofInstagram ProofKind = "instagram_proof"
)

func (k ProofKind) IsValid() bool {
	switch k {
	case ProofPayment, ProofTiktok, ProofInstagram:
		return true
	default:
		return false
	}
}

// AllProofKinds returns the fixed set of proof slots every job must carry.
func AllProofKinds() []ProofKind {
	return []ProofKind{ProofPayment, ProofTiktok, ProofInstagram}
}

// ProofFile points at a temporary object in external storage. The URL is
// only valid until the processor deletes the object after upload.
type ProofFile struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// RegistrationJob is one unit of deferred registration-enrichment work.
// EventTitle and EventDate are a snapshot taken at enqueue time; they may
// drift from current settings, which is accepted.
type RegistrationJob struct {
	ID             string                  `json:"id"`
	RegistrationID int64                   `json:"registrationId"`
	Files          map[ProofKind]ProofFile `json:"files"`
	EventTitle     string                  `json:"eventTitle"`
	EventDate      string                  `json:"eventDate"`
	Timestamp      time.Time               `json:"timestamp"`
}

// NewRegistrationJob stamps identity and enqueue time onto a job.
func NewRegistrationJob(registrationID int64, files map[ProofKind]ProofFile, eventTitle, eventDate string) RegistrationJob {
	return RegistrationJob{
		ID:             uuid.NewString(),
		RegistrationID: registrationID,
		Files:          files,
		EventTitle:     eventTitle,
		EventDate:      eventDate,
		Timestamp:      time.Now().UTC(),
	}
}

type JobError struct {
	Message  string    `json:"message"`
	Stack    string    `json:"stack,omitempty"`
	FailedAt time.Time `json:"failedAt"`
}

// FailedJob is a dead-letter record: the original job plus the error that
// killed it. Append-only, never retried automatically.
type FailedJob struct {
	RegistrationJob
	Error JobError `json:"error"`
}

func NewFailedJob(job RegistrationJob, cause error) FailedJob {
	msg := "unknown error"

	if cause != nil {
		msg = cause.Error()
	}

	return FailedJob{
		RegistrationJob: job,
		Error: JobError{
			Message:  msg,
			FailedAt: time.Now().UTC(),
		},
	}
}
