package jobs

import (
	"encoding/json"
	"fmt"
)

// Encode serializes a job for the queue wire format.
func Encode(job RegistrationJob) ([]byte, error) {
	if err := validateFiles(job.Files); err != nil {
		return nil, err
	}

	b, err := json.Marshal(job)

	if err != nil {
		return nil, fmt.Errorf("encode job: %w", err)
	}
	return b, nil
}

// Decode parses and validates a raw queue payload. Anything that fails
// here is a permanent error; the caller dead-letters the payload instead
// of retrying it.
func Decode(raw []byte) (RegistrationJob, error) {
	if err := ValidateRaw(raw); err != nil {
		return RegistrationJob{}, err
	}

	var job RegistrationJob

	if err := json.Unmarshal(raw, &job); err != nil {
		return RegistrationJob{}, fmt.Errorf("%w: %v", ErrMalformedJob, err)
	}

	if err := validateFiles(job.Files); err != nil {
		return RegistrationJob{}, err
	}

	return job, nil
}

func EncodeFailed(fj FailedJob) ([]byte, error) {
	b, err := json.Marshal(fj)

	if err != nil {
		return nil, fmt.Errorf("encode failed job: %w", err)
	}
	return b, nil
}

func DecodeFailed(raw []byte) (FailedJob, error) {
	var fj FailedJob

	if err := json.Unmarshal(raw, &fj); err != nil {
		return FailedJob{}, fmt.Errorf("%w: %v", ErrMalformedJob, err)
	}

	if fj.Error.Message == "" {
		return FailedJob{}, fmt.Errorf("%w: failed job without error message", ErrMalformedJob)
	}

	return fj, nil
}

func validateFiles(files map[ProofKind]ProofFile) error {
	for kind := range files {
		if !kind.IsValid() {
			return fmt.Errorf("%w: %q", ErrInvalidProofKind, kind)
		}
	}

	for _, kind := range AllProofKinds() {
		f, ok := files[kind]

		if !ok || f.URL == "" {
			return fmt.Errorf("%w: %s", ErrMissingProofFile, kind)
		}
	}
	return nil
}
