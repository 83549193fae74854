package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/relawanns/regworker/internal/jobs"
	"github.com/relawanns/regworker/internal/queue/redisclient"
)

const (
	registrationQueueKey = "registration_queue"
	failedQueueKey       = "failed_registrations"
)

// Store is the durable job queue: a redis list for pending jobs plus a
// companion dead-letter list for failed ones.
type Store struct {
	client *redisclient.Client
	log    *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

func NewStore(client *redisclient.Client, logger *slog.Logger) *Store {
	return &Store{
		client: client,
		log:    logger,
	}
}

// Enqueue appends a job to the tail of the queue. It assigns an id and
// enqueue timestamp when the producer left them unset.
func (s *Store) Enqueue(ctx context.Context, job jobs.RegistrationJob) error {
	if job.ID == "" {
		stamped := jobs.NewRegistrationJob(job.RegistrationID, job.Files, job.EventTitle, job.EventDate)
		job.ID = stamped.ID
	}

	if job.Timestamp.IsZero() {
		job.Timestamp = time.Now().UTC()
	}

	b, err := jobs.Encode(job)

	if err != nil {
		return err
	}

	if err := s.client.Raw().RPush(ctx, registrationQueueKey, b).Err(); err != nil {
		return fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}

	return nil
}

// DequeueBlocking pops the head of the queue, blocking up to timeout.
// Returns (nil, nil) when the timeout elapses with no job, so callers can
// loop and poll shutdown flags. Store errors are returned as-is so the
// caller can tell them apart from an empty queue.
//
// A payload that fails schema validation is moved to the dead-letter list
// here; the returned error wraps jobs.ErrMalformedJob.
func (s *Store) DequeueBlocking(ctx context.Context, timeout time.Duration) (*jobs.RegistrationJob, error) {
	res, err := s.client.Raw().BLPop(ctx, timeout, registrationQueueKey).Result()

	if errors.Is(err, redis.Nil) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("dequeue: %w", err)
	}

	// BLPOP returns [key, value]
	raw := []byte(res[1])

	job, err := jobs.Decode(raw)

	if err != nil {
		s.deadLetterRaw(ctx, raw, err)
		return nil, err
	}

	return &job, nil
}

// MoveToFailed appends a dead-letter record for a job that was already
// dequeued. The primary queue is untouched.
func (s *Store) MoveToFailed(ctx context.Context, job jobs.RegistrationJob, cause error) error {
	b, err := jobs.EncodeFailed(jobs.NewFailedJob(job, cause))

	if err != nil {
		return err
	}

	if err := s.client.Raw().RPush(ctx, failedQueueKey, b).Err(); err != nil {
		return fmt.Errorf("move job %s to failed queue: %w", job.ID, err)
	}

	s.log.Info("job moved to failed queue",
		"job_id", job.ID,
		"registration_id", job.RegistrationID,
		"error", cause.Error(),
	)
	return nil
}

// FailedEntry pairs a decoded dead-letter record with its raw list element,
// which RemoveFailed needs for LREM.
type FailedEntry struct {
	Job jobs.FailedJob
	Raw string
}

// FailedJobs lists the dead-letter store. Entries that no longer decode are
// skipped with a warning rather than blocking inspection of the rest.
func (s *Store) FailedJobs(ctx context.Context) ([]FailedEntry, error) {
	raws, err := s.client.Raw().LRange(ctx, failedQueueKey, 0, -1).Result()

	if err != nil {
		return nil, fmt.Errorf("list failed jobs: %w", err)
	}

	entries := make([]FailedEntry, 0, len(raws))

	for _, raw := range raws {
		fj, err := jobs.DecodeFailed([]byte(raw))

		if err != nil {
			s.log.Warn("skipping undecodable failed job entry", "error", err)
			continue
		}

		entries = append(entries, FailedEntry{Job: fj, Raw: raw})
	}

	return entries, nil
}

// RemoveFailed deletes one dead-letter entry by its raw value.
func (s *Store) RemoveFailed(ctx context.Context, raw string) error {
	n, err := s.client.Raw().LRem(ctx, failedQueueKey, 1, raw).Result()

	if err != nil {
		return fmt.Errorf("remove failed job: %w", err)
	}

	if n == 0 {
		return errors.New("failed job entry not found")
	}

	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// Close releases the underlying connection. Safe to call more than once.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.client.Close()
	})
	return s.closeErr
}

// deadLetterRaw preserves a malformed payload for inspection. Best effort:
// if redis is down we only log, the payload is already lost to the queue.
func (s *Store) deadLetterRaw(ctx context.Context, raw []byte, cause error) {
	record := jobs.NewFailedJob(jobs.RegistrationJob{}, cause)

	record.Error.Stack = string(raw)

	b, err := jobs.EncodeFailed(record)

	if err != nil {
		s.log.Error("encode malformed payload record", "error", err)
		return
	}

	if err := s.client.Raw().RPush(ctx, failedQueueKey, b).Err(); err != nil {
		s.log.Error("dead-letter malformed payload", "error", err)
	}
}
