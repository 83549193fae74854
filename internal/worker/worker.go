package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otrace "go.opentelemetry.io/otel/trace"

	"github.com/relawanns/regworker/internal/jobs"
	"github.com/relawanns/regworker/internal/notifications"
	"github.com/relawanns/regworker/internal/observability"
)

type QueueStore interface {
	DequeueBlocking(ctx context.Context, timeout time.Duration) (*jobs.RegistrationJob, error)
	MoveToFailed(ctx context.Context, job jobs.RegistrationJob, cause error) error
	Ping(ctx context.Context) error
	Close() error
}

type Processor interface {
	Process(ctx context.Context, job jobs.RegistrationJob) error
}

type Config struct {
	DequeueTimeout  time.Duration
	FailureCooldown time.Duration
	JobTimeout      time.Duration
}

// Worker is the single-consumer control loop: dequeue, process, classify,
// dead-letter, repeat. Exactly one instance runs per deployment.
type Worker struct {
	cfg      Config
	queue    QueueStore
	proc     Processor
	notifier notifications.Notifier
	prom     *observability.Prom
	stats    *observability.JobMetrics
	log      *slog.Logger

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, queue QueueStore, proc Processor, notifier notifications.Notifier, prom *observability.Prom, logger *slog.Logger) *Worker {
	if cfg.DequeueTimeout <= 0 {
		cfg.DequeueTimeout = 2 * time.Second
	}
	if cfg.FailureCooldown <= 0 {
		cfg.FailureCooldown = 5 * time.Second
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 90 * time.Second
	}

	return &Worker{
		cfg:      cfg,
		queue:    queue,
		proc:     proc,
		notifier: notifier,
		prom:     prom,
		stats:    observability.NewJobMetrics(),
		log:      logger,
	}
}

// Run loops until ctx is cancelled or a connectivity-class store failure
// makes continuing pointless. The queue connection is always released on
// the way out.
func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)

	defer func() {
		w.setReady(false)

		if err := w.queue.Close(); err != nil {
			w.log.Error("queue close failed", "error", err)
		}

		snap := w.stats.Snapshot()
		w.log.Info("worker stopped",
			"processed", snap.Processed,
			"failed", snap.Failed,
			"malformed", snap.Malformed,
			"dead_lettered", snap.DeadLettered,
			"avg_duration", snap.AverageDuration.String(),
			"max_duration", snap.MaxDuration.String(),
		)
	}()

	w.log.Info("worker started", "dequeue_timeout", w.cfg.DequeueTimeout.String())

	for {
		// shutdown is polled between iterations, never applied mid-job
		select {
		case <-ctx.Done():
			w.log.Info("worker received shutdown signal")
			return nil
		default:
		}

		job, err := w.queue.DequeueBlocking(ctx, w.cfg.DequeueTimeout)

		if err != nil {
			if ctx.Err() != nil {
				w.log.Info("worker received shutdown signal")
				return nil
			}

			if errors.Is(err, jobs.ErrMalformedJob) {
				// already dead-lettered by the store
				w.log.Warn("malformed payload dead-lettered", "error", err)
				w.stats.IncMalformed()
				w.observeResult("malformed", 0)
				continue
			}

			if IsConnectivityError(err) {
				w.log.Error("queue connectivity lost, exiting for supervisor restart", "error", err)
				w.alert(ctx, "queue connectivity", err)
				return err
			}

			w.log.Error("dequeue failed", "error", err)
			w.sleep(ctx, w.cfg.FailureCooldown)
			continue
		}

		if job == nil {
			// timeout, queue empty
			continue
		}

		w.runJob(ctx, *job)
	}
}

func (w *Worker) runJob(ctx context.Context, job jobs.RegistrationJob) {
	w.prom.JobsInFlight.Inc()
	defer w.prom.JobsInFlight.Dec()

	tracer := otel.Tracer("regworker")

	// the job context deliberately does not inherit the loop context:
	// cancellation is cooperative and a started job runs to completion
	// or to its own deadline
	jobCtx, cancel := context.WithTimeout(context.Background(), w.cfg.JobTimeout)
	defer cancel()

	jobCtx, span := tracer.Start(jobCtx, "job.process",
		otrace.WithAttributes(
			attribute.String("job.id", job.ID),
			attribute.Int64("job.registration_id", job.RegistrationID),
		),
	)
	defer span.End()

	start := time.Now()

	err := w.proc.Process(jobCtx, job)

	duration := time.Since(start)
	w.stats.ObserveDuration(duration)

	if err == nil {
		w.stats.IncProcessed()
		w.observeResult("done", duration)
		w.log.Info("job completed",
			"job_id", job.ID,
			"registration_id", job.RegistrationID,
			"duration", duration.String(),
		)
		return
	}

	span.RecordError(err)

	w.stats.IncFailed()
	w.observeResult("failed", duration)
	w.log.Error("job failed",
		"job_id", job.ID,
		"registration_id", job.RegistrationID,
		"error", err,
	)

	// the dead-letter write must land even when a shutdown signal arrived
	// while the job was running
	dlCtx, dlCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dlCancel()

	if mfErr := w.queue.MoveToFailed(dlCtx, job, err); mfErr != nil {
		w.log.Error("dead-letter move failed", "job_id", job.ID, "error", mfErr)
	} else {
		w.stats.IncDeadLettered()
		w.prom.JobsDeadLettered.Inc()
	}

	// cooldown throttles retry storms when an external dependency is down
	w.sleep(ctx, w.cfg.FailureCooldown)
}

func (w *Worker) observeResult(result string, duration time.Duration) {
	w.prom.JobResults.WithLabelValues(result).Inc()

	if duration > 0 {
		w.prom.JobDuration.WithLabelValues(result).Observe(duration.Seconds())
	}
}

func (w *Worker) alert(ctx context.Context, subject string, cause error) {
	// the loop context may already be cancelled; give the alert its own
	// short deadline
	alertCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := w.notifier.SendAlert(alertCtx, subject, cause); err != nil {
		w.log.Error("admin alert failed", "error", err)
	}
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

func (w *Worker) setReady(ready bool) {
	w.readyMu.Lock()
	w.ready = ready
	w.readyMu.Unlock()
}

func (w *Worker) isReady() bool {
	w.readyMu.RLock()
	defer w.readyMu.RUnlock()
	return w.ready
}

// Stats exposes the in-process tally for the health endpoints.
func (w *Worker) Stats() observability.JobMetricsSnapShot {
	return w.stats.Snapshot()
}
