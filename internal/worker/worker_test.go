package worker_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/relawanns/regworker/internal/jobs"
	"github.com/relawanns/regworker/internal/notifications"
	"github.com/relawanns/regworker/internal/observability"
	"github.com/relawanns/regworker/internal/worker"
)

type fakeQueue struct {
	mu sync.Mutex

	pending    []jobs.RegistrationJob
	dequeueErr error

	deadLettered []jobs.FailedJob
	moveCtxErrs  []error
	closeCalls   int
}

func (q *fakeQueue) DequeueBlocking(ctx context.Context, timeout time.Duration) (*jobs.RegistrationJob, error) {
	q.mu.Lock()

	if q.dequeueErr != nil {
		err := q.dequeueErr
		q.mu.Unlock()
		return nil, err
	}

	if len(q.pending) > 0 {
		job := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()
		return &job, nil
	}

	q.mu.Unlock()

	// simulate a short blocking pop that times out empty
	select {
	case <-time.After(5 * time.Millisecond):
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *fakeQueue) MoveToFailed(ctx context.Context, job jobs.RegistrationJob, cause error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deadLettered = append(q.deadLettered, jobs.NewFailedJob(job, cause))
	q.moveCtxErrs = append(q.moveCtxErrs, ctx.Err())
	return nil
}

func (q *fakeQueue) Ping(ctx context.Context) error {
	return nil
}

func (q *fakeQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closeCalls++
	return nil
}

func (q *fakeQueue) closedTimes() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closeCalls
}

func (q *fakeQueue) deadLetters() []jobs.FailedJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]jobs.FailedJob(nil), q.deadLettered...)
}

type fakeProcessor struct {
	mu        sync.Mutex
	processed []string
	failWith  map[string]error
	onProcess func()
}

func (p *fakeProcessor) Process(ctx context.Context, job jobs.RegistrationJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processed = append(p.processed, job.ID)

	if p.onProcess != nil {
		p.onProcess()
	}

	if err, ok := p.failWith[job.ID]; ok {
		return err
	}
	return nil
}

func (p *fakeProcessor) processedIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.processed...)
}

type alertRecorder struct {
	mu     sync.Mutex
	alerts []string
}

func (a *alertRecorder) SendRegistrationNotice(ctx context.Context, notice notifications.RegistrationNotice) error {
	return nil
}

func (a *alertRecorder) SendAlert(ctx context.Context, subject string, cause error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, subject)
	return nil
}

func (a *alertRecorder) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.alerts)
}

func newTestWorker(q *fakeQueue, p *fakeProcessor, n notifications.Notifier) *worker.Worker {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	prom := observability.NewProm(prometheus.NewRegistry())

	return worker.New(worker.Config{
		DequeueTimeout:  10 * time.Millisecond,
		FailureCooldown: time.Millisecond,
		JobTimeout:      time.Second,
	}, q, p, n, prom, logger)
}

func job(id string) jobs.RegistrationJob {
	return jobs.RegistrationJob{
		ID:             id,
		RegistrationID: 1,
		Files: map[jobs.ProofKind]jobs.ProofFile{
			jobs.ProofPayment:   {URL: "https://x/p"},
			jobs.ProofTiktok:    {URL: "https://x/t"},
			jobs.ProofInstagram: {URL: "https://x/i"},
		},
		EventTitle: "Aksi",
		EventDate:  "1 Mei 2025",
	}
}

func TestRun_ProcessesJobsAndClosesOnce(t *testing.T) {
	q := &fakeQueue{pending: []jobs.RegistrationJob{job("a"), job("b")}}
	p := &fakeProcessor{}
	n := &alertRecorder{}

	w := newTestWorker(q, p, n)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)

	go func() {
		done <- w.Run(ctx)
	}()

	waitFor(t, func() bool { return len(p.processedIDs()) == 2 })

	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if got := q.closedTimes(); got != 1 {
		t.Fatalf("expected exactly 1 close, got %d", got)
	}

	if len(q.deadLetters()) != 0 {
		t.Fatalf("no jobs should be dead-lettered")
	}

	snap := w.Stats()

	if snap.Processed != 2 {
		t.Fatalf("expected 2 processed, got %d", snap.Processed)
	}
}

func TestRun_FailedJobIsDeadLettered(t *testing.T) {
	q := &fakeQueue{pending: []jobs.RegistrationJob{job("bad"), job("good")}}
	p := &fakeProcessor{failWith: map[string]error{"bad": errors.New("registration 1 not found")}}
	n := &alertRecorder{}

	w := newTestWorker(q, p, n)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)

	go func() {
		done <- w.Run(ctx)
	}()

	waitFor(t, func() bool { return len(p.processedIDs()) == 2 })

	cancel()
	<-done

	dead := q.deadLetters()

	if len(dead) != 1 {
		t.Fatalf("expected 1 dead-lettered job, got %d", len(dead))
	}

	if dead[0].ID != "bad" {
		t.Fatalf("wrong job dead-lettered: %s", dead[0].ID)
	}

	if dead[0].Error.Message == "" {
		t.Fatalf("dead-letter record must carry an error message")
	}

	// the failing job must not be re-enqueued
	for _, id := range p.processedIDs() {
		if id == "bad" && len(p.processedIDs()) > 2 {
			t.Fatalf("failed job was processed again")
		}
	}
}

func TestRun_DeadLetterWriteSurvivesShutdownSignal(t *testing.T) {
	q := &fakeQueue{pending: []jobs.RegistrationJob{job("doomed")}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// shutdown lands while the job is still executing
	p := &fakeProcessor{
		failWith:  map[string]error{"doomed": errors.New("drive down")},
		onProcess: func() { cancel() },
	}
	n := &alertRecorder{}

	w := newTestWorker(q, p, n)

	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	dead := q.deadLetters()

	if len(dead) != 1 {
		t.Fatalf("expected 1 dead-lettered job, got %d", len(dead))
	}

	q.mu.Lock()
	ctxErrs := append([]error(nil), q.moveCtxErrs...)
	q.mu.Unlock()

	for _, cerr := range ctxErrs {
		if cerr != nil {
			t.Fatalf("dead-letter write ran on a cancelled context: %v", cerr)
		}
	}
}

func TestRun_ConnectivityErrorIsFatalAndAlerts(t *testing.T) {
	q := &fakeQueue{dequeueErr: fmt.Errorf("dequeue: %w", syscall.ECONNREFUSED)}
	p := &fakeProcessor{}
	n := &alertRecorder{}

	w := newTestWorker(q, p, n)

	err := w.Run(context.Background())

	if err == nil {
		t.Fatalf("expected fatal error from connectivity failure")
	}

	if !errors.Is(err, syscall.ECONNREFUSED) {
		t.Fatalf("expected ECONNREFUSED, got %v", err)
	}

	if n.count() != 1 {
		t.Fatalf("expected 1 admin alert, got %d", n.count())
	}

	if got := q.closedTimes(); got != 1 {
		t.Fatalf("queue must be closed on the fatal path, got %d closes", got)
	}
}

func TestRun_MalformedPayloadContinues(t *testing.T) {
	q := &fakeQueue{dequeueErr: fmt.Errorf("%w: bad json", jobs.ErrMalformedJob)}
	p := &fakeProcessor{}
	n := &alertRecorder{}

	w := newTestWorker(q, p, n)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)

	go func() {
		done <- w.Run(ctx)
	}()

	waitFor(t, func() bool { return w.Stats().Malformed >= 2 })

	cancel()

	if err := <-done; err != nil {
		t.Fatalf("malformed payloads must not kill the loop: %v", err)
	}

	if len(p.processedIDs()) != 0 {
		t.Fatalf("nothing should reach the processor")
	}
}

func TestRun_ShutdownStopsDequeue(t *testing.T) {
	q := &fakeQueue{}
	p := &fakeProcessor{}
	n := &alertRecorder{}

	w := newTestWorker(q, p, n)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(p.processedIDs()) != 0 {
		t.Fatalf("no job should be processed after shutdown")
	}

	if got := q.closedTimes(); got != 1 {
		t.Fatalf("expected exactly 1 close, got %d", got)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.After(2 * time.Second)

	for {
		if cond() {
			return
		}

		select {
		case <-deadline:
			t.Fatalf("condition not reached in time")
		case <-time.After(time.Millisecond):
		}
	}
}
