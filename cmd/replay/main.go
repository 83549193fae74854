// Command replay inspects the dead-letter store and re-enqueues failed
// jobs. Replay is deliberately operator-driven: nothing in the worker
// retries a dead-lettered job on its own.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/relawanns/regworker/internal/config"
	"github.com/relawanns/regworker/internal/jobs"
	"github.com/relawanns/regworker/internal/observability"
	"github.com/relawanns/regworker/internal/queue"
	"github.com/relawanns/regworker/internal/queue/redisclient"
)

func main() {
	var (
		list  = flag.Bool("list", false, "list dead-lettered jobs and exit")
		all   = flag.Bool("all", false, "replay every dead-lettered job")
		jobID = flag.String("id", "", "replay a single job by id")
		limit = flag.Int("limit", 0, "cap the number of jobs replayed (0 = no cap)")
	)

	flag.Parse()

	if !*list && !*all && *jobID == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	logger := observability.NewLogger(cfg.Env)

	redisCli, err := redisclient.New(cfg.RedisURL)

	if err != nil {
		log.Fatalf("redis setup failed: %v", err)
	}

	store := queue.NewStore(redisCli, logger)

	defer func() {
		_ = store.Close()
	}()

	ctx, cancel := config.WithTimeout(30 * time.Second)
	defer cancel()

	entries, err := store.FailedJobs(ctx)

	if err != nil {
		log.Fatalf("list failed jobs: %v", err)
	}

	if *list {
		if len(entries) == 0 {
			fmt.Println("dead-letter store is empty")
			return
		}

		for _, e := range entries {
			fmt.Printf("%s  registration=%d  failed_at=%s  error=%s\n",
				e.Job.ID,
				e.Job.RegistrationID,
				e.Job.Error.FailedAt.Format(time.RFC3339),
				e.Job.Error.Message,
			)
		}
		return
	}

	replayed, skipped := replayEntries(ctx, store, entries, *jobID, *limit)

	if *jobID != "" && replayed == 0 && skipped == 0 {
		log.Fatalf("job %s not found in dead-letter store", *jobID)
	}

	fmt.Printf("%d job(s) replayed, %d skipped\n", replayed, skipped)
}

type replayStore interface {
	Enqueue(ctx context.Context, job jobs.RegistrationJob) error
	RemoveFailed(ctx context.Context, raw string) error
}

// replayEntries puts dead-letter entries back on the queue. Entries that
// cannot be re-enqueued are skipped with a report, not fatal: a
// malformed-payload record carries no job fields and would otherwise block
// every valid job behind it.
func replayEntries(ctx context.Context, store replayStore, entries []queue.FailedEntry, jobID string, limit int) (replayed, skipped int) {
	for _, e := range entries {
		if jobID != "" && e.Job.ID != jobID {
			continue
		}

		if limit > 0 && replayed >= limit {
			break
		}

		if err := store.Enqueue(ctx, e.Job.RegistrationJob); err != nil {
			log.Printf("skipping %s: re-enqueue failed: %v", e.Job.ID, err)
			skipped++
			continue
		}

		if err := store.RemoveFailed(ctx, e.Raw); err != nil {
			// the job is back in the queue; leaving a stale dead-letter
			// entry beats losing it
			log.Printf("remove dead-letter entry for %s: %v", e.Job.ID, err)
		}

		fmt.Printf("replayed %s (registration %d)\n", e.Job.ID, e.Job.RegistrationID)
		replayed++
	}

	return replayed, skipped
}
