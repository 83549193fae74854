package main

import (
	"context"
	"errors"
	"testing"

	"github.com/relawanns/regworker/internal/jobs"
	"github.com/relawanns/regworker/internal/queue"
)

type fakeReplayStore struct {
	enqueued   []string
	removed    []string
	enqueueErr map[string]error
}

func (s *fakeReplayStore) Enqueue(ctx context.Context, job jobs.RegistrationJob) error {
	if err, ok := s.enqueueErr[job.ID]; ok {
		return err
	}

	s.enqueued = append(s.enqueued, job.ID)
	return nil
}

func (s *fakeReplayStore) RemoveFailed(ctx context.Context, raw string) error {
	s.removed = append(s.removed, raw)
	return nil
}

func entry(id string) queue.FailedEntry {
	return queue.FailedEntry{
		Job: jobs.FailedJob{
			RegistrationJob: jobs.RegistrationJob{ID: id, RegistrationID: 1},
		},
		Raw: "raw-" + id,
	}
}

func TestReplayEntries_SkipsUnreplayableEntries(t *testing.T) {
	// a malformed-payload record has no job fields and its id is empty
	store := &fakeReplayStore{
		enqueueErr: map[string]error{"": errors.New("missing proof file")},
	}

	entries := []queue.FailedEntry{entry(""), entry("good-1"), entry("good-2")}

	replayed, skipped := replayEntries(context.Background(), store, entries, "", 0)

	if replayed != 2 || skipped != 1 {
		t.Fatalf("got replayed=%d skipped=%d, want 2/1", replayed, skipped)
	}

	if len(store.enqueued) != 2 || store.enqueued[0] != "good-1" || store.enqueued[1] != "good-2" {
		t.Fatalf("unexpected enqueued set: %v", store.enqueued)
	}

	// only replayed entries leave the dead-letter store
	if len(store.removed) != 2 || store.removed[0] != "raw-good-1" {
		t.Fatalf("unexpected removed set: %v", store.removed)
	}
}

func TestReplayEntries_ByID(t *testing.T) {
	store := &fakeReplayStore{}

	entries := []queue.FailedEntry{entry("a"), entry("b"), entry("c")}

	replayed, skipped := replayEntries(context.Background(), store, entries, "b", 0)

	if replayed != 1 || skipped != 0 {
		t.Fatalf("got replayed=%d skipped=%d, want 1/0", replayed, skipped)
	}

	if len(store.enqueued) != 1 || store.enqueued[0] != "b" {
		t.Fatalf("unexpected enqueued set: %v", store.enqueued)
	}
}

func TestReplayEntries_LimitCountsReplayedOnly(t *testing.T) {
	store := &fakeReplayStore{
		enqueueErr: map[string]error{"a": errors.New("missing proof file")},
	}

	entries := []queue.FailedEntry{entry("a"), entry("b"), entry("c")}

	replayed, skipped := replayEntries(context.Background(), store, entries, "", 1)

	if replayed != 1 || skipped != 1 {
		t.Fatalf("got replayed=%d skipped=%d, want 1/1", replayed, skipped)
	}

	if len(store.enqueued) != 1 || store.enqueued[0] != "b" {
		t.Fatalf("unexpected enqueued set: %v", store.enqueued)
	}
}
