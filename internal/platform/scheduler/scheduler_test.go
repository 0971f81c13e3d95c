package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
)

type countingReminder struct {
	calls atomic.Int32
	err   error
}

func (r *countingReminder) RemindDueFollowUps(context.Context) (int, error) {
	r.calls.Add(1)
	return 3, r.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_RejectsInvalidSpec(t *testing.T) {
	t.Parallel()

	if _, err := New("every morning", &countingReminder{}, discardLogger()); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}

func TestScheduler_RegistersSingleJob(t *testing.T) {
	t.Parallel()

	s, err := New("0 9 * * *", &countingReminder{}, discardLogger())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if got := len(s.cron.Entries()); got != 1 {
		t.Fatalf("expected 1 entry, got %d", got)
	}
}

func TestScheduler_RunOnce(t *testing.T) {
	t.Parallel()

	reminder := &countingReminder{}
	s, err := New("@every 1h", reminder, discardLogger())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	s.runOnce()
	reminder.err = errors.New("redis down")
	s.runOnce()

	if got := reminder.calls.Load(); got != 2 {
		t.Fatalf("expected 2 calls, got %d", got)
	}
}

func TestScheduler_StartStopsWithContext(t *testing.T) {
	t.Parallel()

	s, err := New("@every 1h", &countingReminder{}, discardLogger())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()

	<-s.Stop().Done()
}
