package candidate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLocalLocker_SerializesSameKey(t *testing.T) {
	t.Parallel()

	locker := NewLocalLocker()
	ctx := context.Background()

	var (
		inside  int32
		maxSeen int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = locker.WithLock(ctx, "candidate:1", func(context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxSeen)
					if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Fatalf("expected at most one holder, saw %d", maxSeen)
	}
	if len(locker.slots) != 0 {
		t.Fatalf("expected slots to be released, got %d", len(locker.slots))
	}
}

func TestLocalLocker_DifferentKeysDoNotBlock(t *testing.T) {
	t.Parallel()

	locker := NewLocalLocker()
	ctx := context.Background()

	err := locker.WithLock(ctx, "a", func(context.Context) error {
		return locker.WithLock(ctx, "b", func(context.Context) error { return nil })
	})
	if err != nil {
		t.Fatalf("WithLock returned error: %v", err)
	}
}

func TestLocalLocker_ContextCanceledWhileWaiting(t *testing.T) {
	t.Parallel()

	locker := NewLocalLocker()
	held := make(chan struct{})
	done := make(chan struct{})

	go func() {
		_ = locker.WithLock(context.Background(), "k", func(context.Context) error {
			close(held)
			<-done
			return nil
		})
	}()
	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	called := false
	err := locker.WithLock(ctx, "k", func(context.Context) error {
		called = true
		return nil
	})
	close(done)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if called {
		t.Fatal("fn must not run without the lock")
	}
}

func TestLocalLocker_PropagatesError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	err := NewLocalLocker().WithLock(context.Background(), "k", func(context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}
