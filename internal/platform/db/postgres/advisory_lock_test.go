package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestAdvisoryLocker_WithLock(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	locker := NewAdvisoryLocker(NewTransactionManager(mock))

	mock.ExpectBeginTx(readWriteOpts)
	mock.ExpectExec(regexp.QuoteMeta(advisoryXactLockQuery)).
		WithArgs("candidate:c-1").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectCommit()

	err := locker.WithLock(context.Background(), "candidate:c-1", func(ctx context.Context) error {
		if _, ok := txFromContext(ctx); !ok {
			t.Fatal("fn must run inside the lock transaction")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithLock returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAdvisoryLocker_LockFailureSkipsFn(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	locker := NewAdvisoryLocker(NewTransactionManager(mock))

	lockErr := errors.New("canceling statement due to lock timeout")
	mock.ExpectBeginTx(readWriteOpts)
	mock.ExpectExec(regexp.QuoteMeta(advisoryXactLockQuery)).
		WithArgs("candidate:c-1").
		WillReturnError(lockErr)
	mock.ExpectRollback()

	err := locker.WithLock(context.Background(), "candidate:c-1", func(context.Context) error {
		t.Fatal("fn must not run without the lock")
		return nil
	})
	if !errors.Is(err, lockErr) {
		t.Fatalf("expected lock error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
