package postgres

import (
	"context"
	"fmt"
)

const advisoryXactLockQuery = `SELECT pg_advisory_xact_lock(hashtext($1))`

// AdvisoryLocker はトランザクションスコープのアドバイザリロックでキー単位の排他を行います。
// ロックは fn を包む書き込みトランザクションの終了時に解放されるため、fn 内の処理は同じトランザクションに参加させます。
type AdvisoryLocker struct {
	tx *TransactionManager
}

// NewAdvisoryLocker は AdvisoryLocker を生成します。
func NewAdvisoryLocker(tx *TransactionManager) *AdvisoryLocker {
	return &AdvisoryLocker{tx: tx}
}

// WithLock は key のアドバイザリロックを取得してから fn を実行します。
func (l *AdvisoryLocker) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	return l.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		q := QueryerFromContext(txCtx, nil)
		if q == nil {
			return fmt.Errorf("postgres: advisory lock requires a transaction")
		}
		if _, err := q.Exec(txCtx, advisoryXactLockQuery, key); err != nil {
			return fmt.Errorf("postgres: advisory lock %s: %w", key, err)
		}
		return fn(txCtx)
	})
}
