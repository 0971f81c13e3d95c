package candidate

import (
	"context"
	"sync"
)

// Locker は候補者単位の排他制御を提供します。同じ key の fn は同時に実行されません。
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(context.Context) error) error
}

// LocalLocker はプロセス内でキーごとに排他する Locker です。
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	token chan struct{}
	refs  int
}

// NewLocalLocker は LocalLocker を生成します。
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]*lockSlot)}
}

// WithLock は key のロックを取得して fn を実行します。取得待ちの間に ctx が終了した場合は ctx.Err() を返します。
func (l *LocalLocker) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	slot := l.retain(key)
	defer l.release(key, slot)

	select {
	case slot.token <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-slot.token }()

	return fn(ctx)
}

func (l *LocalLocker) retain(key string) *lockSlot {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot, ok := l.slots[key]
	if !ok {
		slot = &lockSlot{token: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	return slot
}

func (l *LocalLocker) release(key string, slot *lockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, key)
	}
}
