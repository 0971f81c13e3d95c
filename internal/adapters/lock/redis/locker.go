package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/ogurasousui/candidate-lifecycle/internal/core/candidate"
	goredis "github.com/redis/go-redis/v9"
)

// ErrLockTimeout は待ち時間内にロックを取得できなかった場合に返却されます。
var ErrLockTimeout = errors.New("redis lock: acquire timeout")

var errLockBusy = errors.New("redis lock: busy")

// releaseScript は自分が置いたトークンの場合だけキーを削除します。
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

type lockClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *goredis.Cmd
}

// Locker は Redis の SET NX PX でプロセスをまたいだキー単位の排他を行います。
// ロックは ttl で失効するため、fn は ttl より短く終わる前提です。
type Locker struct {
	client   lockClient
	prefix   string
	ttl      time.Duration
	wait     time.Duration
	newToken func() string
	logger   *slog.Logger
}

// Option は Locker の任意設定です。
type Option func(*Locker)

// WithLogger は解放失敗などを記録するロガーを設定します。
func WithLogger(logger *slog.Logger) Option {
	return func(l *Locker) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLocker は Locker を生成します。取得待ちの上限は ttl と同じです。
func NewLocker(client lockClient, ttl time.Duration, opts ...Option) *Locker {
	l := &Locker{
		client:   client,
		prefix:   "lock:",
		ttl:      ttl,
		wait:     ttl,
		newToken: uuid.NewString,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// WithLock は key のロックを取得して fn を実行し、終了後に解放します。
// fn が成功した後の解放失敗は Warn ログのみとし、nil を返します。キーは ttl で失効します。
func (l *Locker) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	redisKey := l.prefix + key
	token := l.newToken()

	if err := l.acquire(ctx, redisKey, token); err != nil {
		return err
	}

	fnErr := fn(ctx)

	// 呼び出し元の ctx が終了していても解放は試みる。
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := l.client.Eval(releaseCtx, releaseScript, []string{redisKey}, token).Err(); err != nil {
		releaseErr := fmt.Errorf("redis lock: release %s: %w", key, err)
		if fnErr != nil {
			return errors.Join(fnErr, releaseErr)
		}
		l.logger.WarnContext(ctx, "redis lock release failed; key expires by ttl",
			slog.String("key", redisKey),
			slog.Duration("ttl", l.ttl),
			slog.Any("err", err),
		)
	}

	return fnErr
}

func (l *Locker) acquire(ctx context.Context, key, token string) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 10 * time.Millisecond
	policy.MaxInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = l.wait

	err := backoff.Retry(func() error {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return backoff.Permanent(fmt.Errorf("redis lock: acquire %s: %w", key, err))
		}
		if !ok {
			return errLockBusy
		}
		return nil
	}, backoff.WithContext(policy, ctx))

	switch {
	case err == nil:
		return nil
	case errors.Is(err, errLockBusy):
		return fmt.Errorf("%s: %w: %w", key, ErrLockTimeout, candidate.ErrLockUnavailable)
	default:
		return err
	}
}
