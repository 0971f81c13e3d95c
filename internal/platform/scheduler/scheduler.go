package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// FollowUpReminder は期日到来のフォローアップ通知を行うユースケースです。
type FollowUpReminder interface {
	RemindDueFollowUps(ctx context.Context) (int, error)
}

// Scheduler は robfig/cron でフォローアップ通知ジョブを定期実行します。
type Scheduler struct {
	cron     *cron.Cron
	reminder FollowUpReminder
	logger   *slog.Logger
	timeout  time.Duration
}

// New は spec (標準 5 フィールドの cron 式) でジョブを登録した Scheduler を生成します。
func New(spec string, reminder FollowUpReminder, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		reminder: reminder,
		logger:   logger,
		timeout:  time.Minute,
	}

	if _, err := s.cron.AddFunc(spec, s.runOnce); err != nil {
		return nil, fmt.Errorf("scheduler: add follow-up job %q: %w", spec, err)
	}
	return s, nil
}

// Start はスケジューラをバックグラウンドで開始し、ctx の終了で停止します。
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	s.logger.InfoContext(ctx, "follow-up scheduler started")

	go func() {
		<-ctx.Done()
		<-s.Stop().Done()
		s.logger.Info("follow-up scheduler stopped")
	}()
}

// Stop は新規実行を止め、実行中のジョブの完了で Done になるコンテキストを返します。
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	sent, err := s.reminder.RemindDueFollowUps(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "follow-up reminder failed", slog.Int("sent", sent), slog.Any("err", err))
		return
	}
	s.logger.InfoContext(ctx, "follow-up reminders sent", slog.Int("sent", sent))
}

// cronLogger は cron.Logger を slog に渡します。
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
