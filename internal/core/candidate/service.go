package candidate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/ogurasousui/candidate-lifecycle/internal/core/timeline"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

const (
	defaultFollowUpLimit   = 100
	maxFollowUpLimit       = 500
	defaultConflictRetries = 2
	defaultConflictBackoff = 50 * time.Millisecond
	lockKeyPrefix          = "candidate:"
)

// Service は候補者ライフサイクルの唯一の変更窓口です。
// 同一候補者への要求は Locker で直列化され、読み込みから保存・履歴追記までを一つのトランザクションで行います。
type Service struct {
	repo      Repository
	timeline  timeline.UseCase
	clock     Clock
	tx        TransactionManager
	locker    Locker
	publisher EventPublisher
	logger    *slog.Logger
	validate  *validator.Validate
	newID     func() string

	conflictRetries int
	conflictBackoff time.Duration
}

// UseCase は候補者ユースケースの公開インターフェースです。
type UseCase interface {
	CreateCandidate(ctx context.Context, in CreateCandidateInput) (*Candidate, error)
	GetCandidate(ctx context.Context, in GetCandidateInput) (*Candidate, error)
	RequestTransition(ctx context.Context, in TransitionInput) (*Candidate, error)
	RequestSubStatusUpdate(ctx context.Context, in UpdateSubStatusInput) (*Candidate, error)
	ListTimeline(ctx context.Context, in ListTimelineInput) ([]*timeline.Event, error)
	GetTransitionOptions(ctx context.Context, in GetTransitionOptionsInput) ([]TransitionOption, error)
	ListDueFollowUps(ctx context.Context, in ListDueFollowUpsInput) ([]*Candidate, error)
}

// Option は Service の任意設定です。
type Option func(*Service)

// WithLocker は候補者単位の排他制御を差し替えます。
func WithLocker(l Locker) Option {
	return func(s *Service) {
		if l != nil {
			s.locker = l
		}
	}
}

// WithPublisher はコミット後のイベント通知先を設定します。
func WithPublisher(p EventPublisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithLogger はロガーを設定します。
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithConflictRetry は保存時の競合に対する再試行回数と間隔を設定します。retries が 0 の場合は再試行しません。
func WithConflictRetry(retries int, wait time.Duration) Option {
	return func(s *Service) {
		if retries >= 0 {
			s.conflictRetries = retries
		}
		if wait >= 0 {
			s.conflictBackoff = wait
		}
	}
}

// WithIDGenerator は候補者 ID の採番方法を差し替えます。
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewService は Service を生成します。
func NewService(repo Repository, recorder timeline.UseCase, clock Clock, tx TransactionManager, opts ...Option) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	s := &Service{
		repo:            repo,
		timeline:        recorder,
		clock:           clock,
		tx:              tx,
		locker:          NewLocalLocker(),
		publisher:       noopPublisher{},
		logger:          slog.Default(),
		validate:        validator.New(validator.WithRequiredStructEnabled()),
		newID:           uuid.NewString,
		conflictRetries: defaultConflictRetries,
		conflictBackoff: defaultConflictBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateCandidateInput は候補者登録時の入力です。
type CreateCandidateInput struct {
	Name        string `validate:"required,max=200"`
	Email       string `validate:"omitempty,email,max=320"`
	Phone       string `validate:"max=50"`
	Batch       string `validate:"max=100"`
	RecruiterID string `validate:"max=100"`
}

// GetCandidateInput は候補者取得時の入力です。
type GetCandidateInput struct {
	ID string
}

// TransitionInput はステージ遷移要求の入力です。
type TransitionInput struct {
	CandidateID string
	Request     TransitionRequest
}

// UpdateSubStatusInput はサブステータス更新要求の入力です。
type UpdateSubStatusInput struct {
	CandidateID string
	SubStatus   SubStatus
	Reason      string
}

// ListTimelineInput は履歴取得時の入力です。
type ListTimelineInput struct {
	CandidateID string
}

// GetTransitionOptionsInput は遷移候補取得時の入力です。
type GetTransitionOptionsInput struct {
	CandidateID string
}

// TransitionOption は現在の状態から選べる遷移先と、その遷移で必須となる入力項目です。
type TransitionOption struct {
	ToStage        Stage
	RequiredFields []string
}

// ListDueFollowUpsInput はフォローアップ期日到来一覧の入力です。AsOf が未指定なら現在時刻を使います。
type ListDueFollowUpsInput struct {
	AsOf  time.Time
	Limit int
}

// CreateCandidate は SOURCING ステージの候補者を登録し、CANDIDATE_CREATED を記録します。
func (s *Service) CreateCandidate(ctx context.Context, in CreateCandidateInput) (*Candidate, error) {
	in = CreateCandidateInput{
		Name:        strings.TrimSpace(in.Name),
		Email:       strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:       strings.TrimSpace(in.Phone),
		Batch:       strings.TrimSpace(in.Batch),
		RecruiterID: strings.TrimSpace(in.RecruiterID),
	}
	if err := s.validateCreateInput(in); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	c := &Candidate{
		ID:          s.newID(),
		Name:        in.Name,
		Email:       in.Email,
		Phone:       in.Phone,
		Batch:       in.Batch,
		RecruiterID: in.RecruiterID,
		Stage:       StageSourcing,
		SubStatus:   InitialSubStatus(StageSourcing),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var created *Candidate
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		result, err := s.repo.Create(txCtx, c)
		if err != nil {
			return err
		}

		if _, err := s.timeline.Append(txCtx, result.ID, timeline.Event{
			Type:        timeline.EventCandidateCreated,
			EventDate:   now,
			Title:       "Candidate created",
			Description: stringPtr(fmt.Sprintf("Entered %s (%s)", result.Stage, result.SubStatus)),
		}); err != nil {
			return fmt.Errorf("append timeline: %w", err)
		}

		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	s.publish(ctx, LifecycleEvent{
		Type:        LifecycleCandidateCreated,
		CandidateID: created.ID,
		ToStage:     created.Stage,
		ToSubStatus: created.SubStatus,
		OccurredAt:  now,
	})

	return created, nil
}

// GetCandidate は ID で候補者を取得します。
func (s *Service) GetCandidate(ctx context.Context, in GetCandidateInput) (*Candidate, error) {
	id, err := normalizeID(in.ID)
	if err != nil {
		return nil, err
	}

	var found *Candidate
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		c, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		found = c
		return nil
	}); err != nil {
		return nil, err
	}
	return found, nil
}

// RequestTransition は候補者のステージを変更します。
// ガードに失敗した場合は *GuardFailure を返し、候補者も履歴も変更しません。
func (s *Service) RequestTransition(ctx context.Context, in TransitionInput) (*Candidate, error) {
	id, err := normalizeID(in.CandidateID)
	if err != nil {
		return nil, err
	}

	var (
		from   Stage
		reason string
	)
	before, after, err := s.mutate(ctx, id, func(c *Candidate, now time.Time) ([]timeline.Event, error) {
		from = c.Stage
		events, err := applyTransition(c, in.Request, now)
		if err != nil {
			return nil, err
		}
		reason = effectiveReason(from, in.Request)
		return events, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "candidate stage changed",
		slog.String("candidate_id", id),
		slog.String("from", string(before.Stage)),
		slog.String("to", string(after.Stage)),
	)
	s.publish(ctx, LifecycleEvent{
		Type:          LifecycleStageChanged,
		CandidateID:   id,
		FromStage:     before.Stage,
		ToStage:       after.Stage,
		FromSubStatus: before.SubStatus,
		ToSubStatus:   after.SubStatus,
		Reason:        reason,
		OccurredAt:    after.UpdatedAt,
	})

	return after, nil
}

// RequestSubStatusUpdate は現在のステージ内でサブステータスを変更します。
func (s *Service) RequestSubStatusUpdate(ctx context.Context, in UpdateSubStatusInput) (*Candidate, error) {
	id, err := normalizeID(in.CandidateID)
	if err != nil {
		return nil, err
	}

	before, after, err := s.mutate(ctx, id, func(c *Candidate, now time.Time) ([]timeline.Event, error) {
		return applySubStatus(c, in.SubStatus, in.Reason, now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "candidate sub status changed",
		slog.String("candidate_id", id),
		slog.String("stage", string(after.Stage)),
		slog.String("from", string(before.SubStatus)),
		slog.String("to", string(after.SubStatus)),
	)
	s.publish(ctx, LifecycleEvent{
		Type:          LifecycleSubStatusChanged,
		CandidateID:   id,
		FromStage:     before.Stage,
		ToStage:       after.Stage,
		FromSubStatus: before.SubStatus,
		ToSubStatus:   after.SubStatus,
		Reason:        strings.TrimSpace(in.Reason),
		OccurredAt:    after.UpdatedAt,
	})

	return after, nil
}

// ListTimeline は候補者の履歴を古い順に返します。
func (s *Service) ListTimeline(ctx context.Context, in ListTimelineInput) ([]*timeline.Event, error) {
	id, err := normalizeID(in.CandidateID)
	if err != nil {
		return nil, err
	}

	var events []*timeline.Event
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.FindByID(txCtx, id); err != nil {
			return err
		}
		result, err := s.timeline.List(txCtx, id)
		if err != nil {
			return err
		}
		events = result
		return nil
	}); err != nil {
		return nil, err
	}
	return events, nil
}

// GetTransitionOptions は現在のステージから選べる遷移先と必須項目を返します。
func (s *Service) GetTransitionOptions(ctx context.Context, in GetTransitionOptionsInput) ([]TransitionOption, error) {
	c, err := s.GetCandidate(ctx, GetCandidateInput{ID: in.CandidateID})
	if err != nil {
		return nil, err
	}

	next := AllowedNext(c.Stage)
	options := make([]TransitionOption, 0, len(next))
	for _, to := range next {
		options = append(options, TransitionOption{ToStage: to, RequiredFields: RequiredFields(c, to)})
	}
	return options, nil
}

// ListDueFollowUps は保留中でフォローアップ期日が到来した候補者を返します。
func (s *Service) ListDueFollowUps(ctx context.Context, in ListDueFollowUpsInput) ([]*Candidate, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = defaultFollowUpLimit
	}
	if limit > maxFollowUpLimit {
		limit = maxFollowUpLimit
	}

	asOf := in.AsOf
	if asOf.IsZero() {
		asOf = s.clock.Now()
	}

	var due []*Candidate
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.ListDueFollowUps(txCtx, asOf, limit)
		if err != nil {
			return err
		}
		due = result
		return nil
	}); err != nil {
		return nil, err
	}
	return due, nil
}

// RemindDueFollowUps は期日到来の候補者ごとに FOLLOW_UP_DUE を通知し、通知できた件数を返します。
// 候補者の状態と履歴は変更しません。
func (s *Service) RemindDueFollowUps(ctx context.Context) (int, error) {
	due, err := s.ListDueFollowUps(ctx, ListDueFollowUpsInput{Limit: maxFollowUpLimit})
	if err != nil {
		return 0, err
	}

	now := s.clock.Now()
	sent := 0
	var errs []error
	for _, c := range due {
		reason := ""
		if c.HoldReason != nil {
			reason = *c.HoldReason
		}
		if err := s.publisher.Publish(ctx, LifecycleEvent{
			Type:        LifecycleFollowUpDue,
			CandidateID: c.ID,
			FromStage:   c.Stage,
			ToStage:     c.Stage,
			Reason:      reason,
			OccurredAt:  now,
		}); err != nil {
			errs = append(errs, fmt.Errorf("candidate %s: %w", c.ID, err))
			continue
		}
		sent++
	}
	return sent, errors.Join(errs...)
}

// mutate は候補者単位のロックとトランザクションの中で読み込み・変更・保存・履歴追記を行います。
// apply は読み込んだ候補者の複製を変更し、追記するイベントを返します。
// 保存時に ErrConflict が返った場合は読み込みからやり直します。
func (s *Service) mutate(ctx context.Context, id string, apply func(c *Candidate, now time.Time) ([]timeline.Event, error)) (*Candidate, *Candidate, error) {
	var before, after *Candidate

	attempt := func() error {
		return s.locker.WithLock(ctx, lockKeyPrefix+id, func(lockCtx context.Context) error {
			return s.tx.WithinReadWrite(lockCtx, func(txCtx context.Context) error {
				current, err := s.repo.FindByID(txCtx, id)
				if err != nil {
					return err
				}

				working := cloneCandidate(current)
				events, err := apply(working, s.clock.Now())
				if err != nil {
					return err
				}
				if !IsValidSubStatus(working.Stage, working.SubStatus) {
					return fmt.Errorf("sub status %q for stage %s: %w", working.SubStatus, working.Stage, ErrInvalidSubStatus)
				}

				saved, err := s.repo.Update(txCtx, working)
				if err != nil {
					return err
				}

				for _, ev := range events {
					if _, err := s.timeline.Append(txCtx, id, ev); err != nil {
						return fmt.Errorf("append timeline: %w", err)
					}
				}

				before, after = current, saved
				return nil
			})
		})
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.conflictBackoff), uint64(s.conflictRetries)),
		ctx,
	)
	err := backoff.Retry(func() error {
		err := attempt()
		if err == nil || errors.Is(err, ErrConflict) {
			return err
		}
		return backoff.Permanent(err)
	}, policy)
	if err != nil {
		return nil, nil, err
	}
	return before, after, nil
}

func (s *Service) publish(ctx context.Context, event LifecycleEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "publish lifecycle event failed",
			slog.String("type", string(event.Type)),
			slog.String("candidate_id", event.CandidateID),
			slog.Any("err", err),
		)
	}
}

func (s *Service) validateCreateInput(in CreateCandidateInput) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, fe := range verrs {
		switch fe.Field() {
		case "Name":
			return fmt.Errorf("name: %w", ErrInvalidName)
		case "Email":
			return fmt.Errorf("email: %w", ErrInvalidEmail)
		}
	}
	return fmt.Errorf("%s: %s: %w", verrs[0].Field(), verrs[0].Tag(), ErrInvalidInput)
}

// applyTransition はガードを評価し、成功した場合のみ c を遷移後の状態にします。
func applyTransition(c *Candidate, req TransitionRequest, now time.Time) ([]timeline.Event, error) {
	if err := EvaluateTransition(c, req, now); err != nil {
		return nil, err
	}

	from := c.Stage
	to := req.ToStage

	if from.IsActiveFlow() && to.IsBranch() {
		last := from
		c.LastActiveStage = &last
	}
	if from.IsBranch() && to.IsActiveFlow() {
		c.CloseReason = nil
		c.WithdrawReason = nil
		c.HoldReason = nil
		c.NextFollowUpAt = nil
	}

	switch to {
	case StageEliminated:
		reason := CloseReason(strings.TrimSpace(req.CloseReason))
		c.CloseReason = &reason
	case StageWithdrawn:
		c.WithdrawReason = stringPtr(strings.TrimSpace(req.WithdrawReason))
	case StageOnHold:
		c.HoldReason = stringPtr(strings.TrimSpace(req.HoldReason))
		c.NextFollowUpAt = cloneTime(req.NextFollowUpAt)
	case StageOffered:
		offer := OfferType(strings.TrimSpace(req.OfferType))
		c.OfferType = &offer
	case StagePlaced:
		c.StartDate = cloneTime(req.StartDate)
	}

	c.Stage = to
	c.SubStatus = InitialSubStatus(to)
	c.UpdatedAt = now

	events := []timeline.Event{{
		Type:        timeline.EventStageChanged,
		EventDate:   now,
		Title:       fmt.Sprintf("Moved to %s", to),
		Description: stringPtr(effectiveReason(from, req)),
	}}
	if marker, ok := markerEvent(req, now); ok {
		events = append(events, marker)
	}
	return events, nil
}

func applySubStatus(c *Candidate, subStatus SubStatus, reason string, now time.Time) ([]timeline.Event, error) {
	if !containsSubStatus(SubStatusesFor(c.Stage), subStatus) {
		return nil, fmt.Errorf("sub status %q is not valid in stage %s: %w", subStatus, c.Stage, ErrInvalidSubStatus)
	}
	if subStatus == c.SubStatus {
		return nil, fmt.Errorf("sub status is already %s: %w", subStatus, ErrNoChange)
	}

	c.SubStatus = subStatus
	c.UpdatedAt = now

	var desc *string
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		desc = &trimmed
	}
	return []timeline.Event{{
		Type:        timeline.EventSubStatusChanged,
		EventDate:   now,
		Title:       fmt.Sprintf("Sub-status changed to %s", subStatus),
		Description: desc,
	}}, nil
}

// effectiveReason は履歴に残す遷移理由を決めます。明示的な reason が最優先です。
func effectiveReason(from Stage, req TransitionRequest) string {
	if r := strings.TrimSpace(req.Reason); r != "" {
		return r
	}
	if from.IsBranch() && req.ToStage.IsActiveFlow() {
		if r := strings.TrimSpace(req.ReactivateReason); r != "" {
			return r
		}
	}
	switch req.ToStage {
	case StageEliminated:
		return fmt.Sprintf("Close reason: %s", strings.TrimSpace(req.CloseReason))
	case StageWithdrawn:
		return strings.TrimSpace(req.WithdrawReason)
	case StageOnHold:
		return strings.TrimSpace(req.HoldReason)
	}
	return fmt.Sprintf("Moved to %s", req.ToStage)
}

// markerEvent は分岐・オファー・配属の各ステージに入る際に追加で記録するイベントを返します。
func markerEvent(req TransitionRequest, now time.Time) (timeline.Event, bool) {
	ev := timeline.Event{EventDate: now}
	switch req.ToStage {
	case StageOnHold:
		ev.Type = timeline.EventOnHold
		ev.Title = "Put on hold"
		ev.Description = stringPtr(fmt.Sprintf("%s (follow up on %s)",
			strings.TrimSpace(req.HoldReason), req.NextFollowUpAt.UTC().Format(time.DateOnly)))
	case StageEliminated:
		ev.Type = timeline.EventEliminated
		ev.Title = "Eliminated"
		ev.Description = stringPtr(strings.TrimSpace(req.CloseReason))
	case StageWithdrawn:
		ev.Type = timeline.EventWithdrawn
		ev.Title = "Withdrawn"
		ev.Description = stringPtr(strings.TrimSpace(req.WithdrawReason))
	case StageOffered:
		ev.Type = timeline.EventOffered
		ev.Title = "Offer received"
		ev.Description = stringPtr(fmt.Sprintf("Offer type %s", strings.TrimSpace(req.OfferType)))
	case StagePlaced:
		ev.Type = timeline.EventPlaced
		ev.Title = "Placed"
		ev.Description = stringPtr(fmt.Sprintf("Start date %s", req.StartDate.UTC().Format(time.DateOnly)))
	default:
		return timeline.Event{}, false
	}
	return ev, true
}

func normalizeID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", fmt.Errorf("id: %w", ErrInvalidID)
	}
	return id, nil
}

func containsSubStatus(list []SubStatus, v SubStatus) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func stringPtr(s string) *string {
	return &s
}
