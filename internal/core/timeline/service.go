package timeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// Recorder はタイムラインへの追記と参照のユースケースです。
type Recorder struct {
	repo  Repository
	clock Clock
	newID func() string
}

// UseCase はタイムラインユースケースの公開インターフェースです。
type UseCase interface {
	Append(ctx context.Context, candidateID string, event Event) (*Event, error)
	List(ctx context.Context, candidateID string) ([]*Event, error)
}

// NewRecorder は Recorder を生成します。
func NewRecorder(repo Repository, clock Clock) *Recorder {
	if clock == nil {
		clock = realClock{}
	}
	return &Recorder{repo: repo, clock: clock, newID: uuid.NewString}
}

// Append は candidateID の履歴にイベントを追記します。ID と日時が未設定の場合は補完します。
func (r *Recorder) Append(ctx context.Context, candidateID string, event Event) (*Event, error) {
	candidateID = strings.TrimSpace(candidateID)
	if candidateID == "" {
		return nil, ErrInvalidCandidateID
	}
	if !IsValidEventType(event.Type) {
		return nil, fmt.Errorf("%q: %w", event.Type, ErrInvalidEventType)
	}

	title := strings.TrimSpace(event.Title)
	if title == "" {
		return nil, ErrInvalidTitle
	}

	now := r.clock.Now()
	ev := &Event{
		ID:          event.ID,
		CandidateID: candidateID,
		Type:        event.Type,
		EventDate:   event.EventDate,
		Title:       title,
		Description: normalizeDescription(event.Description),
		CreatedAt:   now,
	}
	if ev.ID == "" {
		ev.ID = r.newID()
	}
	if ev.EventDate.IsZero() {
		ev.EventDate = now
	}

	return r.repo.Append(ctx, ev)
}

// List は candidateID の履歴をイベント日時の昇順、同時刻は追記順で返します。
func (r *Recorder) List(ctx context.Context, candidateID string) ([]*Event, error) {
	candidateID = strings.TrimSpace(candidateID)
	if candidateID == "" {
		return nil, ErrInvalidCandidateID
	}

	events, err := r.repo.ListByCandidate(ctx, candidateID)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].EventDate.Equal(events[j].EventDate) {
			return events[i].EventDate.Before(events[j].EventDate)
		}
		return events[i].Sequence < events[j].Sequence
	})

	return events, nil
}

func normalizeDescription(desc *string) *string {
	if desc == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*desc)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
