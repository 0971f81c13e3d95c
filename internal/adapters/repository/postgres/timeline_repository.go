package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/candidate-lifecycle/internal/core/timeline"
	pgdb "github.com/ogurasousui/candidate-lifecycle/internal/platform/db/postgres"
)

const insertTimelineEventQuery = `
        INSERT INTO timeline_events (id, candidate_id, event_type, event_date, title, description, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, candidate_id, event_type, event_date, title, description, seq, created_at
    `

const listTimelineEventsQuery = `
        SELECT id, candidate_id, event_type, event_date, title, description, seq, created_at
          FROM timeline_events
         WHERE candidate_id = $1
         ORDER BY event_date ASC, seq ASC
    `

// TimelineRepository は PostgreSQL を利用した追記専用の履歴ストアです。
type TimelineRepository struct {
	pool pgdb.Queryer
}

// NewTimelineRepository は TimelineRepository を生成します。
func NewTimelineRepository(pool pgdb.Queryer) *TimelineRepository {
	return &TimelineRepository{pool: pool}
}

// Append はイベントを追記し、採番された seq を含めて返します。
func (r *TimelineRepository) Append(ctx context.Context, ev *timeline.Event) (*timeline.Event, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, insertTimelineEventQuery,
		ev.ID,
		ev.CandidateID,
		string(ev.Type),
		ev.EventDate.UTC(),
		ev.Title,
		nullableString(ev.Description),
		ev.CreatedAt.UTC(),
	)

	appended, err := scanTimelineEvent(row)
	if err != nil {
		return nil, translateTimelinePgError(err)
	}
	return appended, nil
}

// ListByCandidate は候補者の履歴をイベント日時、追記順の昇順で返します。
func (r *TimelineRepository) ListByCandidate(ctx context.Context, candidateID string) ([]*timeline.Event, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, listTimelineEventsQuery, candidateID)
	if err != nil {
		return nil, translateTimelinePgError(err)
	}
	defer rows.Close()

	events := make([]*timeline.Event, 0)
	for rows.Next() {
		ev, err := scanTimelineEvent(rows)
		if err != nil {
			return nil, translateTimelinePgError(err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, translateTimelinePgError(err)
	}
	return events, nil
}

func scanTimelineEvent(row pgx.Row) (*timeline.Event, error) {
	var (
		ev          timeline.Event
		eventType   string
		description sql.NullString
	)

	if err := row.Scan(
		&ev.ID,
		&ev.CandidateID,
		&eventType,
		&ev.EventDate,
		&ev.Title,
		&description,
		&ev.Sequence,
		&ev.CreatedAt,
	); err != nil {
		return nil, err
	}

	ev.Type = timeline.EventType(eventType)
	ev.Description = stringFromNull(description)
	ev.EventDate = ev.EventDate.UTC()
	ev.CreatedAt = ev.CreatedAt.UTC()
	return &ev, nil
}

func translateTimelinePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			return timeline.ErrEventAlreadyExists
		case foreignKeyViolationCode, invalidTextRepresentation:
			return fmt.Errorf("%s: %w", pgErr.Message, timeline.ErrInvalidCandidateID)
		case checkViolationCode:
			return fmt.Errorf("%s: %w", pgErr.ConstraintName, timeline.ErrInvalidEventType)
		}
	}
	return err
}
