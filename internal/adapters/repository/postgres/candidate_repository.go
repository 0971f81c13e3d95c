package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/candidate-lifecycle/internal/core/candidate"
	pgdb "github.com/ogurasousui/candidate-lifecycle/internal/platform/db/postgres"
)

const (
	uniqueViolationCode       = "23505"
	foreignKeyViolationCode   = "23503"
	checkViolationCode        = "23514"
	invalidTextRepresentation = "22P02"
)

const candidateColumns = `id, name, email, phone, batch, recruiter_id, stage, sub_status, last_active_stage,
               close_reason, withdraw_reason, hold_reason, next_follow_up_at, offer_type, start_date,
               version, created_at, updated_at`

const insertCandidateQuery = `
        INSERT INTO candidates (id, name, email, phone, batch, recruiter_id, stage, sub_status, version, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9, $10)
        RETURNING ` + candidateColumns

const selectCandidateQuery = `
        SELECT ` + candidateColumns + `
          FROM candidates
         WHERE id = $1
         LIMIT 1
    `

const updateCandidateQuery = `
        UPDATE candidates
           SET name = $1,
               email = $2,
               phone = $3,
               batch = $4,
               recruiter_id = $5,
               stage = $6,
               sub_status = $7,
               last_active_stage = $8,
               close_reason = $9,
               withdraw_reason = $10,
               hold_reason = $11,
               next_follow_up_at = $12,
               offer_type = $13,
               start_date = $14,
               updated_at = $15,
               version = version + 1
         WHERE id = $16 AND version = $17
        RETURNING ` + candidateColumns

const candidateExistsQuery = `SELECT EXISTS (SELECT 1 FROM candidates WHERE id = $1)`

const dueFollowUpsQuery = `
        SELECT ` + candidateColumns + `
          FROM candidates
         WHERE stage = 'ON_HOLD' AND next_follow_up_at <= $1
         ORDER BY next_follow_up_at ASC, id ASC
         LIMIT $2
    `

// CandidateRepository は PostgreSQL を利用した候補者永続化の実装です。
type CandidateRepository struct {
	pool pgdb.Queryer
}

// NewCandidateRepository は CandidateRepository を生成します。
func NewCandidateRepository(pool pgdb.Queryer) *CandidateRepository {
	return &CandidateRepository{pool: pool}
}

// Create は候補者を新規作成します。版は 1 から始まります。
func (r *CandidateRepository) Create(ctx context.Context, c *candidate.Candidate) (*candidate.Candidate, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, insertCandidateQuery,
		c.ID,
		c.Name,
		c.Email,
		c.Phone,
		c.Batch,
		c.RecruiterID,
		string(c.Stage),
		string(c.SubStatus),
		c.CreatedAt,
		c.UpdatedAt,
	)

	created, err := scanCandidate(row)
	if err != nil {
		return nil, translateCandidatePgError(err)
	}
	return created, nil
}

// FindByID は ID で候補者を取得します。
func (r *CandidateRepository) FindByID(ctx context.Context, id string) (*candidate.Candidate, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	found, err := scanCandidate(exec.QueryRow(ctx, selectCandidateQuery, id))
	if err != nil {
		return nil, translateCandidatePgError(err)
	}
	return found, nil
}

// Update は版が一致する場合のみ候補者を更新します。
// 行が返らなかった場合は存在確認を行い、存在すれば ErrConflict、存在しなければ ErrCandidateNotFound を返します。
func (r *CandidateRepository) Update(ctx context.Context, c *candidate.Candidate) (*candidate.Candidate, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, updateCandidateQuery,
		c.Name,
		c.Email,
		c.Phone,
		c.Batch,
		c.RecruiterID,
		string(c.Stage),
		string(c.SubStatus),
		nullableStage(c.LastActiveStage),
		nullableCloseReason(c.CloseReason),
		nullableString(c.WithdrawReason),
		nullableString(c.HoldReason),
		nullableTime(c.NextFollowUpAt),
		nullableOfferType(c.OfferType),
		nullableTime(c.StartDate),
		c.UpdatedAt,
		c.ID,
		c.Version,
	)

	updated, err := scanCandidate(row)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, candidate.ErrCandidateNotFound) {
		return nil, translateCandidatePgError(err)
	}

	var exists bool
	if err := exec.QueryRow(ctx, candidateExistsQuery, c.ID).Scan(&exists); err != nil {
		return nil, translateCandidatePgError(err)
	}
	if exists {
		return nil, fmt.Errorf("candidate %s version %d: %w", c.ID, c.Version, candidate.ErrConflict)
	}
	return nil, candidate.ErrCandidateNotFound
}

// ListDueFollowUps は asOf までにフォローアップ期日を迎えた保留中の候補者を期日の古い順に返します。
func (r *CandidateRepository) ListDueFollowUps(ctx context.Context, asOf time.Time, limit int) ([]*candidate.Candidate, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, dueFollowUpsQuery, asOf, limit)
	if err != nil {
		return nil, translateCandidatePgError(err)
	}
	defer rows.Close()

	due := make([]*candidate.Candidate, 0, limit)
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, translateCandidatePgError(err)
		}
		due = append(due, c)
	}
	if err := rows.Err(); err != nil {
		return nil, translateCandidatePgError(err)
	}
	return due, nil
}

func scanCandidate(row pgx.Row) (*candidate.Candidate, error) {
	var (
		c               candidate.Candidate
		stage           string
		subStatus       string
		lastActiveStage sql.NullString
		closeReason     sql.NullString
		withdrawReason  sql.NullString
		holdReason      sql.NullString
		nextFollowUpAt  sql.NullTime
		offerType       sql.NullString
		startDate       sql.NullTime
	)

	if err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Email,
		&c.Phone,
		&c.Batch,
		&c.RecruiterID,
		&stage,
		&subStatus,
		&lastActiveStage,
		&closeReason,
		&withdrawReason,
		&holdReason,
		&nextFollowUpAt,
		&offerType,
		&startDate,
		&c.Version,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, candidate.ErrCandidateNotFound
		}
		return nil, err
	}

	c.Stage = candidate.Stage(stage)
	c.SubStatus = candidate.SubStatus(subStatus)
	if lastActiveStage.Valid {
		st := candidate.Stage(lastActiveStage.String)
		c.LastActiveStage = &st
	}
	if closeReason.Valid {
		cr := candidate.CloseReason(closeReason.String)
		c.CloseReason = &cr
	}
	c.WithdrawReason = stringFromNull(withdrawReason)
	c.HoldReason = stringFromNull(holdReason)
	c.NextFollowUpAt = timeFromNull(nextFollowUpAt)
	if offerType.Valid {
		ot := candidate.OfferType(offerType.String)
		c.OfferType = &ot
	}
	if startDate.Valid {
		t := startDate.Time.UTC()
		date := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		c.StartDate = &date
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()

	return &c, nil
}

func translateCandidatePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			return fmt.Errorf("%s: %w", pgErr.ConstraintName, candidate.ErrConflict)
		case checkViolationCode:
			return fmt.Errorf("%s: %w", pgErr.ConstraintName, candidate.ErrInvalidStage)
		case invalidTextRepresentation:
			return candidate.ErrCandidateNotFound
		}
	}
	return err
}

func nullableStage(v *candidate.Stage) any {
	if v == nil {
		return nil
	}
	return string(*v)
}

func nullableCloseReason(v *candidate.CloseReason) any {
	if v == nil {
		return nil
	}
	return string(*v)
}

func nullableOfferType(v *candidate.OfferType) any {
	if v == nil {
		return nil
	}
	return string(*v)
}
