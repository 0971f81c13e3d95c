package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ogurasousui/candidate-lifecycle/internal/core/candidate"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

var candidateColumnNames = []string{
	"id", "name", "email", "phone", "batch", "recruiter_id", "stage", "sub_status", "last_active_stage",
	"close_reason", "withdraw_reason", "hold_reason", "next_follow_up_at", "offer_type", "start_date",
	"version", "created_at", "updated_at",
}

func newCandidateMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func TestCandidateRepository_Create(t *testing.T) {
	t.Parallel()

	mock := newCandidateMock(t)
	repo := NewCandidateRepository(mock)
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows(candidateColumnNames).
		AddRow("c-1", "Asha", "asha@example.com", "", "2025-06", "", "SOURCING", "SOURCED", nil,
			nil, nil, nil, nil, nil, nil, int64(1), now, now)

	mock.ExpectQuery(regexp.QuoteMeta(insertCandidateQuery)).
		WithArgs("c-1", "Asha", "asha@example.com", "", "2025-06", "", "SOURCING", "SOURCED", now, now).
		WillReturnRows(rows)

	created, err := repo.Create(context.Background(), &candidate.Candidate{
		ID:        "c-1",
		Name:      "Asha",
		Email:     "asha@example.com",
		Batch:     "2025-06",
		Stage:     candidate.StageSourcing,
		SubStatus: candidate.SubStatusSourced,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.Version != 1 || created.Stage != candidate.StageSourcing || created.LastActiveStage != nil {
		t.Fatalf("unexpected candidate %+v", created)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCandidateRepository_FindByID_ScansBranchContext(t *testing.T) {
	t.Parallel()

	mock := newCandidateMock(t)
	repo := NewCandidateRepository(mock)
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	followUp := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows(candidateColumnNames).
		AddRow("c-1", "Asha", "", "", "", "rec-9", "ON_HOLD", "AWAITING_FOLLOW_UP", "MOCKING",
			nil, nil, "visa", followUp, "W2", nil, int64(4), now, now)

	mock.ExpectQuery(regexp.QuoteMeta(selectCandidateQuery)).
		WithArgs("c-1").
		WillReturnRows(rows)

	c, err := repo.FindByID(context.Background(), "c-1")
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if st, ok := c.ResumeStage(); !ok || st != candidate.StageMocking {
		t.Fatalf("expected resume stage MOCKING, got %q %v", st, ok)
	}
	if c.HoldReason == nil || *c.HoldReason != "visa" {
		t.Fatalf("unexpected hold reason %v", c.HoldReason)
	}
	if c.NextFollowUpAt == nil || !c.NextFollowUpAt.Equal(followUp) {
		t.Fatalf("unexpected follow up %v", c.NextFollowUpAt)
	}
	if c.OfferType == nil || *c.OfferType != candidate.OfferTypeW2 {
		t.Fatalf("unexpected offer type %v", c.OfferType)
	}
	if c.CloseReason != nil || c.WithdrawReason != nil || c.StartDate != nil {
		t.Fatalf("expected nil optional fields, got %+v", c)
	}
}

func TestCandidateRepository_FindByID_NotFound(t *testing.T) {
	t.Parallel()

	mock := newCandidateMock(t)
	repo := NewCandidateRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(selectCandidateQuery)).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(candidateColumnNames))

	if _, err := repo.FindByID(context.Background(), "missing"); !errors.Is(err, candidate.ErrCandidateNotFound) {
		t.Fatalf("expected ErrCandidateNotFound, got %v", err)
	}
}

func TestCandidateRepository_Update(t *testing.T) {
	t.Parallel()

	mock := newCandidateMock(t)
	repo := NewCandidateRepository(mock)
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	last := candidate.StageTraining
	reason := candidate.CloseReasonNoHomework

	rows := pgxmock.NewRows(candidateColumnNames).
		AddRow("c-1", "Asha", "", "", "", "", "ELIMINATED", "", "TRAINING",
			"NO_HOMEWORK", nil, nil, nil, nil, nil, int64(3), now, now)

	mock.ExpectQuery(regexp.QuoteMeta(updateCandidateQuery)).
		WithArgs("Asha", "", "", "", "", "ELIMINATED", "", "TRAINING", "NO_HOMEWORK",
			nil, nil, nil, nil, nil, now, "c-1", int64(2)).
		WillReturnRows(rows)

	updated, err := repo.Update(context.Background(), &candidate.Candidate{
		ID:              "c-1",
		Name:            "Asha",
		Stage:           candidate.StageEliminated,
		SubStatus:       candidate.SubStatusNone,
		LastActiveStage: &last,
		CloseReason:     &reason,
		Version:         2,
		UpdatedAt:       now,
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Version != 3 || updated.CloseReason == nil || *updated.CloseReason != reason {
		t.Fatalf("unexpected candidate %+v", updated)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCandidateRepository_Update_VersionMismatch(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		exists bool
		want   error
	}{
		{"stale version", true, candidate.ErrConflict},
		{"deleted row", false, candidate.ErrCandidateNotFound},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			mock := newCandidateMock(t)
			repo := NewCandidateRepository(mock)

			mock.ExpectQuery(regexp.QuoteMeta(updateCandidateQuery)).
				WillReturnRows(pgxmock.NewRows(candidateColumnNames))
			mock.ExpectQuery(regexp.QuoteMeta(candidateExistsQuery)).
				WithArgs("c-1").
				WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(tc.exists))

			_, err := repo.Update(context.Background(), &candidate.Candidate{
				ID:        "c-1",
				Name:      "Asha",
				Stage:     candidate.StageTraining,
				SubStatus: candidate.SubStatusTrainingEnrolled,
				Version:   1,
			})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestCandidateRepository_ListDueFollowUps(t *testing.T) {
	t.Parallel()

	mock := newCandidateMock(t)
	repo := NewCandidateRepository(mock)
	asOf := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	due := asOf.AddDate(0, 0, -1)

	rows := pgxmock.NewRows(candidateColumnNames).
		AddRow("c-1", "Asha", "", "", "", "", "ON_HOLD", "AWAITING_FOLLOW_UP", "RESUME",
			nil, nil, "exams", due, nil, nil, int64(5), asOf, asOf).
		AddRow("c-2", "Ravi", "", "", "", "", "ON_HOLD", "FOLLOW_UP_CONTACTED", "SOURCING",
			nil, nil, "travel", asOf, nil, nil, int64(2), asOf, asOf)

	mock.ExpectQuery(regexp.QuoteMeta(dueFollowUpsQuery)).
		WithArgs(asOf, 50).
		WillReturnRows(rows)

	list, err := repo.ListDueFollowUps(context.Background(), asOf, 50)
	if err != nil {
		t.Fatalf("ListDueFollowUps returned error: %v", err)
	}
	if len(list) != 2 || list[0].ID != "c-1" || list[1].ID != "c-2" {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestTranslateCandidatePgError(t *testing.T) {
	t.Parallel()

	if !errors.Is(translateCandidatePgError(&pgconn.PgError{Code: uniqueViolationCode}), candidate.ErrConflict) {
		t.Fatal("expected unique violation to map to ErrConflict")
	}
	if !errors.Is(translateCandidatePgError(&pgconn.PgError{Code: checkViolationCode}), candidate.ErrInvalidStage) {
		t.Fatal("expected check violation to map to ErrInvalidStage")
	}
	if !errors.Is(translateCandidatePgError(&pgconn.PgError{Code: invalidTextRepresentation}), candidate.ErrCandidateNotFound) {
		t.Fatal("expected malformed uuid to map to ErrCandidateNotFound")
	}

	other := errors.New("other")
	if translateCandidatePgError(other) != other {
		t.Fatal("unexpected translation for generic error")
	}
}
