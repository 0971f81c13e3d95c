//go:build integration

package integration

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	repo "github.com/ogurasousui/candidate-lifecycle/internal/adapters/repository/postgres"
	"github.com/ogurasousui/candidate-lifecycle/internal/core/candidate"
	"github.com/ogurasousui/candidate-lifecycle/internal/core/timeline"
	"github.com/ogurasousui/candidate-lifecycle/internal/platform/config"
	pg "github.com/ogurasousui/candidate-lifecycle/internal/platform/db/postgres"
)

const migrationsDir = "../assets/migrations"

func TestCandidateLifecycleIntegration(t *testing.T) {
	cfg, err := config.Load(configPathFromEnv())
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if err := resetMigrations(cfg.Database.DSN(), migrationsDir); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	ctx := context.Background()
	pool, err := pg.NewPool(ctx, cfg.Database)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	t.Cleanup(pool.Close)

	txManager := pg.NewTransactionManager(pool)
	candidateRepo := repo.NewCandidateRepository(pool)
	timelineRepo := repo.NewTimelineRepository(pool)
	svc := candidate.NewService(
		candidateRepo,
		timeline.NewRecorder(timelineRepo, nil),
		nil,
		txManager,
		candidate.WithLocker(pg.NewAdvisoryLocker(txManager)),
	)

	created, err := svc.CreateCandidate(ctx, candidate.CreateCandidateInput{Name: "Integration", Email: "integration@example.com"})
	if err != nil {
		t.Fatalf("CreateCandidate error: %v", err)
	}

	steps := []candidate.TransitionRequest{
		{ToStage: candidate.StageTraining},
		{ToStage: candidate.StageResume},
		{ToStage: candidate.StageOnHold, HoldReason: "exams", NextFollowUpAt: ptr(time.Now().UTC().AddDate(0, 0, 7))},
		{ToStage: candidate.StageResume},
	}
	for _, req := range steps {
		if _, err := svc.RequestTransition(ctx, candidate.TransitionInput{CandidateID: created.ID, Request: req}); err != nil {
			t.Fatalf("RequestTransition(%s) error: %v", req.ToStage, err)
		}
	}

	found, err := candidateRepo.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if found.Stage != candidate.StageResume || found.HoldReason != nil || found.NextFollowUpAt != nil {
		t.Fatalf("unexpected candidate after resume: %+v", found)
	}

	_, err = svc.RequestTransition(ctx, candidate.TransitionInput{CandidateID: created.ID, Request: candidate.TransitionRequest{ToStage: candidate.StagePlaced}})
	if !errors.Is(err, candidate.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	// 同一候補者への並行更新は advisory lock により直列化され、片方のみ成功します。
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []error
	)
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RequestTransition(ctx, candidate.TransitionInput{CandidateID: created.ID, Request: candidate.TransitionRequest{ToStage: candidate.StageMocking}})
			mu.Lock()
			results = append(results, err)
			mu.Unlock()
		}()
	}
	wg.Wait()

	var succeeded int
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, candidate.ErrInvalidTransition):
		default:
			t.Fatalf("unexpected concurrent error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one concurrent transition to succeed, got %d", succeeded)
	}

	events, err := svc.ListTimeline(ctx, candidate.ListTimelineInput{CandidateID: created.ID})
	if err != nil {
		t.Fatalf("ListTimeline error: %v", err)
	}
	// 作成 1 件、遷移 5 件、保留マーカー 1 件
	if len(events) != 7 {
		t.Fatalf("expected 7 timeline events, got %d", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].Sequence <= events[i-1].Sequence {
			t.Fatalf("timeline not ordered by sequence: %+v", events)
		}
	}

	if _, err := pool.Exec(ctx, "DELETE FROM timeline_events WHERE candidate_id = $1", created.ID); err == nil {
		t.Fatal("expected timeline_events to reject DELETE")
	}
}

func resetMigrations(dsn, dir string) error {
	m, err := migrate.New("file://"+dir, dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func configPathFromEnv() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "../assets/local.yaml"
}

func ptr[T any](v T) *T {
	return &v
}
