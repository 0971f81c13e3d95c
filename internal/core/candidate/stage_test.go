package candidate

import (
	"errors"
	"testing"
)

func TestAllowedNext_Graph(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from Stage
		to   Stage
		want bool
	}{
		{StageSourcing, StageTraining, true},
		{StageSourcing, StageMarketing, true},
		{StageSourcing, StageResume, false},
		{StageTraining, StageResume, true},
		{StageTraining, StageMarketing, false},
		{StageResume, StageMocking, true},
		{StageMocking, StageMarketing, true},
		{StageMarketing, StageOffered, true},
		{StageOffered, StagePlaced, true},
		{StageOffered, StageMarketing, true},
		{StagePlaced, StageMarketing, true},
		{StagePlaced, StageOnHold, false},
		{StagePlaced, StageOffered, false},
		{StageOnHold, StagePlaced, false},
		{StageEliminated, StagePlaced, false},
		{StageWithdrawn, StageSourcing, true},
		{StageOnHold, StageOffered, true},
		{StageEliminated, StageWithdrawn, false},
		{StageOnHold, StageOnHold, false},
		{StageSourcing, StageSourcing, false},
	}

	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestAllowedNext_NoSelfLoops(t *testing.T) {
	t.Parallel()

	for _, st := range Stages() {
		for _, next := range AllowedNext(st) {
			if next == st {
				t.Errorf("stage %s lists itself as next", st)
			}
		}
	}
}

func TestAllowedNext_ReturnsCopy(t *testing.T) {
	t.Parallel()

	next := AllowedNext(StageSourcing)
	next[0] = StagePlaced

	if AllowedNext(StageSourcing)[0] != StageTraining {
		t.Fatal("mutating the returned slice changed the graph")
	}
}

func TestSubStatusesFor_InitialValues(t *testing.T) {
	t.Parallel()

	cases := map[Stage]SubStatus{
		StageSourcing:   SubStatusSourced,
		StageTraining:   SubStatusTrainingEnrolled,
		StageResume:     SubStatusResumeDrafting,
		StageMocking:    SubStatusMockTheoryReady,
		StageMarketing:  SubStatusNone,
		StageOffered:    SubStatusOfferPending,
		StagePlaced:     SubStatusOnboarding,
		StageOnHold:     SubStatusAwaitingFollowUp,
		StageEliminated: SubStatusNone,
		StageWithdrawn:  SubStatusNone,
	}
	for stage, want := range cases {
		if got := InitialSubStatus(stage); got != want {
			t.Errorf("InitialSubStatus(%s) = %q, want %q", stage, got, want)
		}
		if !IsValidSubStatus(stage, want) {
			t.Errorf("initial sub status %q should be valid in %s", want, stage)
		}
	}
}

func TestIsValidSubStatus(t *testing.T) {
	t.Parallel()

	if IsValidSubStatus(StageTraining, SubStatusResumeReady) {
		t.Error("RESUME_READY must not be valid in TRAINING")
	}
	if IsValidSubStatus(StageTraining, SubStatusNone) {
		t.Error("empty sub status must not be valid in TRAINING")
	}
	if IsValidSubStatus(StageMarketing, SubStatusOnboarding) {
		t.Error("MARKETING has no sub statuses")
	}
	if IsValidSubStatus(Stage("UNKNOWN"), SubStatusNone) {
		t.Error("unknown stage must not validate")
	}
}

func TestParseStage(t *testing.T) {
	t.Parallel()

	st, err := ParseStage("MOCKING")
	if err != nil || st != StageMocking {
		t.Fatalf("ParseStage(MOCKING) = %q, %v", st, err)
	}
	if _, err := ParseStage("mocking"); !errors.Is(err, ErrInvalidStage) {
		t.Fatalf("expected ErrInvalidStage, got %v", err)
	}
}

func TestParseSubStatus(t *testing.T) {
	t.Parallel()

	ss, err := ParseSubStatus("ON_PROJECT")
	if err != nil || ss != SubStatusOnProject {
		t.Fatalf("ParseSubStatus(ON_PROJECT) = %q, %v", ss, err)
	}
	if _, err := ParseSubStatus("HIRED"); !errors.Is(err, ErrInvalidSubStatus) {
		t.Fatalf("expected ErrInvalidSubStatus, got %v", err)
	}
}

func TestStageClassification(t *testing.T) {
	t.Parallel()

	for _, st := range Stages() {
		if st.IsActiveFlow() == st.IsBranch() {
			t.Errorf("stage %s must be exactly one of active flow or branch", st)
		}
	}
}
