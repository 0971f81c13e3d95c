package candidate

import "fmt"

// Stage は候補者のライフサイクル上のステージを表します。
type Stage string

const (
	StageSourcing   Stage = "SOURCING"
	StageTraining   Stage = "TRAINING"
	StageResume     Stage = "RESUME"
	StageMocking    Stage = "MOCKING"
	StageMarketing  Stage = "MARKETING"
	StageOffered    Stage = "OFFERED"
	StagePlaced     Stage = "PLACED"
	StageOnHold     Stage = "ON_HOLD"
	StageEliminated Stage = "ELIMINATED"
	StageWithdrawn  Stage = "WITHDRAWN"
)

// SubStatus はステージ内の詳細な進捗を表します。
type SubStatus string

// SubStatusNone はサブステータスを持たないステージで使われる値です。
const SubStatusNone SubStatus = ""

const (
	SubStatusSourced            SubStatus = "SOURCED"
	SubStatusContacted          SubStatus = "CONTACTED"
	SubStatusScreeningScheduled SubStatus = "SCREENING_SCHEDULED"
	SubStatusScreeningPassed    SubStatus = "SCREENING_PASSED"
	SubStatusContractSent       SubStatus = "CONTRACT_SENT"
	SubStatusContractSigned     SubStatus = "CONTRACT_SIGNED"

	SubStatusTrainingEnrolled   SubStatus = "TRAINING_ENROLLED"
	SubStatusTrainingInProgress SubStatus = "TRAINING_IN_PROGRESS"
	SubStatusHomeworkPending    SubStatus = "HOMEWORK_PENDING"
	SubStatusTrainingCompleted  SubStatus = "TRAINING_COMPLETED"

	SubStatusResumeDrafting SubStatus = "RESUME_DRAFTING"
	SubStatusResumeInReview SubStatus = "RESUME_IN_REVIEW"
	SubStatusResumeReady    SubStatus = "RESUME_READY"

	SubStatusMockTheoryReady     SubStatus = "MOCK_THEORY_READY"
	SubStatusMockTheoryScheduled SubStatus = "MOCK_THEORY_SCHEDULED"
	SubStatusMockTheoryPassed    SubStatus = "MOCK_THEORY_PASSED"
	SubStatusMockRealScheduled   SubStatus = "MOCK_REAL_SCHEDULED"
	SubStatusMockRealPassed      SubStatus = "MOCK_REAL_PASSED"

	SubStatusOfferPending    SubStatus = "OFFER_PENDING"
	SubStatusOfferAccepted   SubStatus = "OFFER_ACCEPTED"
	SubStatusBackgroundCheck SubStatus = "BACKGROUND_CHECK"

	SubStatusOnboarding   SubStatus = "ONBOARDING"
	SubStatusOnProject    SubStatus = "ON_PROJECT"
	SubStatusProjectEnded SubStatus = "PROJECT_ENDED"

	SubStatusAwaitingFollowUp  SubStatus = "AWAITING_FOLLOW_UP"
	SubStatusFollowUpContacted SubStatus = "FOLLOW_UP_CONTACTED"
)

// activeFlow は前進フローのステージを順序どおりに並べたものです。
var activeFlow = []Stage{
	StageSourcing,
	StageTraining,
	StageResume,
	StageMocking,
	StageMarketing,
	StageOffered,
	StagePlaced,
}

var branches = []Stage{StageOnHold, StageEliminated, StageWithdrawn}

// reactivationTargets は分岐ステージから復帰できるステージです。PLACED には直接戻れません。
var reactivationTargets = []Stage{
	StageSourcing,
	StageTraining,
	StageResume,
	StageMocking,
	StageMarketing,
	StageOffered,
}

// allowedNext はステージ間の有向グラフです。表示層もこの表を参照します。
var allowedNext = map[Stage][]Stage{
	StageSourcing:   {StageTraining, StageMarketing, StageEliminated, StageWithdrawn, StageOnHold},
	StageTraining:   {StageResume, StageEliminated, StageWithdrawn, StageOnHold},
	StageResume:     {StageMocking, StageEliminated, StageWithdrawn, StageOnHold},
	StageMocking:    {StageMarketing, StageEliminated, StageWithdrawn, StageOnHold},
	StageMarketing:  {StageOffered, StageEliminated, StageWithdrawn, StageOnHold},
	StageOffered:    {StagePlaced, StageMarketing, StageEliminated, StageWithdrawn, StageOnHold},
	StagePlaced:     {StageMarketing, StageEliminated, StageWithdrawn},
	StageEliminated: reactivationTargets,
	StageWithdrawn:  reactivationTargets,
	StageOnHold:     reactivationTargets,
}

// subStatuses はステージごとのサブステータス一覧です。先頭がステージ進入時の初期値になります。
var subStatuses = map[Stage][]SubStatus{
	StageSourcing: {
		SubStatusSourced,
		SubStatusContacted,
		SubStatusScreeningScheduled,
		SubStatusScreeningPassed,
		SubStatusContractSent,
		SubStatusContractSigned,
	},
	StageTraining: {
		SubStatusTrainingEnrolled,
		SubStatusTrainingInProgress,
		SubStatusHomeworkPending,
		SubStatusTrainingCompleted,
	},
	StageResume: {
		SubStatusResumeDrafting,
		SubStatusResumeInReview,
		SubStatusResumeReady,
	},
	StageMocking: {
		SubStatusMockTheoryReady,
		SubStatusMockTheoryScheduled,
		SubStatusMockTheoryPassed,
		SubStatusMockRealScheduled,
		SubStatusMockRealPassed,
	},
	StageMarketing: {},
	StageOffered: {
		SubStatusOfferPending,
		SubStatusOfferAccepted,
		SubStatusBackgroundCheck,
	},
	StagePlaced: {
		SubStatusOnboarding,
		SubStatusOnProject,
		SubStatusProjectEnded,
	},
	StageOnHold: {
		SubStatusAwaitingFollowUp,
		SubStatusFollowUpContacted,
	},
	StageEliminated: {},
	StageWithdrawn:  {},
}

// Stages は全ステージを前進フロー、分岐ステージの順で返します。
func Stages() []Stage {
	out := make([]Stage, 0, len(activeFlow)+len(branches))
	out = append(out, activeFlow...)
	return append(out, branches...)
}

// ParseStage は文字列を Stage に変換します。
func ParseStage(raw string) (Stage, error) {
	st := Stage(raw)
	if _, ok := allowedNext[st]; !ok {
		return "", fmt.Errorf("unknown stage %q: %w", raw, ErrInvalidStage)
	}
	return st, nil
}

// ParseSubStatus は文字列を SubStatus に変換します。いずれかのステージに属する値のみ受け付けます。
func ParseSubStatus(raw string) (SubStatus, error) {
	ss := SubStatus(raw)
	for _, list := range subStatuses {
		for _, s := range list {
			if s == ss {
				return ss, nil
			}
		}
	}
	return "", fmt.Errorf("unknown sub status %q: %w", raw, ErrInvalidSubStatus)
}

// AllowedNext は stage から遷移可能なステージの一覧を返します。呼び出し側で変更しても表には影響しません。
func AllowedNext(stage Stage) []Stage {
	next := allowedNext[stage]
	out := make([]Stage, len(next))
	copy(out, next)
	return out
}

// CanTransition は from から to への辺がグラフに存在するかを返します。
func CanTransition(from, to Stage) bool {
	for _, s := range allowedNext[from] {
		if s == to {
			return true
		}
	}
	return false
}

// SubStatusesFor は stage で有効なサブステータスを順序どおりに返します。
func SubStatusesFor(stage Stage) []SubStatus {
	list := subStatuses[stage]
	out := make([]SubStatus, len(list))
	copy(out, list)
	return out
}

// InitialSubStatus は stage 進入時のサブステータスを返します。一覧が空の場合は SubStatusNone です。
func InitialSubStatus(stage Stage) SubStatus {
	list := subStatuses[stage]
	if len(list) == 0 {
		return SubStatusNone
	}
	return list[0]
}

// IsValidSubStatus は subStatus が stage のサブステータスとして妥当かを判定します。
func IsValidSubStatus(stage Stage, subStatus SubStatus) bool {
	list, ok := subStatuses[stage]
	if !ok {
		return false
	}
	if len(list) == 0 {
		return subStatus == SubStatusNone
	}
	for _, s := range list {
		if s == subStatus {
			return true
		}
	}
	return false
}

// IsActiveFlow は前進フローのステージかどうかを返します。
func (s Stage) IsActiveFlow() bool {
	for _, st := range activeFlow {
		if st == s {
			return true
		}
	}
	return false
}

// IsBranch は保留・脱落・辞退のいずれかかどうかを返します。
func (s Stage) IsBranch() bool {
	switch s {
	case StageOnHold, StageEliminated, StageWithdrawn:
		return true
	default:
		return false
	}
}

func (s Stage) String() string { return string(s) }

func (s SubStatus) String() string { return string(s) }
