package candidate

import "time"

// CloseReason は脱落 (ELIMINATED) 時の理由区分です。
type CloseReason string

const (
	CloseReasonReturnedHome     CloseReason = "RETURNED_HOME"
	CloseReasonFoundFulltime    CloseReason = "FOUND_FULLTIME"
	CloseReasonOtherOpportunity CloseReason = "OTHER_OPPORTUNITY"
	CloseReasonNoHomework       CloseReason = "NO_HOMEWORK"
	CloseReasonBehaviorIssue    CloseReason = "BEHAVIOR_ISSUE"
	CloseReasonNoResponse       CloseReason = "NO_RESPONSE"
)

// OfferType はオファーの雇用形態です。
type OfferType string

const (
	OfferTypeW2  OfferType = "W2"
	OfferTypeC2C OfferType = "C2C"
)

// Candidate は候補者集約です。Stage と SubStatus は Service 経由でのみ変更されます。
type Candidate struct {
	ID          string
	Name        string
	Email       string
	Phone       string
	Batch       string
	RecruiterID string

	Stage     Stage
	SubStatus SubStatus
	// LastActiveStage は分岐ステージへ入る直前の前進フローステージです。
	// 分岐ステージへ入るたびに上書きされ、前進フロー中の値には意味がありません。
	LastActiveStage *Stage

	CloseReason    *CloseReason
	WithdrawReason *string
	HoldReason     *string
	NextFollowUpAt *time.Time
	OfferType      *OfferType
	StartDate      *time.Time

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ResumeStage は分岐ステージ滞在中に限り、戻り先となる前進フローステージを返します。
func (c *Candidate) ResumeStage() (Stage, bool) {
	if c == nil || !c.Stage.IsBranch() || c.LastActiveStage == nil {
		return "", false
	}
	return *c.LastActiveStage, true
}

// TransitionRequest はステージ遷移要求です。永続化はされません。
type TransitionRequest struct {
	ToStage          Stage
	Reason           string
	CloseReason      string
	WithdrawReason   string
	HoldReason       string
	NextFollowUpAt   *time.Time
	OfferType        string
	StartDate        *time.Time
	ReactivateReason string
}

func cloneCandidate(c *Candidate) *Candidate {
	if c == nil {
		return nil
	}
	copied := *c
	if c.LastActiveStage != nil {
		st := *c.LastActiveStage
		copied.LastActiveStage = &st
	}
	if c.CloseReason != nil {
		v := *c.CloseReason
		copied.CloseReason = &v
	}
	copied.WithdrawReason = cloneString(c.WithdrawReason)
	copied.HoldReason = cloneString(c.HoldReason)
	copied.NextFollowUpAt = cloneTime(c.NextFollowUpAt)
	if c.OfferType != nil {
		v := *c.OfferType
		copied.OfferType = &v
	}
	copied.StartDate = cloneTime(c.StartDate)
	return &copied
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
