package candidate

import (
	"fmt"
	"strings"
	"time"
)

const (
	FieldToStage          = "toStage"
	FieldReason           = "reason"
	FieldCloseReason      = "closeReason"
	FieldWithdrawReason   = "withdrawReason"
	FieldHoldReason       = "holdReason"
	FieldNextFollowUpAt   = "nextFollowUpAt"
	FieldOfferType        = "offerType"
	FieldStartDate        = "startDate"
	FieldReactivateReason = "reactivateReason"
)

// guardRule は遷移に付随する必須項目の規則です。applies が真のときだけ check が評価されます。
type guardRule struct {
	field   string
	applies func(c *Candidate, to Stage) bool
	check   func(req TransitionRequest, now time.Time) *GuardFailure
}

// transitionRules は評価順に並んだ規則表です。最初に失敗した規則の結果が返ります。
var transitionRules = []guardRule{
	{
		field:   FieldCloseReason,
		applies: entering(StageEliminated),
		check: func(req TransitionRequest, _ time.Time) *GuardFailure {
			raw := strings.TrimSpace(req.CloseReason)
			if raw == "" {
				return missingField(FieldCloseReason, "close reason is required when eliminating a candidate")
			}
			if _, err := ParseCloseReason(raw); err != nil {
				return invalidEnum(FieldCloseReason, raw)
			}
			return nil
		},
	},
	{
		field:   FieldWithdrawReason,
		applies: entering(StageWithdrawn),
		check:   requireText(FieldWithdrawReason, func(r TransitionRequest) string { return r.WithdrawReason }, "withdraw reason is required"),
	},
	{
		field:   FieldHoldReason,
		applies: entering(StageOnHold),
		check:   requireText(FieldHoldReason, func(r TransitionRequest) string { return r.HoldReason }, "hold reason is required"),
	},
	{
		field:   FieldNextFollowUpAt,
		applies: entering(StageOnHold),
		check: func(req TransitionRequest, now time.Time) *GuardFailure {
			if req.NextFollowUpAt == nil || req.NextFollowUpAt.IsZero() {
				return missingField(FieldNextFollowUpAt, "next follow-up date is required when putting a candidate on hold")
			}
			if startOfDay(*req.NextFollowUpAt).Before(startOfDay(now)) {
				return &GuardFailure{
					Kind:    ErrInvalidDate,
					Field:   FieldNextFollowUpAt,
					Value:   req.NextFollowUpAt.UTC().Format(time.DateOnly),
					Message: "next follow-up date must not be in the past",
				}
			}
			return nil
		},
	},
	{
		field:   FieldStartDate,
		applies: entering(StagePlaced),
		check: func(req TransitionRequest, _ time.Time) *GuardFailure {
			if req.StartDate == nil || req.StartDate.IsZero() {
				return missingField(FieldStartDate, "start date is required when placing a candidate")
			}
			return nil
		},
	},
	{
		field:   FieldOfferType,
		applies: entering(StageOffered),
		check: func(req TransitionRequest, _ time.Time) *GuardFailure {
			raw := strings.TrimSpace(req.OfferType)
			if raw == "" {
				return missingField(FieldOfferType, "offer type is required when recording an offer")
			}
			if _, err := ParseOfferType(raw); err != nil {
				return invalidEnum(FieldOfferType, raw)
			}
			return nil
		},
	},
	{
		field: FieldReactivateReason,
		applies: func(c *Candidate, to Stage) bool {
			return (c.Stage == StageEliminated || c.Stage == StageWithdrawn) && to.IsActiveFlow()
		},
		check: requireText(FieldReactivateReason, func(r TransitionRequest) string { return r.ReactivateReason }, "reactivation reason is required"),
	},
	{
		field: FieldReason,
		applies: func(c *Candidate, to Stage) bool {
			if c.Stage != StageOnHold {
				return false
			}
			return c.LastActiveStage == nil || *c.LastActiveStage != to
		},
		check: requireText(FieldReason, func(r TransitionRequest) string { return r.Reason }, "resuming to a stage other than the one the candidate paused from requires a reason"),
	},
	{
		field: FieldReason,
		applies: func(c *Candidate, to Stage) bool {
			return (c.Stage == StageOffered || c.Stage == StagePlaced) && to == StageMarketing
		},
		check: requireText(FieldReason, func(r TransitionRequest) string { return r.Reason }, "moving back to marketing requires a reason"),
	},
}

// EvaluateTransition は候補者の現在状態と遷移要求を検証します。
// 成功時は nil、失敗時は *GuardFailure を返します。c は変更しません。
func EvaluateTransition(c *Candidate, req TransitionRequest, now time.Time) error {
	if failure := evaluateTransition(c, req, now); failure != nil {
		return failure
	}
	return nil
}

func evaluateTransition(c *Candidate, req TransitionRequest, now time.Time) *GuardFailure {
	if !CanTransition(c.Stage, req.ToStage) {
		return invalidTransition(c.Stage, req.ToStage)
	}
	for _, rule := range transitionRules {
		if !rule.applies(c, req.ToStage) {
			continue
		}
		if failure := rule.check(req, now); failure != nil {
			return failure
		}
	}
	return nil
}

// RequiredFields は c から to へ遷移する際に必須となる入力項目を評価順に返します。
// 辺が存在しない場合は nil を返します。
func RequiredFields(c *Candidate, to Stage) []string {
	if !CanTransition(c.Stage, to) {
		return nil
	}
	fields := make([]string, 0, 2)
	for _, rule := range transitionRules {
		if rule.applies(c, to) && !containsString(fields, rule.field) {
			fields = append(fields, rule.field)
		}
	}
	return fields
}

// ParseCloseReason は文字列を CloseReason に変換します。
func ParseCloseReason(raw string) (CloseReason, error) {
	switch r := CloseReason(raw); r {
	case CloseReasonReturnedHome,
		CloseReasonFoundFulltime,
		CloseReasonOtherOpportunity,
		CloseReasonNoHomework,
		CloseReasonBehaviorIssue,
		CloseReasonNoResponse:
		return r, nil
	default:
		return "", fmt.Errorf("close reason %q: %w", raw, ErrInvalidEnum)
	}
}

// ParseOfferType は文字列を OfferType に変換します。
func ParseOfferType(raw string) (OfferType, error) {
	switch t := OfferType(raw); t {
	case OfferTypeW2, OfferTypeC2C:
		return t, nil
	default:
		return "", fmt.Errorf("offer type %q: %w", raw, ErrInvalidEnum)
	}
}

func entering(stage Stage) func(*Candidate, Stage) bool {
	return func(_ *Candidate, to Stage) bool { return to == stage }
}

func requireText(field string, get func(TransitionRequest) string, message string) func(TransitionRequest, time.Time) *GuardFailure {
	return func(req TransitionRequest, _ time.Time) *GuardFailure {
		if strings.TrimSpace(get(req)) == "" {
			return missingField(field, message)
		}
		return nil
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
