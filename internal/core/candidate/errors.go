package candidate

import (
	"errors"
	"fmt"
)

var (
	// ErrCandidateNotFound は候補者が存在しない場合に返却されます。
	ErrCandidateNotFound = errors.New("candidate: not found")
	// ErrInvalidID は ID が不正な場合に返却されます。
	ErrInvalidID = errors.New("candidate: invalid id")
	// ErrInvalidName は氏名が不正な場合に返却されます。
	ErrInvalidName = errors.New("candidate: invalid name")
	// ErrInvalidEmail はメールアドレスが不正な場合に返却されます。
	ErrInvalidEmail = errors.New("candidate: invalid email")
	// ErrInvalidInput は氏名・メール以外の入力項目が不正な場合に返却されます。
	ErrInvalidInput = errors.New("candidate: invalid input")
	// ErrInvalidStage は未知のステージが指定された場合に返却されます。
	ErrInvalidStage = errors.New("candidate: invalid stage")
	// ErrTransitionRejected はガードにより遷移が拒否された場合に返却されます。
	ErrTransitionRejected = errors.New("candidate: transition rejected")
	// ErrInvalidTransition は遷移元と遷移先の組がステージグラフに存在しない場合に返却されます。
	ErrInvalidTransition = errors.New("candidate: invalid transition")
	// ErrMissingField は遷移に必要な項目が欠けている場合に返却されます。
	ErrMissingField = errors.New("candidate: missing field")
	// ErrInvalidEnum は列挙値が許容範囲外の場合に返却されます。
	ErrInvalidEnum = errors.New("candidate: invalid enum value")
	// ErrInvalidDate は日付項目が許容範囲外の場合に返却されます。
	ErrInvalidDate = errors.New("candidate: invalid date")
	// ErrInvalidSubStatus は現在のステージで無効なサブステータスの場合に返却されます。
	ErrInvalidSubStatus = errors.New("candidate: invalid sub status")
	// ErrNoChange は現在と同じサブステータスへの更新要求で返却されます。
	ErrNoChange = errors.New("candidate: no change")
	// ErrConflict は保存時に同時更新を検知した場合に返却されます。
	ErrConflict = errors.New("candidate: concurrent modification")
	// ErrLockUnavailable は候補者のロックを待ち時間内に取得できなかった場合に返却されます。
	ErrLockUnavailable = errors.New("candidate: lock unavailable")
)

// GuardFailure はガード評価の失敗内容です。Field は問題のある入力項目名を指します。
type GuardFailure struct {
	Kind    error
	Field   string
	Value   string
	Message string
}

func (f *GuardFailure) Error() string {
	if f.Field == "" {
		return fmt.Sprintf("%s: %s", f.Kind, f.Message)
	}
	return fmt.Sprintf("%s: %s: %s", f.Kind, f.Field, f.Message)
}

// Unwrap により errors.Is で ErrTransitionRejected と失敗種別の両方に一致します。
func (f *GuardFailure) Unwrap() []error {
	return []error{ErrTransitionRejected, f.Kind}
}

func invalidTransition(from, to Stage) *GuardFailure {
	return &GuardFailure{
		Kind:    ErrInvalidTransition,
		Field:   "toStage",
		Value:   string(to),
		Message: fmt.Sprintf("transition %s -> %s is not allowed", from, to),
	}
}

func missingField(field, message string) *GuardFailure {
	return &GuardFailure{Kind: ErrMissingField, Field: field, Message: message}
}

func invalidEnum(field, value string) *GuardFailure {
	return &GuardFailure{
		Kind:    ErrInvalidEnum,
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("unsupported value %q", value),
	}
}
