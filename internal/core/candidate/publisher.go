package candidate

import (
	"context"
	"time"
)

// LifecycleEventType は外部へ通知するライフサイクルイベントの種別です。
type LifecycleEventType string

const (
	LifecycleCandidateCreated LifecycleEventType = "CANDIDATE_CREATED"
	LifecycleStageChanged     LifecycleEventType = "STAGE_CHANGED"
	LifecycleSubStatusChanged LifecycleEventType = "SUBSTATUS_CHANGED"
	LifecycleFollowUpDue      LifecycleEventType = "FOLLOW_UP_DUE"
)

// LifecycleEvent はコミット後に通知されるイベントです。
type LifecycleEvent struct {
	Type          LifecycleEventType
	CandidateID   string
	FromStage     Stage
	ToStage       Stage
	FromSubStatus SubStatus
	ToSubStatus   SubStatus
	Reason        string
	OccurredAt    time.Time
}

// EventPublisher はライフサイクルイベントの通知先です。
type EventPublisher interface {
	Publish(ctx context.Context, event LifecycleEvent) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, LifecycleEvent) error { return nil }
