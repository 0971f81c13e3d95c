package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ogurasousui/candidate-lifecycle/internal/core/candidate"
	goredis "github.com/redis/go-redis/v9"
)

type publishClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *goredis.IntCmd
}

// Publisher はライフサイクルイベントを JSON にして Redis Pub/Sub のチャンネルへ送ります。
type Publisher struct {
	client  publishClient
	channel string
}

// NewPublisher は Publisher を生成します。
func NewPublisher(client publishClient, channel string) *Publisher {
	return &Publisher{client: client, channel: channel}
}

// Message は購読側が受け取るペイロードです。
type Message struct {
	Type          string `json:"type"`
	CandidateID   string `json:"candidateId"`
	FromStage     string `json:"fromStage,omitempty"`
	ToStage       string `json:"toStage,omitempty"`
	FromSubStatus string `json:"fromSubStatus,omitempty"`
	ToSubStatus   string `json:"toSubStatus,omitempty"`
	Reason        string `json:"reason,omitempty"`
	OccurredAt    string `json:"occurredAt"`
}

// Publish はイベントを送信します。購読者が居なくてもエラーにはなりません。
func (p *Publisher) Publish(ctx context.Context, event candidate.LifecycleEvent) error {
	payload, err := json.Marshal(toMessage(event))
	if err != nil {
		return fmt.Errorf("redis publisher: marshal %s: %w", event.Type, err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publisher: publish to %s: %w", p.channel, err)
	}
	return nil
}

func toMessage(event candidate.LifecycleEvent) Message {
	return Message{
		Type:          string(event.Type),
		CandidateID:   event.CandidateID,
		FromStage:     string(event.FromStage),
		ToStage:       string(event.ToStage),
		FromSubStatus: string(event.FromSubStatus),
		ToSubStatus:   string(event.ToSubStatus),
		Reason:        event.Reason,
		OccurredAt:    event.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
}
