package timeline

import "context"

// Repository はタイムラインイベントの追記専用ストアです。更新・削除の操作は持ちません。
type Repository interface {
	Append(ctx context.Context, event *Event) (*Event, error)
	ListByCandidate(ctx context.Context, candidateID string) ([]*Event, error)
}
