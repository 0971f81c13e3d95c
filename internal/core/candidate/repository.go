package candidate

import (
	"context"
	"time"
)

// Repository は候補者集約の永続化を行うインターフェースです。
type Repository interface {
	Create(ctx context.Context, candidate *Candidate) (*Candidate, error)
	FindByID(ctx context.Context, id string) (*Candidate, error)
	// Update は candidate.Version が保存済みの版と一致する場合のみ更新し、版を進めます。
	// 一致しない場合は ErrConflict を返します。
	Update(ctx context.Context, candidate *Candidate) (*Candidate, error)
	ListDueFollowUps(ctx context.Context, asOf time.Time, limit int) ([]*Candidate, error)
}
