package timeline

import "time"

// EventType はタイムラインイベントの種別です。
type EventType string

const (
	EventCandidateCreated EventType = "CANDIDATE_CREATED"
	EventStageChanged     EventType = "STAGE_CHANGED"
	EventSubStatusChanged EventType = "SUBSTATUS_CHANGED"
	EventOnHold           EventType = "ON_HOLD"
	EventEliminated       EventType = "ELIMINATED"
	EventWithdrawn        EventType = "WITHDRAWN"
	EventPlaced           EventType = "PLACED"
	EventOffered          EventType = "OFFERED"
)

// Event は候補者の履歴に追記される不変の監査レコードです。
type Event struct {
	ID          string
	CandidateID string
	Type        EventType
	EventDate   time.Time
	Title       string
	Description *string
	// Sequence は保存時に採番される追記順です。同時刻のイベントの並びを決めます。
	Sequence  int64
	CreatedAt time.Time
}

// IsValidEventType は既知のイベント種別かどうかを返します。
func IsValidEventType(t EventType) bool {
	switch t {
	case EventCandidateCreated,
		EventStageChanged,
		EventSubStatusChanged,
		EventOnHold,
		EventEliminated,
		EventWithdrawn,
		EventPlaced,
		EventOffered:
		return true
	default:
		return false
	}
}
