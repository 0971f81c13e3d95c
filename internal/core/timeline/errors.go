package timeline

import "errors"

var (
	// ErrInvalidCandidateID は候補者 ID が空の場合に返却されます。
	ErrInvalidCandidateID = errors.New("timeline: invalid candidate id")
	// ErrInvalidEventType は未知のイベント種別の場合に返却されます。
	ErrInvalidEventType = errors.New("timeline: invalid event type")
	// ErrInvalidTitle はタイトルが空の場合に返却されます。
	ErrInvalidTitle = errors.New("timeline: invalid title")
	// ErrEventAlreadyExists は同じ ID のイベントが既に記録されている場合に返却されます。
	ErrEventAlreadyExists = errors.New("timeline: event already exists")
)
