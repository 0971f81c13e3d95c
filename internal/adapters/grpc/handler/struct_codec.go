package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/ogurasousui/candidate-lifecycle/internal/core/candidate"
	"github.com/ogurasousui/candidate-lifecycle/internal/core/timeline"
	"google.golang.org/protobuf/types/known/structpb"
)

// fieldError はリクエストの特定フィールドが解釈できないことを表します。
type fieldError struct {
	field string
	msg   string
}

func (e *fieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.field, e.msg)
}

func stringField(req *structpb.Struct, key string) (string, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return "", nil
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return kind.StringValue, nil
	case *structpb.Value_NullValue:
		return "", nil
	default:
		return "", &fieldError{field: key, msg: "must be a string"}
	}
}

func intField(req *structpb.Struct, key string) (int, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return 0, nil
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		n := kind.NumberValue
		if n != float64(int(n)) {
			return 0, &fieldError{field: key, msg: "must be an integer"}
		}
		return int(n), nil
	case *structpb.Value_NullValue:
		return 0, nil
	default:
		return 0, &fieldError{field: key, msg: "must be a number"}
	}
}

// timeField は RFC 3339 の日時または YYYY-MM-DD の日付を UTC で返します。未指定なら nil です。
func timeField(req *structpb.Struct, key string) (*time.Time, error) {
	raw, err := stringField(req, key)
	if err != nil {
		return nil, err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, &fieldError{field: key, msg: fmt.Sprintf("%q is not a date (YYYY-MM-DD) or RFC 3339 timestamp", raw)}
}

// requestFields は struct から文字列フィールドをまとめて取り出します。最初に見つかった型違いを返します。
func requestFields(req *structpb.Struct, keys ...string) (map[string]string, error) {
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		v, err := stringField(req, key)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

func candidateToMap(c *candidate.Candidate) map[string]any {
	m := map[string]any{
		"id":          c.ID,
		"name":        c.Name,
		"email":       c.Email,
		"phone":       c.Phone,
		"batch":       c.Batch,
		"recruiterId": c.RecruiterID,
		"stage":       string(c.Stage),
		"subStatus":   string(c.SubStatus),
		"version":     c.Version,
		"createdAt":   formatTimestamp(c.CreatedAt),
		"updatedAt":   formatTimestamp(c.UpdatedAt),
	}
	if st, ok := c.ResumeStage(); ok {
		m["lastActiveStage"] = string(st)
	}
	if c.CloseReason != nil {
		m["closeReason"] = string(*c.CloseReason)
	}
	if c.WithdrawReason != nil {
		m["withdrawReason"] = *c.WithdrawReason
	}
	if c.HoldReason != nil {
		m["holdReason"] = *c.HoldReason
	}
	if c.NextFollowUpAt != nil {
		m["nextFollowUpAt"] = c.NextFollowUpAt.UTC().Format(time.DateOnly)
	}
	if c.OfferType != nil {
		m["offerType"] = string(*c.OfferType)
	}
	if c.StartDate != nil {
		m["startDate"] = c.StartDate.UTC().Format(time.DateOnly)
	}
	return m
}

func eventToMap(ev *timeline.Event) map[string]any {
	m := map[string]any{
		"id":          ev.ID,
		"candidateId": ev.CandidateID,
		"type":        string(ev.Type),
		"eventDate":   formatTimestamp(ev.EventDate),
		"title":       ev.Title,
		"sequence":    ev.Sequence,
	}
	if ev.Description != nil {
		m["description"] = *ev.Description
	}
	return m
}

func stringList[T ~string](values []T) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		out = append(out, string(v))
	}
	return out
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
