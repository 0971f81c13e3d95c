package handler

import (
	"context"
	"fmt"

	"github.com/ogurasousui/candidate-lifecycle/internal/adapters/grpc/candidatev1"
	"github.com/ogurasousui/candidate-lifecycle/internal/core/candidate"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// CandidateGrpcHandler は CandidateService の gRPC 実装です。
type CandidateGrpcHandler struct {
	svc candidate.UseCase
	candidatev1.UnimplementedCandidateServiceServer
}

// NewCandidateGrpcHandler は CandidateGrpcHandler を生成します。
func NewCandidateGrpcHandler(svc candidate.UseCase) *CandidateGrpcHandler {
	return &CandidateGrpcHandler{svc: svc}
}

// CreateCandidate は候補者を登録します。
func (h *CandidateGrpcHandler) CreateCandidate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	f, err := requestFields(req, "name", "email", "phone", "batch", "recruiterId")
	if err != nil {
		return nil, toStatusError(err)
	}

	created, err := h.svc.CreateCandidate(ctx, candidate.CreateCandidateInput{
		Name:        f["name"],
		Email:       f["email"],
		Phone:       f["phone"],
		Batch:       f["batch"],
		RecruiterID: f["recruiterId"],
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	return candidateResponse(created)
}

// GetCandidate は候補者を取得します。
func (h *CandidateGrpcHandler) GetCandidate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := stringField(req, "id")
	if err != nil {
		return nil, toStatusError(err)
	}

	found, err := h.svc.GetCandidate(ctx, candidate.GetCandidateInput{ID: id})
	if err != nil {
		return nil, toStatusError(err)
	}

	return candidateResponse(found)
}

// RequestTransition は候補者のステージ遷移を要求します。
func (h *CandidateGrpcHandler) RequestTransition(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	f, err := requestFields(req, "candidateId", "toStage", "reason", "closeReason", "withdrawReason", "holdReason", "offerType", "reactivateReason")
	if err != nil {
		return nil, toStatusError(err)
	}

	toStage, err := candidate.ParseStage(f["toStage"])
	if err != nil {
		return nil, toStatusError(&fieldError{field: candidate.FieldToStage, msg: err.Error()})
	}
	nextFollowUpAt, err := timeField(req, candidate.FieldNextFollowUpAt)
	if err != nil {
		return nil, toStatusError(err)
	}
	startDate, err := timeField(req, candidate.FieldStartDate)
	if err != nil {
		return nil, toStatusError(err)
	}

	updated, err := h.svc.RequestTransition(ctx, candidate.TransitionInput{
		CandidateID: f["candidateId"],
		Request: candidate.TransitionRequest{
			ToStage:          toStage,
			Reason:           f["reason"],
			CloseReason:      f["closeReason"],
			WithdrawReason:   f["withdrawReason"],
			HoldReason:       f["holdReason"],
			NextFollowUpAt:   nextFollowUpAt,
			OfferType:        f["offerType"],
			StartDate:        startDate,
			ReactivateReason: f["reactivateReason"],
		},
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	return candidateResponse(updated)
}

// RequestSubStatusUpdate は現在のステージ内でサブステータスを変更します。
func (h *CandidateGrpcHandler) RequestSubStatusUpdate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	f, err := requestFields(req, "candidateId", "subStatus", "reason")
	if err != nil {
		return nil, toStatusError(err)
	}

	subStatus, err := candidate.ParseSubStatus(f["subStatus"])
	if err != nil {
		return nil, toStatusError(&fieldError{field: "subStatus", msg: err.Error()})
	}

	updated, err := h.svc.RequestSubStatusUpdate(ctx, candidate.UpdateSubStatusInput{
		CandidateID: f["candidateId"],
		SubStatus:   subStatus,
		Reason:      f["reason"],
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	return candidateResponse(updated)
}

// ListTimeline は候補者の履歴を古い順に返します。
func (h *CandidateGrpcHandler) ListTimeline(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := stringField(req, "candidateId")
	if err != nil {
		return nil, toStatusError(err)
	}

	events, err := h.svc.ListTimeline(ctx, candidate.ListTimelineInput{CandidateID: id})
	if err != nil {
		return nil, toStatusError(err)
	}

	list := make([]any, 0, len(events))
	for _, ev := range events {
		list = append(list, eventToMap(ev))
	}
	return newResponse(map[string]any{"events": list})
}

// GetTransitionOptions は現在のステージから選べる遷移先と必須項目を返します。
func (h *CandidateGrpcHandler) GetTransitionOptions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := stringField(req, "candidateId")
	if err != nil {
		return nil, toStatusError(err)
	}

	options, err := h.svc.GetTransitionOptions(ctx, candidate.GetTransitionOptionsInput{CandidateID: id})
	if err != nil {
		return nil, toStatusError(err)
	}

	list := make([]any, 0, len(options))
	for _, opt := range options {
		list = append(list, map[string]any{
			"toStage":        string(opt.ToStage),
			"requiredFields": stringList(opt.RequiredFields),
		})
	}
	return newResponse(map[string]any{"options": list})
}

// ListDueFollowUps はフォローアップ期日を迎えた保留中の候補者を返します。
func (h *CandidateGrpcHandler) ListDueFollowUps(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	asOf, err := timeField(req, "asOf")
	if err != nil {
		return nil, toStatusError(err)
	}
	limit, err := intField(req, "limit")
	if err != nil {
		return nil, toStatusError(err)
	}

	in := candidate.ListDueFollowUpsInput{Limit: limit}
	if asOf != nil {
		in.AsOf = *asOf
	}

	due, err := h.svc.ListDueFollowUps(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}

	list := make([]any, 0, len(due))
	for _, c := range due {
		list = append(list, candidateToMap(c))
	}
	return newResponse(map[string]any{"candidates": list})
}

// GetStageGraph はステージグラフとサブステータスの一覧を返します。表示層はこの内容だけを参照します。
func (h *CandidateGrpcHandler) GetStageGraph(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	stages := make([]any, 0, len(candidate.Stages()))
	for _, st := range candidate.Stages() {
		stages = append(stages, map[string]any{
			"stage":       string(st),
			"branch":      st.IsBranch(),
			"allowedNext": stringList(candidate.AllowedNext(st)),
			"subStatuses": stringList(candidate.SubStatusesFor(st)),
		})
	}
	return newResponse(map[string]any{"stages": stages})
}

func candidateResponse(c *candidate.Candidate) (*structpb.Struct, error) {
	return newResponse(map[string]any{"candidate": candidateToMap(c)})
}

func newResponse(m map[string]any) (*structpb.Struct, error) {
	resp, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return resp, nil
}
