package handler

import (
	"context"
	"errors"

	"github.com/ogurasousui/candidate-lifecycle/internal/core/candidate"
	"github.com/ogurasousui/candidate-lifecycle/internal/core/timeline"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func toStatusError(err error) error {
	var (
		guard *candidate.GuardFailure
		field *fieldError
	)

	switch {
	case err == nil:
		return nil
	case errors.As(err, &field):
		return withBadRequest(codes.InvalidArgument, err.Error(), field.field, field.msg)
	case errors.As(err, &guard) && errors.Is(err, candidate.ErrInvalidTransition):
		return withPrecondition(err.Error(), guard)
	case errors.As(err, &guard):
		return withBadRequest(codes.InvalidArgument, err.Error(), guard.Field, guard.Message)
	case errors.Is(err, candidate.ErrCandidateNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, candidate.ErrInvalidID),
		errors.Is(err, candidate.ErrInvalidName),
		errors.Is(err, candidate.ErrInvalidEmail),
		errors.Is(err, candidate.ErrInvalidInput),
		errors.Is(err, candidate.ErrInvalidStage),
		errors.Is(err, candidate.ErrInvalidEnum),
		errors.Is(err, timeline.ErrInvalidCandidateID):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, candidate.ErrInvalidSubStatus),
		errors.Is(err, candidate.ErrNoChange):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, candidate.ErrConflict):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, candidate.ErrLockUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func withBadRequest(code codes.Code, msg, field, description string) error {
	st := status.New(code, msg)
	detailed, err := st.WithDetails(&errdetails.BadRequest{
		FieldViolations: []*errdetails.BadRequest_FieldViolation{{Field: field, Description: description}},
	})
	if err != nil {
		return st.Err()
	}
	return detailed.Err()
}

func withPrecondition(msg string, guard *candidate.GuardFailure) error {
	st := status.New(codes.FailedPrecondition, msg)
	detailed, err := st.WithDetails(&errdetails.PreconditionFailure{
		Violations: []*errdetails.PreconditionFailure_Violation{{
			Type:        "STAGE_TRANSITION",
			Subject:     guard.Value,
			Description: guard.Message,
		}},
	})
	if err != nil {
		return st.Err()
	}
	return detailed.Err()
}
