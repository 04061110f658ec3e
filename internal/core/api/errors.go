package api

import (
	"context"
	"errors"

	"github.com/solatis/ordergate/internal/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error mapping:
// Malformed requests map to INVALID_ARGUMENT.
// Unknown rule sets map to NOT_FOUND.
// Context timeouts map to DEADLINE_EXCEEDED.
// Repository and record resolution failures map to UNAVAILABLE.
// Evaluation itself never fails a request.

var errInvalidRequest = errors.New("invalid request")

func toStatus(err error) error {
	switch {
	case errors.Is(err, errInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, types.ErrRuleSetNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Unavailable, err.Error())
	}
}
