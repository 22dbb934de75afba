package rpc

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/timgst1/policyd/internal/authn"
	"github.com/timgst1/policyd/internal/db"
	"github.com/timgst1/policyd/internal/policy"
)

const internalMessage = "internal error"

// StatusFromError maps store and validation errors onto gRPC codes. Errors
// that already carry a status keep it. Unrecognised errors become Internal
// with a generic message; callers log the original.
func StatusFromError(err error) *status.Status {
	if err == nil {
		return status.New(codes.OK, "")
	}
	if st, ok := status.FromError(err); ok {
		return st
	}

	switch {
	case errors.Is(err, db.ErrNotFound):
		return status.New(codes.NotFound, err.Error())
	case errors.Is(err, db.ErrUniqueConstraintViolation):
		return status.New(codes.AlreadyExists, err.Error())
	case errors.Is(err, db.ErrForeignKeyViolation):
		return status.New(codes.InvalidArgument, err.Error())
	case errors.Is(err, db.ErrRestrictViolation), errors.Is(err, db.ErrInactive):
		return status.New(codes.FailedPrecondition, err.Error())
	case errors.Is(err, db.ErrBusy):
		return status.New(codes.Unavailable, err.Error())
	case errors.Is(err, policy.ErrInvalid):
		return status.New(codes.InvalidArgument, err.Error())
	case errors.Is(err, authn.ErrUnauthenticated):
		return status.New(codes.Unauthenticated, err.Error())
	case errors.Is(err, context.Canceled):
		return status.New(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.New(codes.DeadlineExceeded, err.Error())
	default:
		return status.New(codes.Internal, internalMessage)
	}
}

// Error is StatusFromError(err).Err(); nil stays nil.
func Error(err error) error {
	if err == nil {
		return nil
	}
	return StatusFromError(err).Err()
}

// HTTPStatusFromCode follows the mapping used by gRPC HTTP gateways.
func HTTPStatusFromCode(code codes.Code) int {
	switch code {
	case codes.OK:
		return http.StatusOK
	case codes.Canceled:
		return 499
	case codes.InvalidArgument, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.FailedPrecondition:
		return http.StatusBadRequest
	case codes.Unimplemented:
		return http.StatusNotImplemented
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
