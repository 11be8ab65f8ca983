package grpc

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-bank-clients/internal/app/core/domain"
)

// toStatus 將 domain 錯誤轉為 gRPC status，其餘一律 Internal
func toStatus(err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, domain.ErrAccountNotFound), errors.Is(err, domain.ErrClientNotFound):
		code = codes.NotFound
	case errors.Is(err, domain.ErrInsufficientFunds):
		code = codes.FailedPrecondition
	case errors.Is(err, domain.ErrIdempotencyConflict):
		code = codes.AlreadyExists
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrSameAccount),
		errors.Is(err, domain.ErrInvalidInput):
		code = codes.InvalidArgument
	case errors.Is(err, domain.ErrInvalidCredentials):
		code = codes.Unauthenticated
	case errors.Is(err, domain.ErrForbidden):
		code = codes.PermissionDenied
	default:
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(code, err.Error())
}
