package escrowv1

import (
	"context"
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	catalogservice "github.com/jcmexdev/book-escrow/internal/catalog-service"
	"github.com/jcmexdev/book-escrow/internal/coordinator/sagalog"
	"github.com/jcmexdev/book-escrow/internal/order-service/domain"
)

const errorDomain = "bookmarket.escrow"

type errorMapping struct {
	err    error
	code   codes.Code
	reason string
}

var errorMappings = []errorMapping{
	{domain.ErrNotFound, codes.NotFound, "NOT_FOUND"},
	{sagalog.ErrNotFound, codes.NotFound, "SAGA_NOT_FOUND"},
	{domain.ErrUnauthorized, codes.PermissionDenied, "UNAUTHORIZED"},
	{domain.ErrInvalidTransition, codes.FailedPrecondition, "INVALID_TRANSITION"},
	{domain.ErrWindowExpired, codes.FailedPrecondition, "WINDOW_EXPIRED"},
	{domain.ErrInvalidInput, codes.InvalidArgument, "INVALID_INPUT"},
	{domain.ErrDonationLimitReached, codes.ResourceExhausted, "DONATION_LIMIT_REACHED"},
	{domain.ErrPaymentFailed, codes.Aborted, "PAYMENT_FAILED"},
	{domain.ErrConcurrentModification, codes.Aborted, "CONCURRENT_MODIFICATION"},
	{catalogservice.ErrReserved, codes.FailedPrecondition, "BOOK_RESERVED"},
}

// ToStatus converts an engine error into a gRPC status carrying an
// ErrorInfo reason, so FromStatus can restore the sentinel on the client.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			st := status.New(m.code, err.Error())
			if detailed, derr := st.WithDetails(&errdetails.ErrorInfo{Reason: m.reason, Domain: errorDomain}); derr == nil {
				st = detailed
			}
			return st.Err()
		}
	}
	return status.Error(codes.Internal, err.Error())
}

// statusError keeps the server message while matching the restored sentinel.
type statusError struct {
	msg      string
	sentinel error
	st       error
}

func (e *statusError) Error() string { return e.msg }

func (e *statusError) Unwrap() []error { return []error{e.sentinel, e.st} }

// FromStatus maps a gRPC error returned by OrderEngine back onto the engine's
// sentinel errors. Errors without a known reason are returned unchanged.
func FromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok || err == nil {
		return err
	}
	for _, d := range st.Details() {
		info, ok := d.(*errdetails.ErrorInfo)
		if !ok || info.GetDomain() != errorDomain {
			continue
		}
		for _, m := range errorMappings {
			if m.reason == info.GetReason() {
				return &statusError{msg: st.Message(), sentinel: m.err, st: err}
			}
		}
	}
	return err
}
