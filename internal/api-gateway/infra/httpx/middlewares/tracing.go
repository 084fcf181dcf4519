package middlewares

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"google.golang.org/grpc/metadata"

	"github.com/jcmexdev/book-escrow/internal/pkg/interceptors"
	"github.com/jcmexdev/book-escrow/internal/pkg/interceptors/constants"
)

// AttachTracingMetadata copies the chi request id and the client's
// idempotency key into the context and into outgoing gRPC metadata.
func AttachTracingMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetReqID(r.Context())
		idempotencyKey := r.Header.Get(constants.HeaderXIdempotencyKey)

		ctx := interceptors.WithMetadataValues(r.Context(), requestID, idempotencyKey, "", "")
		kv := []string{constants.HeaderXRequestId, requestID}
		if idempotencyKey != "" {
			kv = append(kv, constants.HeaderXIdempotencyKey, idempotencyKey)
		}
		ctx = metadata.AppendToOutgoingContext(ctx, kv...)

		w.Header().Set(constants.HeaderXRequestId, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
