// Package interceptors carries request correlation ids and the calling actor
// between the HTTP gateway and the gRPC services.
package interceptors

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/jcmexdev/book-escrow/internal/pkg/interceptors/constants"
)

// TraceServerInterceptor lifts the correlation metadata of an incoming call
// into the context and logs the call outcome.
func TraceServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		var requestID, idempotencyKey, actorID, actorRole string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			requestID = first(md, constants.HeaderXRequestId)
			idempotencyKey = first(md, constants.HeaderXIdempotencyKey)
			actorID = first(md, constants.HeaderXActorID)
			actorRole = first(md, constants.HeaderXActorRole)
		}
		ctx = WithMetadataValues(ctx, requestID, idempotencyKey, actorID, actorRole)

		start := time.Now()
		resp, err := handler(ctx, req)
		slog.InfoContext(ctx, "grpc call",
			"method", info.FullMethod,
			"request_id", requestID,
			"actor_id", actorID,
			"code", status.Code(err).String(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return resp, err
	}
}

// PropagateClientInterceptor forwards the correlation values held in ctx as
// outgoing metadata on every unary call.
func PropagateClientInterceptor() grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply any,
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		return invoker(ContextWithPropagatedID(ctx), method, req, reply, cc, opts...)
	}
}

func first(md metadata.MD, key string) string {
	if v := md.Get(key); len(v) > 0 {
		return v[0]
	}
	return ""
}
