package interceptors

import (
	"context"

	"google.golang.org/grpc/metadata"

	"github.com/jcmexdev/book-escrow/internal/pkg/interceptors/constants"
)

// propagated lists the metadata keys copied from an incoming request context
// onto outgoing calls.
var propagated = []struct {
	header string
	key    any
}{
	{constants.HeaderXRequestId, constants.ContextKeyRequestID},
	{constants.HeaderXIdempotencyKey, constants.ContextKeyIdempotencyKey},
	{constants.HeaderXActorID, constants.ContextKeyActorID},
	{constants.HeaderXActorRole, constants.ContextKeyActorRole},
}

// WithMetadataValues stores the request id, idempotency key and actor of an
// HTTP or gRPC request under the typed context keys.
func WithMetadataValues(ctx context.Context, requestID, idempotencyKey, actorID, actorRole string) context.Context {
	ctx = context.WithValue(ctx, constants.ContextKeyRequestID, requestID)
	ctx = context.WithValue(ctx, constants.ContextKeyIdempotencyKey, idempotencyKey)
	ctx = context.WithValue(ctx, constants.ContextKeyActorID, actorID)
	return context.WithValue(ctx, constants.ContextKeyActorRole, actorRole)
}

// ContextWithPropagatedID copies every known value from ctx into outgoing
// gRPC metadata, skipping keys the caller already set.
func ContextWithPropagatedID(ctx context.Context) context.Context {
	out, _ := metadata.FromOutgoingContext(ctx)
	kv := make([]string, 0, 2*len(propagated))
	for _, p := range propagated {
		if len(out.Get(p.header)) > 0 {
			continue
		}
		if v := GetMetadataValue(ctx, p.header); v != "" {
			kv = append(kv, p.header, v)
		}
	}
	if len(kv) == 0 {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, kv...)
}

// GetMetadataValue looks key up in the typed context values first, then in
// incoming and outgoing gRPC metadata. It returns "" when absent.
func GetMetadataValue(ctx context.Context, key string) string {
	for _, p := range propagated {
		if p.header == key {
			if v, ok := ctx.Value(p.key).(string); ok && v != "" {
				return v
			}
		}
	}

	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if ids := md.Get(key); len(ids) > 0 {
			return ids[0]
		}
	}

	if md, ok := metadata.FromOutgoingContext(ctx); ok {
		if ids := md.Get(key); len(ids) > 0 {
			return ids[0]
		}
	}
	return ""
}
