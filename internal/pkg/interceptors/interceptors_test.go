package interceptors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/jcmexdev/book-escrow/internal/pkg/interceptors/constants"
)

func TestTraceServerInterceptor_LiftsMetadata(t *testing.T) {
	md := metadata.Pairs(
		constants.HeaderXRequestId, "req-1",
		constants.HeaderXActorID, "buyer-1",
		constants.HeaderXActorRole, "user",
	)
	ctx := metadata.NewIncomingContext(context.Background(), md)

	var seen context.Context
	_, err := TraceServerInterceptor()(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/svc/M"},
		func(ctx context.Context, req any) (any, error) {
			seen = ctx
			return nil, nil
		})
	require.NoError(t, err)

	assert.Equal(t, "req-1", seen.Value(constants.ContextKeyRequestID))
	assert.Equal(t, "buyer-1", GetMetadataValue(seen, constants.HeaderXActorID))
	assert.Equal(t, "user", GetMetadataValue(seen, constants.HeaderXActorRole))
	assert.Equal(t, "", GetMetadataValue(seen, constants.HeaderXIdempotencyKey))
}

func TestContextWithPropagatedID(t *testing.T) {
	ctx := WithMetadataValues(context.Background(), "req-1", "idem-1", "admin-1", "admin")
	out := ContextWithPropagatedID(ctx)

	md, ok := metadata.FromOutgoingContext(out)
	require.True(t, ok)
	assert.Equal(t, []string{"req-1"}, md.Get(constants.HeaderXRequestId))
	assert.Equal(t, []string{"idem-1"}, md.Get(constants.HeaderXIdempotencyKey))
	assert.Equal(t, []string{"admin-1"}, md.Get(constants.HeaderXActorID))
	assert.Equal(t, []string{"admin"}, md.Get(constants.HeaderXActorRole))

	bare := context.Background()
	assert.Equal(t, bare, ContextWithPropagatedID(bare))
}

func TestContextWithPropagatedID_KeepsExplicitMetadata(t *testing.T) {
	ctx := WithMetadataValues(context.Background(), "req-1", "", "gateway", "admin")
	ctx = metadata.AppendToOutgoingContext(ctx, constants.HeaderXActorID, "buyer-1")

	md, _ := metadata.FromOutgoingContext(ContextWithPropagatedID(ctx))
	assert.Equal(t, []string{"buyer-1"}, md.Get(constants.HeaderXActorID))
	assert.Equal(t, []string{"req-1"}, md.Get(constants.HeaderXRequestId))
}
