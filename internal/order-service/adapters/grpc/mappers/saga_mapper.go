package mappers

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jcmexdev/book-escrow/internal/coordinator/sagalog"
)

func SagaLogToProto(l *sagalog.SagaLog) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"saga_id":        l.SagaID,
		"status":         string(l.Status),
		"current_step":   l.CurrentStep,
		"error_messages": l.ErrorMessages,
		"trace_id":       l.TraceID,
		"updated_at":     formatTime(l.UpdatedAt),
	})
}

func SagaLogFromProto(s *structpb.Struct) (*sagalog.SagaLog, error) {
	if s == nil {
		return nil, fmt.Errorf("mappers: empty saga log")
	}
	r := reader{s: s}
	l := &sagalog.SagaLog{
		SagaID:        r.str("saga_id"),
		Status:        sagalog.Status(r.str("status")),
		CurrentStep:   r.str("current_step"),
		ErrorMessages: r.str("error_messages"),
		TraceID:       r.str("trace_id"),
		UpdatedAt:     r.time("updated_at"),
	}
	return l, r.err
}
