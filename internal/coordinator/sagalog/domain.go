// Package sagalog records every state change of a checkout saga.
//
// The log is append-only. Reading the latest row per saga id tells an
// operator where a checkout stopped, and the trace/span ids on each row link
// it to the distributed trace that produced it.
package sagalog

import "time"

// Status represents the lifecycle state of a saga execution.
type Status string

const (
	StatusStarted      Status = "STARTED"
	StatusStepDone     Status = "STEP_DONE"
	StatusCompleted    Status = "COMPLETED"
	StatusCompensating Status = "COMPENSATING"
	StatusFailed       Status = "FAILED"
)

// SagaLog is a single row in the saga_logs table.
type SagaLog struct {
	// SagaID identifies one checkout attempt. It is also the holder of the
	// book reservation taken by that attempt.
	SagaID string

	Status Status

	// CurrentStep is the name of the step that was just executed or failed.
	CurrentStep string

	// Payload is the JSON checkout request; written on STARTED only.
	Payload string

	// ErrorMessages is a JSON array of failure details, one per failed step.
	ErrorMessages string

	// TraceID and SpanID come from the OpenTelemetry span active when the
	// row was written; empty when no span is recording.
	TraceID string
	SpanID  string

	UpdatedAt time.Time
}
