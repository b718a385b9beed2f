package interfaces

import (
	"context"

	"github.com/bobmcallan/finsight/internal/models"
)

// EventSink receives ordered answer events for one request. Emit returning
// an error aborts the stream.
type EventSink interface {
	Emit(event models.AnswerEvent) error
}

// EventSinkFunc adapts a function to the EventSink interface
type EventSinkFunc func(event models.AnswerEvent) error

// Emit calls f(event)
func (f EventSinkFunc) Emit(event models.AnswerEvent) error {
	return f(event)
}

// AnalyzerService answers financial questions. Answer streams events to the
// sink in order and returns only after the terminal event (sources_grouped
// plus any related questions, or error) has been emitted.
type AnalyzerService interface {
	Answer(ctx context.Context, req *models.AnalyzeRequest, sink EventSink) error
}
