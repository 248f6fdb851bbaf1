package igdb

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"vg-game-logger-go/internal/app/logging"
	"vg-game-logger-go/internal/app/metrics"
)

const tracerName = "vg-game-logger-go/igdb"

// RequestState is the stage a catalog request has reached.
type RequestState int

const (
	StateIdle RequestState = iota
	StateURLBuilt
	StateAwaitingTransport
	StateParsingResponse
	StateAwaitingImages
	StateComplete
	StateFailed
)

func (s RequestState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateURLBuilt:
		return "URLBuilt"
	case StateAwaitingTransport:
		return "AwaitingTransport"
	case StateParsingResponse:
		return "ParsingResponse"
	case StateAwaitingImages:
		return "AwaitingImages"
	case StateComplete:
		return "Complete"
	case StateFailed:
		return "Failed"
	}
	return "Unknown"
}

// request follows one query through its states. It is owned by a single goroutine.
// Every transition is logged at INFO and added to the span as an event.
type request struct {
	label string
	state RequestState
	start time.Time
	span  trace.Span
	log   *logging.Loggers
}

func beginRequest(ctx context.Context, label string, log *logging.Loggers, attrs ...attribute.KeyValue) (context.Context, *request) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "igdb."+label, trace.WithAttributes(attrs...))
	return ctx, &request{
		label: label,
		state: StateIdle,
		start: time.Now(),
		span:  span,
		log:   log,
	}
}

func (r *request) to(state RequestState) {
	r.log.Info.Printf("IGDB %s request: %s -> %s\n", r.label, r.state, state)
	r.state = state
	r.span.AddEvent(state.String())
}

// fail moves the request to Failed and returns err unchanged.
func (r *request) fail(err error) error {
	r.to(StateFailed)
	r.span.RecordError(err)
	r.span.SetStatus(codes.Error, err.Error())
	r.span.End()
	metrics.RecordCatalog(r.label, outcome(err), r.start)
	r.log.Error.Printf("Fetching IGDB %s failed! %s\n", r.label, err)
	return err
}

func (r *request) complete(records int) {
	r.to(StateComplete)
	r.span.SetAttributes(attribute.Int("igdb.records", records))
	r.span.End()
	metrics.RecordCatalog(r.label, "ok", r.start)
	r.log.Info.Printf("Fetching IGDB %s success! %d records\n", r.label, records)
}

func outcome(err error) string {
	var (
		invalid   *InvalidQueryError
		transport *TransportError
		malformed *MalformedResponseError
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.As(err, &invalid):
		return "invalid_query"
	case errors.As(err, &malformed):
		return "malformed"
	case errors.As(err, &transport):
		return "transport_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	}
	return "error"
}
