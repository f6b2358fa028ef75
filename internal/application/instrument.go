package application

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/candleshop/shop/internal/domain/cart"
	"github.com/candleshop/shop/internal/domain/catalog"
	"github.com/candleshop/shop/internal/domain/identity"
	"github.com/candleshop/shop/internal/domain/order"
	"github.com/candleshop/shop/internal/domain/payment"
	"github.com/candleshop/shop/internal/domain/validation"
	"github.com/candleshop/shop/internal/observability"
	"github.com/candleshop/shop/internal/observability/logctx"
)

const spanPrefix = "UC."

const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeIgnored  = "ignored"
	OutcomeRejected = "rejected"
)

// Instrument holds the telemetry sinks shared by the use cases of a service.
type Instrument struct {
	tracer observability.Tracer
	log    observability.Logger

	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

func NewInstrument(tel observability.Observability, service string) *Instrument {
	if tel == nil {
		tel = observability.Nop()
	}
	m := tel.Metrics()
	return &Instrument{
		tracer:       tel.Tracer(),
		log:          tel.Logger().With(observability.F("service", service)),
		reqCounter:   m.Counter(observability.MUsecaseRequests),
		durHistogram: m.Histogram(observability.MUsecaseDuration),
		extCounter:   m.Counter(observability.MExternalRequests),
		extHistogram: m.Histogram(observability.MExternalRequestDuration),
	}
}

// Run tracks a single use case execution until End is called.
type Run struct {
	in      *Instrument
	ctx     context.Context
	span    trace.Span
	logger  observability.Logger
	useCase string
	start   time.Time
	outcome string
	status  string
	fields  []observability.Field
}

// Start opens the UC.<spanName> span and returns the context carrying it
// together with the run.
func (in *Instrument) Start(ctx context.Context, useCase, spanName string, attrs ...attribute.KeyValue) (context.Context, *Run) {
	attrs = append([]attribute.KeyValue{attribute.String("use_case", useCase)}, attrs...)
	ctx, span := in.tracer.Start(ctx, spanPrefix+spanName, attrs...)
	ctx, logger := logctx.Enrich(ctx, in.log, observability.F("use_case", useCase))
	return ctx, &Run{
		in:      in,
		ctx:     ctx,
		span:    span,
		logger:  logger,
		useCase: useCase,
		start:   time.Now(),
		outcome: OutcomeSuccess,
		status:  "OK",
	}
}

func (r *Run) Logger() observability.Logger { return r.logger }

func (r *Run) Span() trace.Span { return r.span }

// Set overrides outcome and status for the final log line.
func (r *Run) Set(outcome, status string) {
	r.outcome, r.status = outcome, status
}

// Fail marks the run as failed with status and returns err unchanged.
func (r *Run) Fail(status string, err error) error {
	r.outcome, r.status = OutcomeError, status
	return err
}

// Field adds a field to the final log line.
func (r *Run) Field(k string, v any) {
	r.fields = append(r.fields, observability.F(k, v))
}

// End records span status, RED metrics and the use_case_done line. When
// err is non-nil and no failure status was set, the status is derived
// from err.
func (r *Run) End(err error) {
	lat := time.Since(r.start).Seconds()
	if err != nil && r.outcome == OutcomeSuccess {
		r.outcome, r.status = OutcomeError, StatusOf(err)
	}

	if r.span != nil {
		if err != nil {
			r.span.RecordError(err)
			r.span.SetStatus(codes.Error, r.status)
		} else {
			r.span.SetStatus(codes.Ok, r.status)
		}
		r.span.End()
	}

	r.in.reqCounter.Add(1,
		observability.L("use_case", r.useCase),
		observability.L("outcome", r.outcome),
	)
	r.in.durHistogram.Observe(lat, observability.L("use_case", r.useCase))

	fields := append([]observability.Field{
		observability.F("outcome", r.outcome),
		observability.F("status", r.status),
		observability.F("latency_seconds", lat),
	}, r.fields...)
	if sc := trace.SpanContextFromContext(r.ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	if err != nil {
		fields = append(fields, observability.F("error", err.Error()))
	}
	r.logger.Info("use_case_done", fields...)
}

// External times a call to an outside peer and records the external RED
// metrics.
func (in *Instrument) External(ctx context.Context, peer, endpoint string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	outcome := OutcomeSuccess
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		outcome = "canceled"
	case err != nil:
		outcome = OutcomeError
	}
	in.extCounter.Add(1,
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
		observability.L("outcome", outcome),
	)
	in.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
	)
	return err
}

// StatusOf maps an error to the SCREAMING_CASE status used in logs and
// span status descriptions.
func StatusOf(err error) string {
	switch {
	case err == nil:
		return "OK"
	case errors.Is(err, validation.ErrInvalid):
		return "VALIDATION_FAILED"
	case errors.Is(err, identity.ErrUnauthenticated):
		return "UNAUTHENTICATED"
	case errors.Is(err, identity.ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, catalog.ErrUnknownProduct):
		return "UNKNOWN_PRODUCT"
	case errors.Is(err, catalog.ErrInsufficientStock):
		return "INSUFFICIENT_STOCK"
	case errors.Is(err, catalog.ErrOutOfStock):
		return "OUT_OF_STOCK"
	case errors.Is(err, catalog.ErrProductReferenced):
		return "PRODUCT_REFERENCED"
	case errors.Is(err, catalog.ErrDuplicateName):
		return "DUPLICATE_NAME"
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, order.ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, cart.ErrItemNotFound):
		return "CART_ITEM_NOT_FOUND"
	case errors.Is(err, order.ErrIllegalTransition):
		return "ILLEGAL_TRANSITION"
	case errors.Is(err, order.ErrNotPayable):
		return "ORDER_NOT_PAYABLE"
	case errors.Is(err, order.ErrIncompleteAddress):
		return "INCOMPLETE_ADDRESS"
	case errors.Is(err, order.ErrEmptyOrder):
		return "EMPTY_ORDER"
	case errors.Is(err, order.ErrInvalidAmount):
		return "INVALID_AMOUNT"
	case errors.Is(err, payment.ErrInvalidSignature):
		return "INVALID_SIGNATURE"
	case errors.Is(err, payment.ErrMalformedPayload):
		return "MALFORMED_PAYLOAD"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "CONTEXT_CANCELED"
	default:
		return "INTERNAL"
	}
}
