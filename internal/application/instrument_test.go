package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candleshop/shop/internal/domain/catalog"
	"github.com/candleshop/shop/internal/domain/outbox"
	"github.com/candleshop/shop/internal/observability"
)

type entry struct {
	msg    string
	fields map[string]any
}

type recordingLogger struct {
	mu      *sync.Mutex
	entries *[]entry
	bound   []observability.Field
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{mu: &sync.Mutex{}, entries: &[]entry{}}
}

func (l *recordingLogger) With(fields ...observability.Field) observability.Logger {
	return &recordingLogger{mu: l.mu, entries: l.entries, bound: append(append([]observability.Field(nil), l.bound...), fields...)}
}

func (l *recordingLogger) log(msg string, fields ...observability.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := entry{msg: msg, fields: map[string]any{}}
	for _, f := range append(append([]observability.Field(nil), l.bound...), fields...) {
		e.fields[f.Key] = f.Value
	}
	*l.entries = append(*l.entries, e)
}

func (l *recordingLogger) Debug(msg string, fields ...observability.Field) { l.log(msg, fields...) }
func (l *recordingLogger) Info(msg string, fields ...observability.Field)  { l.log(msg, fields...) }
func (l *recordingLogger) Warn(msg string, fields ...observability.Field)  { l.log(msg, fields...) }
func (l *recordingLogger) Error(msg string, fields ...observability.Field) { l.log(msg, fields...) }

type telemetry struct{ log observability.Logger }

func (t telemetry) Tracer() observability.Tracer   { return observability.NopTracer() }
func (t telemetry) Logger() observability.Logger   { return t.log }
func (t telemetry) Metrics() observability.Metrics { return observability.NopMetrics() }

func TestRunEndLogsDerivedStatus(t *testing.T) {
	logger := newRecordingLogger()
	in := NewInstrument(telemetry{log: logger}, "order-service")

	_, run := in.Start(context.Background(), "order.create", "CreateOrder")
	run.Field("order_id", int64(4))
	run.End(fmt.Errorf("wrapped: %w", &catalog.InsufficientStockError{ProductID: 1}))

	require.Len(t, *logger.entries, 1)
	e := (*logger.entries)[0]
	assert.Equal(t, "use_case_done", e.msg)
	assert.Equal(t, "order.create", e.fields["use_case"])
	assert.Equal(t, "order-service", e.fields["service"])
	assert.Equal(t, OutcomeError, e.fields["outcome"])
	assert.Equal(t, "INSUFFICIENT_STOCK", e.fields["status"])
	assert.Equal(t, int64(4), e.fields["order_id"])
	assert.Contains(t, e.fields["error"], "insufficient stock")
}

func TestRunExplicitOutcome(t *testing.T) {
	logger := newRecordingLogger()
	in := NewInstrument(telemetry{log: logger}, "payment-service")

	_, run := in.Start(context.Background(), "payment.webhook", "HandleWebhook")
	run.Set(OutcomeIgnored, "ORDER_NOT_FOUND")
	run.End(nil)

	e := (*logger.entries)[0]
	assert.Equal(t, OutcomeIgnored, e.fields["outcome"])
	assert.Equal(t, "ORDER_NOT_FOUND", e.fields["status"])
	assert.NotContains(t, e.fields, "error")
}

type namedEvent string

func (e namedEvent) EventName() string { return string(e) }

func TestPublish(t *testing.T) {
	in := NewInstrument(nil, "test")
	var got []string
	pub := outbox.PublisherFunc(func(_ context.Context, e outbox.Event) error {
		got = append(got, e.EventName())
		return nil
	})
	require.NoError(t, in.Publish(context.Background(), pub, namedEvent("order.created")))
	assert.Equal(t, []string{"order.created"}, got)

	boom := errors.New("broker down")
	failing := outbox.PublisherFunc(func(context.Context, outbox.Event) error { return boom })
	assert.ErrorIs(t, in.Publish(context.Background(), failing, namedEvent("x")), boom)
	assert.NoError(t, in.Publish(context.Background(), nil, namedEvent("x")))
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, "OK", StatusOf(nil))
	assert.Equal(t, "UNKNOWN_PRODUCT", StatusOf(&catalog.UnknownProductError{IDs: []int64{1}}))
	assert.Equal(t, "CONTEXT_CANCELED", StatusOf(context.Canceled))
	assert.Equal(t, "INTERNAL", StatusOf(errors.New("x")))
}
