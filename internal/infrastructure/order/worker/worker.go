// Package worker relays committed order events from the in-process bus to
// the message broker.
package worker

import (
	"context"
	"fmt"
	"time"

	domorder "github.com/candleshop/shop/internal/domain/order"
	"github.com/candleshop/shop/internal/domain/outbox"
	"github.com/candleshop/shop/internal/observability"
	"github.com/candleshop/shop/internal/observability/logctx"
	workerpresentation "github.com/candleshop/shop/internal/presentation/worker"
)

const (
	consumerName = "broker_relay"
	brokerPeer   = "rabbitmq"
)

type Worker struct {
	subscriber outbox.Subscriber
	broker     outbox.Publisher
	log        observability.Logger
	extCounter observability.Counter
	extHist    observability.Histogram
}

func New(subscriber outbox.Subscriber, broker outbox.Publisher, tel observability.Observability) *Worker {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Worker{
		subscriber: subscriber,
		broker:     broker,
		log:        tel.Logger().With(observability.F("component", consumerName)),
		extCounter: tel.Metrics().Counter(observability.MExternalRequests),
		extHist:    tel.Metrics().Histogram(observability.MExternalRequestDuration),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil || w.broker == nil {
		return
	}
	w.subscriber.Subscribe(domorder.EventCreated, w.relay)
	w.subscriber.Subscribe(domorder.EventStatusChanged, w.relay)
}

func (w *Worker) relay(ctx context.Context, e outbox.Event) error {
	name := e.EventName()
	ctx = workerpresentation.WithEventContext(ctx, logctx.FromOr(ctx, w.log), map[string]string{
		"event":    name,
		"consumer": consumerName,
	})
	logger := logctx.FromOr(ctx, w.log)

	start := time.Now()
	err := w.broker.Publish(ctx, e)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	w.extCounter.Add(1,
		observability.L("peer", brokerPeer),
		observability.L("endpoint", name),
		observability.L("outcome", outcome),
	)
	w.extHist.Observe(time.Since(start).Seconds(),
		observability.L("peer", brokerPeer),
		observability.L("endpoint", name),
	)

	if err != nil {
		logger.Error("order_event_relay_failed", observability.Err(err))
		return fmt.Errorf("order worker: relay %s: %w", name, err)
	}
	logger.Debug("order_event_relayed")
	return nil
}
