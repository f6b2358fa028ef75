package payment

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/candleshop/shop/internal/application"
	domorder "github.com/candleshop/shop/internal/domain/order"
	"github.com/candleshop/shop/internal/domain/outbox"
	dompay "github.com/candleshop/shop/internal/domain/payment"
	"github.com/candleshop/shop/internal/observability"
)

const statusChangeFromWebhook = "webhook"

type WebhookInput struct {
	Payload   []byte
	Signature string
}

// WebhookResult tells the transport how the delivery was handled. Outcome
// is one of application.OutcomeSuccess, OutcomeIgnored or OutcomeRejected.
type WebhookResult struct {
	Outcome string
	Reason  string
	EventID string
	OrderID int64
}

// HandleWebhookUseCase reconciles provider payment events with orders.
// Only store failures are returned as errors; everything else is
// acknowledged so the provider stops redelivering.
type HandleWebhookUseCase struct {
	store     application.Store
	gateway   dompay.Gateway
	ledger    dompay.EventLedger
	publisher outbox.Publisher
	in        *application.Instrument
}

func NewHandleWebhookUseCase(store application.Store, gateway dompay.Gateway, ledger dompay.EventLedger, publisher outbox.Publisher, in *application.Instrument) *HandleWebhookUseCase {
	return &HandleWebhookUseCase{store: store, gateway: gateway, ledger: ledger, publisher: publisher, in: in}
}

var targetFor = map[string]domorder.Status{
	dompay.EventIntentSucceeded: domorder.StatusPaid,
	dompay.EventIntentFailed:    domorder.StatusCanceled,
}

func (uc *HandleWebhookUseCase) Execute(ctx context.Context, cmd WebhookInput) (_ *WebhookResult, err error) {
	ctx, run := uc.in.Start(ctx, useCaseHandleWebhook, "HandlePaymentWebhook")
	defer func() { run.End(err) }()

	ev, perr := uc.gateway.ParseWebhook(cmd.Payload, cmd.Signature)
	if perr != nil {
		status := application.StatusOf(perr)
		run.Set(application.OutcomeRejected, status)
		run.Logger().Warn("webhook_rejected", observability.Err(perr))
		return &WebhookResult{Outcome: application.OutcomeRejected, Reason: status}, nil
	}

	res := &WebhookResult{Outcome: application.OutcomeSuccess, Reason: "OK", EventID: ev.ID}
	ignore := func(reason string) (*WebhookResult, error) {
		run.Set(application.OutcomeIgnored, reason)
		res.Outcome, res.Reason = application.OutcomeIgnored, reason
		return res, nil
	}
	run.Field("event_id", ev.ID)
	run.Field("event_type", ev.Type)
	run.Span().SetAttributes(
		attribute.String("payment.event_id", ev.ID),
		attribute.String("payment.event_type", ev.Type),
		attribute.String("payment.intent_id", ev.IntentID),
	)

	target, handled := targetFor[ev.Type]
	if !handled {
		return ignore("UNHANDLED_EVENT_TYPE")
	}
	if uc.seen(ctx, run, ev.ID) {
		return ignore("DUPLICATE_EVENT")
	}

	orderID, convErr := strconv.ParseInt(ev.Metadata[dompay.MetaOrderID], 10, 64)
	if convErr != nil || orderID <= 0 || ev.IntentID == "" {
		return ignore("ORDER_REFERENCE_MISSING")
	}
	res.OrderID = orderID
	run.Field("order_id", orderID)

	var (
		updated *domorder.Order
		from    domorder.Status
	)
	err = uc.store.WithinTx(ctx, func(ctx context.Context, repos application.Repositories) error {
		o, err := repos.Orders().FindByIntentForUpdate(ctx, orderID, ev.IntentID)
		if err != nil {
			return err
		}
		from = o.Status
		if o.Status != domorder.StatusPending {
			return nil
		}
		if err := o.TransitionTo(target); err != nil {
			return err
		}
		if err := repos.Orders().UpdateStatus(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	switch {
	case errors.Is(err, domorder.ErrNotFound):
		err = nil
		return ignore("ORDER_NOT_FOUND")
	case err != nil:
		return nil, err
	}

	uc.remember(ctx, run, ev.ID)
	if updated == nil {
		return ignore("ALREADY_" + strings.ToUpper(string(from)))
	}

	run.Field("from", string(from))
	run.Field("to", string(target))
	if perr := uc.in.Publish(ctx, uc.publisher, domorder.NewStatusChangedEvent(updated, from, statusChangeFromWebhook)); perr != nil {
		run.Field("event_publish_error", perr.Error())
	}
	return res, nil
}

// seen consults the ledger. Ledger failures only cost the shortcut.
func (uc *HandleWebhookUseCase) seen(ctx context.Context, run *application.Run, eventID string) bool {
	if uc.ledger == nil || eventID == "" {
		return false
	}
	ok, err := uc.ledger.Seen(ctx, eventID)
	if err != nil {
		run.Logger().Warn("webhook_ledger_lookup_failed", observability.Err(err))
		return false
	}
	return ok
}

func (uc *HandleWebhookUseCase) remember(ctx context.Context, run *application.Run, eventID string) {
	if uc.ledger == nil || eventID == "" {
		return
	}
	if err := uc.ledger.Remember(ctx, eventID); err != nil {
		run.Logger().Warn("webhook_ledger_write_failed", observability.Err(err))
	}
}
