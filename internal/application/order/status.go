package order

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/candleshop/shop/internal/application"
	"github.com/candleshop/shop/internal/domain/identity"
	domain "github.com/candleshop/shop/internal/domain/order"
	"github.com/candleshop/shop/internal/domain/outbox"
	"github.com/candleshop/shop/internal/domain/validation"
)

type UpdateStatusInput struct {
	Principal identity.Principal
	OrderID   int64
	Status    string
}

// UpdateStatusUseCase lets staff move an order along the lifecycle.
type UpdateStatusUseCase struct {
	store     application.Store
	publisher outbox.Publisher
	in        *application.Instrument
}

func NewUpdateStatusUseCase(store application.Store, publisher outbox.Publisher, in *application.Instrument) *UpdateStatusUseCase {
	return &UpdateStatusUseCase{store: store, publisher: publisher, in: in}
}

func (uc *UpdateStatusUseCase) Execute(ctx context.Context, cmd UpdateStatusInput) (_ *domain.Order, err error) {
	ctx, run := uc.in.Start(ctx, useCaseUpdateStatus, "UpdateOrderStatus",
		attribute.Int64("user.id", cmd.Principal.ID),
		attribute.Int64("order.id", cmd.OrderID),
		attribute.String("order.target_status", cmd.Status),
	)
	defer func() { run.End(err) }()

	if err := cmd.Principal.RequireStaff(); err != nil {
		return nil, err
	}
	target, ok := domain.ParseStatus(cmd.Status)
	if !ok {
		return nil, run.Fail("STATUS_INVALID", validation.New("status", "Not a valid status."))
	}

	var (
		updated *domain.Order
		from    domain.Status
	)
	err = uc.store.WithinTx(ctx, func(ctx context.Context, repos application.Repositories) error {
		o, err := repos.Orders().GetForUpdate(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		from = o.Status
		if err := o.TransitionTo(target); err != nil {
			return err
		}
		if err := repos.Orders().UpdateStatus(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	run.Field("from", string(from))
	run.Field("to", string(target))
	if perr := uc.in.Publish(ctx, uc.publisher, domain.NewStatusChangedEvent(updated, from, statusChangeFromStaff)); perr != nil {
		run.Field("event_publish_error", perr.Error())
	}
	return updated, nil
}
