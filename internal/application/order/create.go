package order

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/candleshop/shop/internal/application"
	"github.com/candleshop/shop/internal/domain/catalog"
	"github.com/candleshop/shop/internal/domain/identity"
	domain "github.com/candleshop/shop/internal/domain/order"
	"github.com/candleshop/shop/internal/domain/outbox"
	"github.com/candleshop/shop/internal/domain/validation"
)

const (
	orderService          = "order-service"
	useCaseCreate         = "order.create"
	useCaseCreateFromCart = "order.create_from_cart"
	useCaseGet            = "order.get"
	useCaseListMine       = "order.list_mine"
	useCaseListAll        = "order.list_all"
	useCaseUpdateStatus   = "order.update_status"
	statusChangeFromStaff = "staff"
)

type CreateOrderInput struct {
	Principal identity.Principal
	Items     []catalog.Line
	Address   domain.Address
}

// CreateOrderUseCase places an order from an explicit list of lines.
// Shipping stays zero until the payment intent step.
type CreateOrderUseCase struct {
	store     application.Store
	publisher outbox.Publisher
	settings  Settings
	in        *application.Instrument
}

func NewCreateOrderUseCase(store application.Store, publisher outbox.Publisher, settings Settings, in *application.Instrument) *CreateOrderUseCase {
	return &CreateOrderUseCase{store: store, publisher: publisher, settings: settings, in: in}
}

func (uc *CreateOrderUseCase) Execute(ctx context.Context, cmd CreateOrderInput) (_ *domain.Order, err error) {
	ctx, run := uc.in.Start(ctx, useCaseCreate, "CreateOrder",
		attribute.Int64("user.id", cmd.Principal.ID),
		attribute.Int("order.lines", len(cmd.Items)),
	)
	defer func() { run.End(err) }()

	if err := validateLines("items", cmd.Items); err != nil {
		return nil, run.Fail("ITEMS_INVALID", err)
	}
	addr := cmd.Address.Normalize()
	if problems := addr.FieldErrors(); len(problems) > 0 {
		verr := &validation.Error{}
		for f, msg := range problems {
			verr.Add("shipping_address."+f, msg)
		}
		return nil, run.Fail("ADDRESS_INVALID", verr)
	}

	var created *domain.Order
	err = uc.store.WithinTx(ctx, func(ctx context.Context, repos application.Repositories) error {
		o, err := place(ctx, repos, placement{
			UserID:   cmd.Principal.ID,
			Email:    cmd.Principal.Email,
			Currency: uc.settings.Currency,
			Lines:    cmd.Items,
			Shipping: decimal.Zero,
			Address:  addr,
		})
		created = o
		return err
	})
	if err != nil {
		return nil, err
	}

	run.Field("order_id", created.ID)
	run.Span().SetAttributes(attribute.Int64("order.id", created.ID))
	if perr := uc.in.Publish(ctx, uc.publisher, domain.NewCreatedEvent(created)); perr != nil {
		run.Field("event_publish_error", perr.Error())
	}
	return created, nil
}

type CreateFromCartInput struct {
	Principal identity.Principal
}

// CreateFromCartUseCase checks out the caller's cart with the flat shipping
// fee and clears the cart in the same transaction.
type CreateFromCartUseCase struct {
	store     application.Store
	publisher outbox.Publisher
	settings  Settings
	in        *application.Instrument
}

func NewCreateFromCartUseCase(store application.Store, publisher outbox.Publisher, settings Settings, in *application.Instrument) *CreateFromCartUseCase {
	return &CreateFromCartUseCase{store: store, publisher: publisher, settings: settings, in: in}
}

var errEmptyCart = validation.New("cart", "Cart is empty.")

func (uc *CreateFromCartUseCase) Execute(ctx context.Context, cmd CreateFromCartInput) (_ *domain.Order, err error) {
	ctx, run := uc.in.Start(ctx, useCaseCreateFromCart, "CreateOrderFromCart",
		attribute.Int64("user.id", cmd.Principal.ID),
	)
	defer func() { run.End(err) }()

	var created *domain.Order
	err = uc.store.WithinTx(ctx, func(ctx context.Context, repos application.Repositories) error {
		c, err := repos.Carts().GetOrCreateForUpdate(ctx, cmd.Principal.ID)
		if err != nil {
			return err
		}
		if c.IsEmpty() {
			return errEmptyCart
		}
		o, err := place(ctx, repos, placement{
			UserID:   cmd.Principal.ID,
			Email:    cmd.Principal.Email,
			Currency: uc.settings.Currency,
			Lines:    c.Lines(),
			Shipping: uc.settings.FlatShippingFee,
		})
		if err != nil {
			return err
		}
		created = o
		return repos.Carts().Clear(ctx, c.ID)
	})
	if errors.Is(err, errEmptyCart) {
		return nil, run.Fail("CART_EMPTY", err)
	}
	if err != nil {
		return nil, err
	}

	run.Field("order_id", created.ID)
	run.Span().SetAttributes(attribute.Int64("order.id", created.ID))
	if perr := uc.in.Publish(ctx, uc.publisher, domain.NewCreatedEvent(created)); perr != nil {
		run.Field("event_publish_error", perr.Error())
	}
	return created, nil
}

func normalizeCurrency(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	if c == "" {
		return "usd"
	}
	return c
}
