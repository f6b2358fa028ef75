package order

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/candleshop/shop/internal/application"
	"github.com/candleshop/shop/internal/domain/identity"
	domain "github.com/candleshop/shop/internal/domain/order"
)

type GetOrderInput struct {
	Principal identity.Principal
	OrderID   int64
}

// GetOrderUseCase returns one order. Orders of other users are reported as
// not found unless the caller is staff.
type GetOrderUseCase struct {
	store application.Store
	in    *application.Instrument
}

func NewGetOrderUseCase(store application.Store, in *application.Instrument) *GetOrderUseCase {
	return &GetOrderUseCase{store: store, in: in}
}

func (uc *GetOrderUseCase) Execute(ctx context.Context, cmd GetOrderInput) (_ *domain.Order, err error) {
	ctx, run := uc.in.Start(ctx, useCaseGet, "GetOrder",
		attribute.Int64("user.id", cmd.Principal.ID),
		attribute.Int64("order.id", cmd.OrderID),
	)
	defer func() { run.End(err) }()

	o, err := uc.store.Orders().Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != cmd.Principal.ID && !cmd.Principal.IsStaff {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

type ListMyOrdersInput struct {
	Principal identity.Principal
}

type ListMyOrdersUseCase struct {
	store application.Store
	in    *application.Instrument
}

func NewListMyOrdersUseCase(store application.Store, in *application.Instrument) *ListMyOrdersUseCase {
	return &ListMyOrdersUseCase{store: store, in: in}
}

func (uc *ListMyOrdersUseCase) Execute(ctx context.Context, cmd ListMyOrdersInput) (_ []*domain.Order, err error) {
	ctx, run := uc.in.Start(ctx, useCaseListMine, "ListMyOrders",
		attribute.Int64("user.id", cmd.Principal.ID),
	)
	defer func() { run.End(err) }()

	orders, err := uc.store.Orders().List(ctx, domain.ListFilter{
		UserID:   cmd.Principal.ID,
		Ordering: domain.DefaultOrdering,
	})
	if err != nil {
		return nil, err
	}
	run.Field("count", len(orders))
	return orders, nil
}

type ListAllOrdersInput struct {
	Principal identity.Principal
	Search    string
	Ordering  string
}

// ListAllOrdersUseCase is the staff view over every order.
type ListAllOrdersUseCase struct {
	store application.Store
	in    *application.Instrument
}

func NewListAllOrdersUseCase(store application.Store, in *application.Instrument) *ListAllOrdersUseCase {
	return &ListAllOrdersUseCase{store: store, in: in}
}

func (uc *ListAllOrdersUseCase) Execute(ctx context.Context, cmd ListAllOrdersInput) (_ []*domain.Order, err error) {
	ctx, run := uc.in.Start(ctx, useCaseListAll, "ListAllOrders",
		attribute.Int64("user.id", cmd.Principal.ID),
		attribute.String("order.ordering", cmd.Ordering),
	)
	defer func() { run.End(err) }()

	if err := cmd.Principal.RequireStaff(); err != nil {
		return nil, err
	}
	ordering, err := domain.ParseOrdering(cmd.Ordering)
	if err != nil {
		return nil, err
	}
	orders, err := uc.store.Orders().List(ctx, domain.ListFilter{Search: cmd.Search, Ordering: ordering})
	if err != nil {
		return nil, err
	}
	run.Field("count", len(orders))
	return orders, nil
}
