package order

import (
	"github.com/candleshop/shop/internal/application"
	"github.com/candleshop/shop/internal/domain/outbox"
	"github.com/candleshop/shop/internal/observability"
)

// Service bundles the order use cases handed to the transport layer.
type Service struct {
	Create         *CreateOrderUseCase
	CreateFromCart *CreateFromCartUseCase
	Get            *GetOrderUseCase
	ListMine       *ListMyOrdersUseCase
	ListAll        *ListAllOrdersUseCase
	UpdateStatus   *UpdateStatusUseCase
}

func NewService(store application.Store, publisher outbox.Publisher, settings Settings, tel observability.Observability) *Service {
	settings.Currency = normalizeCurrency(settings.Currency)
	in := application.NewInstrument(tel, orderService)
	return &Service{
		Create:         NewCreateOrderUseCase(store, publisher, settings, in),
		CreateFromCart: NewCreateFromCartUseCase(store, publisher, settings, in),
		Get:            NewGetOrderUseCase(store, in),
		ListMine:       NewListMyOrdersUseCase(store, in),
		ListAll:        NewListAllOrdersUseCase(store, in),
		UpdateStatus:   NewUpdateStatusUseCase(store, publisher, in),
	}
}
