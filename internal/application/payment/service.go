package payment

import (
	"github.com/candleshop/shop/internal/application"
	"github.com/candleshop/shop/internal/domain/outbox"
	dompay "github.com/candleshop/shop/internal/domain/payment"
	"github.com/candleshop/shop/internal/observability"
)

type Service struct {
	CreateIntent  *CreateIntentUseCase
	HandleWebhook *HandleWebhookUseCase
}

// NewService wires the payment use cases. ledger may be nil.
func NewService(store application.Store, gateway dompay.Gateway, ledger dompay.EventLedger, publisher outbox.Publisher, tel observability.Observability) *Service {
	in := application.NewInstrument(tel, paymentService)
	return &Service{
		CreateIntent:  NewCreateIntentUseCase(store, gateway, in),
		HandleWebhook: NewHandleWebhookUseCase(store, gateway, ledger, publisher, in),
	}
}
