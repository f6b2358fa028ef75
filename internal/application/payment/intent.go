package payment

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/candleshop/shop/internal/application"
	"github.com/candleshop/shop/internal/domain/identity"
	"github.com/candleshop/shop/internal/domain/money"
	domorder "github.com/candleshop/shop/internal/domain/order"
	dompay "github.com/candleshop/shop/internal/domain/payment"
)

const (
	paymentService       = "payment-service"
	useCaseCreateIntent  = "payment.create_intent"
	useCaseHandleWebhook = "payment.webhook"
	gatewayPeer          = "payment_gateway"
)

type CreateIntentInput struct {
	Principal identity.Principal
	OrderID   int64
	Address   domorder.Address
}

type CreateIntentResult struct {
	ClientSecret string
	OrderID      int64
	Subtotal     decimal.Decimal
	Shipping     decimal.Decimal
	Tax          decimal.Decimal
	Total        decimal.Decimal
}

// CreateIntentUseCase prices a pending order with the gateway and opens a
// payment intent for the tax-inclusive total. The order row stays locked
// while the gateway is called so two intents cannot race for one order.
type CreateIntentUseCase struct {
	store   application.Store
	gateway dompay.Gateway
	in      *application.Instrument
}

func NewCreateIntentUseCase(store application.Store, gateway dompay.Gateway, in *application.Instrument) *CreateIntentUseCase {
	return &CreateIntentUseCase{store: store, gateway: gateway, in: in}
}

func (uc *CreateIntentUseCase) Execute(ctx context.Context, cmd CreateIntentInput) (_ *CreateIntentResult, err error) {
	ctx, run := uc.in.Start(ctx, useCaseCreateIntent, "CreatePaymentIntent",
		attribute.Int64("user.id", cmd.Principal.ID),
		attribute.Int64("order.id", cmd.OrderID),
	)
	defer func() { run.End(err) }()

	var result *CreateIntentResult
	err = uc.store.WithinTx(ctx, func(ctx context.Context, repos application.Repositories) error {
		o, err := repos.Orders().GetForUpdate(ctx, cmd.OrderID)
		if err != nil {
			return err
		}
		if o.UserID != cmd.Principal.ID {
			return domorder.ErrNotFound
		}
		if err := o.CheckPayable(); err != nil {
			return err
		}
		addr := cmd.Address.Normalize()
		if problems := addr.FieldErrors(); len(problems) > 0 {
			return fmt.Errorf("%w: %s", domorder.ErrIncompleteAddress, describe(problems))
		}
		if addr.FullName == "" {
			addr.FullName = cmd.Principal.Email
		}

		calc, err := uc.computeTax(ctx, o, addr)
		if err != nil {
			return err
		}
		tax := money.FromCents(calc.TaxCents)
		total := o.ItemsSubtotal().Add(o.Shipping).Add(tax)

		intent, err := uc.createIntent(ctx, o, addr, total, calc.ID)
		if err != nil {
			return err
		}

		o.ApplyCheckout(addr, tax, intent.ID, calc.ID)
		if err := repos.Orders().UpdateCheckout(ctx, o); err != nil {
			return fmt.Errorf("payment: persist checkout: %w", err)
		}
		run.Field("payment_intent_id", intent.ID)
		run.Field("tax_calculation_id", calc.ID)
		result = &CreateIntentResult{
			ClientSecret: intent.ClientSecret,
			OrderID:      o.ID,
			Subtotal:     o.Subtotal,
			Shipping:     o.Shipping,
			Tax:          o.Tax,
			Total:        o.Total,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (uc *CreateIntentUseCase) computeTax(ctx context.Context, o *domorder.Order, addr domorder.Address) (dompay.TaxCalculation, error) {
	lines := make([]dompay.TaxLine, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, dompay.TaxLine{
			Reference:   strconv.FormatInt(it.ProductID, 10),
			AmountCents: money.ToCents(it.LineTotal()),
			Quantity:    int64(it.Quantity),
		})
	}
	req := dompay.TaxRequest{
		Currency:      o.Currency,
		Lines:         lines,
		ShippingCents: money.ToCents(o.Shipping),
		Address:       gatewayAddress(addr),
	}

	var calc dompay.TaxCalculation
	err := uc.in.External(ctx, gatewayPeer, "tax.calculate", func(ctx context.Context) error {
		var err error
		calc, err = uc.gateway.ComputeTax(ctx, req)
		return err
	})
	if err != nil {
		return dompay.TaxCalculation{}, fmt.Errorf("payment: compute tax: %w", err)
	}
	return calc, nil
}

func (uc *CreateIntentUseCase) createIntent(ctx context.Context, o *domorder.Order, addr domorder.Address, total decimal.Decimal, calcID string) (dompay.Intent, error) {
	amount := money.ToCents(total)
	if amount <= 0 {
		return dompay.Intent{}, domorder.ErrInvalidAmount
	}
	req := dompay.IntentRequest{
		AmountCents: amount,
		Currency:    o.Currency,
		Metadata: map[string]string{
			dompay.MetaOrderID:          strconv.FormatInt(o.ID, 10),
			dompay.MetaUserID:           strconv.FormatInt(o.UserID, 10),
			dompay.MetaTaxCalculationID: calcID,
		},
		Shipping: gatewayAddress(addr),
	}

	var intent dompay.Intent
	err := uc.in.External(ctx, gatewayPeer, "payment_intent.create", func(ctx context.Context) error {
		var err error
		intent, err = uc.gateway.CreateIntent(ctx, req)
		return err
	})
	if err != nil {
		return dompay.Intent{}, fmt.Errorf("payment: create intent: %w", err)
	}
	return intent, nil
}

func gatewayAddress(a domorder.Address) dompay.Address {
	return dompay.Address{
		Name:       a.FullName,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

// describe renders field problems in a stable order.
func describe(problems map[string]string) string {
	fields := make([]string, 0, len(problems))
	for f := range problems {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+problems[f])
	}
	return strings.Join(parts, "; ")
}
