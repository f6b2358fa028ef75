// Package stripe adapts the Stripe API to the payment gateway port.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	stripeapi "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	dompay "github.com/candleshop/shop/internal/domain/payment"
)

type intentCreator interface {
	New(params *stripeapi.PaymentIntentParams) (*stripeapi.PaymentIntent, error)
}

type taxCalculator interface {
	New(params *stripeapi.TaxCalculationParams) (*stripeapi.TaxCalculation, error)
}

type Gateway struct {
	intents       intentCreator
	calculations  taxCalculator
	webhookSecret string
	tolerance     time.Duration
}

var _ dompay.Gateway = (*Gateway)(nil)

// New builds a gateway on a dedicated API client for secretKey.
func New(secretKey, webhookSecret string) *Gateway {
	sc := client.New(secretKey, nil)
	return &Gateway{
		intents:       sc.PaymentIntents,
		calculations:  sc.TaxCalculations,
		webhookSecret: webhookSecret,
		tolerance:     webhook.DefaultTolerance,
	}
}

func (g *Gateway) ComputeTax(ctx context.Context, req dompay.TaxRequest) (dompay.TaxCalculation, error) {
	params := &stripeapi.TaxCalculationParams{
		Currency: stripeapi.String(req.Currency),
		CustomerDetails: &stripeapi.TaxCalculationCustomerDetailsParams{
			Address:       addressParams(req.Address),
			AddressSource: stripeapi.String("shipping"),
		},
	}
	params.Context = ctx
	for _, l := range req.Lines {
		params.LineItems = append(params.LineItems, &stripeapi.TaxCalculationLineItemParams{
			Amount:      stripeapi.Int64(l.AmountCents),
			Quantity:    stripeapi.Int64(l.Quantity),
			Reference:   stripeapi.String(l.Reference),
			TaxBehavior: stripeapi.String("exclusive"),
		})
	}
	if req.ShippingCents > 0 {
		params.ShippingCost = &stripeapi.TaxCalculationShippingCostParams{
			Amount: stripeapi.Int64(req.ShippingCents),
		}
	}

	calc, err := g.calculations.New(params)
	if err != nil {
		return dompay.TaxCalculation{}, fmt.Errorf("stripe: tax calculation: %w", err)
	}
	return dompay.TaxCalculation{
		ID:         calc.ID,
		TaxCents:   calc.TaxAmountExclusive,
		TotalCents: calc.AmountTotal,
	}, nil
}

func (g *Gateway) CreateIntent(ctx context.Context, req dompay.IntentRequest) (dompay.Intent, error) {
	params := &stripeapi.PaymentIntentParams{
		Amount:   stripeapi.Int64(req.AmountCents),
		Currency: stripeapi.String(req.Currency),
		AutomaticPaymentMethods: &stripeapi.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripeapi.Bool(true),
		},
		Shipping: &stripeapi.ShippingDetailsParams{
			Name:    stripeapi.String(req.Shipping.Name),
			Address: addressParams(req.Shipping),
		},
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	// One intent per order and tax calculation, even when the request is retried.
	if orderID, calcID := req.Metadata[dompay.MetaOrderID], req.Metadata[dompay.MetaTaxCalculationID]; orderID != "" && calcID != "" {
		params.SetIdempotencyKey("order-" + orderID + "-" + calcID)
	}

	pi, err := g.intents.New(params)
	if err != nil {
		return dompay.Intent{}, fmt.Errorf("stripe: payment intent: %w", err)
	}
	return dompay.Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (g *Gateway) ParseWebhook(payload []byte, signature string) (dompay.Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		Tolerance:                g.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if isSignatureError(err) {
			return dompay.Event{}, fmt.Errorf("%w: %v", dompay.ErrInvalidSignature, err)
		}
		return dompay.Event{}, fmt.Errorf("%w: %v", dompay.ErrMalformedPayload, err)
	}

	out := dompay.Event{
		ID:      ev.ID,
		Type:    string(ev.Type),
		Created: time.Unix(ev.Created, 0).UTC(),
	}
	if ev.Data == nil || len(ev.Data.Raw) == 0 {
		return out, nil
	}
	var obj struct {
		Object   string            `json:"object"`
		ID       string            `json:"id"`
		Metadata map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(ev.Data.Raw, &obj); err != nil {
		return dompay.Event{}, fmt.Errorf("%w: %v", dompay.ErrMalformedPayload, err)
	}
	if obj.Object == "payment_intent" || obj.Object == "" {
		out.IntentID = obj.ID
		out.Metadata = obj.Metadata
	}
	return out, nil
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrTooOld)
}

func addressParams(a dompay.Address) *stripeapi.AddressParams {
	p := &stripeapi.AddressParams{
		Line1:      stripeapi.String(a.Line1),
		City:       stripeapi.String(a.City),
		State:      stripeapi.String(a.State),
		PostalCode: stripeapi.String(a.PostalCode),
		Country:    stripeapi.String(a.Country),
	}
	if a.Line2 != "" {
		p.Line2 = stripeapi.String(a.Line2)
	}
	return p
}
