// Package payment describes the narrow contract with the external payment
// provider: tax calculation, payment intents and signed webhook events.
package payment

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidSignature = errors.New("payment: invalid webhook signature")
	ErrMalformedPayload = errors.New("payment: malformed webhook payload")
)

const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
)

// Metadata keys attached to every payment intent.
const (
	MetaOrderID          = "order_id"
	MetaUserID           = "user_id"
	MetaTaxCalculationID = "tax_calculation_id"
)

// Address is the provider-facing shipping address.
type Address struct {
	Name       string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

type TaxLine struct {
	Reference   string
	AmountCents int64
	Quantity    int64
}

type TaxRequest struct {
	Currency      string
	Lines         []TaxLine
	ShippingCents int64
	Address       Address
}

// TaxCalculation amounts are in minor units.
type TaxCalculation struct {
	ID         string
	TaxCents   int64
	TotalCents int64
}

type IntentRequest struct {
	AmountCents int64
	Currency    string
	Metadata    map[string]string
	Shipping    Address
}

type Intent struct {
	ID           string
	ClientSecret string
}

// Event is a verified webhook notification.
type Event struct {
	ID       string
	Type     string
	IntentID string
	Metadata map[string]string
	Created  time.Time
}

type Gateway interface {
	ComputeTax(ctx context.Context, req TaxRequest) (TaxCalculation, error)
	CreateIntent(ctx context.Context, req IntentRequest) (Intent, error)
	// ParseWebhook verifies the signature header against the raw body and
	// decodes the event. Failures wrap ErrInvalidSignature or
	// ErrMalformedPayload.
	ParseWebhook(payload []byte, signature string) (Event, error)
}

// EventLedger remembers provider event ids already applied.
type EventLedger interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Remember(ctx context.Context, eventID string) error
}
