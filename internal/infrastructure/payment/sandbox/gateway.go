// Package sandbox is a local payment gateway. It computes tax at a flat
// rate, issues generated intent ids and verifies webhooks with the Stripe
// signature scheme, so the webhook endpoint can be driven end to end
// without a provider account.
package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76/webhook"

	dompay "github.com/candleshop/shop/internal/domain/payment"
)

// DefaultTolerance bounds the age of a signed webhook timestamp.
const DefaultTolerance = 5 * time.Minute

type Gateway struct {
	secret    string
	taxRate   decimal.Decimal
	tolerance time.Duration
}

type Option func(*Gateway)

// WithTolerance sets the accepted webhook age; zero disables the check.
func WithTolerance(d time.Duration) Option {
	return func(g *Gateway) { g.tolerance = d }
}

var _ dompay.Gateway = (*Gateway)(nil)

// New returns a gateway signing webhooks with secret and charging taxRate
// (0.0825 for 8.25%) on the item lines.
func New(secret string, taxRate decimal.Decimal, opts ...Option) *Gateway {
	g := &Gateway{
		secret:    secret,
		taxRate:   taxRate,
		tolerance: DefaultTolerance,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) ComputeTax(ctx context.Context, req dompay.TaxRequest) (dompay.TaxCalculation, error) {
	if err := ctx.Err(); err != nil {
		return dompay.TaxCalculation{}, err
	}
	var lines int64
	for _, l := range req.Lines {
		lines += l.AmountCents
	}
	// Half-up to whole cents.
	tax := decimal.NewFromInt(lines).Mul(g.taxRate).Round(0).IntPart()
	return dompay.TaxCalculation{
		ID:         "taxcalc_sandbox_" + uuid.NewString(),
		TaxCents:   tax,
		TotalCents: lines + req.ShippingCents + tax,
	}, nil
}

func (g *Gateway) CreateIntent(ctx context.Context, req dompay.IntentRequest) (dompay.Intent, error) {
	if err := ctx.Err(); err != nil {
		return dompay.Intent{}, err
	}
	if req.AmountCents <= 0 {
		return dompay.Intent{}, fmt.Errorf("sandbox: amount must be positive, got %d", req.AmountCents)
	}
	id := "pi_sandbox_" + uuid.NewString()
	return dompay.Intent{
		ID:           id,
		ClientSecret: id + "_secret_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
	}, nil
}

// webhookEvent mirrors the subset of the provider event envelope the
// reconciliation reads.
type webhookEvent struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object struct {
			ID       string            `json:"id"`
			Metadata map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

func (g *Gateway) ParseWebhook(payload []byte, signature string) (dompay.Event, error) {
	if err := g.verify(payload, signature); err != nil {
		return dompay.Event{}, err
	}
	var we webhookEvent
	if err := json.Unmarshal(payload, &we); err != nil {
		return dompay.Event{}, fmt.Errorf("%w: %v", dompay.ErrMalformedPayload, err)
	}
	if we.ID == "" || we.Type == "" {
		return dompay.Event{}, fmt.Errorf("%w: missing event id or type", dompay.ErrMalformedPayload)
	}
	return dompay.Event{
		ID:       we.ID,
		Type:     we.Type,
		IntentID: we.Data.Object.ID,
		Metadata: we.Data.Object.Metadata,
		Created:  time.Unix(we.Created, 0).UTC(),
	}, nil
}

func (g *Gateway) verify(payload []byte, header string) error {
	var err error
	if g.tolerance > 0 {
		err = webhook.ValidatePayloadWithTolerance(payload, header, g.secret, g.tolerance)
	} else {
		err = webhook.ValidatePayloadIgnoringTolerance(payload, header, g.secret)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", dompay.ErrInvalidSignature, err)
	}
	return nil
}

// Sign returns the signature header for payload at time at.
func (g *Gateway) Sign(payload []byte, at time.Time) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    g.secret,
		Timestamp: at,
	}).Header
}

// EventPayload builds a webhook body for an intent event.
func EventPayload(eventID, eventType, intentID string, metadata map[string]string, created time.Time) ([]byte, error) {
	var we webhookEvent
	we.ID = eventID
	we.Type = eventType
	we.Created = created.Unix()
	we.Data.Object.ID = intentID
	we.Data.Object.Metadata = metadata
	return json.Marshal(we)
}
