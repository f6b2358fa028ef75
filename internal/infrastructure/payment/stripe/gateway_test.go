package stripe

import (
	"context"
	"errors"
	"testing"
	"time"

	stripeapi "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dompay "github.com/candleshop/shop/internal/domain/payment"
)

const testSecret = "whsec_test"

type fakeIntents struct {
	got *stripeapi.PaymentIntentParams
	err error
}

func (f *fakeIntents) New(p *stripeapi.PaymentIntentParams) (*stripeapi.PaymentIntent, error) {
	f.got = p
	if f.err != nil {
		return nil, f.err
	}
	return &stripeapi.PaymentIntent{ID: "pi_123", ClientSecret: "pi_123_secret"}, nil
}

type fakeCalculations struct {
	got *stripeapi.TaxCalculationParams
}

func (f *fakeCalculations) New(p *stripeapi.TaxCalculationParams) (*stripeapi.TaxCalculation, error) {
	f.got = p
	return &stripeapi.TaxCalculation{ID: "taxcalc_1", TaxAmountExclusive: 248, AmountTotal: 4748}, nil
}

func newTestGateway() (*Gateway, *fakeIntents, *fakeCalculations) {
	fi, fc := &fakeIntents{}, &fakeCalculations{}
	return &Gateway{intents: fi, calculations: fc, webhookSecret: testSecret, tolerance: webhook.DefaultTolerance}, fi, fc
}

var shipTo = dompay.Address{Name: "Ann", Line1: "1 Main St", City: "Austin", State: "TX", PostalCode: "78701", Country: "US"}

func TestComputeTax(t *testing.T) {
	g, _, fc := newTestGateway()
	calc, err := g.ComputeTax(context.Background(), dompay.TaxRequest{
		Currency:      "usd",
		Lines:         []dompay.TaxLine{{Reference: "11", AmountCents: 3000, Quantity: 2}},
		ShippingCents: 1500,
		Address:       shipTo,
	})
	require.NoError(t, err)
	assert.Equal(t, dompay.TaxCalculation{ID: "taxcalc_1", TaxCents: 248, TotalCents: 4748}, calc)

	require.NotNil(t, fc.got)
	assert.Equal(t, "usd", *fc.got.Currency)
	require.Len(t, fc.got.LineItems, 1)
	assert.Equal(t, int64(3000), *fc.got.LineItems[0].Amount)
	assert.Equal(t, "11", *fc.got.LineItems[0].Reference)
	assert.Equal(t, int64(1500), *fc.got.ShippingCost.Amount)
	assert.Equal(t, "US", *fc.got.CustomerDetails.Address.Country)
	assert.Nil(t, fc.got.CustomerDetails.Address.Line2)
}

func TestComputeTaxWithoutShipping(t *testing.T) {
	g, _, fc := newTestGateway()
	_, err := g.ComputeTax(context.Background(), dompay.TaxRequest{Currency: "usd", Address: shipTo})
	require.NoError(t, err)
	assert.Nil(t, fc.got.ShippingCost)
}

func TestCreateIntent(t *testing.T) {
	g, fi, _ := newTestGateway()
	intent, err := g.CreateIntent(context.Background(), dompay.IntentRequest{
		AmountCents: 4748,
		Currency:    "usd",
		Metadata: map[string]string{
			dompay.MetaOrderID:          "7",
			dompay.MetaUserID:           "1",
			dompay.MetaTaxCalculationID: "taxcalc_1",
		},
		Shipping: shipTo,
	})
	require.NoError(t, err)
	assert.Equal(t, dompay.Intent{ID: "pi_123", ClientSecret: "pi_123_secret"}, intent)

	require.NotNil(t, fi.got)
	assert.Equal(t, int64(4748), *fi.got.Amount)
	assert.True(t, *fi.got.AutomaticPaymentMethods.Enabled)
	assert.Equal(t, "Ann", *fi.got.Shipping.Name)
	assert.Equal(t, "7", fi.got.Metadata[dompay.MetaOrderID])
	assert.Equal(t, "order-7-taxcalc_1", *fi.got.IdempotencyKey)
}

func TestCreateIntentWrapsError(t *testing.T) {
	g, fi, _ := newTestGateway()
	fi.err = errors.New("card_declined")
	_, err := g.CreateIntent(context.Background(), dompay.IntentRequest{AmountCents: 100, Currency: "usd"})
	assert.ErrorIs(t, err, fi.err)
}

func signed(t *testing.T, payload string, at time.Time, secret string) string {
	t.Helper()
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    secret,
		Timestamp: at,
	})
	return sp.Header
}

const succeededPayload = `{
	"id": "evt_1",
	"object": "event",
	"type": "payment_intent.succeeded",
	"created": 1767225600,
	"data": {"object": {"id": "pi_123", "object": "payment_intent", "metadata": {"order_id": "7"}}}
}`

func TestParseWebhook(t *testing.T) {
	g, _, _ := newTestGateway()
	ev, err := g.ParseWebhook([]byte(succeededPayload), signed(t, succeededPayload, time.Now(), testSecret))
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, dompay.EventIntentSucceeded, ev.Type)
	assert.Equal(t, "pi_123", ev.IntentID)
	assert.Equal(t, "7", ev.Metadata[dompay.MetaOrderID])
}

func TestParseWebhookRejectsBadSignature(t *testing.T) {
	g, _, _ := newTestGateway()

	_, err := g.ParseWebhook([]byte(succeededPayload), signed(t, succeededPayload, time.Now(), "whsec_other"))
	assert.ErrorIs(t, err, dompay.ErrInvalidSignature)

	_, err = g.ParseWebhook([]byte(succeededPayload), "")
	assert.ErrorIs(t, err, dompay.ErrInvalidSignature)

	_, err = g.ParseWebhook([]byte(succeededPayload), signed(t, succeededPayload, time.Now().Add(-time.Hour), testSecret))
	assert.ErrorIs(t, err, dompay.ErrInvalidSignature)
}

func TestParseWebhookRejectsMalformedPayload(t *testing.T) {
	g, _, _ := newTestGateway()
	body := `not json`
	_, err := g.ParseWebhook([]byte(body), signed(t, body, time.Now(), testSecret))
	assert.ErrorIs(t, err, dompay.ErrMalformedPayload)
}
