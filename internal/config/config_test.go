package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(env(nil))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "usd", cfg.Currency)
	assert.Equal(t, "15.00", cfg.FlatShippingFee.StringFixed(2))
	assert.False(t, cfg.UseStripe)
	assert.Equal(t, Rate{Limit: 10, Window: time.Minute}, cfg.ThrottleOrdersCreate)
	assert.Equal(t, Rate{Limit: 20, Window: time.Minute}, cfg.ThrottlePaymentIntent)
	assert.Equal(t, 72*time.Hour, cfg.WebhookEventTTL)
	assert.Empty(t, cfg.MySQLDSN)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadFrom(env(map[string]string{
		"CURRENCY":               "EUR",
		"FLAT_SHIPPING_FEE":      "4.99",
		"USE_STRIPE":             "true",
		"STRIPE_SECRET_KEY":      "sk_test",
		"STRIPE_WEBHOOK_SECRET":  "whsec",
		"THROTTLE_ORDERS_CREATE": "100/hour",
		"SANDBOX_TAX_RATE":       "0.0825",
	}))
	require.NoError(t, err)
	assert.Equal(t, "eur", cfg.Currency)
	assert.Equal(t, "4.99", cfg.FlatShippingFee.StringFixed(2))
	assert.True(t, cfg.UseStripe)
	assert.Equal(t, Rate{Limit: 100, Window: time.Hour}, cfg.ThrottleOrdersCreate)
	assert.Equal(t, "0.0825", cfg.SandboxTaxRate.String())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	_, err := LoadFrom(env(map[string]string{
		"FLAT_SHIPPING_FEE":       "1.234",
		"USE_STRIPE":              "true",
		"THROTTLE_PAYMENT_INTENT": "ten/min",
		"WEBHOOK_EVENT_TTL":       "-1h",
	}))
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "FLAT_SHIPPING_FEE")
	assert.Contains(t, msg, "STRIPE_SECRET_KEY")
	assert.Contains(t, msg, "THROTTLE_PAYMENT_INTENT")
	assert.Contains(t, msg, "WEBHOOK_EVENT_TTL")
}

func TestParseRate(t *testing.T) {
	r, err := ParseRate("5/s")
	require.NoError(t, err)
	assert.Equal(t, Rate{Limit: 5, Window: time.Second}, r)

	for _, bad := range []string{"", "5", "0/min", "5/fortnight"} {
		_, err := ParseRate(bad)
		assert.Error(t, err, bad)
	}
}
