// Package config loads the immutable service configuration from the
// environment once at startup.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/candleshop/shop/internal/domain/money"
)

// Rate is a request budget per fixed window.
type Rate struct {
	Limit  int
	Window time.Duration
}

func (r Rate) String() string {
	return fmt.Sprintf("%d/%s", r.Limit, r.Window)
}

type Config struct {
	ServiceName string
	Env         string
	HTTPAddr    string
	LogFile     string
	LogLevel    string

	MySQLDSN  string
	RedisAddr string
	AMQPURL   string

	Currency        string
	FlatShippingFee decimal.Decimal

	UseStripe           bool
	StripeSecretKey     string
	StripeWebhookSecret string
	SandboxTaxRate      decimal.Decimal

	ThrottleOrdersCreate  Rate
	ThrottlePaymentIntent Rate
	WebhookEventTTL       time.Duration
}

// Load reads the process environment.
func Load() (Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom reads configuration through lookup, which has the signature of
// os.LookupEnv.
func LoadFrom(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return def
	}

	cfg := Config{
		ServiceName:         get("SERVICE_NAME", "shop"),
		Env:                 get("ENV", "dev"),
		HTTPAddr:            get("HTTP_ADDR", ":8080"),
		LogFile:             get("LOG_FILE", ""),
		LogLevel:            get("LOG_LEVEL", "info"),
		MySQLDSN:            get("MYSQL_DSN", ""),
		RedisAddr:           get("REDIS_ADDR", ""),
		AMQPURL:             get("AMQP_URL", ""),
		Currency:            strings.ToLower(get("CURRENCY", "usd")),
		StripeSecretKey:     get("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: get("STRIPE_WEBHOOK_SECRET", ""),
	}

	var errs []error
	var err error
	if cfg.FlatShippingFee, err = money.Parse(get("FLAT_SHIPPING_FEE", "15.00")); err != nil || cfg.FlatShippingFee.IsNegative() {
		errs = append(errs, errors.New("FLAT_SHIPPING_FEE: must be a non-negative amount with at most 2 decimals"))
	}
	if cfg.UseStripe, err = strconv.ParseBool(get("USE_STRIPE", "false")); err != nil {
		errs = append(errs, fmt.Errorf("USE_STRIPE: %w", err))
	}
	if cfg.SandboxTaxRate, err = decimal.NewFromString(get("SANDBOX_TAX_RATE", "0")); err != nil || cfg.SandboxTaxRate.IsNegative() {
		errs = append(errs, errors.New("SANDBOX_TAX_RATE: must be a non-negative decimal"))
	}
	if cfg.ThrottleOrdersCreate, err = ParseRate(get("THROTTLE_ORDERS_CREATE", "10/min")); err != nil {
		errs = append(errs, fmt.Errorf("THROTTLE_ORDERS_CREATE: %w", err))
	}
	if cfg.ThrottlePaymentIntent, err = ParseRate(get("THROTTLE_PAYMENT_INTENT", "20/min")); err != nil {
		errs = append(errs, fmt.Errorf("THROTTLE_PAYMENT_INTENT: %w", err))
	}
	if cfg.WebhookEventTTL, err = time.ParseDuration(get("WEBHOOK_EVENT_TTL", "72h")); err != nil || cfg.WebhookEventTTL <= 0 {
		errs = append(errs, errors.New("WEBHOOK_EVENT_TTL: must be a positive duration"))
	}
	if len(cfg.Currency) != 3 {
		errs = append(errs, errors.New("CURRENCY: must be a 3-letter ISO code"))
	}
	if cfg.UseStripe && (cfg.StripeSecretKey == "" || cfg.StripeWebhookSecret == "") {
		errs = append(errs, errors.New("USE_STRIPE: STRIPE_SECRET_KEY and STRIPE_WEBHOOK_SECRET are required"))
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

var rateUnits = map[string]time.Duration{
	"s": time.Second, "sec": time.Second, "second": time.Second,
	"m": time.Minute, "min": time.Minute, "minute": time.Minute,
	"h": time.Hour, "hour": time.Hour,
	"d": 24 * time.Hour, "day": 24 * time.Hour,
}

// ParseRate parses "<n>/<unit>" such as "10/min" or "100/hour".
func ParseRate(s string) (Rate, error) {
	n, unit, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return Rate{}, fmt.Errorf("rate %q: expected <count>/<unit>", s)
	}
	limit, err := strconv.Atoi(n)
	if err != nil || limit <= 0 {
		return Rate{}, fmt.Errorf("rate %q: count must be a positive integer", s)
	}
	window, ok := rateUnits[strings.ToLower(unit)]
	if !ok {
		return Rate{}, fmt.Errorf("rate %q: unknown unit %q", s, unit)
	}
	return Rate{Limit: limit, Window: window}, nil
}
