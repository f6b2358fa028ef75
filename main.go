package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/candleshop/shop/internal/application"
	appCart "github.com/candleshop/shop/internal/application/cart"
	appCatalog "github.com/candleshop/shop/internal/application/catalog"
	appOrder "github.com/candleshop/shop/internal/application/order"
	appPayment "github.com/candleshop/shop/internal/application/payment"
	"github.com/candleshop/shop/internal/config"
	dompay "github.com/candleshop/shop/internal/domain/payment"
	"github.com/candleshop/shop/internal/infrastructure/memory"
	"github.com/candleshop/shop/internal/infrastructure/mysql"
	"github.com/candleshop/shop/internal/infrastructure/observability/oteltrace"
	"github.com/candleshop/shop/internal/infrastructure/observability/prometrics"
	"github.com/candleshop/shop/internal/infrastructure/observability/telemetry"
	"github.com/candleshop/shop/internal/infrastructure/observability/zaplogger"
	orderworker "github.com/candleshop/shop/internal/infrastructure/order/worker"
	"github.com/candleshop/shop/internal/infrastructure/outbox"
	"github.com/candleshop/shop/internal/infrastructure/payment/sandbox"
	"github.com/candleshop/shop/internal/infrastructure/payment/stripe"
	"github.com/candleshop/shop/internal/infrastructure/rabbitmq"
	"github.com/candleshop/shop/internal/infrastructure/redis"
	"github.com/candleshop/shop/internal/observability"
	"github.com/candleshop/shop/internal/pkg/logging"
	httppresentation "github.com/candleshop/shop/internal/presentation/http"
)

const sandboxWebhookSecret = "whsec_sandbox"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	baseLogger, err := logging.NewLogger(logging.Options{
		Service: cfg.ServiceName,
		Env:     cfg.Env,
		File:    cfg.LogFile,
		Level:   cfg.LogLevel,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	if err := run(cfg, zaplogger.New(baseLogger)); err != nil {
		baseLogger.Error("service_exit", zap.Error(err))
		_ = baseLogger.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, logger observability.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	tel := telemetry.New(oteltrace.New(cfg.ServiceName), logger, prometrics.New(reg, ""))
	systemLogger := logger.With(observability.F("component", "system"))

	store, closeStore, err := openStore(ctx, cfg, systemLogger)
	if err != nil {
		return err
	}
	defer closeStore()

	var (
		limiter httppresentation.Limiter
		ledger  dompay.EventLedger
	)
	if cfg.RedisAddr != "" {
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: ping: %w", err)
		}
		limiter = redis.NewRateLimiter(rdb)
		ledger = redis.NewEventLedger(rdb, cfg.WebhookEventTTL)
		systemLogger.Info("redis_enabled", observability.F("addr", cfg.RedisAddr))
	}

	bus := outbox.NewBus(logger)
	bus.Start(context.Background())
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := bus.Stop(stopCtx); err != nil {
			systemLogger.Warn("outbox_stop_error", observability.Err(err))
		}
	}()

	if cfg.AMQPURL != "" {
		conn, ch, err := rabbitmq.SetupConn(ctx, cfg.AMQPURL, systemLogger)
		if err != nil {
			return fmt.Errorf("rabbitmq: %w", err)
		}
		defer func() {
			_ = ch.Close()
			_ = conn.Close()
		}()
		orderworker.New(bus, rabbitmq.NewPublisher(ch), tel).Start()
		systemLogger.Info("order_relay_enabled", observability.F("exchange", rabbitmq.ExchangeName))
	}

	var gateway dompay.Gateway
	if cfg.UseStripe {
		gateway = stripe.New(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	} else {
		secret := cfg.StripeWebhookSecret
		if secret == "" {
			secret = sandboxWebhookSecret
		}
		gateway = sandbox.New(secret, cfg.SandboxTaxRate)
		systemLogger.Info("payment_sandbox_enabled", observability.F("tax_rate", cfg.SandboxTaxRate.String()))
	}

	svc := httppresentation.Services{
		Catalog: appCatalog.NewService(store, tel),
		Cart:    appCart.NewService(store, tel),
		Orders: appOrder.NewService(store, bus, appOrder.Settings{
			Currency:        cfg.Currency,
			FlatShippingFee: cfg.FlatShippingFee,
		}, tel),
		Payments: appPayment.NewService(store, gateway, ledger, bus, tel),
	}

	opts := []httppresentation.Option{
		httppresentation.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})),
	}
	if limiter != nil {
		opts = append(opts, httppresentation.WithLimiter(limiter, map[string]httppresentation.Rate{
			httppresentation.ScopeOrdersCreate:  {Limit: cfg.ThrottleOrdersCreate.Limit, Window: cfg.ThrottleOrdersCreate.Window},
			httppresentation.ScopePaymentIntent: {Limit: cfg.ThrottlePaymentIntent.Limit, Window: cfg.ThrottlePaymentIntent.Window},
		}))
	}

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httppresentation.NewHandler(svc, tel, opts...).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		systemLogger.Info("http_server_start", observability.F("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error", observability.Err(err))
		return err
	}
	systemLogger.Info("http_server_stopped")
	return nil
}

// openStore returns the MySQL store when a DSN is configured and the
// in-memory store otherwise.
func openStore(ctx context.Context, cfg config.Config, logger observability.Logger) (application.Store, func(), error) {
	if cfg.MySQLDSN == "" {
		logger.Info("store_selected", observability.F("kind", "memory"))
		return memory.NewStore(), func() {}, nil
	}

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	db, err := mysql.Open(openCtx, cfg.MySQLDSN)
	if err != nil {
		return nil, nil, err
	}
	store := mysql.NewStore(db)
	if err := store.Migrate(openCtx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	logger.Info("store_selected", observability.F("kind", "mysql"))
	return store, func() { closeDB(db, logger) }, nil
}

func closeDB(db *sql.DB, logger observability.Logger) {
	if err := db.Close(); err != nil {
		logger.Warn("mysql_close_error", observability.Err(err))
	}
}
