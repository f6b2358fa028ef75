package httppresentation

import (
	"io"
	"net/http"
	"strconv"

	"github.com/candleshop/shop/internal/application"
	appCart "github.com/candleshop/shop/internal/application/cart"
	appCatalog "github.com/candleshop/shop/internal/application/catalog"
	appOrder "github.com/candleshop/shop/internal/application/order"
	appPayment "github.com/candleshop/shop/internal/application/payment"
	"github.com/candleshop/shop/internal/observability"
	"github.com/candleshop/shop/internal/observability/logctx"
)

const componentHTTPHandler = "http_server"

// Services are the application entry points exposed over HTTP.
type Services struct {
	Catalog  *appCatalog.Service
	Cart     *appCart.Service
	Orders   *appOrder.Service
	Payments *appPayment.Service
}

type Handler struct {
	svc          Services
	limiter      Limiter
	rates        map[string]Rate
	metrics      http.Handler
	log          observability.Logger
	httpRequests observability.Counter
	httpDuration observability.Histogram
}

type Option func(*Handler)

// WithLimiter enables per-user throttling for the given scopes.
func WithLimiter(l Limiter, rates map[string]Rate) Option {
	return func(h *Handler) {
		h.limiter = l
		h.rates = rates
	}
}

// WithMetricsHandler serves m on GET /metrics.
func WithMetricsHandler(m http.Handler) Option {
	return func(h *Handler) { h.metrics = m }
}

func NewHandler(svc Services, tel observability.Observability, opts ...Option) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	h := &Handler{
		svc:          svc,
		log:          tel.Logger().With(observability.F("component", componentHTTPHandler)),
		httpRequests: tel.Metrics().Counter(observability.MHTTPRequests),
		httpDuration: tel.Metrics().Histogram(observability.MHTTPRequestDuration),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// route access levels
const (
	public = iota
	authenticated
)

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	h.handle(mux, "GET /health", public, "", h.handleHealth)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}

	h.handle(mux, "GET /categories", public, "", h.handleListCategories)
	h.handle(mux, "POST /categories", authenticated, "", h.handleCreateCategory)
	h.handle(mux, "GET /products", public, "", h.handleListProducts)
	h.handle(mux, "GET /products/{slug}", public, "", h.handleGetProduct)
	h.handle(mux, "POST /products", authenticated, "", h.handleCreateProduct)
	h.handle(mux, "PATCH /products/{id}/stock", authenticated, "", h.handleSetStock)
	h.handle(mux, "DELETE /products/{id}", authenticated, "", h.handleDeleteProduct)

	h.handle(mux, "GET /cart", authenticated, "", h.handleGetCart)
	h.handle(mux, "POST /cart/items", authenticated, "", h.handleAddCartItem)
	h.handle(mux, "PATCH /cart/items/{id}", authenticated, "", h.handleUpdateCartItem)
	h.handle(mux, "DELETE /cart/items/{id}", authenticated, "", h.handleRemoveCartItem)
	h.handle(mux, "POST /cart/merge", authenticated, "", h.handleMergeCart)

	h.handle(mux, "POST /orders", authenticated, ScopeOrdersCreate, h.handleCreateOrder)
	h.handle(mux, "POST /orders/from-cart", authenticated, ScopeOrdersCreate, h.handleCreateOrderFromCart)
	h.handle(mux, "GET /orders/my", authenticated, "", h.handleListMyOrders)
	h.handle(mux, "GET /orders/staff", authenticated, "", h.handleListAllOrders)
	h.handle(mux, "GET /orders/{id}", authenticated, "", h.handleGetOrder)
	h.handle(mux, "PATCH /orders/{id}/status", authenticated, "", h.handleUpdateStatus)
	h.handle(mux, "POST /orders/create-intent", authenticated, ScopePaymentIntent, h.handleCreateIntent)
	h.handle(mux, "POST /orders/webhook", public, "", h.handleWebhook)

	return mux
}

// handle wires a route as
// Trace -> request logger -> metrics -> access log -> principal -> throttle -> handler.
func (h *Handler) handle(mux *http.ServeMux, pattern string, access int, throttleScope string, fn http.HandlerFunc) {
	var inner http.Handler = fn
	if throttleScope != "" {
		inner = h.withThrottle(throttleScope, inner)
	}
	if access == authenticated {
		inner = h.withPrincipal(inner)
	}
	chain := h.withTrace(
		ObservabilityMiddleware(h.log, func(r *http.Request) string { return r.Header.Get(headerRequestID) })(
			h.withHTTPMetrics(
				h.withAccessLog(inner),
			),
		),
	)
	mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chain.ServeHTTP(w, r.WithContext(contextWithRoute(r.Context(), pattern)))
	}))
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// pathID parses a positive integer path segment. Anything else is a 404.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, errorResponse{Error: "Not found."})
}

// Payments

func (h *Handler) handleCreateIntent(w http.ResponseWriter, r *http.Request) {
	var req createIntentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	res, err := h.svc.Payments.CreateIntent.Execute(r.Context(), appPayment.CreateIntentInput{
		Principal: principal(r),
		OrderID:   req.OrderID,
		Address:   req.ShippingAddress.toDomain(),
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCreateIntent(res))
}

const headerWebhookSignature = "Stripe-Signature"

// handleWebhook acknowledges processed and ignored events with 200, rejects
// unverifiable deliveries with 400 and answers 500 when the store failed so
// the provider retries.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid payload."})
		return
	}
	res, err := h.svc.Payments.HandleWebhook.Execute(r.Context(), appPayment.WebhookInput{
		Payload:   payload,
		Signature: r.Header.Get(headerWebhookSignature),
	})
	if err != nil {
		logctx.FromOr(r.Context(), h.log).Error("webhook_failed", observability.Err(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: http.StatusText(http.StatusInternalServerError)})
		return
	}
	if res.Outcome == application.OutcomeRejected {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: res.Reason})
		return
	}
	writeJSON(w, http.StatusOK, webhookResponse{Received: true, Outcome: res.Outcome, Reason: res.Reason})
}
