package httppresentation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appCart "github.com/candleshop/shop/internal/application/cart"
	appCatalog "github.com/candleshop/shop/internal/application/catalog"
	appOrder "github.com/candleshop/shop/internal/application/order"
	appPayment "github.com/candleshop/shop/internal/application/payment"
	"github.com/candleshop/shop/internal/domain/catalog"
	"github.com/candleshop/shop/internal/domain/identity"
	"github.com/candleshop/shop/internal/domain/order"
	"github.com/candleshop/shop/internal/domain/outbox"
	dompay "github.com/candleshop/shop/internal/domain/payment"
	"github.com/candleshop/shop/internal/domain/validation"
	"github.com/candleshop/shop/internal/infrastructure/memory"
	"github.com/candleshop/shop/internal/infrastructure/payment/sandbox"
)

type fixture struct {
	router  http.Handler
	store   *memory.Store
	gateway *sandbox.Gateway
	product *catalog.Product
}

var staff = identity.Principal{ID: 99, Email: "staff@example.com", IsStaff: true}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	store := memory.NewStore()
	gw := sandbox.New("whsec_test", decimal.RequireFromString("0.10"))

	catalogSvc := appCatalog.NewService(store, nil)
	svc := Services{
		Catalog:  catalogSvc,
		Cart:     appCart.NewService(store, nil),
		Orders:   appOrder.NewService(store, outbox.Discard, appOrder.Settings{Currency: "usd", FlatShippingFee: decimal.RequireFromString("15.00")}, nil),
		Payments: appPayment.NewService(store, gw, nil, outbox.Discard, nil),
	}

	ctx := context.Background()
	cat, err := catalogSvc.CreateCategory(ctx, staff, "Candles")
	require.NoError(t, err)
	p, err := catalogSvc.CreateProduct(ctx, appCatalog.CreateProductInput{
		Principal:  staff,
		CategoryID: cat.ID,
		Name:       "Beeswax Pillar",
		Price:      decimal.RequireFromString("10.00"),
		StockQty:   3,
	})
	require.NoError(t, err)

	return &fixture{router: NewHandler(svc, nil, opts...).Router(), store: store, gateway: gw, product: p}
}

func (f *fixture) do(t *testing.T, method, path string, p *identity.Principal, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if p != nil {
		req.Header.Set(headerUserID, strconv.FormatInt(p.ID, 10))
		req.Header.Set(headerUserEmail, p.Email)
		req.Header.Set(headerUserStaff, strconv.FormatBool(p.IsStaff))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

var (
	ann     = identity.Principal{ID: 1, Email: "ann@example.com"}
	address = addressPayload{FullName: "Ann", Line1: "1 Main St", City: "Austin", State: "TX", PostalCode: "78701", Country: "usa"}
)

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))
}

func TestRequestIDIsEchoed(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(headerRequestID, "req-123")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(headerRequestID))
}

func TestAuthentication(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/cart", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/categories", &ann, createCategoryRequest{Name: "Soaps"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, "/categories", &staff, createCategoryRequest{Name: "Soaps"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "soaps", decode[categoryResponse](t, rec).Slug)
}

func TestCatalogRoutes(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/products?category=candles&in_stock=true", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]productResponse](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "10.00", list[0].Price)
	assert.True(t, list[0].InStock)

	rec = f.do(t, http.MethodGet, "/products/"+f.product.Slug, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/products/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	zero := 0
	rec = f.do(t, http.MethodPatch, "/products/"+strconv.FormatInt(f.product.ID, 10)+"/stock", &staff, setStockRequest{StockQty: &zero})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[productResponse](t, rec).InStock)

	rec = f.do(t, http.MethodPost, "/products", &staff, map[string]any{"category": 1, "name": "", "price": "1.999", "stock_qty": -1})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errorResponse](t, rec)
	assert.Contains(t, body.Fields, "name")
	assert.Contains(t, body.Fields, "price")
	assert.Contains(t, body.Fields, "stock_qty")
}

func TestDeleteReferencedProductConflicts(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/cart/items", &ann, addCartItemRequest{ProductID: f.product.ID})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodDelete, "/products/"+strconv.FormatInt(f.product.ID, 10), &staff, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodDelete, "/products/abc", &staff, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCartRoutes(t *testing.T) {
	f := newFixture(t)
	two := 2

	rec := f.do(t, http.MethodPost, "/cart/items", &ann, addCartItemRequest{ProductID: f.product.ID, Quantity: &two})
	require.Equal(t, http.StatusOK, rec.Code)
	c := decode[cartResponse](t, rec)
	require.Len(t, c.Items, 1)
	assert.Equal(t, "20.00", c.Subtotal)

	itemPath := "/cart/items/" + strconv.FormatInt(c.Items[0].ID, 10)
	zero := 0
	rec = f.do(t, http.MethodPatch, itemPath, &ann, updateCartItemRequest{Quantity: &zero})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[cartResponse](t, rec).Items)

	rec = f.do(t, http.MethodDelete, itemPath, &ann, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/cart/items", &ann, addCartItemRequest{ProductID: 404})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/cart/merge", &ann, mergeCartRequest{Items: []lineRequest{{ProductID: f.product.ID, Quantity: 1}, {ProductID: f.product.ID, Quantity: 1}}})
	require.Equal(t, http.StatusOK, rec.Code)
	merged := decode[cartResponse](t, rec)
	require.Len(t, merged.Items, 1)
	assert.Equal(t, 2, merged.Items[0].Quantity)
}

func TestCartRejectsHugeQuantity(t *testing.T) {
	f := newFixture(t)
	body := `{"product_id": ` + strconv.FormatInt(f.product.ID, 10) + `, "quantity": 9223372036854775807}`
	req := httptest.NewRequest(http.MethodPost, "/cart/items", bytes.NewBufferString(body))
	req.Header.Set(headerUserID, "1")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Contains(t, decode[errorResponse](t, rec).Fields, "quantity")

	rec = f.do(t, http.MethodGet, "/cart", &ann, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[cartResponse](t, rec).Items)
}

func TestMalformedBody(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(`{"items": [`))
	req.Header.Set(headerUserID, "1")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Fields, "body")
}

func TestCheckoutAndWebhookFlow(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/orders", &ann, createOrderRequest{Items: []lineRequest{{ProductID: f.product.ID, Quantity: 2}}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[orderResponse](t, rec)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, "20.00", created.Total)

	rec = f.do(t, http.MethodPost, "/orders", &ann, createOrderRequest{Items: []lineRequest{{ProductID: f.product.ID, Quantity: 2}}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, "/orders/create-intent", &ann, createIntentRequest{OrderID: created.ID, ShippingAddress: address})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	intent := decode[createIntentResponse](t, rec)
	assert.NotEmpty(t, intent.ClientSecret)
	assert.Equal(t, "20.00", intent.Subtotal)
	assert.Equal(t, "0.00", intent.Shipping)
	assert.Equal(t, "2.00", intent.Tax)
	assert.Equal(t, "22.00", intent.Total)

	orderPath := "/orders/" + strconv.FormatInt(created.ID, 10)
	rec = f.do(t, http.MethodGet, orderPath, &ann, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stored := decode[orderResponse](t, rec)
	assert.Equal(t, "US", stored.ShippingAddress.Country)
	assert.Equal(t, "0.00", stored.Shipping)
	assert.Equal(t, "22.00", stored.Total)
	require.NotEmpty(t, stored.PaymentIntentID)

	payload, err := sandbox.EventPayload("evt_1", dompay.EventIntentSucceeded, stored.PaymentIntentID,
		map[string]string{dompay.MetaOrderID: strconv.FormatInt(created.ID, 10)}, time.Now())
	require.NoError(t, err)

	send := func(sig string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/orders/webhook", bytes.NewReader(payload))
		req.Header.Set(headerWebhookSignature, sig)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		return rec
	}

	rec = send("t=1,v1=00")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = send(f.gateway.Sign(payload, time.Now()))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", decode[webhookResponse](t, rec).Outcome)

	rec = send(f.gateway.Sign(payload, time.Now()))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ignored", decode[webhookResponse](t, rec).Outcome)

	rec = f.do(t, http.MethodGet, orderPath, &ann, nil)
	assert.Equal(t, "paid", decode[orderResponse](t, rec).Status)

	other := identity.Principal{ID: 2, Email: "bob@example.com"}
	rec = f.do(t, http.MethodGet, orderPath, &other, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStaffOrderRoutes(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/cart/items", &ann, addCartItemRequest{ProductID: f.product.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodPost, "/orders/from-cart", &ann, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[orderResponse](t, rec)
	assert.Equal(t, "15.00", created.Shipping)
	assert.Equal(t, "25.00", created.Total)

	rec = f.do(t, http.MethodGet, "/orders/staff", &ann, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, "/orders/staff?search=ann@&ordering=-total_amount", &staff, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]orderResponse](t, rec), 1)

	rec = f.do(t, http.MethodGet, "/orders/staff?ordering=price", &staff, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	statusPath := "/orders/" + strconv.FormatInt(created.ID, 10) + "/status"
	rec = f.do(t, http.MethodPatch, statusPath, &staff, updateStatusRequest{Status: "shipped"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPatch, statusPath, &staff, updateStatusRequest{Status: "canceled"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "canceled", decode[orderResponse](t, rec).Status)

	rec = f.do(t, http.MethodGet, "/orders/my", &ann, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]orderResponse](t, rec), 1)
}

type stubLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (l *stubLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, time.Duration, error) {
	l.keys = append(l.keys, key)
	return l.allow, 1500 * time.Millisecond, l.err
}

func TestThrottle(t *testing.T) {
	lim := &stubLimiter{}
	f := newFixture(t, WithLimiter(lim, map[string]Rate{ScopeOrdersCreate: {Limit: 10, Window: time.Minute}}))

	rec := f.do(t, http.MethodPost, "/orders/from-cart", &ann, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.Equal(t, []string{"orders_create:1"}, lim.keys)

	// payment_intent has no configured rate and is not throttled.
	rec = f.do(t, http.MethodPost, "/orders/create-intent", &ann, createIntentRequest{OrderID: 12345, ShippingAddress: address})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestThrottleFailsOpen(t *testing.T) {
	lim := &stubLimiter{err: errors.New("redis down")}
	f := newFixture(t, WithLimiter(lim, map[string]Rate{ScopeOrdersCreate: {Limit: 10, Window: time.Minute}}))

	rec := f.do(t, http.MethodPost, "/orders/from-cart", &ann, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code) // empty cart
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{validation.New("x", "bad"), http.StatusBadRequest},
		{&catalog.UnknownProductError{IDs: []int64{1}}, http.StatusBadRequest},
		{order.ErrIncompleteAddress, http.StatusBadRequest},
		{identity.ErrUnauthenticated, http.StatusUnauthorized},
		{identity.ErrForbidden, http.StatusForbidden},
		{order.ErrNotFound, http.StatusNotFound},
		{&catalog.InsufficientStockError{ProductID: 1}, http.StatusConflict},
		{&order.TransitionError{From: order.StatusPaid, To: order.StatusPending}, http.StatusConflict},
		{order.ErrNotPayable, http.StatusConflict},
		{catalog.ErrProductReferenced, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, httpStatus(tt.err), tt.err.Error())
	}
}

func TestMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("# metrics")) })
	f := newFixture(t, WithMetricsHandler(metrics))
	rec := f.do(t, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# metrics", rec.Body.String())
}
