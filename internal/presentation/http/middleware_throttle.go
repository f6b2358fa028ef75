package httppresentation

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/candleshop/shop/internal/domain/identity"
	"github.com/candleshop/shop/internal/observability"
	"github.com/candleshop/shop/internal/observability/logctx"
)

// Limiter counts hits per key in a fixed window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error)
}

type Rate struct {
	Limit  int
	Window time.Duration
}

// Throttle scopes.
const (
	ScopeOrdersCreate  = "orders_create"
	ScopePaymentIntent = "payment_intent"
)

// withThrottle limits the authenticated caller per scope. A limiter
// failure lets the request through.
func (h *Handler) withThrottle(scope string, next http.Handler) http.Handler {
	rate, ok := h.rates[scope]
	if h.limiter == nil || !ok || rate.Limit <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := identity.FromContext(r.Context())
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		key := scope + ":" + strconv.FormatInt(p.ID, 10)
		allowed, retryAfter, err := h.limiter.Allow(r.Context(), key, rate.Limit, rate.Window)
		if err != nil {
			logctx.FromOr(r.Context(), h.log).Warn("throttle_unavailable",
				observability.F("scope", scope),
				observability.Err(err),
			)
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "Request was throttled."})
			return
		}
		next.ServeHTTP(w, r)
	})
}
