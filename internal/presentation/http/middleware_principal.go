package httppresentation

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/candleshop/shop/internal/domain/identity"
	"github.com/candleshop/shop/internal/observability"
	"github.com/candleshop/shop/internal/observability/logctx"
)

// Identity headers set by the upstream session layer.
const (
	headerUserID    = "X-User-ID"
	headerUserEmail = "X-User-Email"
	headerUserStaff = "X-User-Staff"
)

func principalFromRequest(r *http.Request) (identity.Principal, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.Header.Get(headerUserID)), 10, 64)
	if err != nil || id <= 0 {
		return identity.Principal{}, identity.ErrUnauthenticated
	}
	staff, _ := strconv.ParseBool(strings.TrimSpace(r.Header.Get(headerUserStaff)))
	return identity.Principal{
		ID:      id,
		Email:   strings.TrimSpace(r.Header.Get(headerUserEmail)),
		IsStaff: staff,
	}, nil
}

// withPrincipal rejects anonymous requests and binds user_id to the
// request logger.
func (h *Handler) withPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := principalFromRequest(r)
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		ctx := identity.WithPrincipal(r.Context(), p)
		ctx, _ = logctx.Enrich(ctx, h.log, observability.F("user_id", p.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// principal returns the caller stored by withPrincipal.
func principal(r *http.Request) identity.Principal {
	p, _ := identity.FromContext(r.Context())
	return p
}
