package httppresentation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/candleshop/shop/internal/application"
	"github.com/candleshop/shop/internal/domain/cart"
	"github.com/candleshop/shop/internal/domain/catalog"
	"github.com/candleshop/shop/internal/domain/identity"
	"github.com/candleshop/shop/internal/domain/order"
	"github.com/candleshop/shop/internal/domain/validation"
	"github.com/candleshop/shop/internal/observability"
	"github.com/candleshop/shop/internal/observability/logctx"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// httpStatus maps domain errors onto response codes.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, validation.ErrInvalid),
		errors.Is(err, catalog.ErrUnknownProduct),
		errors.Is(err, catalog.ErrInvalidStock),
		errors.Is(err, order.ErrIncompleteAddress),
		errors.Is(err, order.ErrEmptyOrder),
		errors.Is(err, order.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, identity.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, identity.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, cart.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrInsufficientStock),
		errors.Is(err, catalog.ErrOutOfStock),
		errors.Is(err, catalog.ErrProductReferenced),
		errors.Is(err, catalog.ErrDuplicateName),
		errors.Is(err, order.ErrIllegalTransition),
		errors.Is(err, order.ErrNotPayable):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatus(err)
	body := errorResponse{Error: err.Error()}

	var verr *validation.Error
	if errors.As(err, &verr) {
		body = errorResponse{Error: validation.ErrInvalid.Error(), Fields: verr.Fields}
	}
	if status == http.StatusInternalServerError {
		logctx.FromOr(r.Context(), h.log).Error("http_internal_error",
			observability.F("status", application.StatusOf(err)),
			observability.Err(err),
		)
		body = errorResponse{Error: http.StatusText(status)}
	}
	writeJSON(w, status, body)
}

// decodeJSON reads a single JSON object, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return validation.New("body", "Request body is required.")
		}
		return validation.New("body", fmt.Sprintf("Malformed JSON: %v.", err))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
