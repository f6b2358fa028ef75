package order

import (
	"context"
	"strings"

	"github.com/candleshop/shop/internal/domain/validation"
)

type SortField string

const (
	SortCreatedAt SortField = "created_at"
	SortTotal     SortField = "total_amount"
	SortStatus    SortField = "status"
)

type Ordering struct {
	Field SortField
	Desc  bool
}

var DefaultOrdering = Ordering{Field: SortCreatedAt, Desc: true}

// ParseOrdering accepts a sort field with an optional "-" prefix for
// descending order. An empty string yields DefaultOrdering.
func ParseOrdering(s string) (Ordering, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultOrdering, nil
	}
	o := Ordering{}
	if strings.HasPrefix(s, "-") {
		o.Desc = true
		s = s[1:]
	}
	switch f := SortField(s); f {
	case SortCreatedAt, SortTotal, SortStatus:
		o.Field = f
	default:
		return Ordering{}, validation.New("ordering", "Unsupported ordering field.")
	}
	return o, nil
}

type ListFilter struct {
	// UserID restricts the listing to one owner; zero lists every order.
	UserID int64
	// Search matches the order id, customer email or payment intent id.
	Search   string
	Ordering Ordering
}

type Repository interface {
	// Insert stores o with its items and assigns their IDs.
	Insert(ctx context.Context, o *Order) error
	Get(ctx context.Context, id int64) (*Order, error)
	// GetForUpdate loads the order holding a row lock until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*Order, error)
	// FindByIntentForUpdate locks the order matching both the id and the
	// payment intent id.
	FindByIntentForUpdate(ctx context.Context, id int64, intentID string) (*Order, error)
	List(ctx context.Context, filter ListFilter) ([]*Order, error)
	UpdateStatus(ctx context.Context, o *Order) error
	// UpdateCheckout persists address, amounts and gateway identifiers.
	UpdateCheckout(ctx context.Context, o *Order) error
}
