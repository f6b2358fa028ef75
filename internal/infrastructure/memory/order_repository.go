package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/candleshop/shop/internal/domain/order"
)

type orderRepository struct{ sc *scope }

func (r orderRepository) Insert(_ context.Context, o *order.Order) error {
	defer r.sc.lock()()
	st := r.sc.st()
	st.seq.order++
	o.ID = st.seq.order
	for i := range o.Items {
		st.seq.orderItem++
		o.Items[i].ID = st.seq.orderItem
		o.Items[i].OrderID = o.ID
	}
	st.orders[o.ID] = o.Clone()
	return nil
}

func (r orderRepository) Get(_ context.Context, id int64) (*order.Order, error) {
	defer r.sc.lock()()
	o, ok := r.sc.st().orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o.Clone(), nil
}

func (r orderRepository) GetForUpdate(ctx context.Context, id int64) (*order.Order, error) {
	return r.Get(ctx, id)
}

func (r orderRepository) FindByIntentForUpdate(_ context.Context, id int64, intentID string) (*order.Order, error) {
	defer r.sc.lock()()
	o, ok := r.sc.st().orders[id]
	if !ok || intentID == "" || o.PaymentIntentID != intentID {
		return nil, order.ErrNotFound
	}
	return o.Clone(), nil
}

func (r orderRepository) List(_ context.Context, filter order.ListFilter) ([]*order.Order, error) {
	defer r.sc.lock()()
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	out := make([]*order.Order, 0)
	for _, o := range r.sc.st().orders {
		if filter.UserID != 0 && o.UserID != filter.UserID {
			continue
		}
		if search != "" && !matches(o, search) {
			continue
		}
		out = append(out, o.Clone())
	}

	ordering := filter.Ordering
	if ordering.Field == "" {
		ordering = order.DefaultOrdering
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if ordering.Desc {
			a, b = b, a
		}
		switch ordering.Field {
		case order.SortTotal:
			if c := a.Total.Cmp(b.Total); c != 0 {
				return c < 0
			}
		case order.SortStatus:
			if a.Status != b.Status {
				return a.Status < b.Status
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		}
		return a.ID < b.ID
	})
	return out, nil
}

func matches(o *order.Order, search string) bool {
	return strconv.FormatInt(o.ID, 10) == search ||
		strings.Contains(strings.ToLower(o.CustomerEmail), search) ||
		strings.Contains(strings.ToLower(o.PaymentIntentID), search)
}

func (r orderRepository) UpdateStatus(_ context.Context, o *order.Order) error {
	defer r.sc.lock()()
	cur, ok := r.sc.st().orders[o.ID]
	if !ok {
		return order.ErrNotFound
	}
	cur.Status = o.Status
	cur.UpdatedAt = o.UpdatedAt
	return nil
}

func (r orderRepository) UpdateCheckout(_ context.Context, o *order.Order) error {
	defer r.sc.lock()()
	cur, ok := r.sc.st().orders[o.ID]
	if !ok {
		return order.ErrNotFound
	}
	cur.ShippingAddress = o.ShippingAddress
	cur.Subtotal = o.Subtotal
	cur.Shipping = o.Shipping
	cur.Tax = o.Tax
	cur.Total = o.Total
	cur.PaymentIntentID = o.PaymentIntentID
	cur.TaxCalculationID = o.TaxCalculationID
	cur.UpdatedAt = o.UpdatedAt
	return nil
}
