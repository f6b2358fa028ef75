package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/candleshop/shop/internal/domain/order"
)

const orderColumns = `o.id, o.user_id, o.customer_email, o.status, o.currency,
	o.subtotal, o.shipping, o.tax, o.total_amount,
	o.ship_full_name, o.ship_line1, o.ship_line2, o.ship_city, o.ship_state, o.ship_postal_code, o.ship_country,
	o.payment_intent_id, o.tax_calculation_id, o.created_at, o.updated_at`

var sortColumns = map[order.SortField]string{
	order.SortCreatedAt: "o.created_at",
	order.SortTotal:     "o.total_amount",
	order.SortStatus:    "o.status",
}

func scanOrder(row rowScanner) (*order.Order, error) {
	var (
		o      order.Order
		status string
		a      = &o.ShippingAddress
	)
	if err := row.Scan(&o.ID, &o.UserID, &o.CustomerEmail, &status, &o.Currency,
		&o.Subtotal, &o.Shipping, &o.Tax, &o.Total,
		&a.FullName, &a.Line1, &a.Line2, &a.City, &a.State, &a.PostalCode, &a.Country,
		&o.PaymentIntentID, &o.TaxCalculationID, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Status = order.Status(status)
	return &o, nil
}

// orderBy renders the ORDER BY clause with id as the tie-breaker.
func orderBy(o order.Ordering) string {
	col, ok := sortColumns[o.Field]
	if !ok {
		o = order.DefaultOrdering
		col = sortColumns[o.Field]
	}
	dir := "ASC"
	if o.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, o.id %s", col, dir, dir)
}

type orderRepository struct{ sc *scope }

func (r orderRepository) Insert(ctx context.Context, o *order.Order) error {
	a := o.ShippingAddress
	res, err := r.sc.q.ExecContext(ctx, `
		INSERT INTO orders (user_id, customer_email, status, currency, subtotal, shipping, tax, total_amount,
			ship_full_name, ship_line1, ship_line2, ship_city, ship_state, ship_postal_code, ship_country,
			payment_intent_id, tax_calculation_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.UserID, o.CustomerEmail, string(o.Status), o.Currency, o.Subtotal, o.Shipping, o.Tax, o.Total,
		a.FullName, a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country,
		o.PaymentIntentID, o.TaxCalculationID, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("mysql: insert order: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("mysql: order id: %w", err)
	}
	o.ID = id

	for i := range o.Items {
		it := &o.Items[i]
		res, err := r.sc.q.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, product_name, unit_price, quantity)
			VALUES (?, ?, ?, ?, ?)`,
			o.ID, it.ProductID, it.ProductName, it.UnitPrice, it.Quantity,
		)
		if err != nil {
			return fmt.Errorf("mysql: insert order item: %w", err)
		}
		if it.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("mysql: order item id: %w", err)
		}
		it.OrderID = o.ID
	}
	return nil
}

func (r orderRepository) getOne(ctx context.Context, where string, lock string, args ...any) (*order.Order, error) {
	row := r.sc.q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders o WHERE `+where+lock, args...)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mysql: get order: %w", err)
	}
	if err := r.loadItems(ctx, []*order.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r orderRepository) Get(ctx context.Context, id int64) (*order.Order, error) {
	return r.getOne(ctx, "o.id = ?", "", id)
}

func (r orderRepository) GetForUpdate(ctx context.Context, id int64) (*order.Order, error) {
	return r.getOne(ctx, "o.id = ?", r.sc.forUpdate(), id)
}

func (r orderRepository) FindByIntentForUpdate(ctx context.Context, id int64, intentID string) (*order.Order, error) {
	if intentID == "" {
		return nil, order.ErrNotFound
	}
	return r.getOne(ctx, "o.id = ? AND o.payment_intent_id = ?", r.sc.forUpdate(), id, intentID)
}

func (r orderRepository) List(ctx context.Context, filter order.ListFilter) ([]*order.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders o WHERE 1 = 1`
	var args []any
	if filter.UserID != 0 {
		query += ` AND o.user_id = ?`
		args = append(args, filter.UserID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + escapeLike(search) + "%"
		query += ` AND (o.customer_email LIKE ? OR o.payment_intent_id LIKE ?`
		args = append(args, like, like)
		if id, err := strconv.ParseInt(search, 10, 64); err == nil {
			query += ` OR o.id = ?`
			args = append(args, id)
		}
		query += `)`
	}
	query += orderBy(filter.Ordering)

	rows, err := r.sc.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("mysql: list orders: %w", err)
	}
	defer rows.Close()

	out := make([]*order.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("mysql: scan order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mysql: list orders: %w", err)
	}
	if err := r.loadItems(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// loadItems fills the items of every order with one query.
func (r orderRepository) loadItems(ctx context.Context, orders []*order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[int64]*order.Order, len(orders))
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}

	rows, err := r.sc.q.QueryContext(ctx, `
		SELECT id, order_id, product_id, product_name, unit_price, quantity
		FROM order_items WHERE order_id IN (`+placeholders(len(ids))+`) ORDER BY id`,
		int64Args(ids)...,
	)
	if err != nil {
		return fmt.Errorf("mysql: order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it order.Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.UnitPrice, &it.Quantity); err != nil {
			return fmt.Errorf("mysql: scan order item: %w", err)
		}
		if o, ok := byID[it.OrderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return rows.Err()
}

func (r orderRepository) UpdateStatus(ctx context.Context, o *order.Order) error {
	res, err := r.sc.q.ExecContext(ctx,
		`UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`,
		string(o.Status), o.UpdatedAt, o.ID,
	)
	if err != nil {
		return fmt.Errorf("mysql: update order status: %w", err)
	}
	return requireRow(res, order.ErrNotFound)
}

func (r orderRepository) UpdateCheckout(ctx context.Context, o *order.Order) error {
	a := o.ShippingAddress
	res, err := r.sc.q.ExecContext(ctx, `
		UPDATE orders SET
			ship_full_name = ?, ship_line1 = ?, ship_line2 = ?, ship_city = ?, ship_state = ?,
			ship_postal_code = ?, ship_country = ?,
			subtotal = ?, shipping = ?, tax = ?, total_amount = ?,
			payment_intent_id = ?, tax_calculation_id = ?, updated_at = ?
		WHERE id = ?`,
		a.FullName, a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country,
		o.Subtotal, o.Shipping, o.Tax, o.Total,
		o.PaymentIntentID, o.TaxCalculationID, o.UpdatedAt, o.ID,
	)
	if err != nil {
		return fmt.Errorf("mysql: update order checkout: %w", err)
	}
	return requireRow(res, order.ErrNotFound)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
