package mysql

import (
	"context"
	"fmt"
	"time"

	"github.com/candleshop/shop/internal/domain/cart"
	"github.com/candleshop/shop/internal/domain/catalog"
)

type cartRepository struct{ sc *scope }

func (r cartRepository) GetOrCreate(ctx context.Context, userID int64) (*cart.Cart, error) {
	return r.getOrCreate(ctx, userID, "")
}

func (r cartRepository) GetOrCreateForUpdate(ctx context.Context, userID int64) (*cart.Cart, error) {
	return r.getOrCreate(ctx, userID, r.sc.forUpdate())
}

func (r cartRepository) getOrCreate(ctx context.Context, userID int64, lock string) (*cart.Cart, error) {
	now := time.Now().UTC()
	if _, err := r.sc.q.ExecContext(ctx,
		`INSERT IGNORE INTO carts (user_id, created_at, updated_at) VALUES (?, ?, ?)`,
		userID, now, now,
	); err != nil {
		return nil, fmt.Errorf("mysql: create cart: %w", err)
	}

	c := &cart.Cart{UserID: userID}
	if err := r.sc.q.QueryRowContext(ctx,
		`SELECT id, created_at, updated_at FROM carts WHERE user_id = ?`+lock, userID,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, fmt.Errorf("mysql: get cart: %w", err)
	}

	rows, err := r.sc.q.QueryContext(ctx, `
		SELECT ci.id, ci.product_id, ci.quantity, ci.created_at, p.name, p.slug, p.price, p.is_available
		FROM cart_items ci JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = ?
		ORDER BY ci.id`, c.ID)
	if err != nil {
		return nil, fmt.Errorf("mysql: cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		it := cart.Item{CartID: c.ID}
		if err := rows.Scan(&it.ID, &it.ProductID, &it.Quantity, &it.CreatedAt,
			&it.Product.Name, &it.Product.Slug, &it.Product.Price, &it.Product.Available); err != nil {
			return nil, fmt.Errorf("mysql: scan cart item: %w", err)
		}
		it.Product.ID = it.ProductID
		c.Items = append(c.Items, it)
	}
	return c, rows.Err()
}

func (r cartRepository) AddQuantity(ctx context.Context, cartID, productID int64, qty int) error {
	now := time.Now().UTC()
	_, err := r.sc.q.ExecContext(ctx, `
		INSERT INTO cart_items (cart_id, product_id, quantity, created_at) VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE quantity = quantity + VALUES(quantity)`,
		cartID, productID, qty, now,
	)
	if isMySQLError(err, errNoReferencedRow) {
		return &catalog.UnknownProductError{IDs: []int64{productID}}
	}
	if err != nil {
		return fmt.Errorf("mysql: add cart item: %w", err)
	}
	return r.touch(ctx, cartID, now)
}

func (r cartRepository) SetQuantity(ctx context.Context, cartID, itemID int64, qty int) error {
	res, err := r.sc.q.ExecContext(ctx,
		`UPDATE cart_items SET quantity = ? WHERE id = ? AND cart_id = ?`, qty, itemID, cartID)
	if err != nil {
		return fmt.Errorf("mysql: set cart item: %w", err)
	}
	if err := requireRow(res, cart.ErrItemNotFound); err != nil {
		return err
	}
	return r.touch(ctx, cartID, time.Now().UTC())
}

func (r cartRepository) DeleteItem(ctx context.Context, cartID, itemID int64) error {
	res, err := r.sc.q.ExecContext(ctx, `DELETE FROM cart_items WHERE id = ? AND cart_id = ?`, itemID, cartID)
	if err != nil {
		return fmt.Errorf("mysql: delete cart item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}
	return r.touch(ctx, cartID, time.Now().UTC())
}

func (r cartRepository) Clear(ctx context.Context, cartID int64) error {
	if _, err := r.sc.q.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = ?`, cartID); err != nil {
		return fmt.Errorf("mysql: clear cart: %w", err)
	}
	return r.touch(ctx, cartID, time.Now().UTC())
}

func (r cartRepository) touch(ctx context.Context, cartID int64, at time.Time) error {
	if _, err := r.sc.q.ExecContext(ctx, `UPDATE carts SET updated_at = ? WHERE id = ?`, at, cartID); err != nil {
		return fmt.Errorf("mysql: touch cart: %w", err)
	}
	return nil
}
