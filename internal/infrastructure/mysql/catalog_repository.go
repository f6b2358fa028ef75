package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/candleshop/shop/internal/domain/catalog"
)

const productColumns = `p.id, p.category_id, p.name, p.slug, p.description, p.price, p.stock_qty, p.is_available, p.created_at`

func scanProduct(row rowScanner) (*catalog.Product, error) {
	var p catalog.Product
	if err := row.Scan(&p.ID, &p.CategoryID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.StockQty, &p.Available, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

type productRepository struct{ sc *scope }

func (r productRepository) Insert(ctx context.Context, p *catalog.Product) error {
	res, err := r.sc.q.ExecContext(ctx, `
		INSERT INTO products (category_id, name, slug, description, price, stock_qty, is_available, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.CategoryID, p.Name, p.Slug, p.Description, p.Price, p.StockQty, p.StockQty > 0, p.CreatedAt,
	)
	switch {
	case isMySQLError(err, errDuplicateEntry):
		return catalog.ErrDuplicateName
	case isMySQLError(err, errNoReferencedRow):
		return catalog.ErrNotFound
	case err != nil:
		return fmt.Errorf("mysql: insert product: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("mysql: product id: %w", err)
	}
	p.ID = id
	p.Available = p.StockQty > 0
	return nil
}

func (r productRepository) getOne(ctx context.Context, where string, arg any) (*catalog.Product, error) {
	row := r.sc.q.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products p WHERE `+where, arg)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mysql: get product: %w", err)
	}
	return p, nil
}

func (r productRepository) Get(ctx context.Context, id int64) (*catalog.Product, error) {
	return r.getOne(ctx, "p.id = ?", id)
}

func (r productRepository) GetBySlug(ctx context.Context, slug string) (*catalog.Product, error) {
	return r.getOne(ctx, "p.slug = ?", slug)
}

func (r productRepository) List(ctx context.Context, filter catalog.ProductFilter) ([]*catalog.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p JOIN categories c ON c.id = p.category_id WHERE 1 = 1`
	var args []any
	if filter.CategorySlug != "" {
		query += ` AND c.slug = ?`
		args = append(args, filter.CategorySlug)
	}
	if filter.AvailableOnly {
		query += ` AND p.is_available`
	}
	query += ` ORDER BY p.name, p.id`

	rows, err := r.sc.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("mysql: list products: %w", err)
	}
	defer rows.Close()

	out := make([]*catalog.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("mysql: scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r productRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	return exists(ctx, r.sc.q, `SELECT EXISTS(SELECT 1 FROM products WHERE slug = ?)`, slug)
}

func (r productRepository) LockByIDs(ctx context.Context, ids []int64) (map[int64]*catalog.Product, error) {
	out := make(map[int64]*catalog.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.sc.q.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products p WHERE p.id IN (`+placeholders(len(ids))+`) ORDER BY p.id`+r.sc.forUpdate(),
		int64Args(ids)...,
	)
	if err != nil {
		return nil, fmt.Errorf("mysql: lock products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("mysql: scan product: %w", err)
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (r productRepository) UpdateStock(ctx context.Context, p *catalog.Product) error {
	res, err := r.sc.q.ExecContext(ctx,
		`UPDATE products SET stock_qty = ?, is_available = ? WHERE id = ?`,
		p.StockQty, p.StockQty > 0, p.ID,
	)
	if err != nil {
		return fmt.Errorf("mysql: update stock: %w", err)
	}
	return requireRow(res, catalog.ErrNotFound)
}

func (r productRepository) Delete(ctx context.Context, id int64) error {
	// order_items and cart_items both reference products with ON DELETE RESTRICT.
	res, err := r.sc.q.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if isMySQLError(err, errRowIsReferenced) {
		return catalog.ErrProductReferenced
	}
	if err != nil {
		return fmt.Errorf("mysql: delete product: %w", err)
	}
	return requireRow(res, catalog.ErrNotFound)
}

type categoryRepository struct{ sc *scope }

func (r categoryRepository) Insert(ctx context.Context, c *catalog.Category) error {
	res, err := r.sc.q.ExecContext(ctx, `INSERT INTO categories (name, slug) VALUES (?, ?)`, c.Name, c.Slug)
	if isMySQLError(err, errDuplicateEntry) {
		return catalog.ErrDuplicateName
	}
	if err != nil {
		return fmt.Errorf("mysql: insert category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("mysql: category id: %w", err)
	}
	c.ID = id
	return nil
}

func (r categoryRepository) getOne(ctx context.Context, where string, arg any) (*catalog.Category, error) {
	var c catalog.Category
	err := r.sc.q.QueryRowContext(ctx, `SELECT id, name, slug FROM categories WHERE `+where, arg).
		Scan(&c.ID, &c.Name, &c.Slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mysql: get category: %w", err)
	}
	return &c, nil
}

func (r categoryRepository) Get(ctx context.Context, id int64) (*catalog.Category, error) {
	return r.getOne(ctx, "id = ?", id)
}

func (r categoryRepository) GetBySlug(ctx context.Context, slug string) (*catalog.Category, error) {
	return r.getOne(ctx, "slug = ?", slug)
}

func (r categoryRepository) List(ctx context.Context) ([]*catalog.Category, error) {
	rows, err := r.sc.q.QueryContext(ctx, `SELECT id, name, slug FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("mysql: list categories: %w", err)
	}
	defer rows.Close()

	out := make([]*catalog.Category, 0)
	for rows.Next() {
		var c catalog.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, fmt.Errorf("mysql: scan category: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (r categoryRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	return exists(ctx, r.sc.q, `SELECT EXISTS(SELECT 1 FROM categories WHERE slug = ?)`, slug)
}

// NameExists relies on the case-insensitive default collation.
func (r categoryRepository) NameExists(ctx context.Context, name string) (bool, error) {
	return exists(ctx, r.sc.q, `SELECT EXISTS(SELECT 1 FROM categories WHERE name = ?)`, name)
}

func exists(ctx context.Context, q querier, query string, arg any) (bool, error) {
	var found bool
	if err := q.QueryRowContext(ctx, query, arg).Scan(&found); err != nil {
		return false, fmt.Errorf("mysql: exists: %w", err)
	}
	return found, nil
}

// requireRow maps an update that touched nothing to notFound.
func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mysql: rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
