package catalog

import "context"

type ProductFilter struct {
	CategorySlug string
	// AvailableOnly restricts the listing to products with stock.
	AvailableOnly bool
}

type ProductRepository interface {
	// Insert stores p and assigns its ID.
	Insert(ctx context.Context, p *Product) error
	Get(ctx context.Context, id int64) (*Product, error)
	GetBySlug(ctx context.Context, slug string) (*Product, error)
	List(ctx context.Context, filter ProductFilter) ([]*Product, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	// LockByIDs loads the existing products among ids and holds an exclusive
	// row lock on each until the surrounding transaction ends. Locks are
	// taken in ascending id order. Missing ids are absent from the map.
	// A transaction that also locks a cart row must lock the cart first.
	LockByIDs(ctx context.Context, ids []int64) (map[int64]*Product, error)
	// UpdateStock persists StockQty together with the derived availability.
	UpdateStock(ctx context.Context, p *Product) error
	// Delete fails with ErrProductReferenced while any order or cart line
	// points at the product.
	Delete(ctx context.Context, id int64) error
}

type CategoryRepository interface {
	Insert(ctx context.Context, c *Category) error
	Get(ctx context.Context, id int64) (*Category, error)
	GetBySlug(ctx context.Context, slug string) (*Category, error)
	List(ctx context.Context) ([]*Category, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	NameExists(ctx context.Context, name string) (bool, error)
}
