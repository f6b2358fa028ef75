package catalog

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/candleshop/shop/internal/application"
	domain "github.com/candleshop/shop/internal/domain/catalog"
	"github.com/candleshop/shop/internal/domain/identity"
	"github.com/candleshop/shop/internal/domain/validation"
	"github.com/candleshop/shop/internal/observability"
)

const (
	catalogService       = "catalog-service"
	useCaseCreateCat     = "catalog.create_category"
	useCaseListCats      = "catalog.list_categories"
	useCaseCreateProduct = "catalog.create_product"
	useCaseListProducts  = "catalog.list_products"
	useCaseGetProduct    = "catalog.get_product"
	useCaseSetStock      = "catalog.set_stock"
	useCaseDeleteProduct = "catalog.delete_product"
)

// Service is the catalog glue: categories, products and stock levels.
type Service struct {
	store application.Store
	in    *application.Instrument
	group singleflight.Group
}

func NewService(store application.Store, tel observability.Observability) *Service {
	return &Service{store: store, in: application.NewInstrument(tel, catalogService)}
}

func (s *Service) CreateCategory(ctx context.Context, p identity.Principal, name string) (_ *domain.Category, err error) {
	ctx, run := s.in.Start(ctx, useCaseCreateCat, "CreateCategory")
	defer func() { run.End(err) }()

	if err := p.RequireStaff(); err != nil {
		return nil, err
	}
	c, err := domain.NewCategory(name)
	if err != nil {
		return nil, err
	}
	exists, err := s.store.Categories().NameExists(ctx, c.Name)
	if err != nil {
		return nil, fmt.Errorf("catalog: check category name: %w", err)
	}
	if exists {
		return nil, validation.New("name", "Category with this name already exists.")
	}
	if c.Slug, err = domain.UniqueSlug(ctx, c.Name, s.store.Categories().SlugExists); err != nil {
		return nil, err
	}
	if err := s.store.Categories().Insert(ctx, c); err != nil {
		return nil, fmt.Errorf("catalog: insert category: %w", err)
	}
	run.Field("category_id", c.ID)
	return c, nil
}

func (s *Service) ListCategories(ctx context.Context) (_ []*domain.Category, err error) {
	ctx, run := s.in.Start(ctx, useCaseListCats, "ListCategories")
	defer func() { run.End(err) }()
	return s.store.Categories().List(ctx)
}

type CreateProductInput struct {
	Principal   identity.Principal
	CategoryID  int64
	Name        string
	Description string
	Price       decimal.Decimal
	StockQty    int
}

func (s *Service) CreateProduct(ctx context.Context, cmd CreateProductInput) (_ *domain.Product, err error) {
	ctx, run := s.in.Start(ctx, useCaseCreateProduct, "CreateProduct",
		attribute.Int64("catalog.category_id", cmd.CategoryID),
	)
	defer func() { run.End(err) }()

	if err := cmd.Principal.RequireStaff(); err != nil {
		return nil, err
	}
	p, err := domain.NewProduct(cmd.CategoryID, cmd.Name, cmd.Description, cmd.Price, cmd.StockQty)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Categories().Get(ctx, cmd.CategoryID); err != nil {
		return nil, validation.New("category", "Invalid category.")
	}
	if p.Slug, err = domain.UniqueSlug(ctx, p.Name, s.store.Products().SlugExists); err != nil {
		return nil, err
	}
	if err := s.store.Products().Insert(ctx, p); err != nil {
		return nil, fmt.Errorf("catalog: insert product: %w", err)
	}
	run.Field("product_id", p.ID)
	return p, nil
}

func (s *Service) ListProducts(ctx context.Context, filter domain.ProductFilter) (_ []*domain.Product, err error) {
	ctx, run := s.in.Start(ctx, useCaseListProducts, "ListProducts",
		attribute.String("catalog.category_slug", filter.CategorySlug),
	)
	defer func() { run.End(err) }()
	return s.store.Products().List(ctx, filter)
}

// GetProduct looks a product up by slug. Concurrent lookups of the same
// slug share one store read.
func (s *Service) GetProduct(ctx context.Context, slug string) (_ *domain.Product, err error) {
	ctx, run := s.in.Start(ctx, useCaseGetProduct, "GetProduct",
		attribute.String("catalog.slug", slug),
	)
	defer func() { run.End(err) }()

	v, err, shared := s.group.Do(slug, func() (any, error) {
		return s.store.Products().GetBySlug(context.WithoutCancel(ctx), slug)
	})
	run.Field("shared", shared)
	if err != nil {
		return nil, err
	}
	return v.(*domain.Product).Clone(), nil
}

func (s *Service) SetStock(ctx context.Context, p identity.Principal, productID int64, qty int) (_ *domain.Product, err error) {
	ctx, run := s.in.Start(ctx, useCaseSetStock, "SetStock",
		attribute.Int64("catalog.product_id", productID),
		attribute.Int("catalog.stock_qty", qty),
	)
	defer func() { run.End(err) }()

	if err := p.RequireStaff(); err != nil {
		return nil, err
	}
	if qty < 0 {
		return nil, validation.New("stock_qty", "Ensure this value is greater than or equal to 0.")
	}

	var updated *domain.Product
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos application.Repositories) error {
		locked, err := repos.Products().LockByIDs(ctx, []int64{productID})
		if err != nil {
			return err
		}
		product, ok := locked[productID]
		if !ok {
			return domain.ErrNotFound
		}
		if err := product.SetStock(qty); err != nil {
			return err
		}
		if err := repos.Products().UpdateStock(ctx, product); err != nil {
			return err
		}
		updated = product
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) DeleteProduct(ctx context.Context, p identity.Principal, productID int64) (err error) {
	ctx, run := s.in.Start(ctx, useCaseDeleteProduct, "DeleteProduct",
		attribute.Int64("catalog.product_id", productID),
	)
	defer func() { run.End(err) }()

	if err := p.RequireStaff(); err != nil {
		return err
	}
	return s.store.Products().Delete(ctx, productID)
}
