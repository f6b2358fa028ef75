package cart

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candleshop/shop/internal/application"
	domain "github.com/candleshop/shop/internal/domain/cart"
	"github.com/candleshop/shop/internal/domain/catalog"
	"github.com/candleshop/shop/internal/domain/identity"
	"github.com/candleshop/shop/internal/domain/validation"
	"github.com/candleshop/shop/internal/infrastructure/memory"
)

var (
	ann = identity.Principal{ID: 1}
	bob = identity.Principal{ID: 2}
)

func setup(t *testing.T, stocks ...int) (*Service, []*catalog.Product) {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	c := &catalog.Category{Name: "Candles", Slug: "candles"}
	require.NoError(t, store.Categories().Insert(ctx, c))

	products := make([]*catalog.Product, 0, len(stocks))
	for i, stock := range stocks {
		p, err := catalog.NewProduct(c.ID, "P", "", decimal.NewFromInt(int64(i+1)), stock)
		require.NoError(t, err)
		p.Slug = catalog.Slugify("p " + string(rune('a'+i)))
		require.NoError(t, store.Products().Insert(ctx, p))
		products = append(products, p)
	}
	return NewService(store, nil), products
}

func TestAddIncrementsExistingLine(t *testing.T) {
	svc, ps := setup(t, 0)
	ctx := context.Background()

	c, err := svc.Get(ctx, ann)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	_, err = svc.Add(ctx, ann, ps[0].ID, 1)
	require.NoError(t, err)
	c, err = svc.Add(ctx, ann, ps[0].ID, 2)
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.False(t, c.Items[0].Product.Available)

	_, err = svc.Add(ctx, ann, ps[0].ID, 0)
	assert.ErrorIs(t, err, validation.ErrInvalid)
	_, err = svc.Add(ctx, ann, 999, 1)
	assert.ErrorIs(t, err, catalog.ErrUnknownProduct)
}

func TestUpdateAndRemove(t *testing.T) {
	svc, ps := setup(t, 5, 5)
	ctx := context.Background()

	_, err := svc.Add(ctx, ann, ps[0].ID, 1)
	require.NoError(t, err)
	c, err := svc.Add(ctx, ann, ps[1].ID, 1)
	require.NoError(t, err)
	first, second := c.Items[0].ID, c.Items[1].ID

	c, err = svc.Update(ctx, ann, first, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Items[0].Quantity)

	c, err = svc.Update(ctx, ann, first, 0)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, second, c.Items[0].ID)

	_, err = svc.Update(ctx, bob, second, 2)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)

	c, err = svc.Remove(ctx, bob, second)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	c, err = svc.Remove(ctx, ann, second)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	c, err = svc.Remove(ctx, ann, second)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestMergeSumsDuplicates(t *testing.T) {
	svc, ps := setup(t, 5, 5)
	ctx := context.Background()

	_, err := svc.Add(ctx, ann, ps[0].ID, 1)
	require.NoError(t, err)

	c, err := svc.Merge(ctx, ann, []catalog.Line{
		{ProductID: ps[0].ID, Quantity: 1},
		{ProductID: ps[0].ID, Quantity: 2},
		{ProductID: ps[1].ID, Quantity: 3},
	})
	require.NoError(t, err)
	require.Len(t, c.Items, 2)
	assert.Equal(t, 4, c.Items[0].Quantity)
	assert.Equal(t, 3, c.Items[1].Quantity)
}

func TestMergeIsAllOrNothing(t *testing.T) {
	svc, ps := setup(t, 5, 0)
	ctx := context.Background()

	_, err := svc.Merge(ctx, ann, []catalog.Line{
		{ProductID: ps[0].ID, Quantity: 1},
		{ProductID: ps[1].ID, Quantity: 1},
	})
	var oos *catalog.OutOfStockError
	require.True(t, errors.As(err, &oos))
	assert.Equal(t, ps[1].ID, oos.ProductID)

	_, err = svc.Merge(ctx, ann, []catalog.Line{
		{ProductID: ps[0].ID, Quantity: 1},
		{ProductID: 77, Quantity: 1},
		{ProductID: 78, Quantity: 1},
	})
	var unknown *catalog.UnknownProductError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, []int64{77, 78}, unknown.IDs)

	_, err = svc.Merge(ctx, ann, []catalog.Line{{ProductID: ps[0].ID, Quantity: 1000}})
	assert.ErrorIs(t, err, validation.ErrInvalid)

	c, err := svc.Get(ctx, ann)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestLineQuantityIsCapped(t *testing.T) {
	svc, ps := setup(t, 5, 5)
	ctx := context.Background()

	_, err := svc.Add(ctx, ann, ps[0].ID, math.MaxInt)
	assert.ErrorIs(t, err, validation.ErrInvalid)

	c, err := svc.Add(ctx, ann, ps[0].ID, catalog.MaxLineQuantity-1)
	require.NoError(t, err)
	item := c.Items[0].ID

	_, err = svc.Add(ctx, ann, ps[0].ID, 2)
	assert.ErrorIs(t, err, validation.ErrInvalid)
	c, err = svc.Add(ctx, ann, ps[0].ID, 1)
	require.NoError(t, err)
	assert.Equal(t, catalog.MaxLineQuantity, c.Items[0].Quantity)

	_, err = svc.Update(ctx, ann, item, catalog.MaxLineQuantity+1)
	assert.ErrorIs(t, err, validation.ErrInvalid)

	_, err = svc.Merge(ctx, ann, []catalog.Line{
		{ProductID: ps[0].ID, Quantity: 1},
		{ProductID: ps[1].ID, Quantity: 1},
	})
	assert.ErrorIs(t, err, validation.ErrInvalid)

	c, err = svc.Get(ctx, ann)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, catalog.MaxLineQuantity, c.Items[0].Quantity)
}

func TestMergeRejectsSummedDuplicatesOverCap(t *testing.T) {
	svc, ps := setup(t, 5)
	ctx := context.Background()

	_, err := svc.Merge(ctx, ann, []catalog.Line{
		{ProductID: ps[0].ID, Quantity: 600},
		{ProductID: ps[0].ID, Quantity: 600},
	})
	assert.ErrorIs(t, err, validation.ErrInvalid)
}

// lockLog records the row-lock calls made inside transactions.
type lockLog struct {
	mu    sync.Mutex
	locks []string
}

func (l *lockLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.locks = append(l.locks, name)
}

type lockLoggingStore struct {
	application.Store
	log *lockLog
}

func (s lockLoggingStore) WithinTx(ctx context.Context, fn func(ctx context.Context, repos application.Repositories) error) error {
	return s.Store.WithinTx(ctx, func(ctx context.Context, repos application.Repositories) error {
		return fn(ctx, lockLoggingRepos{Repositories: repos, log: s.log})
	})
}

type lockLoggingRepos struct {
	application.Repositories
	log *lockLog
}

func (r lockLoggingRepos) Products() catalog.ProductRepository {
	return lockLoggingProducts{ProductRepository: r.Repositories.Products(), log: r.log}
}

func (r lockLoggingRepos) Carts() domain.Repository {
	return lockLoggingCarts{Repository: r.Repositories.Carts(), log: r.log}
}

type lockLoggingProducts struct {
	catalog.ProductRepository
	log *lockLog
}

func (p lockLoggingProducts) LockByIDs(ctx context.Context, ids []int64) (map[int64]*catalog.Product, error) {
	p.log.add("products")
	return p.ProductRepository.LockByIDs(ctx, ids)
}

type lockLoggingCarts struct {
	domain.Repository
	log *lockLog
}

func (c lockLoggingCarts) GetOrCreateForUpdate(ctx context.Context, userID int64) (*domain.Cart, error) {
	c.log.add("cart")
	return c.Repository.GetOrCreateForUpdate(ctx, userID)
}

func TestMergeLocksCartBeforeProducts(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	cat := &catalog.Category{Name: "Candles", Slug: "candles"}
	require.NoError(t, store.Categories().Insert(ctx, cat))
	p, err := catalog.NewProduct(cat.ID, "Amber", "", decimal.NewFromInt(3), 5)
	require.NoError(t, err)
	p.Slug = "amber"
	require.NoError(t, store.Products().Insert(ctx, p))

	log := &lockLog{}
	svc := NewService(lockLoggingStore{Store: store, log: log}, nil)

	_, err = svc.Merge(ctx, ann, []catalog.Line{{ProductID: p.ID, Quantity: 1}})
	require.NoError(t, err)
	assert.Equal(t, []string{"cart", "products"}, log.locks)
}
