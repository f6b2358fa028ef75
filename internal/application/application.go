package application

import (
	"context"

	"github.com/candleshop/shop/internal/domain/cart"
	"github.com/candleshop/shop/internal/domain/catalog"
	"github.com/candleshop/shop/internal/domain/order"
)

type UseCase[C any, R any] interface {
	Execute(ctx context.Context, cmd C) (R, error)
}

// Repositories groups the repositories bound to one store scope.
type Repositories interface {
	Products() catalog.ProductRepository
	Categories() catalog.CategoryRepository
	Carts() cart.Repository
	Orders() order.Repository
}

// Store is the unit of work shared by every use case. The embedded
// Repositories run outside any transaction and never lock.
type Store interface {
	Repositories
	// WithinTx runs fn inside one transaction. Returning an error rolls back
	// every write made through the repositories handed to fn.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
