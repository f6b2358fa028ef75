package cart

import "context"

type Repository interface {
	// GetOrCreate returns the user's cart with its items, creating an empty
	// cart on first access.
	GetOrCreate(ctx context.Context, userID int64) (*Cart, error)
	// GetOrCreateForUpdate is GetOrCreate holding a lock on the cart row until
	// the surrounding transaction ends.
	GetOrCreateForUpdate(ctx context.Context, userID int64) (*Cart, error)
	// AddQuantity creates the line for productID or increments its quantity.
	AddQuantity(ctx context.Context, cartID, productID int64, qty int) error
	// SetQuantity overwrites a line's quantity; ErrItemNotFound when the line
	// does not belong to the cart.
	SetQuantity(ctx context.Context, cartID, itemID int64, qty int) error
	// DeleteItem removes a line of the cart. Missing lines are ignored.
	DeleteItem(ctx context.Context, cartID, itemID int64) error
	Clear(ctx context.Context, cartID int64) error
}
