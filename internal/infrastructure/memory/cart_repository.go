package memory

import (
	"context"
	"time"

	"github.com/candleshop/shop/internal/domain/cart"
	"github.com/candleshop/shop/internal/domain/catalog"
)

type cartRepository struct{ sc *scope }

func (r cartRepository) GetOrCreate(_ context.Context, userID int64) (*cart.Cart, error) {
	defer r.sc.lock()()
	return r.getOrCreate(r.sc.st(), userID), nil
}

// GetOrCreateForUpdate needs no extra locking: the transaction already
// owns the whole state.
func (r cartRepository) GetOrCreateForUpdate(ctx context.Context, userID int64) (*cart.Cart, error) {
	return r.GetOrCreate(ctx, userID)
}

func (r cartRepository) getOrCreate(st *state, userID int64) *cart.Cart {
	id, ok := st.cartByUser[userID]
	if !ok {
		now := time.Now().UTC()
		st.seq.cart++
		id = st.seq.cart
		st.carts[id] = &cart.Cart{ID: id, UserID: userID, CreatedAt: now, UpdatedAt: now}
		st.cartByUser[userID] = id
	}
	c := st.carts[id].Clone()
	for i := range c.Items {
		if p, ok := st.products[c.Items[i].ProductID]; ok {
			c.Items[i].Product = p.Summary()
		}
	}
	return c
}

func (r cartRepository) AddQuantity(_ context.Context, cartID, productID int64, qty int) error {
	defer r.sc.lock()()
	st := r.sc.st()
	c, ok := st.carts[cartID]
	if !ok {
		return cart.ErrItemNotFound
	}
	if _, ok := st.products[productID]; !ok {
		return &catalog.UnknownProductError{IDs: []int64{productID}}
	}
	now := time.Now().UTC()
	c.UpdatedAt = now
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity += qty
			return nil
		}
	}
	st.seq.cartItem++
	c.Items = append(c.Items, cart.Item{
		ID:        st.seq.cartItem,
		CartID:    cartID,
		ProductID: productID,
		Quantity:  qty,
		CreatedAt: now,
	})
	return nil
}

func (r cartRepository) SetQuantity(_ context.Context, cartID, itemID int64, qty int) error {
	defer r.sc.lock()()
	c, ok := r.sc.st().carts[cartID]
	if !ok {
		return cart.ErrItemNotFound
	}
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items[i].Quantity = qty
			c.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return cart.ErrItemNotFound
}

func (r cartRepository) DeleteItem(_ context.Context, cartID, itemID int64) error {
	defer r.sc.lock()()
	c, ok := r.sc.st().carts[cartID]
	if !ok {
		return nil
	}
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return nil
}

func (r cartRepository) Clear(_ context.Context, cartID int64) error {
	defer r.sc.lock()()
	if c, ok := r.sc.st().carts[cartID]; ok {
		c.Items = nil
		c.UpdatedAt = time.Now().UTC()
	}
	return nil
}
