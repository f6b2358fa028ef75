package cart

import (
	"errors"
	"time"

	"github.com/candleshop/shop/internal/domain/catalog"
)

var ErrItemNotFound = errors.New("cart: item not found")

// Cart is the single cart owned by a user, created on first access.
type Cart struct {
	ID        int64
	UserID    int64
	Items     []Item
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Item is a cart line, unique per (cart, product).
type Item struct {
	ID        int64
	CartID    int64
	ProductID int64
	Quantity  int
	Product   catalog.Summary
	CreatedAt time.Time
}

// Lines returns the cart contents as requested lines.
func (c *Cart) Lines() []catalog.Line {
	lines := make([]catalog.Line, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, catalog.Line{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines
}

// QuantityOf returns the quantity of productID in the cart, zero if absent.
func (c *Cart) QuantityOf(productID int64) int {
	for _, it := range c.Items {
		if it.ProductID == productID {
			return it.Quantity
		}
	}
	return 0
}

func (c *Cart) IsEmpty() bool { return len(c.Items) == 0 }

func (c *Cart) Clone() *Cart {
	cp := *c
	cp.Items = append([]Item(nil), c.Items...)
	return &cp
}
