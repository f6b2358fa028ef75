package catalog

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/candleshop/shop/internal/domain/money"
	"github.com/candleshop/shop/internal/domain/validation"
)

type Product struct {
	ID          int64
	CategoryID  int64
	Name        string
	Slug        string
	Description string
	Price       decimal.Decimal
	StockQty    int
	Available   bool
	CreatedAt   time.Time
}

// NewProduct validates the input and returns a product without id or slug.
func NewProduct(categoryID int64, name, description string, price decimal.Decimal, stock int) (*Product, error) {
	var verr validation.Error
	name = strings.TrimSpace(name)
	if name == "" {
		verr.Add("name", "This field may not be blank.")
	}
	if categoryID <= 0 {
		verr.Add("category", "This field is required.")
	}
	if !price.IsPositive() {
		verr.Add("price", "Price must be greater than zero.")
	} else if !money.HasValidScale(price) {
		verr.Add("price", "Ensure that there are no more than 2 decimal places.")
	}
	if stock < 0 {
		verr.Add("stock_qty", "Ensure this value is greater than or equal to 0.")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	p := &Product{
		CategoryID:  categoryID,
		Name:        name,
		Description: strings.TrimSpace(description),
		Price:       price,
		CreatedAt:   time.Now().UTC(),
	}
	p.setStock(stock)
	return p, nil
}

// SetStock replaces the stock quantity and recomputes availability.
func (p *Product) SetStock(qty int) error {
	if qty < 0 {
		return ErrInvalidStock
	}
	p.setStock(qty)
	return nil
}

// Reserve decrements stock by qty or fails without changing the product.
func (p *Product) Reserve(qty int) error {
	if qty > p.StockQty {
		return &InsufficientStockError{
			ProductID: p.ID,
			Name:      p.Name,
			Requested: qty,
			Available: p.StockQty,
		}
	}
	p.setStock(p.StockQty - qty)
	return nil
}

func (p *Product) setStock(qty int) {
	p.StockQty = qty
	p.Available = qty > 0
}

func (p *Product) Clone() *Product {
	cp := *p
	return &cp
}

// Summary is the product view embedded in cart lines.
type Summary struct {
	ID        int64
	Name      string
	Slug      string
	Price     decimal.Decimal
	Available bool
}

func (p *Product) Summary() Summary {
	return Summary{ID: p.ID, Name: p.Name, Slug: p.Slug, Price: p.Price, Available: p.Available}
}
