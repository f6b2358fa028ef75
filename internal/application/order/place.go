package order

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/candleshop/shop/internal/application"
	"github.com/candleshop/shop/internal/domain/catalog"
	domain "github.com/candleshop/shop/internal/domain/order"
	"github.com/candleshop/shop/internal/domain/validation"
)

// Settings carries the order defaults read from configuration.
type Settings struct {
	Currency        string
	FlatShippingFee decimal.Decimal
}

type placement struct {
	UserID   int64
	Email    string
	Currency string
	Lines    []catalog.Line
	Shipping decimal.Decimal
	Address  domain.Address
}

// place reserves stock for every line and inserts the pending order. It
// must run inside a transaction: any error leaves the caller to roll back
// the stock decrements already written.
func place(ctx context.Context, repos application.Repositories, in placement) (*domain.Order, error) {
	lines := catalog.MergeLines(in.Lines)
	if err := validateMerged(lines); err != nil {
		return nil, err
	}
	ids := catalog.ProductIDs(lines)

	locked, err := repos.Products().LockByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("order: lock products: %w", err)
	}
	if missing := catalog.MissingIDs(ids, locked); len(missing) > 0 {
		return nil, &catalog.UnknownProductError{IDs: missing}
	}

	items := make([]domain.Item, 0, len(lines))
	for _, l := range lines {
		p := locked[l.ProductID]
		if err := p.Reserve(l.Quantity); err != nil {
			return nil, err
		}
		if err := repos.Products().UpdateStock(ctx, p); err != nil {
			return nil, fmt.Errorf("order: update stock of product %d: %w", p.ID, err)
		}
		items = append(items, domain.Item{
			ProductID:   p.ID,
			ProductName: p.Name,
			UnitPrice:   p.Price,
			Quantity:    l.Quantity,
		})
	}

	o, err := domain.New(in.UserID, in.Email, in.Currency, items, in.Shipping, in.Address)
	if err != nil {
		return nil, err
	}
	if err := repos.Orders().Insert(ctx, o); err != nil {
		return nil, fmt.Errorf("order: insert: %w", err)
	}
	return o, nil
}

// validateLines checks request lines before any lock is taken.
func validateLines(field string, lines []catalog.Line) error {
	var verr validation.Error
	if len(lines) == 0 {
		verr.Add(field, "At least one item is required.")
	}
	for i, l := range lines {
		if l.ProductID <= 0 {
			verr.Add(fmt.Sprintf("%s[%d].product_id", field, i), "A valid product id is required.")
		}
		if !catalog.ValidQuantity(l.Quantity) {
			verr.Add(fmt.Sprintf("%s[%d].quantity", field, i), quantityRange)
		}
	}
	return verr.OrNil()
}

var quantityRange = fmt.Sprintf("Quantity must be between 1 and %d.", catalog.MaxLineQuantity)

// validateMerged checks the per-product totals, which the cart path and
// duplicate request lines can push past the line cap.
func validateMerged(lines []catalog.Line) error {
	var verr validation.Error
	for _, l := range lines {
		if !catalog.ValidQuantity(l.Quantity) {
			verr.Add("items", fmt.Sprintf("Total quantity of product %d must be between 1 and %d.", l.ProductID, catalog.MaxLineQuantity))
		}
	}
	return verr.OrNil()
}
