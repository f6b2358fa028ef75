package cart

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/candleshop/shop/internal/application"
	domain "github.com/candleshop/shop/internal/domain/cart"
	"github.com/candleshop/shop/internal/domain/catalog"
	"github.com/candleshop/shop/internal/domain/identity"
	"github.com/candleshop/shop/internal/domain/validation"
	"github.com/candleshop/shop/internal/observability"
)

const (
	cartService   = "cart-service"
	useCaseGet    = "cart.get"
	useCaseAdd    = "cart.add"
	useCaseUpdate = "cart.update"
	useCaseRemove = "cart.remove"
	useCaseMerge  = "cart.merge"
)

var quantityRange = fmt.Sprintf("Quantity must be between 1 and %d.", catalog.MaxLineQuantity)

// Service manages the per-user cart. Stock is not checked when adding;
// it becomes authoritative at checkout.
type Service struct {
	store application.Store
	in    *application.Instrument
}

func NewService(store application.Store, tel observability.Observability) *Service {
	return &Service{store: store, in: application.NewInstrument(tel, cartService)}
}

func (s *Service) Get(ctx context.Context, p identity.Principal) (_ *domain.Cart, err error) {
	ctx, run := s.in.Start(ctx, useCaseGet, "GetCart", attribute.Int64("user.id", p.ID))
	defer func() { run.End(err) }()
	return s.store.Carts().GetOrCreate(ctx, p.ID)
}

func (s *Service) Add(ctx context.Context, p identity.Principal, productID int64, qty int) (_ *domain.Cart, err error) {
	ctx, run := s.in.Start(ctx, useCaseAdd, "AddCartItem",
		attribute.Int64("user.id", p.ID),
		attribute.Int64("cart.product_id", productID),
		attribute.Int("cart.quantity", qty),
	)
	defer func() { run.End(err) }()

	if !catalog.ValidQuantity(qty) {
		return nil, validation.New("quantity", quantityRange)
	}

	var c *domain.Cart
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos application.Repositories) error {
		if _, err := repos.Products().Get(ctx, productID); errors.Is(err, catalog.ErrNotFound) {
			return &catalog.UnknownProductError{IDs: []int64{productID}}
		} else if err != nil {
			return err
		}
		cur, err := repos.Carts().GetOrCreateForUpdate(ctx, p.ID)
		if err != nil {
			return err
		}
		if err := checkTotal(cur, productID, qty); err != nil {
			return err
		}
		if err := repos.Carts().AddQuantity(ctx, cur.ID, productID, qty); err != nil {
			return err
		}
		c, err = repos.Carts().GetOrCreate(ctx, p.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Update overwrites a line's quantity; zero or less removes the line.
func (s *Service) Update(ctx context.Context, p identity.Principal, itemID int64, qty int) (_ *domain.Cart, err error) {
	ctx, run := s.in.Start(ctx, useCaseUpdate, "UpdateCartItem",
		attribute.Int64("user.id", p.ID),
		attribute.Int64("cart.item_id", itemID),
		attribute.Int("cart.quantity", qty),
	)
	defer func() { run.End(err) }()

	if qty > catalog.MaxLineQuantity {
		return nil, validation.New("quantity", quantityRange)
	}

	var c *domain.Cart
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos application.Repositories) error {
		cur, err := repos.Carts().GetOrCreateForUpdate(ctx, p.ID)
		if err != nil {
			return err
		}
		if !hasItem(cur, itemID) {
			return domain.ErrItemNotFound
		}
		if qty <= 0 {
			err = repos.Carts().DeleteItem(ctx, cur.ID, itemID)
		} else {
			err = repos.Carts().SetQuantity(ctx, cur.ID, itemID, qty)
		}
		if err != nil {
			return err
		}
		c, err = repos.Carts().GetOrCreate(ctx, p.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Remove deletes a line of the caller's cart. Unknown or foreign items are
// ignored and the unchanged cart is returned.
func (s *Service) Remove(ctx context.Context, p identity.Principal, itemID int64) (_ *domain.Cart, err error) {
	ctx, run := s.in.Start(ctx, useCaseRemove, "RemoveCartItem",
		attribute.Int64("user.id", p.ID),
		attribute.Int64("cart.item_id", itemID),
	)
	defer func() { run.End(err) }()

	var c *domain.Cart
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos application.Repositories) error {
		cur, err := repos.Carts().GetOrCreateForUpdate(ctx, p.ID)
		if err != nil {
			return err
		}
		if !hasItem(cur, itemID) {
			run.Set(application.OutcomeSuccess, "ITEM_ABSENT")
			c = cur
			return nil
		}
		if err := repos.Carts().DeleteItem(ctx, cur.ID, itemID); err != nil {
			return err
		}
		c, err = repos.Carts().GetOrCreate(ctx, p.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Merge folds a client-held cart into the caller's cart. Every product must
// exist and be in stock or nothing is merged.
func (s *Service) Merge(ctx context.Context, p identity.Principal, lines []catalog.Line) (_ *domain.Cart, err error) {
	ctx, run := s.in.Start(ctx, useCaseMerge, "MergeCart",
		attribute.Int64("user.id", p.ID),
		attribute.Int("cart.lines", len(lines)),
	)
	defer func() { run.End(err) }()

	if err := validateMergeLines(lines); err != nil {
		return nil, err
	}
	merged := catalog.MergeLines(lines)
	ids := catalog.ProductIDs(merged)

	var c *domain.Cart
	err = s.store.WithinTx(ctx, func(ctx context.Context, repos application.Repositories) error {
		// Cart before products, the order checkout locks them in.
		cur, err := repos.Carts().GetOrCreateForUpdate(ctx, p.ID)
		if err != nil {
			return err
		}
		locked, err := repos.Products().LockByIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("cart: lock products: %w", err)
		}
		if missing := catalog.MissingIDs(ids, locked); len(missing) > 0 {
			return &catalog.UnknownProductError{IDs: missing}
		}
		for _, id := range ids {
			if prod := locked[id]; !prod.Available {
				return &catalog.OutOfStockError{ProductID: prod.ID, Name: prod.Name}
			}
		}

		for _, l := range merged {
			if err := checkTotal(cur, l.ProductID, l.Quantity); err != nil {
				return err
			}
		}
		for _, l := range merged {
			if err := repos.Carts().AddQuantity(ctx, cur.ID, l.ProductID, l.Quantity); err != nil {
				return err
			}
		}
		c, err = repos.Carts().GetOrCreate(ctx, p.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func validateMergeLines(lines []catalog.Line) error {
	var verr validation.Error
	if len(lines) == 0 {
		verr.Add("items", "At least one item is required.")
	}
	for i, l := range lines {
		if l.ProductID <= 0 {
			verr.Add(fmt.Sprintf("items[%d].product_id", i), "A valid product id is required.")
		}
		if !catalog.ValidQuantity(l.Quantity) {
			verr.Add(fmt.Sprintf("items[%d].quantity", i), quantityRange)
		}
	}
	return verr.OrNil()
}

// checkTotal rejects adding qty when the product's line would exceed the cap.
func checkTotal(c *domain.Cart, productID int64, qty int) error {
	if c.QuantityOf(productID)+qty > catalog.MaxLineQuantity {
		return validation.New("quantity", fmt.Sprintf("Cart quantity of product %d cannot exceed %d.", productID, catalog.MaxLineQuantity))
	}
	return nil
}

func hasItem(c *domain.Cart, itemID int64) bool {
	for _, it := range c.Items {
		if it.ID == itemID {
			return true
		}
	}
	return false
}
