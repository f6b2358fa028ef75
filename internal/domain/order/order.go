package order

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/candleshop/shop/internal/domain/money"
)

var (
	ErrNotFound          = errors.New("order: not found")
	ErrNotPayable        = errors.New("order: not payable")
	ErrIncompleteAddress = errors.New("order: incomplete shipping address")
	ErrEmptyOrder        = errors.New("order: no chargeable items")
	ErrInvalidAmount     = errors.New("order: amount must be greater than zero")
)

type Order struct {
	ID               int64
	UserID           int64
	CustomerEmail    string
	Status           Status
	Currency         string
	Subtotal         decimal.Decimal
	Shipping         decimal.Decimal
	Tax              decimal.Decimal
	Total            decimal.Decimal
	ShippingAddress  Address
	PaymentIntentID  string
	TaxCalculationID string
	Items            []Item
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Item is an immutable snapshot of a purchased product.
type Item struct {
	ID          int64
	OrderID     int64
	ProductID   int64
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int
}

func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// New builds a pending order from item snapshots. Tax starts at zero.
func New(userID int64, email, currency string, items []Item, shipping decimal.Decimal, addr Address) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}
	now := time.Now().UTC()
	o := &Order{
		UserID:          userID,
		CustomerEmail:   email,
		Status:          StatusPending,
		Currency:        currency,
		Shipping:        money.Round(shipping),
		Tax:             decimal.Zero,
		ShippingAddress: addr,
		Items:           items,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	o.recalculate()
	return o, nil
}

// ItemsSubtotal sums unit price times quantity over every line.
func (o *Order) ItemsSubtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.LineTotal())
	}
	return money.Round(sum)
}

// TransitionTo moves the order to target or returns a *TransitionError
// leaving the order untouched.
func (o *Order) TransitionTo(target Status) error {
	if !o.Status.CanTransitionTo(target) {
		return &TransitionError{From: o.Status, To: target}
	}
	o.Status = target
	o.touch()
	return nil
}

// CheckPayable verifies the order can be sent to the payment gateway.
func (o *Order) CheckPayable() error {
	if o.Status != StatusPending {
		return ErrNotPayable
	}
	if len(o.Items) == 0 {
		return ErrEmptyOrder
	}
	if !o.ItemsSubtotal().IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// ApplyCheckout records the gateway results of intent creation.
func (o *Order) ApplyCheckout(addr Address, tax decimal.Decimal, intentID, calculationID string) {
	o.ShippingAddress = addr
	o.Tax = money.Round(tax)
	o.PaymentIntentID = intentID
	o.TaxCalculationID = calculationID
	o.recalculate()
	o.touch()
}

func (o *Order) recalculate() {
	o.Subtotal = o.ItemsSubtotal()
	o.Total = o.Subtotal.Add(o.Shipping).Add(o.Tax)
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}

func (o *Order) Clone() *Order {
	cp := *o
	cp.Items = append([]Item(nil), o.Items...)
	return &cp
}
