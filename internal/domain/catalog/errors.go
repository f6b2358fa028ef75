package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrNotFound          = errors.New("catalog: not found")
	ErrUnknownProduct    = errors.New("catalog: unknown product")
	ErrInsufficientStock = errors.New("catalog: insufficient stock")
	ErrOutOfStock        = errors.New("catalog: product out of stock")
	ErrProductReferenced = errors.New("catalog: product is referenced by orders or carts")
	ErrInvalidStock      = errors.New("catalog: stock quantity must be zero or greater")
	ErrDuplicateName     = errors.New("catalog: name already exists")
)

// UnknownProductError lists every requested product id that does not exist.
type UnknownProductError struct {
	IDs []int64
}

func (e *UnknownProductError) Error() string {
	ids := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		ids[i] = strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf("%s: %s", ErrUnknownProduct, strings.Join(ids, ", "))
}

func (e *UnknownProductError) Unwrap() error { return ErrUnknownProduct }

type InsufficientStockError struct {
	ProductID int64
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("%s: product %d (%s) requested %d, available %d",
		ErrInsufficientStock, e.ProductID, e.Name, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

type OutOfStockError struct {
	ProductID int64
	Name      string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("%s: product %d (%s)", ErrOutOfStock, e.ProductID, e.Name)
}

func (e *OutOfStockError) Unwrap() error { return ErrOutOfStock }
