package catalog

import (
	"strings"

	"github.com/candleshop/shop/internal/domain/validation"
)

type Category struct {
	ID   int64
	Name string
	Slug string
}

func NewCategory(name string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validation.New("name", "This field may not be blank.")
	}
	if len(name) > 100 {
		return nil, validation.New("name", "Ensure this field has no more than 100 characters.")
	}
	return &Category{Name: name}, nil
}
