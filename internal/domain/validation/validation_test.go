package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	var verr Error
	assert.NoError(t, verr.OrNil())

	verr.Add("quantity", "Quantity must be >= 1.")
	verr.Add("items", "Order must contain at least one item.")
	verr.Add("quantity", "ignored")

	err := verr.OrNil()
	assert.True(t, errors.Is(err, ErrInvalid))
	assert.Equal(t, "validation failed: items: Order must contain at least one item.; quantity: Quantity must be >= 1.", err.Error())
}
