package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/candleshop/shop/internal/domain/catalog"
)

func TestLinesAndClone(t *testing.T) {
	c := &Cart{ID: 1, UserID: 4, Items: []Item{
		{ID: 10, ProductID: 2, Quantity: 3},
		{ID: 11, ProductID: 5, Quantity: 1},
	}}
	assert.False(t, c.IsEmpty())
	assert.Equal(t, []catalog.Line{{ProductID: 2, Quantity: 3}, {ProductID: 5, Quantity: 1}}, c.Lines())

	cp := c.Clone()
	cp.Items[0].Quantity = 99
	assert.Equal(t, 3, c.Items[0].Quantity)

	assert.True(t, (&Cart{}).IsEmpty())
}
