package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeLines(t *testing.T) {
	got := MergeLines([]Line{
		{ProductID: 1, Quantity: 1},
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 3},
	})
	assert.Equal(t, []Line{{ProductID: 1, Quantity: 3}, {ProductID: 2, Quantity: 3}}, got)
}

func TestProductIDsAndMissing(t *testing.T) {
	ids := ProductIDs([]Line{{ProductID: 9}, {ProductID: 2}, {ProductID: 9}})
	assert.Equal(t, []int64{2, 9}, ids)

	missing := MissingIDs([]int64{2, 5, 9}, map[int64]*Product{2: {ID: 2}})
	assert.Equal(t, []int64{5, 9}, missing)
}
