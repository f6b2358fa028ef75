package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToCents(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"0", 0},
		{"10.00", 1000},
		{"19.99", 1999},
		{"0.005", 1},
		{"0.004", 0},
		{"35", 3500},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ToCents(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestFromCentsAndFormat(t *testing.T) {
	assert.Equal(t, "35.00", Format(FromCents(3500)))
	assert.Equal(t, "0.07", Format(FromCents(7)))
	assert.Equal(t, "20.00", Format(decimal.NewFromInt(20)))
}

func TestParse(t *testing.T) {
	d, err := Parse("15.00")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.NewFromInt(15)))

	_, err = Parse("1.999")
	assert.Error(t, err)

	_, err = Parse("abc")
	assert.Error(t, err)
}
