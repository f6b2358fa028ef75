package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Lavender Candle":       "lavender-candle",
		"  Soy -- Wax  ":        "soy-wax",
		"Cedar & Smoke (Large)": "cedar-smoke-large",
		"snake_case":            "snake_case",
		"Crème":                 "crme",
		"!!!":                   "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestUniqueSlug(t *testing.T) {
	taken := map[string]bool{"candle": true, "candle-2": true}
	exists := func(_ context.Context, s string) (bool, error) { return taken[s], nil }

	slug, err := UniqueSlug(context.Background(), "Candle", exists)
	require.NoError(t, err)
	assert.Equal(t, "candle-3", slug)

	slug, err = UniqueSlug(context.Background(), "???", exists)
	require.NoError(t, err)
	assert.Equal(t, "item", slug)

	boom := errors.New("boom")
	_, err = UniqueSlug(context.Background(), "x", func(context.Context, string) (bool, error) { return false, boom })
	assert.ErrorIs(t, err, boom)
}
