package outbox

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domoutbox "github.com/candleshop/shop/internal/domain/outbox"
)

type testEvent struct{ name string }

func (e testEvent) EventName() string { return e.name }

func TestBusFansOutToSubscribers(t *testing.T) {
	bus := NewBus(nil, WithQueueSize(4), WithConcurrency(2))

	var mu sync.Mutex
	got := map[string]int{}
	record := func(tag string) domoutbox.Handler {
		return func(_ context.Context, e domoutbox.Event) error {
			mu.Lock()
			defer mu.Unlock()
			got[tag+":"+e.EventName()]++
			return nil
		}
	}
	bus.Subscribe("order.created", record("a"))
	bus.Subscribe("order.created", record("b"))
	bus.Subscribe("order.status_changed", func(context.Context, domoutbox.Event) error { panic("boom") })

	ctx := context.Background()
	bus.Start(ctx)
	require.NoError(t, bus.Publish(ctx, testEvent{"order.created"}))
	require.NoError(t, bus.Publish(ctx, testEvent{"order.status_changed"}))
	require.NoError(t, bus.Publish(ctx, testEvent{"unrouted"}))

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, bus.Stop(stopCtx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[string]int{"a:order.created": 1, "b:order.created": 1}, got)
}

func TestPublishAfterStop(t *testing.T) {
	bus := NewBus(nil)
	require.NoError(t, bus.Stop(context.Background()))
	assert.ErrorIs(t, bus.Publish(context.Background(), testEvent{"x"}), ErrClosed)
	assert.NoError(t, bus.Publish(context.Background(), nil))
}
