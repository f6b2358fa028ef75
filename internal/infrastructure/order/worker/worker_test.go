package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domorder "github.com/candleshop/shop/internal/domain/order"
	"github.com/candleshop/shop/internal/domain/outbox"
)

type fakeSubscriber struct {
	handlers map[string]outbox.Handler
}

func (f *fakeSubscriber) Subscribe(name string, h outbox.Handler) {
	if f.handlers == nil {
		f.handlers = map[string]outbox.Handler{}
	}
	f.handlers[name] = h
}

func TestRelayForwardsOrderEvents(t *testing.T) {
	sub := &fakeSubscriber{}
	var sent []string
	broker := outbox.PublisherFunc(func(_ context.Context, e outbox.Event) error {
		sent = append(sent, e.EventName())
		return nil
	})
	New(sub, broker, nil).Start()

	require.Contains(t, sub.handlers, domorder.EventCreated)
	require.Contains(t, sub.handlers, domorder.EventStatusChanged)

	ctx := context.Background()
	require.NoError(t, sub.handlers[domorder.EventCreated](ctx, domorder.CreatedEvent{OrderID: 1}))
	require.NoError(t, sub.handlers[domorder.EventStatusChanged](ctx, domorder.StatusChangedEvent{OrderID: 1}))
	assert.Equal(t, []string{domorder.EventCreated, domorder.EventStatusChanged}, sent)
}

func TestRelayReportsBrokerFailure(t *testing.T) {
	sub := &fakeSubscriber{}
	boom := errors.New("channel closed")
	New(sub, outbox.PublisherFunc(func(context.Context, outbox.Event) error { return boom }), nil).Start()

	err := sub.handlers[domorder.EventCreated](context.Background(), domorder.CreatedEvent{OrderID: 1})
	assert.ErrorIs(t, err, boom)
}

func TestStartWithoutBrokerSubscribesNothing(t *testing.T) {
	sub := &fakeSubscriber{}
	New(sub, nil, nil).Start()
	assert.Empty(t, sub.handlers)
}
