package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/candleshop/shop/internal/domain/outbox"
)

// Publisher sends domain events to the topic exchange using the event name
// as routing key.
type Publisher struct {
	mu sync.Mutex
	ch *amqp.Channel
}

var _ outbox.Publisher = (*Publisher)(nil)

func NewPublisher(ch *amqp.Channel) *Publisher {
	return &Publisher{ch: ch}
}

func (p *Publisher) Publish(ctx context.Context, e outbox.Event) error {
	msg, err := newPublishing(e, time.Now().UTC())
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.PublishWithContext(ctx,
		ExchangeName,  // exchange
		e.EventName(), // routing key
		false,         // mandatory
		false,         // immediate
		msg,
	); err != nil {
		return fmt.Errorf("rabbitmq: publish %s: %w", e.EventName(), err)
	}
	return nil
}

func newPublishing(e outbox.Event, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("rabbitmq: marshal %s: %w", e.EventName(), err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    now,
		Type:         e.EventName(),
		Body:         body,
	}, nil
}
