package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const webhookEventKeyPrefix = "webhook:event:"

// EventLedger remembers processed provider event ids for ttl.
type EventLedger struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewEventLedger(client redis.Cmdable, ttl time.Duration) *EventLedger {
	return &EventLedger{client: client, ttl: ttl}
}

func (l *EventLedger) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := l.client.Exists(ctx, webhookEventKeyPrefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("redis: lookup event %s: %w", eventID, err)
	}
	return n > 0, nil
}

func (l *EventLedger) Remember(ctx context.Context, eventID string) error {
	if err := l.client.SetNX(ctx, webhookEventKeyPrefix+eventID, 1, l.ttl).Err(); err != nil {
		return fmt.Errorf("redis: remember event %s: %w", eventID, err)
	}
	return nil
}
