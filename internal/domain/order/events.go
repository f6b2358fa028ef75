package order

import (
	"time"

	"github.com/candleshop/shop/internal/domain/money"
)

const (
	EventCreated       = "order.created"
	EventStatusChanged = "order.status_changed"
)

// CreatedEvent is published after an order and its stock decrements commit.
type CreatedEvent struct {
	OrderID    int64     `json:"order_id"`
	UserID     int64     `json:"user_id"`
	Currency   string    `json:"currency"`
	Total      string    `json:"total"`
	ItemCount  int       `json:"item_count"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (CreatedEvent) EventName() string { return EventCreated }

func NewCreatedEvent(o *Order) CreatedEvent {
	count := 0
	for _, it := range o.Items {
		count += it.Quantity
	}
	return CreatedEvent{
		OrderID:    o.ID,
		UserID:     o.UserID,
		Currency:   o.Currency,
		Total:      money.Format(o.Total),
		ItemCount:  count,
		OccurredAt: time.Now().UTC(),
	}
}

// StatusChangedEvent is published after a committed status transition.
type StatusChangedEvent struct {
	OrderID    int64     `json:"order_id"`
	From       Status    `json:"from"`
	To         Status    `json:"to"`
	Source     string    `json:"source"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (StatusChangedEvent) EventName() string { return EventStatusChanged }

func NewStatusChangedEvent(o *Order, from Status, source string) StatusChangedEvent {
	return StatusChangedEvent{
		OrderID:    o.ID,
		From:       from,
		To:         o.Status,
		Source:     source,
		OccurredAt: time.Now().UTC(),
	}
}
