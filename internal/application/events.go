package application

import (
	"context"
	"time"

	"github.com/candleshop/shop/internal/domain/outbox"
)

const (
	publishPeer    = "outbox"
	publishTimeout = 300 * time.Millisecond
)

// Publish hands a committed event to pub with a short timeout. Failures are
// returned for logging only; the committed transaction stands either way.
func (in *Instrument) Publish(ctx context.Context, pub outbox.Publisher, e outbox.Event) error {
	if pub == nil || e == nil {
		return nil
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return in.External(pubCtx, publishPeer, e.EventName(), func(ctx context.Context) error {
		if err := pub.Publish(ctx, e); err != nil {
			return err
		}
		return ctx.Err()
	})
}
