package ports

import (
	"context"

	"tradecore/internal/domain/trade"
)

// EventPublisher fans trade lifecycle events out to subscribers, at least
// once each, in the order the trade actor emitted them.
type EventPublisher interface {
	Publish(ctx context.Context, ev trade.Event) error
}
