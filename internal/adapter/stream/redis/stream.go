package redisstream

import (
	"context"
	"encoding/json"
	"fmt"

	"tradecore/internal/app/ports"
	"tradecore/internal/domain/trade"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "trade.events."

// Publisher fans trade events out over redis pub/sub, one channel per
// trade, so gateway processes on other hosts can forward them to
// connected clients.
type Publisher struct {
	client *redis.Client
}

var _ ports.EventPublisher = (*Publisher)(nil)

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) Publish(ctx context.Context, ev trade.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode trade event: %w", err)
	}
	if err := p.client.Publish(ctx, channelPrefix+ev.TradeID, payload).Err(); err != nil {
		return fmt.Errorf("publish trade event: %w", err)
	}
	return nil
}

// Channel returns the pub/sub channel name used for a trade.
func Channel(tradeID string) string {
	return channelPrefix + tradeID
}
