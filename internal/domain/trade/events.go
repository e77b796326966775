package trade

import "time"

type EventType string

const (
	EventTradeStarted   EventType = "trade_started"
	EventItemAdded      EventType = "item_added"
	EventItemRemoved    EventType = "item_removed"
	EventTradeAccepted  EventType = "trade_accepted"
	EventTradeCompleted EventType = "trade_completed"
	EventTradeCancelled EventType = "trade_cancelled"
	EventTradeExpired   EventType = "trade_expired"
)

// Event is an ephemeral lifecycle notification. Delivery is at-least-once
// per subscriber; consumers dedupe by (TradeID, Type, OccurredAt, ItemID).
type Event struct {
	TradeID     string    `json:"trade_id"`
	Type        EventType `json:"type"`
	OccurredAt  time.Time `json:"occurred_at"`
	CharacterID string    `json:"character_id,omitempty"`
	ItemID      string    `json:"item_id,omitempty"`
	Session     *Session  `json:"session,omitempty"`
}
