package item

import "time"

// Item is one tradeable unit. Its identity survives ownership transfers:
// a trade moves the same Item value into the counterpart's inventory.
type Item struct {
	ID         string            `json:"id"`
	TypeID     string            `json:"type_id"`
	Quantity   int               `json:"quantity"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	AcquiredAt time.Time         `json:"acquired_at"`
}

// Type is read-mostly reference data consulted when an item is offered.
type Type struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Tradeable bool   `json:"tradeable"`
	MaxStack  int    `json:"max_stack"`
}
