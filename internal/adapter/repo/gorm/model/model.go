package model

import "time"

// Aggregates are stored as one row each: identity columns plus a JSONB
// payload and the optimistic version counter. The payload is the domain
// aggregate's JSON encoding, so the schema does not chase every field.

type Inventory struct {
	CharacterID string `gorm:"column:character_id;primaryKey"`
	SeasonID    string `gorm:"column:season_id;primaryKey"`
	Items       []byte `gorm:"column:items;type:jsonb"`
	Staged      []byte `gorm:"column:staged;type:jsonb"`
	Version     int64  `gorm:"column:version"`
}

func (Inventory) TableName() string { return "inventories" }

type TradeSession struct {
	TradeID string `gorm:"column:trade_id;primaryKey"`
	Status  string `gorm:"column:status;index"`
	Payload []byte `gorm:"column:payload;type:jsonb"`
	Version int64  `gorm:"column:version"`
}

func (TradeSession) TableName() string { return "trade_sessions" }

type ItemHistory struct {
	ItemID  string `gorm:"column:item_id;primaryKey"`
	Payload []byte `gorm:"column:payload;type:jsonb"`
	Version int64  `gorm:"column:version"`
}

func (ItemHistory) TableName() string { return "item_histories" }

type ItemType struct {
	ID        string `gorm:"column:id;primaryKey"`
	Name      string `gorm:"column:name"`
	Category  string `gorm:"column:category"`
	Tradeable bool   `gorm:"column:tradeable"`
	MaxStack  int    `gorm:"column:max_stack"`
}

func (ItemType) TableName() string { return "item_types" }

type CharacterProfile struct {
	CharacterID   string    `gorm:"column:character_id;primaryKey"`
	SeasonID      string    `gorm:"column:season_id"`
	SoloSelfFound bool      `gorm:"column:solo_self_found"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (CharacterProfile) TableName() string { return "character_profiles" }
