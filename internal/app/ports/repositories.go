package ports

import (
	"context"

	"tradecore/internal/domain/inventory"
	"tradecore/internal/domain/item"
	"tradecore/internal/domain/trade"
)

// Aggregate repositories share the optimistic-version contract: Save with
// expectedVersion 0 creates the record, any other value must match the stored
// version or the save fails with ErrConflict.

type InventoryRepository interface {
	Get(ctx context.Context, characterID, seasonID string) (inventory.State, error)
	SaveWithVersion(ctx context.Context, state inventory.State, expectedVersion int64) error
}

type TradeSessionRepository interface {
	GetByTradeID(ctx context.Context, tradeID string) (trade.Session, error)
	SaveWithVersion(ctx context.Context, session trade.Session, expectedVersion int64) error
}

type ItemHistoryRepository interface {
	GetByItemID(ctx context.Context, itemID string) (item.History, error)
	SaveWithVersion(ctx context.Context, history item.History, expectedVersion int64) error
}

type ItemTypeRepository interface {
	GetByID(ctx context.Context, typeID string) (item.Type, error)
	Upsert(ctx context.Context, t item.Type) error
	List(ctx context.Context) ([]item.Type, error)
}

// CharacterProfile is the slice of character data the rules engine needs.
// Character/account state proper is owned by an out-of-scope collaborator.
type CharacterProfile struct {
	CharacterID   string
	SeasonID      string
	SoloSelfFound bool
}

type CharacterProfileRepository interface {
	GetByCharacterID(ctx context.Context, characterID string) (CharacterProfile, error)
	Upsert(ctx context.Context, profile CharacterProfile) error
}
