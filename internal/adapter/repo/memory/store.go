package memory

import (
	"sync"

	"tradecore/internal/app/ports"
	"tradecore/internal/domain/inventory"
	"tradecore/internal/domain/item"
	"tradecore/internal/domain/trade"
)

// Store backs the in-memory adapters; everything is guarded by one lock and
// aggregates are cloned on the way in and out so tests can hammer it from
// many goroutines.
type Store struct {
	mu          sync.RWMutex
	inventories map[string]inventory.State
	sessions    map[string]trade.Session
	histories   map[string]item.History
	itemTypes   map[string]item.Type
	profiles    map[string]ports.CharacterProfile
}

func NewStore() *Store {
	return &Store{
		inventories: make(map[string]inventory.State),
		sessions:    make(map[string]trade.Session),
		histories:   make(map[string]item.History),
		itemTypes:   make(map[string]item.Type),
		profiles:    make(map[string]ports.CharacterProfile),
	}
}

func inventoryKey(characterID, seasonID string) string {
	return characterID + "|" + seasonID
}

func (s *Store) SeedProfile(p ports.CharacterProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.CharacterID] = p
}

func (s *Store) SeedItemType(t item.Type) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.itemTypes[t.ID] = t
}
