package memory

import (
	"context"

	"tradecore/internal/app/ports"
	"tradecore/internal/domain/inventory"
)

type InventoryRepo struct {
	store *Store
}

func NewInventoryRepo(store *Store) InventoryRepo {
	return InventoryRepo{store: store}
}

func (r InventoryRepo) Get(_ context.Context, characterID, seasonID string) (inventory.State, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	state, ok := r.store.inventories[inventoryKey(characterID, seasonID)]
	if !ok {
		return inventory.State{}, ports.ErrNotFound
	}
	return state.Clone(), nil
}

func (r InventoryRepo) SaveWithVersion(_ context.Context, state inventory.State, expectedVersion int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := inventoryKey(state.CharacterID, state.SeasonID)
	current, ok := r.store.inventories[key]
	if !ok {
		if expectedVersion != 0 {
			return ports.ErrConflict
		}
		r.store.inventories[key] = state.Clone()
		return nil
	}
	if current.Version != expectedVersion {
		return ports.ErrConflict
	}
	r.store.inventories[key] = state.Clone()
	return nil
}
