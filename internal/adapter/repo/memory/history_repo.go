package memory

import (
	"context"

	"tradecore/internal/app/ports"
	"tradecore/internal/domain/item"
)

type ItemHistoryRepo struct {
	store *Store
}

func NewItemHistoryRepo(store *Store) ItemHistoryRepo {
	return ItemHistoryRepo{store: store}
}

func (r ItemHistoryRepo) GetByItemID(_ context.Context, itemID string) (item.History, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	history, ok := r.store.histories[itemID]
	if !ok {
		return item.History{}, ports.ErrNotFound
	}
	return history.Clone(), nil
}

func (r ItemHistoryRepo) SaveWithVersion(_ context.Context, history item.History, expectedVersion int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	current, ok := r.store.histories[history.ItemID]
	if !ok {
		if expectedVersion != 0 {
			return ports.ErrConflict
		}
		r.store.histories[history.ItemID] = history.Clone()
		return nil
	}
	if current.Version != expectedVersion {
		return ports.ErrConflict
	}
	r.store.histories[history.ItemID] = history.Clone()
	return nil
}
