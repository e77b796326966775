package memory

import (
	"context"
	"sort"

	"tradecore/internal/app/ports"
	"tradecore/internal/domain/item"
)

type ItemTypeRepo struct {
	store *Store
}

func NewItemTypeRepo(store *Store) ItemTypeRepo {
	return ItemTypeRepo{store: store}
}

func (r ItemTypeRepo) GetByID(_ context.Context, typeID string) (item.Type, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	t, ok := r.store.itemTypes[typeID]
	if !ok {
		return item.Type{}, ports.ErrNotFound
	}
	return t, nil
}

func (r ItemTypeRepo) Upsert(_ context.Context, t item.Type) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.itemTypes[t.ID] = t
	return nil
}

func (r ItemTypeRepo) List(_ context.Context) ([]item.Type, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	out := make([]item.Type, 0, len(r.store.itemTypes))
	for _, t := range r.store.itemTypes {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
