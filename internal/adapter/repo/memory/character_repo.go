package memory

import (
	"context"

	"tradecore/internal/app/ports"
)

type CharacterProfileRepo struct {
	store *Store
}

func NewCharacterProfileRepo(store *Store) CharacterProfileRepo {
	return CharacterProfileRepo{store: store}
}

func (r CharacterProfileRepo) GetByCharacterID(_ context.Context, characterID string) (ports.CharacterProfile, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	p, ok := r.store.profiles[characterID]
	if !ok {
		return ports.CharacterProfile{}, ports.ErrNotFound
	}
	return p, nil
}

func (r CharacterProfileRepo) Upsert(_ context.Context, profile ports.CharacterProfile) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.profiles[profile.CharacterID] = profile
	return nil
}
