package memory

import (
	"context"

	"tradecore/internal/app/ports"
	"tradecore/internal/domain/trade"
)

type TradeSessionRepo struct {
	store *Store
}

func NewTradeSessionRepo(store *Store) TradeSessionRepo {
	return TradeSessionRepo{store: store}
}

func (r TradeSessionRepo) GetByTradeID(_ context.Context, tradeID string) (trade.Session, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	session, ok := r.store.sessions[tradeID]
	if !ok {
		return trade.Session{}, ports.ErrNotFound
	}
	return session.Clone(), nil
}

func (r TradeSessionRepo) SaveWithVersion(_ context.Context, session trade.Session, expectedVersion int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	current, ok := r.store.sessions[session.TradeID]
	if !ok {
		if expectedVersion != 0 {
			return ports.ErrConflict
		}
		r.store.sessions[session.TradeID] = session.Clone()
		return nil
	}
	if current.Version != expectedVersion {
		return ports.ErrConflict
	}
	r.store.sessions[session.TradeID] = session.Clone()
	return nil
}
