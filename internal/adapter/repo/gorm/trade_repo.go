package gormrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"tradecore/internal/adapter/repo/gorm/model"
	"tradecore/internal/app/ports"
	"tradecore/internal/domain/trade"

	"gorm.io/gorm"
)

type TradeSessionRepo struct {
	db *gorm.DB
}

var _ ports.TradeSessionRepository = TradeSessionRepo{}

func NewTradeSessionRepo(db *gorm.DB) TradeSessionRepo {
	return TradeSessionRepo{db: db}
}

func (r TradeSessionRepo) GetByTradeID(ctx context.Context, tradeID string) (trade.Session, error) {
	var m model.TradeSession
	err := getDBFromCtx(ctx, r.db).Where("trade_id = ?", tradeID).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return trade.Session{}, ports.ErrNotFound
		}
		return trade.Session{}, err
	}
	var session trade.Session
	if err := json.Unmarshal(m.Payload, &session); err != nil {
		return trade.Session{}, fmt.Errorf("decode trade session: %w", err)
	}
	session.Version = m.Version
	return session, nil
}

func (r TradeSessionRepo) SaveWithVersion(ctx context.Context, session trade.Session, expectedVersion int64) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode trade session: %w", err)
	}

	db := getDBFromCtx(ctx, r.db)
	if expectedVersion == 0 {
		m := model.TradeSession{
			TradeID: session.TradeID,
			Status:  string(session.Status),
			Payload: payload,
			Version: session.Version,
		}
		if err := db.Create(&m).Error; err != nil {
			return err
		}
		return nil
	}

	res := db.Model(&model.TradeSession{}).
		Where("trade_id = ? AND version = ?", session.TradeID, expectedVersion).
		Updates(map[string]any{
			"status":  string(session.Status),
			"payload": payload,
			"version": session.Version,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ports.ErrConflict
	}
	return nil
}
