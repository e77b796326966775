package gormrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"tradecore/internal/adapter/repo/gorm/model"
	"tradecore/internal/app/ports"
	"tradecore/internal/domain/item"

	"gorm.io/gorm"
)

type ItemHistoryRepo struct {
	db *gorm.DB
}

var _ ports.ItemHistoryRepository = ItemHistoryRepo{}

func NewItemHistoryRepo(db *gorm.DB) ItemHistoryRepo {
	return ItemHistoryRepo{db: db}
}

func (r ItemHistoryRepo) GetByItemID(ctx context.Context, itemID string) (item.History, error) {
	var m model.ItemHistory
	err := getDBFromCtx(ctx, r.db).Where("item_id = ?", itemID).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return item.History{}, ports.ErrNotFound
		}
		return item.History{}, err
	}
	var history item.History
	if err := json.Unmarshal(m.Payload, &history); err != nil {
		return item.History{}, fmt.Errorf("decode item history: %w", err)
	}
	history.Version = m.Version
	return history, nil
}

func (r ItemHistoryRepo) SaveWithVersion(ctx context.Context, history item.History, expectedVersion int64) error {
	payload, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode item history: %w", err)
	}

	db := getDBFromCtx(ctx, r.db)
	if expectedVersion == 0 {
		m := model.ItemHistory{
			ItemID:  history.ItemID,
			Payload: payload,
			Version: history.Version,
		}
		if err := db.Create(&m).Error; err != nil {
			return err
		}
		return nil
	}

	res := db.Model(&model.ItemHistory{}).
		Where("item_id = ? AND version = ?", history.ItemID, expectedVersion).
		Updates(map[string]any{
			"payload": payload,
			"version": history.Version,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ports.ErrConflict
	}
	return nil
}
