package gormrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"tradecore/internal/adapter/repo/gorm/model"
	"tradecore/internal/app/ports"
	"tradecore/internal/domain/inventory"
	"tradecore/internal/domain/item"

	"gorm.io/gorm"
)

type InventoryRepo struct {
	db *gorm.DB
}

var _ ports.InventoryRepository = InventoryRepo{}

func NewInventoryRepo(db *gorm.DB) InventoryRepo {
	return InventoryRepo{db: db}
}

func (r InventoryRepo) Get(ctx context.Context, characterID, seasonID string) (inventory.State, error) {
	var m model.Inventory
	err := getDBFromCtx(ctx, r.db).
		Where("character_id = ? AND season_id = ?", characterID, seasonID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return inventory.State{}, ports.ErrNotFound
		}
		return inventory.State{}, err
	}

	state := inventory.State{
		CharacterID: characterID,
		SeasonID:    seasonID,
		Items:       map[string]item.Item{},
		Version:     m.Version,
	}
	if len(m.Items) > 0 {
		if err := json.Unmarshal(m.Items, &state.Items); err != nil {
			return inventory.State{}, fmt.Errorf("decode inventory items: %w", err)
		}
	}
	if len(m.Staged) > 0 {
		if err := json.Unmarshal(m.Staged, &state.Staged); err != nil {
			return inventory.State{}, fmt.Errorf("decode inventory staging: %w", err)
		}
	}
	return state, nil
}

func (r InventoryRepo) SaveWithVersion(ctx context.Context, state inventory.State, expectedVersion int64) error {
	items, err := json.Marshal(state.Items)
	if err != nil {
		return fmt.Errorf("encode inventory items: %w", err)
	}
	staged, err := json.Marshal(state.Staged)
	if err != nil {
		return fmt.Errorf("encode inventory staging: %w", err)
	}

	db := getDBFromCtx(ctx, r.db)
	if expectedVersion == 0 {
		m := model.Inventory{
			CharacterID: state.CharacterID,
			SeasonID:    state.SeasonID,
			Items:       items,
			Staged:      staged,
			Version:     state.Version,
		}
		if err := db.Create(&m).Error; err != nil {
			return err
		}
		return nil
	}

	res := db.Model(&model.Inventory{}).
		Where("character_id = ? AND season_id = ? AND version = ?", state.CharacterID, state.SeasonID, expectedVersion).
		Updates(map[string]any{
			"items":   items,
			"staged":  staged,
			"version": state.Version,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ports.ErrConflict
	}
	return nil
}
