package gormrepo

import (
	"context"
	"errors"

	"tradecore/internal/adapter/repo/gorm/model"
	"tradecore/internal/app/ports"
	"tradecore/internal/domain/item"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ItemTypeRepo struct {
	db *gorm.DB
}

var _ ports.ItemTypeRepository = ItemTypeRepo{}

func NewItemTypeRepo(db *gorm.DB) ItemTypeRepo {
	return ItemTypeRepo{db: db}
}

func (r ItemTypeRepo) GetByID(ctx context.Context, typeID string) (item.Type, error) {
	var m model.ItemType
	err := getDBFromCtx(ctx, r.db).Where("id = ?", typeID).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return item.Type{}, ports.ErrNotFound
		}
		return item.Type{}, err
	}
	return fromItemTypeModel(m), nil
}

func (r ItemTypeRepo) Upsert(ctx context.Context, t item.Type) error {
	m := model.ItemType{
		ID:        t.ID,
		Name:      t.Name,
		Category:  t.Category,
		Tradeable: t.Tradeable,
		MaxStack:  t.MaxStack,
	}
	return getDBFromCtx(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&m).Error
}

func (r ItemTypeRepo) List(ctx context.Context) ([]item.Type, error) {
	var rows []model.ItemType
	if err := getDBFromCtx(ctx, r.db).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]item.Type, 0, len(rows))
	for _, m := range rows {
		out = append(out, fromItemTypeModel(m))
	}
	return out, nil
}

func fromItemTypeModel(m model.ItemType) item.Type {
	return item.Type{
		ID:        m.ID,
		Name:      m.Name,
		Category:  m.Category,
		Tradeable: m.Tradeable,
		MaxStack:  m.MaxStack,
	}
}
