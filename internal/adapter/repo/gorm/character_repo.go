package gormrepo

import (
	"context"
	"errors"

	"tradecore/internal/adapter/repo/gorm/model"
	"tradecore/internal/app/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CharacterProfileRepo struct {
	db *gorm.DB
}

var _ ports.CharacterProfileRepository = CharacterProfileRepo{}

func NewCharacterProfileRepo(db *gorm.DB) CharacterProfileRepo {
	return CharacterProfileRepo{db: db}
}

func (r CharacterProfileRepo) GetByCharacterID(ctx context.Context, characterID string) (ports.CharacterProfile, error) {
	var m model.CharacterProfile
	err := getDBFromCtx(ctx, r.db).Where("character_id = ?", characterID).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.CharacterProfile{}, ports.ErrNotFound
		}
		return ports.CharacterProfile{}, err
	}
	return ports.CharacterProfile{
		CharacterID:   m.CharacterID,
		SeasonID:      m.SeasonID,
		SoloSelfFound: m.SoloSelfFound,
	}, nil
}

func (r CharacterProfileRepo) Upsert(ctx context.Context, profile ports.CharacterProfile) error {
	m := model.CharacterProfile{
		CharacterID:   profile.CharacterID,
		SeasonID:      profile.SeasonID,
		SoloSelfFound: profile.SoloSelfFound,
	}
	return getDBFromCtx(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "character_id"}},
			UpdateAll: true,
		}).
		Create(&m).Error
}
