package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/sdnyco/ichi/internal/model"
)

type PlaceRepository interface {
	GetByID(ctx context.Context, id string) (*model.Place, error)
}

type placeRepository struct{ db *gorm.DB }

func NewPlaceRepository(db *gorm.DB) PlaceRepository { return &placeRepository{db: db} }

func (r *placeRepository) GetByID(ctx context.Context, id string) (*model.Place, error) {
	var p model.Place
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}
