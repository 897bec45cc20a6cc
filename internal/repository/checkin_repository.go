package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/sdnyco/ichi/internal/model"
)

type CheckInRepository interface {
	GetByID(ctx context.Context, id string) (*model.CheckIn, error)
	// CountActiveOthers 统计地点内除 excludeID 外、未封禁用户的活跃签到数
	CountActiveOthers(ctx context.Context, placeID, excludeID string, now time.Time) (int64, error)
}

type checkInRepository struct{ db *gorm.DB }

func NewCheckInRepository(db *gorm.DB) CheckInRepository { return &checkInRepository{db: db} }

func (r *checkInRepository) GetByID(ctx context.Context, id string) (*model.CheckIn, error) {
	var c model.CheckIn
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *checkInRepository) CountActiveOthers(ctx context.Context, placeID, excludeID string, now time.Time) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&model.CheckIn{}).
		Joins("JOIN users ON users.id = check_ins.user_id").
		Where("check_ins.place_id = ? AND check_ins.expires_at > ? AND check_ins.id <> ?", placeID, now.UTC(), excludeID).
		Where("users.is_banned = ?", false).
		Count(&cnt).Error
	return cnt, err
}
