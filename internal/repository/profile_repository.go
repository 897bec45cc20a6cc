package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/sdnyco/ichi/internal/model"
)

type ProfileRepository interface {
	// ListPingCandidates 返回地点内已锚定、未封禁、非发送者且与发送者无任何方向屏蔽的档案
	ListPingCandidates(ctx context.Context, placeID, senderID string) ([]*model.PlaceProfile, error)
	// ListAnchored 返回地点内已锚定且未封禁的档案
	ListAnchored(ctx context.Context, placeID string) ([]*model.PlaceProfile, error)
	WithTx(tx *gorm.DB) ProfileRepository
}

type profileRepository struct{ db *gorm.DB }

func NewProfileRepository(db *gorm.DB) ProfileRepository { return &profileRepository{db: db} }

func (r *profileRepository) WithTx(tx *gorm.DB) ProfileRepository { return &profileRepository{db: tx} }

// 屏蔽判断作为每行的 NOT EXISTS 子条件，与候选查询同一次往返
const notBlockedWithSender = `NOT EXISTS (
	SELECT 1 FROM user_blocks b
	WHERE (b.blocker_id = ? AND b.blocked_id = place_profiles.user_id)
	   OR (b.blocker_id = place_profiles.user_id AND b.blocked_id = ?)
)`

func (r *profileRepository) ListPingCandidates(ctx context.Context, placeID, senderID string) ([]*model.PlaceProfile, error) {
	var res []*model.PlaceProfile
	err := r.anchored(ctx, placeID).
		Where("place_profiles.user_id <> ?", senderID).
		Where(notBlockedWithSender, senderID, senderID).
		Order("place_profiles.user_id").
		Find(&res).Error
	return res, err
}

func (r *profileRepository) ListAnchored(ctx context.Context, placeID string) ([]*model.PlaceProfile, error) {
	var res []*model.PlaceProfile
	err := r.anchored(ctx, placeID).Order("place_profiles.user_id").Find(&res).Error
	return res, err
}

func (r *profileRepository) anchored(ctx context.Context, placeID string) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&model.PlaceProfile{}).
		Select("place_profiles.*").
		Joins("JOIN users ON users.id = place_profiles.user_id").
		Where("place_profiles.place_id = ? AND place_profiles.is_anchored = ?", placeID, true).
		Where("users.is_banned = ?", false)
}
