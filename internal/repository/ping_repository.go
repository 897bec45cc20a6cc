package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sdnyco/ichi/internal/model"
)

// ReceiptStat 某用户的接收回执统计
type ReceiptStat struct {
	Recent int       // since 之后的回执数
	LastAt time.Time // 最近一次回执时间；从未收到时为零值
}

type PingRepository interface {
	// IsReserved 判断 (place, dayKey) 是否已有事件；仅作快速路径，不作为并发判定
	IsReserved(ctx context.Context, placeID, dayKey string) (bool, error)
	// Reserve 以 ON CONFLICT DO NOTHING 插入事件；返回 false 表示唯一键已被占用
	Reserve(ctx context.Context, ev *model.PingEvent) (bool, error)
	ReceiptStats(ctx context.Context, userIDs []string, since time.Time) (map[string]ReceiptStat, error)
	CreateRecipients(ctx context.Context, rows []model.PingRecipient) error
	MarkFailed(ctx context.Context, eventID string) error
	WithTx(tx *gorm.DB) PingRepository
}

type pingRepository struct{ db *gorm.DB }

func NewPingRepository(db *gorm.DB) PingRepository { return &pingRepository{db: db} }

func (r *pingRepository) WithTx(tx *gorm.DB) PingRepository { return &pingRepository{db: tx} }

func (r *pingRepository) IsReserved(ctx context.Context, placeID, dayKey string) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.PingEvent{}).
		Where("place_id = ? AND day_key = ?", placeID, dayKey).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *pingRepository) Reserve(ctx context.Context, ev *model.PingEvent) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "place_id"}, {Name: "day_key"}},
			DoNothing: true,
		}).
		Create(ev)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *pingRepository) ReceiptStats(ctx context.Context, userIDs []string, since time.Time) (map[string]ReceiptStat, error) {
	stats := make(map[string]ReceiptStat, len(userIDs))
	if len(userIDs) == 0 {
		return stats, nil
	}
	var rows []struct {
		RecipientUserID string
		Recent          int
		LastAt          scanTime
	}
	if err := r.db.WithContext(ctx).
		Model(&model.PingRecipient{}).
		Select("recipient_user_id, COUNT(CASE WHEN created_at > ? THEN 1 END) AS recent, MAX(created_at) AS last_at", since.UTC()).
		Where("recipient_user_id IN ?", userIDs).
		Group("recipient_user_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		stats[row.RecipientUserID] = ReceiptStat{Recent: row.Recent, LastAt: time.Time(row.LastAt).UTC()}
	}
	return stats, nil
}

// scanTime 兼容聚合列：sqlite 的 MAX(datetime) 以文本返回
type scanTime time.Time

var scanTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
}

func (t *scanTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*t = scanTime{}
		return nil
	case time.Time:
		*t = scanTime(v)
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	}
	return fmt.Errorf("scan time: unsupported type %T", src)
}

func (t *scanTime) parse(s string) error {
	for _, layout := range scanTimeLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			*t = scanTime(v)
			return nil
		}
	}
	return fmt.Errorf("scan time: unrecognized value %q", s)
}

func (r *pingRepository) CreateRecipients(ctx context.Context, rows []model.PingRecipient) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *pingRepository) MarkFailed(ctx context.Context, eventID string) error {
	return r.db.WithContext(ctx).
		Model(&model.PingEvent{}).
		Where("id = ?", eventID).
		Update("status", model.PingStatusFailed).Error
}
