package model

import "time"

// PingEvent 一次已提交的 ping 发送；每个 (place_id, day_key) 至多一条
// ux_ping_event_place_day = (place_id, day_key)，并发插入以该唯一键为准
type PingEvent struct {
	ID              string    `gorm:"primaryKey;type:varchar(36)"`
	PlaceID         string    `gorm:"type:varchar(36);not null;uniqueIndex:ux_ping_event_place_day,priority:1"`
	DayKey          string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_ping_event_place_day,priority:2"`
	SenderUserID    string    `gorm:"type:varchar(36);not null;index"`
	SenderCheckInID string    `gorm:"type:varchar(36);not null"`
	MaxRecipients   int       `gorm:"not null"`
	Status          string    `gorm:"type:varchar(16);not null;default:'sent'"`
	CreatedAt       time.Time `gorm:"not null"`
}

func (PingEvent) TableName() string { return "ping_events" }

// PingEvent 状态
const (
	PingStatusSent   = "sent"
	PingStatusFailed = "failed"
)
