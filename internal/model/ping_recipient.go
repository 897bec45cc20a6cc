package model

import "time"

// PingRecipient 接收回执，只在插入 PingEvent 的同一事务中写入
// ux_ping_recipient = (ping_event_id, recipient_user_id)
type PingRecipient struct {
	ID              string    `gorm:"primaryKey;type:varchar(36)"`
	PingEventID     string    `gorm:"type:varchar(36);not null;uniqueIndex:ux_ping_recipient"`
	RecipientUserID string    `gorm:"type:varchar(36);not null;uniqueIndex:ux_ping_recipient;index:idx_recipient_created,priority:1"`
	CreatedAt       time.Time `gorm:"not null;index:idx_recipient_created,priority:2"`
}

func (PingRecipient) TableName() string { return "ping_recipients" }
