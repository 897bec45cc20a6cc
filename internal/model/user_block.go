package model

import "time"

// UserBlock 屏蔽关系（Blocker 屏蔽 Blocked）；任一方向都视为互相屏蔽
// idx_block_pair = (blocker_id, blocked_id)
type UserBlock struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	BlockerID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_block_pair"`
	BlockedID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_block_pair;index"`
	CreatedAt time.Time
}

func (UserBlock) TableName() string { return "user_blocks" }
