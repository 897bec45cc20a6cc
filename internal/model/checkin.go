package model

import "time"

// CheckIn 签到；ExpiresAt > now 即为活跃
type CheckIn struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `gorm:"type:varchar(36);index;not null"`
	PlaceID   string    `gorm:"type:varchar(36);index:idx_checkin_place_expires;not null"`
	Mood      string    `gorm:"type:varchar(64)"`
	StartedAt time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"index:idx_checkin_place_expires;not null"`
	CreatedAt time.Time
}

func (CheckIn) TableName() string { return "check_ins" }

// IsActive reports whether the check-in has not expired at now.
func (c *CheckIn) IsActive(now time.Time) bool {
	return c.ExpiresAt.After(now)
}
