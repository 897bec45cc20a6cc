package model

import (
	"time"

	"gorm.io/datatypes"
)

// Weekday keys used in AvailabilityWeekly.
const (
	Monday    = "mon"
	Tuesday   = "tue"
	Wednesday = "wed"
	Thursday  = "thu"
	Friday    = "fri"
	Saturday  = "sat"
	Sunday    = "sun"
)

// DayWindow is a local-time window in minutes since midnight. Either bound
// may be null, meaning no window that day.
type DayWindow struct {
	Start *int `json:"start"`
	End   *int `json:"end"`
}

// WeeklyAvailability maps a weekday key to that day's window.
type WeeklyAvailability map[string]DayWindow

// PlaceProfile 用户在某地点的档案（由外部系统维护，这里只读）
// idx_profile_user_place = (user_id, place_id)
type PlaceProfile struct {
	ID                    string                                 `gorm:"primaryKey;type:varchar(36)"`
	UserID                string                                 `gorm:"type:varchar(36);not null;uniqueIndex:idx_profile_user_place"`
	PlaceID               string                                 `gorm:"type:varchar(36);not null;uniqueIndex:idx_profile_user_place;index:idx_profile_place_anchored"`
	IsAnchored            bool                                   `gorm:"not null;default:false;index:idx_profile_place_anchored"`
	ContactEmail          string                                 `gorm:"type:varchar(255)"`
	IsAvailabilityEnabled bool                                   `gorm:"not null;default:false"`
	AvailabilityWeekly    datatypes.JSONType[WeeklyAvailability] `gorm:"not null;default:'null'"`
	AvailabilityTimeZone  string                                 `gorm:"type:varchar(64)"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (PlaceProfile) TableName() string { return "place_profiles" }
