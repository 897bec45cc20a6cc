package model

import "time"

// Place 地点（只读）
type Place struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	Name      string `gorm:"type:varchar(255);not null"`
	Slug      string `gorm:"type:varchar(255);uniqueIndex;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Place) TableName() string { return "places" }
