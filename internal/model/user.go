package model

import "time"

// User 用户（由外部系统维护，这里只读）
type User struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	Username  string `gorm:"type:varchar(64)"`
	Email     string `gorm:"type:varchar(255)"`
	IsBanned  bool   `gorm:"not null;default:false;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (User) TableName() string { return "users" }
