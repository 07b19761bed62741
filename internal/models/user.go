package models

import "time"

// User is a registered account. Only identity fields are managed here.
type User struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Username  string    `json:"username" gorm:"size:80;uniqueIndex;not null"`
	Email     string    `json:"email" gorm:"size:120;uniqueIndex;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
