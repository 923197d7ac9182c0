package models

import "time"

// User mirrors the record the identity provider pushes on signup and profile
// update. The id is issued externally and never changes.
type User struct {
	ID          string    `gorm:"primaryKey;type:varchar(64)" json:"user_id"`
	Email       string    `gorm:"type:varchar(255);index;not null" json:"email"`
	DisplayName string    `gorm:"type:varchar(128);index;not null" json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"-"`
}

func (User) TableName() string { return "users" }
