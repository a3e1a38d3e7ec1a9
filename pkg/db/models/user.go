package models

import "time"

// User is a seller account.
type User struct {
	ID              uint      `gorm:"column:id;primaryKey;autoIncrement"`
	Email           string    `gorm:"column:email;type:varchar(255);not null;uniqueIndex"`
	PasswordHash    string    `gorm:"column:password_hash;not null"`
	EbayAccessToken *string   `gorm:"column:ebay_access_token"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
