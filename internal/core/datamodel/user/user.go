package user

import "time"

type User struct {
	ID           int64     `gorm:"primaryKey"`
	FullName     string    `gorm:"column:full_name;not null"`
	Email        string    `gorm:"column:email;uniqueIndex;not null"`
	PhoneNumber  string    `gorm:"column:phone_number"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
