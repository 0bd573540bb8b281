package models

import "time"

type Customer struct {
	ID          uint   `gorm:"primaryKey"`
	TenantID    string `gorm:"size:64;index;not null"`
	Name        string `gorm:"size:120;not null"`
	Phone       string `gorm:"size:50;index"`
	Email       string `gorm:"size:120"`
	Preferences string `gorm:"type:text"`
	Allergies   string `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
