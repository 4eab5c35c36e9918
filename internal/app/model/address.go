package model

import (
	"time"

	"gorm.io/gorm"
)

// Address is an address-book entry. At most one per user has IsDefault set.
type Address struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	Name      string         `gorm:"size:100;not null" json:"name"` // recipient
	Phone     string         `gorm:"size:30;not null" json:"phone"`
	Address   string         `gorm:"type:text;not null" json:"address"`
	City      string         `gorm:"size:100;not null" json:"city"`
	State     string         `gorm:"size:100;not null" json:"state"`
	ZipCode   string         `gorm:"size:20;not null" json:"zip_code"`
	Country   string         `gorm:"size:100;default:'India'" json:"country"`
	IsDefault bool           `gorm:"default:false" json:"is_default"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Address) TableName() string {
	return "addresses"
}
