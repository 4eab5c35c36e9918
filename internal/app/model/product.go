package model

import (
	"time"

	"gorm.io/gorm"
)

// NoVariant marks a line item whose product has no size or color axis.
const NoVariant = "N/A"

type ProductDetails struct {
	Material string `gorm:"size:200" json:"material"`
	Fit      string `gorm:"size:200" json:"fit"`
	Care     string `gorm:"type:text" json:"care"`
}

type Product struct {
	ID            uint           `gorm:"primarykey" json:"id"`
	Name          string         `gorm:"size:200;not null" json:"name"`
	Category      string         `gorm:"size:100;not null" json:"category"`
	Price         float64        `gorm:"not null" json:"price"`
	Description   string         `gorm:"type:text" json:"description"`
	Images        []string       `gorm:"serializer:json" json:"images"`
	Sizes         []string       `gorm:"serializer:json" json:"sizes"`
	Colors        []string       `gorm:"serializer:json" json:"colors"`
	Features      []string       `gorm:"serializer:json" json:"features"`
	Details       ProductDetails `gorm:"embedded;embeddedPrefix:details_" json:"details"`
	IsNew         bool           `gorm:"default:false;index" json:"is_new"`
	LimitedOffer  bool           `gorm:"default:false;index" json:"limited_offer"`
	IsActive      bool           `gorm:"default:true;index" json:"is_active"`
	InStock       bool           `gorm:"default:true" json:"in_stock"`
	Stock         int            `gorm:"default:0" json:"stock"`
	SKU           string         `gorm:"size:50;index" json:"sku"`
	NameLower     string         `gorm:"size:200;index" json:"-"`
	CategoryLower string         `gorm:"size:100;index" json:"-"`
	Tags          []string       `gorm:"serializer:json" json:"tags"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Product) TableName() string {
	return "products"
}

// DefaultSize is the size a buy-now checkout uses when none is chosen.
func (p *Product) DefaultSize() string {
	if len(p.Sizes) == 0 {
		return NoVariant
	}
	return p.Sizes[0]
}

// DefaultColor is the color a buy-now checkout uses when none is chosen.
func (p *Product) DefaultColor() string {
	if len(p.Colors) == 0 {
		return NoVariant
	}
	return p.Colors[0]
}
