package model

import "time"

// CartLineItem is one (product, size, color) entry. Name, price and images are
// copied from the product when the line is added and never refreshed.
type CartLineItem struct {
	ProductID     uint     `json:"product_id" bson:"product_id"`
	SelectedSize  string   `json:"selected_size" bson:"selected_size"`
	SelectedColor string   `json:"selected_color" bson:"selected_color"`
	Quantity      int      `json:"quantity" bson:"quantity"`
	Price         float64  `json:"price" bson:"price"`
	Name          string   `json:"name" bson:"name"`
	Images        []string `json:"images" bson:"images"`
}

// LineKey is the composite identity of a cart line.
type LineKey struct {
	ProductID uint   `json:"product_id"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

func (l CartLineItem) Key() LineKey {
	return LineKey{ProductID: l.ProductID, Size: l.SelectedSize, Color: l.SelectedColor}
}

// Cart is the remote, per-user cart record. Items are always written as a full snapshot.
type Cart struct {
	ID        uint           `gorm:"primarykey" json:"-" bson:"-"`
	UserID    uint           `gorm:"uniqueIndex;not null" json:"user_id" bson:"user_id"`
	Items     []CartLineItem `gorm:"serializer:json" json:"items" bson:"items"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" bson:"updated_at"`
}

func (Cart) TableName() string {
	return "carts"
}
