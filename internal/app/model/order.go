package model

import (
	"time"
)

type OrderStatus string
type PaymentStatus string
type OrderType string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"

	PaymentStatusPending PaymentStatus = "Pending"
	PaymentStatusPaid    PaymentStatus = "Paid"

	OrderTypeCart   OrderType = "Cart"
	OrderTypeBuyNow OrderType = "Buy Now"

	PaymentMethodRazorpay = "Razorpay"
)

// AllOrderStatuses lists statuses in lifecycle order.
var AllOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, known := range AllOrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ShippingInfo is copied into every order row; it never points back at the address book.
type ShippingInfo struct {
	FullName string `gorm:"size:100" json:"full_name"`
	Email    string `gorm:"size:200" json:"email"`
	Phone    string `gorm:"size:30" json:"phone"`
	Address  string `gorm:"type:text" json:"address"`
	City     string `gorm:"size:100" json:"city"`
	State    string `gorm:"size:100" json:"state"`
	ZipCode  string `gorm:"size:20" json:"zip_code"`
	Country  string `gorm:"size:100" json:"country"`
}

type StatusEntry struct {
	Status    OrderStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Note      string      `json:"note"`
}

// Order is one checkout line. Every row of a checkout shares OrderNumber,
// the totals and the payment reference. (OrderNumber, LineNo) is unique so
// a replayed fan-out cannot duplicate lines.
type Order struct {
	ID             uint          `gorm:"primarykey" json:"id"`
	OrderNumber    string        `gorm:"size:64;not null;uniqueIndex:idx_orders_number_line,priority:1" json:"order_number"`
	LineNo         int           `gorm:"not null;uniqueIndex:idx_orders_number_line,priority:2" json:"line_no"`
	UserID         uint          `gorm:"not null;index" json:"user_id"`
	CustomerName   string        `gorm:"size:100" json:"customer_name"`
	CustomerEmail  string        `gorm:"size:200" json:"customer_email"`
	ProductID      uint          `gorm:"not null;index" json:"product_id"`
	ProductName    string        `gorm:"size:200" json:"product_name"`
	ProductImage   string        `gorm:"type:text" json:"product_image"`
	Size           string        `gorm:"size:50" json:"size"`
	Color          string        `gorm:"size:50" json:"color"`
	Quantity       int           `gorm:"not null" json:"quantity"`
	Price          float64       `gorm:"not null" json:"price"`
	LineTotal      float64       `gorm:"not null" json:"line_total"`
	Subtotal       float64       `gorm:"not null" json:"subtotal"`
	ShippingCost   float64       `gorm:"not null" json:"shipping_cost"`
	Tax            float64       `gorm:"not null" json:"tax"`
	TotalAmount    float64       `gorm:"not null" json:"total_amount"`
	Status         OrderStatus   `gorm:"type:varchar(20);index;default:'Pending'" json:"status"`
	ShippingInfo   ShippingInfo  `gorm:"embedded;embeddedPrefix:ship_" json:"shipping_info"`
	PaymentMethod  string        `gorm:"size:50" json:"payment_method"`
	PaymentStatus  PaymentStatus `gorm:"type:varchar(20)" json:"payment_status"`
	PaymentID      string        `gorm:"size:100;index" json:"payment_id"`
	GatewayOrderID string        `gorm:"size:100;index" json:"gateway_order_id"`
	PaidAt         *time.Time    `json:"paid_at,omitempty"`
	OrderType      OrderType     `gorm:"type:varchar(20)" json:"order_type"`
	StatusHistory  []StatusEntry `gorm:"serializer:json" json:"status_history"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderStatistics is the admin dashboard summary.
type OrderStatistics struct {
	TotalOrders  int64                 `json:"total_orders"`
	TotalRevenue float64               `json:"total_revenue"`
	StatusCounts map[OrderStatus]int64 `json:"status_counts"`
}
