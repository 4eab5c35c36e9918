package model

import "time"

// PaymentVerification is the audit row written after a successful signature check.
type PaymentVerification struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	GatewayOrderID string    `gorm:"size:100;index" json:"gateway_order_id"`
	PaymentID      string    `gorm:"size:100;index" json:"payment_id"`
	OrderNumber    string    `gorm:"size:64;index" json:"order_number"`
	OrderData      string    `gorm:"type:text" json:"order_data,omitempty"`
	Status         string    `gorm:"size:20" json:"status"`
	VerifiedAt     time.Time `json:"verified_at"`
}

func (PaymentVerification) TableName() string {
	return "payment_verifications"
}
