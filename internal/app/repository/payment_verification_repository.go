package repository

import (
	"context"

	"github.com/flexystyles/storefront-backend/internal/app/model"
	"github.com/flexystyles/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

type PaymentVerificationRepository interface {
	Create(ctx context.Context, record *model.PaymentVerification) error
	FindByPaymentID(paymentID string) (*model.PaymentVerification, error)
}

type paymentVerificationRepository struct {
	db *gorm.DB
}

func NewPaymentVerificationRepository(db *gorm.DB) PaymentVerificationRepository {
	return &paymentVerificationRepository{db: db}
}

func (r *paymentVerificationRepository) Create(ctx context.Context, record *model.PaymentVerification) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		logger.Error("Failed to record payment verification", err, map[string]interface{}{
			"payment_id":   record.PaymentID,
			"order_number": record.OrderNumber,
		})
		return err
	}

	logger.Debug("Payment verification recorded", map[string]interface{}{
		"id":         record.ID,
		"payment_id": record.PaymentID,
	})
	return nil
}

func (r *paymentVerificationRepository) FindByPaymentID(paymentID string) (*model.PaymentVerification, error) {
	var record model.PaymentVerification
	if err := r.db.Where("payment_id = ?", paymentID).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}
