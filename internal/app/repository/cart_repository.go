package repository

import (
	"context"
	"errors"

	"github.com/flexystyles/storefront-backend/internal/app/model"
	"github.com/flexystyles/storefront-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartRepository is the relational Remote store: one row per user holding
// the whole cart as JSON.
type CartRepository interface {
	Get(ctx context.Context, userID uint) ([]model.CartLineItem, error)
	Save(ctx context.Context, userID uint, items []model.CartLineItem) error
	Clear(ctx context.Context, userID uint) error
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) Get(ctx context.Context, userID uint) ([]model.CartLineItem, error) {
	logger.Debug("Finding cart by user ID in database", map[string]interface{}{
		"user_id": userID,
	})

	var cart model.Cart
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		logger.Error("Failed to find cart by user ID in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	logger.Debug("Cart found by user ID in database", map[string]interface{}{
		"user_id": userID,
		"lines":   len(cart.Items),
	})
	return cart.Items, nil
}

// Save replaces the user's cart with items.
func (r *cartRepository) Save(ctx context.Context, userID uint, items []model.CartLineItem) error {
	if items == nil {
		items = []model.CartLineItem{}
	}
	logger.Debug("Saving cart in database", map[string]interface{}{
		"user_id": userID,
		"lines":   len(items),
	})

	cart := model.Cart{UserID: userID, Items: items}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"items", "updated_at"}),
	}).Create(&cart).Error
	if err != nil {
		logger.Error("Failed to save cart in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return err
	}
	return nil
}

func (r *cartRepository) Clear(ctx context.Context, userID uint) error {
	logger.Debug("Clearing cart in database", map[string]interface{}{
		"user_id": userID,
	})

	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.Cart{}).Error; err != nil {
		logger.Error("Failed to clear cart in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return err
	}
	return nil
}
