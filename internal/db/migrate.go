package db

import (
	"errors"

	"github.com/flexystyles/storefront-backend/internal/app/model"
	"github.com/flexystyles/storefront-backend/pkg/logger"
	"github.com/flexystyles/storefront-backend/pkg/util"
	"gorm.io/gorm"
)

// Models is every table the service owns, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Address{},
		&model.Product{},
		&model.Cart{},
		&model.Order{},
		&model.PaymentVerification{},
	}
}

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// SeedAdmin creates the first admin account when none exists.
func SeedAdmin(conn *gorm.DB, email, password string) error {
	if email == "" || password == "" {
		logger.Info("No admin credentials configured, skipping admin seed")
		return nil
	}

	var existing model.User
	err := conn.Where("email = ?", email).First(&existing).Error
	if err == nil {
		logger.Info("Admin already seeded, skipping...", map[string]interface{}{
			"email": email,
		})
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return err
	}

	admin := &model.User{
		Email:        email,
		PasswordHash: hash,
		Name:         "Administrator",
		Role:         model.RoleAdmin,
	}
	if err := conn.Create(admin).Error; err != nil {
		logger.Error("Failed to seed admin user", err, map[string]interface{}{
			"email": email,
		})
		return err
	}

	logger.Info("Admin user seeded", map[string]interface{}{
		"user_id": admin.ID,
		"email":   email,
	})
	return nil
}
