package repository

import (
	"errors"
	"strings"

	"github.com/flexystyles/storefront-backend/internal/app/model"
	"github.com/flexystyles/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(user *model.User) error
	FindByID(id uint) (*model.User, error)
	FindByEmail(email string) (*model.User, error)
	ExistsByEmail(email string) (bool, error)
	UpdateProfile(id uint, name, phone string) (*model.User, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// NormalizeEmail is the stored form of an account email: trimmed, lower case.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *userRepository) Create(user *model.User) error {
	user.Email = NormalizeEmail(user.Email)
	logger.Debug("Creating user in database", map[string]interface{}{
		"email": user.Email,
	})

	if err := r.db.Create(user).Error; err != nil {
		logger.Error("Failed to create user in database", err, map[string]interface{}{
			"email": user.Email,
		})
		return err
	}

	logger.Debug("User created in database", map[string]interface{}{
		"user_id": user.ID,
	})
	return nil
}

func (r *userRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	if err := r.db.First(&user, id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find user by ID in database", err, map[string]interface{}{
				"user_id": id,
			})
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(email string) (*model.User, error) {
	email = NormalizeEmail(email)

	var user model.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find user by email in database", err, map[string]interface{}{
				"email": email,
			})
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ExistsByEmail(email string) (bool, error) {
	var count int64
	err := r.db.Model(&model.User{}).Where("email = ?", NormalizeEmail(email)).Count(&count).Error
	if err != nil {
		logger.Error("Failed to count users by email", err, map[string]interface{}{
			"email": NormalizeEmail(email),
		})
		return false, err
	}
	return count > 0, nil
}

// UpdateProfile writes the non-blank name and phone and returns the stored
// row. Email, role and password are never touched here.
func (r *userRepository) UpdateProfile(id uint, name, phone string) (*model.User, error) {
	updates := map[string]interface{}{}
	if name = strings.TrimSpace(name); name != "" {
		updates["name"] = name
	}
	if phone = strings.TrimSpace(phone); phone != "" {
		updates["phone"] = phone
	}

	if len(updates) > 0 {
		result := r.db.Model(&model.User{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			logger.Error("Failed to update user profile", result.Error, map[string]interface{}{
				"user_id": id,
			})
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, gorm.ErrRecordNotFound
		}
		logger.Debug("User profile updated in database", map[string]interface{}{
			"user_id": id,
			"fields":  len(updates),
		})
	}

	return r.FindByID(id)
}
