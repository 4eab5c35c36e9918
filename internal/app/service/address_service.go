package service

import (
	"errors"
	"strings"

	"github.com/flexystyles/storefront-backend/internal/app/model"
	"github.com/flexystyles/storefront-backend/internal/app/repository"
	"github.com/flexystyles/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrAddressNotFound    = errors.New("address not found")
	ErrUnauthorizedAccess = errors.New("unauthorized access to address")
	ErrInvalidAddress     = errors.New("name, phone, address, city, state and zip code are required")
)

type AddressService interface {
	GetUserAddresses(userID uint) ([]model.Address, error)
	CreateAddress(userID uint, address *model.Address) error
	UpdateAddress(userID, addressID uint, updated *model.Address) (*model.Address, error)
	DeleteAddress(userID, addressID uint) error
	SetDefaultAddress(userID, addressID uint) error
}

type addressService struct {
	addressRepo repository.AddressRepository
}

func NewAddressService(addressRepo repository.AddressRepository) AddressService {
	return &addressService{
		addressRepo: addressRepo,
	}
}

func validateAddress(a *model.Address) error {
	for _, field := range []string{a.Name, a.Phone, a.Address, a.City, a.State, a.ZipCode} {
		if strings.TrimSpace(field) == "" {
			return ErrInvalidAddress
		}
	}
	return nil
}

func (s *addressService) GetUserAddresses(userID uint) ([]model.Address, error) {
	addresses, err := s.addressRepo.FindByUserID(userID)
	if err != nil {
		logger.Error("Failed to fetch user addresses", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return addresses, nil
}

// CreateAddress stores a new address. A user's first address is always the
// default; asking for a default later moves the flag onto the new one.
func (s *addressService) CreateAddress(userID uint, address *model.Address) error {
	logger.Info("Creating address", map[string]interface{}{
		"user_id": userID,
	})

	if err := validateAddress(address); err != nil {
		return err
	}

	count, err := s.addressRepo.CountByUserID(userID)
	if err != nil {
		return err
	}

	wantDefault := address.IsDefault || count == 0
	address.ID = 0
	address.UserID = userID
	address.IsDefault = false

	if err := s.addressRepo.Create(address); err != nil {
		logger.Error("Failed to create address", err, map[string]interface{}{
			"user_id": userID,
		})
		return err
	}

	if wantDefault {
		if err := s.addressRepo.SetDefault(userID, address.ID); err != nil {
			return err
		}
		address.IsDefault = true
	}

	logger.Info("Address created successfully", map[string]interface{}{
		"address_id": address.ID,
		"user_id":    userID,
		"is_default": address.IsDefault,
	})
	return nil
}

func (s *addressService) owned(userID, addressID uint) (*model.Address, error) {
	address, err := s.addressRepo.FindByID(addressID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAddressNotFound
		}
		return nil, err
	}
	if address.UserID != userID {
		logger.Warn("Address access by non-owner", map[string]interface{}{
			"address_id": addressID,
			"user_id":    userID,
		})
		return nil, ErrUnauthorizedAccess
	}
	return address, nil
}

func (s *addressService) UpdateAddress(userID, addressID uint, updated *model.Address) (*model.Address, error) {
	address, err := s.owned(userID, addressID)
	if err != nil {
		return nil, err
	}
	if err := validateAddress(updated); err != nil {
		return nil, err
	}

	address.Name = updated.Name
	address.Phone = updated.Phone
	address.Address = updated.Address
	address.City = updated.City
	address.State = updated.State
	address.ZipCode = updated.ZipCode
	if updated.Country != "" {
		address.Country = updated.Country
	}

	if err := s.addressRepo.Update(address); err != nil {
		logger.Error("Failed to update address", err, map[string]interface{}{
			"address_id": addressID,
		})
		return nil, err
	}

	if updated.IsDefault && !address.IsDefault {
		if err := s.SetDefaultAddress(userID, addressID); err != nil {
			return nil, err
		}
		address.IsDefault = true
	}

	logger.Info("Address updated successfully", map[string]interface{}{
		"address_id": addressID,
		"user_id":    userID,
	})
	return address, nil
}

func (s *addressService) DeleteAddress(userID, addressID uint) error {
	if _, err := s.owned(userID, addressID); err != nil {
		return err
	}

	if err := s.addressRepo.Delete(addressID); err != nil {
		logger.Error("Failed to delete address", err, map[string]interface{}{
			"address_id": addressID,
		})
		return err
	}

	logger.Info("Address deleted successfully", map[string]interface{}{
		"address_id": addressID,
		"user_id":    userID,
	})
	return nil
}

func (s *addressService) SetDefaultAddress(userID, addressID uint) error {
	if _, err := s.owned(userID, addressID); err != nil {
		return err
	}

	if err := s.addressRepo.SetDefault(userID, addressID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAddressNotFound
		}
		return err
	}

	logger.Info("Default address set successfully", map[string]interface{}{
		"address_id": addressID,
		"user_id":    userID,
	})
	return nil
}
