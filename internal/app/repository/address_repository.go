package repository

import (
	"errors"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

type AddressRepository interface {
	Create(address *model.Address) error
	FindByUserID(userID uint) ([]model.Address, error)
	FindByIDAndUserID(id, userID uint) (*model.Address, error)
}

type addressRepository struct {
	db *gorm.DB
}

func NewAddressRepository(db *gorm.DB) AddressRepository {
	return &addressRepository{db: db}
}

func (r *addressRepository) Create(address *model.Address) error {
	logger.Debug("Creating address in database", map[string]interface{}{
		"user_id":   address.UserID,
		"name":      address.Name,
		"recipient": address.Recipient,
	})

	if err := r.db.Create(address).Error; err != nil {
		logger.Error("Failed to create address in database", err, map[string]interface{}{
			"user_id": address.UserID,
		})
		return err
	}

	logger.Debug("Address created in database", map[string]interface{}{
		"address_id": address.ID,
		"user_id":    address.UserID,
	})
	return nil
}

func (r *addressRepository) FindByUserID(userID uint) ([]model.Address, error) {
	var addresses []model.Address
	err := r.db.Where("user_id = ?", userID).
		Order("is_default DESC, created_at DESC").
		Find(&addresses).Error
	if err != nil {
		logger.Error("Failed to find addresses by user ID in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return addresses, nil
}

// FindByIDAndUserID only returns the address when it belongs to the user
func (r *addressRepository) FindByIDAndUserID(id, userID uint) (*model.Address, error) {
	logger.Debug("Finding address by ID for user in database", map[string]interface{}{
		"address_id": id,
		"user_id":    userID,
	})

	var address model.Address
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&address).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find address by ID in database", err, map[string]interface{}{
				"address_id": id,
				"user_id":    userID,
			})
		}
		return nil, err
	}
	return &address, nil
}
